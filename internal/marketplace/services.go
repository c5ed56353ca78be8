package marketplace

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/coder-ph/m-fua-services/internal/apperr"
	"github.com/coder-ph/m-fua-services/internal/db"
	"github.com/coder-ph/m-fua-services/internal/middleware"
	"github.com/coder-ph/m-fua-services/internal/pagination"
)

func paramID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		return 0, apperr.Validation("invalid " + name)
	}
	return id, nil
}

type CreateServiceRequest struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Description string   `json:"description" validate:"required"`
	CategoryID  int64    `json:"category_id" validate:"required,min=1"`
	Budget      float64  `json:"budget" validate:"required,gt=0"`
	Deadline    string   `json:"deadline" validate:"required"`
	Location    string   `json:"location" validate:"omitempty,max=255"`
	Latitude    *float64 `json:"latitude" validate:"omitempty,min=-90,max=90"`
	Longitude   *float64 `json:"longitude" validate:"omitempty,min=-180,max=180"`
}

// CreateService posts a new service request. Services always start pending
// with no provider.
func CreateService(c echo.Context) error {
	req := new(CreateServiceRequest)
	if err := c.Bind(req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	deadline, err := time.Parse(time.RFC3339, req.Deadline)
	if err != nil {
		return apperr.ValidationFields("invalid request",
			map[string]string{"deadline": "must be an RFC 3339 timestamp"})
	}
	if !deadline.After(time.Now()) {
		return apperr.ValidationFields("invalid request",
			map[string]string{"deadline": "must be in the future"})
	}

	ctx := c.Request().Context()

	var categoryActive bool
	err = db.Conn.QueryRow(ctx,
		`SELECT is_active FROM service_categories WHERE id = $1`,
		req.CategoryID).Scan(&categoryActive)
	if err != nil || !categoryActive {
		return apperr.ValidationFields("invalid request",
			map[string]string{"category_id": "unknown or inactive category"})
	}

	var location *string
	if req.Location != "" {
		location = &req.Location
	}

	var serviceID int64
	err = db.Conn.QueryRow(ctx, `
		INSERT INTO services (title, description, budget, deadline, location,
			latitude, longitude, client_id, category_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, req.Title, req.Description, req.Budget, deadline, location,
		req.Latitude, req.Longitude, middleware.UserID(c), req.CategoryID).Scan(&serviceID)
	if err != nil {
		return apperr.Internal(err)
	}

	svc, err := getService(ctx, serviceID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, svc)
}

// ListServices returns a role-scoped, filtered, paginated listing: clients
// see their own services, providers see their assignments plus everything
// pending, admins see all.
func ListServices(c echo.Context) error {
	ctx := c.Request().Context()
	userID := middleware.UserID(c)
	role := middleware.Role(c)
	page := pagination.FromRequest(c, 10)

	where := `WHERE TRUE`
	args := []interface{}{}

	switch role {
	case "client":
		args = append(args, userID)
		where += ` AND client_id = $` + strconv.Itoa(len(args))
	case "provider":
		args = append(args, userID)
		where += ` AND (provider_id = $` + strconv.Itoa(len(args)) + ` OR status = 'pending')`
	}

	if status := c.QueryParam("status"); status != "" {
		args = append(args, status)
		where += ` AND status = $` + strconv.Itoa(len(args))
	}
	if categoryID := c.QueryParam("category_id"); categoryID != "" {
		id, err := strconv.ParseInt(categoryID, 10, 64)
		if err != nil {
			return apperr.Validation("invalid category_id")
		}
		args = append(args, id)
		where += ` AND category_id = $` + strconv.Itoa(len(args))
	}

	var total int
	if err := db.Conn.QueryRow(ctx, `SELECT COUNT(*) FROM services `+where, args...).Scan(&total); err != nil {
		return apperr.Internal(err)
	}

	args = append(args, page.Limit(), page.Offset())
	query := `SELECT ` + serviceColumns + ` FROM services ` + where +
		` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := db.Conn.Query(ctx, query, args...)
	if err != nil {
		return apperr.Internal(err)
	}
	defer rows.Close()

	services := make([]*Service, 0)
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return err
		}
		services = append(services, svc)
	}
	if rows.Err() != nil {
		return apperr.Internal(rows.Err())
	}

	return c.JSON(http.StatusOK, page.Envelope(services, total))
}

// GetService returns one service with its owned collections.
func GetService(c echo.Context) error {
	serviceID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	svc, err := getService(ctx, serviceID)
	if err != nil {
		return err
	}
	if !canView(svc, middleware.UserID(c), middleware.Role(c)) {
		return apperr.Authorization("not allowed to view this service")
	}

	detail := ServiceDetail{Service: *svc}
	if detail.Images, err = listImages(ctx, serviceID); err != nil {
		return err
	}
	if detail.Offers, err = listOffers(ctx, serviceID); err != nil {
		return err
	}
	if detail.Messages, err = listMessages(ctx, serviceID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, detail)
}

type UpdateServiceRequest struct {
	Title       *string  `json:"title" validate:"omitempty,max=200"`
	Description *string  `json:"description"`
	Budget      *float64 `json:"budget" validate:"omitempty,gt=0"`
	Deadline    *string  `json:"deadline"`
	Location    *string  `json:"location" validate:"omitempty,max=255"`
	Latitude    *float64 `json:"latitude" validate:"omitempty,min=-90,max=90"`
	Longitude   *float64 `json:"longitude" validate:"omitempty,min=-180,max=180"`

	// Guarded columns are not updatable here. A status field in the body is
	// rejected outright rather than silently dropped.
	Status *string `json:"status"`
}

// UpdateService edits descriptive fields. Status, provider and the lifecycle
// timestamps are owned by the transition table and excluded from this path.
func UpdateService(c echo.Context) error {
	serviceID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	req := new(UpdateServiceRequest)
	if err := c.Bind(req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	if req.Status != nil {
		return apperr.ValidationFields("invalid request",
			map[string]string{"status": "status changes must go through PUT /services/:id/status"})
	}

	ctx := c.Request().Context()
	svc, err := getService(ctx, serviceID)
	if err != nil {
		return err
	}
	if svc.ClientID != middleware.UserID(c) && middleware.Role(c) != "admin" {
		return apperr.Authorization("not allowed to update this service")
	}

	var deadline *time.Time
	if req.Deadline != nil {
		parsed, err := time.Parse(time.RFC3339, *req.Deadline)
		if err != nil {
			return apperr.ValidationFields("invalid request",
				map[string]string{"deadline": "must be an RFC 3339 timestamp"})
		}
		deadline = &parsed
	}

	_, err = db.Conn.Exec(ctx, `
		UPDATE services SET
			title = COALESCE($1, title),
			description = COALESCE($2, description),
			budget = COALESCE($3, budget),
			deadline = COALESCE($4, deadline),
			location = COALESCE($5, location),
			latitude = COALESCE($6, latitude),
			longitude = COALESCE($7, longitude),
			updated_at = NOW()
		WHERE id = $8
	`, req.Title, req.Description, req.Budget, deadline, req.Location,
		req.Latitude, req.Longitude, serviceID)
	if err != nil {
		return apperr.Internal(err)
	}

	svc, err = getService(ctx, serviceID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, svc)
}
