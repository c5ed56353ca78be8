package ratings

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/coder-ph/m-fua-services/internal/apperr"
	"github.com/coder-ph/m-fua-services/internal/db"
	"github.com/coder-ph/m-fua-services/internal/middleware"
	"github.com/coder-ph/m-fua-services/internal/notify"
	"github.com/coder-ph/m-fua-services/internal/pagination"
)

type Rating struct {
	ID               int64      `json:"id"`
	ReviewerID       *int64     `json:"reviewer_id"` // null when anonymous
	ProviderID       int64      `json:"provider_id"`
	ServiceID        int64      `json:"service_id"`
	Rating           int        `json:"rating"`
	Comment          *string    `json:"comment"`
	IsAnonymous      bool       `json:"is_anonymous"`
	ProviderResponse *string    `json:"provider_response"`
	RespondedAt      *time.Time `json:"responded_at"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

const ratingColumns = `id, reviewer_id, provider_id, service_id, rating, comment,
	is_anonymous, provider_response, responded_at, created_at, updated_at`

func scanRating(row pgx.Row) (*Rating, error) {
	var r Rating
	var reviewerID int64
	err := row.Scan(&r.ID, &reviewerID, &r.ProviderID, &r.ServiceID, &r.Rating, &r.Comment,
		&r.IsAnonymous, &r.ProviderResponse, &r.RespondedAt, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("rating")
		}
		return nil, apperr.Internal(err)
	}
	if !r.IsAnonymous {
		r.ReviewerID = &reviewerID
	}
	return &r, nil
}

func getRating(ctx context.Context, id int64) (*Rating, error) {
	return scanRating(db.Conn.QueryRow(ctx, `SELECT `+ratingColumns+` FROM ratings WHERE id = $1`, id))
}

// reviewerOf bypasses the anonymous masking for ownership checks.
func reviewerOf(ctx context.Context, ratingID int64) (int64, int64, error) {
	var reviewerID, providerID int64
	err := db.Conn.QueryRow(ctx,
		`SELECT reviewer_id, provider_id FROM ratings WHERE id = $1`, ratingID).Scan(&reviewerID, &providerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, apperr.NotFound("rating")
		}
		return 0, 0, apperr.Internal(err)
	}
	return reviewerID, providerID, nil
}

func paramID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		return 0, apperr.Validation("invalid " + name)
	}
	return id, nil
}

type CreateRatingRequest struct {
	ServiceID   int64  `json:"service_id" validate:"required,min=1"`
	Rating      int    `json:"rating" validate:"required,min=1,max=5"`
	Comment     string `json:"comment" validate:"omitempty,max=1000"`
	IsAnonymous bool   `json:"is_anonymous"`
}

// Create records a rating. Only the client of a completed service may rate
// it, once.
func Create(c echo.Context) error {
	req := new(CreateRatingRequest)
	if err := c.Bind(req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	reviewerID := middleware.UserID(c)

	var providerID *int64
	var status string
	var clientID int64
	err := db.Conn.QueryRow(ctx,
		`SELECT client_id, provider_id, status FROM services WHERE id = $1`,
		req.ServiceID).Scan(&clientID, &providerID, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound("service")
		}
		return apperr.Internal(err)
	}

	if clientID != reviewerID {
		return apperr.Authorization("only the service's client may rate it")
	}
	if status != "completed" {
		return apperr.Validation("can only rate completed services")
	}
	if providerID == nil {
		return apperr.Internal(errors.New("completed service has no provider"))
	}

	var comment *string
	if req.Comment != "" {
		comment = &req.Comment
	}

	var ratingID int64
	err = db.Conn.QueryRow(ctx, `
		INSERT INTO ratings (reviewer_id, provider_id, service_id, rating, comment, is_anonymous)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, reviewerID, *providerID, req.ServiceID, req.Rating, comment, req.IsAnonymous).Scan(&ratingID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperr.Conflict("you have already rated this service")
		}
		return apperr.Internal(err)
	}

	if err := notify.EnqueueNewRating(*providerID, req.ServiceID, ratingID, req.Rating); err != nil {
		zap.L().Error("enqueue rating notification failed", zap.Int64("rating_id", ratingID), zap.Error(err))
	}

	rating, err := getRating(ctx, ratingID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, rating)
}

// GetProviderRatings lists a provider's ratings with the aggregate summary.
func GetProviderRatings(c echo.Context) error {
	providerID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	page := pagination.FromRequest(c, 10)

	minRating := 0
	if raw := c.QueryParam("min_rating"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			minRating = v
		}
	}

	counts := map[int]int{}
	rows, err := db.Conn.Query(ctx,
		`SELECT rating, COUNT(*) FROM ratings WHERE provider_id = $1 GROUP BY rating`, providerID)
	if err != nil {
		return apperr.Internal(err)
	}
	for rows.Next() {
		var score, n int
		if err := rows.Scan(&score, &n); err != nil {
			rows.Close()
			return apperr.Internal(err)
		}
		counts[score] = n
	}
	rows.Close()
	if rows.Err() != nil {
		return apperr.Internal(rows.Err())
	}

	var total int
	err = db.Conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM ratings WHERE provider_id = $1 AND rating >= $2`,
		providerID, minRating).Scan(&total)
	if err != nil {
		return apperr.Internal(err)
	}

	rows, err = db.Conn.Query(ctx, `
		SELECT `+ratingColumns+` FROM ratings
		WHERE provider_id = $1 AND rating >= $2
		ORDER BY created_at DESC LIMIT $3 OFFSET $4
	`, providerID, minRating, page.Limit(), page.Offset())
	if err != nil {
		return apperr.Internal(err)
	}
	defer rows.Close()

	items := make([]*Rating, 0)
	for rows.Next() {
		r, err := scanRating(rows)
		if err != nil {
			return err
		}
		items = append(items, r)
	}
	if rows.Err() != nil {
		return apperr.Internal(rows.Err())
	}

	env := page.Envelope(items, total)
	env["summary"] = BuildSummary(counts)
	return c.JSON(http.StatusOK, env)
}

func Get(c echo.Context) error {
	ratingID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	rating, err := getRating(c.Request().Context(), ratingID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rating)
}

type UpdateRatingRequest struct {
	Rating      *int    `json:"rating" validate:"omitempty,min=1,max=5"`
	Comment     *string `json:"comment" validate:"omitempty,max=1000"`
	IsAnonymous *bool   `json:"is_anonymous"`
}

func Update(c echo.Context) error {
	ratingID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	req := new(UpdateRatingRequest)
	if err := c.Bind(req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	reviewerID, _, err := reviewerOf(ctx, ratingID)
	if err != nil {
		return err
	}
	if reviewerID != middleware.UserID(c) {
		return apperr.Authorization("not allowed to update this rating")
	}

	_, err = db.Conn.Exec(ctx, `
		UPDATE ratings SET
			rating = COALESCE($1, rating),
			comment = COALESCE($2, comment),
			is_anonymous = COALESCE($3, is_anonymous),
			updated_at = NOW()
		WHERE id = $4
	`, req.Rating, req.Comment, req.IsAnonymous, ratingID)
	if err != nil {
		return apperr.Internal(err)
	}

	rating, err := getRating(ctx, ratingID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rating)
}

func Delete(c echo.Context) error {
	ratingID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	reviewerID, _, err := reviewerOf(ctx, ratingID)
	if err != nil {
		return err
	}
	if reviewerID != middleware.UserID(c) && middleware.Role(c) != "admin" {
		return apperr.Authorization("not allowed to delete this rating")
	}

	if _, err := db.Conn.Exec(ctx, `DELETE FROM ratings WHERE id = $1`, ratingID); err != nil {
		return apperr.Internal(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "rating deleted"})
}

// Report flags a rating for moderation.
func Report(c echo.Context) error {
	ratingID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	reviewerID, _, err := reviewerOf(ctx, ratingID)
	if err != nil {
		return err
	}
	if reviewerID == middleware.UserID(c) {
		return apperr.Validation("cannot report your own rating")
	}

	if _, err := db.Conn.Exec(ctx,
		`UPDATE ratings SET report_count = report_count + 1, updated_at = NOW() WHERE id = $1`,
		ratingID); err != nil {
		return apperr.Internal(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "rating reported"})
}
