package category

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/labstack/echo/v4"

	"github.com/coder-ph/m-fua-services/internal/apperr"
	"github.com/coder-ph/m-fua-services/internal/db"
)

const categoryColumns = `id, name, description, icon, is_active, parent_id, created_at, updated_at`

func scanCategory(row pgx.Row) (*Category, error) {
	cat := new(Category)
	err := row.Scan(&cat.ID, &cat.Name, &cat.Description, &cat.Icon,
		&cat.IsActive, &cat.ParentID, &cat.CreatedAt, &cat.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("category")
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return cat, nil
}

func getCategory(ctx context.Context, id int64) (*Category, error) {
	return scanCategory(db.Conn.QueryRow(ctx,
		`SELECT `+categoryColumns+` FROM service_categories WHERE id = $1`, id))
}

func listActive(ctx context.Context) ([]Category, error) {
	rows, err := db.Conn.Query(ctx,
		`SELECT `+categoryColumns+` FROM service_categories WHERE is_active ORDER BY name`)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	defer rows.Close()

	cats := make([]Category, 0)
	for rows.Next() {
		cat, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		cats = append(cats, *cat)
	}
	if rows.Err() != nil {
		return nil, apperr.Internal(rows.Err())
	}
	return cats, nil
}

func paramID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		return 0, apperr.Validation("invalid " + name)
	}
	return id, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// List returns the active categories, flat by default or nested when
// tree=true is passed.
func List(c echo.Context) error {
	cats, err := listActive(c.Request().Context())
	if err != nil {
		return err
	}
	if c.QueryParam("tree") == "true" {
		return c.JSON(http.StatusOK, BuildTree(cats))
	}
	return c.JSON(http.StatusOK, cats)
}

// Get returns one active category.
func Get(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	cat, err := getCategory(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if !cat.IsActive {
		return apperr.NotFound("category")
	}
	return c.JSON(http.StatusOK, cat)
}

// Subcategories lists the active direct children of a category.
func Subcategories(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	if _, err := getCategory(ctx, id); err != nil {
		return err
	}

	rows, err := db.Conn.Query(ctx,
		`SELECT `+categoryColumns+` FROM service_categories
		 WHERE parent_id = $1 AND is_active ORDER BY name`, id)
	if err != nil {
		return apperr.Internal(err)
	}
	defer rows.Close()

	cats := make([]Category, 0)
	for rows.Next() {
		cat, err := scanCategory(rows)
		if err != nil {
			return err
		}
		cats = append(cats, *cat)
	}
	if rows.Err() != nil {
		return apperr.Internal(rows.Err())
	}
	return c.JSON(http.StatusOK, cats)
}

type CreateCategoryRequest struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Description *string `json:"description"`
	Icon        *string `json:"icon" validate:"omitempty,max=100"`
	ParentID    *int64  `json:"parent_id" validate:"omitempty,min=1"`
}

// Create adds a category. Admin only.
func Create(c echo.Context) error {
	req := new(CreateCategoryRequest)
	if err := c.Bind(req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	if req.ParentID != nil {
		if _, err := getCategory(ctx, *req.ParentID); err != nil {
			return apperr.ValidationFields("invalid request",
				map[string]string{"parent_id": "unknown parent category"})
		}
	}

	var id int64
	err := db.Conn.QueryRow(ctx, `
		INSERT INTO service_categories (name, description, icon, parent_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, req.Name, req.Description, req.Icon, req.ParentID).Scan(&id)
	if isUniqueViolation(err) {
		return apperr.Conflict("a category with this name already exists")
	}
	if err != nil {
		return apperr.Internal(err)
	}

	cat, err := getCategory(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, cat)
}

type CreateSubcategoryRequest struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Description *string `json:"description"`
	Icon        *string `json:"icon" validate:"omitempty,max=100"`
}

// CreateSubcategory adds a child category under the one in the path. Admin
// only.
func CreateSubcategory(c echo.Context) error {
	parentID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	req := new(CreateSubcategoryRequest)
	if err := c.Bind(req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	if _, err := getCategory(ctx, parentID); err != nil {
		return err
	}

	var id int64
	err = db.Conn.QueryRow(ctx, `
		INSERT INTO service_categories (name, description, icon, parent_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, req.Name, req.Description, req.Icon, parentID).Scan(&id)
	if isUniqueViolation(err) {
		return apperr.Conflict("a category with this name already exists")
	}
	if err != nil {
		return apperr.Internal(err)
	}

	cat, err := getCategory(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, cat)
}

type UpdateCategoryRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=100"`
	Description *string `json:"description"`
	Icon        *string `json:"icon" validate:"omitempty,max=100"`
	IsActive    *bool   `json:"is_active"`
	ParentID    *int64  `json:"parent_id" validate:"omitempty,min=1"`
}

// Update edits a category. Reparenting under the category's own subtree is
// refused so the hierarchy stays acyclic.
func Update(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	req := new(UpdateCategoryRequest)
	if err := c.Bind(req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	if _, err := getCategory(ctx, id); err != nil {
		return err
	}

	if req.ParentID != nil {
		if *req.ParentID == id {
			return apperr.ValidationFields("invalid request",
				map[string]string{"parent_id": "category cannot be its own parent"})
		}
		all, err := listAll(ctx)
		if err != nil {
			return err
		}
		for _, desc := range Descendants(all, id) {
			if desc.ID == *req.ParentID {
				return apperr.ValidationFields("invalid request",
					map[string]string{"parent_id": "cannot move a category under its own subtree"})
			}
		}
		if _, err := getCategory(ctx, *req.ParentID); err != nil {
			return apperr.ValidationFields("invalid request",
				map[string]string{"parent_id": "unknown parent category"})
		}
	}

	_, err = db.Conn.Exec(ctx, `
		UPDATE service_categories SET
			name = COALESCE($1, name),
			description = COALESCE($2, description),
			icon = COALESCE($3, icon),
			is_active = COALESCE($4, is_active),
			parent_id = COALESCE($5, parent_id),
			updated_at = NOW()
		WHERE id = $6
	`, req.Name, req.Description, req.Icon, req.IsActive, req.ParentID, id)
	if isUniqueViolation(err) {
		return apperr.Conflict("a category with this name already exists")
	}
	if err != nil {
		return apperr.Internal(err)
	}

	cat, err := getCategory(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cat)
}

// Delete soft-deletes a category by deactivating it. Categories still
// referenced by live services cannot be removed.
func Delete(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	if _, err := getCategory(ctx, id); err != nil {
		return err
	}

	var active int
	err = db.Conn.QueryRow(ctx, `
		SELECT COUNT(*) FROM services
		WHERE category_id = $1 AND status IN ('pending', 'assigned', 'in_progress')
	`, id).Scan(&active)
	if err != nil {
		return apperr.Internal(err)
	}
	if active > 0 {
		return apperr.Validation("cannot delete a category with active services")
	}

	_, err = db.Conn.Exec(ctx,
		`UPDATE service_categories SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return apperr.Internal(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "category deactivated"})
}

func listAll(ctx context.Context) ([]Category, error) {
	rows, err := db.Conn.Query(ctx,
		`SELECT `+categoryColumns+` FROM service_categories`)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	defer rows.Close()

	cats := make([]Category, 0)
	for rows.Next() {
		cat, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		cats = append(cats, *cat)
	}
	if rows.Err() != nil {
		return nil, apperr.Internal(rows.Err())
	}
	return cats, nil
}
