package marketplace

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/coder-ph/m-fua-services/internal/apperr"
	"github.com/coder-ph/m-fua-services/internal/db"
	"github.com/coder-ph/m-fua-services/internal/middleware"
)

type AddImageRequest struct {
	ImageURL     string `json:"image_url" validate:"required,url,max=500"`
	ThumbnailURL string `json:"thumbnail_url" validate:"omitempty,url,max=500"`
	IsPrimary    bool   `json:"is_primary"`
}

// AddImage attaches an already-uploaded image to a service. File storage
// itself is an external collaborator; this only records the URLs.
func AddImage(c echo.Context) error {
	serviceID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	req := new(AddImageRequest)
	if err := c.Bind(req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	svc, err := getService(ctx, serviceID)
	if err != nil {
		return err
	}
	if svc.ClientID != middleware.UserID(c) && middleware.Role(c) != "admin" {
		return apperr.Authorization("not allowed to modify this service")
	}

	var thumbnail *string
	if req.ThumbnailURL != "" {
		thumbnail = &req.ThumbnailURL
	}

	if req.IsPrimary {
		if _, err := db.Conn.Exec(ctx,
			`UPDATE service_images SET is_primary = FALSE WHERE service_id = $1`, serviceID); err != nil {
			return apperr.Internal(err)
		}
	}

	var img Image
	err = db.Conn.QueryRow(ctx, `
		INSERT INTO service_images (service_id, image_url, thumbnail_url, is_primary)
		VALUES ($1, $2, $3, $4)
		RETURNING id, service_id, image_url, thumbnail_url, is_primary, created_at
	`, serviceID, req.ImageURL, thumbnail, req.IsPrimary).Scan(
		&img.ID, &img.ServiceID, &img.ImageURL, &img.ThumbnailURL, &img.IsPrimary, &img.CreatedAt)
	if err != nil {
		return apperr.Internal(err)
	}

	return c.JSON(http.StatusCreated, img)
}

func GetImages(c echo.Context) error {
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

	images, err := listImages(ctx, serviceID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"images": images})
}

func DeleteImage(c echo.Context) error {
	serviceID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	imageID, err := paramID(c, "imageID")
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	svc, err := getService(ctx, serviceID)
	if err != nil {
		return err
	}
	if svc.ClientID != middleware.UserID(c) && middleware.Role(c) != "admin" {
		return apperr.Authorization("not allowed to modify this service")
	}

	tag, err := db.Conn.Exec(ctx,
		`DELETE FROM service_images WHERE id = $1 AND service_id = $2`, imageID, serviceID)
	if err != nil {
		return apperr.Internal(err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("image")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "image deleted"})
}

func listImages(ctx context.Context, serviceID int64) ([]Image, error) {
	rows, err := db.Conn.Query(ctx, `
		SELECT id, service_id, image_url, thumbnail_url, is_primary, created_at
		FROM service_images WHERE service_id = $1 ORDER BY created_at
	`, serviceID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	defer rows.Close()

	images := make([]Image, 0)
	for rows.Next() {
		var img Image
		if err := rows.Scan(&img.ID, &img.ServiceID, &img.ImageURL, &img.ThumbnailURL,
			&img.IsPrimary, &img.CreatedAt); err != nil {
			return nil, apperr.Internal(err)
		}
		images = append(images, img)
	}
	if rows.Err() != nil {
		return nil, apperr.Internal(rows.Err())
	}
	return images, nil
}
