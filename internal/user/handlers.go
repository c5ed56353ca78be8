package user

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/coder-ph/m-fua-services/internal/apperr"
	"github.com/coder-ph/m-fua-services/internal/db"
	"github.com/coder-ph/m-fua-services/internal/middleware"
)

const profileColumns = `id, user_id, bio, address, city, country, company_name, service_radius_km, latitude, longitude`

func getProfile(ctx context.Context, userID int64) (*Profile, error) {
	p := new(Profile)
	err := db.Conn.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM user_profiles WHERE user_id = $1`, userID).
		Scan(&p.ID, &p.UserID, &p.Bio, &p.Address, &p.City, &p.Country,
			&p.CompanyName, &p.ServiceRadiusKM, &p.Latitude, &p.Longitude)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("profile")
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return p, nil
}

// PublicProfile is the projection other users are allowed to see. No email,
// phone or street address.
type PublicProfile struct {
	ID            int64   `json:"id"`
	FirstName     string  `json:"first_name"`
	LastName      string  `json:"last_name"`
	Role          string  `json:"role"`
	Bio           *string `json:"bio"`
	City          *string `json:"city"`
	Country       *string `json:"country"`
	CompanyName   *string `json:"company_name"`
	AverageRating float64 `json:"average_rating"`
	TotalRatings  int     `json:"total_ratings"`
}

// GetPublicProfile returns the public view of any active user.
func GetPublicProfile(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return apperr.Validation("invalid id")
	}

	ctx := c.Request().Context()
	u, err := GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !u.IsActive {
		return apperr.NotFound("user")
	}

	out := PublicProfile{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
	}

	if p, err := getProfile(ctx, id); err == nil {
		out.Bio = p.Bio
		out.City = p.City
		out.Country = p.Country
		out.CompanyName = p.CompanyName
	}

	if u.Role == "provider" {
		err := db.Conn.QueryRow(ctx, `
			SELECT COALESCE(AVG(r.rating), 0), COUNT(*)
			FROM ratings r
			JOIN services s ON s.id = r.service_id
			WHERE s.provider_id = $1
		`, id).Scan(&out.AverageRating, &out.TotalRatings)
		if err != nil {
			return apperr.Internal(err)
		}
	}
	return c.JSON(http.StatusOK, out)
}

type UpdateProfileRequest struct {
	FirstName       *string  `json:"first_name" validate:"omitempty,max=100"`
	LastName        *string  `json:"last_name" validate:"omitempty,max=100"`
	Phone           *string  `json:"phone" validate:"omitempty,max=20"`
	Bio             *string  `json:"bio"`
	Address         *string  `json:"address" validate:"omitempty,max=255"`
	City            *string  `json:"city" validate:"omitempty,max=100"`
	Country         *string  `json:"country" validate:"omitempty,max=100"`
	CompanyName     *string  `json:"company_name" validate:"omitempty,max=150"`
	ServiceRadiusKM *int     `json:"service_radius_km" validate:"omitempty,min=1,max=500"`
	Latitude        *float64 `json:"latitude" validate:"omitempty,min=-90,max=90"`
	Longitude       *float64 `json:"longitude" validate:"omitempty,min=-180,max=180"`
}

// UpdateProfile edits the caller's own account and profile fields. Email,
// role and password travel through their own endpoints.
func UpdateProfile(c echo.Context) error {
	req := new(UpdateProfileRequest)
	if err := c.Bind(req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	userID := middleware.UserID(c)

	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return apperr.Internal(err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		UPDATE users SET
			first_name = COALESCE($1, first_name),
			last_name  = COALESCE($2, last_name),
			phone      = COALESCE($3, phone),
			updated_at = NOW()
		WHERE id = $4
	`, req.FirstName, req.LastName, req.Phone, userID)
	if err != nil {
		return apperr.Internal(err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE user_profiles SET
			bio               = COALESCE($1, bio),
			address           = COALESCE($2, address),
			city              = COALESCE($3, city),
			country           = COALESCE($4, country),
			company_name      = COALESCE($5, company_name),
			service_radius_km = COALESCE($6, service_radius_km),
			latitude          = COALESCE($7, latitude),
			longitude         = COALESCE($8, longitude),
			updated_at        = NOW()
		WHERE user_id = $9
	`, req.Bio, req.Address, req.City, req.Country, req.CompanyName,
		req.ServiceRadiusKM, req.Latitude, req.Longitude, userID)
	if err != nil {
		return apperr.Internal(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return apperr.Internal(err)
	}

	u, err := GetByID(ctx, userID)
	if err != nil {
		return err
	}
	profile, err := getProfile(ctx, userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"user": u, "profile": profile})
}
