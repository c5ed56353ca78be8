package ratings

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/coder-ph/m-fua-services/internal/apperr"
	"github.com/coder-ph/m-fua-services/internal/db"
	"github.com/coder-ph/m-fua-services/internal/middleware"
)

type ResponseRequest struct {
	Response string `json:"response" validate:"required,max=1000"`
}

// Respond lets the rated provider answer a review once.
func Respond(c echo.Context) error {
	return upsertResponse(c, false)
}

// UpdateResponse replaces an existing response.
func UpdateResponse(c echo.Context) error {
	return upsertResponse(c, true)
}

func upsertResponse(c echo.Context, mustExist bool) error {
	ratingID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	req := new(ResponseRequest)
	if err := c.Bind(req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	_, providerID, err := reviewerOf(ctx, ratingID)
	if err != nil {
		return err
	}
	if providerID != middleware.UserID(c) {
		return apperr.Authorization("not allowed to respond to this rating")
	}

	rating, err := getRating(ctx, ratingID)
	if err != nil {
		return err
	}
	if mustExist && rating.ProviderResponse == nil {
		return apperr.NotFound("response")
	}
	if !mustExist && rating.ProviderResponse != nil {
		return apperr.Conflict("rating already has a response")
	}

	_, err = db.Conn.Exec(ctx, `
		UPDATE ratings SET provider_response = $1, responded_at = NOW(), updated_at = NOW()
		WHERE id = $2
	`, req.Response, ratingID)
	if err != nil {
		return apperr.Internal(err)
	}

	rating, err = getRating(ctx, ratingID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rating)
}

func DeleteResponse(c echo.Context) error {
	ratingID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	_, providerID, err := reviewerOf(ctx, ratingID)
	if err != nil {
		return err
	}
	if providerID != middleware.UserID(c) {
		return apperr.Authorization("not allowed to modify this response")
	}

	_, err = db.Conn.Exec(ctx, `
		UPDATE ratings SET provider_response = NULL, responded_at = NULL, updated_at = NOW()
		WHERE id = $1
	`, ratingID)
	if err != nil {
		return apperr.Internal(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "response deleted"})
}
