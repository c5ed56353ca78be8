package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/coder-ph/m-fua-services/internal/apperr"
	"github.com/coder-ph/m-fua-services/internal/db"
	"github.com/coder-ph/m-fua-services/internal/notify"
	"github.com/coder-ph/m-fua-services/internal/token"
	"github.com/coder-ph/m-fua-services/internal/user"
)

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ForgotPassword always answers 200 so the endpoint cannot be used to probe
// which emails exist.
func ForgotPassword(c echo.Context) error {
	req := new(ForgotPasswordRequest)
	if err := c.Bind(req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	resp := echo.Map{"message": "if this email is registered, reset instructions have been sent"}

	u, err := user.GetByEmail(ctx, strings.ToLower(req.Email))
	if err != nil {
		return c.JSON(http.StatusOK, resp)
	}

	resetToken := uuid.New()
	_, err = db.Conn.Exec(ctx, `
		INSERT INTO password_reset_tokens (token, user_id, expires_at)
		VALUES ($1, $2, $3)
	`, resetToken, u.ID, time.Now().Add(token.ResetTTL()))
	if err != nil {
		return apperr.Internal(err)
	}

	if err := notify.EnqueuePasswordReset(u.ID, u.Email, resetToken.String(), u.FirstName); err != nil {
		zap.L().Error("enqueue password reset failed", zap.Int64("user_id", u.ID), zap.Error(err))
	}

	return c.JSON(http.StatusOK, resp)
}

type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required,uuid"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

func ResetPassword(c echo.Context) error {
	req := new(ResetPasswordRequest)
	if err := c.Bind(req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return apperr.Internal(err)
	}
	defer tx.Rollback(ctx)

	var userID int64
	var expiresAt time.Time
	var usedAt *time.Time
	err = tx.QueryRow(ctx, `
		SELECT user_id, expires_at, used_at FROM password_reset_tokens
		WHERE token = $1 FOR UPDATE
	`, req.Token).Scan(&userID, &expiresAt, &usedAt)
	if err != nil {
		return apperr.Validation("invalid or expired reset token")
	}
	if usedAt != nil || time.Now().After(expiresAt) {
		return apperr.Validation("invalid or expired reset token")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return apperr.Internal(err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`,
		string(hashed), userID); err != nil {
		return apperr.Internal(err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE password_reset_tokens SET used_at = NOW() WHERE token = $1`,
		req.Token); err != nil {
		return apperr.Internal(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return apperr.Internal(err)
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "password has been reset"})
}
