package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/coder-ph/m-fua-services/internal/apperr"
	"github.com/coder-ph/m-fua-services/internal/db"
	"github.com/coder-ph/m-fua-services/internal/middleware"
	"github.com/coder-ph/m-fua-services/internal/notify"
	"github.com/coder-ph/m-fua-services/internal/token"
	"github.com/coder-ph/m-fua-services/internal/user"
)

type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"required,max=50"`
	LastName  string `json:"last_name" validate:"required,max=50"`
	Phone     string `json:"phone" validate:"required,max=20"`
	Role      string `json:"role" validate:"required,oneof=client provider"`
}

type TokenPair struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	User         *user.User `json:"user"`
}

// Register creates an account. Admin accounts are never created through this
// endpoint; roles are immutable after creation.
func Register(c echo.Context) error {
	req := new(RegisterRequest)
	if err := c.Bind(req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return apperr.Internal(err)
	}

	ctx := c.Request().Context()
	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return apperr.Internal(err)
	}
	defer tx.Rollback(ctx)

	var userID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, first_name, last_name, phone, role)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, strings.ToLower(req.Email), string(hashed), req.FirstName, req.LastName, req.Phone, req.Role).Scan(&userID)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("email or phone already registered")
		}
		return apperr.Internal(err)
	}

	_, err = tx.Exec(ctx, `INSERT INTO user_profiles (user_id) VALUES ($1)`, userID)
	if err != nil {
		return apperr.Internal(err)
	}

	_, err = tx.Exec(ctx, `INSERT INTO notification_preferences (user_id) VALUES ($1)`, userID)
	if err != nil {
		return apperr.Internal(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return apperr.Internal(err)
	}

	if err := notify.EnqueueWelcomeEmail(userID, req.Email, req.FirstName); err != nil {
		zap.L().Error("enqueue welcome email failed", zap.Int64("user_id", userID), zap.Error(err))
	}

	pair, err := issuePair(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, pair)
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func Login(c echo.Context) error {
	req := new(LoginRequest)
	if err := c.Bind(req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	u, err := user.GetByEmail(c.Request().Context(), strings.ToLower(req.Email))
	if err != nil {
		return apperr.Authentication("invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return apperr.Authentication("invalid email or password")
	}

	if !u.IsActive {
		return apperr.Authorization("account is suspended")
	}

	pair, err := pairFor(u)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pair)
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

func Refresh(c echo.Context) error {
	req := new(RefreshRequest)
	if err := c.Bind(req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	userID, _, err := token.Parse(req.RefreshToken, "refresh")
	if err != nil {
		return err
	}

	pair, err := issuePair(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pair)
}

func Me(c echo.Context) error {
	u, err := user.GetByID(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

func ChangePassword(c echo.Context) error {
	req := new(ChangePasswordRequest)
	if err := c.Bind(req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	u, err := user.GetByID(ctx, middleware.UserID(c))
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return apperr.Authentication("current password is incorrect")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return apperr.Internal(err)
	}

	_, err = db.Conn.Exec(ctx,
		`UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`,
		string(hashed), u.ID)
	if err != nil {
		return apperr.Internal(err)
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}

func issuePair(ctx context.Context, userID int64) (*TokenPair, error) {
	u, err := user.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, apperr.Authorization("account is suspended")
	}
	return pairFor(u)
}

func pairFor(u *user.User) (*TokenPair, error) {
	access, err := token.IssueAccessToken(u.ID, u.Role)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	refresh, err := token.IssueRefreshToken(u.ID, u.Role)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, User: u}, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
