package admin

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/coder-ph/m-fua-services/internal/apperr"
	"github.com/coder-ph/m-fua-services/internal/db"
	"github.com/coder-ph/m-fua-services/internal/middleware"
	"github.com/coder-ph/m-fua-services/internal/pagination"
	"github.com/coder-ph/m-fua-services/internal/user"
)

// ListUsers returns all accounts, filterable by role and active state.
func ListUsers(c echo.Context) error {
	ctx := c.Request().Context()
	page := pagination.FromRequest(c, 20)

	where := `WHERE TRUE`
	args := []interface{}{}

	if role := c.QueryParam("role"); role != "" {
		args = append(args, role)
		where += ` AND role = $` + strconv.Itoa(len(args))
	}
	if active := c.QueryParam("is_active"); active != "" {
		val, err := strconv.ParseBool(active)
		if err != nil {
			return apperr.Validation("invalid is_active filter")
		}
		args = append(args, val)
		where += ` AND is_active = $` + strconv.Itoa(len(args))
	}

	var total int
	if err := db.Conn.QueryRow(ctx, `SELECT COUNT(*) FROM users `+where, args...).Scan(&total); err != nil {
		return apperr.Internal(err)
	}

	args = append(args, page.Limit(), page.Offset())
	query := `SELECT id, email, first_name, last_name, phone, role, is_active, created_at, updated_at
		FROM users ` + where +
		` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := db.Conn.Query(ctx, query, args...)
	if err != nil {
		return apperr.Internal(err)
	}
	defer rows.Close()

	users := make([]*user.User, 0)
	for rows.Next() {
		u := new(user.User)
		if err := rows.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Phone,
			&u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return apperr.Internal(err)
		}
		users = append(users, u)
	}
	if rows.Err() != nil {
		return apperr.Internal(rows.Err())
	}
	return c.JSON(http.StatusOK, page.Envelope(users, total))
}

// SuspendUser deactivates an account. Suspended users fail login with a
// suspension message. Admins cannot suspend themselves.
func SuspendUser(c echo.Context) error {
	return setActive(c, false)
}

// ActivateUser reinstates a suspended account.
func ActivateUser(c echo.Context) error {
	return setActive(c, true)
}

func setActive(c echo.Context, active bool) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return apperr.Validation("invalid id")
	}
	if !active && id == middleware.UserID(c) {
		return apperr.Validation("cannot suspend your own account")
	}

	res, err := db.Conn.Exec(c.Request().Context(),
		`UPDATE users SET is_active = $1, updated_at = NOW() WHERE id = $2`, active, id)
	if err != nil {
		return apperr.Internal(err)
	}
	if res.RowsAffected() == 0 {
		return apperr.NotFound("user")
	}

	message := "user suspended"
	if active {
		message = "user activated"
	}
	return c.JSON(http.StatusOK, echo.Map{"message": message})
}
