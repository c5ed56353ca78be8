package admin

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/coder-ph/m-fua-services/internal/apperr"
	"github.com/coder-ph/m-fua-services/internal/db"
)

// Stats returns platform-wide counters for the admin dashboard.
func Stats(c echo.Context) error {
	ctx := c.Request().Context()

	out := echo.Map{}

	var users, clients, providers int
	err := db.Conn.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE role = 'client'),
		       COUNT(*) FILTER (WHERE role = 'provider')
		FROM users
	`).Scan(&users, &clients, &providers)
	if err != nil {
		return apperr.Internal(err)
	}
	out["users"] = echo.Map{"total": users, "clients": clients, "providers": providers}

	byStatus := echo.Map{}
	rows, err := db.Conn.Query(ctx,
		`SELECT status, COUNT(*) FROM services GROUP BY status`)
	if err != nil {
		return apperr.Internal(err)
	}
	defer rows.Close()

	total := 0
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return apperr.Internal(err)
		}
		byStatus[status] = count
		total += count
	}
	if rows.Err() != nil {
		return apperr.Internal(rows.Err())
	}
	out["services"] = echo.Map{"total": total, "by_status": byStatus}

	var offers, messages, ratings int
	var avgRating float64
	err = db.Conn.QueryRow(ctx, `
		SELECT (SELECT COUNT(*) FROM service_offers),
		       (SELECT COUNT(*) FROM service_messages),
		       (SELECT COUNT(*) FROM ratings),
		       (SELECT COALESCE(AVG(rating), 0) FROM ratings)
	`).Scan(&offers, &messages, &ratings, &avgRating)
	if err != nil {
		return apperr.Internal(err)
	}
	out["offers"] = offers
	out["messages"] = messages
	out["ratings"] = echo.Map{"total": ratings, "average": avgRating}

	return c.JSON(http.StatusOK, out)
}
