package notify

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/coder-ph/m-fua-services/internal/apperr"
	"github.com/coder-ph/m-fua-services/internal/db"
	"github.com/coder-ph/m-fua-services/internal/middleware"
	"github.com/coder-ph/m-fua-services/internal/pagination"
)

type Notification struct {
	ID                int64      `json:"id"`
	UserID            int64      `json:"user_id"`
	Title             string     `json:"title"`
	Message           string     `json:"message"`
	Type              string     `json:"type"`
	RelatedEntityType *string    `json:"related_entity_type"`
	RelatedEntityID   *int64     `json:"related_entity_id"`
	Read              bool       `json:"read"`
	ReadAt            *time.Time `json:"read_at"`
	CreatedAt         time.Time  `json:"created_at"`
}

const notificationColumns = `id, user_id, title, message, type, related_entity_type, related_entity_id, read, read_at, created_at`

func scanNotification(row pgx.Row) (*Notification, error) {
	n := new(Notification)
	err := row.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type,
		&n.RelatedEntityType, &n.RelatedEntityID, &n.Read, &n.ReadAt, &n.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("notification")
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return n, nil
}

func getNotification(ctx context.Context, id, userID int64) (*Notification, error) {
	return scanNotification(db.Conn.QueryRow(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE id = $1 AND user_id = $2`,
		id, userID))
}

func paramID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		return 0, apperr.Validation("invalid " + name)
	}
	return id, nil
}

// List returns the caller's notifications newest first, optionally filtered
// by read state and type.
func List(c echo.Context) error {
	ctx := c.Request().Context()
	userID := middleware.UserID(c)
	page := pagination.FromRequest(c, 20)

	where := `WHERE user_id = $1`
	args := []interface{}{userID}

	if read := c.QueryParam("read"); read != "" {
		val, err := strconv.ParseBool(read)
		if err != nil {
			return apperr.Validation("invalid read filter")
		}
		args = append(args, val)
		where += ` AND read = $` + strconv.Itoa(len(args))
	}
	if ntype := c.QueryParam("type"); ntype != "" {
		args = append(args, ntype)
		where += ` AND type = $` + strconv.Itoa(len(args))
	}

	var total int
	if err := db.Conn.QueryRow(ctx, `SELECT COUNT(*) FROM notifications `+where, args...).Scan(&total); err != nil {
		return apperr.Internal(err)
	}

	args = append(args, page.Limit(), page.Offset())
	query := `SELECT ` + notificationColumns + ` FROM notifications ` + where +
		` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := db.Conn.Query(ctx, query, args...)
	if err != nil {
		return apperr.Internal(err)
	}
	defer rows.Close()

	items := make([]*Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return err
		}
		items = append(items, n)
	}
	if rows.Err() != nil {
		return apperr.Internal(rows.Err())
	}
	return c.JSON(http.StatusOK, page.Envelope(items, total))
}

// UnreadCount returns how many notifications are still unread.
func UnreadCount(c echo.Context) error {
	var count int
	err := db.Conn.QueryRow(c.Request().Context(),
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read = FALSE`,
		middleware.UserID(c)).Scan(&count)
	if err != nil {
		return apperr.Internal(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"unread_count": count})
}

// Get returns one notification and marks it read as a side effect.
func Get(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	userID := middleware.UserID(c)

	n, err := getNotification(ctx, id, userID)
	if err != nil {
		return err
	}
	if !n.Read {
		_, err = db.Conn.Exec(ctx,
			`UPDATE notifications SET read = TRUE, read_at = NOW() WHERE id = $1`, id)
		if err != nil {
			return apperr.Internal(err)
		}
		n, err = getNotification(ctx, id, userID)
		if err != nil {
			return err
		}
	}
	return c.JSON(http.StatusOK, n)
}

type UpdateNotificationRequest struct {
	Read *bool `json:"read" validate:"required"`
}

// Update sets the read flag explicitly, in either direction.
func Update(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	req := new(UpdateNotificationRequest)
	if err := c.Bind(req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	userID := middleware.UserID(c)
	if _, err := getNotification(ctx, id, userID); err != nil {
		return err
	}

	var readAt *time.Time
	if *req.Read {
		now := time.Now()
		readAt = &now
	}
	_, err = db.Conn.Exec(ctx,
		`UPDATE notifications SET read = $1, read_at = $2 WHERE id = $3`,
		*req.Read, readAt, id)
	if err != nil {
		return apperr.Internal(err)
	}

	n, err := getNotification(ctx, id, userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, n)
}

// MarkAllRead clears the caller's unread backlog.
func MarkAllRead(c echo.Context) error {
	res, err := db.Conn.Exec(c.Request().Context(),
		`UPDATE notifications SET read = TRUE, read_at = NOW()
		 WHERE user_id = $1 AND read = FALSE`, middleware.UserID(c))
	if err != nil {
		return apperr.Internal(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"marked_read": res.RowsAffected()})
}

// GetPreferences returns the caller's notification preferences.
func GetPreferences(c echo.Context) error {
	p, err := preferencesRow(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

type UpdatePreferencesRequest struct {
	EmailEnabled   *bool   `json:"email_enabled"`
	EmailFrequency *string `json:"email_frequency" validate:"omitempty,oneof=immediate daily weekly"`
	PushEnabled    *bool   `json:"push_enabled"`
	ServiceUpdates *bool   `json:"service_updates"`
	NewMessages    *bool   `json:"new_messages"`
	RatingUpdates  *bool   `json:"rating_updates"`
	Promotions     *bool   `json:"promotions"`
}

// UpdatePreferences partially updates the caller's preferences.
func UpdatePreferences(c echo.Context) error {
	req := new(UpdatePreferencesRequest)
	if err := c.Bind(req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	userID := middleware.UserID(c)

	_, err := db.Conn.Exec(ctx, `
		UPDATE notification_preferences SET
			email_enabled   = COALESCE($1, email_enabled),
			email_frequency = COALESCE($2, email_frequency),
			push_enabled    = COALESCE($3, push_enabled),
			service_updates = COALESCE($4, service_updates),
			new_messages    = COALESCE($5, new_messages),
			rating_updates  = COALESCE($6, rating_updates),
			promotions      = COALESCE($7, promotions),
			updated_at      = NOW()
		WHERE user_id = $8
	`, req.EmailEnabled, req.EmailFrequency, req.PushEnabled, req.ServiceUpdates,
		req.NewMessages, req.RatingUpdates, req.Promotions, userID)
	if err != nil {
		return apperr.Internal(err)
	}

	p, err := preferencesRow(ctx, userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func preferencesRow(ctx context.Context, userID int64) (*Preferences, error) {
	p := new(Preferences)
	err := db.Conn.QueryRow(ctx, `
		SELECT id, user_id, email_enabled, email_frequency, push_enabled,
		       service_updates, new_messages, rating_updates, promotions
		FROM notification_preferences WHERE user_id = $1
	`, userID).Scan(&p.ID, &p.UserID, &p.EmailEnabled, &p.EmailFrequency, &p.PushEnabled,
		&p.ServiceUpdates, &p.NewMessages, &p.RatingUpdates, &p.Promotions)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("notification preferences")
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return p, nil
}

type PushSubscribeRequest struct {
	Endpoint  string  `json:"endpoint" validate:"required,url"`
	Auth      string  `json:"auth" validate:"required"`
	P256dh    string  `json:"p256dh" validate:"required"`
	UserAgent *string `json:"user_agent"`
}

// PushSubscribe registers a push endpoint. Re-subscribing an existing
// endpoint refreshes its keys and reactivates it.
func PushSubscribe(c echo.Context) error {
	req := new(PushSubscribeRequest)
	if err := c.Bind(req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	var id int64
	err := db.Conn.QueryRow(c.Request().Context(), `
		INSERT INTO push_subscriptions (user_id, endpoint, auth, p256dh, user_agent)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, endpoint) DO UPDATE
			SET auth = EXCLUDED.auth, p256dh = EXCLUDED.p256dh,
			    user_agent = EXCLUDED.user_agent, is_active = TRUE
		RETURNING id
	`, middleware.UserID(c), req.Endpoint, req.Auth, req.P256dh, req.UserAgent).Scan(&id)
	if err != nil {
		return apperr.Internal(err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id, "message": "subscribed"})
}

type PushUnsubscribeRequest struct {
	Endpoint string `json:"endpoint" validate:"required"`
}

// PushUnsubscribe deactivates a push endpoint.
func PushUnsubscribe(c echo.Context) error {
	req := new(PushUnsubscribeRequest)
	if err := c.Bind(req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	res, err := db.Conn.Exec(c.Request().Context(),
		`UPDATE push_subscriptions SET is_active = FALSE
		 WHERE user_id = $1 AND endpoint = $2`, middleware.UserID(c), req.Endpoint)
	if err != nil {
		return apperr.Internal(err)
	}
	if res.RowsAffected() == 0 {
		return apperr.NotFound("push subscription")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "unsubscribed"})
}
