package marketplace

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/coder-ph/m-fua-services/internal/apperr"
	"github.com/coder-ph/m-fua-services/internal/db"
	"github.com/coder-ph/m-fua-services/internal/middleware"
	"github.com/coder-ph/m-fua-services/internal/notify"
)

type SendMessageRequest struct {
	Body string `json:"message" validate:"required,max=2000"`
}

// SendMessage posts into a service thread. Only the client, the assigned
// provider and admins may write.
func SendMessage(c echo.Context) error {
	serviceID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	req := new(SendMessageRequest)
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

	senderID := middleware.UserID(c)
	if !isParticipant(svc, senderID, middleware.Role(c)) {
		return apperr.Authorization("not a participant in this service")
	}

	var msg Message
	err = db.Conn.QueryRow(ctx, `
		INSERT INTO service_messages (service_id, sender_id, body)
		VALUES ($1, $2, $3)
		RETURNING id, service_id, sender_id, body, is_read, created_at
	`, serviceID, senderID, req.Body).Scan(&msg.ID, &msg.ServiceID, &msg.SenderID,
		&msg.Body, &msg.IsRead, &msg.CreatedAt)
	if err != nil {
		return apperr.Internal(err)
	}

	// Tell the other party, never the sender.
	var recipient int64
	if svc.ClientID != senderID {
		recipient = svc.ClientID
	} else if svc.ProviderID != nil && *svc.ProviderID != senderID {
		recipient = *svc.ProviderID
	}
	if recipient != 0 {
		if err := notify.EnqueueNewMessage(recipient, serviceID, msg.ID); err != nil {
			zap.L().Error("enqueue message notification failed",
				zap.Int64("message_id", msg.ID), zap.Error(err))
		}
	}

	return c.JSON(http.StatusCreated, msg)
}

// GetMessages returns the whole thread, oldest first.
func GetMessages(c echo.Context) error {
	serviceID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	svc, err := getService(ctx, serviceID)
	if err != nil {
		return err
	}
	if !isParticipant(svc, middleware.UserID(c), middleware.Role(c)) {
		return apperr.Authorization("not allowed to view these messages")
	}

	messages, err := listMessages(ctx, serviceID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"messages": messages})
}

func listMessages(ctx context.Context, serviceID int64) ([]Message, error) {
	rows, err := db.Conn.Query(ctx, `
		SELECT id, service_id, sender_id, body, is_read, created_at
		FROM service_messages WHERE service_id = $1 ORDER BY created_at ASC
	`, serviceID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	defer rows.Close()

	messages := make([]Message, 0)
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ServiceID, &m.SenderID, &m.Body, &m.IsRead, &m.CreatedAt); err != nil {
			return nil, apperr.Internal(err)
		}
		messages = append(messages, m)
	}
	if rows.Err() != nil {
		return nil, apperr.Internal(rows.Err())
	}
	return messages, nil
}
