package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/coder-ph/m-fua-services/internal/db"
)

type pushMessage struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// pushToSubscriptions posts the notification to each of the recipient's
// active push endpoints. Delivery is best effort; endpoints that report
// themselves gone are deactivated so they are not retried forever.
func pushToSubscriptions(ctx context.Context, userID int64, title, message string) {
	rows, err := db.Conn.Query(ctx,
		`SELECT id, endpoint FROM push_subscriptions WHERE user_id = $1 AND is_active`, userID)
	if err != nil {
		zap.L().Error("push subscription load failed", zap.Int64("user_id", userID), zap.Error(err))
		return
	}
	defer rows.Close()

	type sub struct {
		id       int64
		endpoint string
	}
	var subs []sub
	for rows.Next() {
		var s sub
		if err := rows.Scan(&s.id, &s.endpoint); err != nil {
			zap.L().Error("push subscription scan failed", zap.Error(err))
			return
		}
		subs = append(subs, s)
	}
	if rows.Err() != nil {
		zap.L().Error("push subscription load failed", zap.Error(rows.Err()))
		return
	}

	body, _ := json.Marshal(pushMessage{Title: title, Message: message})
	for _, s := range subs {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
		if err != nil {
			continue
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("TTL", "86400")

		resp, err := mailHTTP.Do(req)
		if err != nil {
			zap.L().Warn("push delivery failed", zap.Int64("subscription", s.id), zap.Error(err))
			continue
		}
		resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
			if _, err := db.Conn.Exec(ctx,
				`UPDATE push_subscriptions SET is_active = FALSE WHERE id = $1`, s.id); err != nil {
				zap.L().Error("push subscription deactivate failed", zap.Int64("subscription", s.id), zap.Error(err))
			}
		}
	}
}
