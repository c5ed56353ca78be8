package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/coder-ph/m-fua-services/internal/config"
	"github.com/coder-ph/m-fua-services/internal/db"
)

var (
	client *asynq.Client
	server *asynq.Server
	appURL string
)

// Init connects the task client and starts the in-process worker.
func Init(cfg *config.Config) {
	mailCfg = mailConfig{APIKey: cfg.MailAPIKey, APIURL: cfg.MailAPIURL, From: cfg.MailFrom}
	appURL = strings.TrimRight(cfg.AppURL, "/")

	opts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	client = asynq.NewClient(opts)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskWelcomeEmail, handleWelcomeEmail)
	mux.HandleFunc(TaskPasswordReset, handlePasswordReset)
	mux.HandleFunc(TaskServiceEvent, handleServiceEvent)
	mux.HandleFunc(TaskOfferReceived, handleOfferReceived)
	mux.HandleFunc(TaskOfferAccepted, handleOfferAccepted)
	mux.HandleFunc(TaskNewMessage, handleNewMessage)
	mux.HandleFunc(TaskNewRating, handleNewRating)

	server = asynq.NewServer(opts, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			"emails":        10,
			"notifications": 5,
		},
	})
	go func() {
		if err := server.Run(mux); err != nil {
			zap.L().Error("task server stopped", zap.Error(err))
		}
	}()

	zap.L().Info("task queue initialized", zap.String("redis", cfg.RedisAddr))
}

// Close releases the client and stops the worker.
func Close() {
	if client != nil {
		_ = client.Close()
	}
	if server != nil {
		server.Shutdown()
	}
}

func handleWelcomeEmail(_ context.Context, t *asynq.Task) error {
	var p WelcomeEmailPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}
	body := fmt.Sprintf("Hi %s, thanks for joining M-Fua Services.\n\nOpen the app: %s", p.Name, appURL)
	if err := SendEmail(p.Email, "Welcome to M-Fua Services!", body); err != nil {
		zap.L().Error("welcome email failed", zap.Int64("user_id", p.UserID), zap.Error(err))
		return err
	}
	return nil
}

func handlePasswordReset(_ context.Context, t *asynq.Task) error {
	var p PasswordResetPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}
	resetURL := fmt.Sprintf("%s/reset-password?token=%s", appURL, p.Token)
	body := fmt.Sprintf("Hello %s,\n\nWe received a request to reset your password.\n\nTo proceed, open the link below:\n%s\n\nIf you did not request this, no action is required.", p.Name, resetURL)
	if err := SendEmail(p.Email, "Password reset instructions", body); err != nil {
		zap.L().Error("password reset email failed", zap.Int64("user_id", p.UserID), zap.Error(err))
		return err
	}
	return nil
}

func handleServiceEvent(ctx context.Context, t *asynq.Task) error {
	var p ServiceEventPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}
	message := titleFor(p.Event)
	if p.Notes != "" {
		message += ": " + p.Notes
	}
	return deliver(ctx, p.Recipient, p.Event, titleFor(p.Event), message, "service", p.ServiceID)
}

func handleOfferReceived(ctx context.Context, t *asynq.Task) error {
	var p OfferReceivedPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}
	msg := fmt.Sprintf("A provider offered %.2f on your service request.", p.Amount)
	return deliver(ctx, p.ClientID, TypeOfferReceived, "New offer received", msg, "offer", p.OfferID)
}

func handleOfferAccepted(ctx context.Context, t *asynq.Task) error {
	var p OfferAcceptedPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}
	return deliver(ctx, p.ProviderID, TypeOfferAccepted, "Your offer was accepted",
		"The client accepted your offer. The service is now assigned to you.", "offer", p.OfferID)
}

func handleNewMessage(ctx context.Context, t *asynq.Task) error {
	var p NewMessagePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}
	msg := fmt.Sprintf("You have a new message on service #%d.", p.ServiceID)
	return deliver(ctx, p.Recipient, TypeNewMessage, "New message", msg, "message", p.MessageID)
}

func handleNewRating(ctx context.Context, t *asynq.Task) error {
	var p NewRatingPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}
	msg := fmt.Sprintf("You received a %d-star rating.", p.Rating)
	return deliver(ctx, p.ProviderID, TypeNewRating, "New rating received", msg, "rating", p.RatingID)
}

// deliver records the notification row, then fans out to email and push
// according to the recipient's preferences. Channel failures are logged and
// do not fail the task; the row insert is the one step that must succeed.
func deliver(ctx context.Context, userID int64, notifType, title, message, entityType string, entityID int64) error {
	_, err := db.Conn.Exec(ctx, `
		INSERT INTO notifications (user_id, title, message, type, related_entity_type, related_entity_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, userID, title, message, notifType, entityType, entityID)
	if err != nil {
		return err
	}

	prefs, email, err := loadPreferences(ctx, userID)
	if err != nil {
		zap.L().Error("preference load failed", zap.Int64("user_id", userID), zap.Error(err))
		return nil
	}

	if prefs.AllowsEmail(notifType) {
		if err := SendEmail(email, title, message); err != nil {
			zap.L().Error("notification email failed",
				zap.Int64("user_id", userID), zap.String("type", notifType), zap.Error(err))
		}
	}
	if prefs.AllowsPush(notifType) {
		pushToSubscriptions(ctx, userID, title, message)
	}
	return nil
}

func loadPreferences(ctx context.Context, userID int64) (Preferences, string, error) {
	var p Preferences
	var email string
	err := db.Conn.QueryRow(ctx, `
		SELECT u.email, p.email_enabled, p.email_frequency, p.push_enabled,
		       p.service_updates, p.new_messages, p.rating_updates, p.promotions
		FROM users u
		JOIN notification_preferences p ON p.user_id = u.id
		WHERE u.id = $1
	`, userID).Scan(&email, &p.EmailEnabled, &p.EmailFrequency, &p.PushEnabled,
		&p.ServiceUpdates, &p.NewMessages, &p.RatingUpdates, &p.Promotions)
	return p, email, err
}
