package marketplace

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/coder-ph/m-fua-services/internal/apperr"
	"github.com/coder-ph/m-fua-services/internal/db"
	"github.com/coder-ph/m-fua-services/internal/lifecycle"
	"github.com/coder-ph/m-fua-services/internal/middleware"
	"github.com/coder-ph/m-fua-services/internal/notify"
)

// ApplyTransition runs one lifecycle transition under a single transaction.
// The status re-check in the UPDATE's WHERE clause acts as a compare-and-swap:
// if a concurrent transition committed first, zero rows match and this
// attempt fails its guard against the new state. Notifications are enqueued
// only after commit and never fail the request.
//
// acceptedOfferID, when non-zero, marks that offer accepted and every other
// open offer rejected in the same transaction (the offer-accept path).
func ApplyTransition(ctx context.Context, serviceID int64, req lifecycle.Request, notes string, acceptedOfferID int64) (*Service, error) {
	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	defer tx.Rollback(ctx)

	v, err := view(ctx, tx, serviceID)
	if err != nil {
		return nil, err
	}

	eff, err := lifecycle.Transition(v, req, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	providerVal := v.ProviderID
	if eff.SetProvider != nil {
		providerVal = eff.SetProvider
	}
	if eff.ClearProvider {
		providerVal = nil
	}

	tag, err := tx.Exec(ctx, `
		UPDATE services SET
			status = $1,
			provider_id = $2,
			updated_at = $3,
			assigned_at = CASE WHEN $4 THEN $3 ELSE assigned_at END,
			started_at = CASE WHEN $5 THEN $3 ELSE started_at END,
			completed_at = CASE WHEN $6 THEN $3 ELSE completed_at END
		WHERE id = $7 AND status = $8
	`, eff.To, providerVal, eff.Now, eff.SetAssignedAt, eff.SetStartedAt, eff.SetCompletedAt,
		serviceID, eff.From)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if tag.RowsAffected() == 0 {
		// Lost the race: someone else moved the service first.
		return nil, apperr.InvalidTransition(string(eff.From), string(req.Action))
	}

	msg := eff.SystemMessage
	if notes != "" {
		msg += ": " + notes
	}
	if msg != "" {
		if _, err := tx.Exec(ctx,
			`INSERT INTO service_messages (service_id, sender_id, body) VALUES ($1, NULL, $2)`,
			serviceID, msg); err != nil {
			return nil, apperr.Internal(err)
		}
	}

	// Leaving pending closes the bidding window.
	if eff.From == lifecycle.StatusPending {
		if acceptedOfferID != 0 {
			if _, err := tx.Exec(ctx,
				`UPDATE service_offers SET status = 'accepted', updated_at = NOW() WHERE id = $1`,
				acceptedOfferID); err != nil {
				return nil, apperr.Internal(err)
			}
		}
		if _, err := tx.Exec(ctx,
			`UPDATE service_offers SET status = 'rejected', updated_at = NOW()
			 WHERE service_id = $1 AND status = 'pending'`,
			serviceID); err != nil {
			return nil, apperr.Internal(err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperr.Internal(err)
	}

	for _, recipient := range eff.Recipients {
		if err := notify.EnqueueServiceEvent(recipient, eff.Event, serviceID, notes); err != nil {
			zap.L().Error("enqueue service notification failed",
				zap.Int64("service_id", serviceID),
				zap.Int64("user_id", recipient),
				zap.Error(err))
		}
	}

	return getService(ctx, serviceID)
}

func actor(c echo.Context) lifecycle.Actor {
	return lifecycle.Actor{ID: middleware.UserID(c), Role: lifecycle.Role(middleware.Role(c))}
}

type AssignRequest struct {
	Message string `json:"message" validate:"omitempty,max=1000"`
}

// AssignService lets a provider take a pending service.
func AssignService(c echo.Context) error {
	serviceID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	req := new(AssignRequest)
	if err := c.Bind(req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	svc, err := ApplyTransition(c.Request().Context(), serviceID,
		lifecycle.Request{Action: lifecycle.ActionAssign, Actor: actor(c)},
		req.Message, 0)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, svc)
}

type StatusUpdateRequest struct {
	Status string `json:"status" validate:"required"`
	Notes  string `json:"notes" validate:"omitempty,max=1000"`
}

// UpdateStatus is the generic transition endpoint. The requested status is
// mapped to its producing action and re-enters the guard table; re-entering
// the current status is a no-op success.
func UpdateStatus(c echo.Context) error {
	serviceID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	req := new(StatusUpdateRequest)
	if err := c.Bind(req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	target, err := lifecycle.ParseStatus(req.Status)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	current, err := getService(ctx, serviceID)
	if err != nil {
		return err
	}
	if !isParticipant(current, middleware.UserID(c), middleware.Role(c)) {
		return apperr.Authorization("not allowed to update this service")
	}
	if current.Status == target {
		return c.JSON(http.StatusOK, current)
	}

	action, err := lifecycle.ActionForStatus(target)
	if err != nil {
		return err
	}

	svc, err := ApplyTransition(ctx, serviceID,
		lifecycle.Request{Action: action, Actor: actor(c)}, req.Notes, 0)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, svc)
}

// ForceStatus is admin moderation: any terminal transition, bypassing
// ownership but still subject to the state-shape guards.
func ForceStatus(c echo.Context) error {
	serviceID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	req := new(StatusUpdateRequest)
	if err := c.Bind(req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	target, err := lifecycle.ParseStatus(req.Status)
	if err != nil {
		return err
	}
	if !target.Terminal() {
		return apperr.Validation("moderation can only force terminal statuses")
	}

	action, err := lifecycle.ActionForStatus(target)
	if err != nil {
		return err
	}

	svc, err := ApplyTransition(c.Request().Context(), serviceID,
		lifecycle.Request{Action: action, Actor: actor(c)}, req.Notes, 0)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, svc)
}

// ExpireDue moves pending services whose deadline has passed to expired.
// Called by the background sweeper; each service is its own transaction so
// one failure does not hold up the rest.
func ExpireDue(ctx context.Context) (int, error) {
	rows, err := db.Conn.Query(ctx,
		`SELECT id FROM services WHERE status = 'pending' AND deadline < NOW()`)
	if err != nil {
		return 0, apperr.Internal(err)
	}
	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, apperr.Internal(err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if rows.Err() != nil {
		return 0, apperr.Internal(rows.Err())
	}

	expired := 0
	for _, id := range ids {
		_, err := ApplyTransition(ctx, id,
			lifecycle.Request{Action: lifecycle.ActionExpire, Actor: lifecycle.Actor{Role: lifecycle.RoleSystem}},
			"", 0)
		if err != nil {
			// Raced with an assign or cancel; the service found another path.
			zap.L().Debug("expire skipped", zap.Int64("service_id", id), zap.Error(err))
			continue
		}
		expired++
	}
	return expired, nil
}
