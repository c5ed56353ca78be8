package marketplace

import (
	"context"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/coder-ph/m-fua-services/internal/apperr"
	"github.com/coder-ph/m-fua-services/internal/db"
	"github.com/coder-ph/m-fua-services/internal/lifecycle"
	"github.com/coder-ph/m-fua-services/internal/middleware"
	"github.com/coder-ph/m-fua-services/internal/notify"
)

type CreateOfferRequest struct {
	Amount  float64 `json:"amount" validate:"required,gt=0"`
	Message string  `json:"message" validate:"omitempty,max=1000"`
}

// CreateOffer lets a provider bid on a pending service.
func CreateOffer(c echo.Context) error {
	serviceID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	req := new(CreateOfferRequest)
	if err := c.Bind(req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	providerID := middleware.UserID(c)

	svc, err := getService(ctx, serviceID)
	if err != nil {
		return err
	}
	if svc.Status != lifecycle.StatusPending {
		return apperr.InvalidTransition(string(svc.Status), "offer on")
	}

	var existing int64
	err = db.Conn.QueryRow(ctx, `
		SELECT id FROM service_offers
		WHERE service_id = $1 AND provider_id = $2 AND status = 'pending'
	`, serviceID, providerID).Scan(&existing)
	if err == nil {
		return apperr.Conflict("you already have an open offer on this service")
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return apperr.Internal(err)
	}

	var message *string
	if req.Message != "" {
		message = &req.Message
	}

	var offerID int64
	err = db.Conn.QueryRow(ctx, `
		INSERT INTO service_offers (service_id, provider_id, amount, message)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, serviceID, providerID, req.Amount, message).Scan(&offerID)
	if err != nil {
		return apperr.Internal(err)
	}

	if err := notify.EnqueueOfferReceived(svc.ClientID, serviceID, offerID, req.Amount); err != nil {
		zap.L().Error("enqueue offer notification failed", zap.Int64("offer_id", offerID), zap.Error(err))
	}

	offer, err := getOffer(ctx, offerID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, offer)
}

// ListOffers shows a service's offers to its client, the admin, or a bidding
// provider (who only sees their own).
func ListOffers(c echo.Context) error {
	serviceID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	svc, err := getService(ctx, serviceID)
	if err != nil {
		return err
	}

	userID := middleware.UserID(c)
	role := middleware.Role(c)

	if role == "provider" {
		rows, err := db.Conn.Query(ctx, offerSelect+` WHERE service_id = $1 AND provider_id = $2 ORDER BY created_at`,
			serviceID, userID)
		if err != nil {
			return apperr.Internal(err)
		}
		offers, err := collectOffers(rows)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, echo.Map{"offers": offers})
	}

	if svc.ClientID != userID && role != "admin" {
		return apperr.Authorization("not allowed to view these offers")
	}

	offers, err := listOffers(ctx, serviceID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"offers": offers})
}

// AcceptOffer assigns the offer's provider through the lifecycle table,
// marks the offer accepted and rejects every other open offer, all in one
// transaction. Exactly one offer can ever reach accepted per service.
func AcceptOffer(c echo.Context) error {
	serviceID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	offerID, err := paramID(c, "offerID")
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	offer, err := getOffer(ctx, offerID)
	if err != nil {
		return err
	}
	if offer.ServiceID != serviceID {
		return apperr.NotFound("offer")
	}
	if offer.Status != "pending" {
		return apperr.Conflict("offer is no longer open")
	}

	svc, err := ApplyTransition(ctx, serviceID, lifecycle.Request{
		Action:   lifecycle.ActionAssign,
		Actor:    actor(c),
		Provider: offer.ProviderID,
	}, "", offerID)
	if err != nil {
		return err
	}

	if err := notify.EnqueueOfferAccepted(offer.ProviderID, serviceID, offerID); err != nil {
		zap.L().Error("enqueue offer accepted failed", zap.Int64("offer_id", offerID), zap.Error(err))
	}

	return c.JSON(http.StatusOK, svc)
}

const offerSelect = `SELECT id, service_id, provider_id, amount, message, status, created_at, updated_at FROM service_offers`

func scanOffer(row pgx.Row) (*Offer, error) {
	var o Offer
	err := row.Scan(&o.ID, &o.ServiceID, &o.ProviderID, &o.Amount, &o.Message,
		&o.Status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("offer")
		}
		return nil, apperr.Internal(err)
	}
	return &o, nil
}

func getOffer(ctx context.Context, id int64) (*Offer, error) {
	return scanOffer(db.Conn.QueryRow(ctx, offerSelect+` WHERE id = $1`, id))
}

func collectOffers(rows pgx.Rows) ([]Offer, error) {
	defer rows.Close()
	offers := make([]Offer, 0)
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		offers = append(offers, *o)
	}
	if rows.Err() != nil {
		return nil, apperr.Internal(rows.Err())
	}
	return offers, nil
}

func listOffers(ctx context.Context, serviceID int64) ([]Offer, error) {
	rows, err := db.Conn.Query(ctx, offerSelect+` WHERE service_id = $1 ORDER BY created_at`, serviceID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return collectOffers(rows)
}
