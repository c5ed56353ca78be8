package marketplace

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/coder-ph/m-fua-services/internal/apperr"
	"github.com/coder-ph/m-fua-services/internal/db"
	"github.com/coder-ph/m-fua-services/internal/lifecycle"
)

// Service is the central entity: a client's request for work.
type Service struct {
	ID          int64            `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Status      lifecycle.Status `json:"status"`
	Budget      float64          `json:"budget"`
	Deadline    time.Time        `json:"deadline"`
	Location    *string          `json:"location"`
	Coordinates *Coordinates     `json:"coordinates"`
	ClientID    int64            `json:"client_id"`
	ProviderID  *int64           `json:"provider_id"`
	CategoryID  int64            `json:"category_id"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	AssignedAt  *time.Time       `json:"assigned_at"`
	StartedAt   *time.Time       `json:"started_at"`
	CompletedAt *time.Time       `json:"completed_at"`
}

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ServiceDetail adds the owned collections for single-service responses.
type ServiceDetail struct {
	Service
	Images   []Image   `json:"images"`
	Offers   []Offer   `json:"offers"`
	Messages []Message `json:"messages"`
}

// Offer is a provider's bid on a pending service.
type Offer struct {
	ID         int64     `json:"id"`
	ServiceID  int64     `json:"service_id"`
	ProviderID int64     `json:"provider_id"`
	Amount     float64   `json:"amount"`
	Message    *string   `json:"message"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Message is a note in a service thread. SenderID is null for system
// messages recorded by lifecycle transitions.
type Message struct {
	ID        int64     `json:"id"`
	ServiceID int64     `json:"service_id"`
	SenderID  *int64    `json:"sender_id"`
	Body      string    `json:"body"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

type Image struct {
	ID           int64     `json:"id"`
	ServiceID    int64     `json:"service_id"`
	ImageURL     string    `json:"image_url"`
	ThumbnailURL *string   `json:"thumbnail_url"`
	IsPrimary    bool      `json:"is_primary"`
	CreatedAt    time.Time `json:"created_at"`
}

const serviceColumns = `id, title, description, status, budget, deadline, location,
	latitude, longitude, client_id, provider_id, category_id,
	created_at, updated_at, assigned_at, started_at, completed_at`

func scanService(row pgx.Row) (*Service, error) {
	var s Service
	var lat, lng *float64
	err := row.Scan(&s.ID, &s.Title, &s.Description, &s.Status, &s.Budget, &s.Deadline,
		&s.Location, &lat, &lng, &s.ClientID, &s.ProviderID, &s.CategoryID,
		&s.CreatedAt, &s.UpdatedAt, &s.AssignedAt, &s.StartedAt, &s.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("service")
		}
		return nil, apperr.Internal(err)
	}
	if lat != nil && lng != nil {
		s.Coordinates = &Coordinates{Latitude: *lat, Longitude: *lng}
	}
	return &s, nil
}

func getService(ctx context.Context, id int64) (*Service, error) {
	row := db.Conn.QueryRow(ctx, `SELECT `+serviceColumns+` FROM services WHERE id = $1`, id)
	return scanService(row)
}

// view loads the guard-table snapshot inside a transaction, locking the row
// for the duration of the transition.
func view(ctx context.Context, tx pgx.Tx, id int64) (lifecycle.View, error) {
	var v lifecycle.View
	err := tx.QueryRow(ctx,
		`SELECT id, status, client_id, provider_id FROM services WHERE id = $1 FOR UPDATE`,
		id).Scan(&v.ID, &v.Status, &v.ClientID, &v.ProviderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return v, apperr.NotFound("service")
		}
		return v, apperr.Internal(err)
	}
	return v, nil
}

// canView mirrors the list scoping rules for a single service: clients see
// their own, providers see their own assignments plus anything pending,
// admins see all.
func canView(s *Service, actorID int64, role string) bool {
	switch role {
	case "admin":
		return true
	case "client":
		return s.ClientID == actorID
	case "provider":
		if s.ProviderID != nil && *s.ProviderID == actorID {
			return true
		}
		return s.Status == lifecycle.StatusPending
	}
	return false
}

func isParticipant(s *Service, actorID int64, role string) bool {
	if role == "admin" {
		return true
	}
	if s.ClientID == actorID {
		return true
	}
	return s.ProviderID != nil && *s.ProviderID == actorID
}
