package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/coder-ph/m-fua-services/internal/config"
	"github.com/coder-ph/m-fua-services/internal/db"
	"github.com/coder-ph/m-fua-services/internal/logger"
)

// Development seeder. Populates a fresh database with an admin account,
// fake clients and providers, a category tree and services in every
// lifecycle state.
func main() {
	clients := flag.Int("clients", 10, "number of client accounts")
	providers := flag.Int("providers", 5, "number of provider accounts")
	services := flag.Int("services", 30, "number of service requests")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logger.New(cfg.Environment)
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := db.Init(ctx, cfg.DatabaseURL); err != nil {
		log.Fatal("database init failed", zap.Error(err))
	}
	defer db.Close()

	gofakeit.Seed(0)

	s := seeder{ctx: ctx, log: log}
	s.users(*clients, *providers)
	s.categories()
	s.services(*services)

	log.Info("seed complete",
		zap.Int("clients", len(s.clientIDs)),
		zap.Int("providers", len(s.providerIDs)),
		zap.Int("categories", len(s.categoryIDs)),
		zap.Int("services", len(s.serviceIDs)))
}

type seeder struct {
	ctx context.Context
	log *zap.Logger

	clientIDs   []int64
	providerIDs []int64
	categoryIDs []int64
	serviceIDs  []int64
}

const seedPassword = "password123"

func (s *seeder) user(email, role string) int64 {
	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	if err != nil {
		s.log.Fatal("hash failed", zap.Error(err))
	}

	var id int64
	err = db.Conn.QueryRow(s.ctx, `
		INSERT INTO users (email, password_hash, first_name, last_name, phone, role)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (email) DO UPDATE SET updated_at = NOW()
		RETURNING id
	`, email, string(hash), gofakeit.FirstName(), gofakeit.LastName(),
		gofakeit.Phone(), role).Scan(&id)
	if err != nil {
		s.log.Fatal("user insert failed", zap.String("email", email), zap.Error(err))
	}

	_, err = db.Conn.Exec(s.ctx, `
		INSERT INTO user_profiles (user_id, bio, city, country)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO NOTHING
	`, id, gofakeit.Blurb(), gofakeit.City(), gofakeit.Country())
	if err != nil {
		s.log.Fatal("profile insert failed", zap.Error(err))
	}

	_, err = db.Conn.Exec(s.ctx, `
		INSERT INTO notification_preferences (user_id)
		VALUES ($1) ON CONFLICT (user_id) DO NOTHING
	`, id)
	if err != nil {
		s.log.Fatal("preferences insert failed", zap.Error(err))
	}
	return id
}

func (s *seeder) users(clients, providers int) {
	s.user("admin@m-fua.local", "admin")
	for i := 0; i < clients; i++ {
		email := fmt.Sprintf("client%d@m-fua.local", i+1)
		s.clientIDs = append(s.clientIDs, s.user(email, "client"))
	}
	for i := 0; i < providers; i++ {
		email := fmt.Sprintf("provider%d@m-fua.local", i+1)
		s.providerIDs = append(s.providerIDs, s.user(email, "provider"))
	}
}

func (s *seeder) categories() {
	roots := map[string][]string{
		"Home Services":    {"Plumbing", "Electrical", "Cleaning"},
		"Moving & Hauling": {"Local Moving", "Junk Removal"},
		"Tutoring":         {"Math", "Languages"},
	}
	for name, children := range roots {
		var parentID int64
		err := db.Conn.QueryRow(s.ctx, `
			INSERT INTO service_categories (name, description)
			VALUES ($1, $2)
			ON CONFLICT (name) DO UPDATE SET updated_at = NOW()
			RETURNING id
		`, name, gofakeit.Blurb()).Scan(&parentID)
		if err != nil {
			s.log.Fatal("category insert failed", zap.String("name", name), zap.Error(err))
		}
		s.categoryIDs = append(s.categoryIDs, parentID)

		for _, child := range children {
			var id int64
			err := db.Conn.QueryRow(s.ctx, `
				INSERT INTO service_categories (name, description, parent_id)
				VALUES ($1, $2, $3)
				ON CONFLICT (name) DO UPDATE SET updated_at = NOW()
				RETURNING id
			`, child, gofakeit.Blurb(), parentID).Scan(&id)
			if err != nil {
				s.log.Fatal("category insert failed", zap.String("name", child), zap.Error(err))
			}
			s.categoryIDs = append(s.categoryIDs, id)
		}
	}
}

var seedStatuses = []string{
	"pending", "pending", "pending", "assigned", "in_progress",
	"completed", "completed", "cancelled", "rejected", "expired",
}

func (s *seeder) services(n int) {
	for i := 0; i < n; i++ {
		status := seedStatuses[rand.Intn(len(seedStatuses))]
		clientID := s.clientIDs[rand.Intn(len(s.clientIDs))]
		categoryID := s.categoryIDs[rand.Intn(len(s.categoryIDs))]

		var providerID *int64
		if status != "pending" && status != "expired" {
			p := s.providerIDs[rand.Intn(len(s.providerIDs))]
			providerID = &p
		}

		var assignedAt, startedAt, completedAt *time.Time
		now := time.Now()
		if providerID != nil {
			t := now.Add(-72 * time.Hour)
			assignedAt = &t
		}
		if status == "in_progress" || status == "completed" {
			t := now.Add(-48 * time.Hour)
			startedAt = &t
		}
		if status == "completed" {
			t := now.Add(-24 * time.Hour)
			completedAt = &t
		}

		deadline := gofakeit.DateRange(now.Add(24*time.Hour), now.Add(30*24*time.Hour))
		if status == "expired" {
			deadline = gofakeit.DateRange(now.Add(-30*24*time.Hour), now.Add(-time.Hour))
		}

		var id int64
		err := db.Conn.QueryRow(s.ctx, `
			INSERT INTO services (title, description, status, budget, deadline, location,
				client_id, provider_id, category_id, assigned_at, started_at, completed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING id
		`, gofakeit.BuzzWord()+" "+gofakeit.NounAbstract(), gofakeit.Paragraph(1, 3, 12, " "),
			status, float64(gofakeit.Number(20, 500)), deadline, gofakeit.City(),
			clientID, providerID, categoryID, assignedAt, startedAt, completedAt).Scan(&id)
		if err != nil {
			s.log.Fatal("service insert failed", zap.Error(err))
		}
		s.serviceIDs = append(s.serviceIDs, id)

		if status == "pending" {
			s.offers(id)
		}
		if status == "completed" && providerID != nil {
			s.rating(id, clientID, *providerID)
		}
	}
}

func (s *seeder) offers(serviceID int64) {
	for i := 0; i < rand.Intn(3); i++ {
		providerID := s.providerIDs[rand.Intn(len(s.providerIDs))]
		_, err := db.Conn.Exec(s.ctx, `
			INSERT INTO service_offers (service_id, provider_id, amount, message)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT DO NOTHING
		`, serviceID, providerID, float64(gofakeit.Number(20, 400)), gofakeit.Blurb())
		if err != nil {
			s.log.Fatal("offer insert failed", zap.Error(err))
		}
	}
}

func (s *seeder) rating(serviceID, clientID, providerID int64) {
	_, err := db.Conn.Exec(s.ctx, `
		INSERT INTO ratings (reviewer_id, provider_id, service_id, rating, comment)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT DO NOTHING
	`, clientID, providerID, serviceID, gofakeit.Number(1, 5), gofakeit.Blurb())
	if err != nil {
		s.log.Fatal("rating insert failed", zap.Error(err))
	}
}
