package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var Conn *pgxpool.Pool

// Init connects to Postgres and applies pending migrations.
func Init(ctx context.Context, dsn string) error {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("db.Init: connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("db.Init: ping: %w", err)
	}

	Conn = pool

	if err := Migrate(ctx, pool); err != nil {
		return fmt.Errorf("db.Init: %w", err)
	}
	return nil
}

func Close() {
	if Conn != nil {
		Conn.Close()
	}
}
