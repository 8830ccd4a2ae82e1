package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgFlagRepository struct {
	pool *pgxpool.Pool
}

// NewPgFlagRepository returns a FlagRepository backed by the feature_flags table.
func NewPgFlagRepository(pool *pgxpool.Pool) FlagRepository {
	return &pgFlagRepository{pool: pool}
}

func (r *pgFlagRepository) IsEnabled(ctx context.Context, key string) (bool, error) {
	var enabled bool
	err := r.pool.QueryRow(ctx,
		`SELECT enabled FROM feature_flags WHERE key = $1`, key).Scan(&enabled)
	if errors.Is(err, pgx.ErrNoRows) {
		// Absent flag reads as disabled.
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read feature flag %q: %w", key, err)
	}
	return enabled, nil
}
