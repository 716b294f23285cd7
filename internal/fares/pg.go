package fares

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skyhop/skyhop_core/internal/search"
)

// PGSource answers live fare lookups from the fare table, which the
// fare provider pipeline keeps current. A missing row is an absent
// fare, not an error; the resolver degrades to an unpriced itinerary.
type PGSource struct {
	db *pgxpool.Pool
}

// NewPGSource creates a Postgres-backed fare source
func NewPGSource(db *pgxpool.Pool) *PGSource {
	return &PGSource{db: db}
}

// Lookup fetches the latest observation for a fare key
func (s *PGSource) Lookup(ctx context.Context, fareKey string) (*search.FareSnapshot, error) {
	var snap search.FareSnapshot
	err := s.db.QueryRow(ctx, `
		SELECT amount, currency, as_of
		FROM fare
		WHERE fare_key = $1
		ORDER BY as_of DESC
		LIMIT 1
	`, fareKey).Scan(&snap.Price.Amount, &snap.Price.Currency, &snap.AsOf)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}
