package schedule

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skyhop/skyhop_core/internal/models"
	"github.com/skyhop/skyhop_core/internal/search"
)

// PGStore answers temporal graph queries straight from Postgres.
// Production serving prefers the in-memory index; this store backs the
// importer verification path and deployments too small to preload.
type PGStore struct {
	db *pgxpool.Pool
}

// NewPGStore creates a Postgres-backed schedule store
func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

// LegsFrom returns active legs departing airport within [window.Start,
// window.End), sorted by departure ascending and capped at fanout.
// Ordering is part of the contract: search correctness depends on it.
func (s *PGStore) LegsFrom(ctx context.Context, airport string, window models.TimeWindow, fanout int) ([]models.Leg, error) {
	query := `
		SELECT id, carrier_code, flight_number, origin_code, destination_code,
		       departure_utc, arrival_utc, duration_minutes
		FROM leg
		WHERE origin_code = $1
		  AND departure_utc >= $2
		  AND departure_utc < $3
		  AND is_active
		ORDER BY departure_utc, id
		LIMIT $4
	`

	rows, err := s.db.Query(ctx, query, airport, window.Start, window.End, fanout)
	if err != nil {
		return nil, fmt.Errorf("%w: leg query for %s: %v", search.ErrSourceUnavailable, airport, err)
	}
	defer rows.Close()

	seen := make(map[string]struct{}, fanout)
	var legs []models.Leg
	for rows.Next() {
		var leg models.Leg
		if err := rows.Scan(&leg.ID, &leg.Carrier, &leg.FlightNumber, &leg.Origin,
			&leg.Destination, &leg.DepartureUTC, &leg.ArrivalUTC, &leg.DurationMinutes); err != nil {
			return nil, fmt.Errorf("%w: leg scan: %v", search.ErrSourceUnavailable, err)
		}
		if _, dup := seen[leg.ID]; dup {
			continue
		}
		seen[leg.ID] = struct{}{}
		legs = append(legs, leg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: leg rows: %v", search.ErrSourceUnavailable, err)
	}

	return legs, nil
}

// LoadAirports reads the airport reference data for validator setup
func LoadAirports(ctx context.Context, db *pgxpool.Pool) (map[string]models.Airport, error) {
	rows, err := db.Query(ctx, `
		SELECT code, name, COALESCE(city, ''), COALESCE(country_code, ''),
		       COALESCE(timezone, ''), COALESCE(mct_minutes, 0),
		       COALESCE(mct_tier, '')
		FROM airport
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load airports: %w", err)
	}
	defer rows.Close()

	airports := make(map[string]models.Airport)
	for rows.Next() {
		var ap models.Airport
		if err := rows.Scan(&ap.Code, &ap.Name, &ap.City, &ap.CountryCode,
			&ap.Timezone, &ap.MCTMinutes, &ap.MCTTier); err != nil {
			return nil, fmt.Errorf("failed to scan airport: %w", err)
		}
		airports[ap.Code] = ap
	}
	return airports, rows.Err()
}
