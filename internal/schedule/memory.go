package schedule

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skyhop/skyhop_core/internal/models"
	"github.com/skyhop/skyhop_core/internal/search"
)

// MemoryStore holds the full schedule in memory for fast temporal
// queries. Legs are indexed per origin, sorted by departure; the data
// is read-only between loads, so concurrent searches share it without
// contention beyond the reload lock.
type MemoryStore struct {
	mu       sync.RWMutex
	byOrigin map[string][]models.Leg
	airports map[string]models.Airport
	loaded   bool
}

// NewMemoryStore creates an empty in-memory schedule index
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byOrigin: make(map[string][]models.Leg),
		airports: make(map[string]models.Airport),
	}
}

// LoadFromDB bulk-loads airports and active legs, then swaps the new
// index in atomically
func (m *MemoryStore) LoadFromDB(ctx context.Context, db *pgxpool.Pool) error {
	startTime := time.Now()
	log.Println("Loading schedule into memory...")

	airports, err := LoadAirports(ctx, db)
	if err != nil {
		return err
	}
	log.Printf("  Loaded %d airports", len(airports))

	rows, err := db.Query(ctx, `
		SELECT id, carrier_code, flight_number, origin_code, destination_code,
		       departure_utc, arrival_utc, duration_minutes
		FROM leg
		WHERE is_active
		ORDER BY origin_code, departure_utc, id
	`)
	if err != nil {
		return fmt.Errorf("failed to load legs: %w", err)
	}
	defer rows.Close()

	byOrigin := make(map[string][]models.Leg)
	legCount := 0
	for rows.Next() {
		var leg models.Leg
		if err := rows.Scan(&leg.ID, &leg.Carrier, &leg.FlightNumber, &leg.Origin,
			&leg.Destination, &leg.DepartureUTC, &leg.ArrivalUTC, &leg.DurationMinutes); err != nil {
			log.Printf("Warning: failed to scan leg: %v", err)
			continue
		}
		byOrigin[leg.Origin] = append(byOrigin[leg.Origin], leg)
		legCount++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read legs: %w", err)
	}

	m.mu.Lock()
	m.byOrigin = byOrigin
	m.airports = airports
	m.loaded = true
	m.mu.Unlock()

	log.Printf("Schedule loaded in %v (%d airports, %d legs)", time.Since(startTime), len(airports), legCount)
	return nil
}

// AddLegs indexes legs directly, keeping per-origin departure order.
// Used by tests and fixture loading.
func (m *MemoryStore) AddLegs(legs ...models.Leg) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, leg := range legs {
		m.byOrigin[leg.Origin] = append(m.byOrigin[leg.Origin], leg)
	}
	for origin := range m.byOrigin {
		ls := m.byOrigin[origin]
		sort.Slice(ls, func(i, j int) bool {
			if !ls[i].DepartureUTC.Equal(ls[j].DepartureUTC) {
				return ls[i].DepartureUTC.Before(ls[j].DepartureUTC)
			}
			return ls[i].ID < ls[j].ID
		})
	}
	m.loaded = true
}

// SetAirports replaces the airport reference data
func (m *MemoryStore) SetAirports(airports map[string]models.Airport) {
	m.mu.Lock()
	m.airports = airports
	m.mu.Unlock()
}

// Airports returns the loaded airport reference data
func (m *MemoryStore) Airports() map[string]models.Airport {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.airports
}

// IsLoaded reports whether a schedule has been loaded
func (m *MemoryStore) IsLoaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loaded
}

// LegsFrom returns legs departing airport within [window.Start,
// window.End), departure ascending, capped at fanout with earliest
// departures preferred. Never returns duplicate schedule ids.
func (m *MemoryStore) LegsFrom(ctx context.Context, airport string, window models.TimeWindow, fanout int) ([]models.Leg, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.loaded {
		return nil, fmt.Errorf("%w: schedule index not loaded", search.ErrSourceUnavailable)
	}

	ls := m.byOrigin[airport]
	// first leg departing at or after window start
	lo := sort.Search(len(ls), func(i int) bool {
		return !ls[i].DepartureUTC.Before(window.Start)
	})

	var out []models.Leg
	for i := lo; i < len(ls) && ls[i].DepartureUTC.Before(window.End); i++ {
		out = append(out, ls[i])
		if fanout > 0 && len(out) >= fanout {
			break
		}
	}
	return out, nil
}
