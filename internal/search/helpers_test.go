package search

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/skyhop/skyhop_core/internal/models"
)

// testAirports is the reference data shared by the engine tests
func testAirports() map[string]models.Airport {
	return map[string]models.Airport{
		"JFK": {Code: "JFK", CountryCode: "US", Timezone: "America/New_York"},
		"BOS": {Code: "BOS", CountryCode: "US", Timezone: "America/New_York"},
		"ORD": {Code: "ORD", CountryCode: "US", Timezone: "America/Chicago"},
		"LHR": {Code: "LHR", CountryCode: "GB", Timezone: "Europe/London"},
		"CDG": {Code: "CDG", CountryCode: "FR", Timezone: "Europe/Paris"},
		"FRA": {Code: "FRA", CountryCode: "DE", Timezone: "Europe/Berlin", MCTTier: models.MCTTierInternational},
	}
}

// testDay is the service date used throughout the engine tests
var testDay = time.Date(2025, 10, 10, 0, 0, 0, 0, time.UTC)

// at builds an instant on the test day from "15:04"; "+15:04" lands on
// the following day
func at(clock string) time.Time {
	day := testDay
	if clock[0] == '+' {
		day = day.Add(24 * time.Hour)
		clock = clock[1:]
	}
	t, err := time.Parse("15:04", clock)
	if err != nil {
		panic(err)
	}
	return day.Add(time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute)
}

// mkLeg builds a test leg; id doubles as carrier+flight number when it
// looks like one
func mkLeg(id, carrier, number, origin, dest, dep, arr string) models.Leg {
	d, a := at(dep), at(arr)
	return models.Leg{
		ID:              id,
		Carrier:         carrier,
		FlightNumber:    number,
		Origin:          origin,
		Destination:     dest,
		DepartureUTC:    d,
		ArrivalUTC:      a,
		DurationMinutes: int(a.Sub(d) / time.Minute),
	}
}

// fakeStore is an in-memory ScheduleStore honouring the ordering,
// windowing and fanout contract
type fakeStore struct {
	legs []models.Leg
	// blockOn makes LegsFrom for these airports wait for ctx expiry,
	// simulating a slow store under a request deadline
	blockOn map[string]bool
	// failOn makes LegsFrom for these airports fail outright
	failOn map[string]error

	mu    sync.Mutex
	calls int
}

func (f *fakeStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeStore) LegsFrom(ctx context.Context, airport string, window models.TimeWindow, fanout int) ([]models.Leg, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.blockOn[airport] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err := f.failOn[airport]; err != nil {
		return nil, err
	}

	var out []models.Leg
	for _, leg := range f.legs {
		if leg.Origin == airport && window.Contains(leg.DepartureUTC) {
			out = append(out, leg)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DepartureUTC.Equal(out[j].DepartureUTC) {
			return out[i].DepartureUTC.Before(out[j].DepartureUTC)
		}
		return out[i].ID < out[j].ID
	})
	if fanout > 0 && len(out) > fanout {
		out = out[:fanout]
	}
	return out, nil
}
