package models

import "time"

// MCTTierInternational marks an airport whose connections use the
// international minimum connection time default instead of the
// domestic one. Any other tier value means domestic.
const MCTTierInternational = "international"

// Airport is immutable reference data loaded at startup.
// MCTMinutes is a per-airport minimum connection time override;
// zero means "no override, use the default for MCTTier".
type Airport struct {
	Code        string // IATA code, identity
	Name        string
	City        string
	CountryCode string
	Timezone    string // e.g. "America/New_York", display only
	MCTMinutes  int
	MCTTier     string
	CreatedAt   time.Time
}

// Carrier represents an airline
type Carrier struct {
	Code      string // IATA code
	Name      string
	CreatedAt time.Time
}

// Leg is a single scheduled non-stop flight departure.
// Identity is the opaque schedule ID. All instants are UTC;
// legs are never mutated by the search engine.
type Leg struct {
	ID              string    `json:"-"`
	Carrier         string    `json:"carrier"`
	FlightNumber    string    `json:"flight_number"`
	Origin          string    `json:"origin"`
	Destination     string    `json:"destination"`
	DepartureUTC    time.Time `json:"departure_time_utc"`
	ArrivalUTC      time.Time `json:"arrival_time_utc"`
	DurationMinutes int       `json:"duration_minutes"`
}

// TimeWindow is a half-open interval [Start, End) over UTC instants
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Price is a resolved fare amount
type Price struct {
	Currency string  `json:"currency"`
	Amount   float64 `json:"amount"`
}

// Itinerary is a completed, validated chain of 1-3 legs.
// Price is nil when the fare could not be resolved in time;
// the fare key still allows later authoritative resolution.
type Itinerary struct {
	ID                   string `json:"id"`
	Legs                 []Leg  `json:"legs"`
	Stops                int    `json:"stops"`
	TotalDurationMinutes int    `json:"total_duration_minutes"`
	Price                *Price `json:"price,omitempty"`
	FareKey              string `json:"fare_key"`
}

// FirstDeparture returns the departure instant of the first leg
func (i Itinerary) FirstDeparture() time.Time {
	return i.Legs[0].DepartureUTC
}

// ImportLog records one schedule feed import run
type ImportLog struct {
	ID            int64
	Source        string
	ServiceDate   time.Time
	StartedAt     time.Time
	CompletedAt   *time.Time
	Status        string
	AirportsCount int
	CarriersCount int
	LegsCount     int
	ErrorMsg      string
}

// Feed row types produced by the schedule feed parser

// FeedAirport is an airport row from airports.csv
type FeedAirport struct {
	Code        string
	Name        string
	City        string
	CountryCode string
	Timezone    string
	MCTMinutes  int
	MCTTier     string
}

// FeedCarrier is a carrier row from carriers.csv
type FeedCarrier struct {
	Code string
	Name string
}

// FeedLeg is a scheduled departure row from legs.csv
type FeedLeg struct {
	ID              string
	Carrier         string
	FlightNumber    string
	Origin          string
	Destination     string
	DepartureUTC    time.Time
	ArrivalUTC      time.Time
	DurationMinutes int
}
