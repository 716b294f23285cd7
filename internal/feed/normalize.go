package feed

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/skyhop/skyhop_core/internal/models"
)

// NormalizeAirports uppercases codes, validates IATA shape and drops
// duplicates, keeping the first occurrence
func NormalizeAirports(airports []models.FeedAirport) []models.FeedAirport {
	seen := make(map[string]struct{})
	var out []models.FeedAirport

	for _, ap := range airports {
		ap.Code = strings.ToUpper(strings.TrimSpace(ap.Code))
		if !IsIATA(ap.Code) {
			log.Printf("Warning: dropping airport with invalid code %q", ap.Code)
			continue
		}
		if _, dup := seen[ap.Code]; dup {
			log.Printf("Warning: dropping duplicate airport %s", ap.Code)
			continue
		}
		seen[ap.Code] = struct{}{}
		ap.CountryCode = strings.ToUpper(strings.TrimSpace(ap.CountryCode))
		if ap.MCTMinutes < 0 {
			ap.MCTMinutes = 0
		}
		ap.MCTTier = strings.ToLower(strings.TrimSpace(ap.MCTTier))
		if ap.MCTTier != "" && ap.MCTTier != "domestic" && ap.MCTTier != models.MCTTierInternational {
			log.Printf("Warning: airport %s has unknown mct_tier %q, treating as domestic", ap.Code, ap.MCTTier)
			ap.MCTTier = ""
		}
		out = append(out, ap)
	}

	return out
}

// NormalizeCarriers uppercases and deduplicates carrier codes
func NormalizeCarriers(carriers []models.FeedCarrier) []models.FeedCarrier {
	seen := make(map[string]struct{})
	var out []models.FeedCarrier

	for _, c := range carriers {
		c.Code = strings.ToUpper(strings.TrimSpace(c.Code))
		if len(c.Code) < 2 || len(c.Code) > 3 {
			log.Printf("Warning: dropping carrier with invalid code %q", c.Code)
			continue
		}
		if _, dup := seen[c.Code]; dup {
			continue
		}
		seen[c.Code] = struct{}{}
		out = append(out, c)
	}

	return out
}

// NormalizeLegs validates and cleans scheduled departures: codes are
// uppercased, arrival must follow departure, self-loops are dropped,
// missing durations are recomputed from the UTC instants and missing
// ids are synthesized from carrier, flight number and departure.
func NormalizeLegs(legs []models.FeedLeg) []models.FeedLeg {
	seen := make(map[string]struct{})
	var out []models.FeedLeg

	for _, leg := range legs {
		leg.Origin = strings.ToUpper(strings.TrimSpace(leg.Origin))
		leg.Destination = strings.ToUpper(strings.TrimSpace(leg.Destination))
		leg.Carrier = strings.ToUpper(strings.TrimSpace(leg.Carrier))

		if !IsIATA(leg.Origin) || !IsIATA(leg.Destination) {
			log.Printf("Warning: dropping leg %s with invalid airport pair %s-%s", leg.ID, leg.Origin, leg.Destination)
			continue
		}
		if leg.Origin == leg.Destination {
			log.Printf("Warning: dropping self-loop leg %s at %s", leg.ID, leg.Origin)
			continue
		}
		if !leg.ArrivalUTC.After(leg.DepartureUTC) {
			log.Printf("Warning: dropping leg %s arriving before departing", leg.ID)
			continue
		}
		if leg.Carrier == "" || leg.FlightNumber == "" {
			log.Printf("Warning: dropping leg %s without carrier/flight number", leg.ID)
			continue
		}

		if leg.DurationMinutes <= 0 {
			leg.DurationMinutes = int(leg.ArrivalUTC.Sub(leg.DepartureUTC) / time.Minute)
		}
		if leg.ID == "" {
			leg.ID = fmt.Sprintf("%s%s-%s", leg.Carrier, leg.FlightNumber,
				leg.DepartureUTC.UTC().Format("20060102T1504"))
		}

		if _, dup := seen[leg.ID]; dup {
			log.Printf("Warning: dropping duplicate leg id %s", leg.ID)
			continue
		}
		seen[leg.ID] = struct{}{}
		out = append(out, leg)
	}

	return out
}

// IsIATA reports whether code is a 3-letter uppercase IATA code
func IsIATA(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
