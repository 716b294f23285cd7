package search

import (
	"sort"

	"github.com/skyhop/skyhop_core/internal/models"
)

// SortKey selects the primary ordering of search results
type SortKey string

const (
	SortPrice         SortKey = "price"
	SortDuration      SortKey = "duration"
	SortDepartureTime SortKey = "departure_time"
)

// ParseSortKey validates a wire-level sort value, defaulting to price
func ParseSortKey(s string) (SortKey, bool) {
	switch SortKey(s) {
	case SortPrice, SortDuration, SortDepartureTime:
		return SortKey(s), true
	case "":
		return SortPrice, true
	default:
		return SortPrice, false
	}
}

// Rank sorts itineraries in place by the requested key. Ties break by
// stop count ascending, then by the first leg's carrier+flight-number,
// so an identical search always yields an identical ordering no matter
// how the concurrent expansion branches completed.
func Rank(itins []models.Itinerary, key SortKey) {
	sort.SliceStable(itins, func(i, j int) bool {
		a, b := itins[i], itins[j]

		switch key {
		case SortDuration:
			if a.TotalDurationMinutes != b.TotalDurationMinutes {
				return a.TotalDurationMinutes < b.TotalDurationMinutes
			}
		case SortDepartureTime:
			if !a.FirstDeparture().Equal(b.FirstDeparture()) {
				return a.FirstDeparture().Before(b.FirstDeparture())
			}
		default: // SortPrice; itineraries without a price sort last
			switch {
			case a.Price == nil && b.Price != nil:
				return false
			case a.Price != nil && b.Price == nil:
				return true
			case a.Price != nil && b.Price != nil && a.Price.Amount != b.Price.Amount:
				return a.Price.Amount < b.Price.Amount
			}
		}

		if a.Stops != b.Stops {
			return a.Stops < b.Stops
		}
		return flightOrder(a) < flightOrder(b)
	})
}

// Paginate truncates ranked results to maxResults, reporting the
// candidate count found before truncation
func Paginate(itins []models.Itinerary, maxResults int) (page []models.Itinerary, total int) {
	total = len(itins)
	if maxResults > 0 && len(itins) > maxResults {
		itins = itins[:maxResults]
	}
	return itins, total
}

func flightOrder(i models.Itinerary) string {
	return i.Legs[0].Carrier + i.Legs[0].FlightNumber
}
