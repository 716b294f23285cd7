package feed

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/skyhop/skyhop_core/internal/models"
)

// Feed represents a parsed schedule feed directory
type Feed struct {
	Airports []models.FeedAirport
	Carriers []models.FeedCarrier
	Legs     []models.FeedLeg
}

// ParseDir parses a schedule feed from a directory containing
// airports.csv, carriers.csv and legs.csv
func ParseDir(dir string) (*Feed, error) {
	feed := &Feed{}

	// Parse airports (required)
	airports, err := ParseAirports(filepath.Join(dir, "airports.csv"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse airports (required): %w", err)
	}
	feed.Airports = airports
	log.Printf("Parsed %d airports", len(airports))

	// Parse carriers (optional)
	if carriers, err := ParseCarriers(filepath.Join(dir, "carriers.csv")); err == nil {
		feed.Carriers = carriers
		log.Printf("Parsed %d carriers", len(carriers))
	} else {
		log.Printf("Warning: failed to parse carriers: %v", err)
	}

	// Parse legs (required)
	legs, err := ParseLegs(filepath.Join(dir, "legs.csv"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse legs (required): %w", err)
	}
	feed.Legs = legs
	log.Printf("Parsed %d legs", len(legs))

	return feed, nil
}

// ParseAirports parses airports.csv
func ParseAirports(filePath string) ([]models.FeedAirport, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return parseAirportsFromReader(file)
}

func parseAirportsFromReader(reader io.Reader) ([]models.FeedAirport, error) {
	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true

	header, err := csvReader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	colMap := makeColumnMap(header)
	var airports []models.FeedAirport

	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Printf("Warning: skipping malformed airport row: %v", err)
			continue
		}

		mct, _ := strconv.Atoi(getField(record, colMap, "mct_minutes"))
		airport := models.FeedAirport{
			Code:        getField(record, colMap, "code"),
			Name:        getField(record, colMap, "name"),
			City:        getField(record, colMap, "city"),
			CountryCode: getField(record, colMap, "country_code"),
			Timezone:    getField(record, colMap, "timezone"),
			MCTMinutes:  mct,
			MCTTier:     getField(record, colMap, "mct_tier"),
		}

		airports = append(airports, airport)
	}

	return airports, nil
}

// ParseCarriers parses carriers.csv
func ParseCarriers(filePath string) ([]models.FeedCarrier, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return parseCarriersFromReader(file)
}

func parseCarriersFromReader(reader io.Reader) ([]models.FeedCarrier, error) {
	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true

	header, err := csvReader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	colMap := makeColumnMap(header)
	var carriers []models.FeedCarrier

	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Printf("Warning: skipping malformed carrier row: %v", err)
			continue
		}

		carriers = append(carriers, models.FeedCarrier{
			Code: getField(record, colMap, "code"),
			Name: getField(record, colMap, "name"),
		})
	}

	return carriers, nil
}

// ParseLegs parses legs.csv
func ParseLegs(filePath string) ([]models.FeedLeg, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return parseLegsFromReader(file)
}

func parseLegsFromReader(reader io.Reader) ([]models.FeedLeg, error) {
	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true

	header, err := csvReader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	colMap := makeColumnMap(header)
	var legs []models.FeedLeg

	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Printf("Warning: skipping malformed leg row: %v", err)
			continue
		}

		dep, err := parseInstant(getField(record, colMap, "departure_utc"))
		if err != nil {
			log.Printf("Warning: skipping leg with bad departure: %v", err)
			continue
		}
		arr, err := parseInstant(getField(record, colMap, "arrival_utc"))
		if err != nil {
			log.Printf("Warning: skipping leg with bad arrival: %v", err)
			continue
		}

		duration, _ := strconv.Atoi(getField(record, colMap, "duration_minutes"))
		legs = append(legs, models.FeedLeg{
			ID:              getField(record, colMap, "id"),
			Carrier:         getField(record, colMap, "carrier"),
			FlightNumber:    getField(record, colMap, "flight_number"),
			Origin:          getField(record, colMap, "origin"),
			Destination:     getField(record, colMap, "destination"),
			DepartureUTC:    dep,
			ArrivalUTC:      arr,
			DurationMinutes: duration,
		})
	}

	return legs, nil
}

// parseInstant accepts RFC3339 or the compact "2006-01-02 15:04" form
// some provider feeds use; both are interpreted as UTC
func parseInstant(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized instant %q", s)
	}
	return t, nil
}

// makeColumnMap maps column names to their indices
func makeColumnMap(header []string) map[string]int {
	colMap := make(map[string]int)
	for i, col := range header {
		colMap[strings.ToLower(strings.TrimSpace(col))] = i
	}
	return colMap
}

// getField safely retrieves a field from a record by column name
func getField(record []string, colMap map[string]int, name string) string {
	if idx, ok := colMap[name]; ok && idx < len(record) {
		return strings.TrimSpace(record[idx])
	}
	return ""
}
