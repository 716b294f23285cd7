package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skyhop/skyhop_core/internal/db"
	"github.com/skyhop/skyhop_core/internal/feed"
	"github.com/skyhop/skyhop_core/internal/models"
)

func main() {
	// Command-line flags
	feedPath := flag.String("feed", "", "Path to schedule feed directory (required)")
	source := flag.String("source", "", "Source label for this feed (required)")
	deactivate := flag.Bool("deactivate-missing", false, "Deactivate legs absent from this feed")

	flag.Parse()

	// Validate required flags
	if *feedPath == "" || *source == "" {
		fmt.Println("Usage: skyhop-import --source=<label> --feed=<dir> [--deactivate-missing]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Validate directory exists
	if info, err := os.Stat(*feedPath); err != nil || !info.IsDir() {
		log.Fatalf("Feed directory not found: %s", *feedPath)
	}

	log.Println("Starting schedule feed import...")
	log.Printf("Source: %s", *source)
	log.Printf("Feed: %s", *feedPath)

	// Initialize database connection
	pool, err := db.GetDB()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	// Create import log entry
	importLogID, err := createImportLog(ctx, pool, *source)
	if err != nil {
		log.Fatalf("Failed to create import log: %v", err)
	}

	// Run import in transaction
	if err := runImport(ctx, pool, *source, *feedPath, *deactivate, importLogID); err != nil {
		updateImportLog(ctx, pool, importLogID, "failed", 0, 0, 0, err.Error())
		log.Fatalf("Import failed: %v", err)
	}

	log.Println("Import completed successfully!")
	os.Exit(0)
}

func runImport(ctx context.Context, pool *pgxpool.Pool, source, feedPath string, deactivateMissing bool, logID int64) error {
	startTime := time.Now()

	// Parse schedule feed
	log.Println("Step 1/4: Parsing schedule feed...")
	f, err := feed.ParseDir(feedPath)
	if err != nil {
		return fmt.Errorf("failed to parse feed: %w", err)
	}

	// Normalize and clean rows
	log.Println("Step 2/4: Normalizing feed rows...")
	f.Airports = feed.NormalizeAirports(f.Airports)
	f.Carriers = feed.NormalizeCarriers(f.Carriers)
	f.Legs = feed.NormalizeLegs(f.Legs)

	// Begin transaction
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Import reference data
	log.Println("Step 3/4: Importing airports and carriers...")
	if err := importAirports(ctx, tx, f.Airports); err != nil {
		return fmt.Errorf("failed to import airports: %w", err)
	}
	if err := importCarriers(ctx, tx, f.Carriers); err != nil {
		return fmt.Errorf("failed to import carriers: %w", err)
	}

	// Import legs
	log.Printf("Step 4/4: Importing %d legs...", len(f.Legs))
	if err := importLegs(ctx, tx, source, f.Legs); err != nil {
		return fmt.Errorf("failed to import legs: %w", err)
	}

	if deactivateMissing {
		if err := deactivateMissingLegs(ctx, tx, source, f.Legs); err != nil {
			return fmt.Errorf("failed to deactivate missing legs: %w", err)
		}
	}

	// Commit transaction
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	duration := time.Since(startTime)
	log.Printf("Import completed in %s", duration)

	return updateImportLog(ctx, pool, logID, "success",
		len(f.Airports), len(f.Carriers), len(f.Legs), "")
}

func createImportLog(ctx context.Context, pool *pgxpool.Pool, source string) (int64, error) {
	var id int64
	err := pool.QueryRow(ctx, `
		INSERT INTO import_log (source, status)
		VALUES ($1, 'running')
		RETURNING id
	`, source).Scan(&id)

	return id, err
}

func updateImportLog(ctx context.Context, pool *pgxpool.Pool, id int64, status string, airports, carriers, legs int, errMsg string) error {
	message := errMsg
	if status == "success" {
		message = fmt.Sprintf("Imported %d airports, %d carriers, %d legs", airports, carriers, legs)
	}

	_, err := pool.Exec(ctx, `
		UPDATE import_log
		SET completed_at = NOW(),
		    status = $2,
		    message = $3,
		    airports_count = $4,
		    carriers_count = $5,
		    legs_count = $6
		WHERE id = $1
	`, id, status, message, airports, carriers, legs)

	return err
}

func importAirports(ctx context.Context, tx pgx.Tx, airports []models.FeedAirport) error {
	batch := &pgx.Batch{}

	for _, ap := range airports {
		batch.Queue(`
			INSERT INTO airport (code, name, city, country_code, timezone, mct_minutes, mct_tier)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (code) DO UPDATE
			SET name = EXCLUDED.name,
			    city = EXCLUDED.city,
			    country_code = EXCLUDED.country_code,
			    timezone = EXCLUDED.timezone,
			    mct_minutes = EXCLUDED.mct_minutes,
			    mct_tier = EXCLUDED.mct_tier
		`, ap.Code, ap.Name, ap.City, ap.CountryCode, ap.Timezone, ap.MCTMinutes, ap.MCTTier)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert airport %d: %w", i, err)
		}
	}

	log.Printf("Imported %d airports", len(airports))
	return nil
}

func importCarriers(ctx context.Context, tx pgx.Tx, carriers []models.FeedCarrier) error {
	batch := &pgx.Batch{}

	for _, c := range carriers {
		batch.Queue(`
			INSERT INTO carrier (code, name)
			VALUES ($1, $2)
			ON CONFLICT (code) DO UPDATE
			SET name = EXCLUDED.name
		`, c.Code, c.Name)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert carrier %d: %w", i, err)
		}
	}

	log.Printf("Imported %d carriers", len(carriers))
	return nil
}

func importLegs(ctx context.Context, tx pgx.Tx, source string, legs []models.FeedLeg) error {
	batch := &pgx.Batch{}

	for _, leg := range legs {
		batch.Queue(`
			INSERT INTO leg (id, carrier_code, flight_number, origin_code, destination_code,
			                 departure_utc, arrival_utc, duration_minutes, source, is_active)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, true)
			ON CONFLICT (id) DO UPDATE
			SET carrier_code = EXCLUDED.carrier_code,
			    flight_number = EXCLUDED.flight_number,
			    origin_code = EXCLUDED.origin_code,
			    destination_code = EXCLUDED.destination_code,
			    departure_utc = EXCLUDED.departure_utc,
			    arrival_utc = EXCLUDED.arrival_utc,
			    duration_minutes = EXCLUDED.duration_minutes,
			    source = EXCLUDED.source,
			    is_active = true
		`, leg.ID, leg.Carrier, leg.FlightNumber, leg.Origin, leg.Destination,
			leg.DepartureUTC, leg.ArrivalUTC, leg.DurationMinutes, source)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert leg %d: %w", i, err)
		}
	}

	log.Printf("Imported %d legs", len(legs))
	return nil
}

// deactivateMissingLegs marks legs from this source that did not appear
// in the feed as inactive, so removed departures stop being searchable
// without losing history
func deactivateMissingLegs(ctx context.Context, tx pgx.Tx, source string, legs []models.FeedLeg) error {
	ids := make([]string, len(legs))
	for i, leg := range legs {
		ids[i] = leg.ID
	}

	tag, err := tx.Exec(ctx, `
		UPDATE leg
		SET is_active = false
		WHERE source = $1 AND NOT (id = ANY($2))
	`, source, ids)
	if err != nil {
		return err
	}

	log.Printf("Deactivated %d legs missing from feed", tag.RowsAffected())
	return nil
}
