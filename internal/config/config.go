package config

import (
	"os"
	"strconv"
	"time"

	"github.com/skyhop/skyhop_core/internal/search"
)

// LoadSearchFromEnv builds the engine configuration from environment
// variables, falling back to the documented defaults for anything unset
func LoadSearchFromEnv() search.Config {
	d := search.DefaultConfig()
	return search.Config{
		MCTDomestic:       getEnvDuration("SEARCH_MCT_DOMESTIC", d.MCTDomestic),
		MCTInternational:  getEnvDuration("SEARCH_MCT_INTERNATIONAL", d.MCTInternational),
		MaxLayover:        getEnvDuration("SEARCH_MAX_LAYOVER", d.MaxLayover),
		FanoutLimit:       getEnvInt("SEARCH_FANOUT_LIMIT", d.FanoutLimit),
		ExpansionCeiling:  getEnvInt("SEARCH_EXPANSION_CEILING", d.ExpansionCeiling),
		PruneMargin:       getEnvDuration("SEARCH_PRUNE_MARGIN", d.PruneMargin),
		ExpandWorkers:     getEnvInt("SEARCH_EXPAND_WORKERS", d.ExpandWorkers),
		FareFreshness:     getEnvDuration("SEARCH_FARE_FRESHNESS", d.FareFreshness),
		FareLookupTimeout: getEnvDuration("SEARCH_FARE_LOOKUP_TIMEOUT", d.FareLookupTimeout),
		Deadline:          getEnvDuration("SEARCH_DEADLINE", d.Deadline),
		DefaultMaxResults: getEnvInt("SEARCH_DEFAULT_MAX_RESULTS", d.DefaultMaxResults),
		MaxResultsCap:     getEnvInt("SEARCH_MAX_RESULTS_CAP", d.MaxResultsCap),
		DefaultMaxHops:    getEnvInt("SEARCH_DEFAULT_MAX_HOPS", d.DefaultMaxHops),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(getEnv(key, "")); err == nil && v > 0 {
		return v
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(getEnv(key, "")); err == nil && v > 0 {
		return v
	}
	return defaultValue
}
