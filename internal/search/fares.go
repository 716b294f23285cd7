package search

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/skyhop/skyhop_core/internal/models"
)

// FareSnapshot is a priced fare observation from the fare source
type FareSnapshot struct {
	Price models.Price `json:"price"`
	AsOf  time.Time    `json:"as_of"`
}

// FareSource performs a live fare lookup. A (nil, nil) return means the
// source has no price for this key, which is not an error.
type FareSource interface {
	Lookup(ctx context.Context, fareKey string) (*FareSnapshot, error)
}

// FareCache stores fare snapshots keyed by fare key. Get returns
// (nil, nil) on miss. Set must be safe under concurrent misses for the
// same key; first writer wins, redundant lookups are tolerated.
type FareCache interface {
	Get(ctx context.Context, key string) (*FareSnapshot, error)
	Set(ctx context.Context, key string, snap FareSnapshot) error
}

// FareKey derives a deterministic opaque key from the leg-id sequence,
// prefixed with route and date for operator readability
func FareKey(legs []models.Leg) string {
	ids := make([]string, len(legs))
	for i, l := range legs {
		ids[i] = l.ID
	}
	sum := sha256.Sum256([]byte(strings.Join(ids, ":")))
	return fmt.Sprintf("fare_%s_%s_%s_%x",
		legs[0].Origin,
		legs[len(legs)-1].Destination,
		legs[0].DepartureUTC.UTC().Format("20060102"),
		sum[:8])
}

// FareResolver attaches a price and fare key to completed chains. A
// cached snapshot within the freshness bound wins; otherwise a live
// lookup runs under its own budget. When neither answers, the
// itinerary goes out unpriced with only the fare key, a degraded but
// valid result.
type FareResolver struct {
	cache     FareCache
	source    FareSource
	freshness time.Duration
	lookupTO  time.Duration
	now       func() time.Time
}

// NewFareResolver wires the resolver; cache and source may each be nil
func NewFareResolver(cache FareCache, source FareSource, cfg Config) *FareResolver {
	cfg = cfg.normalize()
	return &FareResolver{
		cache:     cache,
		source:    source,
		freshness: cfg.FareFreshness,
		lookupTO:  cfg.FareLookupTimeout,
		now:       time.Now,
	}
}

// Resolve returns the price (nil when unresolved) and the fare key for
// a leg sequence. Fare failures are local and recovered, never fatal.
func (r *FareResolver) Resolve(ctx context.Context, legs []models.Leg) (*models.Price, string) {
	key := FareKey(legs)

	if r.cache != nil {
		snap, err := r.cache.Get(ctx, key)
		if err != nil {
			log.Printf("fare cache read failed for %s: %v", key, err)
		} else if snap != nil && r.now().Sub(snap.AsOf) <= r.freshness {
			price := snap.Price
			return &price, key
		}
	}

	if r.source == nil {
		return nil, key
	}

	lctx, cancel := context.WithTimeout(ctx, r.lookupTO)
	defer cancel()

	snap, err := r.source.Lookup(lctx, key)
	if err != nil {
		log.Printf("live fare lookup failed for %s: %v", key, err)
		return nil, key
	}
	if snap == nil {
		return nil, key
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, key, *snap); err != nil {
			log.Printf("fare cache fill failed for %s: %v", key, err)
		}
	}

	price := snap.Price
	return &price, key
}
