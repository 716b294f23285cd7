package search

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyhop/skyhop_core/internal/models"
)

type memFareCache struct {
	mu    sync.Mutex
	snaps map[string]FareSnapshot
	gets  int
	sets  int
	fail  bool
}

func newMemFareCache() *memFareCache {
	return &memFareCache{snaps: make(map[string]FareSnapshot)}
}

func (m *memFareCache) Get(_ context.Context, key string) (*FareSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.fail {
		return nil, errors.New("cache down")
	}
	snap, ok := m.snaps[key]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

func (m *memFareCache) Set(_ context.Context, key string, snap FareSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	if m.fail {
		return errors.New("cache down")
	}
	if _, exists := m.snaps[key]; !exists {
		m.snaps[key] = snap
	}
	return nil
}

type fakeFareSource struct {
	mu      sync.Mutex
	snap    *FareSnapshot
	err     error
	lookups int
	slow    bool
}

func (f *fakeFareSource) Lookup(ctx context.Context, _ string) (*FareSnapshot, error) {
	f.mu.Lock()
	f.lookups++
	f.mu.Unlock()
	if f.slow {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.snap, f.err
}

func fareLegs() []models.Leg {
	return []models.Leg{
		mkLeg("AA100-20251010T0800", "AA", "100", "JFK", "BOS", "08:00", "10:00"),
		mkLeg("VS011-20251010T1130", "VS", "011", "BOS", "LHR", "11:30", "22:30"),
	}
}

func TestFareKeyShape(t *testing.T) {
	key := FareKey(fareLegs())

	assert.True(t, strings.HasPrefix(key, "fare_JFK_LHR_20251010_"))
	parts := strings.Split(key, "_")
	require.Len(t, parts, 5)
	assert.Len(t, parts[4], 16, "suffix is 8 hashed bytes hex-encoded")
}

func TestFareKeyDeterministic(t *testing.T) {
	assert.Equal(t, FareKey(fareLegs()), FareKey(fareLegs()))

	// a different leg sequence over the same route and date must not
	// collide
	other := fareLegs()
	other[1] = mkLeg("VS012-20251010T1230", "VS", "012", "BOS", "LHR", "12:30", "23:30")
	assert.NotEqual(t, FareKey(fareLegs()), FareKey(other))
}

func TestResolveFreshCacheHit(t *testing.T) {
	legs := fareLegs()
	key := FareKey(legs)
	now := at("23:00")

	cache := newMemFareCache()
	cache.snaps[key] = FareSnapshot{
		Price: models.Price{Currency: "USD", Amount: 412.50},
		AsOf:  now.Add(-5 * time.Minute),
	}
	source := &fakeFareSource{snap: &FareSnapshot{Price: models.Price{Currency: "USD", Amount: 999}}}

	r := NewFareResolver(cache, source, DefaultConfig())
	r.now = func() time.Time { return now }

	price, gotKey := r.Resolve(context.Background(), legs)
	require.NotNil(t, price)
	assert.Equal(t, 412.50, price.Amount)
	assert.Equal(t, key, gotKey)
	assert.Equal(t, 0, source.lookups, "fresh cache hit must not reach the source")
}

func TestResolveStaleEntryRefetched(t *testing.T) {
	legs := fareLegs()
	key := FareKey(legs)
	now := at("23:00")

	cache := newMemFareCache()
	cache.snaps[key] = FareSnapshot{
		Price: models.Price{Currency: "USD", Amount: 300},
		AsOf:  now.Add(-11 * time.Minute), // past the 10m freshness bound
	}
	source := &fakeFareSource{snap: &FareSnapshot{
		Price: models.Price{Currency: "USD", Amount: 450},
		AsOf:  now,
	}}

	r := NewFareResolver(cache, source, DefaultConfig())
	r.now = func() time.Time { return now }

	price, _ := r.Resolve(context.Background(), legs)
	require.NotNil(t, price)
	assert.Equal(t, 450.0, price.Amount)
	assert.Equal(t, 1, source.lookups)
}

func TestResolveMissFillsCache(t *testing.T) {
	legs := fareLegs()
	cache := newMemFareCache()
	source := &fakeFareSource{snap: &FareSnapshot{
		Price: models.Price{Currency: "EUR", Amount: 280},
		AsOf:  at("22:00"),
	}}

	r := NewFareResolver(cache, source, DefaultConfig())
	r.now = func() time.Time { return at("22:00") }

	price, key := r.Resolve(context.Background(), legs)
	require.NotNil(t, price)

	filled, ok := cache.snaps[key]
	require.True(t, ok)
	assert.Equal(t, 280.0, filled.Price.Amount)

	// second resolve is served from the fill
	price2, _ := r.Resolve(context.Background(), legs)
	require.NotNil(t, price2)
	assert.Equal(t, 280.0, price2.Amount)
	assert.Equal(t, 1, source.lookups)
}

func TestResolveDegradesUnpriced(t *testing.T) {
	legs := fareLegs()

	t.Run("Source has no fare", func(t *testing.T) {
		r := NewFareResolver(newMemFareCache(), &fakeFareSource{}, DefaultConfig())
		price, key := r.Resolve(context.Background(), legs)
		assert.Nil(t, price)
		assert.Equal(t, FareKey(legs), key)
	})

	t.Run("Source errors", func(t *testing.T) {
		r := NewFareResolver(newMemFareCache(), &fakeFareSource{err: errors.New("upstream 500")}, DefaultConfig())
		price, _ := r.Resolve(context.Background(), legs)
		assert.Nil(t, price)
	})

	t.Run("Source exceeds lookup budget", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.FareLookupTimeout = 20 * time.Millisecond
		r := NewFareResolver(newMemFareCache(), &fakeFareSource{slow: true}, cfg)

		start := time.Now()
		price, _ := r.Resolve(context.Background(), legs)
		assert.Nil(t, price)
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("No source wired", func(t *testing.T) {
		r := NewFareResolver(newMemFareCache(), nil, DefaultConfig())
		price, key := r.Resolve(context.Background(), legs)
		assert.Nil(t, price)
		assert.NotEmpty(t, key)
	})
}

func TestResolveCacheFailureRecovered(t *testing.T) {
	cache := newMemFareCache()
	cache.fail = true
	source := &fakeFareSource{snap: &FareSnapshot{
		Price: models.Price{Currency: "USD", Amount: 199},
		AsOf:  at("22:00"),
	}}

	r := NewFareResolver(cache, source, DefaultConfig())
	r.now = func() time.Time { return at("22:00") }

	price, _ := r.Resolve(context.Background(), fareLegs())
	require.NotNil(t, price, "cache outage must not block a live lookup")
	assert.Equal(t, 199.0, price.Amount)
}
