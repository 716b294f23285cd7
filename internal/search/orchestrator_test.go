package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyhop/skyhop_core/internal/models"
)

func newTestEngine(store ScheduleStore, resolver *FareResolver, cfg Config) *Engine {
	return NewEngine(store, testAirports(), resolver, cfg)
}

func baseRequest() Request {
	return Request{
		Origin:      "JFK",
		Destination: "LHR",
		Date:        testDay,
		MaxHops:     2,
	}
}

func TestSearchDirect(t *testing.T) {
	store := &fakeStore{legs: []models.Leg{
		mkLeg("BA178-20251010T0800", "BA", "178", "JFK", "LHR", "08:00", "20:00"),
	}}
	eng := newTestEngine(store, nil, DefaultConfig())

	res, err := eng.Search(context.Background(), baseRequest())
	require.NoError(t, err)

	assert.Equal(t, StateDone, res.State)
	assert.NotEmpty(t, res.SearchID)
	require.Len(t, res.Itineraries, 1)

	it := res.Itineraries[0]
	assert.Equal(t, 0, it.Stops)
	assert.Equal(t, 720, it.TotalDurationMinutes)
	assert.Nil(t, it.Price)
	assert.NotEmpty(t, it.FareKey)
	assert.Equal(t, 1, res.TotalFound)
	assert.Equal(t, 1, res.Returned)
	assert.Equal(t, 50, res.MaxResults, "unset max results reports the applied default")
	assert.False(t, res.Truncated)
	assert.Empty(t, res.Note)
}

func TestSearchOneStopWithFares(t *testing.T) {
	// 60-minute connection at BOS: above the 45-minute default that
	// governs the connection airport, regardless of the onward leg
	// being international
	legA := mkLeg("AA100-20251010T0800", "AA", "100", "JFK", "BOS", "08:00", "10:00")
	legB := mkLeg("VS011-20251010T1100", "VS", "011", "BOS", "LHR", "11:00", "22:00")
	store := &fakeStore{legs: []models.Leg{legA, legB}}

	now := at("23:00")
	cache := newMemFareCache()
	cache.snaps[FareKey([]models.Leg{legA, legB})] = FareSnapshot{
		Price: models.Price{Currency: "USD", Amount: 389},
		AsOf:  now,
	}
	resolver := NewFareResolver(cache, nil, DefaultConfig())
	resolver.now = func() time.Time { return now }

	eng := newTestEngine(store, resolver, DefaultConfig())
	res, err := eng.Search(context.Background(), baseRequest())
	require.NoError(t, err)
	require.Len(t, res.Itineraries, 1)

	it := res.Itineraries[0]
	assert.Equal(t, 1, it.Stops)
	require.Len(t, it.Legs, 2)
	require.NotNil(t, it.Price)
	assert.Equal(t, 389.0, it.Price.Amount)
	// total span first departure to last arrival, layover included
	assert.Equal(t, 840, it.TotalDurationMinutes)
}

func TestSearchMaxHopsZero(t *testing.T) {
	store := &fakeStore{legs: []models.Leg{
		mkLeg("BA178-20251010T0800", "BA", "178", "JFK", "LHR", "08:00", "20:00"),
		mkLeg("AA100-20251010T0600", "AA", "100", "JFK", "BOS", "06:00", "08:00"),
		mkLeg("VS011-20251010T0930", "VS", "011", "BOS", "LHR", "09:30", "20:30"),
	}}
	eng := newTestEngine(store, nil, DefaultConfig())

	req := baseRequest()
	req.MaxHops = 0
	res, err := eng.Search(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, res.Itineraries, 1)
	assert.Equal(t, 0, res.Itineraries[0].Stops)
}

func TestSearchNoItineraries(t *testing.T) {
	store := &fakeStore{legs: []models.Leg{
		mkLeg("AA100-20251010T0800", "AA", "100", "JFK", "BOS", "08:00", "10:00"),
	}}
	eng := newTestEngine(store, nil, DefaultConfig())

	res, err := eng.Search(context.Background(), baseRequest())
	require.NoError(t, err, "an exhausted search is not a failure")

	assert.Equal(t, StateDone, res.State)
	assert.Empty(t, res.Itineraries)
	assert.Zero(t, res.TotalFound)
	assert.Equal(t, "no itineraries from JFK to LHR on 2025-10-10 within 2 stops", res.Note)
}

func TestSearchIdempotentIdentity(t *testing.T) {
	store := &fakeStore{legs: []models.Leg{
		mkLeg("BA178-20251010T0800", "BA", "178", "JFK", "LHR", "08:00", "20:00"),
		mkLeg("AA100-20251010T0600", "AA", "100", "JFK", "BOS", "06:00", "08:00"),
		mkLeg("VS011-20251010T0930", "VS", "011", "BOS", "LHR", "09:30", "20:30"),
	}}
	eng := newTestEngine(store, nil, DefaultConfig())

	first, err := eng.Search(context.Background(), baseRequest())
	require.NoError(t, err)
	second, err := eng.Search(context.Background(), baseRequest())
	require.NoError(t, err)

	require.Equal(t, len(first.Itineraries), len(second.Itineraries))
	for i := range first.Itineraries {
		assert.Equal(t, first.Itineraries[i].ID, second.Itineraries[i].ID)
		assert.Equal(t, first.Itineraries[i].FareKey, second.Itineraries[i].FareKey)
	}
	// the search id names the invocation, not the result set
	assert.NotEqual(t, first.SearchID, second.SearchID)
}

func TestSearchPagination(t *testing.T) {
	store := &fakeStore{legs: []models.Leg{
		mkLeg("BA178-20251010T0800", "BA", "178", "JFK", "LHR", "08:00", "20:00"),
		mkLeg("BA172-20251010T1000", "BA", "172", "JFK", "LHR", "10:00", "22:00"),
		mkLeg("VS004-20251010T1200", "VS", "004", "JFK", "LHR", "12:00", "+00:00"),
	}}
	eng := newTestEngine(store, nil, DefaultConfig())

	req := baseRequest()
	req.MaxResults = 2
	req.Sort = SortDepartureTime
	res, err := eng.Search(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 3, res.TotalFound)
	assert.Equal(t, 2, res.Returned)
	assert.Equal(t, 2, res.MaxResults)
	assert.True(t, res.Truncated)

	req.MaxResults = 1
	smaller, err := eng.Search(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, smaller.Itineraries, 1)
	assert.Equal(t, res.Itineraries[0].ID, smaller.Itineraries[0].ID,
		"a smaller page must be a prefix of the larger one")
}

func TestSearchValidation(t *testing.T) {
	eng := newTestEngine(&fakeStore{}, nil, DefaultConfig())

	tests := []struct {
		name   string
		mutate func(*Request)
	}{
		{"Bad origin", func(r *Request) { r.Origin = "NEWYORK" }},
		{"Bad destination", func(r *Request) { r.Destination = "L" }},
		{"Same endpoints", func(r *Request) { r.Destination = "JFK" }},
		{"Hops out of range", func(r *Request) { r.MaxHops = 3 }},
		{"Missing date", func(r *Request) { r.Date = time.Time{} }},
		{"Results above cap", func(r *Request) { r.MaxResults = 1000 }},
		{"Unknown sort", func(r *Request) { r.Sort = "cheapest" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := baseRequest()
			tt.mutate(&req)

			res, err := eng.Search(context.Background(), req)
			assert.Nil(t, res)
			require.Error(t, err)
			assert.Equal(t, CodeInvalidRequest, CodeOf(err))
		})
	}

	t.Run("Lowercase codes normalized", func(t *testing.T) {
		store := &fakeStore{legs: []models.Leg{
			mkLeg("BA178-20251010T0800", "BA", "178", "JFK", "LHR", "08:00", "20:00"),
		}}
		eng := newTestEngine(store, nil, DefaultConfig())

		req := baseRequest()
		req.Origin = " jfk "
		req.Destination = "lhr"
		res, err := eng.Search(context.Background(), req)
		require.NoError(t, err)
		assert.Len(t, res.Itineraries, 1)
	})
}

func TestSearchSourceUnavailable(t *testing.T) {
	store := &fakeStore{failOn: map[string]error{"JFK": assert.AnError}}
	eng := newTestEngine(store, nil, DefaultConfig())

	res, err := eng.Search(context.Background(), baseRequest())
	assert.Nil(t, res)
	require.Error(t, err)
	assert.Equal(t, CodeSourceUnavailable, CodeOf(err))
}

func TestSearchDeadline(t *testing.T) {
	t.Run("Partial results survive the deadline", func(t *testing.T) {
		// the direct flight completes before the connection search
		// stalls on a slow store
		store := &fakeStore{
			legs: []models.Leg{
				mkLeg("BA178-20251010T0800", "BA", "178", "JFK", "LHR", "08:00", "20:00"),
				mkLeg("AA100-20251010T0600", "AA", "100", "JFK", "BOS", "06:00", "08:00"),
			},
			blockOn: map[string]bool{"BOS": true},
		}
		eng := newTestEngine(store, nil, DefaultConfig())

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		res, err := eng.Search(ctx, baseRequest())
		require.NoError(t, err)
		assert.Equal(t, StateDone, res.State)
		require.Len(t, res.Itineraries, 1)
		assert.Equal(t, "deadline elapsed during search; results may be partial", res.Note)
	})

	t.Run("Nothing completed is a deadline failure", func(t *testing.T) {
		store := &fakeStore{blockOn: map[string]bool{"JFK": true}}
		eng := newTestEngine(store, nil, DefaultConfig())

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		res, err := eng.Search(ctx, baseRequest())
		assert.Nil(t, res)
		require.Error(t, err)
		assert.Equal(t, CodeDeadlineExceeded, CodeOf(err))
	})
}
