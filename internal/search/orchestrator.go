package search

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/skyhop/skyhop_core/internal/models"
)

// State tracks a request through the search pipeline
type State string

const (
	StateValidating State = "validating"
	StateExpanding  State = "expanding"
	StatePricing    State = "pricing"
	StateRanking    State = "ranking"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

var iataPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// Request is one search invocation. Zero MaxResults means the
// configured default; MaxHops must be 0, 1 or 2.
type Request struct {
	Origin      string
	Destination string
	Date        time.Time // service date; searched as [00:00, 24:00) UTC
	MaxHops     int
	MaxResults  int
	Sort        SortKey
}

// Result is the outcome of a completed search. An empty itinerary list
// with a non-empty Note is the valid "searched and found nothing"
// outcome, distinct from a failed search.
type Result struct {
	SearchID    string
	Itineraries []models.Itinerary
	TotalFound  int // candidates found before truncation
	Returned    int
	MaxResults  int // effective cap after defaulting
	Truncated   bool
	Note        string
	State       State
}

// Engine composes the expander, validator, fare resolver and ranker
// per request. It holds no request-to-request mutable state; many
// searches run in parallel against the same Engine.
type Engine struct {
	store    ScheduleStore
	val      Validator
	resolver *FareResolver
	cfg      Config
}

// NewEngine wires the search pipeline over a schedule store, airport
// reference data and a fare resolver (which may be nil for unpriced
// operation).
func NewEngine(store ScheduleStore, airports map[string]models.Airport, resolver *FareResolver, cfg Config) *Engine {
	cfg = cfg.normalize()
	return &Engine{
		store:    store,
		val:      NewValidator(airports, cfg),
		resolver: resolver,
		cfg:      cfg,
	}
}

// Search runs the full pipeline under a single deadline. If the
// deadline elapses after at least one itinerary has completed, the
// partial result set is returned as a normal Done outcome.
func (e *Engine) Search(ctx context.Context, req Request) (*Result, error) {
	// Validating
	req, err := e.validate(req)
	if err != nil {
		return nil, err
	}

	if _, set := ctx.Deadline(); !set {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Deadline)
		defer cancel()
	}

	// Expanding
	window := models.TimeWindow{
		Start: req.Date,
		End:   req.Date.Add(24 * time.Hour),
	}
	exp := &expander{store: e.store, val: e.val, cfg: e.cfg}
	completed, err := exp.expand(ctx, req.Origin, req.Destination, window, req.MaxHops+1)
	if err != nil {
		return nil, &Error{
			Code:    CodeSourceUnavailable,
			Message: fmt.Sprintf("schedule store failed searching %s to %s", req.Origin, req.Destination),
			Err:     err,
		}
	}

	deadlineCut := ctx.Err() != nil
	if deadlineCut && len(completed) == 0 {
		return nil, &Error{
			Code:    CodeDeadlineExceeded,
			Message: "search deadline elapsed before any itinerary completed",
			Err:     ctx.Err(),
		}
	}

	// Pricing
	itins := e.price(ctx, completed)

	// Ranking
	Rank(itins, req.Sort)
	page, total := Paginate(itins, req.MaxResults)

	res := &Result{
		SearchID:    uuid.NewString(),
		Itineraries: page,
		TotalFound:  total,
		Returned:    len(page),
		MaxResults:  req.MaxResults,
		Truncated:   len(page) < total,
		State:       StateDone,
	}
	if total == 0 {
		res.Note = fmt.Sprintf("no itineraries from %s to %s on %s within %d stops",
			req.Origin, req.Destination, req.Date.Format("2006-01-02"), req.MaxHops)
	} else if deadlineCut {
		res.Note = "deadline elapsed during search; results may be partial"
	}
	return res, nil
}

// price builds itineraries from completed chains, resolving fares with
// a bounded fan-out. A chain that cannot be priced in time still ships
// with its fare key.
func (e *Engine) price(ctx context.Context, completed []chain) []models.Itinerary {
	itins := make([]models.Itinerary, len(completed))

	sem := make(chan struct{}, e.cfg.ExpandWorkers)
	var wg sync.WaitGroup
	for i, c := range completed {
		wg.Add(1)
		go func(i int, c chain) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			itins[i] = e.buildItinerary(ctx, c)
		}(i, c)
	}
	wg.Wait()

	return itins
}

func (e *Engine) buildItinerary(ctx context.Context, c chain) models.Itinerary {
	var price *models.Price
	var fareKey string
	if e.resolver != nil {
		price, fareKey = e.resolver.Resolve(ctx, c.legs)
	} else {
		fareKey = FareKey(c.legs)
	}

	// Identity is derived from the chain signature so an identical
	// search against an unchanged schedule yields identical ids.
	return models.Itinerary{
		ID:                   uuid.NewSHA1(uuid.NameSpaceOID, []byte(c.signature())).String(),
		Legs:                 c.legs,
		Stops:                len(c.legs) - 1,
		TotalDurationMinutes: int(c.elapsed() / time.Minute),
		Price:                price,
		FareKey:              fareKey,
	}
}

// validate normalizes and rejects a request before any search work
func (e *Engine) validate(req Request) (Request, error) {
	req.Origin = strings.ToUpper(strings.TrimSpace(req.Origin))
	req.Destination = strings.ToUpper(strings.TrimSpace(req.Destination))

	if !iataPattern.MatchString(req.Origin) {
		return req, invalidRequestf("origin must be a 3-letter IATA code, got %q", req.Origin)
	}
	if !iataPattern.MatchString(req.Destination) {
		return req, invalidRequestf("destination must be a 3-letter IATA code, got %q", req.Destination)
	}
	if req.Origin == req.Destination {
		return req, invalidRequestf("origin and destination must differ")
	}
	if req.MaxHops < 0 || req.MaxHops > 2 {
		return req, invalidRequestf("max_hops must be 0, 1 or 2, got %d", req.MaxHops)
	}
	if req.Date.IsZero() {
		return req, invalidRequestf("date is required")
	}
	req.Date = time.Date(req.Date.Year(), req.Date.Month(), req.Date.Day(), 0, 0, 0, 0, time.UTC)

	if req.MaxResults <= 0 {
		req.MaxResults = e.cfg.DefaultMaxResults
	}
	if req.MaxResults > e.cfg.MaxResultsCap {
		return req, invalidRequestf("max_results must be at most %d, got %d", e.cfg.MaxResultsCap, req.MaxResults)
	}
	if _, ok := ParseSortKey(string(req.Sort)); !ok {
		return req, invalidRequestf("sort must be one of price, duration, departure_time")
	}
	if req.Sort == "" {
		req.Sort = SortPrice
	}
	return req, nil
}
