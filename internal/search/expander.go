package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/skyhop/skyhop_core/internal/models"
)

// ScheduleStore is the temporal graph view over the schedule data.
// Implementations must return legs sorted by departure ascending, free
// of duplicate schedule ids within one call, capped at fanout entries.
type ScheduleStore interface {
	LegsFrom(ctx context.Context, airport string, window models.TimeWindow, fanout int) ([]models.Leg, error)
}

// chain is an in-progress sequence of legs under construction.
// Extension copies the slices so branches never alias each other.
type chain struct {
	legs    []models.Leg
	visited []string // origin followed by each leg's destination
}

func newChain(origin string, first models.Leg) chain {
	return chain{
		legs:    []models.Leg{first},
		visited: []string{origin, first.Destination},
	}
}

func (c chain) extend(next models.Leg) chain {
	return chain{
		legs:    append(append([]models.Leg{}, c.legs...), next),
		visited: append(append([]string{}, c.visited...), next.Destination),
	}
}

func (c chain) visits(airport string) bool {
	for _, a := range c.visited {
		if a == airport {
			return true
		}
	}
	return false
}

func (c chain) terminus() models.Leg {
	return c.legs[len(c.legs)-1]
}

// elapsed is the total span from first departure to last arrival
func (c chain) elapsed() time.Duration {
	return c.terminus().ArrivalUTC.Sub(c.legs[0].DepartureUTC)
}

// signature identifies a completed chain by its airport sequence plus
// the exact schedule ids, for first-instance-wins deduplication
func (c chain) signature() string {
	ids := make([]string, len(c.legs))
	for i, l := range c.legs {
		ids[i] = l.ID
	}
	return strings.Join(c.visited, "-") + "|" + strings.Join(ids, ",")
}

// expander runs the bounded depth-first expansion over chains.
// Branches of one request share only the read-only leg data and the
// collector below; chains themselves are owned by their branch.
type expander struct {
	store ScheduleStore
	val   Validator
	cfg   Config
}

// collector merges branch results at chain-completion time. It is the
// only mutable state shared between expansion workers.
type collector struct {
	mu         sync.Mutex
	completed  []chain
	seen       map[string]struct{}
	frontier   []chain
	best       time.Duration // best completed total duration so far
	margin     time.Duration
	expansions int
	ceiling    int
	srcErr     error
}

func newCollector(cfg Config) *collector {
	return &collector{
		seen:    make(map[string]struct{}),
		margin:  cfg.PruneMargin,
		ceiling: cfg.ExpansionCeiling,
	}
}

// allowExpansion counts one chain extension attempt against the global
// ceiling. Once the ceiling is hit the search degrades gracefully:
// expansion stops and whatever completed so far is returned.
func (col *collector) allowExpansion() bool {
	col.mu.Lock()
	defer col.mu.Unlock()
	if col.expansions >= col.ceiling {
		return false
	}
	col.expansions++
	return true
}

// prunable reports whether a chain's elapsed span is already beyond the
// best-known total duration plus the configured margin
func (col *collector) prunable(elapsed time.Duration) bool {
	col.mu.Lock()
	defer col.mu.Unlock()
	return col.best > 0 && elapsed > col.best+col.margin
}

// complete records a finished chain, deduplicating by signature and
// tightening the pruning threshold as better itineraries appear
func (col *collector) complete(c chain) {
	sig := c.signature()
	col.mu.Lock()
	defer col.mu.Unlock()
	if _, dup := col.seen[sig]; dup {
		return
	}
	col.seen[sig] = struct{}{}
	col.completed = append(col.completed, c)
	if e := c.elapsed(); col.best == 0 || e < col.best {
		col.best = e
	}
}

func (col *collector) pushFrontier(c chain) {
	col.mu.Lock()
	col.frontier = append(col.frontier, c)
	col.mu.Unlock()
}

func (col *collector) takeFrontier() []chain {
	col.mu.Lock()
	f := col.frontier
	col.frontier = nil
	col.mu.Unlock()
	return f
}

func (col *collector) fail(err error) {
	col.mu.Lock()
	if col.srcErr == nil {
		col.srcErr = err
	}
	col.mu.Unlock()
}

func (col *collector) err() error {
	col.mu.Lock()
	defer col.mu.Unlock()
	return col.srcErr
}

// expand enumerates completed chains from origin to dest departing
// within window, using at most maxLegs legs. It never returns an error
// for deadline expiry; the orchestrator decides what partial results
// mean. A schedule store failure is surfaced, since a stale partial
// graph corrupts feasibility reasoning.
func (e *expander) expand(ctx context.Context, origin, dest string, window models.TimeWindow, maxLegs int) ([]chain, error) {
	col := newCollector(e.cfg)

	legs, err := e.store.LegsFrom(ctx, origin, window, e.cfg.FanoutLimit)
	if err != nil {
		if deadlineHit(ctx, err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	for _, leg := range legs {
		if leg.Destination == dest {
			// direct hit: a completed 0-stop chain, no deeper
			// expansion for this branch
			col.complete(newChain(origin, leg))
			continue
		}
		if maxLegs > 1 && leg.Destination != origin {
			col.pushFrontier(newChain(origin, leg))
		}
	}

	for depth := 2; depth <= maxLegs; depth++ {
		frontier := col.takeFrontier()
		if len(frontier) == 0 || ctx.Err() != nil {
			break
		}
		e.expandFrontier(ctx, frontier, dest, depth, maxLegs, col)
		if err := col.err(); err != nil {
			return nil, err
		}
	}

	return col.completed, col.err()
}

// expandFrontier fans the current frontier across branch workers.
// Results merge only through the collector, so chain construction
// itself needs no locking.
func (e *expander) expandFrontier(ctx context.Context, frontier []chain, dest string, depth, maxLegs int, col *collector) {
	workers := e.cfg.ExpandWorkers
	if workers > len(frontier) {
		workers = len(frontier)
	}

	jobs := make(chan chain)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range jobs {
				e.expandChain(ctx, c, dest, depth, maxLegs, col)
			}
		}()
	}

	for _, c := range frontier {
		jobs <- c
	}
	close(jobs)
	wg.Wait()
}

// expandChain fetches candidate legs from a chain's terminus and
// extends it through the connection validator
func (e *expander) expandChain(ctx context.Context, c chain, dest string, depth, maxLegs int, col *collector) {
	if ctx.Err() != nil || col.err() != nil {
		return
	}
	if col.prunable(c.elapsed()) {
		return
	}

	last := c.terminus()
	window := models.TimeWindow{
		Start: last.ArrivalUTC.Add(e.val.MCT(last.Destination)),
		// half-open window; the validator enforces the exact
		// inclusive layover bound
		End: last.ArrivalUTC.Add(e.val.MaxLayover() + time.Minute),
	}

	legs, err := e.store.LegsFrom(ctx, last.Destination, window, e.cfg.FanoutLimit)
	if err != nil {
		if deadlineHit(ctx, err) {
			return
		}
		col.fail(fmt.Errorf("%w: %v", ErrSourceUnavailable, err))
		return
	}

	for _, leg := range legs {
		if ctx.Err() != nil {
			return
		}
		if !col.allowExpansion() {
			return
		}
		if c.visits(leg.Destination) {
			continue // RejectLoop
		}
		if ok, _ := e.val.Feasible(last, leg); !ok {
			continue
		}

		extended := c.extend(leg)
		if leg.Destination == dest {
			col.complete(extended)
			continue
		}
		if depth < maxLegs && !col.prunable(extended.elapsed()) {
			col.pushFrontier(extended)
		}
	}
}

// deadlineHit distinguishes a cancelled fetch from a real store failure
func deadlineHit(ctx context.Context, err error) bool {
	return ctx.Err() != nil ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}
