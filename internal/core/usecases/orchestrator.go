package usecases

import (
	"context"
	"encoding/json"

	"github.com/dmontero/cambiomap/internal/core/domain"
	"github.com/dmontero/cambiomap/internal/core/ports"
)

// Trigger is the class of event that may cause a fetch.
type Trigger string

const (
	// TriggerPassive covers bootstrap and programmatic coordinate changes
	// (e.g. accepting a geocoded place) as well as forwarded user moves.
	TriggerPassive Trigger = "passive"
	// TriggerExplicit is a user-initiated commit ("Check Rates").
	TriggerExplicit Trigger = "explicit"
	// TriggerPageChange is pure pagination; every other query field is
	// preserved from the last committed query.
	TriggerPageChange Trigger = "page"
)

// Job is one issued fetch, tagged with its monotonic token.
type Job struct {
	Token   uint64
	Query   domain.SearchQuery
	Trigger Trigger
}

// Completion is the outcome of a Job, posted back to the session loop.
type Completion struct {
	Token   uint64
	Query   domain.SearchQuery
	Trigger Trigger
	Page    *domain.ResultPage
	Err     error
}

// Orchestrator is the sole writer of the shared result page. It owns the
// canonical (coordinate, radius, currencies, filters, page) state, decides
// per trigger class whether a network call is needed, and arbitrates
// out-of-order completions through a monotonic token.
//
// Dispatch and Apply must be called from the session loop only; Execute is
// safe to run concurrently because it touches no mutable state.
type Orchestrator struct {
	searcher ports.OfficeSearcher
	cache    ports.CacheService // optional
	cacheTTL int

	current       domain.SearchQuery
	lastCommitted *domain.SearchQuery

	token   uint64 // latest issued
	settled uint64 // latest token that applied or failed
}

// NewOrchestrator creates an orchestrator seeded with the initial query
// state. cache may be nil.
func NewOrchestrator(searcher ports.OfficeSearcher, cache ports.CacheService, cacheTTLSeconds int, initial domain.SearchQuery) *Orchestrator {
	if initial.Page < 1 {
		initial.Page = 1
	}
	return &Orchestrator{
		searcher: searcher,
		cache:    cache,
		cacheTTL: cacheTTLSeconds,
		current:  initial,
	}
}

// Query returns the current canonical query state.
func (o *Orchestrator) Query() domain.SearchQuery {
	return o.current
}

// LastCommitted returns the query of the last applied fetch, or nil.
func (o *Orchestrator) LastCommitted() *domain.SearchQuery {
	return o.lastCommitted
}

// Loading reports whether the latest-issued request is still in flight.
// Superseded requests never flip it back early: only the newest token
// settles it.
func (o *Orchestrator) Loading() bool {
	return o.token != o.settled
}

// SetCoordinate updates the search center and radius, resetting pagination.
func (o *Orchestrator) SetCoordinate(c domain.Coordinate, radiusKm float64) {
	if o.current.Coordinate == c && o.current.RadiusKm == radiusKm {
		return
	}
	o.current.Coordinate = c
	o.current.RadiusKm = radiusKm
	o.current.Page = 1
}

// SetCurrency updates the currency pair and optional target rate, resetting
// pagination on any change.
func (o *Orchestrator) SetCurrency(base, target string, rate *float64) {
	same := o.current.BaseCurrency == base && o.current.TargetCurrency == target
	if same {
		switch {
		case o.current.TargetRate == nil && rate == nil:
			return
		case o.current.TargetRate != nil && rate != nil && *o.current.TargetRate == *rate:
			return
		}
	}
	o.current.BaseCurrency = base
	o.current.TargetCurrency = target
	o.current.TargetRate = rate
	o.current.Page = 1
}

// SetFilters replaces the filter state, resetting pagination on any change.
func (o *Orchestrator) SetFilters(f domain.FilterState) {
	if o.current.Filters.Equal(f) {
		return
	}
	o.current.Filters = f
	o.current.Page = 1
}

// SetPage moves to another page without touching any other field.
func (o *Orchestrator) SetPage(n int) {
	if n >= 1 {
		o.current.Page = n
	}
}

// Dispatch builds a fetch job for the given trigger, or nil when the
// trigger may be skipped without a network call:
//
//   - passive triggers are skipped when the candidate equals the last
//     committed query in every field but page;
//   - explicit triggers always fetch, from page 1;
//   - page changes always fetch (the page necessarily differs) and keep
//     every other field from the current state.
func (o *Orchestrator) Dispatch(trigger Trigger) *Job {
	if trigger == TriggerExplicit {
		o.current.Page = 1
	}

	candidate := o.current

	if trigger == TriggerPassive && o.lastCommitted != nil && candidate.EqualIgnoringPage(*o.lastCommitted) {
		return nil
	}

	o.token++
	return &Job{Token: o.token, Query: candidate, Trigger: trigger}
}

// Execute performs the network round-trip for a job, going through the
// read-through cache when one is configured. It is the only suspension
// point of the search flow and runs outside the session loop.
func (o *Orchestrator) Execute(ctx context.Context, job Job) Completion {
	comp := Completion{Token: job.Token, Query: job.Query, Trigger: job.Trigger}

	key := job.Query.CacheKey()
	if o.cache != nil {
		if data, err := o.cache.Get(ctx, key); err == nil {
			var page domain.ResultPage
			if err := json.Unmarshal(data, &page); err == nil {
				comp.Page = &page
				return comp
			}
		}
	}

	page, err := o.searcher.Nearby(ctx, job.Query)
	if err != nil {
		comp.Err = err
		return comp
	}
	comp.Page = page

	if o.cache != nil && o.cacheTTL > 0 {
		if data, err := json.Marshal(page); err == nil {
			_ = o.cache.Set(ctx, key, data, o.cacheTTL)
		}
	}

	return comp
}

// Apply commits a completion. Stale completions (superseded by a newer
// token) are dropped silently; failures settle the loading state but leave
// the last committed query and the previously shown page untouched.
func (o *Orchestrator) Apply(comp Completion) (*domain.ResultPage, bool, error) {
	if comp.Token != o.token {
		return nil, false, nil
	}
	o.settled = comp.Token

	if comp.Err != nil {
		return nil, false, comp.Err
	}

	committed := comp.Query
	// The server is authoritative for pagination counters.
	if comp.Page.CurrentPage >= 1 {
		committed.Page = comp.Page.CurrentPage
	}
	o.lastCommitted = &committed
	o.current = committed

	return comp.Page, true, nil
}
