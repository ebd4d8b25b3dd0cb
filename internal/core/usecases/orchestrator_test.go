package usecases_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/dmontero/cambiomap/internal/core/domain"
	"github.com/dmontero/cambiomap/internal/core/usecases"
)

type mockSearcher struct {
	nearbyFn func(ctx context.Context, query domain.SearchQuery) (*domain.ResultPage, error)
	calls    int
}

func (m *mockSearcher) Nearby(ctx context.Context, query domain.SearchQuery) (*domain.ResultPage, error) {
	m.calls++
	if m.nearbyFn == nil {
		return &domain.ResultPage{CurrentPage: query.Page, TotalPages: 1}, nil
	}
	return m.nearbyFn(ctx, query)
}

type mockCache struct {
	getFn func(ctx context.Context, key string) ([]byte, error)
	setFn func(ctx context.Context, key string, value []byte, ttlSeconds int) error
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn == nil {
		return nil, errors.New("miss")
	}
	return m.getFn(ctx, key)
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	if m.setFn == nil {
		return nil
	}
	return m.setFn(ctx, key, value, ttlSeconds)
}

func (m *mockCache) Delete(ctx context.Context, key string) error { return nil }

func initialQuery() domain.SearchQuery {
	return domain.SearchQuery{
		Coordinate:     domain.Coordinate{Lat: 43.263, Lng: -2.935},
		RadiusKm:       5.0,
		BaseCurrency:   "EUR",
		TargetCurrency: "USD",
		Page:           1,
		PageSize:       20,
	}
}

func TestOrchestrator_PassiveSkipsUnchangedQuery(t *testing.T) {
	searcher := &mockSearcher{}
	o := usecases.NewOrchestrator(searcher, nil, 0, initialQuery())

	job := o.Dispatch(usecases.TriggerPassive)
	if job == nil {
		t.Fatal("first passive dispatch must fetch")
	}
	o.Apply(o.Execute(context.Background(), *job))

	if o.Dispatch(usecases.TriggerPassive) != nil {
		t.Error("passive dispatch with an unchanged query must be skipped")
	}

	// An explicit commit of the very same query still fetches.
	if o.Dispatch(usecases.TriggerExplicit) == nil {
		t.Error("explicit dispatch must always fetch")
	}
}

func TestOrchestrator_StaleResponseDropped(t *testing.T) {
	searcher := &mockSearcher{}
	o := usecases.NewOrchestrator(searcher, nil, 0, initialQuery())
	ctx := context.Background()

	jobA := o.Dispatch(usecases.TriggerExplicit)
	compA := o.Execute(ctx, *jobA)

	// Request B supersedes A before A's completion applies.
	o.SetCoordinate(domain.Coordinate{Lat: 40.4168, Lng: -3.7038}, 5.0)
	jobB := o.Dispatch(usecases.TriggerPassive)
	compB := o.Execute(ctx, *jobB)

	if page, applied, err := o.Apply(compA); applied || page != nil || err != nil {
		t.Errorf("stale completion applied: page=%v applied=%v err=%v", page, applied, err)
	}
	if !o.Loading() {
		t.Error("loading must stay true while the newest request is unsettled")
	}

	page, applied, err := o.Apply(compB)
	if !applied || err != nil {
		t.Fatalf("newest completion not applied: applied=%v err=%v", applied, err)
	}
	if page == nil {
		t.Fatal("applied completion returned no page")
	}
	if o.Loading() {
		t.Error("loading must settle once the newest completion applies")
	}
	if o.LastCommitted() == nil || o.LastCommitted().Coordinate.Lat != 40.4168 {
		t.Errorf("last committed query = %+v, want request B's", o.LastCommitted())
	}
}

func TestOrchestrator_NonPageChangeResetsPagination(t *testing.T) {
	o := usecases.NewOrchestrator(&mockSearcher{}, nil, 0, initialQuery())
	o.SetPage(3)

	o.SetCoordinate(domain.Coordinate{Lat: 41.3874, Lng: 2.1686}, 2.0)
	if got := o.Query().Page; got != 1 {
		t.Errorf("page after coordinate change = %d, want 1", got)
	}

	o.SetPage(3)
	o.SetFilters(domain.FilterState{OpenNow: true})
	if got := o.Query().Page; got != 1 {
		t.Errorf("page after filter change = %d, want 1", got)
	}

	o.SetPage(3)
	o.SetCurrency("EUR", "GBP", nil)
	if got := o.Query().Page; got != 1 {
		t.Errorf("page after currency change = %d, want 1", got)
	}

	// Unchanged setters must not reset pagination.
	o.SetPage(3)
	o.SetCoordinate(o.Query().Coordinate, o.Query().RadiusKm)
	o.SetFilters(o.Query().Filters)
	o.SetCurrency("EUR", "GBP", nil)
	if got := o.Query().Page; got != 3 {
		t.Errorf("page after no-op setters = %d, want 3", got)
	}
}

func TestOrchestrator_FilterEqualityIsSetEquality(t *testing.T) {
	q := initialQuery()
	q.Filters = domain.FilterState{Currencies: []string{"USD", "GBP"}}
	o := usecases.NewOrchestrator(&mockSearcher{}, nil, 0, q)
	o.SetPage(2)

	// Same set, different order: not a change.
	o.SetFilters(domain.FilterState{Currencies: []string{"GBP", "USD"}})
	if got := o.Query().Page; got != 2 {
		t.Errorf("page after reordered filters = %d, want 2", got)
	}
}

func TestOrchestrator_ExplicitForcesPageOne(t *testing.T) {
	o := usecases.NewOrchestrator(&mockSearcher{}, nil, 0, initialQuery())
	o.SetPage(4)

	job := o.Dispatch(usecases.TriggerExplicit)
	if job == nil {
		t.Fatal("explicit dispatch returned nil")
	}
	if job.Query.Page != 1 {
		t.Errorf("explicit job page = %d, want 1", job.Query.Page)
	}
}

func TestOrchestrator_PageChangePreservesQueryFields(t *testing.T) {
	rate := 1.09
	q := initialQuery()
	q.TargetRate = &rate
	q.Filters = domain.FilterState{OpenNow: true, Currencies: []string{"USD"}}
	o := usecases.NewOrchestrator(&mockSearcher{}, nil, 0, q)

	o.SetPage(2)
	job := o.Dispatch(usecases.TriggerPageChange)
	if job == nil {
		t.Fatal("page-change dispatch returned nil")
	}
	if job.Query.Page != 2 {
		t.Errorf("job page = %d, want 2", job.Query.Page)
	}
	if !job.Query.EqualIgnoringPage(q) {
		t.Errorf("page change mutated query fields: %+v", job.Query)
	}
}

func TestOrchestrator_FailureKeepsCommittedState(t *testing.T) {
	searcher := &mockSearcher{}
	o := usecases.NewOrchestrator(searcher, nil, 0, initialQuery())
	ctx := context.Background()

	job := o.Dispatch(usecases.TriggerExplicit)
	o.Apply(o.Execute(ctx, *job))
	committed := *o.LastCommitted()

	searcher.nearbyFn = func(ctx context.Context, query domain.SearchQuery) (*domain.ResultPage, error) {
		return nil, errors.New("upstream 502")
	}
	o.SetCoordinate(domain.Coordinate{Lat: 48.8566, Lng: 2.3522}, 3.0)
	job = o.Dispatch(usecases.TriggerPassive)

	page, applied, err := o.Apply(o.Execute(ctx, *job))
	if applied || page != nil {
		t.Errorf("failed completion applied: page=%v applied=%v", page, applied)
	}
	if err == nil {
		t.Fatal("expected the upstream error to surface")
	}
	if o.Loading() {
		t.Error("failure must settle the loading state")
	}
	if got := *o.LastCommitted(); !got.Equal(committed) {
		t.Errorf("failure mutated the last committed query: %+v", got)
	}
}

func TestOrchestrator_ServerAuthoritativePageCounters(t *testing.T) {
	searcher := &mockSearcher{
		nearbyFn: func(ctx context.Context, query domain.SearchQuery) (*domain.ResultPage, error) {
			// Client asked for page 9 of a 2-page result set; server clamps.
			return &domain.ResultPage{CurrentPage: 2, TotalPages: 2}, nil
		},
	}
	o := usecases.NewOrchestrator(searcher, nil, 0, initialQuery())
	o.SetPage(9)

	job := o.Dispatch(usecases.TriggerPageChange)
	page, applied, err := o.Apply(o.Execute(context.Background(), *job))
	if !applied || err != nil {
		t.Fatalf("apply: applied=%v err=%v", applied, err)
	}
	if page.CurrentPage != 2 {
		t.Errorf("page = %d, want 2", page.CurrentPage)
	}
	if o.Query().Page != 2 {
		t.Errorf("committed query page = %d, want server's 2", o.Query().Page)
	}
}

func TestOrchestrator_CacheReadThrough(t *testing.T) {
	cached := &domain.ResultPage{
		Offices:     []domain.Office{{ID: "off-1", Name: "Cached Exchange"}},
		TotalCount:  1,
		CurrentPage: 1,
		TotalPages:  1,
	}
	payload, err := json.Marshal(cached)
	if err != nil {
		t.Fatal(err)
	}

	var setKeys []string
	searcher := &mockSearcher{}
	cache := &mockCache{
		getFn: func(ctx context.Context, key string) ([]byte, error) {
			if key == initialQuery().CacheKey() {
				return payload, nil
			}
			return nil, errors.New("miss")
		},
		setFn: func(ctx context.Context, key string, value []byte, ttlSeconds int) error {
			setKeys = append(setKeys, key)
			return nil
		},
	}
	o := usecases.NewOrchestrator(searcher, cache, 60, initialQuery())
	ctx := context.Background()

	// Hit: upstream never called.
	comp := o.Execute(ctx, *o.Dispatch(usecases.TriggerExplicit))
	if searcher.calls != 0 {
		t.Errorf("upstream called %d times on a cache hit", searcher.calls)
	}
	if comp.Page == nil || len(comp.Page.Offices) != 1 || comp.Page.Offices[0].ID != "off-1" {
		t.Errorf("cached page not returned: %+v", comp.Page)
	}
	o.Apply(comp)

	// Miss: upstream called and the result written back.
	o.SetCoordinate(domain.Coordinate{Lat: 40.4168, Lng: -3.7038}, 5.0)
	o.Apply(o.Execute(ctx, *o.Dispatch(usecases.TriggerPassive)))
	if searcher.calls != 1 {
		t.Errorf("upstream calls = %d, want 1", searcher.calls)
	}
	if len(setKeys) != 1 {
		t.Fatalf("cache writes = %d, want 1", len(setKeys))
	}
	if setKeys[0] == initialQuery().CacheKey() {
		t.Error("cache write reused the old query's key")
	}
}
