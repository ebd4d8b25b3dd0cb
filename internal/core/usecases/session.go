package usecases

import (
	"context"
	"log/slog"
	"math"

	"github.com/dmontero/cambiomap/internal/core/domain"
	"github.com/dmontero/cambiomap/internal/core/events"
	"github.com/dmontero/cambiomap/internal/core/ports"
	"github.com/dmontero/cambiomap/internal/pkg/geospatial"
	"github.com/dmontero/cambiomap/internal/pkg/metrics"
)

// SessionConfig carries the per-session defaults.
type SessionConfig struct {
	DefaultCenter   domain.Coordinate
	DefaultRadiusKm float64
	BaseCurrency    string
	TargetCurrency  string
	PageSize        int
	ShowBestOffice  bool
}

// Session is one map-search session: a single goroutine owning the
// classifier, orchestrator, marker layer and page controller, fed by
// command and completion channels. Every suspension point (upstream search,
// geocoding) runs in its own goroutine and posts back into the loop, so all
// state mutation is serialized without locks.
type Session struct {
	classifier *MoveClassifier
	orch       *Orchestrator
	markers    *MarkerLayer
	pager      *PageController
	bus        *events.Bus

	geocoder  ports.Geocoder
	publisher ports.EventPublisher // optional

	cfg SessionConfig

	cmds        chan command
	completions chan Completion
	done        chan struct{}

	// Viewport bounds per issued token, committed into the classifier only
	// when the corresponding fetch applies.
	jobBounds map[uint64]*domain.Bounds

	locationName string
	amount       float64
}

type command interface{ sessionCommand() }

type cmdBootstrap struct{ rawQuery string }
type cmdMove struct{ raw RawMove }
type cmdCommit struct{}
type cmdPage struct{ page int }
type cmdFilters struct{ filters domain.FilterState }
type cmdCurrency struct {
	base, target string
	rate         *float64
}
type cmdHover struct{ officeID *string }
type cmdPlace struct{ text string }
type cmdPlaceResolved struct {
	coord domain.Coordinate
	name  string
	err   error
}

func (cmdBootstrap) sessionCommand()     {}
func (cmdMove) sessionCommand()          {}
func (cmdCommit) sessionCommand()        {}
func (cmdPage) sessionCommand()          {}
func (cmdFilters) sessionCommand()       {}
func (cmdCurrency) sessionCommand()      {}
func (cmdHover) sessionCommand()         {}
func (cmdPlace) sessionCommand()         {}
func (cmdPlaceResolved) sessionCommand() {}

// NewSession wires a session. searcher is required; cache, geocoder and
// publisher may be nil.
func NewSession(
	searcher ports.OfficeSearcher,
	cache ports.CacheService,
	cacheTTLSeconds int,
	geocoder ports.Geocoder,
	publisher ports.EventPublisher,
	policy MovementPolicy,
	cfg SessionConfig,
) *Session {
	initial := domain.SearchQuery{
		Coordinate:     cfg.DefaultCenter,
		RadiusKm:       cfg.DefaultRadiusKm,
		BaseCurrency:   cfg.BaseCurrency,
		TargetCurrency: cfg.TargetCurrency,
		Page:           1,
		PageSize:       cfg.PageSize,
	}

	return &Session{
		classifier:  NewMoveClassifier(policy),
		orch:        NewOrchestrator(searcher, cache, cacheTTLSeconds, initial),
		markers:     NewMarkerLayer(),
		pager:       NewPageController(cfg.ShowBestOffice),
		bus:         events.NewBus(),
		geocoder:    geocoder,
		publisher:   publisher,
		cfg:         cfg,
		cmds:        make(chan command, 16),
		completions: make(chan Completion, 4),
		done:        make(chan struct{}),
		jobBounds:   make(map[uint64]*domain.Bounds),
	}
}

// Events subscribes to the session's event stream.
func (s *Session) Events(buffer int) (<-chan events.Event, func()) {
	return s.bus.Subscribe(buffer)
}

// Bootstrap restores a search from mirrored URL query parameters.
func (s *Session) Bootstrap(rawQuery string) { s.enqueue(cmdBootstrap{rawQuery: rawQuery}) }

// Move feeds one settled camera move from the map surface.
func (s *Session) Move(raw RawMove) { s.enqueue(cmdMove{raw: raw}) }

// Commit is the explicit "Check Rates" action.
func (s *Session) Commit() { s.enqueue(cmdCommit{}) }

// GoToPage requests pure pagination.
func (s *Session) GoToPage(page int) { s.enqueue(cmdPage{page: page}) }

// SetFilters replaces the search filters.
func (s *Session) SetFilters(f domain.FilterState) { s.enqueue(cmdFilters{filters: f}) }

// SetCurrency changes the currency pair and optional target rate.
func (s *Session) SetCurrency(base, target string, rate *float64) {
	s.enqueue(cmdCurrency{base: base, target: target, rate: rate})
}

// Hover moves the shared hover/selection value.
func (s *Session) Hover(officeID *string) { s.enqueue(cmdHover{officeID: officeID}) }

// GoToPlace resolves a free-text place and recenters the search on it.
func (s *Session) GoToPlace(text string) { s.enqueue(cmdPlace{text: text}) }

func (s *Session) enqueue(c command) {
	select {
	case s.cmds <- c:
	case <-s.done:
	}
}

// Run drives the session until ctx is cancelled. It must be called exactly
// once.
func (s *Session) Run(ctx context.Context) {
	defer close(s.done)
	defer s.classifier.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-s.cmds:
			s.handle(ctx, cmd)
		case <-s.classifier.Settled():
			s.settle(ctx)
		case comp := <-s.completions:
			s.complete(ctx, comp)
		}
	}
}

func (s *Session) handle(ctx context.Context, cmd command) {
	switch c := cmd.(type) {
	case cmdBootstrap:
		s.bootstrap(ctx, c.rawQuery)
	case cmdMove:
		s.classifier.Observe(c.raw)
	case cmdCommit:
		var bounds *domain.Bounds
		if ev, radius, ok := s.classifier.ForceEvaluate(); ok {
			s.orch.SetCoordinate(ev.Center, radius)
			bounds = &ev.Bounds
		}
		s.launch(ctx, s.orch.Dispatch(TriggerExplicit), bounds, true)
	case cmdPage:
		if !s.pager.GoToPage(c.page) {
			return
		}
		s.orch.SetPage(c.page)
		s.launch(ctx, s.orch.Dispatch(TriggerPageChange), nil, false)
	case cmdFilters:
		s.orch.SetFilters(c.filters)
		s.launch(ctx, s.orch.Dispatch(TriggerPassive), nil, false)
	case cmdCurrency:
		s.orch.SetCurrency(c.base, c.target, c.rate)
		s.launch(ctx, s.orch.Dispatch(TriggerPassive), nil, false)
	case cmdHover:
		diff, changed := s.markers.SetHover(c.officeID)
		if !changed {
			return
		}
		s.bus.Publish(events.HoverChanged{OfficeID: s.markers.Hover()})
		if !diff.Empty() {
			s.bus.Publish(events.MarkersChanged{Diff: diff})
		}
	case cmdPlace:
		s.resolvePlace(ctx, c.text)
	case cmdPlaceResolved:
		s.placeResolved(ctx, c)
	}
}

// settle fires when camera motion has been quiet long enough.
func (s *Session) settle(ctx context.Context) {
	ev, radius, verdict := s.classifier.Evaluate()
	metrics.MovesEvaluated.WithLabelValues(string(verdict)).Inc()
	if verdict != VerdictForwarded {
		return
	}

	s.bus.Publish(events.ViewportMoved{Move: *ev, RadiusKm: radius})
	s.orch.SetCoordinate(ev.Center, radius)
	s.launch(ctx, s.orch.Dispatch(TriggerPassive), &ev.Bounds, false)
}

// launch issues a fetch job, or records the skip when dispatch declined.
func (s *Session) launch(ctx context.Context, job *Job, bounds *domain.Bounds, forced bool) {
	if job == nil {
		metrics.SearchesSkipped.WithLabelValues("unchanged").Inc()
		return
	}

	if bounds == nil {
		// Synthesize commit bounds from center+radius when the trigger did
		// not originate from a camera move. Scaled so half the box diagonal
		// equals the radius, keeping the significance baseline consistent
		// with bounds derived the other way around.
		b := geospatial.BoundingBox(job.Query.Coordinate, job.Query.RadiusKm*1000/math.Sqrt2)
		bounds = &b
	}
	s.jobBounds[job.Token] = bounds

	metrics.SearchesIssued.WithLabelValues(string(job.Trigger)).Inc()
	s.bus.Publish(events.SearchCommitted{Query: job.Query, Forced: forced})
	s.bus.Publish(events.LoadingChanged{Loading: true})

	if s.publisher != nil {
		query := job.Query
		go func() {
			if err := s.publisher.PublishSearchCommitted(ctx, query); err != nil {
				slog.Debug("publish search committed", "error", err)
			}
		}()
	}

	go func(job Job) {
		comp := s.orch.Execute(ctx, job)
		select {
		case s.completions <- comp:
		case <-ctx.Done():
		}
	}(*job)
}

// complete applies one fetch completion in token order.
func (s *Session) complete(ctx context.Context, comp Completion) {
	page, applied, err := s.orch.Apply(comp)

	if !applied && err == nil {
		// A newer request superseded this one; not surfaced at all.
		metrics.StaleResponsesDropped.Inc()
		if comp.Trigger == TriggerPageChange {
			s.pager.CancelPending()
		}
		delete(s.jobBounds, comp.Token)
		return
	}

	s.bus.Publish(events.LoadingChanged{Loading: s.orch.Loading()})

	if err != nil {
		// Stale-but-valid data beats blanking the screen: previous page
		// and committed query stay as they were.
		metrics.SearchFailures.Inc()
		slog.Warn("nearby search failed", "error", err, "trigger", comp.Trigger)
		s.bus.Publish(events.SearchFailed{Reason: err.Error()})
		if comp.Trigger == TriggerPageChange {
			s.pager.CancelPending()
		}
		delete(s.jobBounds, comp.Token)
		return
	}

	if b := s.jobBounds[comp.Token]; b != nil {
		s.classifier.Commit(*b)
	}
	delete(s.jobBounds, comp.Token)

	s.bus.Publish(events.ResultsReady{Page: *page})

	hadHover := s.markers.Hover()
	diff := s.markers.Replace(page, s.orch.Query().Coordinate)
	metrics.MarkerOps.WithLabelValues("add").Add(float64(len(diff.Added)))
	metrics.MarkerOps.WithLabelValues("update").Add(float64(len(diff.Updated)))
	metrics.MarkerOps.WithLabelValues("remove").Add(float64(len(diff.RemovedIDs)))
	if !diff.Empty() {
		s.bus.Publish(events.MarkersChanged{Diff: diff})
	}
	if hadHover != nil && s.markers.Hover() == nil {
		// The hovered office left the page; surfaces must drop it too.
		s.bus.Publish(events.HoverChanged{OfficeID: nil})
	}

	prevPage := s.pager.CurrentPage()
	upd := s.pager.Apply(page, comp.Trigger == TriggerPageChange)
	if page.CurrentPage != prevPage {
		s.bus.Publish(events.PageChanged{Page: page.CurrentPage})
	}

	if upd.Recenter {
		if center, ok := s.markerCentroid(); ok {
			s.bus.Publish(events.CameraMove{Center: center, KeepZoom: true, Cause: "page-change"})
		}
	}

	if upd.AutoOpenID != "" {
		id := upd.AutoOpenID
		hoverDiff, changed := s.markers.SetHover(&id)
		if changed {
			s.bus.Publish(events.HoverChanged{OfficeID: s.markers.Hover()})
			if !hoverDiff.Empty() {
				s.bus.Publish(events.MarkersChanged{Diff: hoverDiff})
			}
		}
		s.bus.Publish(events.AutoOpen{OfficeID: id})
	}

	if s.publisher != nil {
		query, result := comp.Query, *page
		go func() {
			if err := s.publisher.PublishResultsReady(ctx, query, &result); err != nil {
				slog.Debug("publish results ready", "error", err)
			}
		}()
	}

	s.publishURLState()
}

func (s *Session) bootstrap(ctx context.Context, rawQuery string) {
	vs, err := domain.ParseViewState(rawQuery)
	if err != nil {
		slog.Debug("unparseable bootstrap params", "error", err)
		vs = domain.ViewState{}
	}

	base, target := s.cfg.BaseCurrency, s.cfg.TargetCurrency
	if vs.BaseCurrency != "" {
		base = vs.BaseCurrency
	}
	if vs.TargetCurrency != "" {
		target = vs.TargetCurrency
	}
	s.orch.SetCurrency(base, target, nil)
	s.amount = vs.Amount
	s.locationName = vs.LocationName

	switch {
	case vs.Coordinate != nil:
		// lat/lng beat a bare place name when both are present.
		s.recenter(ctx, *vs.Coordinate, "bootstrap")
	case vs.LocationName != "":
		s.resolvePlace(ctx, vs.LocationName)
	default:
		s.recenter(ctx, s.cfg.DefaultCenter, "bootstrap")
	}
}

// recenter moves the search to a programmatically chosen coordinate: the
// camera move it requests is origin-tagged programmatic, so its echo from
// the map surface never triggers a second fetch.
func (s *Session) recenter(ctx context.Context, c domain.Coordinate, cause string) {
	s.orch.SetCoordinate(c, s.cfg.DefaultRadiusKm)
	s.bus.Publish(events.CameraMove{Center: c, KeepZoom: false, Cause: cause})
	s.launch(ctx, s.orch.Dispatch(TriggerPassive), nil, false)
	s.publishURLState()
}

func (s *Session) resolvePlace(ctx context.Context, text string) {
	if s.geocoder == nil {
		s.placeResolved(ctx, cmdPlaceResolved{coord: s.cfg.DefaultCenter, name: text})
		return
	}

	go func() {
		coord, err := s.geocoder.Geocode(ctx, text)
		select {
		case s.cmds <- cmdPlaceResolved{coord: coord, name: text, err: err}:
		case <-ctx.Done():
		case <-s.done:
		}
	}()
}

func (s *Session) placeResolved(ctx context.Context, c cmdPlaceResolved) {
	coord := c.coord
	if c.err != nil {
		metrics.GeocodeFailures.Inc()
		slog.Warn("geocoding failed, using fallback center", "place", c.name, "error", c.err)
		// Last-known-good coordinate rather than blocking the search.
		coord = s.orch.Query().Coordinate
		if coord.IsZero() {
			coord = s.cfg.DefaultCenter
		}
	} else {
		s.locationName = c.name
	}

	s.recenter(ctx, coord, "place-accepted")
}

func (s *Session) publishURLState() {
	q := s.orch.Query()
	vs := domain.ViewState{
		Coordinate:     &q.Coordinate,
		LocationName:   s.locationName,
		BaseCurrency:   q.BaseCurrency,
		TargetCurrency: q.TargetCurrency,
		Amount:         s.amount,
	}
	s.bus.Publish(events.URLStateChanged{Query: vs.Encode().Encode()})
}

func (s *Session) markerCentroid() (domain.Coordinate, bool) {
	markers := s.markers.Markers()
	if len(markers) == 0 {
		return domain.Coordinate{}, false
	}

	var lat, lng float64
	for _, m := range markers {
		lat += m.Location.Lat
		lng += m.Location.Lng
	}
	n := float64(len(markers))
	return domain.Coordinate{Lat: lat / n, Lng: lng / n}, true
}
