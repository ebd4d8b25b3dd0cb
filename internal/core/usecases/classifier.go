package usecases

import (
	"time"

	"github.com/dmontero/cambiomap/internal/core/domain"
	"github.com/dmontero/cambiomap/internal/pkg/geospatial"
)

// RawMove is one "move settled" notification from the map surface, before
// classification.
type RawMove struct {
	Center domain.Coordinate
	Bounds domain.Bounds
	Origin domain.MoveOrigin
	Cause  string
}

// MovementPolicy are the tunable thresholds for deciding whether a settled
// camera move warrants a new search.
type MovementPolicy struct {
	CenterShiftFraction float64
	MinShiftMeters      float64
	SizeChangeRatio     float64
	QuietPeriod         time.Duration
}

// Verdict is the outcome of classifying a settled move.
type Verdict string

const (
	VerdictForwarded     Verdict = "forwarded"
	VerdictProgrammatic  Verdict = "programmatic"
	VerdictInsignificant Verdict = "insignificant"
	VerdictNone          Verdict = "none"
)

// MoveClassifier turns raw camera motion into discrete, causally labeled
// move events. All state is instance-owned; other components see only the
// evaluated results, never the raw flags.
type MoveClassifier struct {
	policy MovementPolicy

	timer   *time.Timer
	pending *RawMove
	latest  *RawMove

	// Bounds at the last committed search. Nil until the first commit, so
	// the first user move is always significant.
	committed *domain.Bounds
}

// NewMoveClassifier creates a classifier with the given policy.
func NewMoveClassifier(policy MovementPolicy) *MoveClassifier {
	return &MoveClassifier{policy: policy}
}

// Observe coalesces a raw move notification. Evaluation happens only after
// motion has stayed quiet for the policy's debounce window; each new raw
// move restarts the single-shot timer.
func (c *MoveClassifier) Observe(raw RawMove) {
	c.pending = &raw
	c.latest = &raw

	if c.timer == nil {
		c.timer = time.NewTimer(c.policy.QuietPeriod)
		return
	}
	if !c.timer.Stop() {
		select {
		case <-c.timer.C:
		default:
		}
	}
	c.timer.Reset(c.policy.QuietPeriod)
}

// Settled returns the channel that fires once motion has been quiet long
// enough to evaluate. Nil (blocks forever) before the first Observe.
func (c *MoveClassifier) Settled() <-chan time.Time {
	if c.timer == nil {
		return nil
	}
	return c.timer.C
}

// Evaluate classifies the pending move. Programmatic moves are never
// forwarded, which is what breaks the fetch → recenter → fetch loop; user
// moves are forwarded only when significant. The computed search radius is
// returned alongside the event so downstream consumers never recompute it
// from stale bounds.
func (c *MoveClassifier) Evaluate() (*domain.MoveEvent, float64, Verdict) {
	raw := c.pending
	c.pending = nil
	if raw == nil {
		return nil, 0, VerdictNone
	}

	if raw.Origin == domain.OriginProgrammatic {
		return nil, 0, VerdictProgrammatic
	}
	if !c.Significant(raw.Bounds) {
		return nil, 0, VerdictInsignificant
	}

	ev := &domain.MoveEvent{
		Center: raw.Center,
		Bounds: raw.Bounds,
		Origin: raw.Origin,
		Cause:  raw.Cause,
	}
	return ev, geospatial.RadiusFromBounds(raw.Bounds), VerdictForwarded
}

// ForceEvaluate builds a move event from the latest observed viewport,
// bypassing both origin and significance checks. Used when the user commits
// a search explicitly.
func (c *MoveClassifier) ForceEvaluate() (*domain.MoveEvent, float64, bool) {
	raw := c.latest
	c.pending = nil
	if raw == nil {
		return nil, 0, false
	}

	ev := &domain.MoveEvent{
		Center: raw.Center,
		Bounds: raw.Bounds,
		Origin: raw.Origin,
		Cause:  "forced",
	}
	return ev, geospatial.RadiusFromBounds(raw.Bounds), true
}

// Significant applies the threshold policy against the bounds at the last
// commit. Pure with respect to the classifier's committed bounds: repeated
// evaluation of the same pair yields the same verdict.
func (c *MoveClassifier) Significant(n domain.Bounds) bool {
	if c.committed == nil {
		return true
	}

	lastDiag := geospatial.Diagonal(*c.committed)
	if lastDiag == 0 {
		return true
	}

	centerShift := geospatial.Distance(geospatial.Center(n), geospatial.Center(*c.committed))
	shiftThreshold := lastDiag * c.policy.CenterShiftFraction
	if shiftThreshold < c.policy.MinShiftMeters {
		shiftThreshold = c.policy.MinShiftMeters
	}
	if centerShift > shiftThreshold {
		return true
	}

	sizeChange := geospatial.Diagonal(n) - lastDiag
	if sizeChange < 0 {
		sizeChange = -sizeChange
	}
	return sizeChange/lastDiag > c.policy.SizeChangeRatio
}

// Commit records the viewport bounds of a search that actually committed;
// future significance checks compare against them.
func (c *MoveClassifier) Commit(b domain.Bounds) {
	bounds := b
	c.committed = &bounds
}

// Stop releases the debounce timer. Must be called on session teardown so a
// late fire cannot write state after the loop exits.
func (c *MoveClassifier) Stop() {
	if c.timer != nil {
		c.timer.Stop()
	}
}
