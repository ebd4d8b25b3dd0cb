package usecases

import (
	"github.com/dmontero/cambiomap/internal/core/domain"
)

// MarkerLayer keeps exactly one marker per office in the current result page
// and owns the shared hover/selection value. Surfaces receive diffs: markers
// for surviving offices are updated in place, never destroyed and recreated,
// so local highlight state and the marker element survive page replacements.
type MarkerLayer struct {
	markers map[string]domain.Marker
	hover   *string
}

// NewMarkerLayer creates an empty layer.
func NewMarkerLayer() *MarkerLayer {
	return &MarkerLayer{markers: make(map[string]domain.Marker)}
}

// Hover returns the currently hovered office id, or nil.
func (l *MarkerLayer) Hover() *string {
	return l.hover
}

// Markers returns a snapshot of the current marker table.
func (l *MarkerLayer) Markers() []domain.Marker {
	out := make([]domain.Marker, 0, len(l.markers))
	for _, m := range l.markers {
		out = append(out, m)
	}
	return out
}

// Replace swaps the marker table to match a new result page. Offices whose
// coordinate is the (0,0) sentinel are pinned at the search center instead
// of the literal origin. A hover pointing at an office that vanished is
// cleared.
func (l *MarkerLayer) Replace(page *domain.ResultPage, searchCenter domain.Coordinate) domain.MarkerDiff {
	var diff domain.MarkerDiff
	next := make(map[string]domain.Marker, len(page.Offices))

	for _, office := range page.Offices {
		loc := office.Location
		if loc.IsZero() {
			loc = searchCenter
		}

		m := domain.Marker{
			OfficeID:    office.ID,
			Location:    loc,
			Highlighted: l.hover != nil && *l.hover == office.ID,
			OpenNow:     office.OpenNow,
			Best:        office.Best,
		}
		next[office.ID] = m

		if prev, ok := l.markers[office.ID]; ok {
			if prev != m {
				diff.Updated = append(diff.Updated, m)
			}
		} else {
			diff.Added = append(diff.Added, m)
		}
	}

	for id := range l.markers {
		if _, ok := next[id]; !ok {
			diff.RemovedIDs = append(diff.RemovedIDs, id)
		}
	}

	if l.hover != nil {
		if _, ok := next[*l.hover]; !ok {
			l.hover = nil
		}
	}

	l.markers = next
	return diff
}

// SetHover moves the shared hover/selection value. Last write wins. The
// returned diff carries only highlight re-renders of existing markers, and
// changed reports whether the hover value actually moved.
func (l *MarkerLayer) SetHover(id *string) (domain.MarkerDiff, bool) {
	var diff domain.MarkerDiff

	if equalID(l.hover, id) {
		return diff, false
	}

	if l.hover != nil {
		if m, ok := l.markers[*l.hover]; ok {
			m.Highlighted = false
			l.markers[*l.hover] = m
			diff.Updated = append(diff.Updated, m)
		}
	}

	l.hover = nil
	if id != nil {
		if m, ok := l.markers[*id]; ok {
			m.Highlighted = true
			l.markers[*id] = m
			diff.Updated = append(diff.Updated, m)
		}
		v := *id
		l.hover = &v
	}

	return diff, true
}

func equalID(a, b *string) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || *a == *b
}
