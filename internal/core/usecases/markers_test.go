package usecases_test

import (
	"testing"

	"github.com/dmontero/cambiomap/internal/core/domain"
	"github.com/dmontero/cambiomap/internal/core/usecases"
)

func resultPage(offices ...domain.Office) *domain.ResultPage {
	return &domain.ResultPage{
		Offices:     offices,
		TotalCount:  len(offices),
		CurrentPage: 1,
		TotalPages:  1,
	}
}

func office(id string, lat, lng float64) domain.Office {
	return domain.Office{ID: id, Name: id, Location: domain.Coordinate{Lat: lat, Lng: lng}}
}

func strptr(s string) *string { return &s }

func TestMarkerLayer_OneMarkerPerOffice(t *testing.T) {
	l := usecases.NewMarkerLayer()
	center := domain.Coordinate{Lat: 43.263, Lng: -2.935}

	diff := l.Replace(resultPage(
		office("a", 43.26, -2.93),
		office("b", 43.27, -2.94),
	), center)
	if len(diff.Added) != 2 || len(diff.Updated) != 0 || len(diff.RemovedIDs) != 0 {
		t.Fatalf("unexpected diff: %+v", diff)
	}

	// New page: a survives, b vanishes, c appears.
	diff = l.Replace(resultPage(
		office("a", 43.26, -2.93),
		office("c", 43.28, -2.95),
	), center)
	if len(diff.Added) != 1 || diff.Added[0].OfficeID != "c" {
		t.Errorf("added = %+v, want only c", diff.Added)
	}
	if len(diff.RemovedIDs) != 1 || diff.RemovedIDs[0] != "b" {
		t.Errorf("removed = %v, want only b", diff.RemovedIDs)
	}
	// a is unchanged, so it must not be re-emitted at all.
	if len(diff.Updated) != 0 {
		t.Errorf("updated = %+v, want none", diff.Updated)
	}

	if got := len(l.Markers()); got != 2 {
		t.Errorf("marker count = %d, want 2", got)
	}
}

func TestMarkerLayer_SurvivorUpdatedInPlace(t *testing.T) {
	l := usecases.NewMarkerLayer()
	center := domain.Coordinate{Lat: 43.263, Lng: -2.935}

	l.Replace(resultPage(office("a", 43.26, -2.93)), center)

	moved := office("a", 43.261, -2.931)
	moved.OpenNow = true
	diff := l.Replace(resultPage(moved), center)

	if len(diff.Added) != 0 || len(diff.RemovedIDs) != 0 {
		t.Errorf("survivor was recreated: %+v", diff)
	}
	if len(diff.Updated) != 1 || diff.Updated[0].OfficeID != "a" || !diff.Updated[0].OpenNow {
		t.Errorf("updated = %+v", diff.Updated)
	}
}

func TestMarkerLayer_ZeroCoordinatePinnedAtSearchCenter(t *testing.T) {
	l := usecases.NewMarkerLayer()
	center := domain.Coordinate{Lat: 43.263, Lng: -2.935}

	diff := l.Replace(resultPage(office("ghost", 0, 0)), center)
	if len(diff.Added) != 1 {
		t.Fatalf("diff = %+v", diff)
	}
	if diff.Added[0].Location != center {
		t.Errorf("marker location = %+v, want search center %+v", diff.Added[0].Location, center)
	}
}

func TestMarkerLayer_HoverHighlightOnly(t *testing.T) {
	l := usecases.NewMarkerLayer()
	center := domain.Coordinate{Lat: 43.263, Lng: -2.935}
	l.Replace(resultPage(office("a", 43.26, -2.93), office("b", 43.27, -2.94)), center)

	diff, changed := l.SetHover(strptr("a"))
	if !changed {
		t.Fatal("hover a: changed = false")
	}
	if len(diff.Added) != 0 || len(diff.RemovedIDs) != 0 {
		t.Errorf("hover produced structural changes: %+v", diff)
	}
	if len(diff.Updated) != 1 || !diff.Updated[0].Highlighted {
		t.Errorf("updated = %+v, want highlighted a", diff.Updated)
	}

	// Moving hover a -> b re-renders both: a off, b on.
	diff, changed = l.SetHover(strptr("b"))
	if !changed || len(diff.Updated) != 2 {
		t.Fatalf("hover move diff = %+v changed=%v", diff, changed)
	}

	// Last write wins; same value is a no-op.
	if _, changed := l.SetHover(strptr("b")); changed {
		t.Error("re-hovering the same office reported a change")
	}

	diff, changed = l.SetHover(nil)
	if !changed || l.Hover() != nil {
		t.Errorf("clearing hover: changed=%v hover=%v", changed, l.Hover())
	}
	if len(diff.Updated) != 1 || diff.Updated[0].Highlighted {
		t.Errorf("clear diff = %+v", diff.Updated)
	}
}

func TestMarkerLayer_HoverUnknownOfficeKept(t *testing.T) {
	l := usecases.NewMarkerLayer()
	center := domain.Coordinate{Lat: 43.263, Lng: -2.935}
	l.Replace(resultPage(office("a", 43.26, -2.93)), center)

	// Hover may point at an office from a card list that has no marker yet.
	diff, changed := l.SetHover(strptr("elsewhere"))
	if !changed {
		t.Fatal("hover on unknown office: changed = false")
	}
	if len(diff.Updated) != 0 {
		t.Errorf("diff = %+v, want empty", diff)
	}
	if l.Hover() == nil || *l.Hover() != "elsewhere" {
		t.Errorf("hover = %v", l.Hover())
	}
}

func TestMarkerLayer_HoverClearedWhenOfficeVanishes(t *testing.T) {
	l := usecases.NewMarkerLayer()
	center := domain.Coordinate{Lat: 43.263, Lng: -2.935}
	l.Replace(resultPage(office("a", 43.26, -2.93)), center)
	l.SetHover(strptr("a"))

	l.Replace(resultPage(office("b", 43.27, -2.94)), center)
	if l.Hover() != nil {
		t.Errorf("hover = %v, want nil after the office left the page", l.Hover())
	}
}

func TestMarkerLayer_HoverSurvivesPageReplacement(t *testing.T) {
	l := usecases.NewMarkerLayer()
	center := domain.Coordinate{Lat: 43.263, Lng: -2.935}
	l.Replace(resultPage(office("a", 43.26, -2.93)), center)
	l.SetHover(strptr("a"))

	diff := l.Replace(resultPage(office("a", 43.26, -2.93), office("b", 43.27, -2.94)), center)
	if l.Hover() == nil || *l.Hover() != "a" {
		t.Fatalf("hover = %v, want a", l.Hover())
	}
	for _, m := range diff.Added {
		if m.OfficeID == "a" {
			t.Error("hovered survivor was recreated instead of kept")
		}
	}
	for _, m := range l.Markers() {
		if m.OfficeID == "a" && !m.Highlighted {
			t.Error("survivor lost its highlight across the replacement")
		}
	}
}
