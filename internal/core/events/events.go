package events

import "github.com/dmontero/cambiomap/internal/core/domain"

// Event is the interface for all session events flowing to the presentation
// surfaces. The marker method keeps the set closed.
type Event interface {
	sessionEvent()
}

// ViewportMoved is a classified, forwarded camera move.
type ViewportMoved struct {
	Move     domain.MoveEvent `json:"move"`
	RadiusKm float64          `json:"radius_km"`
}

func (ViewportMoved) sessionEvent() {}

// SearchCommitted is emitted when the orchestrator issues a request.
type SearchCommitted struct {
	Query  domain.SearchQuery `json:"query"`
	Forced bool               `json:"forced"`
}

func (SearchCommitted) sessionEvent() {}

// ResultsReady carries a freshly applied result page.
type ResultsReady struct {
	Page domain.ResultPage `json:"page"`
}

func (ResultsReady) sessionEvent() {}

// MarkersChanged carries the marker table transition after a page
// replacement or a hover change.
type MarkersChanged struct {
	Diff domain.MarkerDiff `json:"diff"`
}

func (MarkersChanged) sessionEvent() {}

// HoverChanged carries the shared hover/selection value. Nil means nothing
// is hovered.
type HoverChanged struct {
	OfficeID *string `json:"office_id"`
}

func (HoverChanged) sessionEvent() {}

// LoadingChanged reflects whether the latest-issued request is in flight.
type LoadingChanged struct {
	Loading bool `json:"loading"`
}

func (LoadingChanged) sessionEvent() {}

// SearchFailed signals a transient failure; previously shown results stay.
type SearchFailed struct {
	Reason string `json:"reason"`
}

func (SearchFailed) sessionEvent() {}

// CameraMove asks the map surface to recenter programmatically.
type CameraMove struct {
	Center   domain.Coordinate `json:"center"`
	KeepZoom bool              `json:"keep_zoom"`
	Cause    string            `json:"cause,omitempty"`
}

func (CameraMove) sessionEvent() {}

// PageChanged is emitted after a page-change fetch applies.
type PageChanged struct {
	Page int `json:"page"`
}

func (PageChanged) sessionEvent() {}

// AutoOpen asks the surfaces to open the detail card of an office. Emitted
// at most once per session.
type AutoOpen struct {
	OfficeID string `json:"office_id"`
}

func (AutoOpen) sessionEvent() {}

// URLStateChanged carries the encoded query parameters the client should
// mirror into the page URL.
type URLStateChanged struct {
	Query string `json:"query"`
}

func (URLStateChanged) sessionEvent() {}
