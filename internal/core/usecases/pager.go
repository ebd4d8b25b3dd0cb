package usecases

import (
	"github.com/dmontero/cambiomap/internal/core/domain"
)

// PageController tracks pagination counters and the one-shot "open the best
// office" behavior.
type PageController struct {
	current int
	total   int

	showBest bool
	// The auto-open latch arms once per session; it is consumed by the
	// first non-empty page and never reset, not even by an explicit new
	// search.
	opened bool

	pendingRecenter bool
}

// PageUpdate is what applying a page yields for the surfaces.
type PageUpdate struct {
	// Recenter asks the map to re-center (keeping zoom) on the new page's
	// markers. Set exactly once per accepted page change.
	Recenter bool
	// AutoOpenID is the office whose detail card should open, or empty.
	AutoOpenID string
}

// NewPageController creates a controller; showBest arms the auto-open rule.
func NewPageController(showBest bool) *PageController {
	return &PageController{showBest: showBest}
}

// CurrentPage returns the page the surfaces are on.
func (p *PageController) CurrentPage() int { return p.current }

// TotalPages returns the server-reported page count.
func (p *PageController) TotalPages() int { return p.total }

// GoToPage validates a page-change request. It reports false — a no-op, no
// fetch — for out-of-range targets and for the page already shown.
func (p *PageController) GoToPage(n int) bool {
	if n < 1 || n > p.total || n == p.current {
		return false
	}
	p.pendingRecenter = true
	return true
}

// CancelPending drops a recenter request whose page-change fetch never
// applied, because it failed or a newer request superseded it.
func (p *PageController) CancelPending() {
	p.pendingRecenter = false
}

// Apply ingests an applied result page. Counters come from the server; the
// controller never recomputes them locally. fromPageChange tells whether the
// applied fetch was the page change itself: the recenter request fires only
// then, so an unrelated fetch landing between the click and its completion
// can never trigger it.
func (p *PageController) Apply(page *domain.ResultPage, fromPageChange bool) PageUpdate {
	p.current = page.CurrentPage
	p.total = page.TotalPages

	upd := PageUpdate{Recenter: p.pendingRecenter && fromPageChange}
	p.pendingRecenter = false

	if p.showBest && !p.opened && len(page.Offices) > 0 {
		// The first non-empty page consumes the latch whether or not it
		// contains a best office.
		p.opened = true
		for _, office := range page.Offices {
			if office.Best {
				upd.AutoOpenID = office.ID
				break
			}
		}
	}

	return upd
}
