package domain

// Rate is one quoted exchange rate at an office.
type Rate struct {
	BaseCurrency   string  `json:"base_currency"`
	TargetCurrency string  `json:"target_currency"`
	Buy            float64 `json:"buy"`
	Sell           float64 `json:"sell"`
}

// Office is a result row from the nearby search. Beyond id, location,
// open-state and the best flag the payload is opaque to the gateway; it is
// relayed to the surfaces as-is.
type Office struct {
	ID       string     `json:"id"`
	Name     string     `json:"name,omitempty"`
	Location Coordinate `json:"location"`
	Rates    []Rate     `json:"rates,omitempty"`
	OpenNow  bool       `json:"open_now"`
	Best     bool       `json:"best"`
	Distance *float64   `json:"distance,omitempty"` // computed field, meters
}

// ResultPage is one page of nearby-search results. It replaces, never merges
// with, the previously held page.
type ResultPage struct {
	Offices     []Office `json:"offices"`
	TotalCount  int      `json:"total_count"`
	CurrentPage int      `json:"current_page"`
	TotalPages  int      `json:"total_pages"`
}

// OfficeIDs returns the id set of the page, in result order.
func (p *ResultPage) OfficeIDs() []string {
	ids := make([]string, 0, len(p.Offices))
	for _, o := range p.Offices {
		ids = append(ids, o.ID)
	}
	return ids
}

// Marker is the visual handle for one office on the map. Its lifecycle is
// bound 1:1 to the presence of the office in the current result page.
type Marker struct {
	OfficeID    string     `json:"office_id"`
	Location    Coordinate `json:"location"`
	Highlighted bool       `json:"highlighted"`
	OpenNow     bool       `json:"open_now"`
	Best        bool       `json:"best"`
}

// MarkerDiff describes the marker table transition after a page replacement
// or a hover change. Updated carries in-place re-renders of surviving
// markers so surfaces never destroy-and-recreate them.
type MarkerDiff struct {
	Added      []Marker `json:"added,omitempty"`
	Updated    []Marker `json:"updated,omitempty"`
	RemovedIDs []string `json:"removed_ids,omitempty"`
}

// Empty reports whether the diff changes nothing.
func (d MarkerDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Updated) == 0 && len(d.RemovedIDs) == 0
}
