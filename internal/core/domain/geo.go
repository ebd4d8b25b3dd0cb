package domain

// Coordinate represents a geographic coordinate (WGS 84).
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// IsZero reports whether the coordinate is the (0,0) sentinel used by the
// upstream API for offices without a recorded location.
func (c Coordinate) IsZero() bool {
	return c.Lat == 0 && c.Lng == 0
}

// Bounds represents a geographic bounding box. It is a read-only snapshot of
// the map camera; callers must never mutate it in place.
type Bounds struct {
	SouthWest Coordinate `json:"south_west"`
	NorthEast Coordinate `json:"north_east"`
}

// MoveOrigin tells whether a camera move was started by the user or by code.
type MoveOrigin string

const (
	OriginUser         MoveOrigin = "user"
	OriginProgrammatic MoveOrigin = "programmatic"
)

// MoveEvent is one discrete camera settle, produced once per settle rather
// than per animation frame.
type MoveEvent struct {
	Center Coordinate `json:"center"`
	Bounds Bounds     `json:"bounds"`
	Origin MoveOrigin `json:"origin"`
	Cause  string     `json:"cause,omitempty"`
}
