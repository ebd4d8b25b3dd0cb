package http

import (
	"github.com/dmontero/cambiomap/internal/core/ports"
	"github.com/dmontero/cambiomap/internal/core/usecases"
)

// Dependencies holds everything the HTTP and WebSocket handlers need.
// Cache and Publisher are optional; leave them nil when the backing service
// is unavailable and sessions degrade gracefully.
type Dependencies struct {
	Searcher  ports.OfficeSearcher
	Geocoder  ports.Geocoder
	Cache     ports.CacheService
	Publisher ports.EventPublisher

	Policy          usecases.MovementPolicy
	Session         usecases.SessionConfig
	CacheTTLSeconds int
}
