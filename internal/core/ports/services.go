package ports

import (
	"context"

	"github.com/dmontero/cambiomap/internal/core/domain"
)

// OfficeSearcher performs a nearby-office search against the upstream API.
type OfficeSearcher interface {
	Nearby(ctx context.Context, query domain.SearchQuery) (*domain.ResultPage, error)
}

// Geocoder resolves free-text place names to coordinates and back.
type Geocoder interface {
	Geocode(ctx context.Context, text string) (domain.Coordinate, error)
	ReverseGeocode(ctx context.Context, c domain.Coordinate) (string, error)
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// EventPublisher broadcasts committed searches and their results to a
// message broker for downstream consumers.
type EventPublisher interface {
	PublishSearchCommitted(ctx context.Context, query domain.SearchQuery) error
	PublishResultsReady(ctx context.Context, query domain.SearchQuery, page *domain.ResultPage) error
}
