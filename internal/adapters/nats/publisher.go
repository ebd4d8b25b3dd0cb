package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/dmontero/cambiomap/internal/core/domain"
)

// Publisher implements ports.EventPublisher using NATS JetStream. Committed
// searches and their result summaries feed downstream consumers (analytics,
// popular-area aggregation) without coupling them to the gateway.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and ensures the search-events stream exists.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := nats.StreamConfig{
		Name:      "CAMBIO_SEARCHES",
		Subjects:  []string{"cambio.search.>"},
		Retention: nats.InterestPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(&cfg); err != nil {
		// Stream may already exist — try update
		if _, err := js.UpdateStream(&cfg); err != nil {
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// searchEvent is the wire shape of a committed search.
type searchEvent struct {
	Query      domain.SearchQuery `json:"query"`
	OfficeIDs  []string           `json:"office_ids,omitempty"`
	TotalCount int                `json:"total_count,omitempty"`
	At         time.Time          `json:"at"`
}

// PublishSearchCommitted announces that a search was issued.
func (p *Publisher) PublishSearchCommitted(ctx context.Context, query domain.SearchQuery) error {
	data, err := json.Marshal(searchEvent{Query: query, At: time.Now().UTC()})
	if err != nil {
		return err
	}
	_, err = p.js.Publish("cambio.search.committed", data)
	return err
}

// PublishResultsReady announces an applied result page. Only ids and counts
// travel; office payloads stay between the upstream API and the session.
func (p *Publisher) PublishResultsReady(ctx context.Context, query domain.SearchQuery, page *domain.ResultPage) error {
	data, err := json.Marshal(searchEvent{
		Query:      query,
		OfficeIDs:  page.OfficeIDs(),
		TotalCount: page.TotalCount,
		At:         time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	_, err = p.js.Publish("cambio.search.results", data)
	return err
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}
