package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/dmontero/cambiomap/internal/core/domain"
	"github.com/dmontero/cambiomap/internal/core/events"
	"github.com/dmontero/cambiomap/internal/core/usecases"
	"github.com/dmontero/cambiomap/internal/pkg/metrics"
)

// clientMessage is one command from the browser to its map session.
type clientMessage struct {
	Type string `json:"type"` // bootstrap | move | commit | page | filters | currency | hover | place

	Query string `json:"query,omitempty"` // bootstrap: raw URL query to restore

	Center domain.Coordinate `json:"center,omitempty"` // move
	Bounds domain.Bounds     `json:"bounds,omitempty"` // move
	Origin string            `json:"origin,omitempty"` // move: user | programmatic
	Cause  string            `json:"cause,omitempty"`  // move

	Page int `json:"page,omitempty"` // page

	Filters domain.FilterState `json:"filters,omitempty"` // filters

	Base   string   `json:"base,omitempty"`   // currency
	Target string   `json:"target,omitempty"` // currency
	Rate   *float64 `json:"rate,omitempty"`   // currency

	OfficeID *string `json:"office_id,omitempty"` // hover; null clears

	Text string `json:"text,omitempty"` // place
}

// serverMessage is the envelope for session events flowing to the browser.
type serverMessage struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// SessionHandler upgrades the connection and runs one map session for its
// lifetime. The session goroutine owns all search state; this handler only
// translates between the wire protocol and the session's command API.
func SessionHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		remoteAddr := c.RemoteAddr().String()
		slog.Info("session connected", "remote", remoteAddr)
		metrics.ActiveSessions.Inc()
		defer metrics.ActiveSessions.Dec()

		session := usecases.NewSession(
			deps.Searcher,
			deps.Cache,
			deps.CacheTTLSeconds,
			deps.Geocoder,
			deps.Publisher,
			deps.Policy,
			deps.Session,
		)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		eventCh, unsubscribe := session.Events(64)
		defer unsubscribe()

		go session.Run(ctx)

		// The query string of the upgrade request doubles as bootstrap state,
		// so a shared URL restores its search without an extra round-trip.
		if raw, ok := c.Locals(bootstrapQueryKey).(string); ok && raw != "" {
			session.Bootstrap(raw)
		}

		var mu sync.Mutex
		writeJSON := func(v any) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		// Event pump: session events out to the browser.
		go func() {
			for ev := range eventCh {
				if err := writeJSON(encodeEvent(ev)); err != nil {
					cancel()
					return
				}
			}
		}()

		// Keep-alive ping
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						cancel()
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m clientMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = writeJSON(serverMessage{Type: "error", Data: "invalid JSON"})
				continue
			}

			switch m.Type {
			case "bootstrap":
				session.Bootstrap(m.Query)
			case "move":
				origin := domain.OriginUser
				if m.Origin == string(domain.OriginProgrammatic) {
					origin = domain.OriginProgrammatic
				}
				session.Move(usecases.RawMove{
					Center: m.Center,
					Bounds: m.Bounds,
					Origin: origin,
					Cause:  m.Cause,
				})
			case "commit":
				session.Commit()
			case "page":
				session.GoToPage(m.Page)
			case "filters":
				session.SetFilters(m.Filters)
			case "currency":
				session.SetCurrency(m.Base, m.Target, m.Rate)
			case "hover":
				session.Hover(m.OfficeID)
			case "place":
				session.GoToPlace(m.Text)
			default:
				_ = writeJSON(serverMessage{Type: "error", Data: "unknown message type: " + m.Type})
			}
		}

		slog.Info("session disconnected", "remote", remoteAddr)
	}
}

// encodeEvent maps a session event onto its wire envelope.
func encodeEvent(ev events.Event) serverMessage {
	switch e := ev.(type) {
	case events.ViewportMoved:
		return serverMessage{Type: "viewport_moved", Data: e}
	case events.SearchCommitted:
		return serverMessage{Type: "search_committed", Data: e}
	case events.ResultsReady:
		return serverMessage{Type: "results", Data: e}
	case events.MarkersChanged:
		return serverMessage{Type: "markers", Data: e}
	case events.HoverChanged:
		return serverMessage{Type: "hover", Data: e}
	case events.LoadingChanged:
		return serverMessage{Type: "loading", Data: e}
	case events.SearchFailed:
		return serverMessage{Type: "search_failed", Data: e}
	case events.CameraMove:
		return serverMessage{Type: "camera", Data: e}
	case events.PageChanged:
		return serverMessage{Type: "page", Data: e}
	case events.AutoOpen:
		return serverMessage{Type: "auto_open", Data: e}
	case events.URLStateChanged:
		return serverMessage{Type: "url_state", Data: e}
	default:
		return serverMessage{Type: "unknown"}
	}
}
