package officesapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dmontero/cambiomap/internal/core/domain"
	"github.com/dmontero/cambiomap/internal/pkg/metrics"
)

// Client implements ports.OfficeSearcher against the exchange-offices REST
// API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the given base URL.
func New(baseURL string, timeoutSeconds int) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: time.Duration(timeoutSeconds) * time.Second},
	}
}

// Nearby fetches one result page of offices around the query coordinate.
func (c *Client) Nearby(ctx context.Context, query domain.SearchQuery) (*domain.ResultPage, error) {
	url := c.baseURL + "/offices/nearby?" + query.Values().Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.UpstreamLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("offices api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("offices api: status %d: %s", resp.StatusCode, body)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("offices api: read body: %w", err)
	}

	page, err := decodeResultPage(body)
	if err != nil {
		return nil, fmt.Errorf("offices api: %w", err)
	}

	if page.CurrentPage < 1 {
		page.CurrentPage = query.Page
	}
	if page.TotalPages < 1 {
		page.TotalPages = 1
	}
	return page, nil
}

// wireOffice is the upstream office shape; field names follow the API, not
// ours.
type wireOffice struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	OpenNow   bool     `json:"isCurrentlyOpen"`
	Best      bool     `json:"isBestOffice"`
	Distance  *float64 `json:"distanceInKm"`
	Rates     []struct {
		BaseCurrency   string  `json:"baseCurrency"`
		TargetCurrency string  `json:"targetCurrency"`
		Buy            float64 `json:"buyRate"`
		Sell           float64 `json:"sellRate"`
	} `json:"rates"`
}

type wireEnvelope struct {
	Offices     []wireOffice `json:"offices"`
	TotalCount  int          `json:"totalCount"`
	CurrentPage int          `json:"currentPage"`
	TotalPages  int          `json:"totalPages"`
}

// decodeResultPage normalizes the envelope shapes the API has shipped over
// time: a bare array, {data: [...]}, {offices: [...]} with counters, and
// {data: {offices: [...], ...}}. Anything else decodes to an empty page
// rather than an error, matching how missing results are rendered.
func decodeResultPage(body []byte) (*domain.ResultPage, error) {
	var probe struct {
		Data json.RawMessage `json:"data"`
	}

	// Bare array.
	var offices []wireOffice
	if err := json.Unmarshal(body, &offices); err == nil {
		return pageFromWire(wireEnvelope{Offices: offices, TotalCount: len(offices)}), nil
	}

	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(probe.Data) > 0 {
		// {data: [...]} or {data: {offices: [...]}}.
		if err := json.Unmarshal(probe.Data, &offices); err == nil {
			return pageFromWire(wireEnvelope{Offices: offices, TotalCount: len(offices)}), nil
		}
		var env wireEnvelope
		if err := json.Unmarshal(probe.Data, &env); err == nil {
			return pageFromWire(env), nil
		}
		return pageFromWire(wireEnvelope{}), nil
	}

	// {offices: [...], totalCount, currentPage, totalPages}.
	var env wireEnvelope
	if err := json.Unmarshal(body, &env); err == nil {
		return pageFromWire(env), nil
	}
	return pageFromWire(wireEnvelope{}), nil
}

func pageFromWire(env wireEnvelope) *domain.ResultPage {
	page := &domain.ResultPage{
		Offices:     make([]domain.Office, 0, len(env.Offices)),
		TotalCount:  env.TotalCount,
		CurrentPage: env.CurrentPage,
		TotalPages:  env.TotalPages,
	}

	for _, w := range env.Offices {
		o := domain.Office{
			ID:       w.ID,
			Name:     w.Name,
			Location: domain.Coordinate{Lat: w.Latitude, Lng: w.Longitude},
			OpenNow:  w.OpenNow,
			Best:     w.Best,
		}
		if w.Distance != nil {
			// Upstream reports km; markers and cards work in meters.
			meters := *w.Distance * 1000
			o.Distance = &meters
		}
		for _, r := range w.Rates {
			o.Rates = append(o.Rates, domain.Rate{
				BaseCurrency:   r.BaseCurrency,
				TargetCurrency: r.TargetCurrency,
				Buy:            r.Buy,
				Sell:           r.Sell,
			})
		}
		page.Offices = append(page.Offices, o)
	}

	if page.TotalCount == 0 {
		page.TotalCount = len(page.Offices)
	}
	return page
}
