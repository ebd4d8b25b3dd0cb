package officesapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dmontero/cambiomap/internal/core/domain"
)

func testQuery() domain.SearchQuery {
	return domain.SearchQuery{
		Coordinate:     domain.Coordinate{Lat: 43.263, Lng: -2.935},
		RadiusKm:       1.5,
		BaseCurrency:   "EUR",
		TargetCurrency: "USD",
		Page:           1,
		PageSize:       20,
	}
}

func serve(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, 5)
}

func TestNearby_RequestParameters(t *testing.T) {
	var gotPath, gotQuery string
	c := serve(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`[]`))
	})

	q := testQuery()
	q.Filters = domain.FilterState{OpenNow: true, Currencies: []string{"USD", "GBP"}}
	if _, err := c.Nearby(context.Background(), q); err != nil {
		t.Fatal(err)
	}

	if gotPath != "/offices/nearby" {
		t.Errorf("path = %q", gotPath)
	}
	want := q.Values().Encode()
	if gotQuery != want {
		t.Errorf("query = %q, want %q", gotQuery, want)
	}
}

func TestNearby_EnvelopeShapes(t *testing.T) {
	officeJSON := `{"id":"off-1","name":"Cambios Iturribide","latitude":43.259,"longitude":-2.921,"isCurrentlyOpen":true,"isBestOffice":true,"distanceInKm":0.4}`

	cases := []struct {
		name string
		body string
	}{
		{"bare array", `[` + officeJSON + `]`},
		{"data array", `{"data":[` + officeJSON + `]}`},
		{"flat envelope", `{"offices":[` + officeJSON + `],"totalCount":1,"currentPage":1,"totalPages":1}`},
		{"nested envelope", `{"data":{"offices":[` + officeJSON + `],"totalCount":1,"currentPage":1,"totalPages":1}}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := serve(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tc.body))
			})

			page, err := c.Nearby(context.Background(), testQuery())
			if err != nil {
				t.Fatal(err)
			}
			if len(page.Offices) != 1 {
				t.Fatalf("offices = %d, want 1", len(page.Offices))
			}

			o := page.Offices[0]
			if o.ID != "off-1" || !o.OpenNow || !o.Best {
				t.Errorf("office = %+v", o)
			}
			if o.Location.Lat != 43.259 || o.Location.Lng != -2.921 {
				t.Errorf("location = %+v", o.Location)
			}
			if o.Distance == nil || *o.Distance != 400 {
				t.Errorf("distance = %v, want 400m", o.Distance)
			}
			if page.TotalCount != 1 || page.CurrentPage != 1 || page.TotalPages != 1 {
				t.Errorf("counters = %+v", page)
			}
		})
	}
}

func TestNearby_UnknownShapeYieldsEmptyPage(t *testing.T) {
	c := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"surprise":true}`))
	})

	page, err := c.Nearby(context.Background(), testQuery())
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Offices) != 0 {
		t.Errorf("offices = %d, want 0", len(page.Offices))
	}
	// Counters fall back to sane values so pagination never divides by zero.
	if page.CurrentPage != 1 || page.TotalPages != 1 {
		t.Errorf("counters = %+v", page)
	}
}

func TestNearby_NonSuccessStatus(t *testing.T) {
	c := serve(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	})

	if _, err := c.Nearby(context.Background(), testQuery()); err == nil {
		t.Fatal("expected an error for a 502 response")
	}
}

func TestNearby_MalformedBody(t *testing.T) {
	c := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": not json`))
	})

	if _, err := c.Nearby(context.Background(), testQuery()); err == nil {
		t.Fatal("expected a decode error")
	}
}
