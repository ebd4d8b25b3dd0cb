package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dmontero/cambiomap/internal/core/domain"
)

func TestGeocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("q"); got != "Bilbao" {
			t.Errorf("q = %q", got)
		}
		if got := r.URL.Query().Get("limit"); got != "1" {
			t.Errorf("limit = %q", got)
		}
		w.Write([]byte(`[{"lat":"43.2630","lon":"-2.9350","display_name":"Bilbao, Bizkaia"}]`))
	}))
	defer srv.Close()

	c := New(srv.URL, 5)
	coord, err := c.Geocode(context.Background(), "Bilbao")
	if err != nil {
		t.Fatal(err)
	}
	if coord.Lat != 43.2630 || coord.Lng != -2.9350 {
		t.Errorf("coord = %+v", coord)
	}
}

func TestGeocode_NoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := New(srv.URL, 5)
	if _, err := c.Geocode(context.Background(), "nowhere-at-all"); err == nil {
		t.Fatal("expected an error for an empty result set")
	}
}

func TestReverseGeocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/reverse" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"lat":"43.2630","lon":"-2.9350","display_name":"Casco Viejo, Bilbao"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, 5)
	name, err := c.ReverseGeocode(context.Background(), domain.Coordinate{Lat: 43.263, Lng: -2.935})
	if err != nil {
		t.Fatal(err)
	}
	if name != "Casco Viejo, Bilbao" {
		t.Errorf("name = %q", name)
	}
}

func TestGeocode_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "over capacity", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(srv.URL, 5)
	if _, err := c.Geocode(context.Background(), "Bilbao"); err == nil {
		t.Fatal("expected an error for a 503 response")
	}
}
