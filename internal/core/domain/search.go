package domain

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// FilterState holds the optional search filters. Order is irrelevant;
// equality is set-equality.
type FilterState struct {
	Currencies []string `json:"currencies,omitempty"`
	Trends     []string `json:"trends,omitempty"`
	OpenNow    bool     `json:"open_now"`
}

// Equal compares two filter states as sets.
func (f FilterState) Equal(other FilterState) bool {
	return f.OpenNow == other.OpenNow &&
		sameSet(f.Currencies, other.Currencies) &&
		sameSet(f.Trends, other.Trends)
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]struct{}, len(a))
	for _, v := range a {
		seen[v] = struct{}{}
	}
	for _, v := range b {
		if _, ok := seen[v]; !ok {
			return false
		}
	}
	return true
}

// SearchQuery is the canonical, comparable shape of one nearby-search
// request. Two queries are equal iff every field matches.
type SearchQuery struct {
	Coordinate     Coordinate  `json:"coordinate"`
	RadiusKm       float64     `json:"radius_km"`
	BaseCurrency   string      `json:"base_currency"`
	TargetCurrency string      `json:"target_currency"`
	TargetRate     *float64    `json:"target_rate,omitempty"`
	Filters        FilterState `json:"filters"`
	Page           int         `json:"page"`
	PageSize       int         `json:"page_size"`
}

// Equal reports full field-wise equality.
func (q SearchQuery) Equal(other SearchQuery) bool {
	return q.Page == other.Page && q.EqualIgnoringPage(other)
}

// EqualIgnoringPage compares every field except Page. The orchestrator uses
// it to decide whether a passive trigger may be skipped.
func (q SearchQuery) EqualIgnoringPage(other SearchQuery) bool {
	if q.Coordinate != other.Coordinate ||
		q.RadiusKm != other.RadiusKm ||
		q.BaseCurrency != other.BaseCurrency ||
		q.TargetCurrency != other.TargetCurrency ||
		q.PageSize != other.PageSize {
		return false
	}
	if (q.TargetRate == nil) != (other.TargetRate == nil) {
		return false
	}
	if q.TargetRate != nil && *q.TargetRate != *other.TargetRate {
		return false
	}
	return q.Filters.Equal(other.Filters)
}

// Values renders the query as the upstream request parameters.
func (q SearchQuery) Values() url.Values {
	v := url.Values{}
	v.Set("latitude", strconv.FormatFloat(q.Coordinate.Lat, 'f', -1, 64))
	v.Set("longitude", strconv.FormatFloat(q.Coordinate.Lng, 'f', -1, 64))
	v.Set("radiusInKm", strconv.FormatFloat(q.RadiusKm, 'f', 1, 64))
	v.Set("baseCurrency", q.BaseCurrency)
	v.Set("targetCurrency", q.TargetCurrency)
	if q.TargetRate != nil {
		v.Set("targetCurrencyRate", strconv.FormatFloat(*q.TargetRate, 'f', -1, 64))
	}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("limit", strconv.Itoa(q.PageSize))
	if len(q.Filters.Currencies) > 0 {
		v.Set("availableCurrencies", strings.Join(sortedCopy(q.Filters.Currencies), ","))
	}
	if len(q.Filters.Trends) > 0 {
		v.Set("trend", strings.Join(sortedCopy(q.Filters.Trends), ","))
	}
	if q.Filters.OpenNow {
		v.Set("showOnlyOpenNow", "true")
	}
	return v
}

// CacheKey is a stable key for read-through caching of result pages.
// Filter slices are sorted inside Values so the key is order-independent.
func (q SearchQuery) CacheKey() string {
	return fmt.Sprintf("offices:nearby:%s", q.Values().Encode())
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
