package domain

import (
	"net/url"
	"strconv"
)

// ViewState is the part of the search mirrored into the page's query
// parameters: a reload or back-navigation restores the same search.
type ViewState struct {
	Coordinate     *Coordinate `json:"coordinate,omitempty"`
	LocationName   string      `json:"location_name,omitempty"`
	BaseCurrency   string      `json:"base_currency,omitempty"`
	TargetCurrency string      `json:"target_currency,omitempty"`
	Amount         float64     `json:"amount,omitempty"`
}

// ParseViewState reads a view state from raw query parameters. A lat/lng
// pair takes precedence over a bare location name: when both are present the
// coordinate is kept and the name is display-only.
func ParseViewState(rawQuery string) (ViewState, error) {
	v, err := url.ParseQuery(rawQuery)
	if err != nil {
		return ViewState{}, err
	}

	vs := ViewState{
		LocationName:   v.Get("location"),
		BaseCurrency:   v.Get("base"),
		TargetCurrency: v.Get("target"),
	}

	if raw := v.Get("amount"); raw != "" {
		if amount, err := strconv.ParseFloat(raw, 64); err == nil {
			vs.Amount = amount
		}
	}

	latRaw, lngRaw := v.Get("lat"), v.Get("lng")
	if latRaw != "" && lngRaw != "" {
		lat, latErr := strconv.ParseFloat(latRaw, 64)
		lng, lngErr := strconv.ParseFloat(lngRaw, 64)
		if latErr == nil && lngErr == nil {
			vs.Coordinate = &Coordinate{Lat: lat, Lng: lng}
		}
	}

	return vs, nil
}

// Encode renders the state back into query parameters.
func (s ViewState) Encode() url.Values {
	v := url.Values{}
	if s.Coordinate != nil {
		v.Set("lat", strconv.FormatFloat(s.Coordinate.Lat, 'f', -1, 64))
		v.Set("lng", strconv.FormatFloat(s.Coordinate.Lng, 'f', -1, 64))
	}
	if s.LocationName != "" {
		v.Set("location", s.LocationName)
	}
	if s.BaseCurrency != "" {
		v.Set("base", s.BaseCurrency)
	}
	if s.TargetCurrency != "" {
		v.Set("target", s.TargetCurrency)
	}
	if s.Amount != 0 {
		v.Set("amount", strconv.FormatFloat(s.Amount, 'f', -1, 64))
	}
	return v
}
