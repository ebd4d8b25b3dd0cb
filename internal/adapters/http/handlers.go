package http

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"github.com/dmontero/cambiomap/internal/core/domain"
)

// NearbyOfficesHandler is the session-less one-shot search: the same query
// the WebSocket sessions issue, exposed as plain REST for crawlers, widgets
// and curl. It shares the result-page cache with the sessions.
func NearbyOfficesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lat := c.QueryFloat("lat", 0)
		lng := c.QueryFloat("lng", 0)
		if lat == 0 && lng == 0 {
			return errBadRequest(c, "lat and lng are required")
		}
		if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
			return errBadRequest(c, "lat/lng out of range")
		}

		radius := c.QueryFloat("radius", deps.Session.DefaultRadiusKm)
		if radius < 0.1 || radius > 100 {
			return errBadRequest(c, "radius must be between 0.1 and 100 km")
		}

		page := c.QueryInt("page", 1)
		if page < 1 {
			page = 1
		}

		query := domain.SearchQuery{
			Coordinate:     domain.Coordinate{Lat: lat, Lng: lng},
			RadiusKm:       radius,
			BaseCurrency:   c.Query("base", deps.Session.BaseCurrency),
			TargetCurrency: c.Query("target", deps.Session.TargetCurrency),
			Page:           page,
			PageSize:       deps.Session.PageSize,
		}
		if c.QueryBool("open_now", false) {
			query.Filters.OpenNow = true
		}

		if deps.Cache != nil {
			if data, err := deps.Cache.Get(c.UserContext(), query.CacheKey()); err == nil {
				var cached domain.ResultPage
				if json.Unmarshal(data, &cached) == nil {
					c.Set("Cache-Control", "public, max-age=60")
					return c.JSON(cached)
				}
			}
		}

		result, err := deps.Searcher.Nearby(c.UserContext(), query)
		if err != nil {
			return errBadGateway(c, err.Error())
		}

		if deps.Cache != nil && deps.CacheTTLSeconds > 0 {
			if data, err := json.Marshal(result); err == nil {
				_ = deps.Cache.Set(c.UserContext(), query.CacheKey(), data, deps.CacheTTLSeconds)
			}
		}

		c.Set("Cache-Control", "public, max-age=60")
		return c.JSON(result)
	}
}

// GeocodeHandler resolves a free-text place name to a coordinate.
func GeocodeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := c.Query("q")
		if q == "" {
			return errBadRequest(c, "q query parameter is required")
		}
		if len(q) > 200 {
			return errBadRequest(c, "query too long (max 200 characters)")
		}
		if deps.Geocoder == nil {
			return errInternal(c, "geocoder not available")
		}

		coord, err := deps.Geocoder.Geocode(c.UserContext(), q)
		if err != nil {
			return errNotFound(c, "no match for "+q)
		}

		c.Set("Cache-Control", "public, max-age=3600")
		return c.JSON(fiber.Map{"lat": coord.Lat, "lng": coord.Lng})
	}
}
