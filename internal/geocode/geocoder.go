package geocode

import (
	"context"
	"log"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/CommPropIntel/CPI-Backend/internal/config"
	"github.com/CommPropIntel/CPI-Backend/internal/listings"
)

// Service is the external geocoding call. Implemented by *Client; tests use a
// scripted version to count calls.
type Service interface {
	Search(ctx context.Context, query string) (*Coordinates, error)
}

// CacheStore is the persistent geocode cache, keyed by normalized address.
type CacheStore interface {
	Get(ctx context.Context, key string) (*listings.GeocodeCacheEntry, error)
	Put(ctx context.Context, e *listings.GeocodeCacheEntry) error
}

// Geocoder resolves an ad's address text to coordinates: gazetteer first, then
// the persistent cache, then one OneMap lookup (with a simplified-query second
// try). All failures degrade to "not mappable"; they never abort the pipeline
// and are never cached, so a later run retries them.
type Geocoder struct {
	cache     CacheStore
	service   Service
	gazetteer map[string]config.LatLng

	// gazetteerKeys orders the lookup longest-first, so overlapping entries
	// ("jurong west" vs "jurong") always resolve to the most specific match.
	gazetteerKeys []string

	limiter *rate.Limiter // nil disables throttling
}

func New(cache CacheStore, service Service, gazetteer map[string]config.LatLng, limiter *rate.Limiter) *Geocoder {
	keys := make([]string, 0, len(gazetteer))
	for name := range gazetteer {
		keys = append(keys, name)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return &Geocoder{cache: cache, service: service, gazetteer: gazetteer, gazetteerKeys: keys, limiter: limiter}
}

// Geocode resolves addressText, or returns nil for listings that cannot be
// mapped. A nil or empty address is skipped outright, not attempted.
func (g *Geocoder) Geocode(ctx context.Context, addressText *string) *Coordinates {
	if addressText == nil || strings.TrimSpace(*addressText) == "" {
		return nil
	}

	key := NormalizeAddress(*addressText)
	if key == "" {
		return nil
	}

	// Known locations resolve without any lookup at all.
	for _, name := range g.gazetteerKeys {
		if strings.Contains(key, name) {
			loc := g.gazetteer[name]
			return &Coordinates{Lat: loc.Lat, Lng: loc.Lng}
		}
	}

	entry, err := g.cache.Get(ctx, key)
	if err != nil {
		log.Printf("[geocode] cache read for %q failed: %v", key, err)
	}
	if entry != nil {
		return &Coordinates{Lat: entry.Latitude, Lng: entry.Longitude}
	}

	// Cache hits and gazetteer hits cost nothing; only the external call is
	// throttled.
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil
		}
	}

	coords, err := g.service.Search(ctx, strings.TrimSpace(*addressText))
	if err != nil {
		log.Printf("[geocode] lookup %q failed: %v", *addressText, err)
		return nil
	}
	if coords == nil {
		// One simplified retry; OneMap often misses full building names.
		simplified := SimplifyQuery(*addressText)
		if simplified != "" && simplified != strings.TrimSpace(*addressText) {
			coords, err = g.service.Search(ctx, simplified)
			if err != nil {
				log.Printf("[geocode] simplified lookup %q failed: %v", simplified, err)
				return nil
			}
		}
	}
	if coords == nil {
		return nil
	}

	// Only successes are cached.
	put := &listings.GeocodeCacheEntry{
		NormalizedAddress: key,
		Latitude:          coords.Lat,
		Longitude:         coords.Lng,
		ResolvedAt:        time.Now().UTC(),
	}
	if err := g.cache.Put(ctx, put); err != nil {
		log.Printf("[geocode] cache write for %q failed: %v", key, err)
	}

	return coords
}
