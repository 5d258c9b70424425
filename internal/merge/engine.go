package merge

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/CommPropIntel/CPI-Backend/internal/advertiser"
	"github.com/CommPropIntel/CPI-Backend/internal/extract"
	"github.com/CommPropIntel/CPI-Backend/internal/geocode"
	"github.com/CommPropIntel/CPI-Backend/internal/listings"
)

// Store is what the engine needs from the listing table. Implemented by
// listings.ListingStore; tests use an in-memory version whose Transact just
// runs the callback.
type Store interface {
	listings.ListingTx
	Transact(ctx context.Context, fn func(tx listings.ListingTx) error) error
}

// Source identifies where an ad came from. ID is the source site's durable
// identifier for the ad instance and the dedup key.
type Source struct {
	ID       string
	URL      string
	Category string
}

// Engine decides whether an extracted candidate is a new listing, an update to
// an existing one, or a duplicate re-scrape, and merges accordingly. It is the
// only component that creates or mutates Listing rows.
type Engine struct {
	store Store
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// Upsert merges one observed ad into the listing table and returns the
// resulting row plus whether it was newly created. The whole read-modify-write
// is one logical transaction per source id. Rules:
//
//   - no existing row for the source id: create, first_seen = last_seen =
//     observedAt (the only creation path)
//   - existing row: last_seen = observedAt unconditionally, first_seen never
//     changes, and each mutable field is overwritten only by a non-nil new
//     value (a failed re-extraction must not erase known data)
//   - coordinates, once set, are never overwritten, even by a new non-nil
//     geocode result
func (e *Engine) Upsert(ctx context.Context, src Source, c *extract.CandidateListing, geo *geocode.Coordinates, adv advertiser.Result, observedAt time.Time) (*listings.Listing, bool, error) {
	fp := Fingerprint(c.RawText)

	var result *listings.Listing
	var created bool
	err := e.store.Transact(ctx, func(tx listings.ListingTx) error {
		existing, err := tx.FindBySourceID(ctx, src.ID)
		if err != nil {
			return err
		}

		if existing == nil {
			// A fresh source id whose text we have seen before is most
			// likely a repost under a new id. The source identifier wins:
			// log it and create a separate listing.
			if dup, err := tx.FindByFingerprint(ctx, fp); err != nil {
				return err
			} else if dup != nil {
				log.Printf("[merge] source_id %s looks like a repost of %s (matching fingerprint)", src.ID, dup.SourceID)
			}

			l := newListing(src, c, geo, adv, observedAt, fp)
			if err := tx.Create(ctx, l); err != nil {
				return err
			}
			result, created = l, true
			return nil
		}

		// Same source id with materially different text is the documented
		// identifier-reuse risk. The merge proceeds regardless.
		if existing.Fingerprint != "" && existing.Fingerprint != fp {
			log.Printf("[merge] source_id %s re-observed with different content; merging anyway", src.ID)
		}

		applyUpdate(existing, c, geo, adv, observedAt, fp)
		if err := tx.Save(ctx, existing); err != nil {
			return err
		}
		result = existing
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("upsert %s: %w", src.ID, err)
	}

	return result, created, nil
}

func newListing(src Source, c *extract.CandidateListing, geo *geocode.Coordinates, adv advertiser.Result, observedAt time.Time, fp string) *listings.Listing {
	l := &listings.Listing{
		SourceID:        src.ID,
		Fingerprint:     fp,
		PropertyName:    c.PropertyName,
		PropertyType:    c.PropertyType,
		TransactionType: c.TransactionType,
		Price:           c.Price,
		GFASqft:         c.GFASqft,
		LeaseType:       c.LeaseType,
		AddressText:     c.AddressText,
		ContactName:     c.ContactName,
		ContactPhone:    adv.Phone,
		IsOwner:         adv.IsOwner,
		IsAgent:         adv.IsAgent,
		AgencyName:      adv.AgencyName,
		Features:        c.Features,
		SourceURL:       src.URL,
		RawText:         c.RawText,
		FirstSeenDate:   observedAt,
		LastSeenDate:    observedAt,
	}
	if src.Category != "" {
		cat := src.Category
		l.Category = &cat
	}
	if geo != nil {
		lat, lng := geo.Lat, geo.Lng
		l.Latitude, l.Longitude = &lat, &lng
	}
	return l
}

func applyUpdate(l *listings.Listing, c *extract.CandidateListing, geo *geocode.Coordinates, adv advertiser.Result, observedAt time.Time, fp string) {
	// Recency always refreshes; the first sighting never moves.
	l.LastSeenDate = observedAt

	setString(&l.PropertyName, c.PropertyName)
	setString(&l.PropertyType, c.PropertyType)
	setString(&l.TransactionType, c.TransactionType)
	setInt(&l.Price, c.Price)
	setInt(&l.GFASqft, c.GFASqft)
	setString(&l.LeaseType, c.LeaseType)
	setString(&l.AddressText, c.AddressText)
	setString(&l.ContactName, c.ContactName)
	setString(&l.ContactPhone, adv.Phone)
	setString(&l.AgencyName, adv.AgencyName)

	// Ownership flags follow the advertiser only when the ad was actually
	// attributed to one.
	if adv.Phone != nil {
		l.IsOwner = adv.IsOwner
		l.IsAgent = adv.IsAgent
	}

	if len(c.Features) > 0 {
		l.Features = c.Features
	}

	// Coordinates are pinned once set: re-normalization drift across runs
	// must not make pins jitter on the map.
	if l.Latitude == nil && geo != nil {
		lat, lng := geo.Lat, geo.Lng
		l.Latitude, l.Longitude = &lat, &lng
	}

	// Latest observed text wins; it is what the fingerprint describes.
	l.RawText = c.RawText
	l.Fingerprint = fp
}

// setString overwrites dst only when the new value is non-nil.
func setString(dst **string, v *string) {
	if v != nil {
		*dst = v
	}
}

func setInt(dst **int64, v *int64) {
	if v != nil {
		*dst = v
	}
}
