package advertiser

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/CommPropIntel/CPI-Backend/internal/extract"
	"github.com/CommPropIntel/CPI-Backend/internal/listings"
)

// Store is what the resolver needs from the advertiser table. Implemented by
// listings.AdvertiserStore; tests use an in-memory version.
type Store interface {
	FindByPhone(ctx context.Context, phone string) (*listings.Advertiser, error)
	Create(ctx context.Context, a *listings.Advertiser) error
	Save(ctx context.Context, a *listings.Advertiser) error
}

// Result is the identity decision for one ad.
type Result struct {
	IsOwner    bool
	IsAgent    bool
	AgencyName *string

	// Phone is the normalized advertiser key, nil when the ad carried no
	// usable phone and is not attributed to any Advertiser record.
	Phone *string
}

// Resolution carries the identity decision plus the pending Advertiser write.
// The write is applied by Commit, after the ad's listing upsert succeeds, so a
// merge failure never leaves total_listings incremented for an ad that was
// not persisted (a targeted retry would then double-count it).
type Resolution struct {
	Result

	record *listings.Advertiser
	isNew  bool
}

// Resolver normalizes contact identity across ads and classifies each
// advertiser as owner, agent, or unknown.
type Resolver struct {
	store    Store
	agencies []string // lowercase substrings that signal an agency
}

func NewResolver(store Store, agencies []string) *Resolver {
	return &Resolver{store: store, agencies: agencies}
}

var nonDigits = regexp.MustCompile(`\D`)

// NormalizePhone strips formatting and the +65 country prefix, returning the
// bare 8-digit number, or "" if nothing usable remains.
func NormalizePhone(raw string) string {
	digits := nonDigits.ReplaceAllString(raw, "")
	if len(digits) == 10 && strings.HasPrefix(digits, "65") {
		digits = digits[2:]
	}
	if len(digits) != 8 {
		return ""
	}
	return digits
}

// Classify is the owner/agent heuristic, isolated here so it can be refined
// without touching merge or upsert logic. An explicit agency signal (pattern
// match, extractor flag, or prior self-identification) wins over the owner
// default; explicit signals for both resolve to agent, since an agency name in
// the text is the stronger structural signal.
func Classify(ownerSignal, agencySignal bool) (isOwner, isAgent bool) {
	if agencySignal {
		return false, true
	}
	return true, false
}

// MatchAgency scans text for a known agency name and returns it with the
// original casing, or nil.
func (r *Resolver) MatchAgency(text string) *string {
	lower := strings.ToLower(text)
	for _, pattern := range r.agencies {
		idx := strings.Index(lower, pattern)
		if idx < 0 {
			continue
		}
		name := text[idx : idx+len(pattern)]
		return &name
	}
	return nil
}

// Resolve classifies the ad's advertiser and prepares the Advertiser upsert
// without writing it; the caller applies the write with Commit once the ad's
// listing is safely persisted. Deterministic given the phone and accumulated
// history; the store read is the only side effect.
func (r *Resolver) Resolve(ctx context.Context, c *extract.CandidateListing, observedAt time.Time) (Resolution, error) {
	phone := ""
	if c.ContactPhone != nil {
		phone = NormalizePhone(*c.ContactPhone)
	}
	if phone == "" {
		// Unknown advertiser: no attribution, no record.
		return Resolution{}, nil
	}

	agencyName := c.AgencyName
	if agencyName == nil {
		agencyName = r.MatchAgency(c.RawText)
	}

	prior, err := r.store.FindByPhone(ctx, phone)
	if err != nil {
		return Resolution{}, fmt.Errorf("resolve advertiser %s: %w", phone, err)
	}

	agencySignal := c.IsAgent || agencyName != nil || (prior != nil && prior.IsAgent)
	isOwner, isAgent := Classify(c.IsOwner, agencySignal)
	result := Result{IsOwner: isOwner, IsAgent: isAgent, AgencyName: agencyName, Phone: &phone}

	if prior == nil {
		a := &listings.Advertiser{
			Phone:         phone,
			Name:          c.ContactName,
			IsOwner:       isOwner,
			IsAgent:       isAgent,
			AgencyName:    agencyName,
			TotalListings: 1,
			FirstSeen:     observedAt,
			LastSeen:      observedAt,
		}
		return Resolution{Result: result, record: a, isNew: true}, nil
	}

	prior.TotalListings++
	prior.LastSeen = observedAt
	// First-non-null-wins: a later null never erases a known name.
	if prior.Name == nil && c.ContactName != nil {
		prior.Name = c.ContactName
	}
	if prior.AgencyName == nil && agencyName != nil {
		prior.AgencyName = agencyName
	}
	// Self-identification is sticky: once an agent, always an agent.
	prior.IsAgent = prior.IsAgent || isAgent
	prior.IsOwner = prior.IsOwner || isOwner

	return Resolution{Result: result, record: prior}, nil
}

// Commit applies the pending Advertiser write from a Resolution. A no-op for
// unattributed ads.
func (r *Resolver) Commit(ctx context.Context, res Resolution) error {
	if res.record == nil {
		return nil
	}
	if res.isNew {
		return r.store.Create(ctx, res.record)
	}
	return r.store.Save(ctx, res.record)
}
