package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/CommPropIntel/CPI-Backend/internal/advertiser"
	"github.com/CommPropIntel/CPI-Backend/internal/extract"
	"github.com/CommPropIntel/CPI-Backend/internal/fetcher"
	"github.com/CommPropIntel/CPI-Backend/internal/geocode"
	"github.com/CommPropIntel/CPI-Backend/internal/listings"
	"github.com/CommPropIntel/CPI-Backend/internal/merge"
)

// The pipeline talks to its stages through interfaces so tests can script
// each one independently.
type (
	ExtractService interface {
		Extract(ctx context.Context, rawText, category string) *extract.CandidateListing
	}
	ResolveService interface {
		Resolve(ctx context.Context, c *extract.CandidateListing, observedAt time.Time) (advertiser.Resolution, error)
		Commit(ctx context.Context, res advertiser.Resolution) error
	}
	GeocodeService interface {
		Geocode(ctx context.Context, addressText *string) *geocode.Coordinates
	}
	MergeService interface {
		Upsert(ctx context.Context, src merge.Source, c *extract.CandidateListing, geo *geocode.Coordinates, adv advertiser.Result, observedAt time.Time) (*listings.Listing, bool, error)
	}
	RunLog interface {
		Start(ctx context.Context) (*listings.ScrapeRun, error)
		Finish(ctx context.Context, run *listings.ScrapeRun) error
	}
)

// Summary reports one pipeline invocation. Per-ad failures are isolated, so a
// run reports success/failure counts, not a single verdict.
type Summary struct {
	Found           int      `json:"found"`
	Created         int      `json:"created"`
	Updated         int      `json:"updated"`
	Failed          int      `json:"failed"`
	FailedSourceIDs []string `json:"failed_source_ids,omitempty"`
}

// Pipeline runs each raw ad through extraction, advertiser resolution,
// geocoding, and the merge engine, one ad at a time. The external services are
// the latency bottleneck, so there is nothing to gain from local parallelism.
// Throttling lives inside the extractor and geocoder, next to the external
// calls, so local stages never wait on a limiter.
type Pipeline struct {
	extractor ExtractService
	resolver  ResolveService
	geocoder  GeocodeService
	merger    MergeService
	runs      RunLog // nil disables run logging
}

func New(extractor ExtractService, resolver ResolveService, geocoder GeocodeService, merger MergeService, runs RunLog) *Pipeline {
	return &Pipeline{
		extractor: extractor,
		resolver:  resolver,
		geocoder:  geocoder,
		merger:    merger,
		runs:      runs,
	}
}

// Run processes a batch of raw ads. Each ad is independent: any per-ad failure
// is recorded in the summary and the run moves on. Cancelling ctx stops the
// run between ads; already-merged ads stay merged.
func (p *Pipeline) Run(ctx context.Context, ads []fetcher.RawAd) (Summary, error) {
	summary := Summary{Found: len(ads)}

	var run *listings.ScrapeRun
	if p.runs != nil {
		var err error
		run, err = p.runs.Start(ctx)
		if err != nil {
			// A run with no log row is still worth running.
			log.Printf("[pipeline] could not log run start: %v", err)
		}
	}

	var runErr error
	for _, ad := range ads {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		created, err := p.processOne(ctx, ad)
		switch {
		case err != nil:
			summary.Failed++
			summary.FailedSourceIDs = append(summary.FailedSourceIDs, ad.SourceID)
			log.Printf("[pipeline] ad %s failed: %v", ad.SourceID, err)
		case created:
			summary.Created++
		default:
			summary.Updated++
		}
	}

	if run != nil {
		run.ListingsFound = summary.Found
		run.ListingsNew = summary.Created
		run.ListingsUpdated = summary.Updated
		run.ListingsFailed = summary.Failed
		run.Status = "completed"
		if runErr != nil {
			run.Status = "failed"
			msg := runErr.Error()
			run.ErrorMessage = &msg
		}
		if err := p.runs.Finish(ctx, run); err != nil {
			log.Printf("[pipeline] could not log run finish: %v", err)
		}
	}

	log.Printf("[pipeline] run complete: %d found, %d new, %d updated, %d failed",
		summary.Found, summary.Created, summary.Updated, summary.Failed)

	return summary, runErr
}

// processOne takes a single ad through the full pipeline. Extraction and
// geocoding degrade internally and cannot fail; a store error from resolution
// or merge fails this ad only. The advertiser write lands after the listing
// upsert, so a merge failure leaves the advertiser's tally untouched and a
// targeted retry cannot double-count it.
func (p *Pipeline) processOne(ctx context.Context, ad fetcher.RawAd) (created bool, err error) {
	observedAt := ad.PostedAt
	if observedAt.IsZero() {
		observedAt = time.Now().UTC()
	}

	candidate := p.extractor.Extract(ctx, ad.RawText, ad.Category)

	adv, err := p.resolver.Resolve(ctx, candidate, observedAt)
	if err != nil {
		return false, fmt.Errorf("resolve: %w", err)
	}

	coords := p.geocoder.Geocode(ctx, geocodeQuery(candidate))

	src := merge.Source{ID: ad.SourceID, URL: ad.SourceURL, Category: ad.Category}
	_, created, err = p.merger.Upsert(ctx, src, candidate, coords, adv.Result, observedAt)
	if err != nil {
		return false, fmt.Errorf("merge: %w", err)
	}

	if err := p.resolver.Commit(ctx, adv); err != nil {
		return false, fmt.Errorf("advertiser commit: %w", err)
	}

	return created, nil
}

// geocodeQuery picks what to geocode for a candidate: the extracted address
// when present, else the property name. Both nil means the listing stays
// unmapped.
func geocodeQuery(c *extract.CandidateListing) *string {
	if c.AddressText != nil {
		return c.AddressText
	}
	return c.PropertyName
}
