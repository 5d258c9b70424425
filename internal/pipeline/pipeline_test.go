package pipeline_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/CommPropIntel/CPI-Backend/internal/advertiser"
	"github.com/CommPropIntel/CPI-Backend/internal/config"
	"github.com/CommPropIntel/CPI-Backend/internal/extract"
	"github.com/CommPropIntel/CPI-Backend/internal/fetcher"
	"github.com/CommPropIntel/CPI-Backend/internal/geocode"
	"github.com/CommPropIntel/CPI-Backend/internal/listings"
	"github.com/CommPropIntel/CPI-Backend/internal/merge"
	"github.com/CommPropIntel/CPI-Backend/internal/pipeline"
)

// In-memory stores backing a fully wired pipeline.

type memListingStore struct {
	bySource map[string]listings.Listing
}

func (m *memListingStore) FindBySourceID(_ context.Context, sourceID string) (*listings.Listing, error) {
	if l, ok := m.bySource[sourceID]; ok {
		cp := l
		return &cp, nil
	}
	return nil, nil
}

func (m *memListingStore) FindByFingerprint(_ context.Context, fp string) (*listings.Listing, error) {
	for _, l := range m.bySource {
		if l.Fingerprint == fp {
			cp := l
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memListingStore) Create(_ context.Context, l *listings.Listing) error {
	m.bySource[l.SourceID] = *l
	return nil
}

func (m *memListingStore) Save(_ context.Context, l *listings.Listing) error {
	m.bySource[l.SourceID] = *l
	return nil
}

func (m *memListingStore) Transact(ctx context.Context, fn func(tx listings.ListingTx) error) error {
	return fn(m)
}

type memAdvertiserStore struct {
	byPhone map[string]listings.Advertiser
}

func (m *memAdvertiserStore) FindByPhone(_ context.Context, phone string) (*listings.Advertiser, error) {
	if a, ok := m.byPhone[phone]; ok {
		cp := a
		return &cp, nil
	}
	return nil, nil
}

func (m *memAdvertiserStore) Create(_ context.Context, a *listings.Advertiser) error {
	m.byPhone[a.Phone] = *a
	return nil
}

func (m *memAdvertiserStore) Save(_ context.Context, a *listings.Advertiser) error {
	m.byPhone[a.Phone] = *a
	return nil
}

type memCache struct {
	entries map[string]listings.GeocodeCacheEntry
}

func (m *memCache) Get(_ context.Context, key string) (*listings.GeocodeCacheEntry, error) {
	if e, ok := m.entries[key]; ok {
		cp := e
		return &cp, nil
	}
	return nil, nil
}

func (m *memCache) Put(_ context.Context, e *listings.GeocodeCacheEntry) error {
	m.entries[e.NormalizedAddress] = *e
	return nil
}

type scriptedGeoService struct {
	calls   int
	results map[string]*geocode.Coordinates
}

func (s *scriptedGeoService) Search(_ context.Context, query string) (*geocode.Coordinates, error) {
	s.calls++
	return s.results[query], nil
}

type memRunLog struct {
	finished []*listings.ScrapeRun
}

func (m *memRunLog) Start(_ context.Context) (*listings.ScrapeRun, error) {
	return &listings.ScrapeRun{Status: "running", StartedAt: time.Now().UTC()}, nil
}

func (m *memRunLog) Finish(_ context.Context, run *listings.ScrapeRun) error {
	m.finished = append(m.finished, run)
	return nil
}

type env struct {
	pipeline *pipeline.Pipeline
	store    *memListingStore
	advs     *memAdvertiserStore
	geo      *scriptedGeoService
	runs     *memRunLog
}

// newEnv wires a real pipeline over in-memory stores, with the deterministic
// rules extractor and a scripted geocoding backend.
func newEnv() *env {
	store := &memListingStore{bySource: make(map[string]listings.Listing)}
	advs := &memAdvertiserStore{byPhone: make(map[string]listings.Advertiser)}
	geo := &scriptedGeoService{results: map[string]*geocode.Coordinates{
		"Tuas Ave": {Lat: 1.3200, Lng: 103.6400},
	}}
	runs := &memRunLog{}

	p := pipeline.New(
		extract.NewExtractor(&extract.RulesProvider{}, 0),
		advertiser.NewResolver(advs, config.Default().Agencies),
		geocode.New(&memCache{entries: make(map[string]listings.GeocodeCacheEntry)}, geo, nil, nil),
		merge.NewEngine(store),
		runs,
	)
	return &env{pipeline: p, store: store, advs: advs, geo: geo, runs: runs}
}

var (
	t0 = time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	t1 = time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC)
)

const warehouseCategory = "Commercial/Industrial Properties - Factory/ Workshop Space - 1010"

// TestRun_EndToEnd drives one warehouse ad through the fully wired pipeline
// and then re-runs it a day later with the price missing from the text,
// checking creation, field preservation, seen-date movement, advertiser
// accumulation, and geocode caching across the two runs.
func TestRun_EndToEnd(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	day1 := fetcher.RawAd{
		SourceID: "A1",
		RawText:  "Warehouse for rent at Tuas Ave 1, $5K/mo, 2000 sqft, call owner 91234567",
		Category: warehouseCategory,
		PostedAt: t0,
	}

	summary, err := e.pipeline.Run(ctx, []fetcher.RawAd{day1})
	if err != nil {
		t.Fatalf("run 1: %v", err)
	}
	if summary.Created != 1 || summary.Updated != 0 || summary.Failed != 0 {
		t.Fatalf("run 1 summary: %+v", summary)
	}

	l := e.store.bySource["A1"]
	if l.PropertyType == nil || *l.PropertyType != "Factory/Warehouse" {
		t.Errorf("property_type: got %v", l.PropertyType)
	}
	if l.Price == nil || *l.Price != 5000 {
		t.Errorf("price: got %v", l.Price)
	}
	if l.Latitude == nil || *l.Latitude != 1.32 {
		t.Errorf("latitude: got %v", l.Latitude)
	}
	if !l.IsOwner || l.IsAgent {
		t.Errorf("classification: owner=%v agent=%v", l.IsOwner, l.IsAgent)
	}
	if !l.FirstSeenDate.Equal(t0) || !l.LastSeenDate.Equal(t0) {
		t.Errorf("seen dates after run 1: %v / %v", l.FirstSeenDate, l.LastSeenDate)
	}

	// Day 2: same ad re-scraped, price dropped from the text.
	day2 := day1
	day2.RawText = "Warehouse for rent at Tuas Ave 1, 2000 sqft, call owner 91234567"
	day2.PostedAt = t1

	summary, err = e.pipeline.Run(ctx, []fetcher.RawAd{day2})
	if err != nil {
		t.Fatalf("run 2: %v", err)
	}
	if summary.Created != 0 || summary.Updated != 1 {
		t.Fatalf("run 2 summary: %+v", summary)
	}

	l = e.store.bySource["A1"]
	if l.Price == nil || *l.Price != 5000 {
		t.Errorf("price lost on re-scrape: %v", l.Price)
	}
	if !l.FirstSeenDate.Equal(t0) {
		t.Errorf("first_seen moved: %v", l.FirstSeenDate)
	}
	if !l.LastSeenDate.Equal(t1) {
		t.Errorf("last_seen not advanced: %v", l.LastSeenDate)
	}

	if a := e.advs.byPhone["91234567"]; a.TotalListings != 2 {
		t.Errorf("advertiser total_listings: got %d, want 2", a.TotalListings)
	}
	if e.geo.calls != 1 {
		t.Errorf("second run should hit the geocode cache, got %d external calls", e.geo.calls)
	}

	if len(e.runs.finished) != 2 {
		t.Fatalf("expected 2 finished runs, got %d", len(e.runs.finished))
	}
	run := e.runs.finished[0]
	if run.Status != "completed" || run.ListingsFound != 1 || run.ListingsNew != 1 {
		t.Errorf("run 1 log: %+v", run)
	}
}

// Stage fakes for failure-path tests.

type passthroughExtractor struct{}

func (passthroughExtractor) Extract(_ context.Context, rawText, _ string) *extract.CandidateListing {
	return extract.Minimal(rawText)
}

type nopResolver struct{}

func (nopResolver) Resolve(_ context.Context, _ *extract.CandidateListing, _ time.Time) (advertiser.Resolution, error) {
	return advertiser.Resolution{}, nil
}

func (nopResolver) Commit(_ context.Context, _ advertiser.Resolution) error { return nil }

type nopGeocoder struct{}

func (nopGeocoder) Geocode(_ context.Context, _ *string) *geocode.Coordinates { return nil }

type scriptedMerger struct {
	failID string
	seen   []string
}

func (m *scriptedMerger) Upsert(_ context.Context, src merge.Source, _ *extract.CandidateListing, _ *geocode.Coordinates, _ advertiser.Result, _ time.Time) (*listings.Listing, bool, error) {
	m.seen = append(m.seen, src.ID)
	if src.ID == m.failID {
		return nil, false, errors.New("store unavailable")
	}
	return &listings.Listing{SourceID: src.ID}, true, nil
}

// TestRun_PerAdFailureIsolation verifies one bad ad cannot take down the
// batch: the failure is counted and the remaining ads still process.
func TestRun_PerAdFailureIsolation(t *testing.T) {
	merger := &scriptedMerger{failID: "A2"}
	runs := &memRunLog{}
	p := pipeline.New(passthroughExtractor{}, nopResolver{}, nopGeocoder{}, merger, runs)

	ads := []fetcher.RawAd{
		{SourceID: "A1", RawText: "one"},
		{SourceID: "A2", RawText: "two"},
		{SourceID: "A3", RawText: "three"},
	}
	summary, err := p.Run(context.Background(), ads)
	if err != nil {
		t.Fatalf("per-ad failures must not fail the run: %v", err)
	}
	if summary.Created != 2 || summary.Failed != 1 {
		t.Errorf("summary: %+v", summary)
	}
	if len(summary.FailedSourceIDs) != 1 || summary.FailedSourceIDs[0] != "A2" {
		t.Errorf("failed ids: %v", summary.FailedSourceIDs)
	}
	if strings.Join(merger.seen, ",") != "A1,A2,A3" {
		t.Errorf("all ads should be attempted, got %v", merger.seen)
	}
	if runs.finished[0].Status != "completed" {
		t.Errorf("run status: %s", runs.finished[0].Status)
	}
}

// TestRun_MergeFailureLeavesAdvertiserUntouched verifies the advertiser write
// lands only after the listing upsert: a merge failure must not bump
// total_listings, or the targeted retry would double-count that advertiser.
func TestRun_MergeFailureLeavesAdvertiserUntouched(t *testing.T) {
	advs := &memAdvertiserStore{byPhone: make(map[string]listings.Advertiser)}
	merger := &scriptedMerger{failID: "A1"}
	p := pipeline.New(
		extract.NewExtractor(&extract.RulesProvider{}, 0),
		advertiser.NewResolver(advs, nil),
		nopGeocoder{},
		merger,
		nil,
	)

	ad := fetcher.RawAd{SourceID: "A1", RawText: "Warehouse for rent, call owner 91234567"}
	summary, err := p.Run(context.Background(), []fetcher.RawAd{ad})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Failed != 1 {
		t.Fatalf("summary: %+v", summary)
	}
	if len(advs.byPhone) != 0 {
		t.Fatalf("merge failure must not write the advertiser, got %+v", advs.byPhone)
	}

	// The targeted retry succeeds and counts the sighting exactly once.
	merger.failID = ""
	if _, err := p.Run(context.Background(), []fetcher.RawAd{ad}); err != nil {
		t.Fatalf("retry Run: %v", err)
	}
	if a := advs.byPhone["91234567"]; a.TotalListings != 1 {
		t.Errorf("expected total_listings 1 after retry, got %d", a.TotalListings)
	}
}

// TestRun_CancelledContextStopsBetweenAds verifies cancellation stops the
// batch and marks the run failed, leaving processed ads intact.
func TestRun_CancelledContextStopsBetweenAds(t *testing.T) {
	merger := &scriptedMerger{}
	runs := &memRunLog{}
	p := pipeline.New(passthroughExtractor{}, nopResolver{}, nopGeocoder{}, merger, runs)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := p.Run(ctx, []fetcher.RawAd{{SourceID: "A1", RawText: "one"}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if summary.Created != 0 || summary.Failed != 0 {
		t.Errorf("no ads should process after cancel: %+v", summary)
	}
	if runs.finished[0].Status != "failed" {
		t.Errorf("run status: %s", runs.finished[0].Status)
	}
}
