package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	"github.com/CommPropIntel/CPI-Backend/internal/advertiser"
	"github.com/CommPropIntel/CPI-Backend/internal/config"
	"github.com/CommPropIntel/CPI-Backend/internal/db"
	"github.com/CommPropIntel/CPI-Backend/internal/extract"
	"github.com/CommPropIntel/CPI-Backend/internal/fetcher"
	"github.com/CommPropIntel/CPI-Backend/internal/geocode"
	"github.com/CommPropIntel/CPI-Backend/internal/listings"
	"github.com/CommPropIntel/CPI-Backend/internal/merge"
	"github.com/CommPropIntel/CPI-Backend/internal/pipeline"
)

var replayPath = flag.String("replay", "", "Process a captured JSON batch instead of scraping the site")

func main() {
	_ = godotenv.Load(".env.local")
	flag.Parse()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db.Connect()
	listings.Init()

	provider, err := extract.NewProvider(extract.LoadFromEnv())
	if err != nil {
		log.Fatalf("extraction provider: %v", err)
	}
	log.Printf("[scrape] using %s extraction provider", provider.Name())

	geoLimiter := rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)

	p := pipeline.New(
		extract.NewExtractor(provider, cfg.RatePerSecond),
		advertiser.NewResolver(listings.NewAdvertiserStore(db.DB), cfg.Agencies),
		geocode.New(listings.NewGeocodeCacheStore(db.DB), geocode.NewClient(), cfg.KnownLocations, geoLimiter),
		merge.NewEngine(listings.NewListingStore(db.DB)),
		listings.NewRunStore(db.DB),
	)

	var f fetcher.Fetcher = fetcher.NewSTClassifieds()
	if *replayPath != "" {
		f = fetcher.NewReplay(*replayPath)
	}

	// A scrape run can be interrupted between ads without corruption; each
	// ad's upsert is atomic and independent.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ads, err := f.Fetch(ctx)
	if err != nil {
		log.Fatalf("fetch: %v", err)
	}
	ads = withinDaysBack(ads, cfg.DaysBack)
	log.Printf("[scrape] fetched %d raw ads", len(ads))

	summary, err := p.Run(ctx, ads)
	if err != nil {
		log.Printf("[scrape] run interrupted: %v", err)
	}

	fmt.Printf("Scrape complete: %d found, %d new, %d updated, %d failed\n",
		summary.Found, summary.Created, summary.Updated, summary.Failed)
	for _, id := range summary.FailedSourceIDs {
		fmt.Printf("  failed: %s\n", id)
	}
	if summary.Failed > 0 || err != nil {
		os.Exit(1)
	}
}

// withinDaysBack drops ads posted before the run's coverage window. Ads with
// no posted date (fresh scrapes) always pass.
func withinDaysBack(ads []fetcher.RawAd, daysBack int) []fetcher.RawAd {
	if daysBack <= 0 {
		return ads
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -daysBack)

	kept := ads[:0]
	for _, ad := range ads {
		if !ad.PostedAt.IsZero() && ad.PostedAt.Before(cutoff) {
			continue
		}
		kept = append(kept, ad)
	}
	return kept
}
