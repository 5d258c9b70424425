package extract

import (
	"context"
	"log"

	"golang.org/x/time/rate"
)

// Extractor wraps a Provider with the pipeline's degradation policy: provider
// failure (after the provider's own retry) yields a minimal candidate, never
// an error, so a flaky AI service cannot abort a run or drop an ad. It also
// owns the throttle on outbound AI calls; the rules provider is local, so it
// is never throttled.
type Extractor struct {
	provider Provider
	limiter  *rate.Limiter // nil when the provider makes no external call
}

func NewExtractor(p Provider, ratePerSecond float64) *Extractor {
	var limiter *rate.Limiter
	if ratePerSecond > 0 && p.Name() != ProviderRules {
		limiter = rate.NewLimiter(rate.Limit(ratePerSecond), 1)
	}
	return &Extractor{provider: p, limiter: limiter}
}

// Extract returns a sanitized candidate for rawText. Always non-nil.
func (e *Extractor) Extract(ctx context.Context, rawText, category string) *CandidateListing {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			log.Printf("[extract] throttle wait aborted, persisting minimal listing: %v", err)
			return Minimal(rawText)
		}
	}

	c, err := e.provider.Extract(ctx, rawText, category)
	if err != nil {
		log.Printf("[extract] %s provider failed, persisting minimal listing: %v", e.provider.Name(), err)
		return Minimal(rawText)
	}
	return c
}
