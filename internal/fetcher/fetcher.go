package fetcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// RawAd is one scraped advertisement, immutable once fetched. SourceID is the
// dedup key: re-scraping the same ad must yield the same SourceID.
type RawAd struct {
	SourceID  string    `json:"source_id"`
	RawText   string    `json:"raw_text"`
	Category  string    `json:"category"`
	PostedAt  time.Time `json:"posted_at"`
	SourceURL string    `json:"source_url"`
}

// Fetcher supplies a finite, replayable batch of raw ads per invocation.
type Fetcher interface {
	Fetch(ctx context.Context) ([]RawAd, error)
}

// SourceID derives a stable identifier from an ad's text. The site does not
// expose per-ad ids, so the id is content-derived; whitespace and case noise
// are normalized out so re-scrapes hash identically.
func SourceID(rawText string) string {
	t := strings.Join(strings.Fields(strings.ToLower(rawText)), " ")
	if len(t) > 100 {
		t = t[:100]
	}
	sum := sha256.Sum256([]byte(t))
	return hex.EncodeToString(sum[:])[:16]
}
