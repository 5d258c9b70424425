package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// Replay reads a previously captured batch of raw ads from a JSON file. Used
// for backfills and for re-running the pipeline over a known ad set.
type Replay struct {
	path string
}

func NewReplay(path string) *Replay {
	return &Replay{path: path}
}

func (r *Replay) Fetch(ctx context.Context) ([]RawAd, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("read replay file %s: %w", r.path, err)
	}

	var ads []RawAd
	if err := json.Unmarshal(data, &ads); err != nil {
		return nil, fmt.Errorf("parse replay file %s: %w", r.path, err)
	}

	// Captured files may omit ids; derive them the same way the scraper does.
	for i := range ads {
		if ads[i].SourceID == "" {
			ads[i].SourceID = SourceID(ads[i].RawText)
		}
	}

	return ads, nil
}
