package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const listPageText = `
Commercial/Industrial Properties
Factory/ Warehouse Space - 3963
UBI TECHPARK B1 workshop for sale. 7858 sf, $3.55M neg. Call Jean Lee 98183835
Commercial/Industrial Properties
Office Space - 1020
Short, no phone
Commercial/Industrial Properties
Shop Space - 2000
Prime shop unit at Geylang for rent, $8K, contact 81234567 direct owner
`

func TestParseListText(t *testing.T) {
	postedAt := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	ads := ParseListText(listPageText, postedAt, BaseURL)
	if len(ads) != 2 {
		t.Fatalf("expected 2 ads (middle block is noise), got %d", len(ads))
	}

	first := ads[0]
	if first.Category != "Commercial/Industrial Properties - Factory/ Warehouse Space - 3963" {
		t.Errorf("category: got %q", first.Category)
	}
	if first.RawText != "UBI TECHPARK B1 workshop for sale. 7858 sf, $3.55M neg. Call Jean Lee 98183835" {
		t.Errorf("raw text: got %q", first.RawText)
	}
	if first.SourceID == "" || first.SourceID == ads[1].SourceID {
		t.Error("each ad needs its own stable source id")
	}
	if !first.PostedAt.Equal(postedAt) {
		t.Errorf("posted_at: got %v", first.PostedAt)
	}
}

func TestSourceID_StableAcrossScrapeNoise(t *testing.T) {
	a := SourceID("UBI TECHPARK B1  workshop for sale.\n7858 sf")
	b := SourceID("ubi techpark b1 workshop for sale. 7858 sf")
	if a != b {
		t.Error("whitespace and case noise should not change the source id")
	}
	if len(a) != 16 {
		t.Errorf("source id length: got %d", len(a))
	}

	c := SourceID("UBI TECHPARK B1 workshop for rent. 7858 sf")
	if a == c {
		t.Error("different text should produce a different source id")
	}
}

func TestSTClassifieds_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("fetch should send a User-Agent")
		}
		fmt.Fprintf(w, `<html><body><div class="listView">%s</div></body></html>`, listPageText)
	}))
	defer srv.Close()

	f := &STClassifieds{baseURL: srv.URL, httpClient: srv.Client()}
	ads, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(ads) != 2 {
		t.Errorf("expected 2 ads, got %d", len(ads))
	}
}

func TestSTClassifieds_FetchNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><div class="listView">No results found</div></body></html>`)
	}))
	defer srv.Close()

	f := &STClassifieds{baseURL: srv.URL, httpClient: srv.Client()}
	ads, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if ads != nil {
		t.Errorf("expected no ads, got %d", len(ads))
	}
}

func TestReplay_DerivesMissingSourceIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.json")
	data := `[
		{"source_id": "abc123", "raw_text": "Warehouse for rent 91234567"},
		{"raw_text": "Office for sale 81234567"}
	]`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	ads, err := NewReplay(path).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(ads) != 2 {
		t.Fatalf("expected 2 ads, got %d", len(ads))
	}
	if ads[0].SourceID != "abc123" {
		t.Errorf("existing id overwritten: %q", ads[0].SourceID)
	}
	if ads[1].SourceID != SourceID("Office for sale 81234567") {
		t.Errorf("missing id not derived: %q", ads[1].SourceID)
	}
}
