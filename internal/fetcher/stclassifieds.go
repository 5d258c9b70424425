package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// BaseURL is the Commercial/Industrial Properties section of stclassifieds.sg.
const BaseURL = "https://www.stclassifieds.sg/section/sub/list/properties/759"

var (
	reCategoryMark = regexp.MustCompile(`(?i)Commercial[/\s]*Industrial\s*Properties`)
	reSubcategory  = regexp.MustCompile(`(?is)^\s*([A-Za-z/ ]+Space\s*-\s*\d+)\s*(.+)$`)
	reAnyPhone     = regexp.MustCompile(`\d{8}`)
)

// STClassifieds fetches the listing page and splits it into raw ads. The site
// renders listings as running text inside the list view, with category
// headers as the only structure, so parsing is text-pattern based.
type STClassifieds struct {
	baseURL    string
	httpClient *http.Client
}

func NewSTClassifieds() *STClassifieds {
	return &STClassifieds{
		baseURL: BaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Fetch downloads the current listing page and parses it into RawAds.
func (f *STClassifieds) Fetch(ctx context.Context) ([]RawAd, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; commprop-intel)")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch listings page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listings page returned HTTP %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse listings page: %w", err)
	}

	content := doc.Find("div.listView")
	if content.Length() == 0 {
		content = doc.Selection
	}
	text := content.Text()

	if strings.Contains(text, "No results found") {
		return nil, nil
	}

	return ParseListText(text, time.Now().UTC(), f.baseURL), nil
}

// ParseListText splits the page's running text into individual ads. Each
// "Commercial/Industrial Properties" header starts a block; the block's
// subcategory line ("Factory/ Warehouse Space - 3963") gives the category and
// the rest is the ad text. Blocks without an 8-digit phone number are noise.
func ParseListText(text string, postedAt time.Time, sourceURL string) []RawAd {
	var ads []RawAd

	marks := reCategoryMark.FindAllStringIndex(text, -1)
	for i, mark := range marks {
		start := mark[1]
		end := len(text)
		if i+1 < len(marks) {
			end = marks[i+1][0]
		}

		m := reSubcategory.FindStringSubmatch(text[start:end])
		if m == nil {
			continue
		}
		subcategory := strings.TrimSpace(m[1])
		body := strings.Join(strings.Fields(m[2]), " ")

		if len(body) > 500 {
			body = body[:500]
		}
		if len(body) <= 30 || !reAnyPhone.MatchString(body) {
			continue
		}

		ads = append(ads, RawAd{
			SourceID:  SourceID(body),
			RawText:   body,
			Category:  "Commercial/Industrial Properties - " + subcategory,
			PostedAt:  postedAt,
			SourceURL: sourceURL,
		})
	}

	return ads
}
