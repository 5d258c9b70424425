package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// BaseURL is the OneMap search endpoint.
const BaseURL = "https://www.onemap.gov.sg/api/common/elastic/search"

// Coordinates is a resolved latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Client wraps Singapore's OneMap search API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a OneMap client. The API is keyless for search.
func NewClient() *Client {
	return &Client{
		baseURL: BaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type searchResponse struct {
	Found   int            `json:"found"`
	Results []searchResult `json:"results"`
}

// OneMap returns coordinates as strings.
type searchResult struct {
	Latitude  string `json:"LATITUDE"`
	Longitude string `json:"LONGITUDE"`
}

// Search resolves a free-form address or building name. Returns nil, nil when
// OneMap has no match; a non-nil error means the service itself failed.
func (c *Client) Search(ctx context.Context, query string) (*Coordinates, error) {
	params := url.Values{}
	params.Set("searchVal", query)
	params.Set("returnGeom", "Y")
	params.Set("getAddrDetails", "Y")
	params.Set("pageNum", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("onemap request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("onemap returned HTTP %d", resp.StatusCode)
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding onemap response: %w", err)
	}

	if body.Found == 0 || len(body.Results) == 0 {
		return nil, nil
	}

	lat, err := strconv.ParseFloat(body.Results[0].Latitude, 64)
	if err != nil {
		return nil, fmt.Errorf("bad latitude %q: %w", body.Results[0].Latitude, err)
	}
	lng, err := strconv.ParseFloat(body.Results[0].Longitude, 64)
	if err != nil {
		return nil, fmt.Errorf("bad longitude %q: %w", body.Results[0].Longitude, err)
	}
	if lat == 0 && lng == 0 {
		return nil, nil
	}

	return &Coordinates{Lat: lat, Lng: lng}, nil
}
