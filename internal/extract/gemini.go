package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"google.golang.org/genai"
)

func init() {
	RegisterProvider(ProviderGemini, func(cfg Config) (Provider, error) {
		return NewGeminiProvider(cfg)
	})
}

const extractionPrompt = `You are an expert at parsing Singapore commercial/industrial property listings.

Extract structured information from the listing below.

Category: %s
Listing text:
%s

Return a single JSON object:
{
    "property_name": "Building/property name (e.g. 'Ubi Techpark', 'Sim Lim Tower') or null",
    "address": "Any address or location hint (e.g. 'Tuas Ave 1', 'opp Aljunied MRT', 'Mandai') or null",
    "property_type": "One of: Factory/Warehouse, Office, Shop, Mixed, Other, or null",
    "transaction_type": "One of: Sale, Rent, Both, or null",
    "price": <numeric price in SGD, e.g. 3550000 for $3.55M, 14000 for $14K, or null>,
    "gfa_sqft": <floor area in sqft as number, or null>,
    "lease_type": "Freehold, 999yr, 99yr, 60yr, 30yr, or null",
    "contact_name": "Contact person name or null",
    "contact_phone": "8-digit Singapore phone number or null",
    "is_owner": <true if text contains 'owner' or 'direct owner', false otherwise>,
    "is_agent": <true if text mentions an agency or indicates agent, false otherwise>,
    "agency_name": "Agency name if mentioned, or null",
    "features": ["notable features, or empty array"]
}

IMPORTANT GUIDELINES:
- Look for ANY location hints: building names, street names, area names, landmarks like "opp MRT", "near", etc.
- Convert prices: "$3.55M" = 3550000, "$14K" = 14000
- Phone numbers are 8 digits starting with 6, 8, or 9
- Return ONLY the JSON object, no other text.`

// strictDirective is appended on the retry after an unparsable first response.
const strictDirective = "\n\nYour previous response was not valid JSON. Return VALID JSON ONLY: a single JSON object, no markdown, no commentary."

var codeFence = regexp.MustCompile("(?s)^```(?:json)?\\n?(.*?)\\n?```$")

// GeminiProvider extracts listings with the Gemini API.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider creates the provider from config.
func NewGeminiProvider(cfg Config) (*GeminiProvider, error) {
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &GeminiProvider{client: client, model: cfg.GeminiModel}, nil
}

func (p *GeminiProvider) Name() string { return ProviderGemini }

// Extract sends the ad text to Gemini and parses the JSON response. On a
// malformed response it retries once with a stricter valid-JSON-only
// directive; a second failure is returned to the caller, which degrades the
// ad to a minimal candidate.
func (p *GeminiProvider) Extract(ctx context.Context, rawText, category string) (*CandidateListing, error) {
	prompt := fmt.Sprintf(extractionPrompt, category, rawText)

	candidate, err := p.generate(ctx, prompt, rawText)
	if err == nil {
		return candidate, nil
	}

	candidate, retryErr := p.generate(ctx, prompt+strictDirective, rawText)
	if retryErr != nil {
		return nil, fmt.Errorf("extraction failed after retry: %w (first attempt: %v)", retryErr, err)
	}
	return candidate, nil
}

func (p *GeminiProvider) generate(ctx context.Context, prompt, rawText string) (*CandidateListing, error) {
	resp, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0.1),
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("gemini request: %w", err)
	}

	return ParseResponse(resp.Text(), rawText)
}

// wireCandidate tolerates the looseness of model output: numbers may arrive
// as floats, phone numbers sometimes as bare numbers.
type wireCandidate struct {
	PropertyName    *string     `json:"property_name"`
	Address         *string     `json:"address"`
	PropertyType    *string     `json:"property_type"`
	TransactionType *string     `json:"transaction_type"`
	Price           *float64    `json:"price"`
	GFASqft         *float64    `json:"gfa_sqft"`
	LeaseType       *string     `json:"lease_type"`
	ContactName     *string     `json:"contact_name"`
	ContactPhone    *flexString `json:"contact_phone"`
	IsOwner         bool        `json:"is_owner"`
	IsAgent         bool        `json:"is_agent"`
	AgencyName      *string     `json:"agency_name"`
	Features        []string    `json:"features"`
}

// flexString unmarshals from either a JSON string or a JSON number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*f = flexString(n.String())
		return nil
	}
	return fmt.Errorf("contact_phone: expected string or number, got %s", string(b))
}

// ParseResponse turns a model response body into a sanitized candidate.
// Markdown code fences around the JSON are tolerated.
func ParseResponse(body, rawText string) (*CandidateListing, error) {
	text := strings.TrimSpace(body)
	if m := codeFence.FindStringSubmatch(text); m != nil {
		text = m[1]
	}

	var wire wireCandidate
	if err := json.Unmarshal([]byte(text), &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparsable, err)
	}

	c := &CandidateListing{
		PropertyName:    wire.PropertyName,
		AddressText:     wire.Address,
		PropertyType:    wire.PropertyType,
		TransactionType: wire.TransactionType,
		LeaseType:       wire.LeaseType,
		ContactName:     wire.ContactName,
		IsOwner:         wire.IsOwner,
		IsAgent:         wire.IsAgent,
		AgencyName:      wire.AgencyName,
		Features:        wire.Features,
		RawText:         rawText,
	}
	if wire.Price != nil {
		v := int64(*wire.Price)
		c.Price = &v
	}
	if wire.GFASqft != nil {
		v := int64(*wire.GFASqft)
		c.GFASqft = &v
	}
	if wire.ContactPhone != nil {
		s := string(*wire.ContactPhone)
		c.ContactPhone = &s
	}

	Sanitize(c)
	return c, nil
}
