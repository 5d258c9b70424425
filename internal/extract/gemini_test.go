package extract_test

import (
	"errors"
	"testing"

	"github.com/CommPropIntel/CPI-Backend/internal/extract"
)

func TestParseResponse_PlainJSON(t *testing.T) {
	body := `{
		"property_name": "Ubi Techpark",
		"address": "Ubi Ave 1",
		"property_type": "Factory/Warehouse",
		"transaction_type": "Sale",
		"price": 3550000,
		"gfa_sqft": 7858,
		"contact_name": "Jean Lee",
		"contact_phone": "98183835",
		"is_agent": true,
		"agency_name": "Savills",
		"features": ["high ceiling", "vacant"]
	}`

	c, err := extract.ParseResponse(body, sampleAd)
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if c.PropertyName == nil || *c.PropertyName != "Ubi Techpark" {
		t.Errorf("property_name: got %v", c.PropertyName)
	}
	if c.Price == nil || *c.Price != 3550000 {
		t.Errorf("price: got %v", c.Price)
	}
	if c.GFASqft == nil || *c.GFASqft != 7858 {
		t.Errorf("gfa_sqft: got %v", c.GFASqft)
	}
	if len(c.Features) != 2 {
		t.Errorf("features: got %v", c.Features)
	}
	if c.RawText != sampleAd {
		t.Error("raw text must be carried through")
	}
}

// TestParseResponse_CodeFence covers the model wrapping its JSON in a markdown
// fence despite the JSON-only instruction.
func TestParseResponse_CodeFence(t *testing.T) {
	body := "```json\n{\"property_type\": \"Office\", \"price\": 14000}\n```"

	c, err := extract.ParseResponse(body, "raw")
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if c.PropertyType == nil || *c.PropertyType != "Office" {
		t.Errorf("property_type: got %v", c.PropertyType)
	}
	if c.Price == nil || *c.Price != 14000 {
		t.Errorf("price: got %v", c.Price)
	}
}

// TestParseResponse_NumericPhone covers the model returning the phone as a
// bare JSON number.
func TestParseResponse_NumericPhone(t *testing.T) {
	c, err := extract.ParseResponse(`{"contact_phone": 98183835}`, "raw")
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if c.ContactPhone == nil || *c.ContactPhone != "98183835" {
		t.Errorf("contact_phone: got %v", c.ContactPhone)
	}
}

func TestParseResponse_SanitizesEnums(t *testing.T) {
	c, err := extract.ParseResponse(`{"property_type": "Industrial", "transaction_type": "Lease", "price": -1}`, "raw")
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if c.PropertyType != nil {
		t.Errorf("out-of-enum property_type should be nil, got %v", *c.PropertyType)
	}
	if c.TransactionType != nil {
		t.Errorf("out-of-enum transaction_type should be nil, got %v", *c.TransactionType)
	}
	if c.Price != nil {
		t.Errorf("non-positive price should be nil, got %v", *c.Price)
	}
}

func TestParseResponse_NotJSON(t *testing.T) {
	_, err := extract.ParseResponse("Sure! Here is the listing information you asked for.", "raw")
	if !errors.Is(err, extract.ErrUnparsable) {
		t.Errorf("expected ErrUnparsable, got %v", err)
	}
}
