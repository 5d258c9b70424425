package extract

import (
	"regexp"
	"strings"
)

// CandidateListing is the structured-extraction output for one raw ad. It is
// transient: it exists only within a pipeline run, until the merge engine folds
// it into a durable Listing. Nil means "the extractor could not find this
// field", which the merge policy treats differently from a real value.
type CandidateListing struct {
	PropertyName    *string  `json:"property_name"`
	AddressText     *string  `json:"address"`
	PropertyType    *string  `json:"property_type"`
	TransactionType *string  `json:"transaction_type"`
	Price           *int64   `json:"price"`
	GFASqft         *int64   `json:"gfa_sqft"`
	LeaseType       *string  `json:"lease_type"`
	ContactName     *string  `json:"contact_name"`
	ContactPhone    *string  `json:"contact_phone"`
	IsOwner         bool     `json:"is_owner"`
	IsAgent         bool     `json:"is_agent"`
	AgencyName      *string  `json:"agency_name"`
	Features        []string `json:"features,omitempty"`
	RawText         string   `json:"-"`
}

// Recognized enum values. Anything else is coerced to nil rather than
// rejecting the record.
var propertyTypes = map[string]bool{
	"Factory/Warehouse": true,
	"Office":            true,
	"Shop":              true,
	"Mixed":             true,
	"Other":             true,
}

var transactionTypes = map[string]bool{
	"Sale": true,
	"Rent": true,
	"Both": true,
}

var phoneDigits = regexp.MustCompile(`\D`)

// Sanitize enforces field-level sanity on an extraction result, in place:
// out-of-enum strings and non-positive numbers become nil instead of failing
// the whole candidate.
func Sanitize(c *CandidateListing) {
	if c.PropertyType != nil && !propertyTypes[*c.PropertyType] {
		c.PropertyType = nil
	}
	if c.TransactionType != nil && !transactionTypes[*c.TransactionType] {
		c.TransactionType = nil
	}
	if c.Price != nil && *c.Price <= 0 {
		c.Price = nil
	}
	if c.GFASqft != nil && *c.GFASqft <= 0 {
		c.GFASqft = nil
	}
	c.ContactPhone = sanitizePhone(c.ContactPhone)

	if c.PropertyName != nil && strings.TrimSpace(*c.PropertyName) == "" {
		c.PropertyName = nil
	}
	if c.AddressText != nil && strings.TrimSpace(*c.AddressText) == "" {
		c.AddressText = nil
	}
}

// sanitizePhone keeps only valid 8-digit Singapore numbers starting 6, 8 or 9.
func sanitizePhone(p *string) *string {
	if p == nil {
		return nil
	}
	digits := phoneDigits.ReplaceAllString(*p, "")
	if len(digits) == 10 && strings.HasPrefix(digits, "65") {
		digits = digits[2:] // country code
	}
	if len(digits) != 8 {
		return nil
	}
	switch digits[0] {
	case '6', '8', '9':
		return &digits
	}
	return nil
}

// Minimal returns the degraded candidate used when extraction fails entirely:
// everything nil except the raw text, so the ad is still persisted for manual
// review instead of dropped.
func Minimal(rawText string) *CandidateListing {
	return &CandidateListing{RawText: rawText}
}
