package extract

import (
	"context"
	"regexp"
	"strconv"
	"strings"
)

func init() {
	RegisterProvider(ProviderRules, func(cfg Config) (Provider, error) {
		return &RulesProvider{}, nil
	})
}

// Regex patterns for the rules provider. These are deliberately conservative:
// a missed field is recoverable on a later scrape, a wrong one pollutes the
// listing until a non-null value overwrites it.
var (
	rePhone     = regexp.MustCompile(`([689]\d{7})`)
	rePriceMil  = regexp.MustCompile(`(?i)\$?\s*([\d,]+(?:\.\d+)?)\s*(?:M\b|mil|million)`)
	rePriceK    = regexp.MustCompile(`(?i)\$?\s*([\d,]+(?:\.\d+)?)\s*K\b`)
	reSqft      = regexp.MustCompile(`(?i)([\d,]+)\s*(?:sf\b|sqft|sq\s*ft)`)
	reOwner     = regexp.MustCompile(`(?i)\bowner\b|\bdirect\b`)
	reAgency    = regexp.MustCompile(`(?i)propnex|era\b|orangetee|huttons|dennis wee|knight frank|savills`)
	reSale      = regexp.MustCompile(`(?i)\bsale\b`)
	reRent      = regexp.MustCompile(`(?i)\brent\b|\blease\b`)
	rePropName  = regexp.MustCompile(`^([A-Z][A-Za-z]+(?:\s+[A-Z][A-Za-z]+){0,3})`)
	reLocations = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:at|@|near|opp|opposite)\s+([A-Za-z\s]+(?:MRT|Road|Ave|Street|Park|Hub|Centre|Center))`),
		regexp.MustCompile(`(?i)\b(Tuas|Ubi|Tai Seng|Mandai|Woodlands|Jurong|Changi|Paya Lebar|Geylang|Aljunied|Kallang)\b`),
	}
)

// RulesProvider is the regex fallback extractor. It is used when no AI key is
// configured, and by tests that need deterministic extraction. It never fails.
type RulesProvider struct{}

func (p *RulesProvider) Name() string { return ProviderRules }

func (p *RulesProvider) Extract(ctx context.Context, rawText, category string) (*CandidateListing, error) {
	c := &CandidateListing{RawText: rawText}

	if m := rePhone.FindStringSubmatch(rawText); m != nil {
		c.ContactPhone = &m[1]
	}

	if price := parsePrice(rawText); price > 0 {
		c.Price = &price
	}

	if m := reSqft.FindStringSubmatch(rawText); m != nil {
		if v, err := strconv.ParseInt(strings.ReplaceAll(m[1], ",", ""), 10, 64); err == nil {
			c.GFASqft = &v
		}
	}

	c.IsOwner = reOwner.MatchString(rawText)
	c.IsAgent = reAgency.MatchString(rawText)

	if m := rePropName.FindStringSubmatch(rawText); m != nil {
		c.PropertyName = &m[1]
	}
	for _, re := range reLocations {
		if m := re.FindStringSubmatch(rawText); m != nil {
			addr := strings.TrimSpace(m[1])
			c.AddressText = &addr
			break
		}
	}

	if t := typeFromCategory(category); t != "" {
		c.PropertyType = &t
	}

	sale, rent := reSale.MatchString(rawText), reRent.MatchString(rawText)
	switch {
	case sale && rent:
		both := "Both"
		c.TransactionType = &both
	case sale:
		s := "Sale"
		c.TransactionType = &s
	case rent:
		r := "Rent"
		c.TransactionType = &r
	}

	Sanitize(c)
	return c, nil
}

func parsePrice(text string) int64 {
	if m := rePriceMil.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64); err == nil {
			return int64(v * 1_000_000)
		}
	}
	if m := rePriceK.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64); err == nil {
			return int64(v * 1_000)
		}
	}
	return 0
}

func typeFromCategory(category string) string {
	c := strings.ToLower(category)
	switch {
	case strings.Contains(c, "factory"), strings.Contains(c, "warehouse"):
		return "Factory/Warehouse"
	case strings.Contains(c, "office"):
		return "Office"
	case strings.Contains(c, "shop"):
		return "Shop"
	case c == "":
		return ""
	}
	return "Other"
}
