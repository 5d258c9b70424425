package listings

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Listing is one advertised property, keyed for dedup by SourceID. A listing
// is created the first time its SourceID is seen and updated in place on every
// re-scrape; rows are never hard-deleted because trend queries depend on the
// first_seen/last_seen continuity.
type Listing struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	SourceID    string    `gorm:"uniqueIndex;not null" json:"source_id"`
	Fingerprint string    `gorm:"index" json:"-"` // sha256 of normalized raw text, for repost detection

	PropertyName    *string  `json:"property_name"`
	PropertyType    *string  `gorm:"index" json:"property_type"`
	TransactionType *string  `gorm:"index" json:"transaction_type"`
	Price           *int64   `json:"price"`
	GFASqft         *int64   `json:"gfa_sqft"`
	LeaseType       *string  `json:"lease_type"`
	AddressText     *string  `json:"address_text"`
	Latitude        *float64 `json:"latitude"`
	Longitude       *float64 `json:"longitude"`

	ContactName  *string `json:"contact_name"`
	ContactPhone *string `gorm:"index" json:"contact_phone"`
	IsOwner      bool    `json:"is_owner"`
	IsAgent      bool    `json:"is_agent"`
	AgencyName   *string `json:"agency_name"`

	Features  pq.StringArray `gorm:"type:text[]" json:"features,omitempty"`
	Category  *string        `json:"category"`
	SourceURL string         `json:"source_url"`
	RawText   string         `gorm:"type:text;not null" json:"raw_text"`

	FirstSeenDate time.Time `gorm:"not null;index" json:"first_seen_date"`
	LastSeenDate  time.Time `gorm:"not null;index" json:"last_seen_date"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (Listing) TableName() string {
	return "commprop.listings"
}

// Advertiser is a contact identity. Phone number is the identity key; name and
// agency may vary across ads and are reconciled first-non-null-wins.
type Advertiser struct {
	Phone         string    `gorm:"primaryKey" json:"phone"`
	Name          *string   `json:"name"`
	IsOwner       bool      `json:"is_owner"`
	IsAgent       bool      `json:"is_agent"`
	AgencyName    *string   `json:"agency_name"`
	TotalListings int       `gorm:"default:0" json:"total_listings"`
	FirstSeen     time.Time `json:"first_seen"`
	LastSeen      time.Time `json:"last_seen"`
}

func (Advertiser) TableName() string {
	return "commprop.advertisers"
}

// GeocodeCacheEntry caches one successful geocode, keyed by the normalized
// address. Failures are never cached, so later runs retry them.
type GeocodeCacheEntry struct {
	NormalizedAddress string    `gorm:"primaryKey" json:"normalized_address"`
	Latitude          float64   `json:"latitude"`
	Longitude         float64   `json:"longitude"`
	ResolvedAt        time.Time `json:"resolved_at"`
}

func (GeocodeCacheEntry) TableName() string {
	return "commprop.geocode_cache"
}

// ScrapeRun logs one pipeline invocation.
type ScrapeRun struct {
	ID              uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	StartedAt       time.Time  `json:"started_at"`
	FinishedAt      *time.Time `json:"finished_at"`
	ListingsFound   int        `gorm:"default:0" json:"listings_found"`
	ListingsNew     int        `gorm:"default:0" json:"listings_new"`
	ListingsUpdated int        `gorm:"default:0" json:"listings_updated"`
	ListingsFailed  int        `gorm:"default:0" json:"listings_failed"`
	Status          string     `gorm:"default:'running'" json:"status"` // running, completed, failed
	ErrorMessage    *string    `json:"error_message"`
}

func (ScrapeRun) TableName() string {
	return "commprop.scrape_runs"
}
