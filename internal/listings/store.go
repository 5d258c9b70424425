package listings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ListingStore is the gorm-backed store for Listing rows. The merge engine
// talks to it through its own interface so tests can swap in an in-memory
// implementation.
type ListingStore struct {
	db *gorm.DB
}

func NewListingStore(db *gorm.DB) *ListingStore {
	return &ListingStore{db: db}
}

// FindBySourceID returns the listing for sourceID, or nil if none exists.
func (s *ListingStore) FindBySourceID(ctx context.Context, sourceID string) (*Listing, error) {
	var l Listing
	err := s.db.WithContext(ctx).First(&l, "source_id = ?", sourceID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find listing by source_id: %w", err)
	}
	return &l, nil
}

// FindByFingerprint returns any listing carrying the given text fingerprint,
// or nil. Used only for repost detection, so one arbitrary match suffices.
func (s *ListingStore) FindByFingerprint(ctx context.Context, fp string) (*Listing, error) {
	var l Listing
	err := s.db.WithContext(ctx).First(&l, "fingerprint = ?", fp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find listing by fingerprint: %w", err)
	}
	return &l, nil
}

func (s *ListingStore) Create(ctx context.Context, l *Listing) error {
	if err := s.db.WithContext(ctx).Create(l).Error; err != nil {
		return fmt.Errorf("create listing %s: %w", l.SourceID, err)
	}
	return nil
}

func (s *ListingStore) Save(ctx context.Context, l *Listing) error {
	if err := s.db.WithContext(ctx).Save(l).Error; err != nil {
		return fmt.Errorf("save listing %s: %w", l.SourceID, err)
	}
	return nil
}

// ListingTx is the view of the listing table an upsert operates on. The merge
// engine receives one scoped to a transaction; in-memory test stores implement
// it directly.
type ListingTx interface {
	FindBySourceID(ctx context.Context, sourceID string) (*Listing, error)
	FindByFingerprint(ctx context.Context, fp string) (*Listing, error)
	Create(ctx context.Context, l *Listing) error
	Save(ctx context.Context, l *Listing) error
}

// Transact runs fn against a transaction-scoped store, so a read-modify-write
// upsert of one source_id is a single logical transaction with no partial
// writes visible to readers.
func (s *ListingStore) Transact(ctx context.Context, fn func(tx ListingTx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&ListingStore{db: tx})
	})
}

// AdvertiserStore persists Advertiser rows keyed by normalized phone.
type AdvertiserStore struct {
	db *gorm.DB
}

func NewAdvertiserStore(db *gorm.DB) *AdvertiserStore {
	return &AdvertiserStore{db: db}
}

// FindByPhone returns the advertiser for phone, or nil if none exists.
func (s *AdvertiserStore) FindByPhone(ctx context.Context, phone string) (*Advertiser, error) {
	var a Advertiser
	err := s.db.WithContext(ctx).First(&a, "phone = ?", phone).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find advertiser %s: %w", phone, err)
	}
	return &a, nil
}

func (s *AdvertiserStore) Create(ctx context.Context, a *Advertiser) error {
	if err := s.db.WithContext(ctx).Create(a).Error; err != nil {
		return fmt.Errorf("create advertiser %s: %w", a.Phone, err)
	}
	return nil
}

func (s *AdvertiserStore) Save(ctx context.Context, a *Advertiser) error {
	if err := s.db.WithContext(ctx).Save(a).Error; err != nil {
		return fmt.Errorf("save advertiser %s: %w", a.Phone, err)
	}
	return nil
}

// GeocodeCacheStore persists successful geocode results keyed by normalized
// address.
type GeocodeCacheStore struct {
	db *gorm.DB
}

func NewGeocodeCacheStore(db *gorm.DB) *GeocodeCacheStore {
	return &GeocodeCacheStore{db: db}
}

// Get returns the cached entry for key, or nil on a miss.
func (s *GeocodeCacheStore) Get(ctx context.Context, key string) (*GeocodeCacheEntry, error) {
	var e GeocodeCacheEntry
	err := s.db.WithContext(ctx).First(&e, "normalized_address = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("geocode cache get %q: %w", key, err)
	}
	return &e, nil
}

// Put stores a successful geocode. Entries are immutable once written, so a
// concurrent duplicate insert of the same key is harmless and ignored.
func (s *GeocodeCacheStore) Put(ctx context.Context, e *GeocodeCacheEntry) error {
	err := s.db.WithContext(ctx).
		Where("normalized_address = ?", e.NormalizedAddress).
		FirstOrCreate(e).Error
	if err != nil {
		return fmt.Errorf("geocode cache put %q: %w", e.NormalizedAddress, err)
	}
	return nil
}

// RunStore logs pipeline invocations.
type RunStore struct {
	db *gorm.DB
}

func NewRunStore(db *gorm.DB) *RunStore {
	return &RunStore{db: db}
}

func (s *RunStore) Start(ctx context.Context) (*ScrapeRun, error) {
	run := &ScrapeRun{StartedAt: time.Now().UTC(), Status: "running"}
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return nil, fmt.Errorf("start scrape run: %w", err)
	}
	return run, nil
}

func (s *RunStore) Finish(ctx context.Context, run *ScrapeRun) error {
	now := time.Now().UTC()
	run.FinishedAt = &now
	if err := s.db.WithContext(ctx).Save(run).Error; err != nil {
		return fmt.Errorf("finish scrape run %d: %w", run.ID, err)
	}
	return nil
}
