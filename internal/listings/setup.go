package listings

import (
	"log"

	"github.com/CommPropIntel/CPI-Backend/internal/db"
)

func Init() {
	if err := db.EnsureSchema(db.DB, "commprop"); err != nil {
		log.Fatal("Failed to ensure schema commprop: ", err)
	}

	if err := db.DB.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		log.Fatal("Failed to enable uuid-ossp extension:", err)
	}

	if err := db.DB.AutoMigrate(
		&Listing{},
		&Advertiser{},
		&GeocodeCacheEntry{},
		&ScrapeRun{},
	); err != nil {
		log.Fatal("Failed to auto-migrate tables", err)
	}
}
