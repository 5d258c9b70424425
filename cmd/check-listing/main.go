package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/CommPropIntel/CPI-Backend/internal/geocode"
)

// CLI flags
var (
	sourceID    = flag.String("source-id", "", "Source id of the listing to inspect (required unless -drop-geocode)")
	dsn         = flag.String("dsn", os.Getenv("DATABASE_URL"), "Postgres DSN (default: env DATABASE_URL)")
	dropGeocode = flag.String("drop-geocode", "", "Delete the geocode cache row for this normalized address, forcing a re-resolve on the next run")
)

func main() {
	_ = godotenv.Load(".env.local")
	flag.Parse()

	if *dsn == "" {
		fatalf("--dsn not provided and DATABASE_URL not set")
	}
	if *sourceID == "" && *dropGeocode == "" {
		fatalf("provide --source-id or --drop-geocode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		fatalf("connect: %v", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		fatalf("ping: %v", err)
	}

	if *dropGeocode != "" {
		res, err := db.ExecContext(ctx,
			`DELETE FROM commprop.geocode_cache WHERE normalized_address = $1`, *dropGeocode)
		if err != nil {
			fatalf("delete geocode cache: %v", err)
		}
		n, _ := res.RowsAffected()
		fmt.Printf("Deleted %d geocode cache row(s) for %q\n", n, *dropGeocode)
		if *sourceID == "" {
			return
		}
	}

	if err := showListing(ctx, db, *sourceID); err != nil {
		fatalf("%v", err)
	}
}

func showListing(ctx context.Context, db *sql.DB, sourceID string) error {
	var (
		id, rawText              string
		propertyName, propType   sql.NullString
		transaction, phone, name sql.NullString
		address                  sql.NullString
		price, gfa               sql.NullInt64
		lat, lng                 sql.NullFloat64
		isOwner, isAgent         bool
		firstSeen, lastSeen      time.Time
	)

	err := db.QueryRowContext(ctx, `
		SELECT id, property_name, property_type, transaction_type, price, gfa_sqft,
		       address_text, latitude, longitude, contact_name, contact_phone,
		       is_owner, is_agent, first_seen_date, last_seen_date, raw_text
		FROM commprop.listings WHERE source_id = $1`, sourceID).
		Scan(&id, &propertyName, &propType, &transaction, &price, &gfa,
			&address, &lat, &lng, &name, &phone, &isOwner, &isAgent,
			&firstSeen, &lastSeen, &rawText)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("no listing with source_id %s", sourceID)
	}
	if err != nil {
		return fmt.Errorf("query listing: %w", err)
	}

	fmt.Printf("Listing %s (source_id %s)\n", id, sourceID)
	fmt.Printf("  name: %s  type: %s  transaction: %s\n", orDash(propertyName), orDash(propType), orDash(transaction))
	fmt.Printf("  price: %s  gfa_sqft: %s\n", orDashInt(price), orDashInt(gfa))
	if lat.Valid {
		fmt.Printf("  coords: %.5f, %.5f\n", lat.Float64, lng.Float64)
	} else {
		fmt.Println("  coords: (not mapped)")
	}
	fmt.Printf("  contact: %s %s  owner=%v agent=%v\n", orDash(name), orDash(phone), isOwner, isAgent)
	fmt.Printf("  first seen: %s  last seen: %s\n", firstSeen.Format("2006-01-02"), lastSeen.Format("2006-01-02"))
	fmt.Printf("  raw: %s\n", rawText)

	if phone.Valid {
		var total int
		var agency sql.NullString
		err := db.QueryRowContext(ctx,
			`SELECT total_listings, agency_name FROM commprop.advertisers WHERE phone = $1`, phone.String).
			Scan(&total, &agency)
		if err == nil {
			fmt.Printf("Advertiser %s: %d listing(s), agency: %s\n", phone.String, total, orDash(agency))
		}
	}

	if address.Valid {
		key := geocode.NormalizeAddress(address.String)
		var cachedLat, cachedLng float64
		var resolvedAt time.Time
		err := db.QueryRowContext(ctx,
			`SELECT latitude, longitude, resolved_at FROM commprop.geocode_cache WHERE normalized_address = $1`, key).
			Scan(&cachedLat, &cachedLng, &resolvedAt)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			fmt.Printf("Geocode cache %q: no entry\n", key)
		case err == nil:
			fmt.Printf("Geocode cache %q: %.5f, %.5f (resolved %s)\n",
				key, cachedLat, cachedLng, resolvedAt.Format("2006-01-02"))
		}
	}

	return nil
}

func orDash(s sql.NullString) string {
	if s.Valid {
		return s.String
	}
	return "-"
}

func orDashInt(n sql.NullInt64) string {
	if n.Valid {
		return fmt.Sprintf("%d", n.Int64)
	}
	return "-"
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
