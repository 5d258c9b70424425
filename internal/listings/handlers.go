package listings

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/CommPropIntel/CPI-Backend/internal/db"
	"github.com/go-chi/chi/v5"
)

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// GetListings serves the map/filter view: all listings, optionally filtered.
func GetListings(w http.ResponseWriter, r *http.Request) {
	q := db.DB.Model(&Listing{})

	if v := r.URL.Query().Get("property_type"); v != "" {
		q = q.Where("property_type = ?", v)
	}
	if v := r.URL.Query().Get("transaction_type"); v != "" {
		q = q.Where("transaction_type = ?", v)
	}
	if v := r.URL.Query().Get("is_owner"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			http.Error(w, "invalid is_owner", http.StatusBadRequest)
			return
		}
		q = q.Where("is_owner = ?", b)
	}
	if v := r.URL.Query().Get("is_agent"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			http.Error(w, "invalid is_agent", http.StatusBadRequest)
			return
		}
		q = q.Where("is_agent = ?", b)
	}
	if v := r.URL.Query().Get("min_price"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			http.Error(w, "invalid min_price", http.StatusBadRequest)
			return
		}
		q = q.Where("price >= ?", n)
	}
	if v := r.URL.Query().Get("max_price"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			http.Error(w, "invalid max_price", http.StatusBadRequest)
			return
		}
		q = q.Where("price <= ?", n)
	}
	if v := r.URL.Query().Get("has_coords"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			http.Error(w, "invalid has_coords", http.StatusBadRequest)
			return
		}
		if b {
			q = q.Where("latitude IS NOT NULL AND longitude IS NOT NULL")
		} else {
			q = q.Where("latitude IS NULL OR longitude IS NULL")
		}
	}

	var results []Listing
	if err := q.Order("last_seen_date DESC").Find(&results).Error; err != nil {
		http.Error(w, "Failed to fetch listings", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"count":    len(results),
		"listings": results,
	})
}

// GetListingByID serves one listing by its UUID.
func GetListingByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var l Listing
	if err := db.DB.First(&l, "id = ?", id).Error; err != nil {
		http.Error(w, "Listing not found", http.StatusNotFound)
		return
	}

	writeJSON(w, l)
}

// GetAdvertisers serves advertisers ranked by listing count, for the
// most-active-advertisers panel.
func GetAdvertisers(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	var advertisers []Advertiser
	if err := db.DB.Order("total_listings DESC").Limit(limit).Find(&advertisers).Error; err != nil {
		http.Error(w, "Failed to fetch advertisers", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"count":       len(advertisers),
		"advertisers": advertisers,
	})
}

type typeCount struct {
	Key   *string `json:"key"`
	Count int64   `json:"count"`
}

// GetStats serves aggregate counts for the analytics panel.
func GetStats(w http.ResponseWriter, r *http.Request) {
	var total, mapped, owners, agents, recent int64

	db.DB.Model(&Listing{}).Count(&total)
	db.DB.Model(&Listing{}).Where("latitude IS NOT NULL").Count(&mapped)
	db.DB.Model(&Listing{}).Where("is_owner = true").Count(&owners)
	db.DB.Model(&Listing{}).Where("is_agent = true").Count(&agents)

	weekAgo := time.Now().UTC().AddDate(0, 0, -7)
	db.DB.Model(&Listing{}).Where("last_seen_date >= ?", weekAgo).Count(&recent)

	var byType []typeCount
	db.DB.Model(&Listing{}).
		Select("property_type AS key, COUNT(*) AS count").
		Group("property_type").Scan(&byType)

	var byTransaction []typeCount
	db.DB.Model(&Listing{}).
		Select("transaction_type AS key, COUNT(*) AS count").
		Group("transaction_type").Scan(&byTransaction)

	writeJSON(w, map[string]any{
		"total_listings":     total,
		"mapped_listings":    mapped,
		"owner_listings":     owners,
		"agent_listings":     agents,
		"active_last_7_days": recent,
		"by_property_type":   byType,
		"by_transaction":     byTransaction,
	})
}
