package listings

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func SetupRoutes() http.Handler {
	r := chi.NewRouter()

	// Read-only: the pipeline is the sole writer.
	r.Get("/listings", GetListings)
	r.Get("/listings/{id}", GetListingByID)
	r.Get("/advertisers", GetAdvertisers)
	r.Get("/stats", GetStats)

	return r
}
