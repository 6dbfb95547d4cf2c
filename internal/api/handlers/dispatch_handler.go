package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/zatekoja/roadsideassist/internal/application/services"
	"github.com/zatekoja/roadsideassist/internal/domain/entities"
	apperrors "github.com/zatekoja/roadsideassist/pkg/errors"
)

// DispatchFinder runs proximity searches for stranded customers
type DispatchFinder interface {
	FindNearbyPartners(ctx context.Context, search services.NearbySearch) ([]entities.RankedPartner, error)
	FindEmergencyPartners(ctx context.Context, search services.NearbySearch) ([]entities.RankedPartner, error)
}

// DispatchHandler handles nearby partner searches
type DispatchHandler struct {
	finder  DispatchFinder
	devMode bool
}

// NewDispatchHandler creates a new dispatch handler. In devMode server errors
// include the underlying error text.
func NewDispatchHandler(finder DispatchFinder, devMode bool) *DispatchHandler {
	return &DispatchHandler{
		finder:  finder,
		devMode: devMode,
	}
}

// NearbyPartners handles GET /api/partners/nearby
func (h *DispatchHandler) NearbyPartners(w http.ResponseWriter, r *http.Request) {
	h.search(w, r, h.finder.FindNearbyPartners)
}

// EmergencyPartners handles GET /api/emergency/nearby-partners
func (h *DispatchHandler) EmergencyPartners(w http.ResponseWriter, r *http.Request) {
	h.search(w, r, h.finder.FindEmergencyPartners)
}

type findFunc func(ctx context.Context, search services.NearbySearch) ([]entities.RankedPartner, error)

func (h *DispatchHandler) search(w http.ResponseWriter, r *http.Request, find findFunc) {
	search, err := parseNearbySearch(r)
	if err != nil {
		respondWithAppError(w, r, err, h.devMode)
		return
	}

	partners, err := find(r.Context(), search)
	if err != nil {
		respondWithAppError(w, r, err, h.devMode)
		return
	}
	if partners == nil {
		partners = []entities.RankedPartner{}
	}

	respondWithData(w, http.StatusOK, partners)
}

// parseNearbySearch reads latitude, longitude, radius and serviceFilter from
// the query string. Range checks happen in the query builder.
func parseNearbySearch(r *http.Request) (services.NearbySearch, error) {
	query := r.URL.Query()

	lat, err := parseCoordinate(query.Get("latitude"), "latitude")
	if err != nil {
		return services.NearbySearch{}, err
	}
	lng, err := parseCoordinate(query.Get("longitude"), "longitude")
	if err != nil {
		return services.NearbySearch{}, err
	}

	search := services.NearbySearch{
		Latitude:      lat,
		Longitude:     lng,
		ServiceFilter: query.Get("serviceFilter"),
	}

	if raw := strings.TrimSpace(query.Get("radius")); raw != "" {
		radius, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return services.NearbySearch{}, apperrors.NewInvalidRadiusError("radius must be a number")
		}
		search.RadiusKm = &radius
	}

	return search, nil
}

func parseCoordinate(raw, name string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, apperrors.NewInvalidCoordinatesError(name + " is required")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, apperrors.NewInvalidCoordinatesError(name + " must be a number")
	}
	return v, nil
}
