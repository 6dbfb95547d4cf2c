package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/zatekoja/roadsideassist/internal/api/middleware"
	"github.com/zatekoja/roadsideassist/internal/application/services"
	"github.com/zatekoja/roadsideassist/internal/domain/entities"
	"github.com/zatekoja/roadsideassist/internal/domain/repositories"
	"github.com/zatekoja/roadsideassist/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/roadsideassist/pkg/errors"
)

// maxBodyBytes bounds request bodies on partner writes
const maxBodyBytes = 1 << 20

// PartnerManager registers partners and changes the fields that affect search
type PartnerManager interface {
	Register(ctx context.Context, partner *entities.Partner) error
	GetByID(ctx context.Context, id string) (*entities.Partner, error)
	List(ctx context.Context, filter repositories.PartnerFilter) ([]*entities.Partner, error)
	UpdateProfile(ctx context.Context, id string, update services.ProfileUpdate) (*entities.Partner, error)
	UpdateLocation(ctx context.Context, id string, location entities.GeoPoint) (*entities.Partner, error)
	SetApprovalStatus(ctx context.Context, id string, status entities.ApprovalStatus) (*entities.Partner, error)
}

// PartnerHandler handles partner-related HTTP requests
type PartnerHandler struct {
	partners PartnerManager
	devMode  bool
}

// NewPartnerHandler creates a new partner handler
func NewPartnerHandler(partners PartnerManager, devMode bool) *PartnerHandler {
	return &PartnerHandler{
		partners: partners,
		devMode:  devMode,
	}
}

type registerPartnerRequest struct {
	BusinessName       string           `json:"business_name"`
	OwnerName          string           `json:"owner_name"`
	PhoneNumber        string           `json:"phone_number"`
	Email              string           `json:"email"`
	Address            entities.Address `json:"address"`
	Location           *locationRequest `json:"location"`
	ServiceCategories  []string         `json:"service_categories"`
	EmergencyAvailable bool             `json:"emergency_available"`
}

type locationRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (l *locationRequest) point() (entities.GeoPoint, error) {
	if l == nil || l.Latitude == nil || l.Longitude == nil {
		return entities.GeoPoint{}, apperrors.NewInvalidCoordinatesError("latitude and longitude are required")
	}
	return entities.GeoPoint{Latitude: *l.Latitude, Longitude: *l.Longitude}, nil
}

type profileRequest struct {
	BusinessName       *string           `json:"business_name"`
	OwnerName          *string           `json:"owner_name"`
	PhoneNumber        *string           `json:"phone_number"`
	Email              *string           `json:"email"`
	Address            *entities.Address `json:"address"`
	ServiceCategories  []string          `json:"service_categories"`
	EmergencyAvailable *bool             `json:"emergency_available"`
}

type statusRequest struct {
	Status string `json:"status"`
}

// RegisterPartner handles POST /api/partners
func (h *PartnerHandler) RegisterPartner(w http.ResponseWriter, r *http.Request) {
	var req registerPartnerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	partner := &entities.Partner{
		BusinessName:       req.BusinessName,
		OwnerName:          req.OwnerName,
		PhoneNumber:        req.PhoneNumber,
		Email:              req.Email,
		Address:            req.Address,
		ServiceCategories:  req.ServiceCategories,
		EmergencyAvailable: req.EmergencyAvailable,
	}
	if req.Location != nil {
		location, err := req.Location.point()
		if err != nil {
			respondWithAppError(w, r, err, h.devMode)
			return
		}
		partner.Location = location
	}

	if err := h.partners.Register(r.Context(), partner); err != nil {
		respondWithAppError(w, r, err, h.devMode)
		return
	}

	respondWithData(w, http.StatusCreated, partner)
}

// GetPartner handles GET /api/partners/{id}
func (h *PartnerHandler) GetPartner(w http.ResponseWriter, r *http.Request) {
	partnerID := r.PathValue("id")
	if partnerID == "" {
		respondWithError(w, http.StatusBadRequest, "partner ID is required")
		return
	}

	partner, err := h.partners.GetByID(r.Context(), partnerID)
	if err != nil {
		respondWithAppError(w, r, err, h.devMode)
		return
	}

	respondWithData(w, http.StatusOK, partner)
}

// ListPartners handles GET /api/admin/partners
func (h *PartnerHandler) ListPartners(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := repositories.PartnerFilter{
		ApprovalStatus: entities.ApprovalStatus(query.Get("status")),
	}

	if v := query.Get("active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "active must be true or false")
			return
		}
		filter.IsActive = &active
	}
	if v := query.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		filter.Limit = limit
	}
	if v := query.Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "offset must be an integer")
			return
		}
		filter.Offset = offset
	}

	partners, err := h.partners.List(r.Context(), filter)
	if err != nil {
		respondWithAppError(w, r, err, h.devMode)
		return
	}

	respondWithData(w, http.StatusOK, partners)
}

// UpdateProfile handles PUT /api/partners/{id}
func (h *PartnerHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	partnerID := r.PathValue("id")
	if partnerID == "" {
		respondWithError(w, http.StatusBadRequest, "partner ID is required")
		return
	}

	var req profileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	partner, err := h.partners.UpdateProfile(r.Context(), partnerID, services.ProfileUpdate{
		BusinessName:       req.BusinessName,
		OwnerName:          req.OwnerName,
		PhoneNumber:        req.PhoneNumber,
		Email:              req.Email,
		Address:            req.Address,
		ServiceCategories:  req.ServiceCategories,
		EmergencyAvailable: req.EmergencyAvailable,
	})
	if err != nil {
		respondWithAppError(w, r, err, h.devMode)
		return
	}

	logPartnerWrite(r, partnerID, "profile")
	respondWithData(w, http.StatusOK, partner)
}

// UpdateLocation handles PUT /api/partners/{id}/location
func (h *PartnerHandler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	partnerID := r.PathValue("id")
	if partnerID == "" {
		respondWithError(w, http.StatusBadRequest, "partner ID is required")
		return
	}

	var req locationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	location, err := req.point()
	if err != nil {
		respondWithAppError(w, r, err, h.devMode)
		return
	}

	partner, err := h.partners.UpdateLocation(r.Context(), partnerID, location)
	if err != nil {
		respondWithAppError(w, r, err, h.devMode)
		return
	}

	logPartnerWrite(r, partnerID, "location")
	respondWithData(w, http.StatusOK, partner)
}

// UpdateApprovalStatus handles PATCH /api/admin/partners/{id}/status
func (h *PartnerHandler) UpdateApprovalStatus(w http.ResponseWriter, r *http.Request) {
	partnerID := r.PathValue("id")
	if partnerID == "" {
		respondWithError(w, http.StatusBadRequest, "partner ID is required")
		return
	}

	var req statusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	partner, err := h.partners.SetApprovalStatus(r.Context(), partnerID, entities.ApprovalStatus(req.Status))
	if err != nil {
		respondWithAppError(w, r, err, h.devMode)
		return
	}

	logPartnerWrite(r, partnerID, "approval_status")
	respondWithData(w, http.StatusOK, partner)
}

// logPartnerWrite records who changed a partner
func logPartnerWrite(r *http.Request, partnerID, field string) {
	subject, _ := middleware.GetSubjectFromContext(r.Context())
	observability.LoggerFromContext(r.Context()).Info().
		Str("partner_id", partnerID).
		Str("field", field).
		Str("actor", subject).
		Msg("Partner updated")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
