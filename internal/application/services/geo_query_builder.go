package services

import (
	"fmt"
	"math"
	"strings"

	"github.com/zatekoja/roadsideassist/internal/domain/entities"
	"github.com/zatekoja/roadsideassist/internal/domain/repositories"
	apperrors "github.com/zatekoja/roadsideassist/pkg/errors"
)

// SearchRequest is a single proximity search
type SearchRequest struct {
	Origin        entities.GeoPoint
	RadiusKm      float64
	ServiceFilter string
	EmergencyOnly bool
}

// GeoQueryBuilder turns a SearchRequest into a storage-level geo query
type GeoQueryBuilder struct {
	maxRadiusKm    float64
	candidateLimit int
}

// NewGeoQueryBuilder creates a builder. A non-positive maxRadiusKm disables
// the upper radius bound.
func NewGeoQueryBuilder(maxRadiusKm float64, candidateLimit int) *GeoQueryBuilder {
	return &GeoQueryBuilder{
		maxRadiusKm:    maxRadiusKm,
		candidateLimit: candidateLimit,
	}
}

// BuildNearbyQuery validates the request and returns a query restricted to
// approved, active partners
func (b *GeoQueryBuilder) BuildNearbyQuery(req SearchRequest) (repositories.PartnerGeoQuery, error) {
	if err := req.Origin.Validate(); err != nil {
		return repositories.PartnerGeoQuery{}, apperrors.NewInvalidCoordinatesError(err.Error())
	}

	if err := b.validateRadius(req.RadiusKm); err != nil {
		return repositories.PartnerGeoQuery{}, err
	}

	return repositories.PartnerGeoQuery{
		Center:          req.Origin,
		RadiusKm:        req.RadiusKm,
		Bounds:          req.Origin.Bounds(req.RadiusKm),
		ApprovalStatus:  entities.ApprovalStatusApproved,
		ActiveOnly:      true,
		ServiceCategory: NormalizeServiceFilter(req.ServiceFilter),
		EmergencyOnly:   req.EmergencyOnly,
		Limit:           b.candidateLimit,
	}, nil
}

func (b *GeoQueryBuilder) validateRadius(radiusKm float64) error {
	if math.IsNaN(radiusKm) || math.IsInf(radiusKm, 0) || radiusKm <= 0 {
		return apperrors.NewInvalidRadiusError("radius must be a positive number of kilometers")
	}
	if b.maxRadiusKm > 0 && radiusKm > b.maxRadiusKm {
		return apperrors.NewInvalidRadiusError(fmt.Sprintf("radius must not exceed %g km", b.maxRadiusKm))
	}
	return nil
}

// NormalizeServiceFilter canonicalizes a service category filter
func NormalizeServiceFilter(filter string) string {
	return strings.ToLower(strings.TrimSpace(filter))
}
