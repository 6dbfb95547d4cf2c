package repositories

import (
	"context"

	"github.com/zatekoja/roadsideassist/internal/domain/entities"
	"github.com/zatekoja/roadsideassist/pkg/geo"
)

// PartnerRepository defines the interface for partner data operations
type PartnerRepository interface {
	// Create creates a new partner
	Create(ctx context.Context, partner *entities.Partner) error

	// GetByID retrieves a partner by ID
	GetByID(ctx context.Context, id string) (*entities.Partner, error)

	// GetByIDs retrieves multiple partners by their IDs
	GetByIDs(ctx context.Context, ids []string) ([]*entities.Partner, error)

	// Update updates a partner
	Update(ctx context.Context, partner *entities.Partner) error

	// UpdateLocation replaces the partner's shop location
	UpdateLocation(ctx context.Context, id string, location entities.GeoPoint) error

	// UpdateApprovalStatus sets the moderation status of a partner
	UpdateApprovalStatus(ctx context.Context, id string, status entities.ApprovalStatus) error

	// List retrieves partners with filters
	List(ctx context.Context, filter PartnerFilter) ([]*entities.Partner, error)

	PartnerLocator

	// FindByIDs loads the given partners, keeping only those matching the
	// non-spatial filters of the query
	FindByIDs(ctx context.Context, ids []string, query PartnerGeoQuery) ([]*entities.Partner, error)
}

// PartnerLocator finds partner candidates around a point.
//
// The returned set is unordered and may contain partners slightly outside the
// radius; callers recompute distances and re-check the radius.
type PartnerLocator interface {
	FindWithinRadius(ctx context.Context, query PartnerGeoQuery) ([]*entities.Partner, error)
}

// PartnerGeoIndex is a secondary geospatial index over partner locations
// (Redis GEO, Typesense geopoint)
type PartnerGeoIndex interface {
	// Name identifies the index in logs
	Name() string

	// IndexPartner adds or replaces the partner in the index
	IndexPartner(ctx context.Context, partner *entities.Partner) error

	// RemovePartner removes the partner from the index
	RemovePartner(ctx context.Context, id string) error

	// SearchRadius returns the IDs of indexed partners around the query center
	SearchRadius(ctx context.Context, query PartnerGeoQuery) ([]string, error)
}

// PartnerFilter defines filters for listing partners
type PartnerFilter struct {
	ApprovalStatus entities.ApprovalStatus
	IsActive       *bool
	Limit          int
	Offset         int
}

// PartnerGeoQuery is the storage-level proximity filter
type PartnerGeoQuery struct {
	Center          entities.GeoPoint
	RadiusKm        float64
	Bounds          geo.Bounds
	ApprovalStatus  entities.ApprovalStatus
	ActiveOnly      bool
	ServiceCategory string
	EmergencyOnly   bool
	// Limit caps the number of candidates returned by the store
	Limit int
}
