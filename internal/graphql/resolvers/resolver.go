package resolvers

import (
	"context"

	"github.com/zatekoja/roadsideassist/internal/application/services"
	"github.com/zatekoja/roadsideassist/internal/domain/entities"
	"github.com/zatekoja/roadsideassist/internal/graphql/schema"
)

// DispatchFinder runs nearby and emergency partner searches
type DispatchFinder interface {
	FindNearbyPartners(ctx context.Context, search services.NearbySearch) ([]entities.RankedPartner, error)
	FindEmergencyPartners(ctx context.Context, search services.NearbySearch) ([]entities.RankedPartner, error)
}

// Resolver is the root resolver. Partner lookups go through the per-request
// loaders in the context.
type Resolver struct {
	finder DispatchFinder
}

// NewResolver creates a new resolver with dependencies
func NewResolver(finder DispatchFinder) *Resolver {
	return &Resolver{finder: finder}
}

// Query returns the root query resolver
func (r *Resolver) Query() schema.QueryResolver {
	return &queryResolver{r}
}

type queryResolver struct{ *Resolver }
