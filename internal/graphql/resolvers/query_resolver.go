package resolvers

import (
	"context"

	"github.com/zatekoja/roadsideassist/internal/application/services"
	"github.com/zatekoja/roadsideassist/internal/domain/entities"
	"github.com/zatekoja/roadsideassist/internal/graphql/loaders"
	apperrors "github.com/zatekoja/roadsideassist/pkg/errors"
)

// NearbyPartners is the resolver for the nearbyPartners field
func (r *queryResolver) NearbyPartners(ctx context.Context, latitude, longitude float64, radius *float64, serviceFilter *string) ([]entities.RankedPartner, error) {
	return r.finder.FindNearbyPartners(ctx, nearbySearch(latitude, longitude, radius, serviceFilter))
}

// EmergencyPartners is the resolver for the emergencyPartners field
func (r *queryResolver) EmergencyPartners(ctx context.Context, latitude, longitude float64, radius *float64, serviceFilter *string) ([]entities.RankedPartner, error) {
	return r.finder.FindEmergencyPartners(ctx, nearbySearch(latitude, longitude, radius, serviceFilter))
}

// Partner is the resolver for the partner field. Unknown IDs resolve to null.
func (r *queryResolver) Partner(ctx context.Context, id string) (*entities.Partner, error) {
	partner, err := loaders.For(ctx).PartnerLoader.Load(ctx, id)()
	if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return partner, nil
}

// Partners is the resolver for the partners field. The result lines up with
// ids, with nil for unknown IDs.
func (r *queryResolver) Partners(ctx context.Context, ids []string) ([]*entities.Partner, error) {
	partners, errs := loaders.For(ctx).PartnerLoader.LoadMany(ctx, ids)()
	for i, err := range errs {
		if err == nil {
			continue
		}
		if !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return nil, err
		}
		partners[i] = nil
	}
	return partners, nil
}

func nearbySearch(latitude, longitude float64, radius *float64, serviceFilter *string) services.NearbySearch {
	search := services.NearbySearch{
		Latitude:  latitude,
		Longitude: longitude,
		RadiusKm:  radius,
	}
	if serviceFilter != nil {
		search.ServiceFilter = *serviceFilter
	}
	return search
}
