package services

import (
	"context"
	"fmt"

	"github.com/zatekoja/roadsideassist/internal/domain/entities"
	"github.com/zatekoja/roadsideassist/internal/domain/repositories"
)

// IndexedPartnerLocator finds candidates through a secondary geo index and
// loads the matching records from the catalog store, which also applies the
// approval, activity, category and emergency filters.
type IndexedPartnerLocator struct {
	index repositories.PartnerGeoIndex
	repo  repositories.PartnerRepository
}

// NewIndexedPartnerLocator creates a locator backed by index
func NewIndexedPartnerLocator(index repositories.PartnerGeoIndex, repo repositories.PartnerRepository) *IndexedPartnerLocator {
	return &IndexedPartnerLocator{index: index, repo: repo}
}

// Backend names the index used for lookups
func (l *IndexedPartnerLocator) Backend() string {
	return l.index.Name()
}

// FindWithinRadius implements repositories.PartnerLocator
func (l *IndexedPartnerLocator) FindWithinRadius(ctx context.Context, query repositories.PartnerGeoQuery) ([]*entities.Partner, error) {
	ids, err := l.index.SearchRadius(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s index lookup failed: %w", l.index.Name(), err)
	}
	if len(ids) == 0 {
		return []*entities.Partner{}, nil
	}

	return l.repo.FindByIDs(ctx, ids, query)
}

// BackendPostgres names the catalog store used as candidate source
const BackendPostgres = "postgres"

// SelectPartnerLocator returns the locator for the requested backend. When
// the backend is not postgres and its index is unavailable, the catalog store
// is used instead and fellBack is true.
func SelectPartnerLocator(backend string, repo repositories.PartnerRepository, indexes map[string]repositories.PartnerGeoIndex) (locator repositories.PartnerLocator, name string, fellBack bool) {
	if backend != BackendPostgres {
		if index, ok := indexes[backend]; ok && index != nil {
			return NewIndexedPartnerLocator(index, repo), index.Name(), false
		}
	}
	return repo, BackendPostgres, backend != BackendPostgres
}
