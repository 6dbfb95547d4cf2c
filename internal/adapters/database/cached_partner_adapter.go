package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/roadsideassist/internal/domain/entities"
	"github.com/zatekoja/roadsideassist/internal/domain/providers"
	"github.com/zatekoja/roadsideassist/internal/domain/repositories"
	"github.com/zatekoja/roadsideassist/internal/infrastructure/observability"
)

// CachedPartnerAdapter wraps a PartnerRepository with a read-through cache for
// single partner lookups. Proximity queries always hit the underlying store.
type CachedPartnerAdapter struct {
	adapter repositories.PartnerRepository
	cache   providers.CacheProvider
	metrics *observability.Metrics
}

// NewCachedPartnerAdapter creates a new cached partner adapter. metrics may
// be nil.
func NewCachedPartnerAdapter(adapter repositories.PartnerRepository, cache providers.CacheProvider, metrics *observability.Metrics) repositories.PartnerRepository {
	return &CachedPartnerAdapter{
		adapter: adapter,
		cache:   cache,
		metrics: metrics,
	}
}

// partnerByIDTTL is the cache TTL in seconds for a single partner
const partnerByIDTTL = 300

func partnerCacheKey(id string) string {
	return fmt.Sprintf("partner:%s", id)
}

// GetByID retrieves a partner by ID with caching
func (a *CachedPartnerAdapter) GetByID(ctx context.Context, id string) (*entities.Partner, error) {
	cacheKey := partnerCacheKey(id)

	if cached, err := a.cache.Get(ctx, cacheKey); err == nil {
		var partner entities.Partner
		if err := json.Unmarshal(cached, &partner); err == nil {
			observability.RecordCacheHit(ctx, a.metrics, "partner")
			return &partner, nil
		}
		log.Warn().Str("partner_id", id).Msg("Failed to unmarshal cached partner")
	}
	observability.RecordCacheMiss(ctx, a.metrics, "partner")

	partner, err := a.adapter.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Update cache asynchronously to avoid blocking the response
	data, err := json.Marshal(partner)
	if err == nil {
		go func() {
			if err := a.cache.Set(context.Background(), cacheKey, data, partnerByIDTTL); err != nil {
				log.Warn().Err(err).Str("partner_id", id).Msg("Failed to cache partner")
			}
		}()
	}

	return partner, nil
}

// GetByIDs retrieves multiple partners with batch caching
func (a *CachedPartnerAdapter) GetByIDs(ctx context.Context, ids []string) ([]*entities.Partner, error) {
	if len(ids) == 0 {
		return []*entities.Partner{}, nil
	}

	cacheKeys := make([]string, len(ids))
	for i, id := range ids {
		cacheKeys[i] = partnerCacheKey(id)
	}

	cached, err := a.cache.GetMulti(ctx, cacheKeys)
	if err != nil {
		cached = map[string][]byte{}
	}

	partners := make([]*entities.Partner, 0, len(ids))
	missingIDs := make([]string, 0)
	for i, id := range ids {
		if data, ok := cached[cacheKeys[i]]; ok {
			var partner entities.Partner
			if err := json.Unmarshal(data, &partner); err == nil {
				partners = append(partners, &partner)
				continue
			}
		}
		missingIDs = append(missingIDs, id)
	}

	if len(partners) > 0 {
		observability.RecordCacheHit(ctx, a.metrics, "partner")
	}
	if len(missingIDs) == 0 {
		return partners, nil
	}
	observability.RecordCacheMiss(ctx, a.metrics, "partner")

	dbPartners, err := a.adapter.GetByIDs(ctx, missingIDs)
	if err != nil {
		return nil, err
	}

	items := make(map[string][]byte, len(dbPartners))
	for _, partner := range dbPartners {
		if data, err := json.Marshal(partner); err == nil {
			items[partnerCacheKey(partner.ID)] = data
		}
	}
	if len(items) > 0 {
		go func() {
			if err := a.cache.SetMulti(context.Background(), items, partnerByIDTTL); err != nil {
				log.Warn().Err(err).Msg("Failed to batch cache partners")
			}
		}()
	}

	return append(partners, dbPartners...), nil
}

// Create creates a partner
func (a *CachedPartnerAdapter) Create(ctx context.Context, partner *entities.Partner) error {
	return a.adapter.Create(ctx, partner)
}

// Update updates a partner and invalidates its cache entry
func (a *CachedPartnerAdapter) Update(ctx context.Context, partner *entities.Partner) error {
	if err := a.adapter.Update(ctx, partner); err != nil {
		return err
	}
	a.invalidate(ctx, partner.ID)
	return nil
}

// UpdateLocation updates the location and invalidates the cache entry
func (a *CachedPartnerAdapter) UpdateLocation(ctx context.Context, id string, location entities.GeoPoint) error {
	if err := a.adapter.UpdateLocation(ctx, id, location); err != nil {
		return err
	}
	a.invalidate(ctx, id)
	return nil
}

// UpdateApprovalStatus updates the status and invalidates the cache entry
func (a *CachedPartnerAdapter) UpdateApprovalStatus(ctx context.Context, id string, status entities.ApprovalStatus) error {
	if err := a.adapter.UpdateApprovalStatus(ctx, id, status); err != nil {
		return err
	}
	a.invalidate(ctx, id)
	return nil
}

// List lists partners without caching
func (a *CachedPartnerAdapter) List(ctx context.Context, filter repositories.PartnerFilter) ([]*entities.Partner, error) {
	return a.adapter.List(ctx, filter)
}

// FindWithinRadius always queries the underlying store
func (a *CachedPartnerAdapter) FindWithinRadius(ctx context.Context, query repositories.PartnerGeoQuery) ([]*entities.Partner, error) {
	return a.adapter.FindWithinRadius(ctx, query)
}

// FindByIDs always queries the underlying store
func (a *CachedPartnerAdapter) FindByIDs(ctx context.Context, ids []string, query repositories.PartnerGeoQuery) ([]*entities.Partner, error) {
	return a.adapter.FindByIDs(ctx, ids, query)
}

func (a *CachedPartnerAdapter) invalidate(ctx context.Context, id string) {
	if err := a.cache.Delete(ctx, partnerCacheKey(id)); err != nil {
		log.Warn().Err(err).Str("partner_id", id).Msg("Failed to invalidate partner cache")
	}
}

// FlushPartnerCache drops every cached partner. Used after bulk rewrites of
// the partners table.
func FlushPartnerCache(ctx context.Context, cache providers.CacheProvider) error {
	return cache.DeletePattern(ctx, partnerCacheKey("*"))
}
