package geoindex

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/zatekoja/roadsideassist/internal/domain/entities"
	"github.com/zatekoja/roadsideassist/internal/domain/repositories"
	redisclient "github.com/zatekoja/roadsideassist/internal/infrastructure/clients/redis"
)

const (
	// DefaultPartnersKey is the sorted set holding partner locations
	DefaultPartnersKey = "partners:geo"

	// Redis GEO cannot store latitudes beyond the Web Mercator limit
	maxRedisLatitude = 85.05112878

	// Redis measures with a slightly larger earth radius than the ranking
	// step; searching a bit wider keeps partners on the boundary.
	radiusSlack = 1.01
)

// RedisGeoIndex implements PartnerGeoIndex on a Redis GEO sorted set.
// Only the location lives in Redis; filters are applied by the catalog store.
type RedisGeoIndex struct {
	client *redisclient.Client
	key    string
}

// NewRedisGeoIndex creates a geo index stored under key
func NewRedisGeoIndex(client *redisclient.Client, key string) *RedisGeoIndex {
	if key == "" {
		key = DefaultPartnersKey
	}
	return &RedisGeoIndex{client: client, key: key}
}

// Name identifies the index
func (i *RedisGeoIndex) Name() string {
	return "redis"
}

// IndexPartner adds or moves the partner in the geo set
func (i *RedisGeoIndex) IndexPartner(ctx context.Context, partner *entities.Partner) error {
	loc := partner.Location
	if !loc.Rankable() {
		return fmt.Errorf("partner %s has no usable location", partner.ID)
	}
	if loc.Latitude > maxRedisLatitude || loc.Latitude < -maxRedisLatitude {
		return fmt.Errorf("partner %s latitude %f is outside the redis geo range", partner.ID, loc.Latitude)
	}

	coords := loc.StorageCoordinates()
	err := i.client.Client().GeoAdd(ctx, i.key, &redis.GeoLocation{
		Name:      partner.ID,
		Longitude: coords[0],
		Latitude:  coords[1],
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to index partner %s: %w", partner.ID, err)
	}
	return nil
}

// RemovePartner removes the partner from the geo set
func (i *RedisGeoIndex) RemovePartner(ctx context.Context, id string) error {
	if err := i.client.Client().ZRem(ctx, i.key, id).Err(); err != nil {
		return fmt.Errorf("failed to remove partner %s: %w", id, err)
	}
	return nil
}

// SearchRadius returns the IDs of partners within the radius, nearest first
func (i *RedisGeoIndex) SearchRadius(ctx context.Context, query repositories.PartnerGeoQuery) ([]string, error) {
	search := &redis.GeoSearchQuery{
		Longitude:  query.Center.Longitude,
		Latitude:   query.Center.Latitude,
		Radius:     query.RadiusKm * radiusSlack,
		RadiusUnit: "km",
		Sort:       "ASC",
	}
	if query.Limit > 0 {
		search.Count = query.Limit
	}

	ids, err := i.client.Client().GeoSearch(ctx, i.key, search).Result()
	if err != nil {
		return nil, fmt.Errorf("redis geo search failed: %w", err)
	}
	return ids, nil
}

// Reset drops the whole geo set
func (i *RedisGeoIndex) Reset(ctx context.Context) error {
	return i.client.Client().Del(ctx, i.key).Err()
}
