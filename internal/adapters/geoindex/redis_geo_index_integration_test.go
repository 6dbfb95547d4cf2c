//go:build integration

package geoindex_test

import (
	"context"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/roadsideassist/internal/adapters/geoindex"
	"github.com/zatekoja/roadsideassist/internal/domain/entities"
	"github.com/zatekoja/roadsideassist/internal/domain/repositories"
	redisclient "github.com/zatekoja/roadsideassist/internal/infrastructure/clients/redis"
)

func newTestIndex(t *testing.T) *geoindex.RedisGeoIndex {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_HOST")
	if addr == "" {
		t.Skip("TEST_REDIS_HOST not set")
	}

	client := redisclient.NewClientFromRedis(goredis.NewClient(&goredis.Options{Addr: addr}))
	t.Cleanup(func() { _ = client.Close() })

	index := geoindex.NewRedisGeoIndex(client, "test:partners:geo:"+time.Now().Format("150405.000000"))
	t.Cleanup(func() { _ = index.Reset(context.Background()) })
	return index
}

func TestRedisGeoIndex_SearchRadius(t *testing.T) {
	index := newTestIndex(t)
	ctx := context.Background()

	// Mumbai (Bandra) is ~1.0 km from the origin, Delhi is ~1150 km away
	require.NoError(t, index.IndexPartner(ctx, &entities.Partner{ID: "near", Location: entities.GeoPoint{Latitude: 19.0596, Longitude: 72.8295}}))
	require.NoError(t, index.IndexPartner(ctx, &entities.Partner{ID: "far", Location: entities.GeoPoint{Latitude: 28.6139, Longitude: 77.2090}}))

	ids, err := index.SearchRadius(ctx, repositories.PartnerGeoQuery{
		Center:   entities.GeoPoint{Latitude: 19.0544, Longitude: 72.8406},
		RadiusKm: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"near"}, ids)

	require.NoError(t, index.RemovePartner(ctx, "near"))
	ids, err = index.SearchRadius(ctx, repositories.PartnerGeoQuery{
		Center:   entities.GeoPoint{Latitude: 19.0544, Longitude: 72.8406},
		RadiusKm: 10,
	})
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRedisGeoIndex_RejectsUnusableLocations(t *testing.T) {
	index := newTestIndex(t)
	ctx := context.Background()

	assert.Error(t, index.IndexPartner(ctx, &entities.Partner{ID: "unset"}))
	assert.Error(t, index.IndexPartner(ctx, &entities.Partner{ID: "polar", Location: entities.GeoPoint{Latitude: 89, Longitude: 10}}))
}
