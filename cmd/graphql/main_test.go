package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/roadsideassist/internal/application/services"
	"github.com/zatekoja/roadsideassist/internal/domain/entities"
	"github.com/zatekoja/roadsideassist/internal/domain/repositories"
	"github.com/zatekoja/roadsideassist/internal/graphql/resolvers"
)

type stubFinder struct{}

func (stubFinder) FindNearbyPartners(ctx context.Context, search services.NearbySearch) ([]entities.RankedPartner, error) {
	return []entities.RankedPartner{{Partner: &entities.Partner{ID: "p1", BusinessName: "Bandra Roadside Rescue"}, DistanceKm: 2.25}}, nil
}

func (stubFinder) FindEmergencyPartners(ctx context.Context, search services.NearbySearch) ([]entities.RankedPartner, error) {
	return []entities.RankedPartner{}, nil
}

type stubRepo struct {
	repositories.PartnerRepository
}

func (stubRepo) GetByIDs(ctx context.Context, ids []string) ([]*entities.Partner, error) {
	out := make([]*entities.Partner, 0, len(ids))
	for _, id := range ids {
		out = append(out, &entities.Partner{ID: id, BusinessName: "Partner " + id})
	}
	return out, nil
}

func newTestMux() *http.ServeMux {
	return newServeMux(resolvers.NewResolver(stubFinder{}), stubRepo{}, nil, []string{"*"})
}

func TestGraphQLHealthEndpoint(t *testing.T) {
	w := httptest.NewRecorder()
	newTestMux().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","service":"graphql"}`, w.Body.String())
}

func TestGraphQLEndpointResolvesPartnersThroughLoaders(t *testing.T) {
	body := `{"query":"{ nearbyPartners(latitude: 19.06, longitude: 72.83) { distance partner { businessName } } partner(id: \"p9\") { businessName } }"}`
	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	newTestMux().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"data":{
		"nearbyPartners":[{"distance":2.25,"partner":{"businessName":"Bandra Roadside Rescue"}}],
		"partner":{"businessName":"Partner p9"}
	}}`, w.Body.String())
}

func TestGraphQLEndpointServesGET(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/graphql?query="+url.QueryEscape("{ emergencyPartners(latitude: 1, longitude: 1) { distance } }"), nil)
	w := httptest.NewRecorder()

	newTestMux().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"data":{"emergencyPartners":[]}}`, w.Body.String())
}
