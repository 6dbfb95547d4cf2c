package schema_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/99designs/gqlgen/graphql/handler"
	"github.com/99designs/gqlgen/graphql/handler/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/roadsideassist/internal/domain/entities"
	"github.com/zatekoja/roadsideassist/internal/graphql/schema"
	apperrors "github.com/zatekoja/roadsideassist/pkg/errors"
)

type nearbyCall struct {
	latitude, longitude float64
	radius              *float64
	serviceFilter       *string
}

type fakeQuery struct {
	calls    []nearbyCall
	ranked   []entities.RankedPartner
	err      error
	partners map[string]*entities.Partner
}

func (f *fakeQuery) Query() schema.QueryResolver { return f }

func (f *fakeQuery) NearbyPartners(ctx context.Context, latitude, longitude float64, radius *float64, serviceFilter *string) ([]entities.RankedPartner, error) {
	f.calls = append(f.calls, nearbyCall{latitude, longitude, radius, serviceFilter})
	return f.ranked, f.err
}

func (f *fakeQuery) EmergencyPartners(ctx context.Context, latitude, longitude float64, radius *float64, serviceFilter *string) ([]entities.RankedPartner, error) {
	return f.NearbyPartners(ctx, latitude, longitude, radius, serviceFilter)
}

func (f *fakeQuery) Partner(ctx context.Context, id string) (*entities.Partner, error) {
	return f.partners[id], nil
}

func (f *fakeQuery) Partners(ctx context.Context, ids []string) ([]*entities.Partner, error) {
	out := make([]*entities.Partner, len(ids))
	for i, id := range ids {
		out[i] = f.partners[id]
	}
	return out, nil
}

type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message    string                 `json:"message"`
		Path       []interface{}          `json:"path"`
		Extensions map[string]interface{} `json:"extensions"`
	} `json:"errors"`
}

func execute(t *testing.T, resolvers *fakeQuery, body string) gqlResponse {
	t.Helper()
	status, resp := executeWithStatus(t, resolvers, body)
	require.Equal(t, http.StatusOK, status)
	return resp
}

func executeWithStatus(t *testing.T, resolvers *fakeQuery, body string) (int, gqlResponse) {
	t.Helper()
	srv := handler.New(schema.NewExecutableSchema(schema.Config{Resolvers: resolvers}))
	srv.AddTransport(transport.POST{})

	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	srv.ServeHTTP(w, req)

	var resp gqlResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return w.Code, resp
}

func ringRoadTowing() *entities.Partner {
	return &entities.Partner{
		ID:                 "p1",
		BusinessName:       "Ring Road Towing",
		Location:           entities.GeoPoint{Latitude: 28.6315, Longitude: 77.2167},
		Address:            entities.Address{City: "New Delhi"},
		ServiceCategories:  []string{"towing"},
		EmergencyAvailable: true,
		ApprovalStatus:     entities.ApprovalStatusApproved,
		IsActive:           true,
		Rating:             4.5,
		ReviewCount:        12,
		CreatedAt:          time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:          time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestExecutableSchema_NearbyPartnersWithVariables(t *testing.T) {
	resolvers := &fakeQuery{ranked: []entities.RankedPartner{{Partner: ringRoadTowing(), DistanceKm: 1.5}}}

	resp := execute(t, resolvers, `{
		"query": "query Nearby($lat: Float!, $lng: Float!, $r: Float) { closest: nearbyPartners(latitude: $lat, longitude: $lng, radius: $r, serviceFilter: \"towing\") { distance partner { id businessName location { latitude } serviceCategories createdAt __typename } } }",
		"variables": {"lat": 28.6139, "lng": 77.209, "r": 5}
	}`)

	require.Empty(t, resp.Errors)
	assert.JSONEq(t, `{"closest":[{"distance":1.5,"partner":{
		"id":"p1",
		"businessName":"Ring Road Towing",
		"location":{"latitude":28.6315},
		"serviceCategories":["towing"],
		"createdAt":"2024-01-01T00:00:00Z",
		"__typename":"Partner"
	}}]}`, string(resp.Data))

	require.Len(t, resolvers.calls, 1)
	call := resolvers.calls[0]
	assert.Equal(t, 28.6139, call.latitude)
	assert.Equal(t, 77.209, call.longitude)
	require.NotNil(t, call.radius)
	assert.Equal(t, 5.0, *call.radius)
	require.NotNil(t, call.serviceFilter)
	assert.Equal(t, "towing", *call.serviceFilter)
}

func TestExecutableSchema_LiteralArgumentsAndOptionalRadius(t *testing.T) {
	resolvers := &fakeQuery{ranked: []entities.RankedPartner{}}

	resp := execute(t, resolvers, `{"query": "{ emergencyPartners(latitude: 19, longitude: 72.87) { distance } }"}`)

	require.Empty(t, resp.Errors)
	assert.JSONEq(t, `{"emergencyPartners":[]}`, string(resp.Data))
	require.Len(t, resolvers.calls, 1)
	assert.Equal(t, 19.0, resolvers.calls[0].latitude)
	assert.Nil(t, resolvers.calls[0].radius)
	assert.Nil(t, resolvers.calls[0].serviceFilter)
}

func TestExecutableSchema_PartnerLookups(t *testing.T) {
	resolvers := &fakeQuery{partners: map[string]*entities.Partner{"p1": ringRoadTowing()}}

	resp := execute(t, resolvers, `{"query": "{ partner(id: \"p1\") { id rating isActive } missing: partner(id: \"nope\") { id } partners(ids: [\"nope\", \"p1\"]) { reviewCount } }"}`)

	require.Empty(t, resp.Errors)
	assert.JSONEq(t, `{
		"partner":{"id":"p1","rating":4.5,"isActive":true},
		"missing":null,
		"partners":[null,{"reviewCount":12}]
	}`, string(resp.Data))
}

func TestExecutableSchema_ClientErrorsKeepTheirMessage(t *testing.T) {
	resolvers := &fakeQuery{err: apperrors.NewInvalidCoordinatesError("latitude must be between -90 and 90")}

	resp := execute(t, resolvers, `{"query": "{ nearbyPartners(latitude: 91, longitude: 0) { distance } }"}`)

	assert.JSONEq(t, `{"nearbyPartners":null}`, string(resp.Data))
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "latitude must be between -90 and 90", resp.Errors[0].Message)
	assert.Equal(t, []interface{}{"nearbyPartners"}, resp.Errors[0].Path)
	assert.Equal(t, "INVALID_COORDINATES", resp.Errors[0].Extensions["code"])
}

func TestExecutableSchema_ServerErrorsAreMasked(t *testing.T) {
	resolvers := &fakeQuery{err: apperrors.NewStorageQueryError("failed to query partners", errors.New("pq: connection refused"))}

	resp := execute(t, resolvers, `{"query": "{ nearbyPartners(latitude: 1, longitude: 1) { distance } }"}`)

	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "internal server error", resp.Errors[0].Message)
	assert.NotContains(t, string(resp.Data), "connection refused")
}

func TestExecutableSchema_RejectsUnknownFields(t *testing.T) {
	status, resp := executeWithStatus(t, &fakeQuery{}, `{"query": "{ nearbyPartners(latitude: 1, longitude: 1) { secret } }"}`)

	assert.Equal(t, http.StatusUnprocessableEntity, status)
	require.NotEmpty(t, resp.Errors)
	assert.Contains(t, resp.Errors[0].Message, "secret")
}
