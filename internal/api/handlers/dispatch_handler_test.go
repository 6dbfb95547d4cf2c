package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/roadsideassist/internal/api/handlers"
	"github.com/zatekoja/roadsideassist/internal/application/services"
	"github.com/zatekoja/roadsideassist/internal/domain/entities"
	apperrors "github.com/zatekoja/roadsideassist/pkg/errors"
)

// MockDispatchFinder is a mock implementation of DispatchFinder
type MockDispatchFinder struct {
	mock.Mock
}

func (m *MockDispatchFinder) FindNearbyPartners(ctx context.Context, search services.NearbySearch) ([]entities.RankedPartner, error) {
	args := m.Called(ctx, search)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.RankedPartner), args.Error(1)
}

func (m *MockDispatchFinder) FindEmergencyPartners(ctx context.Context, search services.NearbySearch) ([]entities.RankedPartner, error) {
	args := m.Called(ctx, search)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.RankedPartner), args.Error(1)
}

type nearbyResponse struct {
	Success bool                     `json:"success"`
	Data    []map[string]interface{} `json:"data"`
	Message string                   `json:"message"`
	Error   string                   `json:"error"`
}

func decodeNearby(t *testing.T, w *httptest.ResponseRecorder) nearbyResponse {
	t.Helper()
	var resp nearbyResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

func TestDispatchHandler_NearbyPartners(t *testing.T) {
	t.Run("returns ranked partners with distance", func(t *testing.T) {
		finder := new(MockDispatchFinder)
		handler := handlers.NewDispatchHandler(finder, false)

		ranked := []entities.RankedPartner{
			{Partner: &entities.Partner{ID: "p1", BusinessName: "Bandra Tyres", Rating: 4.5}, DistanceKm: 4.23},
		}
		finder.On("FindNearbyPartners", mock.Anything, mock.MatchedBy(func(s services.NearbySearch) bool {
			return s.Latitude == 19.076 && s.Longitude == 72.8777 && s.RadiusKm != nil && *s.RadiusKm == 15 && s.ServiceFilter == "towing"
		})).Return(ranked, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/partners/nearby?latitude=19.076&longitude=72.8777&radius=15&serviceFilter=towing", nil)
		w := httptest.NewRecorder()

		handler.NearbyPartners(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		resp := decodeNearby(t, w)
		assert.True(t, resp.Success)
		require.Len(t, resp.Data, 1)
		assert.Equal(t, "p1", resp.Data[0]["id"])
		assert.Equal(t, "Bandra Tyres", resp.Data[0]["business_name"])
		assert.Equal(t, 4.23, resp.Data[0]["distance"])
		finder.AssertExpectations(t)
	})

	t.Run("omitted radius is left to the service default", func(t *testing.T) {
		finder := new(MockDispatchFinder)
		handler := handlers.NewDispatchHandler(finder, false)

		finder.On("FindNearbyPartners", mock.Anything, mock.MatchedBy(func(s services.NearbySearch) bool {
			return s.RadiusKm == nil && s.ServiceFilter == ""
		})).Return([]entities.RankedPartner{}, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/partners/nearby?latitude=28.6139&longitude=77.2090", nil)
		w := httptest.NewRecorder()

		handler.NearbyPartners(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"success":true,"data":[]}`, w.Body.String())
		finder.AssertExpectations(t)
	})

	t.Run("nil result is rendered as an empty list", func(t *testing.T) {
		finder := new(MockDispatchFinder)
		handler := handlers.NewDispatchHandler(finder, false)

		finder.On("FindNearbyPartners", mock.Anything, mock.Anything).Return(nil, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/partners/nearby?latitude=1&longitude=2", nil)
		w := httptest.NewRecorder()

		handler.NearbyPartners(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"success":true,"data":[]}`, w.Body.String())
	})
}

func TestDispatchHandler_RejectsBadInput(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"missing latitude", "longitude=72.8777"},
		{"missing longitude", "latitude=19.076"},
		{"non-numeric latitude", "latitude=north&longitude=72.8777"},
		{"non-numeric longitude", "latitude=19.076&longitude=east"},
		{"non-numeric radius", "latitude=19.076&longitude=72.8777&radius=far"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			finder := new(MockDispatchFinder)
			handler := handlers.NewDispatchHandler(finder, false)

			req := httptest.NewRequest(http.MethodGet, "/api/partners/nearby?"+tt.query, nil)
			w := httptest.NewRecorder()

			handler.NearbyPartners(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			resp := decodeNearby(t, w)
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Message)
			finder.AssertNotCalled(t, "FindNearbyPartners", mock.Anything, mock.Anything)
		})
	}
}

func TestDispatchHandler_MapsServiceErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		devMode bool
		status  int
		message string
		detail  bool
	}{
		{
			name:    "out of range coordinates",
			err:     apperrors.NewInvalidCoordinatesError("latitude must be between -90 and 90"),
			status:  http.StatusBadRequest,
			message: "latitude must be between -90 and 90",
		},
		{
			name:    "invalid radius",
			err:     apperrors.NewInvalidRadiusError("radius must be greater than 0"),
			status:  http.StatusBadRequest,
			message: "radius must be greater than 0",
		},
		{
			name:    "storage failure hides detail",
			err:     apperrors.NewStorageQueryError("failed to query nearby partners", errors.New("connection refused")),
			status:  http.StatusInternalServerError,
			message: "internal server error",
		},
		{
			name:    "storage failure shows detail in development",
			err:     apperrors.NewStorageQueryError("failed to query nearby partners", errors.New("connection refused")),
			devMode: true,
			status:  http.StatusInternalServerError,
			message: "internal server error",
			detail:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			finder := new(MockDispatchFinder)
			handler := handlers.NewDispatchHandler(finder, tt.devMode)
			finder.On("FindNearbyPartners", mock.Anything, mock.Anything).Return(nil, tt.err)

			req := httptest.NewRequest(http.MethodGet, "/api/partners/nearby?latitude=95&longitude=0", nil)
			w := httptest.NewRecorder()

			handler.NearbyPartners(w, req)

			assert.Equal(t, tt.status, w.Code)
			resp := decodeNearby(t, w)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.message, resp.Message)
			if tt.detail {
				assert.Contains(t, resp.Error, "connection refused")
			} else {
				assert.Empty(t, resp.Error)
			}
		})
	}
}

func TestDispatchHandler_EmergencyPartners(t *testing.T) {
	finder := new(MockDispatchFinder)
	handler := handlers.NewDispatchHandler(finder, false)

	ranked := []entities.RankedPartner{
		{Partner: &entities.Partner{ID: "tow-1", EmergencyAvailable: true}, DistanceKm: 0},
	}
	finder.On("FindEmergencyPartners", mock.Anything, mock.MatchedBy(func(s services.NearbySearch) bool {
		return s.Latitude == 23.0225 && s.Longitude == 72.5714 && s.RadiusKm == nil
	})).Return(ranked, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/emergency/nearby-partners?latitude=23.0225&longitude=72.5714", nil)
	w := httptest.NewRecorder()

	handler.EmergencyPartners(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeNearby(t, w)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "tow-1", resp.Data[0]["id"])
	assert.Equal(t, float64(0), resp.Data[0]["distance"])
	finder.AssertExpectations(t)
	finder.AssertNotCalled(t, "FindNearbyPartners", mock.Anything, mock.Anything)
}
