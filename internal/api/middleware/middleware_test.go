package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/roadsideassist/internal/api/middleware"
)

const testSecret = "test-secret"

func signToken(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func adminClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":  "admin-1",
		"role": middleware.RoleAdmin,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestAuthMiddleware_RequireAdmin(t *testing.T) {
	expired := adminClaims()
	expired["exp"] = time.Now().Add(-time.Minute).Unix()

	driver := adminClaims()
	driver["role"] = "driver"

	noExpiry := adminClaims()
	delete(noExpiry, "exp")

	tests := []struct {
		name   string
		secret string
		header string
		status int
	}{
		{"valid admin token", testSecret, "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), adminClaims()), http.StatusNoContent},
		{"missing header", testSecret, "", http.StatusUnauthorized},
		{"not a bearer token", testSecret, "Basic YWRtaW46YWRtaW4=", http.StatusUnauthorized},
		{"wrong signature", testSecret, "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte("other"), adminClaims()), http.StatusUnauthorized},
		{"other hmac algorithm", testSecret, "Bearer " + signToken(t, jwt.SigningMethodHS512, []byte(testSecret), adminClaims()), http.StatusUnauthorized},
		{"expired token", testSecret, "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), expired), http.StatusUnauthorized},
		{"token without expiry", testSecret, "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), noExpiry), http.StatusUnauthorized},
		{"non admin role", testSecret, "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), driver), http.StatusForbidden},
		{"no secret configured", "", "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), adminClaims()), http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := middleware.NewAuthMiddleware(tt.secret)
			handler := auth.RequireAdmin(okHandler())

			req := httptest.NewRequest(http.MethodPatch, "/api/admin/partners/p1/status", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.status >= http.StatusBadRequest {
				assert.Contains(t, w.Body.String(), `"success":false`)
			}
		})
	}
}

func TestAuthMiddleware_PutsClaimsInContext(t *testing.T) {
	auth := middleware.NewAuthMiddleware(testSecret)

	var subject, role string
	handler := auth.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, _ = middleware.GetSubjectFromContext(r.Context())
		role, _ = r.Context().Value(middleware.RoleContextKey).(string)
	}))

	req := httptest.NewRequest(http.MethodPatch, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, jwt.SigningMethodHS256, []byte(testSecret), adminClaims()))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "admin-1", subject)
	assert.Equal(t, middleware.RoleAdmin, role)
}

func TestAuthMiddleware_RequirePartnerOrAdmin(t *testing.T) {
	partnerClaims := func(sub string) jwt.MapClaims {
		return jwt.MapClaims{
			"sub":  sub,
			"role": "partner",
			"exp":  time.Now().Add(time.Hour).Unix(),
		}
	}
	noSubject := partnerClaims("")
	delete(noSubject, "sub")

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"own partner token", "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), partnerClaims("p1")), http.StatusNoContent},
		{"admin token", "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), adminClaims()), http.StatusNoContent},
		{"other partner token", "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), partnerClaims("p2")), http.StatusForbidden},
		{"token without subject", "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), noSubject), http.StatusForbidden},
		{"missing header", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := middleware.NewAuthMiddleware(testSecret).RequirePartnerOrAdmin(okHandler())

			req := httptest.NewRequest(http.MethodPut, "/api/partners/p1/location", nil)
			req.SetPathValue("id", "p1")
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestCORSMiddleware(t *testing.T) {
	t.Run("wildcard", func(t *testing.T) {
		handler := middleware.CORSMiddleware([]string{"*"})(okHandler())
		req := httptest.NewRequest(http.MethodGet, "/api/partners/nearby", nil)
		req.Header.Set("Origin", "https://app.example.com")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("listed origin is echoed", func(t *testing.T) {
		handler := middleware.CORSMiddleware([]string{"https://app.example.com"})(okHandler())
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://app.example.com")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "Origin", w.Header().Get("Vary"))
	})

	t.Run("unlisted origin gets no allow header", func(t *testing.T) {
		handler := middleware.CORSMiddleware([]string{"https://app.example.com"})(okHandler())
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight short circuits", func(t *testing.T) {
		called := false
		handler := middleware.CORSMiddleware([]string{"*"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}))
		req := httptest.NewRequest(http.MethodOptions, "/api/admin/partners/p1/status", nil)
		req.Header.Set("Origin", "https://app.example.com")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.False(t, called)
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")
	})
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := middleware.RecoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/partners/p1", nil)
	w := httptest.NewRecorder()

	assert.NotPanics(t, func() { handler.ServeHTTP(w, req) })
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"internal server error"}`, w.Body.String())
}

func TestLoggingMiddleware_PassesThrough(t *testing.T) {
	handler := middleware.LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, "short and stout", w.Body.String())
}

func TestObservabilityMiddleware_NilMetrics(t *testing.T) {
	mux := http.NewServeMux()
	mux.Handle("GET /api/partners/{id}", okHandler())
	handler := middleware.ObservabilityMiddleware(nil)(mux)

	req := httptest.NewRequest(http.MethodGet, "/api/partners/p1", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}
