package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/zatekoja/roadsideassist/internal/infrastructure/observability"
)

type contextKey string

const (
	// SubjectContextKey holds the "sub" claim of an authenticated caller
	SubjectContextKey contextKey = "subject"
	// RoleContextKey holds the "role" claim of an authenticated caller
	RoleContextKey contextKey = "role"
)

// RoleAdmin is the role claim required on admin routes
const RoleAdmin = "admin"

// AuthMiddleware validates HS256 bearer tokens issued by the auth service
type AuthMiddleware struct {
	secret []byte
}

// NewAuthMiddleware creates a new auth middleware. An empty secret rejects
// every request.
func NewAuthMiddleware(secret string) *AuthMiddleware {
	return &AuthMiddleware{secret: []byte(secret)}
}

// RequireRole only lets through requests whose token carries the given role
func (am *AuthMiddleware) RequireRole(role string, next http.Handler) http.Handler {
	return am.guard(next, func(r *http.Request, subject, tokenRole string) bool {
		return tokenRole == role
	})
}

// RequireAdmin is RequireRole(RoleAdmin, next)
func (am *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return am.RequireRole(RoleAdmin, next)
}

// RequirePartnerOrAdmin lets through admins and the partner named by the
// {id} path value. Partner tokens carry the partner ID as "sub".
func (am *AuthMiddleware) RequirePartnerOrAdmin(next http.Handler) http.Handler {
	return am.guard(next, func(r *http.Request, subject, tokenRole string) bool {
		if tokenRole == RoleAdmin {
			return true
		}
		return subject != "" && subject == r.PathValue("id")
	})
}

func (am *AuthMiddleware) guard(next http.Handler, allow func(r *http.Request, subject, role string) bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := am.authenticate(r)
		if err != nil {
			observability.LoggerFromContext(r.Context()).Debug().
				Err(err).
				Str("path", r.URL.Path).
				Msg("Rejected bearer token")
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		tokenRole, _ := claims["role"].(string)
		subject, _ := claims.GetSubject()
		if !allow(r, subject, tokenRole) {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}

		ctx := context.WithValue(r.Context(), SubjectContextKey, subject)
		ctx = context.WithValue(ctx, RoleContextKey, tokenRole)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (am *AuthMiddleware) authenticate(r *http.Request) (jwt.MapClaims, error) {
	if len(am.secret) == 0 {
		return nil, jwt.ErrTokenUnverifiable
	}

	header := r.Header.Get("Authorization")
	tokenString, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || tokenString == "" {
		return nil, jwt.ErrTokenMalformed
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return am.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// GetSubjectFromContext returns the token subject of an authenticated caller
func GetSubjectFromContext(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(SubjectContextKey).(string)
	return subject, ok
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"message": message,
	})
}
