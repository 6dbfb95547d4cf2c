package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/zatekoja/roadsideassist/internal/api/handlers"
	"github.com/zatekoja/roadsideassist/internal/api/middleware"
	"github.com/zatekoja/roadsideassist/internal/infrastructure/observability"
)

// HealthChecker reports whether a dependency is reachable
type HealthChecker func(ctx context.Context) error

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	dispatchHandler *handlers.DispatchHandler
	partnerHandler  *handlers.PartnerHandler
	streamHandler   *handlers.PartnerStreamHandler

	auth           *middleware.AuthMiddleware
	allowedOrigins []string
	metrics        *observability.Metrics
	readiness      map[string]HealthChecker
}

// NewRouter creates a new router
func NewRouter(
	dispatchHandler *handlers.DispatchHandler,
	partnerHandler *handlers.PartnerHandler,
	auth *middleware.AuthMiddleware,
	allowedOrigins []string,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:             http.NewServeMux(),
		dispatchHandler: dispatchHandler,
		partnerHandler:  partnerHandler,
		auth:            auth,
		allowedOrigins:  allowedOrigins,
		metrics:         metrics,
		readiness:       make(map[string]HealthChecker),
	}
}

// SetPartnerStream enables the partner event stream
func (r *Router) SetPartnerStream(streamHandler *handlers.PartnerStreamHandler) {
	r.streamHandler = streamHandler
}

// AddReadinessCheck registers a dependency checked by GET /ready
func (r *Router) AddReadinessCheck(name string, check HealthChecker) {
	r.readiness[name] = check
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health check endpoints
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})
	r.mux.HandleFunc("GET /ready", r.ready)

	// Dispatch endpoints
	r.mux.HandleFunc("GET /api/partners/nearby", r.dispatchHandler.NearbyPartners)
	r.mux.HandleFunc("GET /api/emergency/nearby-partners", r.dispatchHandler.EmergencyPartners)

	// Partner endpoints
	r.mux.HandleFunc("POST /api/partners", r.partnerHandler.RegisterPartner)
	r.mux.HandleFunc("GET /api/partners/{id}", r.partnerHandler.GetPartner)
	r.mux.Handle("PUT /api/partners/{id}",
		r.auth.RequirePartnerOrAdmin(http.HandlerFunc(r.partnerHandler.UpdateProfile)))
	r.mux.Handle("PUT /api/partners/{id}/location",
		r.auth.RequirePartnerOrAdmin(http.HandlerFunc(r.partnerHandler.UpdateLocation)))
	if r.streamHandler != nil {
		r.mux.HandleFunc("GET /api/partners/{id}/events", r.streamHandler.StreamPartnerEvents)
	}

	// Admin endpoints
	r.mux.Handle("GET /api/admin/partners",
		r.auth.RequireAdmin(http.HandlerFunc(r.partnerHandler.ListPartners)))
	r.mux.Handle("PATCH /api/admin/partners/{id}/status",
		r.auth.RequireAdmin(http.HandlerFunc(r.partnerHandler.UpdateApprovalStatus)))

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)
	handler = middleware.RecoveryMiddleware(handler)

	return handler
}

func (r *Router) ready(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(r.readiness))
	for name, check := range r.readiness {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": status == http.StatusOK,
		"data":    checks,
	})
}
