package services

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/zatekoja/roadsideassist/internal/domain/entities"
	"github.com/zatekoja/roadsideassist/internal/domain/repositories"
	"github.com/zatekoja/roadsideassist/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/roadsideassist/pkg/errors"
)

// DispatchOptions holds the search defaults
type DispatchOptions struct {
	DefaultRadiusKm   float64
	EmergencyRadiusKm float64
	MaxResults        int
}

// NearbySearch is a proximity search as received from a client. A nil
// RadiusKm selects the default radius for the kind of search.
type NearbySearch struct {
	Latitude      float64
	Longitude     float64
	RadiusKm      *float64
	ServiceFilter string
}

// DispatchService finds the partners closest to a stranded customer
type DispatchService struct {
	builder *GeoQueryBuilder
	locator repositories.PartnerLocator
	backend string
	opts    DispatchOptions
	metrics *observability.Metrics
}

// NewDispatchService creates a new dispatch service. backend names the
// locator in logs and metrics.
func NewDispatchService(builder *GeoQueryBuilder, locator repositories.PartnerLocator, backend string, opts DispatchOptions) *DispatchService {
	if opts.MaxResults <= 0 || opts.MaxResults > MaxRankedResults {
		opts.MaxResults = MaxRankedResults
	}
	return &DispatchService{
		builder: builder,
		locator: locator,
		backend: backend,
		opts:    opts,
	}
}

// SetMetrics attaches application metrics
func (s *DispatchService) SetMetrics(metrics *observability.Metrics) {
	s.metrics = metrics
}

// FindNearbyPartners returns approved partners around the search origin
func (s *DispatchService) FindNearbyPartners(ctx context.Context, search NearbySearch) ([]entities.RankedPartner, error) {
	return s.find(ctx, s.request(search, s.opts.DefaultRadiusKm, false))
}

// FindEmergencyPartners returns emergency-capable partners around the search
// origin
func (s *DispatchService) FindEmergencyPartners(ctx context.Context, search NearbySearch) ([]entities.RankedPartner, error) {
	return s.find(ctx, s.request(search, s.opts.EmergencyRadiusKm, true))
}

func (s *DispatchService) request(search NearbySearch, defaultRadius float64, emergency bool) SearchRequest {
	radius := defaultRadius
	if search.RadiusKm != nil {
		radius = *search.RadiusKm
	}
	return SearchRequest{
		Origin:        entities.GeoPoint{Latitude: search.Latitude, Longitude: search.Longitude},
		RadiusKm:      radius,
		ServiceFilter: search.ServiceFilter,
		EmergencyOnly: emergency,
	}
}

func (s *DispatchService) find(ctx context.Context, req SearchRequest) ([]entities.RankedPartner, error) {
	ctx, span := observability.StartSpan(ctx, "DispatchService.find")
	defer span.End()

	span.SetAttributes(
		attribute.Float64("search.latitude", req.Origin.Latitude),
		attribute.Float64("search.longitude", req.Origin.Longitude),
		attribute.Float64("search.radius_km", req.RadiusKm),
		attribute.String("search.service_filter", req.ServiceFilter),
		attribute.Bool("search.emergency", req.EmergencyOnly),
		attribute.String("geo.backend", s.backend),
	)

	query, err := s.builder.BuildNearbyQuery(req)
	if err != nil {
		span.SetStatus(codes.Error, "invalid search request")
		return nil, err
	}

	start := time.Now()
	candidates, err := s.locator.FindWithinRadius(ctx, query)
	observability.RecordDBMetric(ctx, s.metrics, "find_partners_within_radius", time.Since(start))
	if err != nil {
		observability.RecordError(span, err)
		span.SetStatus(codes.Error, "candidate lookup failed")
		observability.RecordGeoQueryFailure(ctx, s.metrics, s.backend)
		observability.LoggerFromContext(ctx).Error().
			Err(err).
			Str("backend", s.backend).
			Msg("Nearby partner query failed")
		return nil, apperrors.NewStorageQueryError("failed to query nearby partners", err)
	}

	ranked := RankPartners(req.Origin, req.RadiusKm, candidates, s.opts.MaxResults)

	span.SetAttributes(
		attribute.Int("search.candidates", len(candidates)),
		attribute.Int("search.results", len(ranked)),
	)
	observability.RecordNearbyResult(ctx, s.metrics, s.backend, req.EmergencyOnly, len(ranked))

	return ranked, nil
}
