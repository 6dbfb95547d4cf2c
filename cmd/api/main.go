package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/roadsideassist/internal/adapters/cache"
	"github.com/zatekoja/roadsideassist/internal/adapters/database"
	"github.com/zatekoja/roadsideassist/internal/adapters/events"
	"github.com/zatekoja/roadsideassist/internal/adapters/geoindex"
	"github.com/zatekoja/roadsideassist/internal/adapters/search"
	"github.com/zatekoja/roadsideassist/internal/api/handlers"
	"github.com/zatekoja/roadsideassist/internal/api/middleware"
	"github.com/zatekoja/roadsideassist/internal/api/routes"
	"github.com/zatekoja/roadsideassist/internal/application/services"
	"github.com/zatekoja/roadsideassist/internal/domain/providers"
	"github.com/zatekoja/roadsideassist/internal/domain/repositories"
	"github.com/zatekoja/roadsideassist/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/roadsideassist/internal/infrastructure/clients/redis"
	"github.com/zatekoja/roadsideassist/internal/infrastructure/clients/typesense"
	"github.com/zatekoja/roadsideassist/internal/infrastructure/observability"
	"github.com/zatekoja/roadsideassist/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Env)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			observability.EnableOTELLogExport(cfg.OTEL.ServiceName)
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize metrics")
	}

	// Initialize database client
	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()

	// Redis backs the partner cache, the event bus and the redis geo index.
	// The API keeps serving from Postgres without it.
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable; running without cache, events or redis geo index")
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	var typesenseClient *typesense.Client
	if cfg.Dispatch.GeoBackend == "typesense" {
		typesenseClient, err = typesense.NewClient(&cfg.Typesense)
		if err != nil {
			log.Warn().Err(err).Msg("Typesense unavailable")
			typesenseClient = nil
		} else if err := typesenseClient.InitSchema(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to init Typesense schema")
			typesenseClient = nil
		}
	}

	// Initialize adapters
	baseRepo := database.NewPartnerAdapter(pgClient)
	partnerRepo := baseRepo
	var eventBus providers.EventBus
	indexes := make(map[string]repositories.PartnerGeoIndex)

	if redisClient != nil {
		partnerRepo = database.NewCachedPartnerAdapter(partnerRepo, cache.NewRedisAdapter(redisClient), metrics)
		eventBus = events.NewRedisEventBus(redisClient)
		indexes["redis"] = geoindex.NewRedisGeoIndex(redisClient, geoindex.DefaultPartnersKey)
	}
	if typesenseClient != nil {
		indexes["typesense"] = search.NewTypesensePartnerIndex(typesenseClient)
	}

	locator, backend, fellBack := services.SelectPartnerLocator(cfg.Dispatch.GeoBackend, partnerRepo, indexes)
	if fellBack {
		log.Warn().
			Str("requested", cfg.Dispatch.GeoBackend).
			Str("backend", backend).
			Msg("Geo backend unavailable, falling back")
	}
	log.Info().Str("backend", backend).Msg("Geo backend selected")

	// Initialize services
	dispatchService := services.NewDispatchService(
		services.NewGeoQueryBuilder(cfg.Dispatch.MaxRadiusKm, cfg.Dispatch.CandidateLimit),
		locator,
		backend,
		services.DispatchOptions{
			DefaultRadiusKm:   cfg.Dispatch.DefaultRadiusKm,
			EmergencyRadiusKm: cfg.Dispatch.EmergencyRadiusKm,
			MaxResults:        cfg.Dispatch.MaxResults,
		},
	)
	dispatchService.SetMetrics(metrics)

	partnerService := services.NewPartnerService(partnerRepo)

	var syncService *services.GeoIndexSyncService
	if eventBus != nil {
		partnerService.SetEventBus(eventBus)

		if index, ok := indexes[backend]; ok {
			// Index sync reads postgres directly, bypassing the partner cache
			syncService = services.NewGeoIndexSyncService(baseRepo, eventBus, index)
			if err := syncService.Start(); err != nil {
				log.Warn().Err(err).Msg("Failed to start geo index sync")
				syncService = nil
			}
		}
	}

	// Set up router
	router := routes.NewRouter(
		handlers.NewDispatchHandler(dispatchService, cfg.IsDevelopment()),
		handlers.NewPartnerHandler(partnerService, cfg.IsDevelopment()),
		middleware.NewAuthMiddleware(cfg.Auth.JWTSecret),
		cfg.Server.AllowedOrigins,
		metrics,
	)
	if eventBus != nil {
		router.SetPartnerStream(handlers.NewPartnerStreamHandler(eventBus))
	}
	router.AddReadinessCheck("postgres", pgClient.Ping)
	if redisClient != nil {
		router.AddReadinessCheck("redis", redisClient.Ping)
	}
	if typesenseClient != nil {
		router.AddReadinessCheck("typesense", typesenseClient.Ping)
	}

	if cfg.Auth.JWTSecret == "" {
		log.Warn().Msg("JWT_SECRET is not set; admin endpoints reject every request")
	}

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router.SetupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Server shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}

	if syncService != nil {
		syncService.Stop()
	}
	if eventBus != nil {
		if err := eventBus.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing event bus")
		}
	}

	log.Info().Msg("Server stopped")
}
