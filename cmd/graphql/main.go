package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/99designs/gqlgen/graphql/handler"
	"github.com/99designs/gqlgen/graphql/handler/lru"
	"github.com/99designs/gqlgen/graphql/handler/transport"
	"github.com/rs/zerolog/log"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/zatekoja/roadsideassist/internal/adapters/cache"
	"github.com/zatekoja/roadsideassist/internal/adapters/database"
	"github.com/zatekoja/roadsideassist/internal/adapters/geoindex"
	"github.com/zatekoja/roadsideassist/internal/adapters/search"
	"github.com/zatekoja/roadsideassist/internal/api/middleware"
	"github.com/zatekoja/roadsideassist/internal/application/services"
	"github.com/zatekoja/roadsideassist/internal/domain/repositories"
	"github.com/zatekoja/roadsideassist/internal/graphql/loaders"
	"github.com/zatekoja/roadsideassist/internal/graphql/resolvers"
	"github.com/zatekoja/roadsideassist/internal/graphql/schema"
	"github.com/zatekoja/roadsideassist/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/roadsideassist/internal/infrastructure/clients/redis"
	"github.com/zatekoja/roadsideassist/internal/infrastructure/clients/typesense"
	"github.com/zatekoja/roadsideassist/internal/infrastructure/observability"
	"github.com/zatekoja/roadsideassist/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	serviceName := cfg.OTEL.ServiceName + "-graphql"
	observability.InitLogger(serviceName, cfg.Env)

	log.Info().
		Str("service", serviceName).
		Str("version", cfg.OTEL.ServiceVersion).
		Str("env", cfg.Env).
		Msg("Starting GraphQL Server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, serviceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()
				if err := shutdown(shutdownCtx); err != nil {
					log.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			log.Info().Msg("OpenTelemetry initialized successfully")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize metrics")
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()

	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Redis client")
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	partnerRepo := database.NewPartnerAdapter(pgClient)
	indexes := make(map[string]repositories.PartnerGeoIndex)

	if redisClient != nil {
		partnerRepo = database.NewCachedPartnerAdapter(partnerRepo, cache.NewRedisAdapter(redisClient), metrics)
		indexes["redis"] = geoindex.NewRedisGeoIndex(redisClient, geoindex.DefaultPartnersKey)
		log.Info().Msg("GraphQL: Partner adapter wrapped with caching layer")
	} else {
		log.Warn().Msg("GraphQL: Partner adapter running without cache (Redis unavailable)")
	}

	if cfg.Dispatch.GeoBackend == "typesense" {
		typesenseClient, err := typesense.NewClient(&cfg.Typesense)
		if err != nil {
			log.Warn().Err(err).Msg("Typesense unavailable")
		} else {
			indexes["typesense"] = search.NewTypesensePartnerIndex(typesenseClient)
		}
	}

	locator, backend, fellBack := services.SelectPartnerLocator(cfg.Dispatch.GeoBackend, partnerRepo, indexes)
	if fellBack {
		log.Warn().
			Str("requested", cfg.Dispatch.GeoBackend).
			Str("backend", backend).
			Msg("Geo backend unavailable, falling back")
	}

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

	mux := newServeMux(resolvers.NewResolver(dispatchService), partnerRepo, metrics, cfg.Server.AllowedOrigins)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.GraphQLPort)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("address", serverAddr).Str("backend", backend).Msg("GraphQL server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("GraphQL server shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}

	log.Info().Msg("GraphQL server stopped")
}

// newServeMux mounts the GraphQL endpoint and health check
func newServeMux(resolver *resolvers.Resolver, partnerRepo repositories.PartnerRepository, metrics *observability.Metrics, allowedOrigins []string) *http.ServeMux {
	srv := handler.New(schema.NewExecutableSchema(schema.Config{Resolvers: resolver}))

	srv.AddTransport(transport.Options{})
	srv.AddTransport(transport.GET{})
	srv.AddTransport(transport.POST{})

	srv.SetQueryCache(lru.New[*ast.QueryDocument](1000))

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok","service":"graphql"}`))
	})

	// Apply middleware: Recovery -> CORS -> Observability -> Logging -> DataLoader
	var graphqlHandler http.Handler = loaders.Middleware(partnerRepo)(srv)
	graphqlHandler = middleware.LoggingMiddleware(graphqlHandler)
	graphqlHandler = middleware.ObservabilityMiddleware(metrics)(graphqlHandler)
	graphqlHandler = middleware.CORSMiddleware(allowedOrigins)(graphqlHandler)
	graphqlHandler = middleware.RecoveryMiddleware(graphqlHandler)

	mux.Handle("/graphql", graphqlHandler)
	return mux
}
