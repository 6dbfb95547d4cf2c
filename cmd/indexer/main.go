package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/roadsideassist/internal/adapters/database"
	"github.com/zatekoja/roadsideassist/internal/adapters/geoindex"
	"github.com/zatekoja/roadsideassist/internal/adapters/search"
	"github.com/zatekoja/roadsideassist/internal/application/services"
	"github.com/zatekoja/roadsideassist/internal/domain/repositories"
	"github.com/zatekoja/roadsideassist/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/roadsideassist/internal/infrastructure/clients/redis"
	"github.com/zatekoja/roadsideassist/internal/infrastructure/clients/typesense"
	"github.com/zatekoja/roadsideassist/internal/infrastructure/observability"
	"github.com/zatekoja/roadsideassist/pkg/config"
)

func main() {
	var reset bool
	var intervalFlag string
	var targetsFlag string
	var pageSize int
	flag.BoolVar(&reset, "reset", false, "drop existing geo indexes before reindexing")
	flag.StringVar(&intervalFlag, "interval", "", "repeat interval for reindexing (e.g. 6h, 30m)")
	flag.StringVar(&targetsFlag, "targets", "", "comma separated indexes to rebuild: redis,typesense (default: GEO_BACKEND)")
	flag.IntVar(&pageSize, "page-size", 500, "partners loaded per page")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	observability.InitLogger("roadside-assist-indexer", cfg.Env)

	intervalValue := strings.TrimSpace(intervalFlag)
	if intervalValue == "" {
		intervalValue = strings.TrimSpace(os.Getenv("REINDEX_INTERVAL"))
	}

	var interval time.Duration
	if intervalValue != "" {
		interval, err = time.ParseDuration(intervalValue)
		if err != nil {
			log.Fatal().Err(err).Str("interval", intervalValue).Msg("Invalid interval")
		}
		if interval <= 0 {
			log.Fatal().Msg("Interval must be greater than zero")
		}
	}

	targets := parseTargets(targetsFlag, cfg.Dispatch.GeoBackend)
	if len(targets) == 0 {
		log.Info().Str("geo_backend", cfg.Dispatch.GeoBackend).Msg("No geo index to rebuild")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for {
		if err := indexOnce(ctx, cfg, targets, reset, pageSize); err != nil {
			log.Error().Err(err).Msg("Reindex failed")
		}

		if interval <= 0 {
			break
		}

		reset = false
		log.Info().Dur("next_run_in", interval).Msg("Reindex complete")

		select {
		case <-ctx.Done():
			log.Info().Msg("Reindexer shutting down")
			return
		case <-time.After(interval):
		}
	}
}

// parseTargets resolves the -targets flag. Without it the configured
// GEO_BACKEND is rebuilt, which is nothing for postgres.
func parseTargets(flagValue, geoBackend string) []string {
	raw := flagValue
	if strings.TrimSpace(raw) == "" {
		raw = geoBackend
	}

	var targets []string
	for _, t := range strings.Split(raw, ",") {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "redis" || t == "typesense" {
			targets = append(targets, t)
		}
	}
	return targets
}

func indexOnce(ctx context.Context, cfg *config.Config, targets []string, reset bool, pageSize int) error {
	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		return err
	}
	defer pgClient.Close()

	var indexes []repositories.PartnerGeoIndex
	for _, target := range targets {
		switch target {
		case "redis":
			redisClient, err := redis.NewClient(&cfg.Redis)
			if err != nil {
				return err
			}
			defer redisClient.Close()

			index := geoindex.NewRedisGeoIndex(redisClient, geoindex.DefaultPartnersKey)
			if reset {
				if err := index.Reset(ctx); err != nil {
					return fmt.Errorf("failed to reset redis geo index: %w", err)
				}
			}
			indexes = append(indexes, index)

		case "typesense":
			typesenseClient, err := typesense.NewClient(&cfg.Typesense)
			if err != nil {
				return err
			}
			if reset {
				if err := typesenseClient.DropPartners(ctx); err != nil {
					return fmt.Errorf("failed to drop typesense collection: %w", err)
				}
			}
			if err := typesenseClient.InitSchema(ctx); err != nil {
				return fmt.Errorf("failed to init typesense schema: %w", err)
			}
			indexes = append(indexes, search.NewTypesensePartnerIndex(typesenseClient))
		}
	}
	if len(indexes) == 0 {
		return errors.New("no geo index configured")
	}

	syncService := services.NewGeoIndexSyncService(database.NewPartnerAdapter(pgClient), nil, indexes...)

	start := time.Now()
	stats, err := syncService.Rebuild(ctx, pageSize)
	if err != nil {
		return err
	}

	log.Info().
		Int("indexed", stats.Indexed).
		Int("removed", stats.Removed).
		Int("failed", stats.Failed).
		Strs("targets", targets).
		Dur("took", time.Since(start)).
		Msg("Geo indexes rebuilt")
	return nil
}
