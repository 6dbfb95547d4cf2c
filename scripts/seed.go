package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/zatekoja/roadsideassist/internal/adapters/cache"
	"github.com/zatekoja/roadsideassist/internal/adapters/database"
	"github.com/zatekoja/roadsideassist/internal/domain/entities"
	"github.com/zatekoja/roadsideassist/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/roadsideassist/internal/infrastructure/clients/redis"
	"github.com/zatekoja/roadsideassist/internal/infrastructure/observability"
	"github.com/zatekoja/roadsideassist/pkg/config"
)

type seedPartner struct {
	name       string
	city       string
	state      string
	lat, lng   float64
	categories []string
	emergency  bool
	rating     float64
	reviews    int
	status     entities.ApprovalStatus
}

var seedPartners = []seedPartner{
	{"Bandra Roadside Rescue", "Mumbai", "Maharashtra", 19.0596, 72.8295, []string{"towing", "battery", "fuel"}, true, 4.6, 212, entities.ApprovalStatusApproved},
	{"Andheri Auto Works", "Mumbai", "Maharashtra", 19.1136, 72.8697, []string{"mechanic", "tyre"}, false, 4.2, 98, entities.ApprovalStatusApproved},
	{"Colaba Tyre House", "Mumbai", "Maharashtra", 18.9067, 72.8147, []string{"tyre"}, false, 3.9, 41, entities.ApprovalStatusApproved},
	{"Powai Lockout Services", "Mumbai", "Maharashtra", 19.1176, 72.9060, []string{"lockout"}, true, 4.8, 67, entities.ApprovalStatusPending},
	{"Connaught Place Towing", "New Delhi", "Delhi", 28.6315, 77.2167, []string{"towing"}, true, 4.4, 180, entities.ApprovalStatusApproved},
	{"Karol Bagh Motors", "New Delhi", "Delhi", 28.6519, 77.1909, []string{"mechanic", "battery"}, false, 4.0, 75, entities.ApprovalStatusApproved},
	{"Noida Highway Assist", "Noida", "Uttar Pradesh", 28.5355, 77.3910, []string{"towing", "fuel"}, true, 4.1, 54, entities.ApprovalStatusSuspended},
	{"Navrangpura Garage", "Ahmedabad", "Gujarat", 23.0225, 72.5714, []string{"mechanic", "tyre", "battery"}, true, 4.3, 120, entities.ApprovalStatusApproved},
	{"SG Highway Tyres", "Ahmedabad", "Gujarat", 23.0300, 72.5070, []string{"tyre"}, false, 3.7, 22, entities.ApprovalStatusApproved},
	{"Indiranagar Car Care", "Bengaluru", "Karnataka", 12.9784, 77.6408, []string{"mechanic", "lockout"}, false, 4.5, 143, entities.ApprovalStatusRejected},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	observability.InitLogger("roadside-assist-seed", cfg.Env)

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to DB")
	}
	defer pgClient.Close()

	ctx := context.Background()

	if os.Getenv("RESET_DB") == "true" {
		log.Info().Msg("RESET_DB=true detected, truncating partners before seeding")
		if _, err := pgClient.DB().ExecContext(ctx, `TRUNCATE TABLE partners`); err != nil {
			log.Fatal().Err(err).Msg("Failed to reset partners")
		}
		flushPartnerCache(ctx, cfg)
	}

	partnerRepo := database.NewPartnerAdapter(pgClient)

	created := 0
	for _, s := range seedPartners {
		now := time.Now().UTC()
		partner := &entities.Partner{
			ID:           uuid.New().String(),
			BusinessName: s.name,
			PhoneNumber:  "+91 00000 00000",
			Address: entities.Address{
				City: s.city, State: s.state, Country: "India",
			},
			Location:           entities.GeoPoint{Latitude: s.lat, Longitude: s.lng},
			ServiceCategories:  s.categories,
			EmergencyAvailable: s.emergency,
			ApprovalStatus:     s.status,
			IsActive:           s.status == entities.ApprovalStatusApproved,
			Rating:             s.rating,
			ReviewCount:        s.reviews,
			CreatedAt:          now,
			UpdatedAt:          now,
		}

		if err := partnerRepo.Create(ctx, partner); err != nil {
			log.Error().Err(err).Str("partner", s.name).Msg("Failed to create partner")
			continue
		}
		created++
	}

	log.Info().Int("partners", created).Msg("Seeding complete; run cmd/indexer to refresh redis or typesense geo indexes")
}

// flushPartnerCache clears cached partner rows left over from the truncated
// table. Redis is optional for seeding.
func flushPartnerCache(ctx context.Context, cfg *config.Config) {
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable; skipping partner cache flush")
		return
	}
	defer redisClient.Close()

	if err := database.FlushPartnerCache(ctx, cache.NewRedisAdapter(redisClient)); err != nil {
		log.Warn().Err(err).Msg("Failed to flush partner cache")
		return
	}
	log.Info().Msg("Partner cache flushed")
}
