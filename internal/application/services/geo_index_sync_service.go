package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/roadsideassist/internal/domain/entities"
	"github.com/zatekoja/roadsideassist/internal/domain/providers"
	"github.com/zatekoja/roadsideassist/internal/domain/repositories"
	apperrors "github.com/zatekoja/roadsideassist/pkg/errors"
)

// GeoIndexSyncService keeps secondary geo indexes in step with the partner
// catalog by reacting to partner events
type GeoIndexSyncService struct {
	repo     repositories.PartnerRepository
	indexes  []repositories.PartnerGeoIndex
	eventBus providers.EventBus
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	started  bool
}

// NewGeoIndexSyncService creates a new sync service
func NewGeoIndexSyncService(repo repositories.PartnerRepository, eventBus providers.EventBus, indexes ...repositories.PartnerGeoIndex) *GeoIndexSyncService {
	ctx, cancel := context.WithCancel(context.Background())
	return &GeoIndexSyncService{
		repo:     repo,
		indexes:  indexes,
		eventBus: eventBus,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start begins listening for partner updates
func (s *GeoIndexSyncService) Start() error {
	eventChan, err := s.eventBus.Subscribe(s.ctx, providers.EventChannelPartnerUpdates)
	if err != nil {
		return fmt.Errorf("failed to subscribe to partner updates: %w", err)
	}

	s.started = true
	go s.processEvents(eventChan)
	log.Info().Int("indexes", len(s.indexes)).Msg("Geo index sync service started")
	return nil
}

// Stop stops the sync service
func (s *GeoIndexSyncService) Stop() {
	s.cancel()
	if s.started {
		<-s.done
	}
	log.Info().Msg("Geo index sync service stopped")
}

func (s *GeoIndexSyncService) processEvents(eventChan <-chan *entities.PartnerEvent) {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if event == nil {
				continue
			}
			ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
			if err := s.SyncPartner(ctx, event.PartnerID); err != nil {
				log.Warn().Err(err).
					Str("event_id", event.ID).
					Str("partner_id", event.PartnerID).
					Msg("Failed to sync partner into geo index")
			}
			cancel()
		}
	}
}

// SyncPartner indexes the partner when it is searchable with a usable
// location and removes it from every index otherwise
func (s *GeoIndexSyncService) SyncPartner(ctx context.Context, partnerID string) error {
	partner, err := s.repo.GetByID(ctx, partnerID)
	if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		return s.remove(ctx, partnerID)
	}
	if err != nil {
		return err
	}

	_, err = s.apply(ctx, partner)
	return err
}

// apply brings every index in line with the partner record and reports
// whether the partner is now indexed
func (s *GeoIndexSyncService) apply(ctx context.Context, partner *entities.Partner) (bool, error) {
	if !indexable(partner) {
		return false, s.remove(ctx, partner.ID)
	}

	var errs []error
	for _, index := range s.indexes {
		if err := index.IndexPartner(ctx, partner); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", index.Name(), err))
		}
	}
	return true, errors.Join(errs...)
}

func indexable(partner *entities.Partner) bool {
	return partner.Searchable() && partner.Location.Rankable()
}

func (s *GeoIndexSyncService) remove(ctx context.Context, partnerID string) error {
	var errs []error
	for _, index := range s.indexes {
		if err := index.RemovePartner(ctx, partnerID); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", index.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// RebuildStats summarizes a full index rebuild
type RebuildStats struct {
	Indexed int
	Removed int
	Failed  int
}

// Rebuild walks the whole partner catalog page by page and indexes or removes
// each partner exactly as SyncPartner would. Partners that fail are logged and
// counted.
func (s *GeoIndexSyncService) Rebuild(ctx context.Context, pageSize int) (RebuildStats, error) {
	if pageSize <= 0 {
		pageSize = 500
	}

	var stats RebuildStats
	for offset := 0; ; offset += pageSize {
		partners, err := s.repo.List(ctx, repositories.PartnerFilter{
			Limit:  pageSize,
			Offset: offset,
		})
		if err != nil {
			return stats, err
		}

		for _, partner := range partners {
			indexed, err := s.apply(ctx, partner)
			switch {
			case err != nil:
				stats.Failed++
				log.Warn().Err(err).
					Str("partner_id", partner.ID).
					Bool("indexable", indexed).
					Msg("Failed to sync partner into geo index")
			case indexed:
				stats.Indexed++
			default:
				stats.Removed++
			}
		}

		if len(partners) < pageSize {
			return stats, nil
		}
	}
}
