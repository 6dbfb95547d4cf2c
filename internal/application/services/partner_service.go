package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/zatekoja/roadsideassist/internal/domain/entities"
	"github.com/zatekoja/roadsideassist/internal/domain/providers"
	"github.com/zatekoja/roadsideassist/internal/domain/repositories"
	apperrors "github.com/zatekoja/roadsideassist/pkg/errors"
)

// PartnerService handles partner registration and profile changes that
// affect search
type PartnerService struct {
	repo     repositories.PartnerRepository
	eventBus providers.EventBus
}

// NewPartnerService creates a new partner service
func NewPartnerService(repo repositories.PartnerRepository) *PartnerService {
	return &PartnerService{repo: repo}
}

// SetEventBus enables publishing of partner events
func (s *PartnerService) SetEventBus(eventBus providers.EventBus) {
	s.eventBus = eventBus
}

// Register creates a partner awaiting approval. New partners are inactive and
// never appear in search until an administrator approves them.
func (s *PartnerService) Register(ctx context.Context, partner *entities.Partner) error {
	partner.BusinessName = strings.TrimSpace(partner.BusinessName)
	partner.PhoneNumber = strings.TrimSpace(partner.PhoneNumber)

	if partner.BusinessName == "" {
		return apperrors.NewValidationError("business_name is required")
	}
	if partner.PhoneNumber == "" {
		return apperrors.NewValidationError("phone_number is required")
	}
	if !partner.Location.IsSentinel() {
		if err := partner.Location.Validate(); err != nil {
			return apperrors.NewInvalidCoordinatesError(err.Error())
		}
	}

	now := time.Now().UTC()
	partner.ID = uuid.New().String()
	partner.ServiceCategories = normalizeCategories(partner.ServiceCategories)
	partner.ApprovalStatus = entities.ApprovalStatusPending
	partner.IsActive = false
	partner.Rating = 0
	partner.ReviewCount = 0
	partner.CreatedAt = now
	partner.UpdatedAt = now

	if err := s.repo.Create(ctx, partner); err != nil {
		return err
	}

	s.publish(ctx, entities.NewPartnerEvent(partner.ID, entities.PartnerEventTypeRegistered, partner.Location, nil))
	return nil
}

// GetByID retrieves a partner by ID
func (s *PartnerService) GetByID(ctx context.Context, id string) (*entities.Partner, error) {
	return s.repo.GetByID(ctx, id)
}

// Page size bounds for partner listings
const (
	DefaultPartnerPageSize = 20
	MaxPartnerPageSize     = 100
)

// List retrieves one page of partners for moderation
func (s *PartnerService) List(ctx context.Context, filter repositories.PartnerFilter) ([]*entities.Partner, error) {
	if filter.ApprovalStatus != "" && !filter.ApprovalStatus.Valid() {
		return nil, apperrors.NewValidationError("unknown approval status: " + string(filter.ApprovalStatus))
	}
	if filter.Offset < 0 {
		return nil, apperrors.NewValidationError("offset must not be negative")
	}
	if filter.Limit <= 0 {
		filter.Limit = DefaultPartnerPageSize
	}
	if filter.Limit > MaxPartnerPageSize {
		filter.Limit = MaxPartnerPageSize
	}
	return s.repo.List(ctx, filter)
}

// ProfileUpdate holds the profile fields a partner may edit. Nil fields are
// left unchanged. Location and approval have their own operations.
type ProfileUpdate struct {
	BusinessName       *string
	OwnerName          *string
	PhoneNumber        *string
	Email              *string
	Address            *entities.Address
	ServiceCategories  []string
	EmergencyAvailable *bool
}

// UpdateProfile edits a partner's profile. Category and emergency changes
// are republished so the geo indexes pick them up.
func (s *PartnerService) UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (*entities.Partner, error) {
	partner, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	changed := make(map[string]interface{})
	if update.BusinessName != nil {
		name := strings.TrimSpace(*update.BusinessName)
		if name == "" {
			return nil, apperrors.NewValidationError("business_name must not be empty")
		}
		partner.BusinessName = name
		changed["business_name"] = name
	}
	if update.PhoneNumber != nil {
		phone := strings.TrimSpace(*update.PhoneNumber)
		if phone == "" {
			return nil, apperrors.NewValidationError("phone_number must not be empty")
		}
		partner.PhoneNumber = phone
		changed["phone_number"] = phone
	}
	if update.OwnerName != nil {
		partner.OwnerName = strings.TrimSpace(*update.OwnerName)
		changed["owner_name"] = partner.OwnerName
	}
	if update.Email != nil {
		partner.Email = strings.TrimSpace(*update.Email)
		changed["email"] = partner.Email
	}
	if update.Address != nil {
		partner.Address = *update.Address
		changed["address"] = partner.Address
	}
	if update.ServiceCategories != nil {
		partner.ServiceCategories = normalizeCategories(update.ServiceCategories)
		changed["service_categories"] = partner.ServiceCategories
	}
	if update.EmergencyAvailable != nil {
		partner.EmergencyAvailable = *update.EmergencyAvailable
		changed["emergency_available"] = partner.EmergencyAvailable
	}

	if len(changed) == 0 {
		return partner, nil
	}

	if err := s.repo.Update(ctx, partner); err != nil {
		return nil, err
	}

	s.publish(ctx, entities.NewPartnerEvent(id, entities.PartnerEventTypeProfileUpdated, partner.Location, changed))
	return partner, nil
}

// normalizeCategories lower-cases categories and drops blanks and duplicates
func normalizeCategories(in []string) []string {
	categories := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, c := range in {
		c = NormalizeServiceFilter(c)
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		categories = append(categories, c)
	}
	return categories
}

// UpdateLocation moves a partner's shop
func (s *PartnerService) UpdateLocation(ctx context.Context, id string, location entities.GeoPoint) (*entities.Partner, error) {
	if err := location.Validate(); err != nil {
		return nil, apperrors.NewInvalidCoordinatesError(err.Error())
	}
	if location.IsSentinel() {
		return nil, apperrors.NewInvalidCoordinatesError("location must not be 0,0")
	}

	if err := s.repo.UpdateLocation(ctx, id, location); err != nil {
		return nil, err
	}

	partner, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, entities.NewPartnerEvent(id, entities.PartnerEventTypeLocationUpdated, location, map[string]interface{}{
		"latitude":  location.Latitude,
		"longitude": location.Longitude,
	}))
	return partner, nil
}

// SetApprovalStatus records a moderation decision
func (s *PartnerService) SetApprovalStatus(ctx context.Context, id string, status entities.ApprovalStatus) (*entities.Partner, error) {
	if !status.Valid() {
		return nil, apperrors.NewValidationError("unknown approval status: " + string(status))
	}

	if err := s.repo.UpdateApprovalStatus(ctx, id, status); err != nil {
		return nil, err
	}

	partner, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, entities.NewPartnerEvent(id, entities.PartnerEventTypeStatusUpdated, partner.Location, map[string]interface{}{
		"approval_status": string(status),
		"is_active":       partner.IsActive,
	}))
	return partner, nil
}

func (s *PartnerService) publish(ctx context.Context, event *entities.PartnerEvent) {
	if s.eventBus == nil {
		return
	}

	for _, channel := range []string{providers.EventChannelPartnerUpdates, providers.GetPartnerChannel(event.PartnerID)} {
		if err := s.eventBus.Publish(ctx, channel, event); err != nil {
			log.Warn().Err(err).
				Str("partner_id", event.PartnerID).
				Str("channel", channel).
				Msg("Failed to publish partner event")
		}
	}
}
