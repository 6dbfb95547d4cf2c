package services_test

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"
	"github.com/zatekoja/roadsideassist/internal/domain/entities"
	"github.com/zatekoja/roadsideassist/internal/domain/repositories"
)

type MockPartnerRepository struct {
	mock.Mock
}

func (m *MockPartnerRepository) Create(ctx context.Context, partner *entities.Partner) error {
	return m.Called(ctx, partner).Error(0)
}

func (m *MockPartnerRepository) GetByID(ctx context.Context, id string) (*entities.Partner, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Partner), args.Error(1)
}

func (m *MockPartnerRepository) GetByIDs(ctx context.Context, ids []string) ([]*entities.Partner, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Partner), args.Error(1)
}

func (m *MockPartnerRepository) Update(ctx context.Context, partner *entities.Partner) error {
	return m.Called(ctx, partner).Error(0)
}

func (m *MockPartnerRepository) UpdateLocation(ctx context.Context, id string, location entities.GeoPoint) error {
	return m.Called(ctx, id, location).Error(0)
}

func (m *MockPartnerRepository) UpdateApprovalStatus(ctx context.Context, id string, status entities.ApprovalStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *MockPartnerRepository) List(ctx context.Context, filter repositories.PartnerFilter) ([]*entities.Partner, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Partner), args.Error(1)
}

func (m *MockPartnerRepository) FindWithinRadius(ctx context.Context, query repositories.PartnerGeoQuery) ([]*entities.Partner, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Partner), args.Error(1)
}

func (m *MockPartnerRepository) FindByIDs(ctx context.Context, ids []string, query repositories.PartnerGeoQuery) ([]*entities.Partner, error) {
	args := m.Called(ctx, ids, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Partner), args.Error(1)
}

type MockPartnerLocator struct {
	mock.Mock
}

func (m *MockPartnerLocator) FindWithinRadius(ctx context.Context, query repositories.PartnerGeoQuery) ([]*entities.Partner, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Partner), args.Error(1)
}

type MockPartnerGeoIndex struct {
	mock.Mock
}

func (m *MockPartnerGeoIndex) Name() string {
	return "mock"
}

func (m *MockPartnerGeoIndex) IndexPartner(ctx context.Context, partner *entities.Partner) error {
	return m.Called(ctx, partner).Error(0)
}

func (m *MockPartnerGeoIndex) RemovePartner(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockPartnerGeoIndex) SearchRadius(ctx context.Context, query repositories.PartnerGeoQuery) ([]string, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockEventBus delivers published events to in-process subscribers
type MockEventBus struct {
	mu          sync.Mutex
	subscribers map[string][]chan *entities.PartnerEvent
	published   map[string][]*entities.PartnerEvent
	publishErr  error
}

func NewMockEventBus() *MockEventBus {
	return &MockEventBus{
		subscribers: make(map[string][]chan *entities.PartnerEvent),
		published:   make(map[string][]*entities.PartnerEvent),
	}
}

func (m *MockEventBus) Publish(ctx context.Context, channel string, event *entities.PartnerEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishErr != nil {
		return m.publishErr
	}
	m.published[channel] = append(m.published[channel], event)
	for _, ch := range m.subscribers[channel] {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

func (m *MockEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.PartnerEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan *entities.PartnerEvent, 10)
	m.subscribers[channel] = append(m.subscribers[channel], ch)
	return ch, nil
}

func (m *MockEventBus) Unsubscribe(ctx context.Context, channel string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.subscribers[channel] {
		close(ch)
	}
	delete(m.subscribers, channel)
	return nil
}

func (m *MockEventBus) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for channel, chans := range m.subscribers {
		for _, ch := range chans {
			close(ch)
		}
		delete(m.subscribers, channel)
	}
	return nil
}

func (m *MockEventBus) Published(channel string) []*entities.PartnerEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*entities.PartnerEvent(nil), m.published[channel]...)
}

func (m *MockEventBus) SubscriberCount(channel string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subscribers[channel])
}
