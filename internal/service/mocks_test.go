package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"club-recruitment-service/internal/domain"
)

// MockCampaignRepo
type MockCampaignRepo struct {
	mock.Mock
}

func (m *MockCampaignRepo) Create(ctx context.Context, c *domain.Campaign) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}
func (m *MockCampaignRepo) GetByID(ctx context.Context, id string) (*domain.Campaign, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Campaign), args.Error(1)
}
func (m *MockCampaignRepo) Update(ctx context.Context, c *domain.Campaign) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}
func (m *MockCampaignRepo) UpdateStatus(ctx context.Context, id string, from, to domain.CampaignStatus) (*domain.Campaign, error) {
	args := m.Called(ctx, id, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Campaign), args.Error(1)
}
func (m *MockCampaignRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *MockCampaignRepo) ListByClub(ctx context.Context, clubID string, status domain.CampaignStatus, page, pageSize int32) ([]domain.Campaign, int32, error) {
	args := m.Called(ctx, clubID, status, page, pageSize)
	return args.Get(0).([]domain.Campaign), args.Get(1).(int32), args.Error(2)
}
func (m *MockCampaignRepo) ListPublished(ctx context.Context, clubID string, page, pageSize int32) ([]domain.Campaign, int32, error) {
	args := m.Called(ctx, clubID, page, pageSize)
	return args.Get(0).([]domain.Campaign), args.Get(1).(int32), args.Error(2)
}
func (m *MockCampaignRepo) ListExpired(ctx context.Context, now time.Time) ([]domain.Campaign, error) {
	args := m.Called(ctx, now)
	return args.Get(0).([]domain.Campaign), args.Error(1)
}
func (m *MockCampaignRepo) ListIDsByStatus(ctx context.Context, statuses ...domain.CampaignStatus) ([]string, error) {
	args := m.Called(ctx, statuses)
	return args.Get(0).([]string), args.Error(1)
}
func (m *MockCampaignRepo) UpdateStatistics(ctx context.Context, id string, stats domain.CampaignStatistics) error {
	args := m.Called(ctx, id, stats)
	return args.Error(0)
}

// MockApplicationRepo
type MockApplicationRepo struct {
	mock.Mock
}

func (m *MockApplicationRepo) Create(ctx context.Context, app *domain.Application, maxApplications *int) error {
	args := m.Called(ctx, app, maxApplications)
	return args.Error(0)
}
func (m *MockApplicationRepo) GetByID(ctx context.Context, id string) (*domain.Application, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Application), args.Error(1)
}
func (m *MockApplicationRepo) FindOpen(ctx context.Context, clubID, userID string) (*domain.Application, error) {
	args := m.Called(ctx, clubID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Application), args.Error(1)
}
func (m *MockApplicationRepo) UpdateSubmission(ctx context.Context, app *domain.Application) error {
	args := m.Called(ctx, app)
	return args.Error(0)
}
func (m *MockApplicationRepo) Transition(ctx context.Context, app *domain.Application, from domain.ApplicationStatus) error {
	args := m.Called(ctx, app, from)
	return args.Error(0)
}
func (m *MockApplicationRepo) Approve(ctx context.Context, app *domain.Application, maxApplications *int) error {
	args := m.Called(ctx, app, maxApplications)
	return args.Error(0)
}
func (m *MockApplicationRepo) CountByCampaign(ctx context.Context, campaignID string) (domain.CampaignStatistics, error) {
	args := m.Called(ctx, campaignID)
	return args.Get(0).(domain.CampaignStatistics), args.Error(1)
}
func (m *MockApplicationRepo) ListByCampaign(ctx context.Context, campaignID string, status domain.ApplicationStatus, page, pageSize int32) ([]domain.Application, int32, error) {
	args := m.Called(ctx, campaignID, status, page, pageSize)
	return args.Get(0).([]domain.Application), args.Get(1).(int32), args.Error(2)
}
func (m *MockApplicationRepo) ListByApplicant(ctx context.Context, userID string) ([]domain.Application, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.Application), args.Error(1)
}
func (m *MockApplicationRepo) HasRole(ctx context.Context, clubID, userID string, roles []domain.MemberRole) (bool, error) {
	args := m.Called(ctx, clubID, userID, roles)
	return args.Bool(0), args.Error(1)
}
func (m *MockApplicationRepo) ApplyIdentity(ctx context.Context, userID string, identity domain.Identity, version int64) (int64, error) {
	args := m.Called(ctx, userID, identity, version)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockApplicationRepo) RemoveByIdentity(ctx context.Context, userID, reason string, version int64, at time.Time) ([]string, error) {
	args := m.Called(ctx, userID, reason, version, at)
	return args.Get(0).([]string), args.Error(1)
}

// MockClubRepo
type MockClubRepo struct {
	mock.Mock
}

func (m *MockClubRepo) Exists(ctx context.Context, clubID string) (bool, error) {
	args := m.Called(ctx, clubID)
	return args.Bool(0), args.Error(1)
}

// MockGate
type MockGate struct {
	mock.Mock
}

func (m *MockGate) HasRole(ctx context.Context, clubID, actorID string, roles ...domain.MemberRole) bool {
	args := m.Called(ctx, clubID, actorID, roles)
	return args.Bool(0)
}
func (m *MockGate) Require(ctx context.Context, clubID, actorID string, roles ...domain.MemberRole) error {
	args := m.Called(ctx, clubID, actorID, roles)
	return args.Error(0)
}

// MockStats
type MockStats struct {
	mock.Mock
}

func (m *MockStats) Recompute(ctx context.Context, campaignID string) {
	m.Called(ctx, campaignID)
}
func (m *MockStats) ReconcileAll(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// MockPublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, eventType string, data any) {
	m.Called(ctx, eventType, data)
}

// fixedClock returns a clock frozen at t.
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
