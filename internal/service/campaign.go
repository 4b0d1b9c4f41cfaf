package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"club-recruitment-service/internal/domain"
	"club-recruitment-service/internal/logger"
	"club-recruitment-service/internal/repository"
)

type campaignService struct {
	campaignRepo repository.CampaignRepository
	appRepo      repository.ApplicationRepository
	clubRepo     repository.ClubRepository
	gate         PermissionGate
	publisher    EventPublisher
	now          func() time.Time
}

func NewCampaignService(
	campaignRepo repository.CampaignRepository,
	appRepo repository.ApplicationRepository,
	clubRepo repository.ClubRepository,
	gate PermissionGate,
	publisher EventPublisher,
) CampaignService {
	return &campaignService{
		campaignRepo: campaignRepo,
		appRepo:      appRepo,
		clubRepo:     clubRepo,
		gate:         gate,
		publisher:    publisher,
		now:          time.Now,
	}
}

func (s *campaignService) Create(ctx context.Context, clubID, actorID string, input CampaignInput) (*domain.Campaign, error) {
	logger.EnterMethod("campaignService.Create", "clubID", clubID, "actorID", actorID)

	exists, err := s.clubRepo.Exists(ctx, clubID)
	if err != nil {
		logger.ExitMethodWithError("campaignService.Create", err, "clubID", clubID)
		return nil, fmt.Errorf("failed to look up club: %w", err)
	}
	if !exists {
		return nil, domain.NewNotFound("club not found")
	}
	if err := s.gate.Require(ctx, clubID, actorID, managerRoles...); err != nil {
		logger.ExitMethodWithError("campaignService.Create", err, "clubID", clubID, "actorID", actorID)
		return nil, err
	}

	now := s.now().UTC()
	c := &domain.Campaign{
		ID:              uuid.NewString(),
		ClubID:          clubID,
		Title:           input.Title,
		Description:     input.Description,
		Requirements:    input.Requirements,
		Questions:       input.Questions,
		StartDate:       input.StartDate.UTC(),
		EndDate:         input.EndDate.UTC(),
		MaxApplications: input.MaxApplications,
		Status:          domain.CampaignStatusDraft,
		CreatedBy:       actorID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	assignQuestionIDs(c.Questions, now)
	if err := validateCampaign(c); err != nil {
		logger.ExitMethodWithError("campaignService.Create", err, "clubID", clubID)
		return nil, err
	}

	eventType := domain.EventCampaignCreated
	if input.Publish {
		if c.StartDate.Before(now) {
			return nil, domain.NewConflict("start date in the past")
		}
		c.Status = domain.CampaignStatusPublished
		eventType = domain.EventCampaignPublished
	}

	if err := s.campaignRepo.Create(ctx, c); err != nil {
		logger.ExitMethodWithError("campaignService.Create", err, "clubID", clubID)
		return nil, fmt.Errorf("failed to create campaign: %w", err)
	}

	data := domain.NewCampaignEventData(c, actorID)
	if input.Publish {
		data.StartDate, data.EndDate = &c.StartDate, &c.EndDate
	}
	s.publisher.Publish(ctx, eventType, data)

	logger.ExitMethod("campaignService.Create", "campaignID", c.ID, "status", c.Status)
	return c, nil
}

func (s *campaignService) Update(ctx context.Context, campaignID, actorID string, patch CampaignPatch) (*domain.Campaign, error) {
	logger.EnterMethod("campaignService.Update", "campaignID", campaignID, "actorID", actorID)

	c, err := s.loadManaged(ctx, campaignID, actorID)
	if err != nil {
		logger.ExitMethodWithError("campaignService.Update", err, "campaignID", campaignID)
		return nil, err
	}

	if patch.hasFieldChanges() {
		if c.Status != domain.CampaignStatusDraft {
			return nil, domain.NewConflict("campaign can only be edited while in draft")
		}
		changes := patch.applyTo(c)
		if patch.Questions != nil || patch.MaxApplications != nil {
			stats, err := s.appRepo.CountByCampaign(ctx, c.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to count applications: %w", err)
			}
			if stats.Total > 0 {
				return nil, domain.NewConflict("questions and max applications cannot change once applications exist")
			}
		}

		now := s.now().UTC()
		assignQuestionIDs(c.Questions, now)
		if err := validateCampaign(c); err != nil {
			logger.ExitMethodWithError("campaignService.Update", err, "campaignID", campaignID)
			return nil, err
		}
		c.UpdatedAt = now
		if err := s.campaignRepo.Update(ctx, c); err != nil {
			logger.ExitMethodWithError("campaignService.Update", err, "campaignID", campaignID)
			return nil, fmt.Errorf("failed to update campaign: %w", err)
		}

		data := domain.NewCampaignEventData(c, actorID)
		data.Changes = changes
		s.publisher.Publish(ctx, domain.EventCampaignUpdated, data)
	}

	if patch.Status != nil && *patch.Status != c.Status {
		c, err = s.transition(ctx, c, *patch.Status, actorID, domain.EventCampaignStatusChanged)
		if err != nil {
			logger.ExitMethodWithError("campaignService.Update", err, "campaignID", campaignID)
			return nil, err
		}
	}

	logger.ExitMethod("campaignService.Update", "campaignID", campaignID)
	return c, nil
}

func (s *campaignService) Publish(ctx context.Context, campaignID, actorID string) (*domain.Campaign, error) {
	c, err := s.loadManaged(ctx, campaignID, actorID)
	if err != nil {
		return nil, err
	}
	if c.Status != domain.CampaignStatusDraft {
		return nil, domain.NewConflict("only draft campaigns can be published")
	}
	return s.transition(ctx, c, domain.CampaignStatusPublished, actorID, domain.EventCampaignPublished)
}

func (s *campaignService) Pause(ctx context.Context, campaignID, actorID string) (*domain.Campaign, error) {
	c, err := s.loadManaged(ctx, campaignID, actorID)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, c, domain.CampaignStatusPaused, actorID, domain.EventCampaignStatusChanged)
}

func (s *campaignService) Resume(ctx context.Context, campaignID, actorID string) (*domain.Campaign, error) {
	c, err := s.loadManaged(ctx, campaignID, actorID)
	if err != nil {
		return nil, err
	}
	if c.Status != domain.CampaignStatusPaused {
		return nil, domain.NewConflict("only paused campaigns can be resumed")
	}
	if !c.EndDate.After(s.now().UTC()) {
		return nil, domain.NewConflict("campaign has ended")
	}
	return s.transition(ctx, c, domain.CampaignStatusPublished, actorID, domain.EventCampaignStatusChanged)
}

func (s *campaignService) Complete(ctx context.Context, campaignID, actorID string) (*domain.Campaign, error) {
	c, err := s.loadManaged(ctx, campaignID, actorID)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, c, domain.CampaignStatusCompleted, actorID, domain.EventCampaignStatusChanged)
}

func (s *campaignService) Delete(ctx context.Context, campaignID, actorID string) error {
	logger.EnterMethod("campaignService.Delete", "campaignID", campaignID, "actorID", actorID)

	c, err := s.loadManaged(ctx, campaignID, actorID)
	if err != nil {
		logger.ExitMethodWithError("campaignService.Delete", err, "campaignID", campaignID)
		return err
	}
	if c.Status != domain.CampaignStatusDraft {
		return domain.NewConflict("only draft campaigns can be deleted")
	}
	if err := s.campaignRepo.Delete(ctx, campaignID); err != nil {
		logger.ExitMethodWithError("campaignService.Delete", err, "campaignID", campaignID)
		return err
	}
	s.publisher.Publish(ctx, domain.EventCampaignDeleted, domain.NewCampaignEventData(c, actorID))

	logger.ExitMethod("campaignService.Delete", "campaignID", campaignID)
	return nil
}

// Get hides drafts from everyone but the club's managers.
func (s *campaignService) Get(ctx context.Context, campaignID, actorID string) (*domain.Campaign, error) {
	c, err := s.campaignRepo.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if c.Status == domain.CampaignStatusDraft && !s.gate.HasRole(ctx, c.ClubID, actorID, managerRoles...) {
		return nil, domain.NewNotFound("campaign not found")
	}
	return c, nil
}

func (s *campaignService) ListByClub(ctx context.Context, clubID, actorID string, status domain.CampaignStatus, page, pageSize int32) ([]domain.Campaign, int32, error) {
	if status != "" && !status.Valid() {
		return nil, 0, domain.NewValidationError(fmt.Sprintf("invalid status %q", status))
	}
	if err := s.gate.Require(ctx, clubID, actorID, managerRoles...); err != nil {
		return nil, 0, err
	}
	page, pageSize = domain.NormalizePage(page, pageSize)
	return s.campaignRepo.ListByClub(ctx, clubID, status, page, pageSize)
}

func (s *campaignService) ListPublished(ctx context.Context, clubID string, page, pageSize int32) ([]domain.Campaign, int32, error) {
	page, pageSize = domain.NormalizePage(page, pageSize)
	return s.campaignRepo.ListPublished(ctx, clubID, page, pageSize)
}

func (s *campaignService) CompleteExpired(ctx context.Context, now time.Time) (int, error) {
	logger.EnterMethod("campaignService.CompleteExpired", "now", now)

	expired, err := s.campaignRepo.ListExpired(ctx, now)
	if err != nil {
		logger.ExitMethodWithError("campaignService.CompleteExpired", err)
		return 0, fmt.Errorf("failed to list expired campaigns: %w", err)
	}

	completed := 0
	for i := range expired {
		c := &expired[i]
		if _, err := s.transition(ctx, c, domain.CampaignStatusCompleted, "", domain.EventCampaignStatusChanged); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				logger.Info("Campaign changed before completion, skipping", "campaignID", c.ID)
				continue
			}
			logger.ExitMethodWithError("campaignService.CompleteExpired", err, "campaignID", c.ID)
			return completed, err
		}
		completed++
	}

	logger.ExitMethod("campaignService.CompleteExpired", "completed", completed)
	return completed, nil
}

// loadManaged loads a campaign and requires a manager role on its club.
func (s *campaignService) loadManaged(ctx context.Context, campaignID, actorID string) (*domain.Campaign, error) {
	c, err := s.campaignRepo.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if err := s.gate.Require(ctx, c.ClubID, actorID, managerRoles...); err != nil {
		return nil, err
	}
	return c, nil
}

// transition runs one step of the campaign state machine and emits eventType.
func (s *campaignService) transition(ctx context.Context, c *domain.Campaign, to domain.CampaignStatus, actorID, eventType string) (*domain.Campaign, error) {
	from := c.Status
	if !from.CanTransitionTo(to) {
		return nil, domain.NewConflict(fmt.Sprintf("cannot change campaign status from %s to %s", from, to))
	}
	now := s.now().UTC()
	if to == domain.CampaignStatusPublished {
		if from == domain.CampaignStatusDraft && c.StartDate.Before(now) {
			return nil, domain.NewConflict("start date in the past")
		}
		if !c.EndDate.After(now) {
			return nil, domain.NewConflict("campaign end date has passed")
		}
	}

	updated, err := s.campaignRepo.UpdateStatus(ctx, c.ID, from, to)
	if err != nil {
		return nil, err
	}

	data := domain.NewCampaignEventData(updated, actorID)
	if eventType == domain.EventCampaignPublished {
		data.StartDate, data.EndDate = &updated.StartDate, &updated.EndDate
	} else {
		data.PreviousStatus = from
	}
	s.publisher.Publish(ctx, eventType, data)
	logger.Info("Campaign status changed", "campaignID", c.ID, "from", from, "to", to)
	return updated, nil
}

func (p CampaignPatch) hasFieldChanges() bool {
	return p.Title != nil || p.Description != nil || p.Requirements != nil || p.Questions != nil ||
		p.StartDate != nil || p.EndDate != nil || p.MaxApplications != nil
}

// applyTo merges the patch into c and returns the changed field names.
func (p CampaignPatch) applyTo(c *domain.Campaign) []string {
	var changes []string
	if p.Title != nil {
		c.Title = *p.Title
		changes = append(changes, "title")
	}
	if p.Description != nil {
		c.Description = *p.Description
		changes = append(changes, "description")
	}
	if p.Requirements != nil {
		c.Requirements = *p.Requirements
		changes = append(changes, "requirements")
	}
	if p.Questions != nil {
		c.Questions = *p.Questions
		changes = append(changes, "application_questions")
	}
	if p.StartDate != nil {
		c.StartDate = p.StartDate.UTC()
		changes = append(changes, "start_date")
	}
	if p.EndDate != nil {
		c.EndDate = p.EndDate.UTC()
		changes = append(changes, "end_date")
	}
	if p.MaxApplications != nil {
		n := *p.MaxApplications
		c.MaxApplications = &n
		changes = append(changes, "max_applications")
	}
	return changes
}
