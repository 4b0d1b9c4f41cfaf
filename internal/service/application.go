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

type applicationService struct {
	appRepo      repository.ApplicationRepository
	campaignRepo repository.CampaignRepository
	gate         PermissionGate
	stats        StatisticsAggregator
	publisher    EventPublisher
	now          func() time.Time
}

func NewApplicationService(
	appRepo repository.ApplicationRepository,
	campaignRepo repository.CampaignRepository,
	gate PermissionGate,
	stats StatisticsAggregator,
	publisher EventPublisher,
) ApplicationService {
	return &applicationService{
		appRepo:      appRepo,
		campaignRepo: campaignRepo,
		gate:         gate,
		stats:        stats,
		publisher:    publisher,
		now:          time.Now,
	}
}

func (s *applicationService) Submit(ctx context.Context, campaignID string, applicant Applicant, input SubmissionInput) (*domain.Application, error) {
	logger.EnterMethod("applicationService.Submit", "campaignID", campaignID, "applicantID", applicant.ID)

	c, err := s.campaignRepo.GetByID(ctx, campaignID)
	if err != nil {
		logger.ExitMethodWithError("applicationService.Submit", err, "campaignID", campaignID)
		return nil, err
	}
	now := s.now().UTC()
	if err := checkAcceptingApplications(c, now); err != nil {
		logger.ExitMethodWithError("applicationService.Submit", err, "campaignID", campaignID)
		return nil, err
	}
	if err := validateMessage(input.Message); err != nil {
		return nil, err
	}
	if err := validateAnswers(c, input.Answers); err != nil {
		logger.ExitMethodWithError("applicationService.Submit", err, "campaignID", campaignID)
		return nil, err
	}

	_, err = s.appRepo.FindOpen(ctx, c.ClubID, applicant.ID)
	switch {
	case err == nil:
		return nil, domain.NewConflict("you already have a pending application or active membership in this club")
	case !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("failed to check existing membership: %w", err)
	}

	app := &domain.Application{
		ID:          uuid.NewString(),
		ClubID:      c.ClubID,
		CampaignID:  &c.ID,
		ApplicantID: applicant.ID,
		Applicant:   applicant.Identity,
		Answers:     input.Answers,
		Message:     input.Message,
		Status:      domain.ApplicationStatusPending,
		SubmittedAt: now,
		UpdatedAt:   now,
	}
	if err := s.appRepo.Create(ctx, app, c.MaxApplications); err != nil {
		logger.ExitMethodWithError("applicationService.Submit", err, "campaignID", campaignID)
		return nil, err
	}

	s.stats.Recompute(ctx, c.ID)
	s.publisher.Publish(ctx, domain.EventApplicationSubmitted, domain.NewApplicationEventData(app))

	logger.ExitMethod("applicationService.Submit", "applicationID", app.ID)
	return app, nil
}

func checkAcceptingApplications(c *domain.Campaign, now time.Time) error {
	if c.Status != domain.CampaignStatusPublished {
		return domain.NewConflict("campaign is not accepting applications")
	}
	if now.Before(c.StartDate) {
		return domain.NewConflict("campaign has not started yet")
	}
	if c.DeadlinePassed(now) {
		return domain.NewConflict("application deadline has passed")
	}
	return nil
}

func (s *applicationService) Update(ctx context.Context, applicationID, applicantID string, patch SubmissionPatch) (*domain.Application, error) {
	logger.EnterMethod("applicationService.Update", "applicationID", applicationID)

	app, err := s.loadOwn(ctx, applicationID, applicantID)
	if err != nil {
		logger.ExitMethodWithError("applicationService.Update", err, "applicationID", applicationID)
		return nil, err
	}
	if app.Status != domain.ApplicationStatusPending {
		return nil, domain.NewConflict("only pending applications can be updated")
	}

	now := s.now().UTC()
	if app.CampaignID != nil {
		c, err := s.campaignRepo.GetByID(ctx, *app.CampaignID)
		if err != nil {
			return nil, err
		}
		if err := checkAcceptingApplications(c, now); err != nil {
			return nil, err
		}
		if patch.Answers != nil {
			merged := mergeAnswers(app.Answers, patch.Answers)
			if err := validateAnswers(c, merged); err != nil {
				return nil, err
			}
			app.Answers = merged
		}
	}
	if patch.Message != nil {
		if err := validateMessage(*patch.Message); err != nil {
			return nil, err
		}
		app.Message = *patch.Message
	}

	app.UpdatedAt = now
	if err := s.appRepo.UpdateSubmission(ctx, app); err != nil {
		logger.ExitMethodWithError("applicationService.Update", err, "applicationID", applicationID)
		return nil, err
	}
	s.publisher.Publish(ctx, domain.EventApplicationUpdated, domain.NewApplicationEventData(app))

	logger.ExitMethod("applicationService.Update", "applicationID", applicationID)
	return app, nil
}

func (s *applicationService) Withdraw(ctx context.Context, applicationID, applicantID string) (*domain.Application, error) {
	logger.EnterMethod("applicationService.Withdraw", "applicationID", applicationID)

	app, err := s.loadOwn(ctx, applicationID, applicantID)
	if err != nil {
		logger.ExitMethodWithError("applicationService.Withdraw", err, "applicationID", applicationID)
		return nil, err
	}
	if app.Status != domain.ApplicationStatusPending {
		return nil, domain.NewConflict("only pending applications can be withdrawn")
	}

	app.Status = domain.ApplicationStatusRemoved
	app.StatusReason = domain.ReasonWithdrawnByApplicant
	app.UpdatedAt = s.now().UTC()
	if err := s.appRepo.Transition(ctx, app, domain.ApplicationStatusPending); err != nil {
		logger.ExitMethodWithError("applicationService.Withdraw", err, "applicationID", applicationID)
		return nil, err
	}

	s.recompute(ctx, app)
	s.publisher.Publish(ctx, domain.EventApplicationWithdrawn, domain.NewApplicationEventData(app))

	logger.ExitMethod("applicationService.Withdraw", "applicationID", applicationID)
	return app, nil
}

func (s *applicationService) Approve(ctx context.Context, applicationID, actorID string, role domain.MemberRole) (*domain.Application, error) {
	logger.EnterMethod("applicationService.Approve", "applicationID", applicationID, "actorID", actorID, "role", role)

	if role == "" {
		role = domain.MemberRoleMember
	}
	if !role.Valid() {
		return nil, domain.NewValidationError(fmt.Sprintf("invalid role %q", role))
	}

	app, err := s.appRepo.GetByID(ctx, applicationID)
	if err != nil {
		logger.ExitMethodWithError("applicationService.Approve", err, "applicationID", applicationID)
		return nil, err
	}
	if err := s.gate.Require(ctx, app.ClubID, actorID, managerRoles...); err != nil {
		logger.ExitMethodWithError("applicationService.Approve", err, "applicationID", applicationID)
		return nil, err
	}
	if role == domain.MemberRoleClubManager && !s.gate.HasRole(ctx, app.ClubID, actorID, domain.MemberRoleClubManager) {
		return nil, domain.NewPermissionDenied("only club managers can grant the club_manager role")
	}
	if app.Status != domain.ApplicationStatusPending {
		return nil, domain.NewConflict(fmt.Sprintf("application is %s, only pending applications can be approved", app.Status))
	}

	open, err := s.appRepo.FindOpen(ctx, app.ClubID, app.ApplicantID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing membership: %w", err)
	}
	if open != nil && open.ID != app.ID {
		return nil, domain.NewConflict("user already has an active membership in this club")
	}

	var maxApplications *int
	if app.CampaignID != nil {
		c, err := s.campaignRepo.GetByID(ctx, *app.CampaignID)
		if err != nil {
			return nil, err
		}
		maxApplications = c.MaxApplications
	}

	now := s.now().UTC()
	app.Role = role
	app.ApproverID = &actorID
	app.ApprovedAt = &now
	app.UpdatedAt = now
	if err := s.appRepo.Approve(ctx, app, maxApplications); err != nil {
		logger.ExitMethodWithError("applicationService.Approve", err, "applicationID", applicationID)
		return nil, err
	}
	app.Status = domain.ApplicationStatusActive

	s.recompute(ctx, app)
	s.publisher.Publish(ctx, domain.EventApplicationApproved, domain.NewApplicationEventData(app))
	s.publisher.Publish(ctx, domain.EventClubMemberAdded, domain.MemberEventData{
		ClubID:        app.ClubID,
		UserID:        app.ApplicantID,
		ApplicationID: app.ID,
		Role:          app.Role,
		ActorID:       actorID,
	})

	logger.ExitMethod("applicationService.Approve", "applicationID", applicationID, "role", role)
	return app, nil
}

// Reject records the reviewer in approver_id but leaves approved_at empty so
// the record never counts as approved.
func (s *applicationService) Reject(ctx context.Context, applicationID, actorID, reason string) (*domain.Application, error) {
	logger.EnterMethod("applicationService.Reject", "applicationID", applicationID, "actorID", actorID)

	if runeLen(reason) > maxReasonLength {
		return nil, domain.NewValidationError(fmt.Sprintf("reason must be at most %d characters", maxReasonLength))
	}
	app, err := s.appRepo.GetByID(ctx, applicationID)
	if err != nil {
		logger.ExitMethodWithError("applicationService.Reject", err, "applicationID", applicationID)
		return nil, err
	}
	if err := s.gate.Require(ctx, app.ClubID, actorID, managerRoles...); err != nil {
		logger.ExitMethodWithError("applicationService.Reject", err, "applicationID", applicationID)
		return nil, err
	}
	if app.Status != domain.ApplicationStatusPending {
		return nil, domain.NewConflict(fmt.Sprintf("application is %s, only pending applications can be rejected", app.Status))
	}

	app.Status = domain.ApplicationStatusRejected
	app.StatusReason = reason
	app.ApproverID = &actorID
	app.UpdatedAt = s.now().UTC()
	if err := s.appRepo.Transition(ctx, app, domain.ApplicationStatusPending); err != nil {
		logger.ExitMethodWithError("applicationService.Reject", err, "applicationID", applicationID)
		return nil, err
	}

	s.recompute(ctx, app)
	s.publisher.Publish(ctx, domain.EventApplicationRejected, domain.NewApplicationEventData(app))

	logger.ExitMethod("applicationService.Reject", "applicationID", applicationID)
	return app, nil
}

func (s *applicationService) RemoveMember(ctx context.Context, clubID, userID, actorID, reason string) (*domain.Application, error) {
	logger.EnterMethod("applicationService.RemoveMember", "clubID", clubID, "userID", userID, "actorID", actorID)

	if runeLen(reason) > maxReasonLength {
		return nil, domain.NewValidationError(fmt.Sprintf("reason must be at most %d characters", maxReasonLength))
	}
	if err := s.gate.Require(ctx, clubID, actorID, domain.MemberRoleClubManager); err != nil {
		logger.ExitMethodWithError("applicationService.RemoveMember", err, "clubID", clubID)
		return nil, err
	}
	app, err := s.appRepo.FindOpen(ctx, clubID, userID)
	if err != nil {
		logger.ExitMethodWithError("applicationService.RemoveMember", err, "clubID", clubID, "userID", userID)
		return nil, err
	}
	if app.Status != domain.ApplicationStatusActive {
		return nil, domain.NewConflict("only active memberships can be removed")
	}

	app.Status = domain.ApplicationStatusRemoved
	app.StatusReason = reason
	app.UpdatedAt = s.now().UTC()
	if err := s.appRepo.Transition(ctx, app, domain.ApplicationStatusActive); err != nil {
		logger.ExitMethodWithError("applicationService.RemoveMember", err, "clubID", clubID, "userID", userID)
		return nil, err
	}

	s.recompute(ctx, app)
	s.publisher.Publish(ctx, domain.EventClubMemberRemoved, domain.MemberEventData{
		ClubID:        clubID,
		UserID:        userID,
		ApplicationID: app.ID,
		Role:          app.Role,
		ActorID:       actorID,
		Reason:        reason,
	})

	logger.ExitMethod("applicationService.RemoveMember", "clubID", clubID, "userID", userID)
	return app, nil
}

func (s *applicationService) GetMember(ctx context.Context, clubID, userID, actorID string) (*domain.Membership, error) {
	if clubID == "" || userID == "" {
		return nil, domain.NewValidationError("club id and user id are required")
	}
	if userID != actorID {
		if err := s.gate.Require(ctx, clubID, actorID, managerRoles...); err != nil {
			return nil, err
		}
	}
	app, err := s.appRepo.FindOpen(ctx, clubID, userID)
	if err != nil {
		return nil, err
	}
	m, ok := app.Membership()
	if !ok {
		return nil, domain.NewNotFound("member not found in this club")
	}
	return m, nil
}

func (s *applicationService) Get(ctx context.Context, applicationID, actorID string) (*domain.Application, error) {
	app, err := s.appRepo.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.ApplicantID == actorID {
		return app, nil
	}
	if err := s.gate.Require(ctx, app.ClubID, actorID, managerRoles...); err != nil {
		return nil, err
	}
	return app, nil
}

func (s *applicationService) ListByCampaign(ctx context.Context, campaignID, actorID string, status domain.ApplicationStatus, page, pageSize int32) ([]domain.Application, int32, error) {
	if status != "" && !status.Valid() {
		return nil, 0, domain.NewValidationError(fmt.Sprintf("invalid status %q", status))
	}
	c, err := s.campaignRepo.GetByID(ctx, campaignID)
	if err != nil {
		return nil, 0, err
	}
	if err := s.gate.Require(ctx, c.ClubID, actorID, managerRoles...); err != nil {
		return nil, 0, err
	}
	page, pageSize = domain.NormalizePage(page, pageSize)
	return s.appRepo.ListByCampaign(ctx, campaignID, status, page, pageSize)
}

func (s *applicationService) ListMine(ctx context.Context, applicantID string) ([]domain.Application, error) {
	return s.appRepo.ListByApplicant(ctx, applicantID)
}

// loadOwn loads an application that must belong to applicantID.
func (s *applicationService) loadOwn(ctx context.Context, applicationID, applicantID string) (*domain.Application, error) {
	app, err := s.appRepo.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.ApplicantID != applicantID {
		return nil, domain.NewPermissionDenied("only the applicant can change this application")
	}
	return app, nil
}

func (s *applicationService) recompute(ctx context.Context, app *domain.Application) {
	if app.CampaignID != nil {
		s.stats.Recompute(ctx, *app.CampaignID)
	}
}
