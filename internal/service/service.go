package service

import (
	"context"
	"time"

	"club-recruitment-service/internal/domain"
)

// CampaignInput carries the fields of a new campaign.
type CampaignInput struct {
	Title           string
	Description     string
	Requirements    []string
	Questions       []domain.Question
	StartDate       time.Time
	EndDate         time.Time
	MaxApplications *int
	Publish         bool
}

// CampaignPatch is a partial campaign update; nil fields are left unchanged.
type CampaignPatch struct {
	Title           *string
	Description     *string
	Requirements    *[]string
	Questions       *[]domain.Question
	StartDate       *time.Time
	EndDate         *time.Time
	MaxApplications *int
	Status          *domain.CampaignStatus
}

// Applicant is the authenticated user submitting an application.
type Applicant struct {
	ID       string
	Identity domain.Identity
}

type SubmissionInput struct {
	Answers []domain.Answer
	Message string
}

// SubmissionPatch replaces answers by question id and optionally the message.
type SubmissionPatch struct {
	Answers []domain.Answer
	Message *string
}

type CampaignService interface {
	Create(ctx context.Context, clubID, actorID string, input CampaignInput) (*domain.Campaign, error)
	Update(ctx context.Context, campaignID, actorID string, patch CampaignPatch) (*domain.Campaign, error)
	Publish(ctx context.Context, campaignID, actorID string) (*domain.Campaign, error)
	Pause(ctx context.Context, campaignID, actorID string) (*domain.Campaign, error)
	Resume(ctx context.Context, campaignID, actorID string) (*domain.Campaign, error)
	Complete(ctx context.Context, campaignID, actorID string) (*domain.Campaign, error)
	Delete(ctx context.Context, campaignID, actorID string) error
	Get(ctx context.Context, campaignID, actorID string) (*domain.Campaign, error)
	ListByClub(ctx context.Context, clubID, actorID string, status domain.CampaignStatus, page, pageSize int32) ([]domain.Campaign, int32, error)
	ListPublished(ctx context.Context, clubID string, page, pageSize int32) ([]domain.Campaign, int32, error)
	// CompleteExpired completes published or paused campaigns whose end
	// date is before now and returns how many were completed.
	CompleteExpired(ctx context.Context, now time.Time) (int, error)
}

type ApplicationService interface {
	Submit(ctx context.Context, campaignID string, applicant Applicant, input SubmissionInput) (*domain.Application, error)
	Update(ctx context.Context, applicationID, applicantID string, patch SubmissionPatch) (*domain.Application, error)
	Withdraw(ctx context.Context, applicationID, applicantID string) (*domain.Application, error)
	Approve(ctx context.Context, applicationID, actorID string, role domain.MemberRole) (*domain.Application, error)
	Reject(ctx context.Context, applicationID, actorID, reason string) (*domain.Application, error)
	RemoveMember(ctx context.Context, clubID, userID, actorID, reason string) (*domain.Application, error)
	// GetMember returns the active membership of userID in clubID. Members
	// can read their own; club managers and organizers can read anyone's.
	GetMember(ctx context.Context, clubID, userID, actorID string) (*domain.Membership, error)
	Get(ctx context.Context, applicationID, actorID string) (*domain.Application, error)
	ListByCampaign(ctx context.Context, campaignID, actorID string, status domain.ApplicationStatus, page, pageSize int32) ([]domain.Application, int32, error)
	ListMine(ctx context.Context, applicantID string) ([]domain.Application, error)
}

// IdentityService applies identity events received from the identity
// service. Both operations are idempotent.
type IdentityService interface {
	ApplyIdentity(ctx context.Context, userID string, identity domain.Identity, at time.Time) error
	RemoveIdentity(ctx context.Context, userID string, at time.Time) error
}

// PermissionGate answers role questions about club members.
type PermissionGate interface {
	HasRole(ctx context.Context, clubID, actorID string, roles ...domain.MemberRole) bool
	Require(ctx context.Context, clubID, actorID string, roles ...domain.MemberRole) error
}

// StatisticsAggregator keeps campaign statistics snapshots in step with
// application records. Recompute never fails the caller.
type StatisticsAggregator interface {
	Recompute(ctx context.Context, campaignID string)
	ReconcileAll(ctx context.Context) (int, error)
}

// EventPublisher emits domain events. Delivery is best effort; failures are
// handled by the implementation and never reach the caller.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, data any)
}

// managerRoles may manage campaigns and review applications.
var managerRoles = []domain.MemberRole{domain.MemberRoleClubManager, domain.MemberRoleOrganizer}
