package repository

import (
	"context"
	"time"

	"club-recruitment-service/internal/domain"
)

// CampaignRepository persists recruitment campaigns. Lookups of unknown ids
// return a domain NotFound error.
type CampaignRepository interface {
	Create(ctx context.Context, c *domain.Campaign) error
	GetByID(ctx context.Context, id string) (*domain.Campaign, error)
	Update(ctx context.Context, c *domain.Campaign) error
	// UpdateStatus moves a campaign from one status to another. It fails with
	// Conflict when the stored status is no longer `from`.
	UpdateStatus(ctx context.Context, id string, from, to domain.CampaignStatus) (*domain.Campaign, error)
	// Delete hard-deletes a draft campaign.
	Delete(ctx context.Context, id string) error
	ListByClub(ctx context.Context, clubID string, status domain.CampaignStatus, page, pageSize int32) ([]domain.Campaign, int32, error)
	ListPublished(ctx context.Context, clubID string, page, pageSize int32) ([]domain.Campaign, int32, error)
	ListExpired(ctx context.Context, now time.Time) ([]domain.Campaign, error)
	ListIDsByStatus(ctx context.Context, statuses ...domain.CampaignStatus) ([]string, error)
	UpdateStatistics(ctx context.Context, id string, stats domain.CampaignStatistics) error
}

// ApplicationRepository is the membership store: applications and the
// memberships they become once approved.
type ApplicationRepository interface {
	// Create inserts a pending application. When maxApplications is set the
	// open (pending+active) count of the campaign is checked in the same
	// transaction. Duplicate open records and a full campaign both surface
	// as Conflict.
	Create(ctx context.Context, app *domain.Application, maxApplications *int) error
	GetByID(ctx context.Context, id string) (*domain.Application, error)
	// FindOpen returns the pending or active record of a user in a club.
	FindOpen(ctx context.Context, clubID, userID string) (*domain.Application, error)
	// UpdateSubmission rewrites answers and message of a pending application.
	UpdateSubmission(ctx context.Context, app *domain.Application) error
	// Transition applies a status change, guarded on the stored status being
	// `from`. A lost race surfaces as Conflict.
	Transition(ctx context.Context, app *domain.Application, from domain.ApplicationStatus) error
	// Approve activates a pending application, re-checking that the active
	// count of its campaign stays below maxApplications.
	Approve(ctx context.Context, app *domain.Application, maxApplications *int) error
	CountByCampaign(ctx context.Context, campaignID string) (domain.CampaignStatistics, error)
	ListByCampaign(ctx context.Context, campaignID string, status domain.ApplicationStatus, page, pageSize int32) ([]domain.Application, int32, error)
	ListByApplicant(ctx context.Context, userID string) ([]domain.Application, error)
	HasRole(ctx context.Context, clubID, userID string, roles []domain.MemberRole) (bool, error)
	// ApplyIdentity refreshes cached identity fields on every record of the
	// user whose identity version is older than version.
	ApplyIdentity(ctx context.Context, userID string, identity domain.Identity, version int64) (int64, error)
	// RemoveByIdentity removes every open record of the user, advances the
	// identity version and returns the campaigns whose records changed.
	RemoveByIdentity(ctx context.Context, userID, reason string, version int64, at time.Time) ([]string, error)
}

// ClubRepository answers existence questions about clubs owned by the club
// registry.
type ClubRepository interface {
	Exists(ctx context.Context, clubID string) (bool, error)
}
