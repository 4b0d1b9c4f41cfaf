package domain

import (
	"encoding/json"
	"time"
)

// Event types published by this service.
const (
	EventCampaignCreated       = "campaign.created"
	EventCampaignPublished     = "campaign.published"
	EventCampaignUpdated       = "campaign.updated"
	EventCampaignStatusChanged = "campaign.status.changed"
	EventCampaignDeleted       = "campaign.deleted"

	EventApplicationSubmitted = "application.submitted"
	EventApplicationUpdated   = "application.updated"
	EventApplicationWithdrawn = "application.withdrawn"
	EventApplicationApproved  = "application.approved"
	EventApplicationRejected  = "application.rejected"

	EventClubMemberAdded   = "club.member.added"
	EventClubMemberRemoved = "club.member.removed"
)

// Event types consumed from the identity service.
const (
	EventIdentityCreated = "identity.created"
	EventIdentityUpdated = "identity.updated"
	EventIdentityDeleted = "identity.deleted"
)

type EventMetadata struct {
	Version     string `json:"version"`
	Environment string `json:"environment"`
}

// Event is the wire envelope for every message on the broker.
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlationId"`
	Data          json.RawMessage `json:"data"`
	Metadata      EventMetadata   `json:"metadata"`
}

// IdentityEventData is the payload of identity.* events.
type IdentityEventData struct {
	UserID            string `json:"userId"`
	Email             string `json:"email"`
	FullName          string `json:"fullName"`
	ProfilePictureURL string `json:"profilePictureUrl"`
}

func (d IdentityEventData) Identity() Identity {
	return Identity{
		Email:      d.Email,
		FullName:   d.FullName,
		PictureURL: d.ProfilePictureURL,
	}
}

// CampaignEventData is the payload of campaign.* events.
type CampaignEventData struct {
	CampaignID     string         `json:"campaignId"`
	ClubID         string         `json:"clubId"`
	Title          string         `json:"title"`
	Status         CampaignStatus `json:"status"`
	PreviousStatus CampaignStatus `json:"previousStatus,omitempty"`
	StartDate      *time.Time     `json:"startDate,omitempty"`
	EndDate        *time.Time     `json:"endDate,omitempty"`
	ActorID        string         `json:"actorId,omitempty"`
	Changes        []string       `json:"changes,omitempty"`
}

// ApplicationEventData is the payload of application.* events.
type ApplicationEventData struct {
	ApplicationID string            `json:"applicationId"`
	CampaignID    string            `json:"campaignId,omitempty"`
	ClubID        string            `json:"clubId"`
	ApplicantID   string            `json:"applicantId"`
	Status        ApplicationStatus `json:"status"`
	Role          MemberRole        `json:"role,omitempty"`
	ReviewerID    string            `json:"reviewerId,omitempty"`
	Reason        string            `json:"reason,omitempty"`
}

// MemberEventData is the payload of club.member.* events.
type MemberEventData struct {
	ClubID        string     `json:"clubId"`
	UserID        string     `json:"userId"`
	ApplicationID string     `json:"applicationId"`
	Role          MemberRole `json:"role"`
	ActorID       string     `json:"actorId,omitempty"`
	Reason        string     `json:"reason,omitempty"`
}

// NewCampaignEventData builds the common campaign payload.
func NewCampaignEventData(c *Campaign, actorID string) CampaignEventData {
	return CampaignEventData{
		CampaignID: c.ID,
		ClubID:     c.ClubID,
		Title:      c.Title,
		Status:     c.Status,
		ActorID:    actorID,
	}
}

// NewApplicationEventData builds the common application payload.
func NewApplicationEventData(a *Application) ApplicationEventData {
	d := ApplicationEventData{
		ApplicationID: a.ID,
		ClubID:        a.ClubID,
		ApplicantID:   a.ApplicantID,
		Status:        a.Status,
		Role:          a.Role,
		Reason:        a.StatusReason,
	}
	if a.CampaignID != nil {
		d.CampaignID = *a.CampaignID
	}
	if a.ApproverID != nil {
		d.ReviewerID = *a.ApproverID
	}
	return d
}
