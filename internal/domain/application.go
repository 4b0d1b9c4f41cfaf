package domain

import "time"

type ApplicationStatus string

const (
	ApplicationStatusPending  ApplicationStatus = "pending"
	ApplicationStatusActive   ApplicationStatus = "active"
	ApplicationStatusRejected ApplicationStatus = "rejected"
	ApplicationStatusRemoved  ApplicationStatus = "removed"
)

var applicationTransitions = map[ApplicationStatus][]ApplicationStatus{
	ApplicationStatusPending:  {ApplicationStatusActive, ApplicationStatusRejected, ApplicationStatusRemoved},
	ApplicationStatusActive:   {ApplicationStatusRemoved},
	ApplicationStatusRejected: nil,
	ApplicationStatusRemoved:  nil,
}

func (s ApplicationStatus) Valid() bool {
	_, ok := applicationTransitions[s]
	return ok
}

func (s ApplicationStatus) CanTransitionTo(next ApplicationStatus) bool {
	for _, allowed := range applicationTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Open reports whether the record still occupies the (club, applicant) slot.
func (s ApplicationStatus) Open() bool {
	return s == ApplicationStatusPending || s == ApplicationStatusActive
}

func (s ApplicationStatus) Terminal() bool {
	return s == ApplicationStatusRejected || s == ApplicationStatusRemoved
}

type MemberRole string

const (
	MemberRoleMember      MemberRole = "member"
	MemberRoleOrganizer   MemberRole = "organizer"
	MemberRoleClubManager MemberRole = "club_manager"
)

func (r MemberRole) Valid() bool {
	switch r {
	case MemberRoleMember, MemberRoleOrganizer, MemberRoleClubManager:
		return true
	}
	return false
}

// Reasons recorded on records removed without a manager decision.
const (
	ReasonWithdrawnByApplicant = "withdrawn by applicant"
	ReasonIdentityDeleted      = "identity deleted"
)

// Identity is the applicant identity cached from the identity service.
type Identity struct {
	Email      string `json:"email"`
	FullName   string `json:"full_name"`
	PictureURL string `json:"picture_url,omitempty"`
}

// Answer holds the response to one campaign question. Text, textarea and
// select answers use Value; checkbox answers use Values.
type Answer struct {
	QuestionID string   `json:"question_id"`
	Value      string   `json:"value,omitempty"`
	Values     []string `json:"values,omitempty"`
}

func (a Answer) Empty() bool {
	return a.Value == "" && len(a.Values) == 0
}

// Application is a user's submission to join a club, tracked through the
// approval workflow. Once approved it backs the user's Membership.
type Application struct {
	ID              string            `json:"id"`
	ClubID          string            `json:"club_id"`
	CampaignID      *string           `json:"campaign_id,omitempty"`
	ApplicantID     string            `json:"user_id"`
	Applicant       Identity          `json:"applicant"`
	IdentityVersion int64             `json:"-"`
	Answers         []Answer          `json:"answers"`
	Message         string            `json:"message,omitempty"`
	Role            MemberRole        `json:"role,omitempty"`
	Status          ApplicationStatus `json:"status"`
	ApproverID      *string           `json:"approver_id,omitempty"`
	ApprovedAt      *time.Time        `json:"approved_at,omitempty"`
	StatusReason    string            `json:"status_reason,omitempty"`
	SubmittedAt     time.Time         `json:"submitted_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// Membership is the role/status relationship of a user to a club, produced
// by approving an Application and linked to it by ApplicationID.
type Membership struct {
	ApplicationID string            `json:"application_id"`
	ClubID        string            `json:"club_id"`
	UserID        string            `json:"user_id"`
	Identity      Identity          `json:"identity"`
	Role          MemberRole        `json:"role"`
	Status        ApplicationStatus `json:"status"`
	ApprovedBy    string            `json:"approved_by,omitempty"`
	JoinedAt      time.Time         `json:"joined_at"`
	RemovalReason string            `json:"removal_reason,omitempty"`
}

// Membership returns the membership backed by this application. It is only
// present once the application has been approved.
func (a *Application) Membership() (*Membership, bool) {
	if a.ApprovedAt == nil {
		return nil, false
	}
	m := &Membership{
		ApplicationID: a.ID,
		ClubID:        a.ClubID,
		UserID:        a.ApplicantID,
		Identity:      a.Applicant,
		Role:          a.Role,
		Status:        a.Status,
		JoinedAt:      *a.ApprovedAt,
	}
	if a.ApproverID != nil {
		m.ApprovedBy = *a.ApproverID
	}
	if a.Status == ApplicationStatusRemoved {
		m.RemovalReason = a.StatusReason
	}
	return m, true
}

// Answer returns the answer for the given question.
func (a *Application) Answer(questionID string) (Answer, bool) {
	for _, ans := range a.Answers {
		if ans.QuestionID == questionID {
			return ans, true
		}
	}
	return Answer{}, false
}
