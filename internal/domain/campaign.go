package domain

import "time"

type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusPublished CampaignStatus = "published"
	CampaignStatusPaused    CampaignStatus = "paused"
	CampaignStatusCompleted CampaignStatus = "completed"
)

// campaignTransitions lists the statuses reachable from each status.
// Deletion is only possible from draft and is not a status.
var campaignTransitions = map[CampaignStatus][]CampaignStatus{
	CampaignStatusDraft:     {CampaignStatusPublished},
	CampaignStatusPublished: {CampaignStatusPaused, CampaignStatusCompleted},
	CampaignStatusPaused:    {CampaignStatusPublished, CampaignStatusCompleted},
	CampaignStatusCompleted: nil,
}

func (s CampaignStatus) Valid() bool {
	_, ok := campaignTransitions[s]
	return ok
}

// CanTransitionTo reports whether the campaign state machine allows s -> next.
func (s CampaignStatus) CanTransitionTo(next CampaignStatus) bool {
	for _, allowed := range campaignTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s CampaignStatus) Terminal() bool {
	return s == CampaignStatusCompleted
}

type QuestionType string

const (
	QuestionTypeText     QuestionType = "text"
	QuestionTypeTextarea QuestionType = "textarea"
	QuestionTypeSelect   QuestionType = "select"
	QuestionTypeCheckbox QuestionType = "checkbox"
)

func (t QuestionType) Valid() bool {
	switch t {
	case QuestionTypeText, QuestionTypeTextarea, QuestionTypeSelect, QuestionTypeCheckbox:
		return true
	}
	return false
}

// HasOptions reports whether answers must be picked from declared options.
func (t QuestionType) HasOptions() bool {
	return t == QuestionTypeSelect || t == QuestionTypeCheckbox
}

type Question struct {
	ID        string       `json:"id"`
	Prompt    string       `json:"question"`
	Type      QuestionType `json:"type"`
	Required  bool         `json:"required"`
	MaxLength int          `json:"max_length,omitempty"`
	Options   []string     `json:"options,omitempty"`
}

func (q Question) HasOption(value string) bool {
	for _, o := range q.Options {
		if o == value {
			return true
		}
	}
	return false
}

// CampaignStatistics is a derived snapshot recomputed from application records.
type CampaignStatistics struct {
	Total       int       `json:"total_applications"`
	Pending     int       `json:"pending_applications"`
	Approved    int       `json:"approved_applications"`
	Rejected    int       `json:"rejected_applications"`
	LastUpdated time.Time `json:"last_updated"`
}

type Campaign struct {
	ID              string             `json:"id"`
	ClubID          string             `json:"club_id"`
	Title           string             `json:"title"`
	Description     string             `json:"description"`
	Requirements    []string           `json:"requirements"`
	Questions       []Question         `json:"application_questions"`
	StartDate       time.Time          `json:"start_date"`
	EndDate         time.Time          `json:"end_date"`
	MaxApplications *int               `json:"max_applications,omitempty"`
	Status          CampaignStatus     `json:"status"`
	Statistics      CampaignStatistics `json:"statistics"`
	CreatedBy       string             `json:"created_by"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// Question returns the question with the given id.
func (c *Campaign) Question(id string) (Question, bool) {
	for _, q := range c.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// DeadlinePassed reports whether applications are closed by date.
func (c *Campaign) DeadlinePassed(now time.Time) bool {
	return now.After(c.EndDate)
}

// CapacityReached reports whether open records already fill the campaign.
func (c *Campaign) CapacityReached(open int) bool {
	return c.MaxApplications != nil && open >= *c.MaxApplications
}
