package service

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"club-recruitment-service/internal/domain"
)

const (
	maxTitleLength        = 200
	maxDescriptionLength  = 2000
	maxRequirementsLength = 1000
	maxMessageLength      = 1000
	maxReasonLength       = 500
)

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

// assignQuestionIDs fills in missing question ids as q<index>_<unix-millis>.
func assignQuestionIDs(questions []domain.Question, now time.Time) {
	for i := range questions {
		if strings.TrimSpace(questions[i].ID) == "" {
			questions[i].ID = fmt.Sprintf("q%d_%d", i, now.UnixMilli())
		}
	}
}

// validateCampaign checks the campaign fields and question schema and
// reports every problem at once.
func validateCampaign(c *domain.Campaign) error {
	var details []string

	title := strings.TrimSpace(c.Title)
	if title == "" {
		details = append(details, "title is required")
	} else if runeLen(title) > maxTitleLength {
		details = append(details, fmt.Sprintf("title must be at most %d characters", maxTitleLength))
	}
	if runeLen(c.Description) > maxDescriptionLength {
		details = append(details, fmt.Sprintf("description must be at most %d characters", maxDescriptionLength))
	}
	total := 0
	for _, r := range c.Requirements {
		total += runeLen(r)
	}
	if total > maxRequirementsLength {
		details = append(details, fmt.Sprintf("requirements must be at most %d characters in total", maxRequirementsLength))
	}
	if c.StartDate.IsZero() || c.EndDate.IsZero() {
		details = append(details, "start date and end date are required")
	} else if !c.EndDate.After(c.StartDate) {
		details = append(details, "end date must be after start date")
	}
	if c.MaxApplications != nil && *c.MaxApplications < 1 {
		details = append(details, "max applications must be at least 1")
	}

	seen := make(map[string]bool, len(c.Questions))
	for i, q := range c.Questions {
		label := fmt.Sprintf("question %d", i+1)
		if seen[q.ID] {
			details = append(details, fmt.Sprintf("%s: duplicate id %q", label, q.ID))
		}
		seen[q.ID] = true
		if strings.TrimSpace(q.Prompt) == "" {
			details = append(details, label+": question text is required")
		}
		if !q.Type.Valid() {
			details = append(details, fmt.Sprintf("%s: invalid type %q", label, q.Type))
			continue
		}
		if q.Type.HasOptions() && len(q.Options) == 0 {
			details = append(details, fmt.Sprintf("%s: %s questions need at least one option", label, q.Type))
		}
		if q.MaxLength < 0 {
			details = append(details, label+": max length must be at least 1")
		}
	}

	if len(details) > 0 {
		return domain.NewValidationError("invalid campaign", details...)
	}
	return nil
}

// validateAnswers checks answers against the campaign's question schema.
func validateAnswers(c *domain.Campaign, answers []domain.Answer) error {
	var details []string
	given := make(map[string]bool, len(answers))

	for _, a := range answers {
		if given[a.QuestionID] {
			details = append(details, fmt.Sprintf("duplicate answer for question %q", a.QuestionID))
			continue
		}
		given[a.QuestionID] = true

		q, ok := c.Question(a.QuestionID)
		if !ok {
			details = append(details, fmt.Sprintf("unknown question %q", a.QuestionID))
			continue
		}
		if a.Empty() {
			continue
		}
		details = append(details, checkAnswer(q, a)...)
	}

	for _, q := range c.Questions {
		if !q.Required {
			continue
		}
		a, ok := findAnswer(answers, q.ID)
		if !ok || a.Empty() {
			details = append(details, fmt.Sprintf("question %q is required", q.ID))
		}
	}

	if len(details) > 0 {
		return domain.NewValidationError("invalid answers", details...)
	}
	return nil
}

func checkAnswer(q domain.Question, a domain.Answer) []string {
	var details []string
	switch q.Type {
	case domain.QuestionTypeText, domain.QuestionTypeTextarea:
		if len(a.Values) > 0 {
			details = append(details, fmt.Sprintf("question %q expects a single value", q.ID))
		}
		if q.MaxLength > 0 && runeLen(a.Value) > q.MaxLength {
			details = append(details, fmt.Sprintf("answer to %q must be at most %d characters", q.ID, q.MaxLength))
		}
	case domain.QuestionTypeSelect:
		if len(a.Values) > 0 {
			details = append(details, fmt.Sprintf("question %q expects a single option", q.ID))
		} else if !q.HasOption(a.Value) {
			details = append(details, fmt.Sprintf("%q is not an option of question %q", a.Value, q.ID))
		}
	case domain.QuestionTypeCheckbox:
		if a.Value != "" {
			details = append(details, fmt.Sprintf("question %q expects a list of options", q.ID))
		}
		picked := make(map[string]bool, len(a.Values))
		for _, v := range a.Values {
			if !q.HasOption(v) {
				details = append(details, fmt.Sprintf("%q is not an option of question %q", v, q.ID))
			}
			if picked[v] {
				details = append(details, fmt.Sprintf("option %q selected twice for question %q", v, q.ID))
			}
			picked[v] = true
		}
	}
	return details
}

func findAnswer(answers []domain.Answer, questionID string) (domain.Answer, bool) {
	for _, a := range answers {
		if a.QuestionID == questionID {
			return a, true
		}
	}
	return domain.Answer{}, false
}

// mergeAnswers replaces answers by question id and appends new ones.
func mergeAnswers(current, patch []domain.Answer) []domain.Answer {
	merged := make([]domain.Answer, len(current))
	copy(merged, current)
	for _, p := range patch {
		replaced := false
		for i := range merged {
			if merged[i].QuestionID == p.QuestionID {
				merged[i] = p
				replaced = true
				break
			}
		}
		if !replaced {
			merged = append(merged, p)
		}
	}
	return merged
}

func validateMessage(message string) error {
	if runeLen(message) > maxMessageLength {
		return domain.NewValidationError(fmt.Sprintf("message must be at most %d characters", maxMessageLength))
	}
	return nil
}
