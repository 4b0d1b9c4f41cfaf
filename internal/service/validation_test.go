package service

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"club-recruitment-service/internal/domain"
)

func questionnaire() *domain.Campaign {
	return &domain.Campaign{
		Questions: []domain.Question{
			{ID: "why", Prompt: "Why?", Type: domain.QuestionTypeTextarea, Required: true, MaxLength: 10},
			{ID: "level", Prompt: "Level", Type: domain.QuestionTypeSelect, Options: []string{"low", "high"}},
			{ID: "days", Prompt: "Days", Type: domain.QuestionTypeCheckbox, Required: true, Options: []string{"mon", "tue"}},
		},
	}
}

func TestValidateAnswers(t *testing.T) {
	tests := []struct {
		name       string
		answers    []domain.Answer
		wantDetail string
	}{
		{
			name: "valid",
			answers: []domain.Answer{
				{QuestionID: "why", Value: "fun"},
				{QuestionID: "level", Value: "high"},
				{QuestionID: "days", Values: []string{"mon", "tue"}},
			},
		},
		{
			name:       "missing required",
			answers:    []domain.Answer{{QuestionID: "why", Value: "fun"}},
			wantDetail: `question "days" is required`,
		},
		{
			name: "empty required",
			answers: []domain.Answer{
				{QuestionID: "why", Value: ""},
				{QuestionID: "days", Values: []string{"mon"}},
			},
			wantDetail: `question "why" is required`,
		},
		{
			name: "too long",
			answers: []domain.Answer{
				{QuestionID: "why", Value: strings.Repeat("é", 11)},
				{QuestionID: "days", Values: []string{"mon"}},
			},
			wantDetail: "at most 10 characters",
		},
		{
			name: "unknown select option",
			answers: []domain.Answer{
				{QuestionID: "why", Value: "fun"},
				{QuestionID: "level", Value: "medium"},
				{QuestionID: "days", Values: []string{"mon"}},
			},
			wantDetail: `"medium" is not an option`,
		},
		{
			name: "unknown checkbox option",
			answers: []domain.Answer{
				{QuestionID: "why", Value: "fun"},
				{QuestionID: "days", Values: []string{"sun"}},
			},
			wantDetail: `"sun" is not an option`,
		},
		{
			name: "unknown question",
			answers: []domain.Answer{
				{QuestionID: "why", Value: "fun"},
				{QuestionID: "days", Values: []string{"mon"}},
				{QuestionID: "ghost", Value: "boo"},
			},
			wantDetail: `unknown question "ghost"`,
		},
		{
			name: "duplicate answer",
			answers: []domain.Answer{
				{QuestionID: "why", Value: "fun"},
				{QuestionID: "why", Value: "more"},
				{QuestionID: "days", Values: []string{"mon"}},
			},
			wantDetail: "duplicate answer",
		},
		{
			name: "list for text",
			answers: []domain.Answer{
				{QuestionID: "why", Values: []string{"a"}},
				{QuestionID: "days", Values: []string{"mon"}},
			},
			wantDetail: "expects a single value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateAnswers(questionnaire(), tt.answers)
			if tt.wantDetail == "" {
				assert.NoError(t, err)
				return
			}
			var de *domain.Error
			require.True(t, errors.As(err, &de))
			assert.Equal(t, domain.ErrorCodeValidation, de.Code)
			assert.Contains(t, strings.Join(de.Details, "; "), tt.wantDetail)
		})
	}
}

func TestValidateCampaign_Limits(t *testing.T) {
	c := storedCampaign(domain.CampaignStatusDraft)
	require.NoError(t, validateCampaign(c))

	c.Title = strings.Repeat("t", maxTitleLength+1)
	c.Description = strings.Repeat("d", maxDescriptionLength+1)
	c.Requirements = []string{strings.Repeat("r", 600), strings.Repeat("r", 401)}
	zero := 0
	c.MaxApplications = &zero
	c.Questions = append(c.Questions, domain.Question{ID: "q1", Prompt: "dup", Type: "essay"})

	err := validateCampaign(c)
	var de *domain.Error
	require.True(t, errors.As(err, &de))
	assert.Len(t, de.Details, 6)
}

func TestMergeAnswers(t *testing.T) {
	current := []domain.Answer{{QuestionID: "a", Value: "1"}, {QuestionID: "b", Value: "2"}}
	merged := mergeAnswers(current, []domain.Answer{{QuestionID: "b", Value: "3"}, {QuestionID: "c", Value: "4"}})

	assert.Equal(t, []domain.Answer{
		{QuestionID: "a", Value: "1"},
		{QuestionID: "b", Value: "3"},
		{QuestionID: "c", Value: "4"},
	}, merged)
	assert.Equal(t, "2", current[1].Value)
}
