package businessflow

import (
	"context"
	"strings"
	"testing"

	"github.com/amirphl/pick-intro/app/services"
	"github.com/amirphl/pick-intro/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validFeedback() models.FeedbackSubmission {
	return models.FeedbackSubmission{
		AIMessageQuality: 4,
		Outcome:          models.FeedbackOutcomeChatting,
		MatchCode:        "  PICK-0001 ",
		Comment:          " Nice opener ",
	}
}

func TestFeedbackPromptEligibility(t *testing.T) {
	ctx := context.Background()

	t.Run("IncompleteProfileSkipsBackend", func(t *testing.T) {
		feedback := services.NewMockFeedbackService(models.FeedbackMilestoneDay2)
		prompt := NewFeedbackPrompt(feedback, readiness(false), zerolog.Nop())

		eligibility, err := prompt.CheckEligibility(ctx)
		require.NoError(t, err)
		assert.False(t, eligibility.ShouldPrompt)
		assert.Empty(t, eligibility.MilestoneID)
		assert.Zero(t, feedback.FetchCount())
	})

	t.Run("ReadyProfilePromptsThenDismisses", func(t *testing.T) {
		feedback := services.NewMockFeedbackService(models.FeedbackMilestoneMonth1)
		prompt := NewFeedbackPrompt(feedback, readiness(true), zerolog.Nop())

		eligibility, err := prompt.CheckEligibility(ctx)
		require.NoError(t, err)
		assert.True(t, eligibility.ShouldPrompt)
		assert.Equal(t, models.FeedbackMilestoneMonth1, eligibility.MilestoneID)
		assert.Equal(t, 1, feedback.FetchCount())

		dismissed := prompt.Dismiss()
		assert.False(t, dismissed.ShouldPrompt)
		assert.Equal(t, models.FeedbackMilestoneMonth1, dismissed.MilestoneID)
	})

	t.Run("DismissBeforeCheck", func(t *testing.T) {
		prompt := NewFeedbackPrompt(services.NewMockFeedbackService(models.FeedbackMilestoneDay2), nil, zerolog.Nop())
		assert.Equal(t, models.FeedbackEligibility{}, prompt.Dismiss())
	})

	t.Run("BackendFailure", func(t *testing.T) {
		feedback := services.NewMockFeedbackService(models.FeedbackMilestoneDay2)
		feedback.Err = &services.ServiceError{Status: 503, Message: "Feedback is offline."}
		prompt := NewFeedbackPrompt(feedback, readiness(true), zerolog.Nop())

		_, err := prompt.CheckEligibility(ctx)
		be, ok := AsBusinessError(err)
		require.True(t, ok)
		assert.Equal(t, "FEEDBACK_ELIGIBILITY_FAILED", be.Code)
		assert.Equal(t, "Feedback is offline.", be.Message)
		assert.ErrorIs(t, err, ErrFeedbackEligibilityFailed)
	})
}

func TestFeedbackPromptSubmit(t *testing.T) {
	ctx := context.Background()

	t.Run("InvalidFields", func(t *testing.T) {
		feedback := services.NewMockFeedbackService(models.FeedbackMilestoneDay2)
		prompt := NewFeedbackPrompt(feedback, readiness(true), zerolog.Nop())

		_, err := prompt.Submit(ctx, models.FeedbackSubmission{
			AIMessageQuality: 6,
			Outcome:          "ghosted",
			MatchCode:        strings.Repeat("x", 65),
			Comment:          strings.Repeat("é", 1001),
		})
		be, ok := AsBusinessError(err)
		require.True(t, ok)
		assert.Equal(t, "FEEDBACK_INVALID", be.Code)
		fields, ok := be.Details.(map[string]string)
		require.True(t, ok)
		assert.Contains(t, fields, "aiMessageQuality")
		assert.Contains(t, fields, "outcome")
		assert.Contains(t, fields, "matchCode")
		assert.Contains(t, fields, "comment")
		assert.Zero(t, feedback.FetchCount())
		assert.Empty(t, feedback.GetSubmissions())
	})

	t.Run("ChecksEligibilityLazilyAndClosesPrompt", func(t *testing.T) {
		feedback := services.NewMockFeedbackService(models.FeedbackMilestoneDay2)
		prompt := NewFeedbackPrompt(feedback, readiness(true), zerolog.Nop())

		receipt, err := prompt.Submit(ctx, validFeedback())
		require.NoError(t, err)
		assert.Equal(t, "Thanks for the feedback!", receipt.Message)
		require.NotNil(t, receipt.SubmittedAt)
		assert.Equal(t, 1, feedback.FetchCount())

		submissions := feedback.GetSubmissions()
		require.Len(t, submissions, 1)
		assert.Equal(t, "PICK-0001", submissions[0].MatchCode)
		assert.Equal(t, "Nice opener", submissions[0].Comment)

		eligibility := prompt.Dismiss()
		assert.False(t, eligibility.ShouldPrompt)
		assert.Empty(t, eligibility.MilestoneID)
		assert.Equal(t, receipt.SubmittedAt, eligibility.LastSubmittedAt)

		_, err = prompt.Submit(ctx, validFeedback())
		assert.True(t, IsFeedbackNotEligible(err), "one submission per milestone")
		assert.Len(t, feedback.GetSubmissions(), 1)
	})

	t.Run("NoOpenMilestone", func(t *testing.T) {
		feedback := services.NewMockFeedbackService("")
		prompt := NewFeedbackPrompt(feedback, readiness(true), zerolog.Nop())

		_, err := prompt.Submit(ctx, validFeedback())
		assert.True(t, IsFeedbackNotEligible(err))
		assert.Empty(t, feedback.GetSubmissions())
	})

	t.Run("IncompleteProfileNotEligible", func(t *testing.T) {
		feedback := services.NewMockFeedbackService(models.FeedbackMilestoneDay2)
		prompt := NewFeedbackPrompt(feedback, readiness(false), zerolog.Nop())

		_, err := prompt.Submit(ctx, validFeedback())
		assert.True(t, IsFeedbackNotEligible(err))
		assert.Zero(t, feedback.FetchCount())
	})

	t.Run("BackendFailure", func(t *testing.T) {
		feedback := services.NewMockFeedbackService(models.FeedbackMilestoneDay2)
		prompt := NewFeedbackPrompt(feedback, readiness(true), zerolog.Nop())
		_, err := prompt.CheckEligibility(ctx)
		require.NoError(t, err)

		feedback.Err = &services.ServiceError{Status: 500}
		_, err = prompt.Submit(ctx, validFeedback())
		be, ok := AsBusinessError(err)
		require.True(t, ok)
		assert.Equal(t, "FEEDBACK_SUBMIT_FAILED", be.Code)
		assert.ErrorIs(t, err, ErrFeedbackSubmitFailed)
	})
}
