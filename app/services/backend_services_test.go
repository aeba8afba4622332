package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/amirphl/pick-intro/app/services"
	"github.com/amirphl/pick-intro/config"
	"github.com/amirphl/pick-intro/models"
	testingutil "github.com/amirphl/pick-intro/testing"
	"github.com/amirphl/pick-intro/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBackend(t *testing.T) (*testingutil.FakeBackend, *services.BackendClient) {
	t.Helper()
	fb := testingutil.NewFakeBackend()
	t.Cleanup(fb.Close)
	client := services.NewBackendClient(&config.BackendConfig{APIURL: fb.URL() + "/", Timeout: 5 * time.Second})
	return fb, client
}

func callerContext() context.Context {
	ctx := services.WithAccessToken(context.Background(), "token-abc")
	ctx = services.WithUserID(ctx, "user-1")
	return context.WithValue(ctx, utils.RequestIDKey, "req-42")
}

func TestProfileService(t *testing.T) {
	fb, client := newBackend(t)
	profiles := services.NewProfileService(client)
	ctx := callerContext()

	t.Run("MissingProfileIsNil", func(t *testing.T) {
		stored, err := profiles.LoadProfile(ctx)
		require.NoError(t, err)
		assert.Nil(t, stored)
	})

	t.Run("SaveForwardsCallerAndTrimmedPayload", func(t *testing.T) {
		draft := testingutil.ValidDraft()
		draft.DisplayName = "  " + draft.DisplayName + "  "
		draft.Photo = &models.ProfilePhoto{DataURL: "data:image/jpeg;base64,AAAA", FileName: "me.jpg"}

		saved, err := profiles.SaveProfile(ctx, draft)
		require.NoError(t, err)
		require.NotNil(t, saved.UpdatedAt)
		assert.Contains(t, saved.PhotoURL, "https://cdn.pick.test/photos/")

		requests := fb.RequestsTo("PUT /profiles")
		require.Len(t, requests, 1)
		assert.Equal(t, "Bearer token-abc", requests[0].Authorization)
		assert.Equal(t, "user-1", requests[0].UserID)
		assert.Equal(t, "req-42", requests[0].RequestID)

		var payload services.ProfilePayload
		require.NoError(t, json.Unmarshal(requests[0].Body, &payload))
		assert.Equal(t, testingutil.ValidDisplayName, payload.Profile.DisplayName)
		assert.Equal(t, "data:image/jpeg;base64,AAAA", payload.Profile.PhotoDataURL)
		assert.Equal(t, []string{"lisbon"}, payload.Cities)
		assert.Empty(t, payload.Profile.LinkedInURL)
	})

	t.Run("LoadAfterSave", func(t *testing.T) {
		stored, err := profiles.LoadProfile(ctx)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, testingutil.ValidDisplayName, stored.DisplayName)
		require.NotNil(t, stored.WhatsAppNumber)
		assert.Equal(t, testingutil.ValidWhatsApp, *stored.WhatsAppNumber)
	})

	t.Run("ServerMessageIsSurfaced", func(t *testing.T) {
		fb.Fail("PUT /profiles", http.StatusUnprocessableEntity, "Bio looks like spam.")
		_, err := profiles.SaveProfile(ctx, testingutil.ValidDraft())
		require.Error(t, err)

		var se *services.ServiceError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, http.StatusUnprocessableEntity, se.Status)
		assert.Equal(t, "Bio looks like spam.", services.ServiceMessage(err))
	})
}

func TestBackendNotConfigured(t *testing.T) {
	client := services.NewBackendClient(&config.BackendConfig{Timeout: time.Second})
	_, err := services.NewProfileService(client).LoadProfile(context.Background())
	assert.ErrorIs(t, err, services.ErrBackendNotConfigured)
	assert.Empty(t, services.ServiceMessage(err))
}

func TestInterestService(t *testing.T) {
	fb, client := newBackend(t)
	fb.SetCatalog(services.StarterInterests)
	interests := services.NewInterestService(client)
	ctx := callerContext()

	all, err := interests.SearchInterests(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, len(services.StarterInterests))

	found, err := interests.SearchInterests(ctx, "coffee")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "coffee_culture", found[0].ID)
	assert.Equal(t, "coffee", fb.RequestsTo("GET /interests/search")[1].Query.Get("q"))

	none, err := interests.SearchInterests(ctx, "underwater chess")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	created, err := interests.ResolveInterest(ctx, "Jazz Nights")
	require.NoError(t, err)
	assert.True(t, created.Created)
	assert.Equal(t, "jazz_nights", created.InterestID)
}

func TestMatchmakingService(t *testing.T) {
	fb, client := newBackend(t)
	fb.SetMatches(testingutil.SampleMatches(30))
	matches := services.NewMatchmakingService(client)
	ctx := callerContext()

	list, err := matches.FetchRecommendations(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, list, utils.DefaultMatchLimit)

	list, err = matches.FetchDashboard(ctx, 50)
	require.NoError(t, err)
	assert.Len(t, list, utils.MaxMatchLimit)
	assert.Equal(t, "20", fb.RequestsTo("GET /matches/dashboard")[0].Query.Get("limit"))
	for _, m := range list {
		require.NotNil(t, m.IntroPreview)
	}
	assert.Equal(t, "PICK-D001", list[0].IntroPreview.MatchCode)

	intro, err := matches.RequestIntro(ctx, "user-1", "")
	require.NoError(t, err)
	assert.Equal(t, "PICK-0001", intro.MatchCode)

	again, err := matches.RequestIntro(ctx, "user-1", intro.MatchCode)
	require.NoError(t, err)
	assert.Equal(t, intro.MatchCode, again.MatchCode)
	assert.NotEqual(t, intro.Message, again.Message)

	t.Run("RateLimitCarriesRetryAfter", func(t *testing.T) {
		fb.SetIntroRetryAfter("90")
		defer fb.SetIntroRetryAfter("")

		_, err := matches.RequestIntro(ctx, "user-1", "")
		rl, ok := services.AsRateLimit(err)
		require.True(t, ok)
		assert.Equal(t, 90*time.Second, rl.RetryAfter)
		assert.Equal(t, "Too many intro requests.", rl.Message)
	})

	t.Run("NotFoundUnwraps", func(t *testing.T) {
		fb.Fail("POST /matches/intro", http.StatusNotFound, "No such match.")
		_, err := matches.RequestIntro(ctx, "ghost", "")
		assert.ErrorIs(t, err, services.ErrNotFound)
	})
}

func TestReportService(t *testing.T) {
	fb, client := newBackend(t)
	receipt, err := services.NewReportService(client).ReportUser(callerContext(), models.UserReport{ReportedUserID: "user-9", Reason: "spam"})
	require.NoError(t, err)
	assert.NotNil(t, receipt.ReportedAt)

	var sent models.UserReport
	require.NoError(t, json.Unmarshal(fb.RequestsTo("POST /reports")[0].Body, &sent))
	assert.Equal(t, "user-9", sent.ReportedUserID)
}

func TestFeedbackService(t *testing.T) {
	fb, client := newBackend(t)
	feedback := services.NewFeedbackService(client)
	ctx := callerContext()

	fb.SetFeedbackEligibility(models.FeedbackEligibility{ShouldPrompt: true, MilestoneID: models.FeedbackMilestoneMonth6})
	eligibility, err := feedback.FetchEligibility(ctx)
	require.NoError(t, err)
	assert.True(t, eligibility.ShouldPrompt)
	assert.Equal(t, models.FeedbackMilestoneMonth6, eligibility.MilestoneID)

	receipt, err := feedback.SubmitFeedback(ctx, models.FeedbackSubmission{AIMessageQuality: 4, Outcome: models.FeedbackOutcomePlanningToMeet, MatchCode: "PICK-0003"})
	require.NoError(t, err)
	assert.Equal(t, "Feedback saved.", receipt.Message)
	assert.NotNil(t, receipt.SubmittedAt)

	requests := fb.RequestsTo("POST /feedback/submit")
	require.Len(t, requests, 1)
	assert.Equal(t, "Bearer token-abc", requests[0].Authorization)
	var sent models.FeedbackSubmission
	require.NoError(t, json.Unmarshal(requests[0].Body, &sent))
	assert.Equal(t, models.FeedbackOutcomePlanningToMeet, sent.Outcome)
	assert.Equal(t, "PICK-0003", sent.MatchCode)

	eligibility, err = feedback.FetchEligibility(ctx)
	require.NoError(t, err)
	assert.False(t, eligibility.ShouldPrompt)
	assert.NotNil(t, eligibility.LastSubmittedAt)

	t.Run("ServerMessageIsSurfaced", func(t *testing.T) {
		fb.Fail("GET /feedback/eligibility", http.StatusServiceUnavailable, "Feedback is paused.")
		_, err := feedback.FetchEligibility(ctx)
		assert.Equal(t, "Feedback is paused.", services.ServiceMessage(err))
	})
}
