package businessflow

import (
	"context"
	"testing"
	"time"

	"github.com/amirphl/pick-intro/app/services"
	"github.com/amirphl/pick-intro/models"
	testingutil "github.com/amirphl/pick-intro/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type readiness bool

func (r readiness) CanRequestIntros() bool { return bool(r) }

func loadedOrchestrator(t *testing.T, matches *services.MockMatchmakingService, ready IntroReadiness) *MatchIntroOrchestrator {
	t.Helper()
	orchestrator := NewMatchIntroOrchestrator(matches, ready, NewMatchBoard(), zerolog.Nop())
	_, err := orchestrator.LoadRecommendations(context.Background(), 0)
	require.NoError(t, err)
	return orchestrator
}

func TestLoadRecommendations(t *testing.T) {
	matches := services.NewMockMatchmakingService(testingutil.SampleMatches(25))
	orchestrator := NewMatchIntroOrchestrator(matches, nil, nil, zerolog.Nop())

	list, err := orchestrator.LoadRecommendations(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, list, 5)

	list, err = orchestrator.LoadRecommendations(context.Background(), 100)
	require.NoError(t, err)
	assert.Len(t, list, 20)
	assert.Len(t, orchestrator.Board().List(), 20)
	assert.False(t, orchestrator.Board().LoadedAt().IsZero())

	matches.FetchErr = &services.ServiceError{Status: 502, Message: "Matching is warming up."}
	_, err = orchestrator.LoadRecommendations(context.Background(), 5)
	be, ok := AsBusinessError(err)
	require.True(t, ok)
	assert.Equal(t, "RECOMMENDATIONS_FAILED", be.Code)
	assert.Len(t, orchestrator.Board().List(), 20)
}

func TestLoadDashboard(t *testing.T) {
	ctx := context.Background()
	matches := services.NewMockMatchmakingService(testingutil.SampleMatches(3))
	orchestrator := NewMatchIntroOrchestrator(matches, readiness(true), NewMatchBoard(), zerolog.Nop())

	list, err := orchestrator.LoadDashboard(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	for _, m := range list {
		require.NotNil(t, m.IntroPreview)
	}
	assert.Equal(t, "PICK-D001", list[0].IntroPreview.MatchCode)

	_, err = orchestrator.RequestIntro(ctx, list[0].UserID, "")
	require.NoError(t, err)
	calls := matches.GetIntroCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "PICK-D001", calls[0].MatchCode)

	matches.FetchErr = &services.ServiceError{Status: 502}
	_, err = orchestrator.LoadDashboard(ctx, 5)
	be, ok := AsBusinessError(err)
	require.True(t, ok)
	assert.Equal(t, "DASHBOARD_FAILED", be.Code)
	assert.ErrorIs(t, err, ErrRecommendationsFailed)
	assert.Len(t, orchestrator.Board().List(), 3)
}

func TestRequestIntro(t *testing.T) {
	ctx := context.Background()

	t.Run("ReplacesPreviewAndReusesCode", func(t *testing.T) {
		matches := services.NewMockMatchmakingService(testingutil.SampleMatches(2))
		orchestrator := loadedOrchestrator(t, matches, readiness(true))

		first, err := orchestrator.RequestIntro(ctx, "user-1", "")
		require.NoError(t, err)
		m, ok := orchestrator.Board().Get("user-1")
		require.True(t, ok)
		require.NotNil(t, m.IntroPreview)
		assert.Equal(t, first.Message, m.IntroPreview.Message)

		second, err := orchestrator.RequestIntro(ctx, "user-1", "")
		require.NoError(t, err)
		assert.Equal(t, first.MatchCode, second.MatchCode)
		assert.NotEqual(t, first.Message, second.Message)

		calls := matches.GetIntroCalls()
		require.Len(t, calls, 2)
		assert.Empty(t, calls[0].MatchCode)
		assert.Equal(t, first.MatchCode, calls[1].MatchCode)

		other, ok := orchestrator.Board().Get("user-2")
		require.True(t, ok)
		assert.Nil(t, other.IntroPreview)
	})

	t.Run("RefreshPreviewSendsNoCode", func(t *testing.T) {
		matches := services.NewMockMatchmakingService(testingutil.SampleMatches(1))
		orchestrator := loadedOrchestrator(t, matches, readiness(true))
		_, err := orchestrator.RequestIntro(ctx, "user-1", "")
		require.NoError(t, err)

		_, err = orchestrator.RefreshPreview(ctx, "user-1")
		require.NoError(t, err)
		assert.Empty(t, matches.GetIntroCalls()[1].MatchCode)
	})

	t.Run("NotReady", func(t *testing.T) {
		matches := services.NewMockMatchmakingService(testingutil.SampleMatches(1))
		orchestrator := loadedOrchestrator(t, matches, readiness(false))

		_, err := orchestrator.RequestIntro(ctx, "user-1", "")
		assert.True(t, IsProfileNotReady(err))
		assert.Empty(t, matches.GetIntroCalls())
	})

	t.Run("RateLimitedLeavesPreview", func(t *testing.T) {
		matches := services.NewMockMatchmakingService(testingutil.SampleMatches(1))
		orchestrator := loadedOrchestrator(t, matches, readiness(true))
		first, err := orchestrator.RequestIntro(ctx, "user-1", "")
		require.NoError(t, err)

		matches.IntroErrs = []error{&services.RateLimitError{RetryAfter: 90 * time.Second, Message: "slow down"}}
		_, err = orchestrator.RequestIntro(ctx, "user-1", "")
		require.Error(t, err)
		assert.True(t, IsIntroRateLimited(err))

		be, ok := AsBusinessError(err)
		require.True(t, ok)
		assert.Equal(t, "INTRO_RATE_LIMITED", be.Code)
		assert.Equal(t, "Try again in 1 minute and 30 seconds.", be.Message)
		assert.Equal(t, map[string]int{"retryAfterSeconds": 90}, be.Details)

		m, _ := orchestrator.Board().Get("user-1")
		assert.Equal(t, first.Message, m.IntroPreview.Message)
	})

	t.Run("OtherFailuresCarryServiceMessage", func(t *testing.T) {
		matches := services.NewMockMatchmakingService(testingutil.SampleMatches(1))
		orchestrator := loadedOrchestrator(t, matches, readiness(true))

		matches.IntroErrs = []error{
			&services.ServiceError{Status: 500, Message: "Message generator unavailable."},
			&services.ServiceError{Status: 404, Message: "gone"},
		}
		_, err := orchestrator.RequestIntro(ctx, "user-1", "")
		be, ok := AsBusinessError(err)
		require.True(t, ok)
		assert.Equal(t, "INTRO_REQUEST_FAILED", be.Code)
		assert.Equal(t, "Message generator unavailable.", be.Message)

		_, err = orchestrator.RequestIntro(ctx, "user-1", "")
		assert.True(t, IsMatchNotFound(err))

		m, _ := orchestrator.Board().Get("user-1")
		assert.Nil(t, m.IntroPreview)
	})
}

func TestOpenIntro(t *testing.T) {
	ctx := context.Background()

	t.Run("DesktopNavigatesPreparedWindow", func(t *testing.T) {
		matches := services.NewMockMatchmakingService(testingutil.SampleMatches(1))
		orchestrator := loadedOrchestrator(t, matches, readiness(true))
		browser := NewRecordingBrowser(testingutil.DesktopUserAgent)
		dispatcher := newDispatcher(browser, NewMemoryDispatchLedger())

		result, err := orchestrator.OpenIntro(ctx, "user-1", dispatcher)
		require.NoError(t, err)
		assert.True(t, result.Dispatched)

		steps := browser.Steps()
		require.Len(t, steps, 2)
		assert.Equal(t, "open_blank", steps[0].Action)
		assert.Equal(t, "navigate", steps[1].Action)
		assert.Contains(t, steps[1].URL, "https://web.whatsapp.com/send?phone=15551234567&text=")
	})

	t.Run("FailureClosesPreparedWindow", func(t *testing.T) {
		matches := services.NewMockMatchmakingService(testingutil.SampleMatches(1))
		matches.IntroErrs = []error{assert.AnError}
		orchestrator := loadedOrchestrator(t, matches, readiness(true))
		browser := NewRecordingBrowser(testingutil.DesktopUserAgent)

		_, err := orchestrator.OpenIntro(ctx, "user-1", newDispatcher(browser, NewMemoryDispatchLedger()))
		assert.ErrorIs(t, err, ErrIntroRequestFailed)
		assert.Equal(t, []NavigationStep{
			{Action: "open_blank", Window: 1},
			{Action: "close", Window: 1},
		}, browser.Steps())
	})
}

func TestHumanizeWait(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "a moment"},
		{1 * time.Second, "1 second"},
		{1500 * time.Millisecond, "2 seconds"},
		{60 * time.Second, "1 minute"},
		{90 * time.Second, "1 minute and 30 seconds"},
		{2*time.Hour + 1*time.Second, "2 hours and 1 second"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1 hour, 2 minutes and 3 seconds"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, HumanizeWait(tt.in))
		})
	}
}

func TestMatchBoardIsolation(t *testing.T) {
	board := NewMatchBoard()
	source := testingutil.SampleMatches(1)
	board.Replace(source)
	source[0].SharedCities[0] = "mutated"

	m, ok := board.Get("user-1")
	require.True(t, ok)
	assert.Equal(t, []string{"lisbon"}, m.SharedCities)
	assert.False(t, board.SetPreview("missing", models.MatchIntroPayload{}))
}
