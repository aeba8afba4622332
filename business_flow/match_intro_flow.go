package businessflow

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/amirphl/pick-intro/app/services"
	"github.com/amirphl/pick-intro/models"
	"github.com/rs/zerolog"
)

const (
	msgProfileNotReady        = "Complete and save your profile before requesting intros."
	msgIntroFailed            = "We couldn't create the message."
	msgRecommendationsFailed  = "We couldn't load your matches."
	msgDashboardFailed        = "We couldn't prepare your match dashboard."
	msgMatchNotFound          = "That match is no longer available."
	msgRateLimitedWithoutHint = "You've requested a lot of intros. Please wait a moment and try again."
)

// IntroReadiness gates intro requests on the caller's profile state
type IntroReadiness interface {
	CanRequestIntros() bool
}

// MatchBoard is the in-memory list of recommended matches for one user
type MatchBoard struct {
	mu       sync.RWMutex
	matches  []models.MatchRecommendation
	loadedAt time.Time
}

// NewMatchBoard creates an empty board
func NewMatchBoard() *MatchBoard {
	return &MatchBoard{}
}

// Replace swaps the whole list
func (b *MatchBoard) Replace(matches []models.MatchRecommendation) {
	cloned := make([]models.MatchRecommendation, 0, len(matches))
	for _, m := range matches {
		cloned = append(cloned, m.Clone())
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.matches = cloned
	b.loadedAt = time.Now()
}

// List returns a copy of the current matches
func (b *MatchBoard) List() []models.MatchRecommendation {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]models.MatchRecommendation, 0, len(b.matches))
	for _, m := range b.matches {
		out = append(out, m.Clone())
	}
	return out
}

// Get returns a copy of the match with userID
func (b *MatchBoard) Get(userID string) (models.MatchRecommendation, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, m := range b.matches {
		if m.UserID == userID {
			return m.Clone(), true
		}
	}
	return models.MatchRecommendation{}, false
}

// SetPreview replaces the intro preview of userID and reports whether the match exists
func (b *MatchBoard) SetPreview(userID string, preview models.MatchIntroPayload) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.matches {
		if b.matches[i].UserID == userID {
			p := preview.Clone()
			b.matches[i].IntroPreview = &p
			return true
		}
	}
	return false
}

// LoadedAt returns when the list was last replaced
func (b *MatchBoard) LoadedAt() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.loadedAt
}

// IntroOpenResult is the outcome of OpenIntro
type IntroOpenResult struct {
	Payload    models.MatchIntroPayload `json:"payload"`
	Dispatched bool                     `json:"dispatched"`
}

// MatchIntroOrchestrator requests intros for matches on a board and keeps previews current
type MatchIntroOrchestrator struct {
	matches   services.MatchmakingService
	readiness IntroReadiness
	board     *MatchBoard
	logger    zerolog.Logger
}

// NewMatchIntroOrchestrator creates an orchestrator. A nil readiness disables the profile gate.
func NewMatchIntroOrchestrator(matches services.MatchmakingService, readiness IntroReadiness, board *MatchBoard, logger zerolog.Logger) *MatchIntroOrchestrator {
	if board == nil {
		board = NewMatchBoard()
	}
	return &MatchIntroOrchestrator{
		matches:   matches,
		readiness: readiness,
		board:     board,
		logger:    logger.With().Str("component", "match_intro").Logger(),
	}
}

// Board returns the orchestrator's match board
func (o *MatchIntroOrchestrator) Board() *MatchBoard {
	return o.board
}

// LoadRecommendations fetches up to limit matches (clamped to 1..20) and replaces the board
func (o *MatchIntroOrchestrator) LoadRecommendations(ctx context.Context, limit int) ([]models.MatchRecommendation, error) {
	limit = services.ClampMatchLimit(limit)
	matches, err := o.matches.FetchRecommendations(ctx, limit)
	if err != nil {
		o.logger.Warn().Err(err).Int("limit", limit).Msg("recommendations fetch failed")
		return nil, NewBusinessError("RECOMMENDATIONS_FAILED", messageOr(err, msgRecommendationsFailed), fmt.Errorf("%w: %w", ErrRecommendationsFailed, err))
	}
	o.board.Replace(matches)
	return o.board.List(), nil
}

// LoadDashboard fetches the match dashboard, whose entries arrive with intro previews
// already attached, and replaces the board. Later intro requests reuse those codes.
func (o *MatchIntroOrchestrator) LoadDashboard(ctx context.Context, limit int) ([]models.MatchRecommendation, error) {
	limit = services.ClampMatchLimit(limit)
	matches, err := o.matches.FetchDashboard(ctx, limit)
	if err != nil {
		o.logger.Warn().Err(err).Int("limit", limit).Msg("dashboard fetch failed")
		return nil, NewBusinessError("DASHBOARD_FAILED", messageOr(err, msgDashboardFailed), fmt.Errorf("%w: %w", ErrRecommendationsFailed, err))
	}
	o.board.Replace(matches)
	return o.board.List(), nil
}

// RequestIntro asks for a fresh intro. With an empty priorMatchCode the match's current
// preview code is sent. On success the preview is replaced; on failure nothing changes.
func (o *MatchIntroOrchestrator) RequestIntro(ctx context.Context, matchID, priorMatchCode string) (*models.MatchIntroPayload, error) {
	code := strings.TrimSpace(priorMatchCode)
	if code == "" {
		if m, ok := o.board.Get(matchID); ok && m.IntroPreview != nil {
			code = m.IntroPreview.MatchCode
		}
	}
	return o.requestIntro(ctx, matchID, code)
}

// RefreshPreview asks for a new intro without reusing any match code
func (o *MatchIntroOrchestrator) RefreshPreview(ctx context.Context, matchID string) (*models.MatchIntroPayload, error) {
	return o.requestIntro(ctx, matchID, "")
}

// OpenIntro runs the full hand-off: the window is prepared before the network call,
// closed if the call fails, and used for the dispatch when it succeeds.
func (o *MatchIntroOrchestrator) OpenIntro(ctx context.Context, matchID string, dispatcher *WhatsAppDispatcher) (*IntroOpenResult, error) {
	return o.OpenIntroWithCode(ctx, matchID, "", dispatcher)
}

// OpenIntroWithCode is OpenIntro with an explicit prior match code
func (o *MatchIntroOrchestrator) OpenIntroWithCode(ctx context.Context, matchID, priorMatchCode string, dispatcher *WhatsAppDispatcher) (*IntroOpenResult, error) {
	handle := dispatcher.PrepareOpen()
	payload, err := o.RequestIntro(ctx, matchID, priorMatchCode)
	if err != nil {
		handle.Close()
		return nil, err
	}
	dispatched := dispatcher.Dispatch(ctx, payload.DeepLinkURL, handle)
	return &IntroOpenResult{Payload: *payload, Dispatched: dispatched}, nil
}

func (o *MatchIntroOrchestrator) requestIntro(ctx context.Context, matchID, code string) (*models.MatchIntroPayload, error) {
	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return nil, NewBusinessError("MATCH_NOT_FOUND", msgMatchNotFound, ErrMatchNotFound)
	}
	if o.readiness != nil && !o.readiness.CanRequestIntros() {
		introRequests.WithLabelValues("not_ready").Inc()
		return nil, NewBusinessError("PROFILE_NOT_READY", msgProfileNotReady, ErrProfileNotReady)
	}

	payload, err := o.matches.RequestIntro(ctx, matchID, code)
	if err != nil {
		return nil, o.introError(matchID, err)
	}

	o.board.SetPreview(matchID, *payload)
	introRequests.WithLabelValues("ok").Inc()
	o.logger.Debug().Str("match_id", matchID).Str("match_code", payload.MatchCode).Msg("intro generated")
	return payload, nil
}

func (o *MatchIntroOrchestrator) introError(matchID string, err error) error {
	if rl, ok := services.AsRateLimit(err); ok {
		introRequests.WithLabelValues("rate_limited").Inc()
		message := msgRateLimitedWithoutHint
		if rl.RetryAfter > 0 {
			message = fmt.Sprintf("Try again in %s.", HumanizeWait(rl.RetryAfter))
		}
		return NewBusinessError("INTRO_RATE_LIMITED", message, fmt.Errorf("%w: %w", ErrIntroRateLimited, err)).
			WithDetails(map[string]int{"retryAfterSeconds": int(math.Ceil(rl.RetryAfter.Seconds()))})
	}
	if errors.Is(err, services.ErrNotFound) {
		introRequests.WithLabelValues("failed").Inc()
		return NewBusinessError("MATCH_NOT_FOUND", msgMatchNotFound, fmt.Errorf("%w: %w", ErrMatchNotFound, err))
	}
	introRequests.WithLabelValues("failed").Inc()
	o.logger.Warn().Err(err).Str("match_id", matchID).Msg("intro request failed")
	return NewBusinessError("INTRO_REQUEST_FAILED", messageOr(err, msgIntroFailed), fmt.Errorf("%w: %w", ErrIntroRequestFailed, err))
}

// HumanizeWait renders d rounded up to whole seconds, e.g. "1 minute and 30 seconds"
func HumanizeWait(d time.Duration) string {
	total := int(math.Ceil(d.Seconds()))
	if total <= 0 {
		return "a moment"
	}
	hours, rest := total/3600, total%3600
	minutes, seconds := rest/60, rest%60

	var parts []string
	for _, unit := range []struct {
		n    int
		name string
	}{{hours, "hour"}, {minutes, "minute"}, {seconds, "second"}} {
		if unit.n == 0 {
			continue
		}
		if unit.n == 1 {
			parts = append(parts, "1 "+unit.name)
		} else {
			parts = append(parts, fmt.Sprintf("%d %ss", unit.n, unit.name))
		}
	}

	switch len(parts) {
	case 1:
		return parts[0]
	case 2:
		return parts[0] + " and " + parts[1]
	default:
		return strings.Join(parts[:len(parts)-1], ", ") + " and " + parts[len(parts)-1]
	}
}
