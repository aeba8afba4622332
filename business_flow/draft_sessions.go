package businessflow

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/amirphl/pick-intro/app/services"
	"github.com/rs/zerolog"
)

// DraftSession bundles the per-user draft, interest and match state
type DraftSession struct {
	UserID       string
	Store        *ProfileDraftStore
	Resolver     *InterestResolver
	Orchestrator *MatchIntroOrchestrator
	Feedback     *FeedbackPrompt

	ledger   DispatchLedger
	dispatch WhatsAppDispatcherOptions
	lastUsed time.Time
}

// Board returns the session's match board
func (s *DraftSession) Board() *MatchBoard {
	return s.Orchestrator.Board()
}

// NewDispatcher creates a dispatcher for browser that shares the session's debounce scope
func (s *DraftSession) NewDispatcher(browser Browser) *WhatsAppDispatcher {
	return NewWhatsAppDispatcher(browser, s.ledger, s.dispatch)
}

// DraftSessionDeps are the collaborators every session is built from
type DraftSessionDeps struct {
	Profiles          services.ProfileService
	Interests         services.InterestService
	Matches           services.MatchmakingService
	Feedback          services.FeedbackService
	Encoder           services.PhotoEncoder
	Ledger            DispatchLedger
	Limits            ProfileLimits
	SavedStatusWindow time.Duration
	Dispatch          WhatsAppDispatcherOptions
	IdleTTL           time.Duration
	Logger            zerolog.Logger
}

// DraftSessionRegistry keeps one session per user id in memory and evicts idle ones
type DraftSessionRegistry struct {
	deps DraftSessionDeps
	now  func() time.Time

	mu       sync.Mutex
	sessions map[string]*DraftSession
}

// NewDraftSessionRegistry creates an empty registry
func NewDraftSessionRegistry(deps DraftSessionDeps) *DraftSessionRegistry {
	if deps.Ledger == nil {
		deps.Ledger = NewMemoryDispatchLedger()
	}
	if deps.Feedback == nil {
		deps.Feedback = services.NewMockFeedbackService("")
	}
	if deps.IdleTTL <= 0 {
		deps.IdleTTL = 30 * time.Minute
	}
	return &DraftSessionRegistry{
		deps:     deps,
		now:      time.Now,
		sessions: make(map[string]*DraftSession),
	}
}

// Get returns the session for userID, creating and hydrating it on first use.
// displayName seeds a new draft and is ignored for existing sessions.
func (r *DraftSessionRegistry) Get(ctx context.Context, userID, displayName string) (*DraftSession, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, NewBusinessError("SESSION_USER_REQUIRED", "A signed-in user is required.", ErrSessionUserMissing)
	}

	r.mu.Lock()
	session, ok := r.sessions[userID]
	if ok {
		session.lastUsed = r.now()
		r.mu.Unlock()
		return session, nil
	}
	session = r.newSession(userID, displayName)
	r.sessions[userID] = session
	draftSessionsActive.Set(float64(len(r.sessions)))
	r.mu.Unlock()

	session.Store.Hydrate(ctx)
	return session, nil
}

func (r *DraftSessionRegistry) newSession(userID, displayName string) *DraftSession {
	logger := r.deps.Logger.With().Str("user_id", userID).Logger()
	store := NewProfileDraftStore(r.deps.Profiles, r.deps.Encoder, ProfileDraftOptions{
		Limits:             r.deps.Limits,
		SavedStatusWindow:  r.deps.SavedStatusWindow,
		InitialDisplayName: displayName,
		Logger:             logger,
	})
	dispatch := r.deps.Dispatch
	dispatch.Scope = userID
	dispatch.Logger = logger

	return &DraftSession{
		UserID:       userID,
		Store:        store,
		Resolver:     NewInterestResolver(r.deps.Interests, logger),
		Orchestrator: NewMatchIntroOrchestrator(r.deps.Matches, store, NewMatchBoard(), logger),
		Feedback:     NewFeedbackPrompt(r.deps.Feedback, store, logger),
		ledger:       r.deps.Ledger,
		dispatch:     dispatch,
		lastUsed:     r.now(),
	}
}

// Len returns the number of live sessions
func (r *DraftSessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Evict drops the session for userID
func (r *DraftSessionRegistry) Evict(userID string) bool {
	r.mu.Lock()
	session, ok := r.sessions[userID]
	if ok {
		delete(r.sessions, userID)
		draftSessionsActive.Set(float64(len(r.sessions)))
	}
	r.mu.Unlock()
	if ok {
		session.Store.Close()
	}
	return ok
}

// Sweep evicts sessions idle for longer than the configured TTL and returns how many were removed
func (r *DraftSessionRegistry) Sweep() int {
	now := r.now()
	var expired []*DraftSession

	r.mu.Lock()
	for id, session := range r.sessions {
		if now.Sub(session.lastUsed) > r.deps.IdleTTL {
			expired = append(expired, session)
			delete(r.sessions, id)
		}
	}
	draftSessionsActive.Set(float64(len(r.sessions)))
	r.mu.Unlock()

	for _, session := range expired {
		session.Store.Close()
	}
	if sweeper, ok := r.deps.Ledger.(*MemoryDispatchLedger); ok {
		sweeper.Sweep(r.deps.IdleTTL)
	}
	if len(expired) > 0 {
		r.deps.Logger.Debug().Int("evicted", len(expired)).Msg("idle draft sessions evicted")
	}
	return len(expired)
}

// StartSweeper runs Sweep every interval until the returned stop function is called
func (r *DraftSessionRegistry) StartSweeper(interval time.Duration) func() {
	if interval <= 0 {
		interval = time.Minute
	}
	done := make(chan struct{})
	var once sync.Once

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.Sweep()
			case <-done:
				return
			}
		}
	}()

	return func() {
		once.Do(func() { close(done) })
	}
}
