package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/amirphl/pick-intro/models"
	"github.com/amirphl/pick-intro/utils"
)

// MatchmakingService fetches recommendations and generates intros on the Pick API
type MatchmakingService interface {
	FetchRecommendations(ctx context.Context, limit int) ([]models.MatchRecommendation, error)
	FetchDashboard(ctx context.Context, limit int) ([]models.MatchRecommendation, error)
	// RequestIntro may fail with a *RateLimitError
	RequestIntro(ctx context.Context, matchUserID, matchCode string) (*models.MatchIntroPayload, error)
}

// ClampMatchLimit bounds limit to 1..20, using the default for non-positive values
func ClampMatchLimit(limit int) int {
	if limit <= 0 {
		return utils.DefaultMatchLimit
	}
	return min(limit, utils.MaxMatchLimit)
}

type matchesEnvelope struct {
	Matches []models.MatchRecommendation `json:"matches"`
}

type introRequest struct {
	MatchUserID string `json:"matchUserId"`
	MatchCode   string `json:"matchCode,omitempty"`
}

// MatchmakingServiceImpl implements MatchmakingService over HTTP
type MatchmakingServiceImpl struct {
	backend *BackendClient
}

// NewMatchmakingService creates a new matchmaking service instance
func NewMatchmakingService(backend *BackendClient) MatchmakingService {
	return &MatchmakingServiceImpl{backend: backend}
}

func (s *MatchmakingServiceImpl) FetchRecommendations(ctx context.Context, limit int) ([]models.MatchRecommendation, error) {
	return s.fetch(ctx, "/matches", limit, "We couldn't load your matches.")
}

func (s *MatchmakingServiceImpl) FetchDashboard(ctx context.Context, limit int) ([]models.MatchRecommendation, error) {
	return s.fetch(ctx, "/matches/dashboard", limit, "We couldn't prepare your match dashboard.")
}

func (s *MatchmakingServiceImpl) fetch(ctx context.Context, path string, limit int, fallback string) ([]models.MatchRecommendation, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(ClampMatchLimit(limit)))
	var envelope matchesEnvelope
	if err := s.backend.do(ctx, http.MethodGet, path, params, nil, &envelope, fallback); err != nil {
		return nil, err
	}
	if envelope.Matches == nil {
		return []models.MatchRecommendation{}, nil
	}
	return envelope.Matches, nil
}

func (s *MatchmakingServiceImpl) RequestIntro(ctx context.Context, matchUserID, matchCode string) (*models.MatchIntroPayload, error) {
	var payload models.MatchIntroPayload
	if err := s.backend.do(ctx, http.MethodPost, "/matches/intro", nil, introRequest{MatchUserID: matchUserID, MatchCode: matchCode}, &payload, "We couldn't create the message."); err != nil {
		return nil, err
	}
	return &payload, nil
}

// MockIntroCall records one RequestIntro invocation
type MockIntroCall struct {
	MatchUserID string
	MatchCode   string
}

// MockMatchmakingService implements MatchmakingService for testing and local runs.
// Each intro gets a fresh message; IntroErrs are returned in order before succeeding.
type MockMatchmakingService struct {
	mu              sync.Mutex
	recommendations []models.MatchRecommendation
	introCalls      []MockIntroCall
	IntroErrs       []error
	FetchErr        error
	Sponsor         *models.Sponsor
	Phone           string
}

// NewMockMatchmakingService creates a mock serving the given recommendations
func NewMockMatchmakingService(recommendations []models.MatchRecommendation) *MockMatchmakingService {
	return &MockMatchmakingService{
		recommendations: recommendations,
		Phone:           "15551234567",
	}
}

func (m *MockMatchmakingService) FetchRecommendations(ctx context.Context, limit int) ([]models.MatchRecommendation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FetchErr != nil {
		return nil, m.FetchErr
	}
	limit = ClampMatchLimit(limit)
	out := make([]models.MatchRecommendation, 0, min(limit, len(m.recommendations)))
	for i := 0; i < len(m.recommendations) && i < limit; i++ {
		out = append(out, m.recommendations[i].Clone())
	}
	return out, nil
}

// FetchDashboard returns the recommendations with an intro preview attached to each
func (m *MockMatchmakingService) FetchDashboard(ctx context.Context, limit int) ([]models.MatchRecommendation, error) {
	out, err := m.FetchRecommendations(ctx, limit)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range out {
		if out[i].IntroPreview == nil {
			out[i].IntroPreview = m.introPayload(out[i], fmt.Sprintf("PICK-D%03d", i+1), 0)
		}
	}
	return out, nil
}

func (m *MockMatchmakingService) RequestIntro(ctx context.Context, matchUserID, matchCode string) (*models.MatchIntroPayload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.introCalls = append(m.introCalls, MockIntroCall{MatchUserID: matchUserID, MatchCode: matchCode})
	if len(m.IntroErrs) > 0 {
		err := m.IntroErrs[0]
		m.IntroErrs = m.IntroErrs[1:]
		return nil, err
	}

	var shared models.MatchRecommendation
	for _, r := range m.recommendations {
		if r.UserID == matchUserID {
			shared = r
			break
		}
	}
	if matchCode == "" {
		matchCode = fmt.Sprintf("PICK-%04d", len(m.introCalls))
	}
	return m.introPayload(shared, matchCode, len(m.introCalls)), nil
}

func (m *MockMatchmakingService) introPayload(shared models.MatchRecommendation, matchCode string, n int) *models.MatchIntroPayload {
	message := fmt.Sprintf("Hi! Pick matched us (%s). Coffee this week? #%d", matchCode, n)
	payload := &models.MatchIntroPayload{
		MatchCode:       matchCode,
		Message:         message,
		DeepLinkURL:     fmt.Sprintf("https://wa.me/%s?text=%s", m.Phone, url.QueryEscape(message)),
		SharedCities:    append([]string{}, shared.SharedCities...),
		SharedInterests: append([]string{}, shared.SharedInterests...),
	}
	if m.Sponsor != nil {
		s := *m.Sponsor
		payload.Sponsor = &s
	}
	return payload
}

// GetIntroCalls returns every recorded RequestIntro call
func (m *MockMatchmakingService) GetIntroCalls() []MockIntroCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockIntroCall(nil), m.introCalls...)
}

// DemoRecommendations seeds the mock provider for local runs
func DemoRecommendations() []models.MatchRecommendation {
	return []models.MatchRecommendation{
		{
			UserID:          "demo-ana",
			DisplayName:     "Ana",
			Bio:             "Product designer who trades climbing beta for coffee recommendations.",
			SharedCities:    []string{"lisbon"},
			SharedInterests: []string{"coffee_culture", "product_management"},
			Score:           0.92,
			Compatibility:   models.MatchCompatibilityPerfect,
		},
		{
			UserID:          "demo-rui",
			DisplayName:     "Rui",
			Bio:             "Runs the river trail at dawn and the indie gig circuit at night.",
			SharedCities:    []string{"lisbon"},
			SharedInterests: []string{"trail_running", "indie_music"},
			Score:           0.78,
			Compatibility:   models.MatchCompatibilityStrong,
		},
		{
			UserID:          "demo-mei",
			DisplayName:     "Mei",
			Bio:             "Climate analyst looking for people to start a repair cafe with.",
			SharedCities:    []string{"porto"},
			SharedInterests: []string{"climate_action"},
			Score:           0.61,
			Compatibility:   models.MatchCompatibilityCompatible,
		},
	}
}
