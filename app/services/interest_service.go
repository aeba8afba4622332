package services

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"unicode"

	"github.com/amirphl/pick-intro/models"
)

// InterestService searches canonical interests and resolves free text on the Pick API
type InterestService interface {
	SearchInterests(ctx context.Context, query string) ([]models.InterestOption, error)
	ResolveInterest(ctx context.Context, label string) (*models.InterestResolution, error)
}

type interestsEnvelope struct {
	Interests []models.InterestOption `json:"interests"`
}

type resolveInterestRequest struct {
	Label string `json:"label"`
}

// InterestServiceImpl implements InterestService over HTTP
type InterestServiceImpl struct {
	backend *BackendClient
}

// NewInterestService creates a new interest service instance
func NewInterestService(backend *BackendClient) InterestService {
	return &InterestServiceImpl{backend: backend}
}

func (s *InterestServiceImpl) SearchInterests(ctx context.Context, query string) ([]models.InterestOption, error) {
	params := url.Values{}
	if query != "" {
		params.Set("q", query)
	}
	var envelope interestsEnvelope
	if err := s.backend.do(ctx, http.MethodGet, "/interests/search", params, nil, &envelope, "We couldn't load interests."); err != nil {
		return nil, err
	}
	if envelope.Interests == nil {
		return []models.InterestOption{}, nil
	}
	return envelope.Interests, nil
}

func (s *InterestServiceImpl) ResolveInterest(ctx context.Context, label string) (*models.InterestResolution, error) {
	var resolution models.InterestResolution
	if err := s.backend.do(ctx, http.MethodPost, "/interests/resolve", nil, resolveInterestRequest{Label: label}, &resolution, "We couldn't resolve this interest."); err != nil {
		return nil, err
	}
	return &resolution, nil
}

// MockInterestService implements InterestService with an in-memory catalog.
// Unknown labels become pending interests until Approve is called.
type MockInterestService struct {
	mu          sync.Mutex
	catalog     []models.InterestOption
	pending     map[string]models.InterestOption
	SearchErr   error
	ResolveErr  error
	searchCalls []string
	resolved    []string
}

// NewMockInterestService creates a mock seeded with a canonical catalog
func NewMockInterestService(catalog []models.InterestOption) *MockInterestService {
	return &MockInterestService{
		catalog: append([]models.InterestOption(nil), catalog...),
		pending: make(map[string]models.InterestOption),
	}
}

func (m *MockInterestService) SearchInterests(ctx context.Context, query string) ([]models.InterestOption, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searchCalls = append(m.searchCalls, query)
	if m.SearchErr != nil {
		return nil, m.SearchErr
	}
	needle := strings.ToLower(strings.TrimSpace(query))
	out := []models.InterestOption{}
	for _, opt := range m.catalog {
		if needle == "" || strings.Contains(strings.ToLower(opt.Label), needle) || strings.Contains(opt.ID, needle) {
			out = append(out, opt)
		}
	}
	return out, nil
}

func (m *MockInterestService) ResolveInterest(ctx context.Context, label string) (*models.InterestResolution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolved = append(m.resolved, label)
	if m.ResolveErr != nil {
		return nil, m.ResolveErr
	}
	key := strings.ToLower(strings.TrimSpace(label))
	for _, opt := range m.catalog {
		if strings.ToLower(opt.Label) == key || opt.ID == InterestSlug(label) {
			return &models.InterestResolution{InterestID: opt.ID, Label: opt.Label, Matched: true}, nil
		}
	}
	if opt, ok := m.pending[key]; ok {
		return &models.InterestResolution{InterestID: opt.ID, Label: opt.Label}, nil
	}
	opt := models.InterestOption{ID: InterestSlug(label), Label: strings.TrimSpace(label)}
	m.pending[key] = opt
	return &models.InterestResolution{InterestID: opt.ID, Label: opt.Label, Created: true}, nil
}

// Approve promotes a pending label into the canonical catalog
func (m *MockInterestService) Approve(label string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToLower(strings.TrimSpace(label))
	opt, ok := m.pending[key]
	if !ok {
		return false
	}
	delete(m.pending, key)
	m.catalog = append(m.catalog, opt)
	return true
}

// GetSearchQueries returns every query passed to SearchInterests
func (m *MockInterestService) GetSearchQueries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.searchCalls...)
}

// GetResolvedLabels returns every label passed to ResolveInterest
func (m *MockInterestService) GetResolvedLabels() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.resolved...)
}

// InterestSlug derives an identifier from a label: "Jazz Nights" becomes "jazz_nights".
func InterestSlug(label string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(label)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore && b.Len() > 0 {
			b.WriteByte('_')
			underscore = true
		}
	}
	return strings.TrimRight(b.String(), "_")
}

// StarterInterests is the catalog served by the mock backend
var StarterInterests = []models.InterestOption{
	{ID: "climate_action", Label: "Climate action", Description: "Green projects, environmental impact and regenerative careers.", Pillar: "impact"},
	{ID: "product_management", Label: "Product builders", Description: "Designing and launching digital products, from research to growth.", Pillar: "career"},
	{ID: "coffee_culture", Label: "Coffee culture", Description: "Specialty coffee routes, creative gatherings and neighborhood walks.", Pillar: "community"},
	{ID: "trail_running", Label: "Trail running", Description: "Weekend trails, running clubs and mountain races.", Pillar: "wellness"},
	{ID: "indie_music", Label: "Indie music", Description: "Live shows, small venues and new local bands.", Pillar: "creative"},
}
