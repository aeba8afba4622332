package services

import (
	"context"
	"net/http"
	"sync"

	"github.com/amirphl/pick-intro/models"
	"github.com/amirphl/pick-intro/utils"
)

// FeedbackService reads feedback eligibility and stores feedback on intro messages
type FeedbackService interface {
	FetchEligibility(ctx context.Context) (*models.FeedbackEligibility, error)
	SubmitFeedback(ctx context.Context, submission models.FeedbackSubmission) (*models.FeedbackReceipt, error)
}

// FeedbackServiceImpl implements FeedbackService over HTTP
type FeedbackServiceImpl struct {
	backend *BackendClient
}

// NewFeedbackService creates a new feedback service instance
func NewFeedbackService(backend *BackendClient) FeedbackService {
	return &FeedbackServiceImpl{backend: backend}
}

func (s *FeedbackServiceImpl) FetchEligibility(ctx context.Context) (*models.FeedbackEligibility, error) {
	var eligibility models.FeedbackEligibility
	if err := s.backend.do(ctx, http.MethodGet, "/feedback/eligibility", nil, nil, &eligibility, "We couldn't check whether feedback is due."); err != nil {
		return nil, err
	}
	return &eligibility, nil
}

func (s *FeedbackServiceImpl) SubmitFeedback(ctx context.Context, submission models.FeedbackSubmission) (*models.FeedbackReceipt, error) {
	var receipt models.FeedbackReceipt
	if err := s.backend.do(ctx, http.MethodPost, "/feedback/submit", nil, submission, &receipt, "We couldn't save your feedback."); err != nil {
		return nil, err
	}
	return &receipt, nil
}

// MockFeedbackService implements FeedbackService for testing and local runs.
// It prompts for the configured milestone until a submission is recorded.
type MockFeedbackService struct {
	mu          sync.Mutex
	submissions []models.FeedbackSubmission
	eligibility models.FeedbackEligibility
	fetches     int
	Err         error
}

// NewMockFeedbackService creates a mock that prompts for milestone. An empty milestone never prompts.
func NewMockFeedbackService(milestone models.FeedbackMilestone) *MockFeedbackService {
	return &MockFeedbackService{
		eligibility: models.FeedbackEligibility{
			ShouldPrompt: milestone != "",
			MilestoneID:  milestone,
		},
	}
}

func (m *MockFeedbackService) FetchEligibility(ctx context.Context) (*models.FeedbackEligibility, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches++
	if m.Err != nil {
		return nil, m.Err
	}
	eligibility := m.eligibility
	return &eligibility, nil
}

func (m *MockFeedbackService) SubmitFeedback(ctx context.Context, submission models.FeedbackSubmission) (*models.FeedbackReceipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	m.submissions = append(m.submissions, submission)
	now := utils.UTCNowPtr()
	m.eligibility = models.FeedbackEligibility{LastSubmittedAt: now, Reason: "submitted"}
	return &models.FeedbackReceipt{Message: "Thanks for the feedback!", SubmittedAt: now}, nil
}

// SetEligibility replaces the eligibility served to later fetches
func (m *MockFeedbackService) SetEligibility(eligibility models.FeedbackEligibility) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.eligibility = eligibility
}

// FetchCount returns how many times eligibility was fetched
func (m *MockFeedbackService) FetchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetches
}

// GetSubmissions returns all recorded submissions
func (m *MockFeedbackService) GetSubmissions() []models.FeedbackSubmission {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.FeedbackSubmission(nil), m.submissions...)
}
