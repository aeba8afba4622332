package services

import (
	"context"
	"net/http"
	"sync"

	"github.com/amirphl/pick-intro/models"
	"github.com/amirphl/pick-intro/utils"
)

// ReportService files moderation reports against other users
type ReportService interface {
	ReportUser(ctx context.Context, report models.UserReport) (*models.ReportReceipt, error)
}

// ReportServiceImpl implements ReportService over HTTP
type ReportServiceImpl struct {
	backend *BackendClient
}

// NewReportService creates a new report service instance
func NewReportService(backend *BackendClient) ReportService {
	return &ReportServiceImpl{backend: backend}
}

func (s *ReportServiceImpl) ReportUser(ctx context.Context, report models.UserReport) (*models.ReportReceipt, error) {
	var receipt models.ReportReceipt
	if err := s.backend.do(ctx, http.MethodPost, "/reports", nil, report, &receipt, "We couldn't send the report."); err != nil {
		return nil, err
	}
	return &receipt, nil
}

// MockReportService implements ReportService for testing
type MockReportService struct {
	mu      sync.Mutex
	reports []models.UserReport
	Err     error
}

// NewMockReportService creates a new mock report service
func NewMockReportService() *MockReportService {
	return &MockReportService{}
}

func (m *MockReportService) ReportUser(ctx context.Context, report models.UserReport) (*models.ReportReceipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	m.reports = append(m.reports, report)
	return &models.ReportReceipt{ReportedAt: utils.UTCNowPtr()}, nil
}

// GetReports returns all recorded reports
func (m *MockReportService) GetReports() []models.UserReport {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.UserReport(nil), m.reports...)
}
