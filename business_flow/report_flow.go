package businessflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/amirphl/pick-intro/app/services"
	"github.com/amirphl/pick-intro/models"
	"github.com/amirphl/pick-intro/utils"
	"github.com/rs/zerolog"
)

const (
	msgReportFailed        = "We couldn't send the report."
	msgReportedUserMissing = "Choose the user you want to report."
)

// ReportFlow handles moderation reports
type ReportFlow interface {
	ReportUser(ctx context.Context, report models.UserReport) (*models.ReportReceipt, error)
}

// ReportFlowImpl implements ReportFlow
type ReportFlowImpl struct {
	reports services.ReportService
	logger  zerolog.Logger
}

// NewReportFlow creates a new report flow
func NewReportFlow(reports services.ReportService, logger zerolog.Logger) ReportFlow {
	return &ReportFlowImpl{
		reports: reports,
		logger:  logger.With().Str("component", "report_flow").Logger(),
	}
}

// ReportUser trims the report and forwards it. A missing receipt timestamp is stamped locally.
func (f *ReportFlowImpl) ReportUser(ctx context.Context, report models.UserReport) (*models.ReportReceipt, error) {
	report.ReportedUserID = strings.TrimSpace(report.ReportedUserID)
	report.Reason = strings.TrimSpace(report.Reason)
	report.Context = strings.TrimSpace(report.Context)
	if report.ReportedUserID == "" {
		return nil, NewBusinessError("REPORTED_USER_REQUIRED", msgReportedUserMissing, ErrReportedUserMissing)
	}

	metadata := ClientMetadataFromContext(ctx)
	logger := metadata.LogContext(f.logger)

	receipt, err := f.reports.ReportUser(ctx, report)
	if err != nil {
		logger.Warn().Err(err).Str("reported_user_id", report.ReportedUserID).Msg("report failed")
		return nil, NewBusinessError("REPORT_FAILED", messageOr(err, msgReportFailed), fmt.Errorf("%w: %w", ErrReportFailed, err))
	}
	if receipt == nil {
		receipt = &models.ReportReceipt{}
	}
	if receipt.ReportedAt == nil {
		receipt.ReportedAt = utils.UTCNowPtr()
	}

	logger.Info().Str("reported_user_id", report.ReportedUserID).Msg("user reported")
	return receipt, nil
}
