package businessflow

import (
	"context"
	"testing"

	"github.com/amirphl/pick-intro/app/services"
	"github.com/amirphl/pick-intro/models"
	"github.com/amirphl/pick-intro/utils"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportFlow(t *testing.T) {
	ctx := context.WithValue(context.Background(), utils.RequestIDKey, "req-1")

	t.Run("TrimsAndForwards", func(t *testing.T) {
		reports := services.NewMockReportService()
		flow := NewReportFlow(reports, zerolog.Nop())

		receipt, err := flow.ReportUser(ctx, models.UserReport{ReportedUserID: " user-9 ", Reason: " spam "})
		require.NoError(t, err)
		assert.NotNil(t, receipt.ReportedAt)
		assert.Equal(t, []models.UserReport{{ReportedUserID: "user-9", Reason: "spam"}}, reports.GetReports())
	})

	t.Run("MissingUser", func(t *testing.T) {
		reports := services.NewMockReportService()
		_, err := NewReportFlow(reports, zerolog.Nop()).ReportUser(ctx, models.UserReport{})
		assert.ErrorIs(t, err, ErrReportedUserMissing)
		assert.Empty(t, reports.GetReports())
	})

	t.Run("ServiceFailure", func(t *testing.T) {
		reports := services.NewMockReportService()
		reports.Err = &services.ServiceError{Status: 400, Message: "Already reported."}
		_, err := NewReportFlow(reports, zerolog.Nop()).ReportUser(ctx, models.UserReport{ReportedUserID: "user-9"})

		be, ok := AsBusinessError(err)
		require.True(t, ok)
		assert.Equal(t, "REPORT_FAILED", be.Code)
		assert.Equal(t, "Already reported.", be.Message)
	})
}

func TestClientMetadataFromContext(t *testing.T) {
	ctx := context.WithValue(context.Background(), utils.UserAgentKey, "Mozilla/5.0 (iPhone)")
	ctx = context.WithValue(ctx, utils.UserIDKey, "user-1")

	metadata := ClientMetadataFromContext(ctx)
	assert.Equal(t, "user-1", metadata.UserID)
	assert.True(t, metadata.IsMobile())
	assert.Empty(t, metadata.IPAddress)
}
