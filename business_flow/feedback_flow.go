package businessflow

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/amirphl/pick-intro/app/services"
	"github.com/amirphl/pick-intro/models"
	"github.com/amirphl/pick-intro/utils"
	"github.com/rs/zerolog"
)

const (
	msgFeedbackEligibilityFailed = "We couldn't check whether feedback is due."
	msgFeedbackSubmitFailed      = "We couldn't save your feedback."
	msgFeedbackNotEligible       = "There is no feedback request open right now."
	msgFeedbackInvalid           = "Rate the message and tell us how it went."
	msgFeedbackThanks            = "Thanks for the feedback!"

	feedbackCommentMaxLength   = 1000
	feedbackMatchCodeMaxLength = 64
)

// FeedbackPrompt tracks one member's feedback prompt on intro messages.
// Eligibility is only fetched once the profile is ready for intros.
type FeedbackPrompt struct {
	feedback  services.FeedbackService
	readiness IntroReadiness
	logger    zerolog.Logger

	mu          sync.Mutex
	eligibility *models.FeedbackEligibility
}

// NewFeedbackPrompt creates a prompt. A nil readiness disables the profile gate.
func NewFeedbackPrompt(feedback services.FeedbackService, readiness IntroReadiness, logger zerolog.Logger) *FeedbackPrompt {
	return &FeedbackPrompt{
		feedback:  feedback,
		readiness: readiness,
		logger:    logger.With().Str("component", "feedback").Logger(),
	}
}

// CheckEligibility asks the backend whether to prompt and remembers the answer.
// An incomplete profile never prompts and makes no network call.
func (p *FeedbackPrompt) CheckEligibility(ctx context.Context) (*models.FeedbackEligibility, error) {
	if p.readiness != nil && !p.readiness.CanRequestIntros() {
		p.mu.Lock()
		p.eligibility = nil
		p.mu.Unlock()
		return &models.FeedbackEligibility{}, nil
	}

	eligibility, err := p.feedback.FetchEligibility(ctx)
	if err != nil {
		p.logger.Warn().Err(err).Msg("feedback eligibility check failed")
		return nil, NewBusinessError("FEEDBACK_ELIGIBILITY_FAILED", messageOr(err, msgFeedbackEligibilityFailed), fmt.Errorf("%w: %w", ErrFeedbackEligibilityFailed, err))
	}
	if eligibility == nil {
		eligibility = &models.FeedbackEligibility{}
	}

	p.mu.Lock()
	stored := *eligibility
	p.eligibility = &stored
	p.mu.Unlock()
	return eligibility, nil
}

// Dismiss hides the prompt until eligibility is checked again
func (p *FeedbackPrompt) Dismiss() models.FeedbackEligibility {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.eligibility == nil {
		return models.FeedbackEligibility{}
	}
	p.eligibility.ShouldPrompt = false
	return *p.eligibility
}

// Submit validates and stores feedback for the open milestone, then closes the milestone
func (p *FeedbackPrompt) Submit(ctx context.Context, submission models.FeedbackSubmission) (*models.FeedbackReceipt, error) {
	submission.MatchCode = strings.TrimSpace(submission.MatchCode)
	submission.Comment = strings.TrimSpace(submission.Comment)
	if fields := validateFeedback(submission); len(fields) > 0 {
		feedbackSubmissions.WithLabelValues("invalid").Inc()
		return nil, NewBusinessError("FEEDBACK_INVALID", msgFeedbackInvalid, ErrFeedbackInvalid).WithDetails(fields)
	}

	p.mu.Lock()
	checked := p.eligibility != nil
	p.mu.Unlock()
	if !checked {
		if _, err := p.CheckEligibility(ctx); err != nil {
			return nil, err
		}
	}

	p.mu.Lock()
	open := p.eligibility != nil && p.eligibility.MilestoneID != ""
	var milestone models.FeedbackMilestone
	if open {
		milestone = p.eligibility.MilestoneID
	}
	p.mu.Unlock()
	if !open {
		return nil, NewBusinessError("FEEDBACK_NOT_ELIGIBLE", msgFeedbackNotEligible, ErrFeedbackNotEligible)
	}

	receipt, err := p.feedback.SubmitFeedback(ctx, submission)
	if err != nil {
		feedbackSubmissions.WithLabelValues("failed").Inc()
		p.logger.Warn().Err(err).Str("milestone", string(milestone)).Msg("feedback submission failed")
		return nil, NewBusinessError("FEEDBACK_SUBMIT_FAILED", messageOr(err, msgFeedbackSubmitFailed), fmt.Errorf("%w: %w", ErrFeedbackSubmitFailed, err))
	}
	if receipt == nil {
		receipt = &models.FeedbackReceipt{}
	}
	if receipt.Message == "" {
		receipt.Message = msgFeedbackThanks
	}
	if receipt.SubmittedAt == nil {
		receipt.SubmittedAt = utils.UTCNowPtr()
	}

	p.mu.Lock()
	if p.eligibility != nil {
		p.eligibility.ShouldPrompt = false
		p.eligibility.MilestoneID = ""
		p.eligibility.LastSubmittedAt = receipt.SubmittedAt
	}
	p.mu.Unlock()

	feedbackSubmissions.WithLabelValues("submitted").Inc()
	p.logger.Info().Str("milestone", string(milestone)).Str("outcome", string(submission.Outcome)).Msg("feedback submitted")
	return receipt, nil
}

func validateFeedback(s models.FeedbackSubmission) map[string]string {
	fields := make(map[string]string)
	if s.AIMessageQuality < models.FeedbackRatingMin || s.AIMessageQuality > models.FeedbackRatingMax {
		fields["aiMessageQuality"] = fmt.Sprintf("Pick a rating from %d to %d.", models.FeedbackRatingMin, models.FeedbackRatingMax)
	}
	if !s.Outcome.Valid() {
		fields["outcome"] = "Tell us how the intro went."
	}
	if utf8.RuneCountInString(s.MatchCode) > feedbackMatchCodeMaxLength {
		fields["matchCode"] = fmt.Sprintf("Use at most %d characters.", feedbackMatchCodeMaxLength)
	}
	if utf8.RuneCountInString(s.Comment) > feedbackCommentMaxLength {
		fields["comment"] = fmt.Sprintf("Use at most %d characters.", feedbackCommentMaxLength)
	}
	return fields
}
