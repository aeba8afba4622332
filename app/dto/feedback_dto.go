package dto

import "github.com/amirphl/pick-intro/models"

// SubmitFeedbackRequest rates the generated intro message and reports what happened next.
// Rating and outcome are checked by the feedback flow so field errors come back together.
type SubmitFeedbackRequest struct {
	AIMessageQuality int                    `json:"aiMessageQuality"`
	Outcome          models.FeedbackOutcome `json:"outcome"`
	MatchCode        string                 `json:"matchCode,omitempty" validate:"omitempty,max=64"`
	Comment          string                 `json:"comment,omitempty" validate:"omitempty,max=1000"`
}

// FeedbackEligibilityResponse says whether to show the feedback prompt
type FeedbackEligibilityResponse struct {
	Eligibility models.FeedbackEligibility `json:"eligibility"`
}

// SubmitFeedbackResponse acknowledges a submission
type SubmitFeedbackResponse struct {
	Receipt models.FeedbackReceipt `json:"receipt"`
}
