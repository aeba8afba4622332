package models

import (
	"slices"
	"time"
)

// FeedbackMilestone is the point in the member's journey a feedback prompt belongs to
type FeedbackMilestone string

const (
	FeedbackMilestoneDay2   FeedbackMilestone = "day_2"
	FeedbackMilestoneMonth1 FeedbackMilestone = "month_1"
	FeedbackMilestoneMonth6 FeedbackMilestone = "month_6"
)

// FeedbackOutcome is what happened after an intro was sent
type FeedbackOutcome string

const (
	FeedbackOutcomeNoResponse     FeedbackOutcome = "no_response"
	FeedbackOutcomeChatting       FeedbackOutcome = "chatting"
	FeedbackOutcomePlanningToMeet FeedbackOutcome = "planning_to_meet"
	FeedbackOutcomeMetInPerson    FeedbackOutcome = "met_in_person"
	FeedbackOutcomeNoShow         FeedbackOutcome = "no_show"
	FeedbackOutcomeOther          FeedbackOutcome = "other"
)

var feedbackOutcomes = []FeedbackOutcome{
	FeedbackOutcomeNoResponse,
	FeedbackOutcomeChatting,
	FeedbackOutcomePlanningToMeet,
	FeedbackOutcomeMetInPerson,
	FeedbackOutcomeNoShow,
	FeedbackOutcomeOther,
}

// Valid reports whether o is a known outcome
func (o FeedbackOutcome) Valid() bool {
	return slices.Contains(feedbackOutcomes, o)
}

const (
	FeedbackRatingMin = 1
	FeedbackRatingMax = 5
)

// FeedbackEligibility says whether the member should be asked for feedback now
type FeedbackEligibility struct {
	ShouldPrompt    bool              `json:"shouldPrompt"`
	EligibleAt      *time.Time        `json:"eligibleAt,omitempty"`
	MilestoneID     FeedbackMilestone `json:"milestoneId,omitempty"`
	LastSubmittedAt *time.Time        `json:"lastSubmittedAt,omitempty"`
	Reason          string            `json:"reason,omitempty"`
}

// FeedbackSubmission rates the generated intro message and reports the outcome
type FeedbackSubmission struct {
	AIMessageQuality int             `json:"aiMessageQuality"`
	Outcome          FeedbackOutcome `json:"outcome"`
	MatchCode        string          `json:"matchCode,omitempty"`
	Comment          string          `json:"comment,omitempty"`
}

// FeedbackReceipt acknowledges a submission
type FeedbackReceipt struct {
	Message     string     `json:"message"`
	SubmittedAt *time.Time `json:"submittedAt,omitempty"`
}
