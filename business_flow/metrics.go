package businessflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Profile submissions partitioned by outcome: saved, invalid, failed
	profileSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pick_profile_submissions_total",
			Help: "Profile draft submissions by outcome",
		},
		[]string{"result"},
	)

	// Interest resolutions partitioned by outcome: matched, created, awaiting, failed
	interestResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pick_interest_resolutions_total",
			Help: "Free-text interest resolutions by outcome",
		},
		[]string{"result"},
	)

	// Intro requests partitioned by outcome: ok, rate_limited, failed, not_ready
	introRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pick_intro_requests_total",
			Help: "Match intro requests by outcome",
		},
		[]string{"result"},
	)

	// WhatsApp dispatches partitioned by platform and outcome
	whatsappDispatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pick_whatsapp_dispatches_total",
			Help: "WhatsApp deep-link dispatches by platform and outcome",
		},
		[]string{"platform", "result"},
	)

	// Feedback submissions partitioned by outcome: submitted, invalid, failed
	feedbackSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pick_feedback_submissions_total",
			Help: "Intro message feedback submissions by outcome",
		},
		[]string{"result"},
	)

	// Live draft sessions
	draftSessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pick_draft_sessions_active",
			Help: "Number of in-memory draft sessions",
		},
	)
)
