package dto

import (
	"time"

	"github.com/amirphl/pick-intro/models"
)

// ListMatchesRequest is bound from the query string. Limit is clamped to 1..20.
type ListMatchesRequest struct {
	Limit int `query:"limit" validate:"gte=0,lte=100"`
}

// MatchListResponse is the current match board
type MatchListResponse struct {
	Matches  []models.MatchRecommendation `json:"matches"`
	LoadedAt time.Time                    `json:"loadedAt"`
}

// OpenIntroRequest optionally pins the match code to reuse
type OpenIntroRequest struct {
	MatchCode string `json:"matchCode,omitempty" validate:"omitempty,max=64"`
}

// NavigationStep is one recorded browser action of an intro hand-off
type NavigationStep struct {
	Action string `json:"action"`
	URL    string `json:"url,omitempty"`
	Window int    `json:"window,omitempty"`
}

// IntroPreviewResponse is a freshly generated intro
type IntroPreviewResponse struct {
	Intro models.MatchIntroPayload `json:"intro"`
}

// OpenIntroResponse describes what the client should do to open the chat
type OpenIntroResponse struct {
	Intro      models.MatchIntroPayload `json:"intro"`
	Dispatched bool                     `json:"dispatched"`
	Platform   string                   `json:"platform"`
	Navigation []NavigationStep         `json:"navigation"`
}
