package models

import (
	"slices"
	"time"
)

// MatchCompatibility buckets a recommendation score.
type MatchCompatibility string

const (
	MatchCompatibilityPerfect    MatchCompatibility = "perfect"
	MatchCompatibilityStrong     MatchCompatibility = "strong"
	MatchCompatibilityCompatible MatchCompatibility = "compatible"
)

// Sponsor is optional promotional attribution attached to an intro message.
type Sponsor struct {
	Name    string `json:"name,omitempty"`
	Tagline string `json:"tagline,omitempty"`
}

// MatchIntroPayload is a generated introduction. It is regenerated on every request.
type MatchIntroPayload struct {
	MatchCode       string   `json:"matchCode"`
	Message         string   `json:"message"`
	DeepLinkURL     string   `json:"whatsappUrl"`
	SharedCities    []string `json:"sharedCities"`
	SharedInterests []string `json:"sharedInterests"`
	Sponsor         *Sponsor `json:"sponsor,omitempty"`
}

// Clone returns a deep copy of the payload.
func (p MatchIntroPayload) Clone() MatchIntroPayload {
	out := p
	out.SharedCities = slices.Clone(p.SharedCities)
	out.SharedInterests = slices.Clone(p.SharedInterests)
	if p.Sponsor != nil {
		s := *p.Sponsor
		out.Sponsor = &s
	}
	return out
}

// MatchRecommendation is one candidate in the in-memory match list.
type MatchRecommendation struct {
	UserID          string             `json:"userId"`
	DisplayName     string             `json:"displayName"`
	Bio             string             `json:"bio,omitempty"`
	LinkedInURL     string             `json:"linkedinUrl,omitempty"`
	InstagramURL    string             `json:"instagramUrl,omitempty"`
	PhotoURL        string             `json:"photoUrl,omitempty"`
	SharedCities    []string           `json:"sharedCities"`
	SharedInterests []string           `json:"sharedInterests"`
	Score           float64            `json:"score"`
	Compatibility   MatchCompatibility `json:"compatibility"`
	IntroPreview    *MatchIntroPayload `json:"introPreview,omitempty"`
}

// Clone returns a deep copy of the recommendation.
func (m MatchRecommendation) Clone() MatchRecommendation {
	out := m
	out.SharedCities = slices.Clone(m.SharedCities)
	out.SharedInterests = slices.Clone(m.SharedInterests)
	if m.IntroPreview != nil {
		p := m.IntroPreview.Clone()
		out.IntroPreview = &p
	}
	return out
}

// UserReport flags another user for moderation.
type UserReport struct {
	ReportedUserID string `json:"reportedUserId"`
	Reason         string `json:"reason,omitempty"`
	Context        string `json:"context,omitempty"`
}

// ReportReceipt acknowledges a stored report.
type ReportReceipt struct {
	ReportedAt *time.Time `json:"reportedAt,omitempty"`
}
