package dto

import (
	"time"

	"github.com/amirphl/pick-intro/models"
)

// UpdateDraftRequest is a partial update of the draft's text fields. Omitted fields are untouched.
type UpdateDraftRequest struct {
	DisplayName    *string `json:"displayName,omitempty" validate:"omitempty,max=400"`
	Bio            *string `json:"bio,omitempty" validate:"omitempty,max=2000"`
	WhatsAppNumber *string `json:"whatsappNumber,omitempty" validate:"omitempty,max=100"`
	LinkedInURL    *string `json:"linkedinUrl,omitempty" validate:"omitempty,max=1000"`
	InstagramURL   *string `json:"instagramUrl,omitempty" validate:"omitempty,max=1000"`
}

// Patch converts the request into a draft patch
func (r UpdateDraftRequest) Patch() models.ProfileDraftPatch {
	return models.ProfileDraftPatch{
		DisplayName:    r.DisplayName,
		Bio:            r.Bio,
		WhatsAppNumber: r.WhatsAppNumber,
		LinkedInURL:    r.LinkedInURL,
		InstagramURL:   r.InstagramURL,
	}
}

// UpdateFieldRequest sets a single text field
type UpdateFieldRequest struct {
	Value string `json:"value" validate:"max=2000"`
}

// UpdateCitiesRequest replaces the ordered city list. The first city is primary.
type UpdateCitiesRequest struct {
	Cities []string `json:"cities" validate:"max=20,dive,max=120"`
}

// DraftResponse is the draft with its derived state
type DraftResponse struct {
	Draft            models.ProfileDraft            `json:"draft"`
	PhotoPreviewURL  string                         `json:"photoPreviewUrl,omitempty"`
	Errors           map[models.ProfileField]string `json:"errors"`
	IsValid          bool                           `json:"isValid"`
	Status           models.ProfileStatus           `json:"status"`
	SubmitError      string                         `json:"submitError,omitempty"`
	AttemptedSubmit  bool                           `json:"attemptedSubmit"`
	HasLoadedProfile bool                           `json:"hasLoadedProfile"`
	IsSaved          bool                           `json:"isSaved"`
	IsComplete       bool                           `json:"isComplete"`
	CanRequestIntros bool                           `json:"canRequestIntros"`
	CanSelectMore    bool                           `json:"canSelectMoreInterests"`
	PendingInterests []string                       `json:"pendingInterests"`
	UpdatedAt        *time.Time                     `json:"updatedAt,omitempty"`
}
