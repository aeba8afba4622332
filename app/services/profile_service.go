package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/amirphl/pick-intro/models"
	"github.com/amirphl/pick-intro/utils"
)

// ProfileService loads and persists profiles on the Pick API
type ProfileService interface {
	// LoadProfile returns nil, nil when the caller has no stored profile.
	LoadProfile(ctx context.Context) (*models.StoredProfile, error)
	SaveProfile(ctx context.Context, draft models.ProfileDraft) (*models.SavedProfile, error)
}

// ProfilePayload is the body of PUT /profiles
type ProfilePayload struct {
	Profile   ProfilePayloadProfile `json:"profile"`
	Cities    []string              `json:"cities"`
	Interests []string              `json:"interests"`
}

type ProfilePayloadProfile struct {
	DisplayName      string `json:"displayName"`
	Bio              string `json:"bio"`
	WhatsAppNumber   string `json:"whatsappNumber"`
	LinkedInURL      string `json:"linkedinUrl,omitempty"`
	InstagramURL     string `json:"instagramUrl,omitempty"`
	PhotoDataURL     string `json:"photoDataUrl,omitempty"`
	ExistingPhotoURL string `json:"existingPhotoUrl,omitempty"`
}

// BuildProfilePayload trims text fields and omits empty optional ones
func BuildProfilePayload(draft models.ProfileDraft) ProfilePayload {
	payload := ProfilePayload{
		Profile: ProfilePayloadProfile{
			DisplayName:      strings.TrimSpace(draft.DisplayName),
			Bio:              strings.TrimSpace(draft.Bio),
			WhatsAppNumber:   strings.TrimSpace(draft.WhatsAppNumber),
			LinkedInURL:      strings.TrimSpace(draft.LinkedInURL),
			InstagramURL:     strings.TrimSpace(draft.InstagramURL),
			ExistingPhotoURL: draft.ExistingPhotoURL,
		},
		Cities:    append([]string{}, draft.Cities...),
		Interests: append([]string{}, draft.Interests...),
	}
	if draft.Photo != nil {
		payload.Profile.PhotoDataURL = draft.Photo.DataURL
	}
	return payload
}

type profileEnvelope struct {
	Profile *models.StoredProfile `json:"profile"`
}

// ProfileServiceImpl implements ProfileService over HTTP
type ProfileServiceImpl struct {
	backend *BackendClient
}

// NewProfileService creates a new profile service instance
func NewProfileService(backend *BackendClient) ProfileService {
	return &ProfileServiceImpl{backend: backend}
}

func (s *ProfileServiceImpl) LoadProfile(ctx context.Context) (*models.StoredProfile, error) {
	var envelope profileEnvelope
	err := s.backend.do(ctx, http.MethodGet, "/profiles/me", nil, nil, &envelope, "We couldn't load your profile.")
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return envelope.Profile, nil
}

func (s *ProfileServiceImpl) SaveProfile(ctx context.Context, draft models.ProfileDraft) (*models.SavedProfile, error) {
	var saved models.SavedProfile
	if err := s.backend.do(ctx, http.MethodPut, "/profiles", nil, BuildProfilePayload(draft), &saved, "We had an issue saving your profile."); err != nil {
		return nil, err
	}
	return &saved, nil
}

// MockProfileService implements ProfileService for testing and local runs
type MockProfileService struct {
	mu         sync.Mutex
	stored     *models.StoredProfile
	savedDraft []models.ProfileDraft
	LoadErr    error
	SaveErr    error
	// PhotoURL is returned for saves carrying a pending photo
	PhotoURL string
}

// NewMockProfileService creates a mock profile service, optionally seeded with a stored profile
func NewMockProfileService(stored *models.StoredProfile) *MockProfileService {
	return &MockProfileService{stored: stored, PhotoURL: "https://cdn.pick.test/photos/mock.jpg"}
}

func (m *MockProfileService) LoadProfile(ctx context.Context) (*models.StoredProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	if m.stored == nil {
		return nil, nil
	}
	p := *m.stored
	return &p, nil
}

func (m *MockProfileService) SaveProfile(ctx context.Context, draft models.ProfileDraft) (*models.SavedProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.savedDraft = append(m.savedDraft, draft.Clone())
	if m.SaveErr != nil {
		return nil, m.SaveErr
	}

	now := utils.UTCNow().Truncate(time.Second)
	photoURL := draft.ExistingPhotoURL
	if draft.Photo != nil {
		photoURL = m.PhotoURL
	}
	payload := BuildProfilePayload(draft)
	m.stored = &models.StoredProfile{
		DisplayName:    payload.Profile.DisplayName,
		Bio:            payload.Profile.Bio,
		WhatsAppNumber: utils.ToPtr(payload.Profile.WhatsAppNumber),
		LinkedInURL:    utils.ToPtr(payload.Profile.LinkedInURL),
		InstagramURL:   utils.ToPtr(payload.Profile.InstagramURL),
		Cities:         payload.Cities,
		Interests:      payload.Interests,
		PhotoURL:       photoURL,
		UpdatedAt:      &now,
	}
	return &models.SavedProfile{UpdatedAt: &now, PhotoURL: photoURL}, nil
}

// GetSavedDrafts returns every draft passed to SaveProfile
func (m *MockProfileService) GetSavedDrafts() []models.ProfileDraft {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.ProfileDraft(nil), m.savedDraft...)
}

// ClearSavedDrafts clears the recorded saves
func (m *MockProfileService) ClearSavedDrafts() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.savedDraft = nil
}
