package businessflow

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/amirphl/pick-intro/app/services"
	"github.com/amirphl/pick-intro/models"
	"github.com/amirphl/pick-intro/utils"
	"github.com/rs/zerolog"
)

const (
	msgValidationFailed = "Check the highlighted fields to complete your profile."
	msgSaveFailed       = "We had an issue saving your profile."
	msgPhotoUnreadable  = "We couldn't read that image file."
)

// ProfileDraftFlow is the draft editing surface used by handlers and orchestrators
type ProfileDraftFlow interface {
	Hydrate(ctx context.Context) bool
	UpdateField(field models.ProfileField, value string) error
	ApplyPatch(patch models.ProfileDraftPatch) error
	SetPhoto(ctx context.Context, file *services.PhotoFile) error
	UpdateCities(cities []string) bool
	ToggleInterest(id string) bool
	SelectInterest(id string) bool
	SubmitProfile(ctx context.Context) error
	Snapshot() ProfileDraftSnapshot
	CanSelectInterest() bool
	CanRequestIntros() bool
	Close()
}

// ProfileDraftSnapshot is a consistent read of the store
type ProfileDraftSnapshot struct {
	Draft            models.ProfileDraft  `json:"draft"`
	Validation       ValidationResult     `json:"validation"`
	Status           models.ProfileStatus `json:"status"`
	SubmitError      string               `json:"submitError,omitempty"`
	AttemptedSubmit  bool                 `json:"attemptedSubmit"`
	HasLoadedProfile bool                 `json:"hasLoadedProfile"`
	IsSaved          bool                 `json:"isSaved"`
	IsComplete       bool                 `json:"isComplete"`
	CanRequestIntros bool                 `json:"canRequestIntros"`
}

// ProfileDraftOptions configures a ProfileDraftStore
type ProfileDraftOptions struct {
	Limits            ProfileLimits
	SavedStatusWindow time.Duration
	// InitialDisplayName seeds the draft, e.g. from the identity provider
	InitialDisplayName string
	Logger             zerolog.Logger
}

// ProfileDraftStore owns one mutable draft and its persistence state machine:
// idle -> saving -> saved | error, with saved falling back to idle after SavedStatusWindow.
type ProfileDraftStore struct {
	profiles services.ProfileService
	encoder  services.PhotoEncoder
	limits   ProfileLimits
	window   time.Duration
	logger   zerolog.Logger

	mu               sync.Mutex
	draft            models.ProfileDraft
	status           models.ProfileStatus
	submitError      string
	attemptedSubmit  bool
	hydrated         bool
	hasLoadedProfile bool
	submitting       bool

	// revision counts mutations; the draft is saved iff hasSaved && savedRevision == revision
	revision      uint64
	savedRevision uint64
	hasSaved      bool

	statusGen  uint64
	resetTimer *time.Timer
}

// NewProfileDraftStore creates an empty draft store
func NewProfileDraftStore(profiles services.ProfileService, encoder services.PhotoEncoder, opts ProfileDraftOptions) *ProfileDraftStore {
	if opts.SavedStatusWindow <= 0 {
		opts.SavedStatusWindow = utils.SavedStatusWindow
	}
	if opts.Limits == (ProfileLimits{}) {
		opts.Limits = DefaultProfileLimits()
	}
	draft := models.NewProfileDraft()
	draft.DisplayName = strings.TrimSpace(opts.InitialDisplayName)

	return &ProfileDraftStore{
		profiles: profiles,
		encoder:  encoder,
		limits:   opts.Limits,
		window:   opts.SavedStatusWindow,
		logger:   opts.Logger.With().Str("component", "profile_draft").Logger(),
		draft:    draft,
		status:   models.ProfileStatusIdle,
	}
}

// Hydrate loads the stored profile once and fills only the fields still empty in the draft.
// Load failures are logged and ignored. It reports whether a stored profile was applied.
func (s *ProfileDraftStore) Hydrate(ctx context.Context) bool {
	s.mu.Lock()
	if s.hydrated {
		s.mu.Unlock()
		return false
	}
	s.hydrated = true
	startRevision := s.revision
	s.mu.Unlock()

	stored, err := s.profiles.LoadProfile(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("profile load failed; continuing with local draft")
		return false
	}
	if stored == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	preservedLocal := mergeStoredProfile(&s.draft, stored)
	s.hasLoadedProfile = true
	s.revision++
	if !preservedLocal && startRevision == s.revision-1 {
		s.hasSaved = true
		s.savedRevision = s.revision
	}
	s.logger.Debug().Bool("preserved_local", preservedLocal).Msg("profile hydrated")
	return true
}

// mergeStoredProfile fills empty draft fields from stored and reports whether any local value was kept over a stored one
func mergeStoredProfile(draft *models.ProfileDraft, stored *models.StoredProfile) bool {
	preserved := false
	fillText := func(dst *string, src string) {
		src = strings.TrimSpace(src)
		if strings.TrimSpace(*dst) == "" {
			*dst = src
			return
		}
		if strings.TrimSpace(*dst) != src {
			preserved = true
		}
	}
	deref := func(p *string) string {
		if p == nil {
			return ""
		}
		return *p
	}

	fillText(&draft.DisplayName, stored.DisplayName)
	fillText(&draft.Bio, stored.Bio)
	fillText(&draft.WhatsAppNumber, deref(stored.WhatsAppNumber))
	fillText(&draft.LinkedInURL, deref(stored.LinkedInURL))
	fillText(&draft.InstagramURL, deref(stored.InstagramURL))

	if len(draft.Cities) == 0 {
		draft.Cities = utils.NormalizeIDs(stored.Cities)
	} else if !slices.Equal(draft.Cities, stored.Cities) {
		preserved = true
	}
	if len(draft.Interests) == 0 {
		draft.Interests = utils.NormalizeIDs(stored.Interests)
	} else if !slices.Equal(draft.Interests, stored.Interests) {
		preserved = true
	}

	if draft.Photo == nil && draft.ExistingPhotoURL == "" {
		draft.ExistingPhotoURL = stored.PhotoURL
	} else if draft.Photo != nil {
		preserved = true
	}
	if draft.UpdatedAt == nil {
		draft.UpdatedAt = utils.TimeToUTCPtr(stored.UpdatedAt)
	}
	return preserved
}

// UpdateField sets one text field. It is always permitted and demotes a saved draft.
func (s *ProfileDraftStore) UpdateField(field models.ProfileField, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.draft.SetField(field, value) {
		return NewBusinessError("UNKNOWN_FIELD", fmt.Sprintf("unknown profile field %q", field), ErrUnknownField)
	}
	s.touchLocked()
	return nil
}

// ApplyPatch shallow-merges the non-nil text fields of patch as a single mutation
func (s *ProfileDraftStore) ApplyPatch(patch models.ProfileDraftPatch) error {
	fields := patch.Fields()
	if len(fields) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, fv := range fields {
		s.draft.SetField(fv.Field, fv.Value)
	}
	s.touchLocked()
	return nil
}

// SetPhoto encodes file and stores it as the pending photo. A nil file clears both the
// pending photo and the stored photo reference. On encoding failure the draft is unchanged.
func (s *ProfileDraftStore) SetPhoto(ctx context.Context, file *services.PhotoFile) error {
	if file == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.draft.Photo = nil
		s.draft.ExistingPhotoURL = ""
		s.touchLocked()
		return nil
	}

	photo, err := s.encoder.Encode(ctx, file)
	if err != nil {
		s.logger.Info().Err(err).Str("file_name", file.FileName).Msg("photo encoding failed")
		return NewBusinessError("PHOTO_ENCODING_FAILED", msgPhotoUnreadable, fmt.Errorf("%w: %w", ErrPhotoEncoding, err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft.Photo = photo
	s.touchLocked()
	return nil
}

// UpdateCities replaces the city list after trimming and de-duplicating it.
// A list over the configured maximum is ignored and reported as false.
func (s *ProfileDraftStore) UpdateCities(cities []string) bool {
	normalized := utils.NormalizeIDs(cities)
	if len(normalized) > s.limits.CitiesMax {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if slices.Equal(normalized, s.draft.Cities) {
		return true
	}
	s.draft.Cities = normalized
	s.touchLocked()
	return true
}

// ToggleInterest removes id if selected, otherwise adds it when under the maximum.
// It reports whether the selection changed.
func (s *ProfileDraftStore) ToggleInterest(id string) bool {
	id = strings.TrimSpace(id)
	if id == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next := ToggleInterestSelection(s.draft.Interests, id, s.limits)
	if slices.Equal(next, s.draft.Interests) {
		return false
	}
	s.draft.Interests = next
	s.touchLocked()
	return true
}

// SelectInterest adds id unless it is already selected or the limit is reached.
// It reports whether id is selected afterwards.
func (s *ProfileDraftStore) SelectInterest(id string) bool {
	id = strings.TrimSpace(id)
	if id == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if IsInterestSelected(s.draft, id) {
		return true
	}
	if !CanSelectInterest(s.draft, s.limits) {
		return false
	}
	s.draft.Interests = append(slices.Clone(s.draft.Interests), id)
	s.touchLocked()
	return true
}

// RemoveInterest drops id from the selection and reports whether it was selected
func (s *ProfileDraftStore) RemoveInterest(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := slices.Index(s.draft.Interests, id)
	if idx < 0 {
		return false
	}
	s.draft.Interests = slices.Delete(slices.Clone(s.draft.Interests), idx, idx+1)
	s.touchLocked()
	return true
}

// SubmitProfile validates and persists the draft. An invalid draft never reaches the profile service.
// Overlapping submissions are rejected with ErrSubmitInFlight.
func (s *ProfileDraftStore) SubmitProfile(ctx context.Context) error {
	s.mu.Lock()
	s.attemptedSubmit = true
	if s.submitting {
		s.mu.Unlock()
		return NewBusinessError("SUBMIT_IN_FLIGHT", "Your profile is already being saved.", ErrSubmitInFlight)
	}
	validation := ValidateProfileDraft(s.draft, s.limits)
	if !validation.IsValid {
		s.submitError = msgValidationFailed
		s.mu.Unlock()
		profileSubmissions.WithLabelValues("invalid").Inc()
		return NewBusinessError("PROFILE_INVALID", msgValidationFailed, ErrProfileInvalid).WithDetails(validation.Errors)
	}
	s.submitting = true
	s.submitError = ""
	s.setStatusLocked(models.ProfileStatusSaving)
	snapshot := s.draft.Clone()
	submittedRevision := s.revision
	s.mu.Unlock()

	saved, err := s.profiles.SaveProfile(ctx, snapshot)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitting = false

	if err != nil {
		message := services.ServiceMessage(err)
		if message == "" {
			message = msgSaveFailed
		}
		s.submitError = message
		s.setStatusLocked(models.ProfileStatusError)
		profileSubmissions.WithLabelValues("failed").Inc()
		s.logger.Warn().Err(err).Msg("profile save failed")
		return NewBusinessError("PROFILE_SAVE_FAILED", message, fmt.Errorf("%w: %w", ErrProfileSaveFailed, err))
	}

	updatedAt := utils.UTCNowPtr()
	if saved != nil && saved.UpdatedAt != nil {
		updatedAt = utils.TimeToUTCPtr(saved.UpdatedAt)
	}
	s.draft.UpdatedAt = updatedAt
	if saved != nil && saved.PhotoURL != "" {
		s.draft.ExistingPhotoURL = saved.PhotoURL
		if s.draft.Photo != nil && snapshot.Photo != nil && s.draft.Photo.DataURL == snapshot.Photo.DataURL {
			s.draft.Photo = nil
		}
	}

	s.hasSaved = true
	s.savedRevision = submittedRevision
	if submittedRevision == s.revision {
		s.setStatusLocked(models.ProfileStatusSaved)
		s.scheduleIdleLocked()
	} else {
		s.setStatusLocked(models.ProfileStatusIdle)
	}
	profileSubmissions.WithLabelValues("saved").Inc()
	return nil
}

// Snapshot returns a consistent copy of the draft and its derived state
func (s *ProfileDraftStore) Snapshot() ProfileDraftSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	validation := ValidateProfileDraft(s.draft, s.limits)
	saved := s.isSavedLocked()
	return ProfileDraftSnapshot{
		Draft:            s.draft.Clone(),
		Validation:       validation,
		Status:           s.status,
		SubmitError:      s.submitError,
		AttemptedSubmit:  s.attemptedSubmit,
		HasLoadedProfile: s.hasLoadedProfile,
		IsSaved:          saved,
		IsComplete:       validation.IsValid,
		CanRequestIntros: validation.IsValid && saved,
	}
}

// Draft returns a copy of the current draft
func (s *ProfileDraftStore) Draft() models.ProfileDraft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.Clone()
}

// Validation recomputes the validation result from the current draft
func (s *ProfileDraftStore) Validation() ValidationResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ValidateProfileDraft(s.draft, s.limits)
}

// Status returns the persistence status
func (s *ProfileDraftStore) Status() models.ProfileStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// SubmitError returns the last user-facing submit error
func (s *ProfileDraftStore) SubmitError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitError
}

// IsSaved reports whether the last successful save happened after the most recent mutation
func (s *ProfileDraftStore) IsSaved() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isSavedLocked()
}

// IsComplete reports whether the draft passes validation
func (s *ProfileDraftStore) IsComplete() bool {
	return s.Validation().IsValid
}

// CanRequestIntros reports whether the draft is complete and saved
func (s *ProfileDraftStore) CanRequestIntros() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isSavedLocked() && ValidateProfileDraft(s.draft, s.limits).IsValid
}

// CanSelectInterest reports whether another interest fits under the limit
func (s *ProfileDraftStore) CanSelectInterest() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return CanSelectInterest(s.draft, s.limits)
}

// Limits returns the limits the store validates against
func (s *ProfileDraftStore) Limits() ProfileLimits {
	return s.limits
}

// Close stops the pending saved->idle timer
func (s *ProfileDraftStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimerLocked()
}

func (s *ProfileDraftStore) isSavedLocked() bool {
	return s.hasSaved && s.savedRevision == s.revision
}

func (s *ProfileDraftStore) touchLocked() {
	s.revision++
	if s.status == models.ProfileStatusSaved {
		s.setStatusLocked(models.ProfileStatusIdle)
	}
}

func (s *ProfileDraftStore) setStatusLocked(status models.ProfileStatus) {
	s.statusGen++
	s.stopTimerLocked()
	s.status = status
}

func (s *ProfileDraftStore) scheduleIdleLocked() {
	gen := s.statusGen
	s.resetTimer = time.AfterFunc(s.window, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.statusGen == gen && s.status == models.ProfileStatusSaved {
			s.status = models.ProfileStatusIdle
		}
	})
}

func (s *ProfileDraftStore) stopTimerLocked() {
	if s.resetTimer != nil {
		s.resetTimer.Stop()
		s.resetTimer = nil
	}
}
