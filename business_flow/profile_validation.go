package businessflow

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/amirphl/pick-intro/config"
	"github.com/amirphl/pick-intro/models"
	"github.com/amirphl/pick-intro/utils"
)

var whatsAppShape = regexp.MustCompile(`^\+?[0-9()\-\s]+$`)

// ProfileLimits bounds every draft field. Text lengths count runes after trimming.
type ProfileLimits struct {
	DisplayNameMin    int
	DisplayNameMax    int
	BioMin            int
	BioMax            int
	SocialLinkMax     int
	CitiesMin         int
	CitiesMax         int
	InterestsMin      int
	InterestsMax      int
	WhatsAppRequired  bool
	WhatsAppMinDigits int
	WhatsAppMaxDigits int
	WhatsAppMaxLength int
}

// DefaultProfileLimits returns the product defaults
func DefaultProfileLimits() ProfileLimits {
	return ProfileLimits{
		DisplayNameMin:    utils.DisplayNameMinLength,
		DisplayNameMax:    utils.DisplayNameMaxLength,
		BioMin:            utils.BioMinLength,
		BioMax:            utils.BioMaxLength,
		SocialLinkMax:     utils.SocialLinkMaxLength,
		CitiesMin:         utils.CitiesMin,
		CitiesMax:         utils.CitiesMax,
		InterestsMin:      utils.InterestsMin,
		InterestsMax:      utils.InterestsMax,
		WhatsAppRequired:  true,
		WhatsAppMinDigits: utils.WhatsAppMinDigits,
		WhatsAppMaxDigits: utils.WhatsAppMaxDigits,
		WhatsAppMaxLength: utils.WhatsAppMaxLength,
	}
}

// ProfileLimitsFromConfig overlays configured limits on the defaults
func ProfileLimitsFromConfig(cfg *config.ProfileConfig) ProfileLimits {
	limits := DefaultProfileLimits()
	limits.WhatsAppRequired = cfg.WhatsAppRequired
	if cfg.WhatsAppMinDigits > 0 {
		limits.WhatsAppMinDigits = cfg.WhatsAppMinDigits
	}
	if cfg.WhatsAppMaxDigits > 0 {
		limits.WhatsAppMaxDigits = cfg.WhatsAppMaxDigits
	}
	if cfg.WhatsAppMaxLength > 0 {
		limits.WhatsAppMaxLength = cfg.WhatsAppMaxLength
	}
	if cfg.CitiesMax > 0 {
		limits.CitiesMax = cfg.CitiesMax
	}
	if cfg.InterestsMax > 0 {
		limits.InterestsMax = cfg.InterestsMax
	}
	return limits
}

// ValidationResult maps each invalid field to a user-facing message. A field absent from Errors is valid.
type ValidationResult struct {
	IsValid bool                           `json:"isValid"`
	Errors  map[models.ProfileField]string `json:"errors"`
}

// ValidateProfileDraft checks every field of draft. It has no side effects.
func ValidateProfileDraft(draft models.ProfileDraft, limits ProfileLimits) ValidationResult {
	errs := make(map[models.ProfileField]string)

	if n := trimmedLen(draft.DisplayName); n < limits.DisplayNameMin || n > limits.DisplayNameMax {
		errs[models.ProfileFieldDisplayName] = fmt.Sprintf("Display name must contain between %d and %d characters.", limits.DisplayNameMin, limits.DisplayNameMax)
	}

	if n := trimmedLen(draft.Bio); n < limits.BioMin || n > limits.BioMax {
		errs[models.ProfileFieldBio] = fmt.Sprintf("Share between %d and %d characters to contextualize your matches.", limits.BioMin, limits.BioMax)
	}

	if !validWhatsApp(draft.WhatsAppNumber, limits) {
		errs[models.ProfileFieldWhatsAppNumber] = "Enter your WhatsApp with country code and a valid number."
	}

	if trimmedLen(draft.LinkedInURL) > limits.SocialLinkMax {
		errs[models.ProfileFieldLinkedInURL] = fmt.Sprintf("LinkedIn profiles must be at most %d characters.", limits.SocialLinkMax)
	}
	if trimmedLen(draft.InstagramURL) > limits.SocialLinkMax {
		errs[models.ProfileFieldInstagramURL] = fmt.Sprintf("Instagram profiles must be at most %d characters.", limits.SocialLinkMax)
	}

	if draft.Photo == nil && strings.TrimSpace(draft.ExistingPhotoURL) == "" {
		errs[models.ProfileFieldPhoto] = "Upload a clear photo to build trust."
	}

	switch {
	case len(draft.Cities) < limits.CitiesMin:
		errs[models.ProfileFieldCities] = "Select at least one city where you can meet."
	case len(draft.Cities) > limits.CitiesMax:
		errs[models.ProfileFieldCities] = fmt.Sprintf("Choose up to %d cities to stay focused.", limits.CitiesMax)
	case hasDuplicates(draft.Cities):
		errs[models.ProfileFieldCities] = "Each city can only be selected once."
	}

	if n := len(draft.Interests); n < limits.InterestsMin || n > limits.InterestsMax {
		errs[models.ProfileFieldInterests] = fmt.Sprintf("Select between %d and %d interests.", limits.InterestsMin, limits.InterestsMax)
	}

	return ValidationResult{
		IsValid: len(errs) == 0,
		Errors:  errs,
	}
}

// CountDigits counts ASCII digits in s
func CountDigits(s string) int {
	return len(utils.DigitsOnly(s))
}

// CanSelectInterest reports whether another interest fits under the limit
func CanSelectInterest(draft models.ProfileDraft, limits ProfileLimits) bool {
	return len(draft.Interests) < limits.InterestsMax
}

// IsInterestSelected reports whether id is in the draft's interests
func IsInterestSelected(draft models.ProfileDraft, id string) bool {
	return slices.Contains(draft.Interests, id)
}

// ToggleInterestSelection returns a copy of interests with id removed if present, or appended if under the limit
func ToggleInterestSelection(interests []string, id string, limits ProfileLimits) []string {
	if idx := slices.Index(interests, id); idx >= 0 {
		return slices.Delete(slices.Clone(interests), idx, idx+1)
	}
	if len(interests) >= limits.InterestsMax {
		return slices.Clone(interests)
	}
	return append(slices.Clone(interests), id)
}

func validWhatsApp(raw string, limits ProfileLimits) bool {
	value := strings.TrimSpace(raw)
	if value == "" {
		return !limits.WhatsAppRequired
	}
	if utf8.RuneCountInString(value) > limits.WhatsAppMaxLength {
		return false
	}
	if !whatsAppShape.MatchString(value) {
		return false
	}
	digits := CountDigits(value)
	return digits >= limits.WhatsAppMinDigits && digits <= limits.WhatsAppMaxDigits
}

func trimmedLen(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}

func hasDuplicates(ids []string) bool {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return true
		}
		seen[id] = struct{}{}
	}
	return false
}
