package businessflow

import (
	"strings"
	"testing"

	"github.com/amirphl/pick-intro/models"
	testingutil "github.com/amirphl/pick-intro/testing"
	"github.com/stretchr/testify/assert"
)

func TestValidateProfileDraft(t *testing.T) {
	limits := DefaultProfileLimits()

	t.Run("ValidDraft", func(t *testing.T) {
		result := ValidateProfileDraft(testingutil.ValidDraft(), limits)
		assert.True(t, result.IsValid)
		assert.Empty(t, result.Errors)
	})

	t.Run("EmptyDraftFlagsEveryRequiredField", func(t *testing.T) {
		result := ValidateProfileDraft(models.NewProfileDraft(), limits)
		assert.False(t, result.IsValid)
		for _, field := range []models.ProfileField{
			models.ProfileFieldDisplayName,
			models.ProfileFieldBio,
			models.ProfileFieldWhatsAppNumber,
			models.ProfileFieldPhoto,
			models.ProfileFieldCities,
			models.ProfileFieldInterests,
		} {
			assert.Contains(t, result.Errors, field)
		}
		assert.NotContains(t, result.Errors, models.ProfileFieldLinkedInURL)
		assert.NotContains(t, result.Errors, models.ProfileFieldInstagramURL)
	})

	t.Run("IsIdempotent", func(t *testing.T) {
		draft := testingutil.ValidDraft()
		draft.Bio = "too short"
		assert.Equal(t, ValidateProfileDraft(draft, limits), ValidateProfileDraft(draft, limits))
	})
}

func TestValidateTextLengths(t *testing.T) {
	limits := DefaultProfileLimits()

	tests := []struct {
		name  string
		field models.ProfileField
		value string
		valid bool
	}{
		{"DisplayNameTooShort", models.ProfileFieldDisplayName, "Al", false},
		{"DisplayNameOK", models.ProfileFieldDisplayName, "Alice Smith", true},
		{"DisplayNamePaddedTooShort", models.ProfileFieldDisplayName, "  Jo  ", false},
		{"DisplayNamePaddedOK", models.ProfileFieldDisplayName, "  Joe  ", true},
		{"DisplayNameTooLong", models.ProfileFieldDisplayName, strings.Repeat("a", 81), false},
		{"DisplayNameCountsRunes", models.ProfileFieldDisplayName, "Zoë", true},
		{"Bio59", models.ProfileFieldBio, strings.Repeat("b", 59), false},
		{"Bio60", models.ProfileFieldBio, strings.Repeat("b", 60), true},
		{"Bio320", models.ProfileFieldBio, strings.Repeat("b", 320), true},
		{"Bio321", models.ProfileFieldBio, strings.Repeat("b", 321), false},
		{"LinkedIn160", models.ProfileFieldLinkedInURL, strings.Repeat("l", 160), true},
		{"LinkedIn161", models.ProfileFieldLinkedInURL, strings.Repeat("l", 161), false},
		{"Instagram161", models.ProfileFieldInstagramURL, strings.Repeat("i", 161), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft := testingutil.ValidDraft()
			draft.SetField(tt.field, tt.value)
			result := ValidateProfileDraft(draft, limits)
			_, hasError := result.Errors[tt.field]
			assert.Equal(t, tt.valid, !hasError, result.Errors[tt.field])
			assert.Equal(t, tt.valid, result.IsValid)
		})
	}
}

func TestValidateWhatsAppNumber(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		required bool
		valid    bool
	}{
		{"EmptyRequired", "", true, false},
		{"EmptyOptional", "   ", false, true},
		{"Formatted", "+1 (555) 123-4567", true, true},
		{"Letters", "+1 555 CALL ME", true, false},
		{"TooFewDigits", "+1 555 12", true, false},
		{"TooManyDigits", "+1234567890123456", true, false},
		{"TooLong", "+1 5 5 5 1 2 3 4 5 6 7 8 9", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limits := DefaultProfileLimits()
			limits.WhatsAppRequired = tt.required
			draft := testingutil.ValidDraft()
			draft.WhatsAppNumber = tt.value
			_, hasError := ValidateProfileDraft(draft, limits).Errors[models.ProfileFieldWhatsAppNumber]
			assert.Equal(t, tt.valid, !hasError)
		})
	}
}

func TestValidatePhotoAndCollections(t *testing.T) {
	limits := DefaultProfileLimits()

	t.Run("PendingPhotoIsEnough", func(t *testing.T) {
		draft := testingutil.ValidDraft()
		draft.ExistingPhotoURL = ""
		draft.Photo = &models.ProfilePhoto{DataURL: "data:image/jpeg;base64,AAAA"}
		assert.True(t, ValidateProfileDraft(draft, limits).IsValid)
	})

	t.Run("MissingPhoto", func(t *testing.T) {
		draft := testingutil.ValidDraft()
		draft.ExistingPhotoURL = ""
		assert.Contains(t, ValidateProfileDraft(draft, limits).Errors, models.ProfileFieldPhoto)
	})

	cities := []struct {
		name   string
		cities []string
		valid  bool
	}{
		{"NoCities", []string{}, false},
		{"ThreeCities", []string{"lisbon", "porto", "madrid"}, true},
		{"FourCities", []string{"lisbon", "porto", "madrid", "paris"}, false},
		{"DuplicateCity", []string{"lisbon", "lisbon"}, false},
	}
	for _, tt := range cities {
		t.Run(tt.name, func(t *testing.T) {
			draft := testingutil.ValidDraft()
			draft.Cities = tt.cities
			_, hasError := ValidateProfileDraft(draft, limits).Errors[models.ProfileFieldCities]
			assert.Equal(t, tt.valid, !hasError)
		})
	}

	t.Run("InterestRange", func(t *testing.T) {
		draft := testingutil.ValidDraft()
		draft.Interests = nil
		assert.Contains(t, ValidateProfileDraft(draft, limits).Errors, models.ProfileFieldInterests)
		draft.Interests = []string{"a", "b", "c", "d"}
		assert.Contains(t, ValidateProfileDraft(draft, limits).Errors, models.ProfileFieldInterests)
		draft.Interests = []string{"a", "b", "c"}
		assert.NotContains(t, ValidateProfileDraft(draft, limits).Errors, models.ProfileFieldInterests)
	})
}

func TestToggleInterestSelection(t *testing.T) {
	limits := DefaultProfileLimits()

	t.Run("ToggleTwiceRestores", func(t *testing.T) {
		start := []string{"jazz", "hiking"}
		once := ToggleInterestSelection(start, "coffee", limits)
		assert.Equal(t, []string{"jazz", "hiking", "coffee"}, once)
		assert.Equal(t, start, ToggleInterestSelection(once, "coffee", limits))
	})

	t.Run("RemovesSelected", func(t *testing.T) {
		assert.Equal(t, []string{"hiking"}, ToggleInterestSelection([]string{"jazz", "hiking"}, "jazz", limits))
	})

	t.Run("FullSelectionIgnoresNewIDs", func(t *testing.T) {
		full := []string{"a", "b", "c"}
		assert.Equal(t, full, ToggleInterestSelection(full, "d", limits))
		assert.False(t, CanSelectInterest(models.ProfileDraft{Interests: full}, limits))
	})

	t.Run("DoesNotMutateInput", func(t *testing.T) {
		start := []string{"jazz"}
		_ = ToggleInterestSelection(start, "jazz", limits)
		assert.Equal(t, []string{"jazz"}, start)
	})
}

func TestCountDigits(t *testing.T) {
	assert.Equal(t, 11, CountDigits("+1 (555) 123-4567"))
	assert.Equal(t, 0, CountDigits("phone"))
}
