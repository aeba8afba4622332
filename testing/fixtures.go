// Package testing provides test utilities, fixtures and fake collaborators for the intro service
package testing

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"time"

	"github.com/amirphl/pick-intro/app/services"
	"github.com/amirphl/pick-intro/models"
	"github.com/amirphl/pick-intro/utils"
	"github.com/google/uuid"
)

// Sample values that pass validation with the default limits
const (
	ValidDisplayName = "Alice Smith"
	ValidWhatsApp    = "+1 (555) 123-4567"
	DesktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36"
	MobileUserAgent  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
)

// ValidBio is 80 characters, inside the 60..320 range
var ValidBio = strings.Repeat("Coffee lover. ", 5) + "Into jazz and hikes."

// ValidDraft returns a draft that passes validation with the default limits
func ValidDraft() models.ProfileDraft {
	draft := models.NewProfileDraft()
	draft.DisplayName = ValidDisplayName
	draft.Bio = ValidBio
	draft.WhatsAppNumber = ValidWhatsApp
	draft.Cities = []string{"lisbon"}
	draft.Interests = []string{"jazz"}
	draft.ExistingPhotoURL = "https://cdn.pick.test/photos/alice.jpg"
	return draft
}

// StoredProfileFrom converts a draft into the shape the profile service returns
func StoredProfileFrom(draft models.ProfileDraft) *models.StoredProfile {
	stored := &models.StoredProfile{
		DisplayName: draft.DisplayName,
		Bio:         draft.Bio,
		Cities:      append([]string{}, draft.Cities...),
		Interests:   append([]string{}, draft.Interests...),
		PhotoURL:    draft.ExistingPhotoURL,
		UpdatedAt:   utils.UTCNowPtr(),
	}
	if draft.WhatsAppNumber != "" {
		stored.WhatsAppNumber = utils.ToPtr(draft.WhatsAppNumber)
	}
	if draft.LinkedInURL != "" {
		stored.LinkedInURL = utils.ToPtr(draft.LinkedInURL)
	}
	if draft.InstagramURL != "" {
		stored.InstagramURL = utils.ToPtr(draft.InstagramURL)
	}
	return stored
}

// SampleMatches returns n recommendations with distinct user ids
func SampleMatches(n int) []models.MatchRecommendation {
	matches := make([]models.MatchRecommendation, 0, n)
	for i := 1; i <= n; i++ {
		matches = append(matches, models.MatchRecommendation{
			UserID:          fmt.Sprintf("user-%d", i),
			DisplayName:     fmt.Sprintf("Match %d", i),
			SharedCities:    []string{"lisbon"},
			SharedInterests: []string{"jazz"},
			Score:           0.9 - float64(i)*0.05,
			Compatibility:   models.MatchCompatibilityStrong,
		})
	}
	return matches
}

// PNGBytes encodes a solid-colour PNG of the given size
func PNGBytes(width, height int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	fill := color.RGBA{R: 200, G: 80, B: 40, A: 255}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, fill)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// PhotoFile wraps raw bytes as an upload with a random file name
func PhotoFile(data []byte) *services.PhotoFile {
	return &services.PhotoFile{
		FileName:     uuid.NewString() + ".png",
		Size:         int64(len(data)),
		LastModified: time.Now(),
		Reader:       bytes.NewReader(data),
	}
}
