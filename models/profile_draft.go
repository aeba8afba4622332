package models

import (
	"slices"
	"time"
)

// ProfileField names an editable text field of a ProfileDraft.
// Values double as the keys of validation error maps.
type ProfileField string

const (
	ProfileFieldDisplayName    ProfileField = "displayName"
	ProfileFieldBio            ProfileField = "bio"
	ProfileFieldWhatsAppNumber ProfileField = "whatsappNumber"
	ProfileFieldLinkedInURL    ProfileField = "linkedinUrl"
	ProfileFieldInstagramURL   ProfileField = "instagramUrl"
	ProfileFieldPhoto          ProfileField = "photo"
	ProfileFieldCities         ProfileField = "cities"
	ProfileFieldInterests      ProfileField = "interests"
)

// TextProfileFields lists the fields UpdateField accepts.
var TextProfileFields = []ProfileField{
	ProfileFieldDisplayName,
	ProfileFieldBio,
	ProfileFieldWhatsAppNumber,
	ProfileFieldLinkedInURL,
	ProfileFieldInstagramURL,
}

// IsTextField reports whether f is a free-text field.
func (f ProfileField) IsTextField() bool {
	return slices.Contains(TextProfileFields, f)
}

// ProfileStatus is the persistence state of a draft.
type ProfileStatus string

const (
	ProfileStatusIdle   ProfileStatus = "idle"
	ProfileStatusSaving ProfileStatus = "saving"
	ProfileStatusSaved  ProfileStatus = "saved"
	ProfileStatusError  ProfileStatus = "error"
)

// ProfilePhoto is a locally selected photo encoded as a data URL, not yet uploaded.
type ProfilePhoto struct {
	DataURL      string `json:"dataUrl"`
	FileName     string `json:"fileName"`
	FileSize     int64  `json:"fileSize"`
	LastModified int64  `json:"lastModified"`
}

// ProfileDraft is the editable unit of a user's public profile.
// Cities is ordered; the first entry is the primary city.
type ProfileDraft struct {
	DisplayName      string        `json:"displayName"`
	Bio              string        `json:"bio"`
	WhatsAppNumber   string        `json:"whatsappNumber"`
	LinkedInURL      string        `json:"linkedinUrl"`
	InstagramURL     string        `json:"instagramUrl"`
	Cities           []string      `json:"cities"`
	Interests        []string      `json:"interests"`
	Photo            *ProfilePhoto `json:"photo,omitempty"`
	ExistingPhotoURL string        `json:"existingPhotoUrl,omitempty"`
	UpdatedAt        *time.Time    `json:"updatedAt,omitempty"`
}

// NewProfileDraft returns an empty draft with non-nil collections.
func NewProfileDraft() ProfileDraft {
	return ProfileDraft{
		Cities:    []string{},
		Interests: []string{},
	}
}

// Clone returns a deep copy of the draft.
func (d ProfileDraft) Clone() ProfileDraft {
	out := d
	out.Cities = slices.Clone(d.Cities)
	if out.Cities == nil {
		out.Cities = []string{}
	}
	out.Interests = slices.Clone(d.Interests)
	if out.Interests == nil {
		out.Interests = []string{}
	}
	if d.Photo != nil {
		p := *d.Photo
		out.Photo = &p
	}
	if d.UpdatedAt != nil {
		t := *d.UpdatedAt
		out.UpdatedAt = &t
	}
	return out
}

// Field returns the value of a text field.
func (d ProfileDraft) Field(f ProfileField) (string, bool) {
	switch f {
	case ProfileFieldDisplayName:
		return d.DisplayName, true
	case ProfileFieldBio:
		return d.Bio, true
	case ProfileFieldWhatsAppNumber:
		return d.WhatsAppNumber, true
	case ProfileFieldLinkedInURL:
		return d.LinkedInURL, true
	case ProfileFieldInstagramURL:
		return d.InstagramURL, true
	}
	return "", false
}

// SetField assigns a text field. It reports false for unknown or non-text fields.
func (d *ProfileDraft) SetField(f ProfileField, value string) bool {
	switch f {
	case ProfileFieldDisplayName:
		d.DisplayName = value
	case ProfileFieldBio:
		d.Bio = value
	case ProfileFieldWhatsAppNumber:
		d.WhatsAppNumber = value
	case ProfileFieldLinkedInURL:
		d.LinkedInURL = value
	case ProfileFieldInstagramURL:
		d.InstagramURL = value
	default:
		return false
	}
	return true
}

// PhotoPreviewURL is the photo a client should render: a pending local photo wins over the stored one.
func (d ProfileDraft) PhotoPreviewURL() string {
	if d.Photo != nil && d.Photo.DataURL != "" {
		return d.Photo.DataURL
	}
	return d.ExistingPhotoURL
}

// ProfileDraftPatch is a shallow merge of text fields. Nil entries are left untouched.
type ProfileDraftPatch struct {
	DisplayName    *string `json:"displayName,omitempty"`
	Bio            *string `json:"bio,omitempty"`
	WhatsAppNumber *string `json:"whatsappNumber,omitempty"`
	LinkedInURL    *string `json:"linkedinUrl,omitempty"`
	InstagramURL   *string `json:"instagramUrl,omitempty"`
}

// Fields flattens the patch into field/value pairs in declaration order.
func (p ProfileDraftPatch) Fields() []ProfileFieldValue {
	var out []ProfileFieldValue
	add := func(f ProfileField, v *string) {
		if v != nil {
			out = append(out, ProfileFieldValue{Field: f, Value: *v})
		}
	}
	add(ProfileFieldDisplayName, p.DisplayName)
	add(ProfileFieldBio, p.Bio)
	add(ProfileFieldWhatsAppNumber, p.WhatsAppNumber)
	add(ProfileFieldLinkedInURL, p.LinkedInURL)
	add(ProfileFieldInstagramURL, p.InstagramURL)
	return out
}

// ProfileFieldValue pairs a text field with a value.
type ProfileFieldValue struct {
	Field ProfileField
	Value string
}

// StoredProfile is a profile as returned by the profile service.
type StoredProfile struct {
	DisplayName    string     `json:"displayName"`
	Bio            string     `json:"bio"`
	WhatsAppNumber *string    `json:"whatsappNumber,omitempty"`
	LinkedInURL    *string    `json:"linkedinUrl,omitempty"`
	InstagramURL   *string    `json:"instagramUrl,omitempty"`
	Cities         []string   `json:"cities"`
	Interests      []string   `json:"interests"`
	PhotoURL       string     `json:"photoUrl,omitempty"`
	UpdatedAt      *time.Time `json:"updatedAt,omitempty"`
}

// SavedProfile is the result of a successful save.
type SavedProfile struct {
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
	PhotoURL  string     `json:"photoUrl,omitempty"`
}
