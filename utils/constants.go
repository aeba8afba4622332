package utils

import (
	"time"
)

// Profile limits
const (
	DisplayNameMinLength = 3
	DisplayNameMaxLength = 80

	BioMinLength = 60
	BioMaxLength = 320

	// SocialLinkMaxLength applies to LinkedIn and Instagram handles
	SocialLinkMaxLength = 160

	CitiesMin    = 1
	CitiesMax    = 3
	InterestsMin = 1
	InterestsMax = 3

	WhatsAppMinDigits = 8
	WhatsAppMaxDigits = 15
	WhatsAppMaxLength = 24

	// SavedStatusWindow is how long a draft reports "saved" before returning to idle
	SavedStatusWindow = 2500 * time.Millisecond
)

// Match limits
const (
	DefaultMatchLimit = 5
	MaxMatchLimit     = 20
)

// WhatsApp dispatch constants
const (
	// DispatchDebounceWindow suppresses identical dispatches issued back to back
	DispatchDebounceWindow = time.Second

	WhatsAppDesktopEndpoint = "https://web.whatsapp.com/send"
)

// WhatsAppHosts are the messaging-link hosts rewritten for desktop delivery
var WhatsAppHosts = []string{
	"wa.me",
	"api.whatsapp.com",
	"web.whatsapp.com",
	"whatsapp.com",
	"www.whatsapp.com",
}

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Backend headers
const (
	UserIDHeader = "x-pick-user-id"
)
