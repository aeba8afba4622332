// Package businessflow contains the core business logic for profile drafts, interests and match intros
package businessflow

import (
	"context"

	"github.com/amirphl/pick-intro/utils"
	"github.com/rs/zerolog"
)

// ClientMetadata holds the caller information flows use for logging and dispatch decisions
type ClientMetadata struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
	RequestID string `json:"request_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
}

// ClientMetadataFromContext reads the metadata the HTTP layer stored on ctx
func ClientMetadataFromContext(ctx context.Context) *ClientMetadata {
	value := func(key any) string {
		s, _ := ctx.Value(key).(string)
		return s
	}
	return &ClientMetadata{
		IPAddress: value(utils.IPAddressKey),
		UserAgent: value(utils.UserAgentKey),
		RequestID: value(utils.RequestIDKey),
		UserID:    value(utils.UserIDKey),
	}
}

// IsMobile reports whether the caller's User-Agent is a mobile browser
func (cm *ClientMetadata) IsMobile() bool {
	return IsMobileUserAgent(cm.UserAgent)
}

// LogContext adds the metadata to a logger
func (cm *ClientMetadata) LogContext(logger zerolog.Logger) zerolog.Logger {
	return logger.With().
		Str("request_id", cm.RequestID).
		Str("user_id", cm.UserID).
		Str("ip", cm.IPAddress).
		Logger()
}
