package utils

type contextKey string

// Request-scoped context keys
const (
	RequestIDKey   contextKey = "request_id"
	UserAgentKey   contextKey = "user_agent"
	IPAddressKey   contextKey = "ip_address"
	EndpointKey    contextKey = "endpoint"
	TimeoutKey     contextKey = "timeout"
	UserIDKey      contextKey = "user_id"
	AccessTokenKey contextKey = "access_token"
)
