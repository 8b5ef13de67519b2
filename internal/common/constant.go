package common

const (
	// AuthorizationHeaderName carries the bearer token on inbound HTTP requests
	// and as gRPC metadata.
	AuthorizationHeaderName = "Authorization"

	// BearerScheme is the authorization scheme accepted for access tokens.
	BearerScheme = "Bearer"

	// RequestIDHeaderName is echoed on every HTTP response.
	RequestIDHeaderName = "X-Request-ID"
)
