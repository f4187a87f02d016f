package types

import "errors"

// Sentinel errors shared across services and handlers. Handlers map these to
// HTTP statuses via errors.Is; anything unrecognized becomes a 500.
var (
	ErrValidation     = errors.New("missing or malformed input")
	ErrConflict       = errors.New("item already exists or conflict")
	ErrNotFound       = errors.New("requested item not found")
	ErrBadCredentials = errors.New("invalid credentials")
	ErrUnauthorized   = errors.New("authentication required")
	ErrTokenInvalid   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token has expired")
	ErrTokenReused    = errors.New("refresh token is expired or already used")
	ErrInternal       = errors.New("internal error")
)
