package auth

import "errors"

var (
	// ErrMissingSecret is returned when a codec is constructed without a
	// signing secret configured.
	ErrMissingSecret = errors.New("auth: signing secret is not configured")

	// ErrInvalidToken indicates the token failed signature or claim checks.
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrTokenExpired indicates a well-formed token past its expiry.
	ErrTokenExpired = errors.New("auth: token expired")
)
