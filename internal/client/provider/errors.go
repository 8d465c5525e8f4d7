package provider

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotConfirmed   = errors.New("user not confirmed")
	ErrInvalidCode        = errors.New("invalid or expired confirmation code")
	ErrUserExists         = errors.New("user already exists")
	ErrUnavailable        = errors.New("identity provider unavailable")
)
