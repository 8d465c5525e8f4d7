// Package common defines shared constants and sentinel errors used across
// the QConnect client. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Token structure errors (wrong segment count, missing required claim).
	ErrMalformedToken = errors.New("malformed token")

	// Session lifecycle errors.
	ErrNotSignedIn   = errors.New("not signed in")
	ErrRefreshFailed = errors.New("refresh failed")
)
