// Package provider defines the identity-provider interface the session
// manager consumes, plus the AWS Cognito implementation used in production.
package provider

import "context"

// Tokens is the payload of a successful password sign-in.
//
// AccessToken is the bearer token attached to outbound API requests (the
// provider's ID token). RefreshToken is the longer-lived credential used to
// obtain new access tokens without re-entering a password.
type Tokens struct {
	AccessToken  string
	RefreshToken string
}

// Client is the identity-provider surface required by the session manager.
//
// Contract:
//   - SignUp: create a new account; the user must confirm it before sign-in.
//   - ConfirmSignUp: confirm the account with the emailed 6-digit code.
//   - PasswordSignIn: exchange email+password for an access/refresh pair.
//   - Refresh: exchange the refresh token for a new access token. The
//     refresh token itself is NOT rotated and stays valid until sign-out
//     or server-side revocation.
//   - Close: release underlying resources.
//
// All methods must honor context cancellation/timeouts. Network-level
// timeouts are the implementation's concern, not the caller's.
type Client interface {
	SignUp(ctx context.Context, email string, password []byte) error
	ConfirmSignUp(ctx context.Context, email, code string) error
	PasswordSignIn(ctx context.Context, email string, password []byte) (*Tokens, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Close() error
}
