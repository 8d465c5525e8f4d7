// Package credstore persists the four session artifacts (id token, subject,
// email, refresh token) in a local SQLite key-value table.
//
// The read side is default-deny: a row set that is anything other than
// "all four present" is reported as no session at all, so a torn write can
// only ever force a fresh sign-in, never produce a half-valid session.
package credstore

import "context"

// Store keys. All four are written together or not at all.
const (
	KeyIDToken      = "idToken"
	KeyUserSub      = "userSub"
	KeyUserEmail    = "userEmail"
	KeyRefreshToken = "refreshToken"
)

// PersistedSession is the durable form of an established session.
type PersistedSession struct {
	IDToken      string
	UserSub      string
	UserEmail    string
	RefreshToken string
}

// Repository is the durable credential store consumed by the session manager.
//
// Contract:
//   - Save: writes all four artifacts atomically.
//   - Load: returns (nil, nil) unless all four artifacts are present.
//   - Clear: removes everything; safe to call when nothing is stored.
type Repository interface {
	Save(ctx context.Context, s *PersistedSession) error
	Load(ctx context.Context) (*PersistedSession, error)
	Clear(ctx context.Context) error
}
