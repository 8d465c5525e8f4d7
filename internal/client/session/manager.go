// Package session orchestrates the credential store, claims decoding and the
// identity provider into a single session state machine.
//
// The manager is the only writer of session state. Everything the rest of
// the application needs — "am I signed in", "give me a token" — goes through
// its exported methods.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/qconnect/internal/claims"
	"github.com/dmitrijs2005/qconnect/internal/client/credstore"
	"github.com/dmitrijs2005/qconnect/internal/client/provider"
	"github.com/dmitrijs2005/qconnect/internal/common"
	"github.com/dmitrijs2005/qconnect/internal/logging"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// Status is the observable session state.
type Status string

const (
	StatusSignedOut  Status = "signed-out"
	StatusSignedIn   Status = "signed-in"
	StatusRefreshing Status = "refreshing"
)

const (
	// DefaultSkew is subtracted from the token expiry so a refresh happens
	// ahead of hard expiry rather than after it.
	DefaultSkew = 5 * time.Minute

	// DefaultRefreshWait bounds how long a caller blocks on an in-flight
	// refresh started by another caller.
	DefaultRefreshWait = 30 * time.Second
)

// refreshKey is the singleflight key: there is at most one refresh in
// flight, regardless of how many callers observed a stale token.
const refreshKey = "refresh"

// Manager owns the local session. All state transitions happen under mu,
// including credential-store writes, so the in-memory session and the
// persisted one cannot diverge through interleaving.
type Manager struct {
	provider provider.Client
	store    credstore.Repository

	now         func() time.Time
	skew        time.Duration
	refreshWait time.Duration

	mu           sync.Mutex
	status       Status
	idToken      string
	refreshToken string
	userSub      string
	userEmail    string
	pending      []func(context.Context)
	log          logging.Logger

	baseLog logging.Logger
	group   singleflight.Group
}

// Option configures a Manager.
type Option func(*Manager)

// WithNow sets the clock (primarily for testing).
func WithNow(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithSkew overrides the proactive-refresh margin.
func WithSkew(skew time.Duration) Option {
	return func(m *Manager) { m.skew = skew }
}

// WithRefreshWait overrides how long a caller waits on a refresh it did not
// start before giving up.
func WithRefreshWait(d time.Duration) Option {
	return func(m *Manager) { m.refreshWait = d }
}

// NewManager constructs a Manager in the SignedOut state.
func NewManager(p provider.Client, store credstore.Repository, log logging.Logger, options ...Option) (*Manager, error) {
	if p == nil {
		return nil, fmt.Errorf("provider is required")
	}
	if store == nil {
		return nil, fmt.Errorf("credential store is required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger is required")
	}

	m := &Manager{
		provider:    p,
		store:       store,
		baseLog:     log,
		log:         log,
		now:         time.Now,
		skew:        DefaultSkew,
		refreshWait: DefaultRefreshWait,
		status:      StatusSignedOut,
	}

	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

// logger returns the current session-scoped logger. The field is swapped on
// sign-in/sign-out, so reads go through the mutex.
func (m *Manager) logger() logging.Logger {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.log
}

// Restore re-establishes the session persisted by a previous run. Called
// once at process start.
//
// A stored token that is still valid restores the session without any
// network call. A stale or undecodable token triggers exactly one refresh
// attempt; if that fails the stored credentials are cleared and the manager
// stays signed out.
func (m *Manager) Restore(ctx context.Context) error {
	ps, err := m.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load stored session: %w", err)
	}
	if ps == nil {
		m.logger().Debug(ctx, "no stored session")
		return nil
	}

	if c, err := claims.Decode(ps.IDToken); err == nil && c.ValidAt(m.now(), 0) {
		m.establish(ctx, ps.IDToken, ps.RefreshToken, c, false)
		m.logger().Info(ctx, "session resumed", "sub", c.Subject, "expires_at", c.ExpiresAt.Time)
		return nil
	}

	m.logger().Info(ctx, "stored token stale, refreshing")

	newToken, err := m.provider.Refresh(ctx, ps.RefreshToken)
	if err != nil {
		m.forceSignOut(ctx, "restore refresh failed", err)
		return fmt.Errorf("%w: %v", common.ErrRefreshFailed, err)
	}

	c, err := claims.Decode(newToken)
	if err != nil {
		m.forceSignOut(ctx, "refreshed token undecodable", err)
		return err
	}

	m.establish(ctx, newToken, ps.RefreshToken, c, true)
	m.logger().Info(ctx, "session restored via refresh", "sub", c.Subject, "expires_at", c.ExpiresAt.Time)
	return nil
}

// SignIn exchanges credentials for a token pair and establishes the session.
// Provider failures are returned to the caller unretried; the manager stays
// signed out and nothing is persisted.
func (m *Manager) SignIn(ctx context.Context, email string, password []byte) error {
	tokens, err := m.provider.PasswordSignIn(ctx, email, password)
	if err != nil {
		return err
	}

	// Never half-populate a session: both tokens or neither.
	if tokens == nil || tokens.AccessToken == "" || tokens.RefreshToken == "" {
		m.forceSignOut(ctx, "sign-in response incomplete", common.ErrMalformedToken)
		return common.ErrMalformedToken
	}

	c, err := claims.Decode(tokens.AccessToken)
	if err != nil {
		m.forceSignOut(ctx, "sign-in token undecodable", err)
		return err
	}

	m.establish(ctx, tokens.AccessToken, tokens.RefreshToken, c, true)
	m.logger().Info(ctx, "signed in", "sub", c.Subject)
	return nil
}

// SignUp creates a new account. The session state is unchanged; the user
// must confirm the account and then sign in.
func (m *Manager) SignUp(ctx context.Context, email string, password []byte) error {
	return m.provider.SignUp(ctx, email, password)
}

// ConfirmSignUp confirms a newly created account with the emailed code.
func (m *Manager) ConfirmSignUp(ctx context.Context, email, code string) error {
	return m.provider.ConfirmSignUp(ctx, email, code)
}

// ValidToken returns a bearer token guaranteed to be fresh beyond the skew
// window at validation time. This is the hot path invoked before every
// outbound API request; when the current token is fresh it returns without
// locking anything but the state mutex and without network I/O.
//
// When the token is stale (or undecodable — recoverable corruption is
// treated the same as staleness), concurrent callers are coalesced onto a
// single in-flight refresh. A caller abandoning its wait does not cancel
// the shared refresh, and no caller waits longer than the configured bound.
func (m *Manager) ValidToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	status, token, refreshToken := m.status, m.idToken, m.refreshToken
	m.mu.Unlock()

	if status == StatusSignedOut && refreshToken == "" {
		return "", common.ErrNotSignedIn
	}

	if token != "" {
		if c, err := claims.Decode(token); err == nil && c.ValidAt(m.now(), m.skew) {
			return token, nil
		}
	}

	return m.awaitRefresh(ctx)
}

// awaitRefresh joins (or starts) the single in-flight refresh and waits for
// its outcome, the caller's context, or the wait bound — whichever comes
// first. The refresh itself runs on a context detached from the caller so
// one caller's cancellation cannot starve the others.
func (m *Manager) awaitRefresh(ctx context.Context) (string, error) {
	ch := m.group.DoChan(refreshKey, func() (any, error) {
		return m.doRefresh(context.WithoutCancel(ctx))
	})

	timer := time.NewTimer(m.refreshWait)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	case <-timer.C:
		m.logger().Warn(ctx, "gave up waiting for in-flight refresh", "wait", m.refreshWait)
		return "", fmt.Errorf("%w: in-flight refresh exceeded %s", common.ErrRefreshFailed, m.refreshWait)
	}
}

// doRefresh performs the actual token exchange. Only this function may move
// the session through Refreshing, so a race loser can never overwrite newer
// state with a stale response.
func (m *Manager) doRefresh(ctx context.Context) (string, error) {
	m.mu.Lock()
	// Re-check under the lock: a refresh that completed while this caller
	// was queueing already produced a fresh token.
	if m.idToken != "" {
		if c, err := claims.Decode(m.idToken); err == nil && c.ValidAt(m.now(), m.skew) {
			token := m.idToken
			m.mu.Unlock()
			return token, nil
		}
	}
	if m.refreshToken == "" {
		m.mu.Unlock()
		return "", common.ErrNotSignedIn
	}
	refreshToken := m.refreshToken
	prevSub := m.userSub
	m.status = StatusRefreshing
	m.mu.Unlock()

	newToken, err := m.provider.Refresh(ctx, refreshToken)
	if err != nil {
		m.forceSignOut(ctx, "refresh rejected", err)
		return "", fmt.Errorf("%w: %v", common.ErrRefreshFailed, err)
	}

	c, err := claims.Decode(newToken)
	if err != nil {
		m.forceSignOut(ctx, "refreshed token undecodable", err)
		return "", fmt.Errorf("%w: %v", common.ErrRefreshFailed, err)
	}

	// A provider returning a token for a different user is a protocol
	// violation; fail closed rather than silently switching identities.
	if prevSub != "" && c.Subject != prevSub {
		m.forceSignOut(ctx, "subject changed across refresh", common.ErrRefreshFailed)
		return "", fmt.Errorf("%w: subject mismatch", common.ErrRefreshFailed)
	}

	m.mu.Lock()
	m.idToken = newToken
	m.userSub = c.Subject
	m.userEmail = c.Email
	m.status = StatusSignedIn
	saveErr := m.store.Save(ctx, &credstore.PersistedSession{
		IDToken:      newToken,
		UserSub:      c.Subject,
		UserEmail:    c.Email,
		RefreshToken: refreshToken,
	})
	m.mu.Unlock()

	if saveErr != nil {
		// The previous persisted session is still intact (Save is atomic),
		// so the worst case is an extra refresh after the next restart.
		m.logger().Warn(ctx, "failed to persist refreshed session", "error", saveErr)
	}

	m.logger().Debug(ctx, "token refreshed", "expires_at", c.ExpiresAt.Time)
	return newToken, nil
}

// SignOut clears the in-memory session and the credential store. It is
// idempotent and never fails; a store error is logged and swallowed because
// the in-memory state is already gone and Load treats partial rows as no
// session.
func (m *Manager) SignOut(ctx context.Context) {
	m.forceSignOut(ctx, "signed out", nil)
}

func (m *Manager) forceSignOut(ctx context.Context, reason string, cause error) {
	m.mu.Lock()
	m.status = StatusSignedOut
	m.idToken = ""
	m.refreshToken = ""
	m.userSub = ""
	m.userEmail = ""
	m.log = m.baseLog
	log := m.log
	clearErr := m.store.Clear(ctx)
	m.mu.Unlock()

	if clearErr != nil {
		log.Error(ctx, "failed to clear credential store", "error", clearErr)
	}
	if cause != nil {
		log.Warn(ctx, reason, "error", cause)
	} else {
		log.Info(ctx, reason)
	}
}

// establish records a signed-in session and, when persist is true, writes it
// to the credential store in the same critical section. Pending operations
// registered via WhenSignedIn are released afterwards.
func (m *Manager) establish(ctx context.Context, idToken, refreshToken string, c *claims.Claims, persist bool) {
	m.mu.Lock()
	m.idToken = idToken
	m.refreshToken = refreshToken
	m.userSub = c.Subject
	m.userEmail = c.Email
	m.status = StatusSignedIn
	m.log = m.baseLog.With("session_id", uuid.NewString())
	log := m.log
	pending := m.pending
	m.pending = nil

	var saveErr error
	if persist {
		saveErr = m.store.Save(ctx, &credstore.PersistedSession{
			IDToken:      idToken,
			UserSub:      c.Subject,
			UserEmail:    c.Email,
			RefreshToken: refreshToken,
		})
	}
	m.mu.Unlock()

	if saveErr != nil {
		log.Warn(ctx, "failed to persist session", "error", saveErr)
	}

	for _, fn := range pending {
		go fn(ctx)
	}
}

// WhenSignedIn registers a continuation to run once a session is
// established. If one already exists the continuation runs immediately.
// Continuations run on their own goroutine and are dropped, not persisted,
// if the process exits first.
func (m *Manager) WhenSignedIn(fn func(context.Context)) {
	m.mu.Lock()
	if m.status == StatusSignedIn {
		m.mu.Unlock()
		go fn(context.Background())
		return
	}
	m.pending = append(m.pending, fn)
	m.mu.Unlock()
}

// IsSignedIn reports whether a session is currently established.
func (m *Manager) IsSignedIn() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status == StatusSignedIn
}

// CurrentStatus returns the observable session state.
func (m *Manager) CurrentStatus() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// UserSub returns the subject id of the signed-in user, or "".
func (m *Manager) UserSub() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userSub
}

// Email returns the email of the signed-in user, or "".
func (m *Manager) Email() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userEmail
}
