// Package claims decodes the payload segment of a bearer token issued by the
// identity provider.
//
// Trust boundary: the signature is deliberately NOT verified here. The token
// is accepted or rejected cryptographically by the backend that receives it
// on every request; on the client the decoded values are hints used to drive
// UI state and expiry checks, nothing more.
package claims

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/qconnect/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultUsername is substituted when the token carries no username claim.
const DefaultUsername = "unknown"

// Claims is the set of token claims the client cares about. Subject and
// expiry come from the registered claim set; Email and Username are the
// provider's custom claims.
type Claims struct {
	jwt.RegisteredClaims
	Email    string `json:"email"`
	Username string `json:"cognito:username"`
}

// Decode splits the token into its three segments, base64url-decodes the
// payload and extracts the claims. It performs no network I/O and does not
// verify the signature.
//
// The required claims are sub, email and exp; if any of them is missing or
// the token does not have exactly three segments, Decode fails with
// common.ErrMalformedToken. A missing username claim is not an error and
// yields DefaultUsername.
func Decode(token string) (*Claims, error) {
	c := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, c); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedToken, err)
	}

	if c.Subject == "" || c.Email == "" || c.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: required claim missing", common.ErrMalformedToken)
	}

	if c.Username == "" {
		c.Username = DefaultUsername
	}
	return c, nil
}

// ValidAt reports whether the token is still usable at the given moment,
// with skew subtracted from the expiry as a proactive-refresh margin.
// Pass skew=0 to check hard expiry only.
func (c *Claims) ValidAt(now time.Time, skew time.Duration) bool {
	if c.ExpiresAt == nil {
		return false
	}
	return c.ExpiresAt.Time.After(now.Add(skew))
}
