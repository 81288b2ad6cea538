// Package identity verifies session tokens issued by the external
// identity provider and extracts the tier-relevant claims. Token
// issuance lives entirely outside this service.
package identity

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("identity: invalid token")

// Claims is what the rest of the service gets to know about a caller.
type Claims struct {
	UserID    string
	SessionID string

	// TierLabel and LegacyPlan feed tier resolution; Founder is the
	// elevated-access override.
	TierLabel  string
	LegacyPlan string
	Founder    bool
}

// Verifier checks HS256 tokens against a shared secret and expected
// issuer.
type Verifier struct {
	secret []byte
	issuer string
}

func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer}
}

type sessionClaims struct {
	jwt.RegisteredClaims

	SessionID  string `json:"sid,omitempty"`
	Tier       string `json:"tier,omitempty"`
	LegacyPlan string `json:"plan,omitempty"`
	Founder    bool   `json:"founder,omitempty"`
}

// Parse validates the token signature, expiry and issuer, and returns
// the caller's claims. Any failure maps to ErrInvalidToken.
func (v *Verifier) Parse(token string) (Claims, error) {
	var sc sessionClaims
	parsed, err := jwt.ParseWithClaims(token, &sc, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithIssuer(v.issuer), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	if sc.Subject == "" {
		return Claims{}, ErrInvalidToken
	}

	return Claims{
		UserID:     sc.Subject,
		SessionID:  sc.SessionID,
		TierLabel:  sc.Tier,
		LegacyPlan: sc.LegacyPlan,
		Founder:    sc.Founder,
	}, nil
}
