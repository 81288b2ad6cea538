package identity

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"
const testIssuer = "innerlab-auth"

func signToken(t *testing.T, secret string, claims sessionClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func validClaims() sessionClaims {
	return sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			Issuer:    testIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		SessionID:  "sess-1",
		Tier:       "basic_paid",
		LegacyPlan: "basic",
		Founder:    false,
	}
}

func TestParseValidToken(t *testing.T) {
	v := NewVerifier(testSecret, testIssuer)

	claims, err := v.Parse(signToken(t, testSecret, validClaims()))
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "sess-1", claims.SessionID)
	assert.Equal(t, "basic_paid", claims.TierLabel)
	assert.Equal(t, "basic", claims.LegacyPlan)
	assert.False(t, claims.Founder)
}

func TestParseRejects(t *testing.T) {
	v := NewVerifier(testSecret, testIssuer)

	// Wrong secret.
	_, err := v.Parse(signToken(t, "other-secret", validClaims()))
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Expired.
	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	_, err = v.Parse(signToken(t, testSecret, expired))
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Missing expiry is rejected outright.
	noExp := validClaims()
	noExp.ExpiresAt = nil
	_, err = v.Parse(signToken(t, testSecret, noExp))
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Wrong issuer.
	badIss := validClaims()
	badIss.Issuer = "someone-else"
	_, err = v.Parse(signToken(t, testSecret, badIss))
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Missing subject.
	noSub := validClaims()
	noSub.Subject = ""
	_, err = v.Parse(signToken(t, testSecret, noSub))
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Garbage.
	_, err = v.Parse("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
