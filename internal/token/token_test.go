package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coder-ph/m-fua-services/internal/apperr"
)

func TestIssueAndParseRoundTrip(t *testing.T) {
	Configure("test-secret", time.Hour, 24*time.Hour, time.Minute)

	signed, err := IssueAccessToken(42, "provider")
	require.NoError(t, err)

	userID, role, err := Parse(signed, "access")
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
	assert.Equal(t, "provider", role)
}

func TestParseRejectsWrongTokenType(t *testing.T) {
	Configure("test-secret", time.Hour, 24*time.Hour, time.Minute)

	refresh, err := IssueRefreshToken(42, "client")
	require.NoError(t, err)

	_, _, err = Parse(refresh, "access")
	require.Error(t, err)
	assert.Equal(t, "invalid token", err.(*apperr.Error).Message)
}

func TestParseReportsExpiryDistinctly(t *testing.T) {
	Configure("test-secret", time.Hour, 24*time.Hour, time.Minute)

	signed, err := Sign(Claims{
		Role:      "client",
		TokenType: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "7",
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	require.NoError(t, err)

	_, _, err = Parse(signed, "access")
	require.Error(t, err)
	assert.Equal(t, "token has expired", err.(*apperr.Error).Message)
}

func TestConfigureClampsNonPositiveTTLs(t *testing.T) {
	Configure("test-secret", time.Hour, 24*time.Hour, time.Minute)
	Configure("test-secret", -time.Minute, 0, -time.Second)

	signed, err := IssueAccessToken(7, "client")
	require.NoError(t, err)

	// The negative TTL was ignored, so the token is still live.
	_, _, err = Parse(signed, "access")
	assert.NoError(t, err)
	assert.Equal(t, time.Minute, ResetTTL())
}
