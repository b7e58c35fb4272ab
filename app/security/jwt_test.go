package security

import (
	"testing"
	"time"

	"github.com/vibast-solutions/ms-go-userauth/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIssuer(now time.Time) *TokenIssuer {
	issuer := NewTokenIssuer(config.JWTConfig{
		Secret:          "access-secret",
		RefreshSecret:   "refresh-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
	})
	issuer.now = func() time.Time { return now }
	return issuer
}

func TestTokenIssuerRoundTrip(t *testing.T) {
	now := time.Now()
	issuer := newTestIssuer(now)

	access, err := issuer.IssueAccessToken(42)
	require.NoError(t, err)
	claims, err := issuer.ParseAccessToken(access)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), claims.UserID)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
	assert.Equal(t, now.Add(15*time.Minute).Unix(), claims.ExpiresAt.Unix())

	refresh, err := issuer.IssueRefreshToken(42)
	require.NoError(t, err)
	claims, err = issuer.ParseRefreshToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), claims.UserID)
	assert.Equal(t, TokenTypeRefresh, claims.TokenType)
}

func TestTokenIssuerRejectsCrossUse(t *testing.T) {
	issuer := newTestIssuer(time.Now())

	access, err := issuer.IssueAccessToken(1)
	require.NoError(t, err)
	refresh, err := issuer.IssueRefreshToken(1)
	require.NoError(t, err)

	_, err = issuer.ParseRefreshToken(access)
	assert.Error(t, err)
	_, err = issuer.ParseAccessToken(refresh)
	assert.Error(t, err)
}

func TestTokenIssuerRejectsTypeMismatchWithSharedSecret(t *testing.T) {
	issuer := NewTokenIssuer(config.JWTConfig{
		Secret:          "shared",
		RefreshSecret:   "shared",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
	})

	refresh, err := issuer.IssueRefreshToken(1)
	require.NoError(t, err)

	_, err = issuer.ParseAccessToken(refresh)
	assert.ErrorIs(t, err, ErrTokenTypeMismatch)
}

func TestTokenIssuerRejectsExpired(t *testing.T) {
	issued := time.Now().Add(-time.Hour)
	issuer := newTestIssuer(issued)

	access, err := issuer.IssueAccessToken(1)
	require.NoError(t, err)

	issuer.now = time.Now
	_, err = issuer.ParseAccessToken(access)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestTokenIssuerRejectsForeignSignature(t *testing.T) {
	issuer := newTestIssuer(time.Now())
	other := NewTokenIssuer(config.JWTConfig{
		Secret:          "other-access",
		RefreshSecret:   "other-refresh",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
	})

	token, err := other.IssueAccessToken(1)
	require.NoError(t, err)

	_, err = issuer.ParseAccessToken(token)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestTokenIssuerRejectsNoneAlgorithm(t *testing.T) {
	issuer := newTestIssuer(time.Now())
	claims := &Claims{
		UserID:    1,
		TokenType: TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = issuer.ParseAccessToken(token)
	assert.Error(t, err)
}

func TestTokenIssuerMintsDistinctTokensInSameSecond(t *testing.T) {
	issuer := newTestIssuer(time.Now())

	first, err := issuer.IssueRefreshToken(7)
	require.NoError(t, err)
	second, err := issuer.IssueRefreshToken(7)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}
