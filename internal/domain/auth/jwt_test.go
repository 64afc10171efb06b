package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "kitanda/internal/core/context"
)

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("test-secret"))

	token, expiresAt, err := svc.GenerateAccessToken(appctx.UserContext{
		UserID:      "op-7",
		Email:       "caixa@kitanda.ao",
		Permissions: []string{PermDocumentsIssue},
	})
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	user, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "op-7", user.UserID)
	assert.Equal(t, []string{PermDocumentsIssue}, user.Permissions)
	assert.False(t, user.IsAdmin)
}

func TestJWTService_Rejects(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("test-secret"))

	other := NewJWTService(DefaultJWTConfig("another-secret"))
	foreign, _, err := other.GenerateAccessToken(appctx.UserContext{UserID: "op-1"})
	require.NoError(t, err)
	_, err = svc.ValidateToken(foreign)
	assert.Error(t, err, "wrong signature")

	expiredCfg := DefaultJWTConfig("test-secret")
	expiredCfg.AccessTokenTTL = -time.Minute
	expired, _, err := NewJWTService(expiredCfg).GenerateAccessToken(appctx.UserContext{UserID: "op-1"})
	require.NoError(t, err)
	_, err = svc.ValidateToken(expired)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	anonymous, _, err := svc.GenerateAccessToken(appctx.UserContext{})
	require.NoError(t, err)
	_, err = svc.ValidateToken(anonymous)
	assert.Error(t, err, "missing subject")

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "op-1", Issuer: "kitanda"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.ValidateToken(none)
	assert.Error(t, err, "alg none")
}
