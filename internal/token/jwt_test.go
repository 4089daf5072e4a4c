package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := NewService("unit-test-key", "mockpay", "mockpay-dashboard")

	signed, err := svc.GenerateToken("u-1", "Jordan", "jordan@example.com", "s-1", time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(signed)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "Jordan", claims.UserName)
	assert.Equal(t, "jordan@example.com", claims.Email)
	assert.Equal(t, "s-1", claims.SessionID)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	svc := NewService("unit-test-key", "mockpay", "mockpay-dashboard")

	signed, err := svc.GenerateToken("u-1", "Jordan", "jordan@example.com", "s-1", -time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateToken(signed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func TestValidateRejectsWrongKey(t *testing.T) {
	minter := NewService("key-one", "mockpay", "mockpay-dashboard")
	checker := NewService("key-two", "mockpay", "mockpay-dashboard")

	signed, err := minter.GenerateToken("u-1", "Jordan", "jordan@example.com", "s-1", time.Hour)
	require.NoError(t, err)

	_, err = checker.ValidateToken(signed)
	assert.Error(t, err)
}

func TestValidateRejectsGarbage(t *testing.T) {
	svc := NewService("unit-test-key", "mockpay", "mockpay-dashboard")

	_, err := svc.ValidateToken("not.a.token")
	assert.Error(t, err)
}

func TestValidateRejectsNonHMACAlgorithm(t *testing.T) {
	svc := NewService("unit-test-key", "mockpay", "mockpay-dashboard")

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		UserID: "u-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	tokenString, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.ValidateToken(tokenString)
	assert.Error(t, err)
}

func TestValidateRejectsMissingUserID(t *testing.T) {
	svc := NewService("unit-test-key", "mockpay", "mockpay-dashboard")

	anonymous := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		SessionID: "s-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	tokenString, err := anonymous.SignedString([]byte("unit-test-key"))
	require.NoError(t, err)

	_, err = svc.ValidateToken(tokenString)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user identity")
}
