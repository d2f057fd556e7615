package security

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := NewTokenManager(testSecret, "")

	token, err := tm.GenerateAccessToken(5, 9, "staff@example.com", "manager")
	require.NoError(t, err)

	claims, err := tm.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int32(5), claims.UserID)
	assert.Equal(t, int32(9), claims.CompanyID)
	assert.Equal(t, "manager", claims.Role)
	assert.Equal(t, TokenTypeAccess, claims.Type)
}

func TestTokenManager_Expired(t *testing.T) {
	m := NewTokenManager(testSecret, "").(*tokenManager)
	m.now = func() time.Time { return time.Now().Add(-24 * time.Hour) }
	token, err := m.GenerateAccessToken(1, 1, "", "")
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestTokenManager_WrongSecret(t *testing.T) {
	token, err := NewTokenManager(testSecret, "").GenerateAccessToken(1, 1, "", "")
	require.NoError(t, err)

	_, err = NewTokenManager(strings.Repeat("x", 32), "").ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_MissingCompany(t *testing.T) {
	claims := StaffClaims{
		UserID: 1,
		Type:   TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "fleet-erp",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = NewTokenManager(testSecret, "").ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestGenerateShareToken(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		tok, err := GenerateShareToken()
		require.NoError(t, err)
		assert.Len(t, tok, ShareTokenLength)
		assert.True(t, IsWellFormedShareToken(tok), tok)
		assert.False(t, seen[tok], "duplicate token")
		seen[tok] = true
	}
}

func TestIsWellFormedShareToken(t *testing.T) {
	assert.False(t, IsWellFormedShareToken(""))
	assert.False(t, IsWellFormedShareToken("short"))
	assert.False(t, IsWellFormedShareToken(strings.Repeat("a", 31)+"-"))
	assert.True(t, IsWellFormedShareToken(strings.Repeat("aZ9", 10)+"ab"))
}

func TestFingerprinter(t *testing.T) {
	f := NewFingerprinter("fingerprint-secret")
	a := f.Visitor("10.0.0.1", "Mozilla/5.0")
	assert.Len(t, a, 32)
	assert.Equal(t, a, f.Visitor("10.0.0.1", "Mozilla/5.0"))
	assert.NotEqual(t, a, f.Visitor("10.0.0.2", "Mozilla/5.0"))
	assert.NotEqual(t, a, NewFingerprinter("other-secret-value").Visitor("10.0.0.1", "Mozilla/5.0"))
	// Oversized keys are folded rather than rejected
	assert.Len(t, NewFingerprinter(strings.Repeat("k", 100)).Visitor("ip", "ua"), 32)
}
