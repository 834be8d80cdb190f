package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestAuth(t *testing.T) *Authenticator {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	return New(Config{
		Secret:       "test-secret",
		Issuer:       "gift-storefront-api",
		Audience:     "gift-storefront-admin",
		Username:     "admin",
		PasswordHash: string(hash),
	})
}

func TestGenerateAndValidateToken(t *testing.T) {
	a := newTestAuth(t)
	token, expires, err := a.GenerateToken("admin")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.WithinDuration(t, time.Now().Add(24*time.Hour), expires, time.Minute)

	claims, err := a.ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, "admin", claims.Username)
	require.Equal(t, RoleAdmin, claims.Role)
}

func TestValidateToken_Invalid(t *testing.T) {
	a := newTestAuth(t)
	_, err := a.ValidateToken("invalid.token")
	require.Error(t, err)
}

func TestValidateToken_WrongSecretOrAudience(t *testing.T) {
	a := newTestAuth(t)
	token, _, err := a.GenerateToken("admin")
	require.NoError(t, err)

	other := New(Config{Secret: "other", Issuer: "gift-storefront-api", Audience: "gift-storefront-admin"})
	_, err = other.ValidateToken(token)
	require.Error(t, err)

	wrongAud := New(Config{Secret: "test-secret", Issuer: "gift-storefront-api", Audience: "someone-else"})
	_, err = wrongAud.ValidateToken(token)
	require.Error(t, err)
}

func TestValidateToken_Expired(t *testing.T) {
	a := newTestAuth(t)
	a.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	token, _, err := a.GenerateToken("admin")
	require.NoError(t, err)

	a.now = time.Now
	_, err = a.ValidateToken(token)
	require.Error(t, err)
}

func TestCheckCredentials(t *testing.T) {
	a := newTestAuth(t)
	require.NoError(t, a.CheckCredentials("admin", "s3cret"))
	require.ErrorIs(t, a.CheckCredentials("admin", "wrong"), ErrInvalidCredentials)
	require.ErrorIs(t, a.CheckCredentials("root", "s3cret"), ErrInvalidCredentials)

	disabled := New(Config{Secret: "x", Username: "admin"})
	require.ErrorIs(t, disabled.CheckCredentials("admin", ""), ErrLoginDisabled)
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("pw")
	require.NoError(t, err)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("pw")))
}
