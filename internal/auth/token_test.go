package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "github.com/ayush/nimi-blog/backend/internal/pkg/errors"
)

func TestNewTokenIssuer_EmptySecret(t *testing.T) {
	_, err := NewTokenIssuer("", 0)
	assert.Error(t, err)
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer, err := NewTokenIssuer("s3cret", 0)
	require.NoError(t, err)

	token, err := issuer.Issue("alice", "alice@example.com")
	require.NoError(t, err)

	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.UserName)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.NotNil(t, claims.IssuedAt)
	assert.Nil(t, claims.ExpiresAt)
}

func TestTokenIssuer_Verify_Rejects(t *testing.T) {
	issuer, err := NewTokenIssuer("s3cret", 0)
	require.NoError(t, err)
	good, err := issuer.Issue("alice", "alice@example.com")
	require.NoError(t, err)

	other, err := NewTokenIssuer("another", 0)
	require.NoError(t, err)
	foreign, err := other.Issue("alice", "alice@example.com")
	require.NoError(t, err)

	noEmail, err := issuer.Issue("alice", "")
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Email: "alice@example.com"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	// good's header and payload with noEmail's signature.
	tampered := good[:strings.LastIndex(good, ".")] + noEmail[strings.LastIndex(noEmail, "."):]

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"empty", ""},
		{"tampered signature", tampered},
		{"wrong secret", foreign},
		{"alg none", unsigned},
		{"missing email", noEmail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := issuer.Verify(tt.token)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apierrors.ErrInvalidToken))
		})
	}
}

func TestTokenIssuer_Expiry(t *testing.T) {
	issuer, err := NewTokenIssuer("s3cret", time.Hour)
	require.NoError(t, err)

	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	issuer.now = func() time.Time { return start }

	token, err := issuer.Issue("alice", "alice@example.com")
	require.NoError(t, err)

	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	require.NotNil(t, claims.ExpiresAt)
	assert.Equal(t, start.Add(time.Hour).Unix(), claims.ExpiresAt.Unix())

	issuer.now = func() time.Time { return start.Add(2 * time.Hour) }
	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, apierrors.ErrInvalidToken)
}
