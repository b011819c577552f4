package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apierrors "github.com/ayush/nimi-blog/backend/internal/pkg/errors"
)

// Claims identify the user a session token was issued to. Tokens carry no
// stable user id; callers resolve Email to a user record.
type Claims struct {
	UserName string `json:"userName"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies session tokens with a shared HMAC secret.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer returns an issuer. A zero ttl issues tokens without an exp
// claim, which stay valid for as long as the secret does.
func NewTokenIssuer(secret string, ttl time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, errors.New("auth: token secret must not be empty")
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for userName and email.
func (t *TokenIssuer) Issue(userName, email string) (string, error) {
	now := t.now()
	claims := Claims{
		UserName: userName,
		Email:    email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if t.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(t.ttl))
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", apierrors.ErrInternal.WithCause(err)
	}
	return signed, nil
}

// Verify checks the signature and returns the claims. Any failure is
// reported as ErrInvalidToken.
func (t *TokenIssuer) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, apierrors.ErrInvalidToken.WithCause(err)
	}
	if !parsed.Valid || claims.Email == "" {
		return nil, apierrors.ErrInvalidToken
	}
	return claims, nil
}
