package middleware

import (
	"net/http"

	"github.com/ayush/nimi-blog/backend/internal/auth"
	apierrors "github.com/ayush/nimi-blog/backend/internal/pkg/errors"
	"github.com/ayush/nimi-blog/backend/internal/pkg/response"
)

// TokenVerifier checks a session token.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// RequireAuth rejects requests without a valid session token and injects the
// verified claims into the request context. It does not touch the database.
func RequireAuth(tokens TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.TokenFromRequest(r)
			if token == "" {
				response.Error(w, r, apierrors.ErrUnauthenticated)
				return
			}

			claims, err := tokens.Verify(token)
			if err != nil {
				response.Error(w, r, apierrors.ErrInvalidToken)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
		})
	}
}
