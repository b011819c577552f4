package auth_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ayush/nimi-blog/backend/internal/auth"
	"github.com/ayush/nimi-blog/backend/internal/middleware"
	"github.com/ayush/nimi-blog/backend/internal/store/storetest"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	tokens, err := auth.NewTokenIssuer("test-secret", 0)
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := auth.NewService(storetest.NewMemory(), auth.BcryptHasher{Cost: bcrypt.MinCost}, tokens, logger)
	h := auth.NewHandler(svc)

	r := chi.NewRouter()
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Post("/logout", h.Logout)
	r.With(middleware.RequireAuth(tokens)).Get("/me", h.Me)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string, cookies ...*http.Cookie) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	var env envelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	return rr, env
}

func sessionCookie(rr *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.SessionCookie {
			return c
		}
	}
	return nil
}

const registerBody = `{"userName":"bob","name":"Bob","email":"bob@example.com","password":"hunter2","age":40}`

func TestHandler_RegisterThenMe(t *testing.T) {
	r := newRouter(t)

	rr, env := do(t, r, http.MethodPost, "/register", registerBody)
	require.Equal(t, http.StatusCreated, rr.Code)
	cookie := sessionCookie(rr)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.NotContains(t, string(env.Data), "password")

	rr, env = do(t, r, http.MethodGet, "/me", "", cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	var me struct {
		UserName string `json:"userName"`
		Email    string `json:"email"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, "bob", me.UserName)
	assert.Equal(t, "bob@example.com", me.Email)
}

func TestHandler_RegisterConflict(t *testing.T) {
	r := newRouter(t)

	rr, _ := do(t, r, http.MethodPost, "/register", registerBody)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr, env := do(t, r, http.MethodPost, "/register", registerBody)
	assert.Equal(t, http.StatusConflict, rr.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "User already exists", env.Error.Message)
}

func TestHandler_Login(t *testing.T) {
	r := newRouter(t)
	rr, _ := do(t, r, http.MethodPost, "/register", registerBody)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr, env := do(t, r, http.MethodPost, "/login", `{"email":"bob@example.com","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "unauthenticated", env.Error.Code)

	rr, _ = do(t, r, http.MethodPost, "/login", `{"email":"bob@example.com","password":"hunter2"}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotNil(t, sessionCookie(rr))
}

func TestHandler_Logout(t *testing.T) {
	r := newRouter(t)

	rr, _ := do(t, r, http.MethodPost, "/logout", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	cookie := sessionCookie(rr)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.Less(t, cookie.MaxAge, 0)
}

func TestHandler_BadBody(t *testing.T) {
	r := newRouter(t)

	rr, env := do(t, r, http.MethodPost, "/register", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "validation_error", env.Error.Code)
}
