package auth

import (
	"encoding/json"
	"net/http"

	"github.com/ayush/nimi-blog/backend/internal/models"
	"github.com/ayush/nimi-blog/backend/internal/pkg/response"
)

// Handler holds auth-related HTTP handlers.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type sessionView struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// Register creates a new user and logs them in.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid request body")
		return
	}

	user, token, err := h.svc.Register(r.Context(), req)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	SetSessionCookie(w, token)
	response.Created(w, sessionView{User: user, Token: token})
}

// Login authenticates a user and sets the session cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid request body")
		return
	}

	user, token, err := h.svc.Login(r.Context(), req)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	SetSessionCookie(w, token)
	response.OK(w, sessionView{User: user, Token: token})
}

// Logout clears the session cookie. Tokens are stateless, so nothing is
// revoked server-side.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	ClearSessionCookie(w)
	response.OK(w, map[string]string{"message": "logged out"})
}

// Me returns the currently authenticated user.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())
	user, err := h.svc.CurrentUser(r.Context(), claims)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, user)
}
