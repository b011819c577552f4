package social

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ayush/nimi-blog/backend/internal/auth"
	"github.com/ayush/nimi-blog/backend/internal/models"
	"github.com/ayush/nimi-blog/backend/internal/pkg/response"
)

// Identity resolves verified session claims to the acting user.
type Identity interface {
	CurrentUser(ctx context.Context, claims *auth.Claims) (*models.User, error)
}

// Handler holds follow-related HTTP handlers.
type Handler struct {
	svc   *Service
	ident Identity
}

func NewHandler(svc *Service, ident Identity) *Handler {
	return &Handler{svc: svc, ident: ident}
}

func (h *Handler) actor(r *http.Request) (*models.User, error) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	return h.ident.CurrentUser(r.Context(), claims)
}

// Follow handles POST /api/users/{id}/follow.
func (h *Handler) Follow(w http.ResponseWriter, r *http.Request) {
	me, err := h.actor(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	target, err := models.ParseID("User", chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, err)
		return
	}

	if err := h.svc.Follow(r.Context(), me.ID, target); err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, models.FollowState{Following: true, Message: "User followed successfully"})
}

// Unfollow handles POST /api/users/{id}/unfollow.
func (h *Handler) Unfollow(w http.ResponseWriter, r *http.Request) {
	me, err := h.actor(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	target, err := models.ParseID("User", chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, err)
		return
	}

	if err := h.svc.Unfollow(r.Context(), me.ID, target); err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, models.FollowState{Following: false, Message: "User unfollowed successfully"})
}

// Connections handles GET /api/users/{id}/connections.
func (h *Handler) Connections(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseID("User", chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, err)
		return
	}

	conns, err := h.svc.Connections(r.Context(), id)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, conns)
}
