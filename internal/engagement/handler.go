package engagement

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ayush/nimi-blog/backend/internal/auth"
	"github.com/ayush/nimi-blog/backend/internal/models"
	"github.com/ayush/nimi-blog/backend/internal/pkg/response"
)

// Identity resolves verified session claims to the acting user.
type Identity interface {
	CurrentUser(ctx context.Context, claims *auth.Claims) (*models.User, error)
}

type likeFunc func(ctx context.Context, user, target primitive.ObjectID) (*models.LikeState, error)

// Handler holds like/dislike HTTP handlers.
type Handler struct {
	svc   *Service
	ident Identity
}

func NewHandler(svc *Service, ident Identity) *Handler {
	return &Handler{svc: svc, ident: ident}
}

// LikePost handles POST /api/posts/{id}/like.
func (h *Handler) LikePost(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "Post", h.svc.LikePost)
}

// DislikePost handles POST /api/posts/{id}/dislike.
func (h *Handler) DislikePost(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "Post", h.svc.DislikePost)
}

// LikeComment handles POST /api/comments/{id}/like.
func (h *Handler) LikeComment(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "Comment", h.svc.LikeComment)
}

// DislikeComment handles POST /api/comments/{id}/dislike.
func (h *Handler) DislikeComment(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "Comment", h.svc.DislikeComment)
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request, resource string, fn likeFunc) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	me, err := h.ident.CurrentUser(r.Context(), claims)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	target, err := models.ParseID(resource, chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, err)
		return
	}

	state, err := fn(r.Context(), me.ID, target)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, state)
}
