package content

import (
	"context"
	"encoding/json"
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

// Handler holds post and comment HTTP handlers.
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

// Recent handles GET /api/posts/recent.
func (h *Handler) Recent(w http.ResponseWriter, r *http.Request) {
	posts, err := h.svc.Recent(r.Context(), RecentLimit)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, posts)
}

// Create handles POST /api/posts.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	me, err := h.actor(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	var in models.PostInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, r, "invalid request body")
		return
	}

	post, err := h.svc.CreatePost(r.Context(), me.ID, in)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.Created(w, post)
}

// Get handles GET /api/posts/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseID("Post", chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	detail, err := h.svc.Get(r.Context(), id)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, detail)
}

// Update handles PUT /api/posts/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	me, err := h.actor(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	id, err := models.ParseID("Post", chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	var in models.PostInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, r, "invalid request body")
		return
	}

	post, err := h.svc.UpdatePost(r.Context(), me.ID, id, in)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, post)
}

// Delete handles DELETE /api/posts/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	me, err := h.actor(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	id, err := models.ParseID("Post", chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, err)
		return
	}

	if err := h.svc.DeletePost(r.Context(), me.ID, id); err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, map[string]string{"message": "Post deleted successfully"})
}

// AddComment handles POST /api/posts/{id}/comments.
func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	me, err := h.actor(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	id, err := models.ParseID("Post", chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	var in models.CommentInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, r, "invalid request body")
		return
	}

	comment, err := h.svc.AddComment(r.Context(), me.ID, id, in)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.Created(w, comment)
}

// ByAuthor handles GET /api/users/{id}/posts.
func (h *Handler) ByAuthor(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseID("User", chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	posts, err := h.svc.ByAuthor(r.Context(), id)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, posts)
}
