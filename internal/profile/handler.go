package profile

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ayush/nimi-blog/backend/internal/auth"
	"github.com/ayush/nimi-blog/backend/internal/models"
	apierrors "github.com/ayush/nimi-blog/backend/internal/pkg/errors"
	"github.com/ayush/nimi-blog/backend/internal/pkg/response"
)

// multipartOverhead is the room left for form fields next to the image.
const multipartOverhead = 1 << 20

// Identity resolves verified session claims to the acting user.
type Identity interface {
	CurrentUser(ctx context.Context, claims *auth.Claims) (*models.User, error)
}

// Handler holds profile HTTP handlers.
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

// Dashboard handles GET /api/dashboard.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	me, err := h.actor(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	view, err := h.svc.Dashboard(r.Context(), me)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, view)
}

// Self handles GET /api/profile.
func (h *Handler) Self(w http.ResponseWriter, r *http.Request) {
	me, err := h.actor(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	view, err := h.svc.Self(r.Context(), me)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, view)
}

// View handles GET /api/users/{id}.
func (h *Handler) View(w http.ResponseWriter, r *http.Request) {
	me, err := h.actor(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	id, err := models.ParseID("User", chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	view, err := h.svc.View(r.Context(), me, id)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, view)
}

// Update handles POST /api/profile. The body is multipart/form-data with
// optional name, bio, jobTitle and location fields and an optional
// profileImage file.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	me, err := h.actor(r)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.svc.maxImage+multipartOverhead)
	if err := r.ParseMultipartForm(h.svc.maxImage + multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(w, r, apierrors.NewValidationError("profileImage",
				"profileImage must be at most "+strconv.FormatInt(h.svc.maxImage, 10)+" bytes"))
			return
		}
		response.BadRequest(w, r, "invalid multipart form")
		return
	}

	upd := models.ProfileUpdate{
		Name:     formValue(r, "name"),
		Bio:      formValue(r, "bio"),
		JobTitle: formValue(r, "jobTitle"),
		Location: formValue(r, "location"),
	}

	var img *ImageUpload
	file, _, err := r.FormFile("profileImage")
	switch {
	case err == nil:
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			response.BadRequest(w, r, "could not read profileImage")
			return
		}
		img = &ImageUpload{Data: data}
	case errors.Is(err, http.ErrMissingFile):
	default:
		response.BadRequest(w, r, "invalid profileImage")
		return
	}

	user, err := h.svc.Update(r.Context(), me, upd, img)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, user)
}

// Search handles GET /api/search?q=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.OK(w, users)
}

// formValue returns a pointer to the field's value, or nil when the field was
// not sent.
func formValue(r *http.Request, key string) *string {
	vals, ok := r.MultipartForm.Value[key]
	if !ok || len(vals) == 0 {
		return nil
	}
	v := vals[0]
	return &v
}

// Downloader reads stored objects.
type Downloader interface {
	Download(ctx context.Context, key string) ([]byte, string, error)
}

// MediaHandler serves uploaded avatars when the blob store has no public URL.
type MediaHandler struct {
	blobs Downloader
}

func NewMediaHandler(blobs Downloader) *MediaHandler {
	return &MediaHandler{blobs: blobs}
}

// Serve handles GET /media/*.
func (h *MediaHandler) Serve(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	if key == "" {
		response.Error(w, r, apierrors.NewNotFoundError("Object"))
		return
	}
	data, contentType, err := h.blobs.Download(r.Context(), key)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Write(data)
}
