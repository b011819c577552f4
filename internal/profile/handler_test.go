package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ayush/nimi-blog/backend/internal/auth"
	"github.com/ayush/nimi-blog/backend/internal/models"
	apierrors "github.com/ayush/nimi-blog/backend/internal/pkg/errors"
)

// staticIdentity resolves every request to the same user.
type staticIdentity struct {
	user *models.User
}

func (s staticIdentity) CurrentUser(context.Context, *auth.Claims) (*models.User, error) {
	return s.user, nil
}

func multipartBody(t *testing.T, fields map[string]string, image []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if image != nil {
		fw, err := mw.CreateFormFile("profileImage", "avatar.jpg")
		require.NoError(t, err)
		_, err = fw.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestHandler_Update(t *testing.T) {
	f := newFixture()
	alice := f.mem.MustUser("alice")
	h := NewHandler(f.svc, staticIdentity{user: alice})

	f.blobs.On("Upload", mock.Anything, mock.Anything, jpegHeader, "image/jpeg").Return("/media/avatars/a.jpg", nil)
	f.blobs.On("KeyFromURL", models.DefaultProfileImage).Return("", false)

	body, contentType := multipartBody(t, map[string]string{"bio": "Hi there", "location": "Oxford"}, jpegHeader)
	req := httptest.NewRequest(http.MethodPost, "/api/profile", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()

	h.Update(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Data models.User `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "Hi there", resp.Data.Bio)
	assert.Equal(t, "Oxford", resp.Data.Location)
	assert.Equal(t, "alice", resp.Data.Name)
	assert.Equal(t, "/media/avatars/a.jpg", resp.Data.ProfileImage)
	f.blobs.AssertExpectations(t)
}

func TestHandler_Update_NotMultipart(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc, staticIdentity{user: f.mem.MustUser("alice")})

	req := httptest.NewRequest(http.MethodPost, "/api/profile", bytes.NewBufferString(`{"bio":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	h.Update(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandler_Search(t *testing.T) {
	f := newFixture()
	f.mem.MustUser("alice")
	h := NewHandler(f.svc, staticIdentity{})

	rr := httptest.NewRecorder()
	h.Search(rr, httptest.NewRequest(http.MethodGet, "/api/search?q=ali", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Data []models.UserSummary `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "alice", resp.Data[0].UserName)
}

type fakeDownloader map[string][]byte

func (d fakeDownloader) Download(_ context.Context, key string) ([]byte, string, error) {
	data, ok := d[key]
	if !ok {
		return nil, "", apierrors.NewNotFoundError("Object")
	}
	return data, "image/png", nil
}

func TestMediaHandler_Serve(t *testing.T) {
	h := NewMediaHandler(fakeDownloader{"avatars/u/1.png": pngHeader})
	r := chi.NewRouter()
	r.Get("/media/*", h.Serve)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/media/avatars/u/1.png", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
	assert.Equal(t, pngHeader, rr.Body.Bytes())

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/media/avatars/u/missing.png", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
