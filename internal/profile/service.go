// Package profile assembles user-facing profile views and applies profile
// edits, including avatar uploads to the blob store.
package profile

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ayush/nimi-blog/backend/internal/models"
	apierrors "github.com/ayush/nimi-blog/backend/internal/pkg/errors"
	"github.com/ayush/nimi-blog/backend/internal/pkg/validate"
)

// SearchLimit caps the number of search results.
const SearchLimit = 50

// Store defines the persistence profile views need.
type Store interface {
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	UpdateProfile(ctx context.Context, id primitive.ObjectID, p models.ProfileUpdate) error
	ListPostsByAuthor(ctx context.Context, author primitive.ObjectID) ([]models.Post, error)
	SearchUsers(ctx context.Context, q string, limit int64) ([]models.UserSummary, error)
}

// Graph lists a user's followers and followees.
type Graph interface {
	ConnectionsOf(ctx context.Context, u *models.User) (*models.Connections, error)
	FullConnectionsOf(ctx context.Context, u *models.User) (*models.FullConnections, error)
}

// Stats computes engagement tallies.
type Stats interface {
	Aggregate(ctx context.Context, user primitive.ObjectID) (*models.EngagementTally, error)
}

// Blobs stores avatar images.
type Blobs interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
	KeyFromURL(url string) (string, bool)
	Remove(ctx context.Context, key string) error
}

// ImageUpload is a raw uploaded avatar.
type ImageUpload struct {
	Data []byte
}

var imageExt = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
}

type Service struct {
	store    Store
	graph    Graph
	stats    Stats
	blobs    Blobs
	maxImage int64
	log      *slog.Logger
}

func NewService(store Store, graph Graph, stats Stats, blobs Blobs, maxImage int64, log *slog.Logger) *Service {
	return &Service{store: store, graph: graph, stats: stats, blobs: blobs, maxImage: maxImage, log: log}
}

// Dashboard is the owner's home view.
type Dashboard struct {
	User           *models.User  `json:"user"`
	Posts          []models.Post `json:"posts"`
	Followers      []models.User `json:"followers"`
	Following      []models.User `json:"following"`
	TotalLikes     int           `json:"totalLikes"`
	TotalComments  int           `json:"totalComments"`
	FollowersCount int           `json:"followersCount"`
}

// SelfView is the owner's profile page.
type SelfView struct {
	User      *models.User         `json:"user"`
	Posts     []models.Post        `json:"posts"`
	Followers []models.UserSummary `json:"followers"`
	Following []models.UserSummary `json:"following"`
}

// PublicView is another user's profile as seen by the viewer.
type PublicView struct {
	User           *models.User         `json:"user"`
	Posts          []models.Post        `json:"posts"`
	Followers      []models.UserSummary `json:"followers"`
	Following      []models.UserSummary `json:"following"`
	FollowersCount int                  `json:"followersCount"`
	IsFollowing    bool                 `json:"isFollowing"`
	LoggedInUserID primitive.ObjectID   `json:"loggedInUserId"`
}

func (s *Service) Dashboard(ctx context.Context, u *models.User) (*Dashboard, error) {
	posts, err := s.store.ListPostsByAuthor(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	conns, err := s.graph.FullConnectionsOf(ctx, u)
	if err != nil {
		return nil, err
	}
	tally, err := s.stats.Aggregate(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	return &Dashboard{
		User:           u,
		Posts:          posts,
		Followers:      conns.Followers,
		Following:      conns.Following,
		TotalLikes:     tally.LikesReceived,
		TotalComments:  tally.CommentsWritten,
		FollowersCount: tally.FollowerCount,
	}, nil
}

func (s *Service) Self(ctx context.Context, u *models.User) (*SelfView, error) {
	posts, err := s.store.ListPostsByAuthor(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	conns, err := s.graph.ConnectionsOf(ctx, u)
	if err != nil {
		return nil, err
	}
	return &SelfView{User: u, Posts: posts, Followers: conns.Followers, Following: conns.Following}, nil
}

// View returns target's profile as seen by viewer.
func (s *Service) View(ctx context.Context, viewer *models.User, target primitive.ObjectID) (*PublicView, error) {
	u, err := s.store.GetUserByID(ctx, target)
	if err != nil {
		return nil, err
	}
	posts, err := s.store.ListPostsByAuthor(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	conns, err := s.graph.ConnectionsOf(ctx, u)
	if err != nil {
		return nil, err
	}
	return &PublicView{
		User:           u,
		Posts:          posts,
		Followers:      conns.Followers,
		Following:      conns.Following,
		FollowersCount: len(u.Follower),
		IsFollowing:    models.ContainsID(u.Follower, viewer.ID),
		LoggedInUserID: viewer.ID,
	}, nil
}

// Update applies edits to u's own profile. A non-nil img replaces the avatar.
func (s *Service) Update(ctx context.Context, u *models.User, upd models.ProfileUpdate, img *ImageUpload) (*models.User, error) {
	upd.Name = trimmed(upd.Name)
	upd.Bio = trimmed(upd.Bio)
	upd.JobTitle = trimmed(upd.JobTitle)
	upd.Location = trimmed(upd.Location)
	upd.ProfileImage = nil
	if err := validate.Struct(upd); err != nil {
		return nil, err
	}

	if img != nil {
		url, err := s.uploadAvatar(ctx, u.ID, img)
		if err != nil {
			return nil, err
		}
		upd.ProfileImage = &url
	}

	if !upd.Empty() {
		if err := s.store.UpdateProfile(ctx, u.ID, upd); err != nil {
			return nil, err
		}
	}

	if upd.ProfileImage != nil {
		s.removeAvatar(ctx, u.ProfileImage)
	}
	return s.store.GetUserByID(ctx, u.ID)
}

func (s *Service) uploadAvatar(ctx context.Context, user primitive.ObjectID, img *ImageUpload) (string, error) {
	if len(img.Data) == 0 {
		return "", apierrors.NewValidationError("profileImage", "profileImage is empty")
	}
	if int64(len(img.Data)) > s.maxImage {
		return "", apierrors.NewValidationError("profileImage", fmt.Sprintf("profileImage must be at most %d bytes", s.maxImage))
	}
	contentType := http.DetectContentType(img.Data)
	ext, ok := imageExt[contentType]
	if !ok {
		return "", apierrors.NewValidationError("profileImage", "profileImage must be a JPEG or PNG image")
	}

	key := fmt.Sprintf("avatars/%s/%s.%s", user.Hex(), uuid.NewString(), ext)
	url, err := s.blobs.Upload(ctx, key, img.Data, contentType)
	if err != nil {
		return "", err
	}
	s.log.InfoContext(ctx, "avatar uploaded", slog.String("user_id", user.Hex()), slog.String("key", key))
	return url, nil
}

// removeAvatar deletes a previously uploaded avatar. Failures only leave an
// unreferenced object behind.
func (s *Service) removeAvatar(ctx context.Context, url string) {
	key, ok := s.blobs.KeyFromURL(url)
	if !ok {
		return
	}
	if err := s.blobs.Remove(ctx, key); err != nil {
		s.log.WarnContext(ctx, "old avatar not removed", slog.String("key", key), slog.Any("error", err))
	}
}

// Search returns users whose userName, name, location or job title contains
// q, ignoring case. An empty query matches nobody.
func (s *Service) Search(ctx context.Context, q string) ([]models.UserSummary, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []models.UserSummary{}, nil
	}
	return s.store.SearchUsers(ctx, q, SearchLimit)
}

func trimmed(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	return &v
}
