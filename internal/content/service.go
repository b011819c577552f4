// Package content creates, edits and lists posts and comments.
//
// Creating a post or comment writes two documents: the new document and the
// parent's id list. The parent write comes second; if it fails the request
// fails and the social.Reconciler appends the missing reference later.
package content

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ayush/nimi-blog/backend/internal/models"
	apierrors "github.com/ayush/nimi-blog/backend/internal/pkg/errors"
	"github.com/ayush/nimi-blog/backend/internal/pkg/validate"
)

// RecentLimit is how many posts the home page shows.
const RecentLimit = 4

// Store defines the persistence the content service needs.
type Store interface {
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	ListUserSummaries(ctx context.Context, ids []primitive.ObjectID) ([]models.UserSummary, error)
	AppendUserPost(ctx context.Context, user, post primitive.ObjectID) error
	RemoveUserPost(ctx context.Context, user, post primitive.ObjectID) error

	InsertPost(ctx context.Context, p *models.Post) error
	GetPost(ctx context.Context, id primitive.ObjectID) (*models.Post, error)
	UpdatePost(ctx context.Context, id primitive.ObjectID, title, content string) error
	DeletePost(ctx context.Context, id primitive.ObjectID) error
	ListPostsByAuthor(ctx context.Context, author primitive.ObjectID) ([]models.Post, error)
	ListRecentPosts(ctx context.Context, limit int64) ([]models.Post, error)
	AppendPostComment(ctx context.Context, post, comment primitive.ObjectID) error

	InsertComment(ctx context.Context, c *models.Comment) error
	ListComments(ctx context.Context, ids []primitive.ObjectID) ([]models.Comment, error)
}

// Invalidator drops cached engagement tallies.
type Invalidator interface {
	Invalidate(ctx context.Context, users ...primitive.ObjectID)
}

type Service struct {
	store Store
	stats Invalidator
	log   *slog.Logger
}

// NewService creates the content service. stats may be nil.
func NewService(store Store, stats Invalidator, log *slog.Logger) *Service {
	return &Service{store: store, stats: stats, log: log}
}

func cleanPost(in models.PostInput) (models.PostInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := validate.Struct(in); err != nil {
		return in, err
	}
	return in, nil
}

// CreatePost publishes a post by author and links it from the author's
// posts list.
func (s *Service) CreatePost(ctx context.Context, author primitive.ObjectID, in models.PostInput) (*models.Post, error) {
	in, err := cleanPost(in)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetUserByID(ctx, author); err != nil {
		return nil, accountErr(err)
	}

	p := &models.Post{Author: author, Title: in.Title, Content: in.Content}
	if err := s.store.InsertPost(ctx, p); err != nil {
		return nil, err
	}
	if err := s.store.AppendUserPost(ctx, author, p.ID); err != nil {
		s.log.ErrorContext(ctx, "post not linked to author",
			slog.String("post_id", p.ID.Hex()),
			slog.String("author_id", author.Hex()),
			slog.Any("error", err),
		)
		return nil, err
	}
	s.log.InfoContext(ctx, "post created", slog.String("post_id", p.ID.Hex()), slog.String("author_id", author.Hex()))
	return p, nil
}

// UpdatePost edits title and content. Only the author may edit.
func (s *Service) UpdatePost(ctx context.Context, actor, post primitive.ObjectID, in models.PostInput) (*models.Post, error) {
	in, err := cleanPost(in)
	if err != nil {
		return nil, err
	}
	p, err := s.store.GetPost(ctx, post)
	if err != nil {
		return nil, err
	}
	if p.Author != actor {
		return nil, apierrors.ErrForbidden.WithMessage("Only the author can edit this post")
	}
	if err := s.store.UpdatePost(ctx, post, in.Title, in.Content); err != nil {
		return nil, err
	}
	return s.store.GetPost(ctx, post)
}

// DeletePost removes a post and unlinks it from the author. Only the author
// may delete. Comments and likes referring to the post are left in place.
func (s *Service) DeletePost(ctx context.Context, actor, post primitive.ObjectID) error {
	p, err := s.store.GetPost(ctx, post)
	if err != nil {
		return err
	}
	if p.Author != actor {
		return apierrors.ErrForbidden.WithMessage("Only the author can delete this post")
	}
	if err := s.store.DeletePost(ctx, post); err != nil {
		return err
	}
	if err := s.store.RemoveUserPost(ctx, p.Author, post); err != nil && !errors.Is(err, apierrors.ErrNotFound) {
		s.log.ErrorContext(ctx, "deleted post still listed by author",
			slog.String("post_id", post.Hex()),
			slog.String("author_id", p.Author.Hex()),
			slog.Any("error", err),
		)
		return err
	}
	s.invalidate(ctx, p.Author)
	s.log.InfoContext(ctx, "post deleted", slog.String("post_id", post.Hex()), slog.String("author_id", p.Author.Hex()))
	return nil
}

// AddComment attaches a comment by author to post.
func (s *Service) AddComment(ctx context.Context, author, post primitive.ObjectID, in models.CommentInput) (*models.Comment, error) {
	in.Content = strings.TrimSpace(in.Content)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	if _, err := s.store.GetUserByID(ctx, author); err != nil {
		return nil, accountErr(err)
	}
	if _, err := s.store.GetPost(ctx, post); err != nil {
		return nil, err
	}

	c := &models.Comment{Post: post, Author: author, Content: in.Content}
	if err := s.store.InsertComment(ctx, c); err != nil {
		return nil, err
	}
	if err := s.store.AppendPostComment(ctx, post, c.ID); err != nil {
		s.log.ErrorContext(ctx, "comment not linked to post",
			slog.String("comment_id", c.ID.Hex()),
			slog.String("post_id", post.Hex()),
			slog.Any("error", err),
		)
		return nil, err
	}
	s.invalidate(ctx, author)
	return c, nil
}

// Get returns the post with its author, its comments oldest first with their
// authors, and the users who liked it.
func (s *Service) Get(ctx context.Context, post primitive.ObjectID) (*models.PostDetail, error) {
	p, err := s.store.GetPost(ctx, post)
	if err != nil {
		return nil, err
	}
	comments, err := s.store.ListComments(ctx, p.Comments)
	if err != nil {
		return nil, err
	}
	likers, err := s.store.ListUserSummaries(ctx, p.Likes)
	if err != nil {
		return nil, err
	}

	ids := []primitive.ObjectID{p.Author}
	for _, c := range comments {
		ids = append(ids, c.Author)
	}
	authors, err := s.summaries(ctx, ids)
	if err != nil {
		return nil, err
	}

	detail := &models.PostDetail{
		Post:       *p,
		AuthorInfo: authors[p.Author],
		Comments:   make([]models.CommentWithAuthor, 0, len(comments)),
		Likers:     likers,
	}
	for _, c := range comments {
		detail.Comments = append(detail.Comments, models.CommentWithAuthor{Comment: c, AuthorInfo: authors[c.Author]})
	}
	return detail, nil
}

// Recent returns the newest posts with their authors.
func (s *Service) Recent(ctx context.Context, limit int) ([]models.PostWithAuthor, error) {
	posts, err := s.store.ListRecentPosts(ctx, int64(limit))
	if err != nil {
		return nil, err
	}
	return s.withAuthors(ctx, posts)
}

// ByAuthor returns the author's posts, newest first.
func (s *Service) ByAuthor(ctx context.Context, author primitive.ObjectID) ([]models.PostWithAuthor, error) {
	if _, err := s.store.GetUserByID(ctx, author); err != nil {
		return nil, err
	}
	posts, err := s.store.ListPostsByAuthor(ctx, author)
	if err != nil {
		return nil, err
	}
	return s.withAuthors(ctx, posts)
}

func (s *Service) withAuthors(ctx context.Context, posts []models.Post) ([]models.PostWithAuthor, error) {
	ids := make([]primitive.ObjectID, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.Author)
	}
	authors, err := s.summaries(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]models.PostWithAuthor, 0, len(posts))
	for _, p := range posts {
		out = append(out, models.PostWithAuthor{Post: p, AuthorInfo: authors[p.Author]})
	}
	return out, nil
}

func (s *Service) summaries(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.UserSummary, error) {
	seen := make(map[primitive.ObjectID]bool, len(ids))
	uniq := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			uniq = append(uniq, id)
		}
	}
	list, err := s.store.ListUserSummaries(ctx, uniq)
	if err != nil {
		return nil, err
	}
	out := make(map[primitive.ObjectID]models.UserSummary, len(list))
	for _, u := range list {
		out[u.ID] = u
	}
	return out, nil
}

func (s *Service) invalidate(ctx context.Context, users ...primitive.ObjectID) {
	if s.stats != nil {
		s.stats.Invalidate(ctx, users...)
	}
}

func accountErr(err error) error {
	if errors.Is(err, apierrors.ErrNotFound) {
		return apierrors.NewNotFoundError("Your account")
	}
	return err
}
