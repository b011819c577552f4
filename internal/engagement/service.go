// Package engagement records likes on posts and comments and computes a
// user's engagement tally.
package engagement

import (
	"context"
	"log/slog"
	"sync/atomic"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ayush/nimi-blog/backend/internal/models"
)

// Store defines the persistence the engagement service needs.
type Store interface {
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetPost(ctx context.Context, id primitive.ObjectID) (*models.Post, error)
	GetComment(ctx context.Context, id primitive.ObjectID) (*models.Comment, error)
	AddPostLike(ctx context.Context, post, user primitive.ObjectID) (int, error)
	RemovePostLike(ctx context.Context, post, user primitive.ObjectID) (int, error)
	AddCommentLike(ctx context.Context, comment, user primitive.ObjectID) (int, error)
	RemoveCommentLike(ctx context.Context, comment, user primitive.ObjectID) (int, error)
	EngagementTally(ctx context.Context, user primitive.ObjectID) (*models.EngagementTally, error)
}

// Cache holds recently computed tallies. Get returns nil on a miss.
type Cache interface {
	Get(ctx context.Context, user primitive.ObjectID) (*models.EngagementTally, error)
	Set(ctx context.Context, user primitive.ObjectID, t *models.EngagementTally) error
	Invalidate(ctx context.Context, users ...primitive.ObjectID) error
}

type Service struct {
	store Store
	cache Cache
	log   *slog.Logger

	// generation advances on every invalidation; a tally read across an
	// advance is not cached.
	generation atomic.Uint64
}

// NewService creates the engagement service. cache may be nil.
func NewService(store Store, cache Cache, log *slog.Logger) *Service {
	return &Service{store: store, cache: cache, log: log}
}

// LikePost adds user to the post's likes. Liking twice is a no-op.
func (s *Service) LikePost(ctx context.Context, user, post primitive.ObjectID) (*models.LikeState, error) {
	p, err := s.postFor(ctx, user, post)
	if err != nil {
		return nil, err
	}
	n, err := s.store.AddPostLike(ctx, post, user)
	if err != nil {
		return nil, err
	}
	s.Invalidate(ctx, p.Author)
	return &models.LikeState{Liked: true, Likes: n}, nil
}

// DislikePost removes user from the post's likes. Removing a like that does
// not exist succeeds.
func (s *Service) DislikePost(ctx context.Context, user, post primitive.ObjectID) (*models.LikeState, error) {
	p, err := s.postFor(ctx, user, post)
	if err != nil {
		return nil, err
	}
	n, err := s.store.RemovePostLike(ctx, post, user)
	if err != nil {
		return nil, err
	}
	s.Invalidate(ctx, p.Author)
	return &models.LikeState{Liked: false, Likes: n}, nil
}

func (s *Service) LikeComment(ctx context.Context, user, comment primitive.ObjectID) (*models.LikeState, error) {
	c, err := s.commentFor(ctx, user, comment)
	if err != nil {
		return nil, err
	}
	n, err := s.store.AddCommentLike(ctx, comment, user)
	if err != nil {
		return nil, err
	}
	s.Invalidate(ctx, c.Author)
	return &models.LikeState{Liked: true, Likes: n}, nil
}

func (s *Service) DislikeComment(ctx context.Context, user, comment primitive.ObjectID) (*models.LikeState, error) {
	c, err := s.commentFor(ctx, user, comment)
	if err != nil {
		return nil, err
	}
	n, err := s.store.RemoveCommentLike(ctx, comment, user)
	if err != nil {
		return nil, err
	}
	s.Invalidate(ctx, c.Author)
	return &models.LikeState{Liked: false, Likes: n}, nil
}

func (s *Service) postFor(ctx context.Context, user, post primitive.ObjectID) (*models.Post, error) {
	if _, err := s.store.GetUserByID(ctx, user); err != nil {
		return nil, err
	}
	return s.store.GetPost(ctx, post)
}

func (s *Service) commentFor(ctx context.Context, user, comment primitive.ObjectID) (*models.Comment, error) {
	if _, err := s.store.GetUserByID(ctx, user); err != nil {
		return nil, err
	}
	return s.store.GetComment(ctx, comment)
}

// Aggregate returns likes received on the user's posts and comments, comments
// written by the user, and the user's follower count.
func (s *Service) Aggregate(ctx context.Context, user primitive.ObjectID) (*models.EngagementTally, error) {
	if s.cache != nil {
		t, err := s.cache.Get(ctx, user)
		if err != nil {
			s.log.WarnContext(ctx, "stats cache read failed", slog.String("user_id", user.Hex()), slog.Any("error", err))
		} else if t != nil {
			return t, nil
		}
	}

	gen := s.generation.Load()
	t, err := s.store.EngagementTally(ctx, user)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && s.generation.Load() == gen {
		if err := s.cache.Set(ctx, user, t); err != nil {
			s.log.WarnContext(ctx, "stats cache write failed", slog.String("user_id", user.Hex()), slog.Any("error", err))
		}
	}
	return t, nil
}

// Invalidate drops cached tallies after content they count has changed.
func (s *Service) Invalidate(ctx context.Context, users ...primitive.ObjectID) {
	s.generation.Add(1)
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, users...); err != nil {
		s.log.WarnContext(ctx, "stats cache invalidate failed", slog.Any("error", err))
	}
}
