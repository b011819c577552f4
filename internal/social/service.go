// Package social maintains follower/following edges between users.
//
// An edge lives on two documents: the actor's following set and the target's
// follower set. There is no transaction around the pair, so both writes are
// idempotent set operations applied actor side first, and the Reconciler
// restores the pairing if a request dies between them.
package social

import (
	"context"
	"errors"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ayush/nimi-blog/backend/internal/models"
	apierrors "github.com/ayush/nimi-blog/backend/internal/pkg/errors"
)

// Store defines the user persistence the social graph needs.
type Store interface {
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	AddFollowing(ctx context.Context, actor, target primitive.ObjectID) error
	AddFollower(ctx context.Context, user, follower primitive.ObjectID) error
	RemoveFollowing(ctx context.Context, actor, target primitive.ObjectID) error
	RemoveFollower(ctx context.Context, user, follower primitive.ObjectID) error
	ListUserSummaries(ctx context.Context, ids []primitive.ObjectID) ([]models.UserSummary, error)
	ListUsers(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
}

// Invalidator drops cached engagement tallies, which include follower counts.
type Invalidator interface {
	Invalidate(ctx context.Context, users ...primitive.ObjectID)
}

type Service struct {
	store Store
	stats Invalidator
	log   *slog.Logger
}

// NewService creates the social graph service. stats may be nil.
func NewService(store Store, stats Invalidator, log *slog.Logger) *Service {
	return &Service{store: store, stats: stats, log: log}
}

// Follow makes actor follow target. Following someone twice is a no-op.
func (s *Service) Follow(ctx context.Context, actor, target primitive.ObjectID) error {
	if actor == target {
		return apierrors.ErrInvalidOperation.WithMessage("You cannot follow yourself")
	}
	if err := s.bothExist(ctx, actor, target); err != nil {
		return err
	}

	if err := s.store.AddFollowing(ctx, actor, target); err != nil {
		return err
	}
	if err := s.store.AddFollower(ctx, target, actor); err != nil {
		s.log.ErrorContext(ctx, "follow left half an edge",
			slog.String("actor", actor.Hex()),
			slog.String("target", target.Hex()),
			slog.Any("error", err),
		)
		return err
	}
	s.invalidate(ctx, target)
	return nil
}

// Unfollow removes the edge from both sides. Unfollowing someone you do not
// follow succeeds; it also clears a half edge left by an interrupted write.
func (s *Service) Unfollow(ctx context.Context, actor, target primitive.ObjectID) error {
	if err := s.bothExist(ctx, actor, target); err != nil {
		return err
	}

	if err := s.store.RemoveFollowing(ctx, actor, target); err != nil {
		return err
	}
	if err := s.store.RemoveFollower(ctx, target, actor); err != nil {
		s.log.ErrorContext(ctx, "unfollow left half an edge",
			slog.String("actor", actor.Hex()),
			slog.String("target", target.Hex()),
			slog.Any("error", err),
		)
		return err
	}
	s.invalidate(ctx, target)
	return nil
}

func (s *Service) invalidate(ctx context.Context, users ...primitive.ObjectID) {
	if s.stats != nil {
		s.stats.Invalidate(ctx, users...)
	}
}

func (s *Service) bothExist(ctx context.Context, actor, target primitive.ObjectID) error {
	if _, err := s.store.GetUserByID(ctx, actor); err != nil {
		if errors.Is(err, apierrors.ErrNotFound) {
			return apierrors.NewNotFoundError("Your account")
		}
		return err
	}
	if _, err := s.store.GetUserByID(ctx, target); err != nil {
		return err
	}
	return nil
}

// Connections lists both sides of user's edges as summaries.
func (s *Service) Connections(ctx context.Context, user primitive.ObjectID) (*models.Connections, error) {
	u, err := s.store.GetUserByID(ctx, user)
	if err != nil {
		return nil, err
	}
	return s.ConnectionsOf(ctx, u)
}

// ConnectionsOf is Connections for an already loaded user.
func (s *Service) ConnectionsOf(ctx context.Context, u *models.User) (*models.Connections, error) {
	followers, err := s.store.ListUserSummaries(ctx, u.Follower)
	if err != nil {
		return nil, err
	}
	following, err := s.store.ListUserSummaries(ctx, u.Following)
	if err != nil {
		return nil, err
	}
	return &models.Connections{Followers: followers, Following: following}, nil
}

// FullConnections lists both sides of user's edges as full records.
func (s *Service) FullConnections(ctx context.Context, user primitive.ObjectID) (*models.FullConnections, error) {
	u, err := s.store.GetUserByID(ctx, user)
	if err != nil {
		return nil, err
	}
	return s.FullConnectionsOf(ctx, u)
}

// FullConnectionsOf is FullConnections for an already loaded user.
func (s *Service) FullConnectionsOf(ctx context.Context, u *models.User) (*models.FullConnections, error) {
	followers, err := s.store.ListUsers(ctx, u.Follower)
	if err != nil {
		return nil, err
	}
	following, err := s.store.ListUsers(ctx, u.Following)
	if err != nil {
		return nil, err
	}
	return &models.FullConnections{Followers: followers, Following: following}, nil
}
