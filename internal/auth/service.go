package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/ayush/nimi-blog/backend/internal/models"
	apierrors "github.com/ayush/nimi-blog/backend/internal/pkg/errors"
	"github.com/ayush/nimi-blog/backend/internal/pkg/validate"
)

// UserStore defines the user persistence the auth service needs.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UserTaken(ctx context.Context, email, userName string) (bool, error)
}

var errBadCredentials = apierrors.ErrUnauthenticated.WithMessage("Invalid email or password")

// Service registers and logs in users and resolves session claims.
type Service struct {
	users  UserStore
	hasher Hasher
	tokens *TokenIssuer
	log    *slog.Logger
}

func NewService(users UserStore, hasher Hasher, tokens *TokenIssuer, log *slog.Logger) *Service {
	return &Service{users: users, hasher: hasher, tokens: tokens, log: log}
}

// Tokens returns the issuer the service signs with.
func (s *Service) Tokens() *TokenIssuer {
	return s.tokens
}

// Register creates a user and returns it with a session token.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (*models.User, string, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.UserName = strings.ToLower(strings.TrimSpace(req.UserName))
	req.Name = strings.TrimSpace(req.Name)
	if err := validate.Struct(req); err != nil {
		return nil, "", err
	}
	if len(req.Password) > 72 {
		return nil, "", apierrors.NewValidationError("password", "password must be at most 72 bytes")
	}

	taken, err := s.users.UserTaken(ctx, req.Email, req.UserName)
	if err != nil {
		return nil, "", err
	}
	if taken {
		return nil, "", apierrors.ErrConflict.WithMessage("User already exists")
	}

	digest, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, "", apierrors.ErrInternal.WithCause(err)
	}

	user := &models.User{
		UserName:     req.UserName,
		Name:         req.Name,
		Email:        req.Email,
		Password:     digest,
		Age:          req.Age,
		ProfileImage: models.DefaultProfileImage,
	}
	// A concurrent registration can still win the race; the unique index
	// turns that into a conflict too.
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, "", err
	}

	token, err := s.tokens.Issue(user.UserName, user.Email)
	if err != nil {
		return nil, "", err
	}
	s.log.InfoContext(ctx, "user registered", slog.String("user_id", user.ID.Hex()), slog.String("user_name", user.UserName))
	return user, token, nil
}

// Login checks credentials and returns the user with a fresh token.
func (s *Service) Login(ctx context.Context, req models.LoginRequest) (*models.User, string, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validate.Struct(req); err != nil {
		return nil, "", err
	}

	user, err := s.users.GetUserByEmail(ctx, req.Email)
	if errors.Is(err, apierrors.ErrNotFound) {
		return nil, "", errBadCredentials
	}
	if err != nil {
		return nil, "", err
	}
	if !s.hasher.Compare(user.Password, req.Password) {
		return nil, "", errBadCredentials
	}

	token, err := s.tokens.Issue(user.UserName, user.Email)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// CurrentUser resolves verified claims to the full user record.
func (s *Service) CurrentUser(ctx context.Context, claims *Claims) (*models.User, error) {
	if claims == nil {
		return nil, apierrors.ErrUnauthenticated
	}
	user, err := s.users.GetUserByEmail(ctx, claims.Email)
	if errors.Is(err, apierrors.ErrNotFound) {
		return nil, apierrors.NewNotFoundError("Your account")
	}
	return user, err
}
