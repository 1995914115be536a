package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hachizeus/anzia-auth/internal/models"
)

// ProfileRepository extends user lookup with the profile write path.
type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	UpdateName(ctx context.Context, id, name string) (*models.User, error)
}

// UserService serves the minimal profile surface behind the token gate.
type UserService struct {
	repo   ProfileRepository
	logger *slog.Logger
}

func NewUserService(repo ProfileRepository, logger *slog.Logger) *UserService {
	return &UserService{repo: repo, logger: logger}
}

func (s *UserService) Get(ctx context.Context, id string) (*UserResponse, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get user", slog.String("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return userModelToResponse(user), nil
}

func (s *UserService) UpdateName(ctx context.Context, id, name string) (*UserResponse, error) {
	user, err := s.repo.UpdateName(ctx, id, name)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to update user", slog.String("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return userModelToResponse(user), nil
}
