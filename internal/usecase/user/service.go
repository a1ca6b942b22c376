package user

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	domain "user-crud-service/internal/domain/user"
	"user-crud-service/pkg/logger"
)

// ErrDuplicateEmail is returned by repositories when the unique email index rejects a write.
var ErrDuplicateEmail = errors.New("duplicate email")

// Service delegates user operations to a Repository and wraps backend failures.
type Service struct {
	repo Repository  // Repository for data access
	log  *zap.Logger // Logger for structured logging
}

// New creates a new Service backed by r.
func New(r Repository, log *zap.Logger) *Service {
	return &Service{repo: r, log: log}
}

var _ Usecase = (*Service)(nil)

// CreateUser inserts u and returns the stored record.
func (s *Service) CreateUser(ctx context.Context, u *domain.User) (*domain.User, error) {
	log := logger.WithContext(ctx, s.log)

	created, err := s.repo.Create(ctx, u)
	if err != nil {
		log.Error("failed to create user", zap.String("email", u.Email), zap.Error(err))
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	log.Debug("user created", zap.String("id", created.ID))
	return created, nil
}

// GetUserByID returns the user with the given id, or nil if none exists.
func (s *Service) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		logger.WithContext(ctx, s.log).Error("failed to get user", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("error getting user: %w", err)
	}
	return u, nil
}

// GetUsersByEmail returns every user stored with email.
func (s *Service) GetUsersByEmail(ctx context.Context, email string) ([]domain.User, error) {
	users, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		logger.WithContext(ctx, s.log).Error("failed to get users by email", zap.String("email", email), zap.Error(err))
		return nil, fmt.Errorf("error getting user: %w", err)
	}
	return users, nil
}

// UpdateUser merges patch into the user with the given id and returns the result,
// or nil if no user matches.
func (s *Service) UpdateUser(ctx context.Context, id string, patch domain.Patch) (*domain.User, error) {
	log := logger.WithContext(ctx, s.log)

	u, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		log.Error("failed to update user", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("error updating user: %w", err)
	}

	if u != nil {
		log.Debug("user updated", zap.String("id", id))
	}
	return u, nil
}

// DeleteUser removes the user with the given id and returns its prior state,
// or nil if no user matches.
func (s *Service) DeleteUser(ctx context.Context, id string) (*domain.User, error) {
	log := logger.WithContext(ctx, s.log)

	u, err := s.repo.Delete(ctx, id)
	if err != nil {
		log.Error("failed to delete user", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("error deleting user: %w", err)
	}

	if u != nil {
		log.Debug("user deleted", zap.String("id", id))
	}
	return u, nil
}
