package user

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/nmateus/go-user-accounts/internal/types"
)

var _ UserService = (*UserServiceImpl)(nil)

// UserService is the business-logic contract for account reads and
// profile/administrative mutations. Everything here runs behind the
// authentication guard.
type UserService interface {
	GetUserByID(ctx context.Context, userID uuid.UUID) (*types.User, error)
	GetAllUsers(ctx context.Context) ([]types.User, error)
	UpdateAccount(ctx context.Context, userID uuid.UUID, params types.UpdateAccountParams) (*types.User, error)
	DeleteUser(ctx context.Context, userID uuid.UUID) error
}

type UserServiceImpl struct {
	logger *slog.Logger
	repo   UserRepo
}

func NewUserService(repo UserRepo, logger *slog.Logger) *UserServiceImpl {
	return &UserServiceImpl{
		logger: logger,
		repo:   repo,
	}
}

func (s *UserServiceImpl) GetUserByID(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	return s.repo.GetUserByID(ctx, userID)
}

// GetAllUsers returns types.ErrNotFound for an empty table so the handler can
// answer 404, matching the public API contract.
func (s *UserServiceImpl) GetAllUsers(ctx context.Context) ([]types.User, error) {
	users, err := s.repo.GetAllUsers(ctx)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, types.ErrNotFound
	}
	return users, nil
}

func (s *UserServiceImpl) UpdateAccount(ctx context.Context, userID uuid.UUID, params types.UpdateAccountParams) (*types.User, error) {
	if params.IsEmpty() {
		return nil, fmt.Errorf("%w: at least one field is required", types.ErrValidation)
	}
	if params.Email != nil && strings.TrimSpace(*params.Email) == "" {
		return nil, fmt.Errorf("%w: email must not be empty", types.ErrValidation)
	}
	if params.FullName != nil && strings.TrimSpace(*params.FullName) == "" {
		return nil, fmt.Errorf("%w: fullName must not be empty", types.ErrValidation)
	}

	updated, err := s.repo.UpdateAccount(ctx, userID, params)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Account updated", slog.String("userID", userID.String()))
	return updated, nil
}

func (s *UserServiceImpl) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.DeleteUser(ctx, userID); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "User deleted", slog.String("userID", userID.String()))
	return nil
}
