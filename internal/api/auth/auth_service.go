package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/nmateus/go-user-accounts/internal/types"
)

var _ AuthService = (*AuthServiceImpl)(nil)

// AuthService orchestrates the session lifecycle: credential verification,
// token issuance, rotation and invalidation.
type AuthService interface {
	// Register creates a new account and returns the sanitized record.
	Register(ctx context.Context, req RegisterRequest) (*types.User, error)

	// Login verifies credentials and returns (accessToken, refreshToken, user).
	// The issued refresh token overwrites any previously stored one, so a
	// user holds at most one live session.
	Login(ctx context.Context, username, email, password string) (string, string, *types.User, error)

	// Logout clears the stored refresh token. Calling it twice is not an error.
	Logout(ctx context.Context, userID string) error

	// Refresh validates the presented refresh token against the stored value
	// and rotates the pair. A stale or replayed token is rejected.
	Refresh(ctx context.Context, presented string) (string, string, error)

	// ChangePassword replaces the hash after verifying the old password.
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error

	// GetUserByID is used by the authorization middleware and /current-user.
	GetUserByID(ctx context.Context, userID string) (*types.User, error)
}

type AuthServiceImpl struct {
	logger *slog.Logger
	repo   AuthRepo
	issuer *TokenIssuer
}

func NewAuthService(repo AuthRepo, issuer *TokenIssuer, logger *slog.Logger) *AuthServiceImpl {
	return &AuthServiceImpl{
		logger: logger,
		repo:   repo,
		issuer: issuer,
	}
}

func (s *AuthServiceImpl) Register(ctx context.Context, req RegisterRequest) (*types.User, error) {
	l := s.logger.With(slog.String("method", "Register"))

	fullName := strings.TrimSpace(req.FullName)
	username := strings.ToLower(strings.TrimSpace(req.Username))
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if fullName == "" || username == "" || email == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: fullName, username, email and password are required", types.ErrValidation)
	}

	// Existence check first for a friendly error; the unique constraints on
	// the insert below close the remaining race window.
	_, err := s.repo.GetUserByUsernameOrEmail(ctx, username, email)
	if err == nil {
		return nil, types.ErrConflict
	}
	if !errors.Is(err, types.ErrNotFound) {
		return nil, fmt.Errorf("register: existence check failed: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("register: failed to hash password: %w", err)
	}

	user := &types.User{
		FullName:     fullName,
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Company:      optional(req.Company),
		Zone:         optional(req.Zone),
		Branch:       optional(req.Branch),
		Division:     optional(req.Division),
		Role:         optional(req.Role),
		Lob:          optional(req.Lob),
	}

	created, err := s.repo.CreateUser(ctx, user)
	if err != nil {
		if errors.Is(err, types.ErrConflict) {
			return nil, types.ErrConflict
		}
		return nil, fmt.Errorf("register: create failed: %w", err)
	}

	l.InfoContext(ctx, "User registered", slog.String("userID", created.ID.String()))
	return created, nil
}

func (s *AuthServiceImpl) Login(ctx context.Context, username, email, password string) (string, string, *types.User, error) {
	l := s.logger.With(slog.String("method", "Login"))

	username = strings.ToLower(strings.TrimSpace(username))
	email = strings.ToLower(strings.TrimSpace(email))
	if username == "" && email == "" {
		return "", "", nil, fmt.Errorf("%w: username or email is required", types.ErrValidation)
	}

	user, err := s.repo.GetUserByUsernameOrEmail(ctx, username, email)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return "", "", nil, types.ErrNotFound
		}
		return "", "", nil, fmt.Errorf("login: lookup failed: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		l.WarnContext(ctx, "Password mismatch", slog.String("userID", user.ID.String()))
		return "", "", nil, types.ErrBadCredentials
	}

	accessToken, refreshToken, err := s.issueTokenPair(ctx, user.ID)
	if err != nil {
		return "", "", nil, err
	}

	l.InfoContext(ctx, "User logged in", slog.String("userID", user.ID.String()))
	return accessToken, refreshToken, user, nil
}

func (s *AuthServiceImpl) Logout(ctx context.Context, userID string) error {
	id, err := uuid.Parse(userID)
	if err != nil {
		return types.ErrUnauthorized
	}

	// Clearing an already-empty slot is fine; logout is idempotent.
	if err := s.repo.UpdateRefreshToken(ctx, id, nil); err != nil && !errors.Is(err, types.ErrNotFound) {
		return fmt.Errorf("logout: failed to clear refresh token: %w", err)
	}
	return nil
}

func (s *AuthServiceImpl) Refresh(ctx context.Context, presented string) (string, string, error) {
	l := s.logger.With(slog.String("method", "Refresh"))

	if presented == "" {
		return "", "", types.ErrUnauthorized
	}

	claims, err := s.issuer.VerifyRefreshToken(presented)
	if err != nil {
		l.WarnContext(ctx, "Refresh token verification failed", slog.Any("error", err))
		return "", "", types.ErrTokenInvalid
	}

	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return "", "", types.ErrTokenInvalid
	}

	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		// Deliberately the same error as a bad signature so callers cannot
		// probe which branch failed.
		return "", "", types.ErrTokenInvalid
	}

	if user.RefreshToken == nil || *user.RefreshToken != presented {
		l.WarnContext(ctx, "Stale or reused refresh token presented", slog.String("userID", user.ID.String()))
		return "", "", types.ErrTokenReused
	}

	accessToken, refreshToken, err := s.issueTokenPair(ctx, user.ID)
	if err != nil {
		return "", "", err
	}

	l.InfoContext(ctx, "Token pair rotated", slog.String("userID", user.ID.String()))
	return accessToken, refreshToken, nil
}

func (s *AuthServiceImpl) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	id, err := uuid.Parse(userID)
	if err != nil {
		return types.ErrUnauthorized
	}
	if newPassword == "" {
		return fmt.Errorf("%w: new password is required", types.ErrValidation)
	}

	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return types.ErrBadCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("change password: failed to hash: %w", err)
	}

	// The outstanding refresh token is left in place: access tokens are
	// short-lived enough that forced re-login is not worth the churn.
	return s.repo.UpdatePassword(ctx, id, string(hash))
}

func (s *AuthServiceImpl) GetUserByID(ctx context.Context, userID string) (*types.User, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, types.ErrNotFound
	}
	return s.repo.GetUserByID(ctx, id)
}

// issueTokenPair creates both tokens and persists the refresh token on the
// user record, overwriting any previous value.
func (s *AuthServiceImpl) issueTokenPair(ctx context.Context, userID uuid.UUID) (string, string, error) {
	accessToken, err := s.issuer.IssueAccessToken(userID.String())
	if err != nil {
		return "", "", fmt.Errorf("%w: access token issuance failed: %s", types.ErrInternal, err)
	}
	refreshToken, err := s.issuer.IssueRefreshToken(userID.String())
	if err != nil {
		return "", "", fmt.Errorf("%w: refresh token issuance failed: %s", types.ErrInternal, err)
	}

	if err := s.repo.UpdateRefreshToken(ctx, userID, &refreshToken); err != nil {
		return "", "", fmt.Errorf("%w: failed to store refresh token: %s", types.ErrInternal, err)
	}
	return accessToken, refreshToken, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
