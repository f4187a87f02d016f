package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/nmateus/go-user-accounts/app/observability/metrics"
	"github.com/nmateus/go-user-accounts/config"
	"github.com/nmateus/go-user-accounts/internal/api"
	"github.com/nmateus/go-user-accounts/internal/types"
)

const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

type AuthHandlerImpl struct {
	authService AuthService
	cfg         *config.Config
	logger      *slog.Logger
}

func NewAuthHandlerImpl(authService AuthService, cfg *config.Config, logger *slog.Logger) *AuthHandlerImpl {
	return &AuthHandlerImpl{
		authService: authService,
		cfg:         cfg,
		logger:      logger,
	}
}

// secureCookies reports whether the Secure flag should be set; plain HTTP in
// development would otherwise drop the cookies entirely.
func (h *AuthHandlerImpl) secureCookies() bool {
	return strings.EqualFold(h.cfg.Mode, "production")
}

func (h *AuthHandlerImpl) setAuthCookies(w http.ResponseWriter, accessToken, refreshToken string) {
	http.SetCookie(w, &http.Cookie{
		Name:     AccessTokenCookie,
		Value:    accessToken,
		Path:     "/",
		MaxAge:   int(h.cfg.JWT.AccessTokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies(),
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshTokenCookie,
		Value:    refreshToken,
		Path:     "/",
		MaxAge:   int(h.cfg.JWT.RefreshTokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies(),
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandlerImpl) clearAuthCookies(w http.ResponseWriter) {
	for _, name := range []string{AccessTokenCookie, RefreshTokenCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   h.secureCookies(),
			SameSite: http.SameSiteLaxMode,
		})
	}
}

// Register creates a new account. 201 on success; the response never carries
// the password hash or refresh token.
func (h *AuthHandlerImpl) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Register"))

	var req RegisterRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.authService.Register(ctx, req)
	result := "success"
	defer func() {
		metrics.Get().RegisterRequestsTotal.Add(ctx, 1,
			metric.WithAttributes(attribute.String("result", result)))
	}()
	if err != nil {
		result = "error"
		switch {
		case errors.Is(err, types.ErrValidation):
			api.ErrorResponse(w, r, http.StatusBadRequest, "All fields are required")
		case errors.Is(err, types.ErrConflict):
			api.ErrorResponse(w, r, http.StatusConflict, "User already exists with that username or email")
		default:
			l.ErrorContext(ctx, "Registration failed", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to create user")
		}
		return
	}

	api.WriteResponse(w, r, http.StatusCreated, "User created successfully", user)
}

// Login verifies credentials, sets both auth cookies and returns the token
// pair alongside the sanitized user.
func (h *AuthHandlerImpl) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Login"))

	var req LoginRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	accessToken, refreshToken, user, err := h.authService.Login(ctx, req.Username, req.Email, req.Password)
	result := "success"
	defer func() {
		metrics.Get().LoginRequestsTotal.Add(ctx, 1,
			metric.WithAttributes(attribute.String("result", result)))
	}()
	if err != nil {
		result = "error"
		switch {
		case errors.Is(err, types.ErrValidation):
			api.ErrorResponse(w, r, http.StatusBadRequest, "username or email is required")
		case errors.Is(err, types.ErrNotFound):
			api.ErrorResponse(w, r, http.StatusNotFound, "User does not exist")
		case errors.Is(err, types.ErrBadCredentials):
			api.ErrorResponse(w, r, http.StatusUnauthorized, "Invalid user credentials")
		default:
			l.ErrorContext(ctx, "Login failed", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Something went wrong while logging in")
		}
		return
	}

	h.setAuthCookies(w, accessToken, refreshToken)
	api.WriteResponse(w, r, http.StatusOK, "User logged in successfully", LoginResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
}

// Logout clears the stored refresh token and both cookies. Runs behind the
// Authenticate middleware.
func (h *AuthHandlerImpl) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Logout"))

	userID, ok := GetUserIDFromContext(ctx)
	if !ok || userID == "" {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	if err := h.authService.Logout(ctx, userID); err != nil {
		l.ErrorContext(ctx, "Logout failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to log out")
		return
	}

	h.clearAuthCookies(w)
	api.WriteResponse(w, r, http.StatusOK, "User logged out", struct{}{})
}

// RefreshToken rotates the token pair. Any validation failure is terminal:
// both cookies are cleared and the client must log in again.
func (h *AuthHandlerImpl) RefreshToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "RefreshToken"))

	presented := ""
	if c, err := r.Cookie(RefreshTokenCookie); err == nil {
		presented = c.Value
	}
	if presented == "" {
		var req RefreshTokenRequest
		// Body is optional when the cookie is present, so decode errors for
		// an empty body are ignored here.
		if err := api.DecodeJSONBody(w, r, &req); err == nil {
			presented = req.RefreshToken
		}
	}

	accessToken, refreshToken, err := h.authService.Refresh(ctx, presented)
	result := "success"
	defer func() {
		metrics.Get().TokenRefreshTotal.Add(ctx, 1,
			metric.WithAttributes(attribute.String("result", result)))
	}()
	if err != nil {
		result = "error"
		if errors.Is(err, types.ErrUnauthorized) {
			api.ErrorResponse(w, r, http.StatusUnauthorized, "Unauthorized request")
			return
		}

		l.WarnContext(ctx, "Refresh rejected", slog.Any("error", err))
		h.clearAuthCookies(w)
		switch {
		case errors.Is(err, types.ErrTokenReused):
			api.ErrorResponse(w, r, http.StatusUnauthorized, "Refresh token is expired or used")
		case errors.Is(err, types.ErrTokenInvalid), errors.Is(err, types.ErrTokenExpired):
			api.ErrorResponse(w, r, http.StatusUnauthorized, "Invalid refresh token")
		default:
			api.ErrorResponse(w, r, http.StatusUnauthorized, "Invalid refresh token")
		}
		return
	}

	h.setAuthCookies(w, accessToken, refreshToken)
	api.WriteResponse(w, r, http.StatusOK, "Token refreshed", TokenPairResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
}

// ChangePassword replaces the caller's password after verifying the old one.
// A wrong old password is a 400, matching the public API contract.
func (h *AuthHandlerImpl) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "ChangePassword"))

	userID, ok := GetUserIDFromContext(ctx)
	if !ok || userID == "" {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req ChangePasswordRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.authService.ChangePassword(ctx, userID, req.OldPassword, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, types.ErrBadCredentials):
			api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid old password")
		case errors.Is(err, types.ErrValidation):
			api.ErrorResponse(w, r, http.StatusBadRequest, "New password is required")
		case errors.Is(err, types.ErrNotFound):
			api.ErrorResponse(w, r, http.StatusNotFound, "User not found")
		default:
			l.ErrorContext(ctx, "Password change failed", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to change password")
		}
		return
	}

	api.WriteResponse(w, r, http.StatusOK, "Password changed successfully", struct{}{})
}
