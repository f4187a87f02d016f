package user

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nmateus/go-user-accounts/internal/api"
	"github.com/nmateus/go-user-accounts/internal/api/auth"
	"github.com/nmateus/go-user-accounts/internal/types"
)

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	GetCurrentUser(w http.ResponseWriter, r *http.Request)
	UpdateAccount(w http.ResponseWriter, r *http.Request)
	GetAllUsers(w http.ResponseWriter, r *http.Request)
	GetUserByID(w http.ResponseWriter, r *http.Request)
	UpdateUserByID(w http.ResponseWriter, r *http.Request)
	DeleteUserByID(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	userService UserService
	logger      *slog.Logger
}

func NewHandlerImpl(userService UserService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		userService: userService,
		logger:      logger,
	}
}

// callerID extracts the authenticated identity attached by the guard.
func callerID(r *http.Request) (uuid.UUID, bool) {
	userIDStr, ok := auth.GetUserIDFromContext(r.Context())
	if !ok || userIDStr == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// pathUserID parses the {userID} URL parameter.
func pathUserID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "userID"))
}

// GetCurrentUser returns the caller's own sanitized record.
func (h *HandlerImpl) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "GetCurrentUser"))

	userID, ok := callerID(r)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	user, err := h.userService.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "User not found")
			return
		}
		l.ErrorContext(ctx, "Failed to fetch current user", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to fetch user")
		return
	}

	api.WriteResponse(w, r, http.StatusOK, "User fetched successfully", user)
}

// UpdateAccount applies a partial update to the caller's own record.
func (h *HandlerImpl) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(r)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	h.applyUpdate(w, r, userID, "Account details updated successfully")
}

// GetAllUsers lists every account; 404 when the table is empty.
func (h *HandlerImpl) GetAllUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "GetAllUsers"))

	users, err := h.userService.GetAllUsers(ctx)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "No users found")
			return
		}
		l.ErrorContext(ctx, "Failed to list users", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to fetch users")
		return
	}

	api.WriteResponse(w, r, http.StatusOK, "Users fetched successfully", users)
}

// GetUserByID returns any account by its ID (administrative read).
func (h *HandlerImpl) GetUserByID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "GetUserByID"))

	userID, err := pathUserID(r)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid user ID")
		return
	}

	user, err := h.userService.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "User not found")
			return
		}
		l.ErrorContext(ctx, "Failed to fetch user", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to fetch user")
		return
	}

	api.WriteResponse(w, r, http.StatusOK, "User fetched successfully", user)
}

// UpdateUserByID applies a partial update to any account (administrative).
func (h *HandlerImpl) UpdateUserByID(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUserID(r)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid user ID")
		return
	}
	h.applyUpdate(w, r, userID, "User updated successfully")
}

// DeleteUserByID removes an account (administrative).
func (h *HandlerImpl) DeleteUserByID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "DeleteUserByID"))

	userID, err := pathUserID(r)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid user ID")
		return
	}

	if err := h.userService.DeleteUser(ctx, userID); err != nil {
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "User not found")
			return
		}
		l.ErrorContext(ctx, "Failed to delete user", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to delete user")
		return
	}

	api.WriteResponse(w, r, http.StatusOK, "User deleted successfully", struct{}{})
}

func (h *HandlerImpl) applyUpdate(w http.ResponseWriter, r *http.Request, userID uuid.UUID, successMessage string) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "applyUpdate"), slog.String("userID", userID.String()))

	var params types.UpdateAccountParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.userService.UpdateAccount(ctx, userID, params)
	if err != nil {
		switch {
		case errors.Is(err, types.ErrValidation):
			api.ErrorResponse(w, r, http.StatusBadRequest, "All fields are required")
		case errors.Is(err, types.ErrConflict):
			api.ErrorResponse(w, r, http.StatusConflict, "Email or username already in use")
		case errors.Is(err, types.ErrNotFound):
			api.ErrorResponse(w, r, http.StatusNotFound, "User not found")
		default:
			l.ErrorContext(ctx, "Failed to update account", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to update account")
		}
		return
	}

	api.WriteResponse(w, r, http.StatusOK, successMessage, updated)
}
