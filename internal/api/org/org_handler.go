package org

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/nmateus/go-user-accounts/internal/api"
	"github.com/nmateus/go-user-accounts/internal/types"
)

type HandlerImpl struct {
	repo   OrgRepo
	logger *slog.Logger
}

func NewHandlerImpl(repo OrgRepo, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		repo:   repo,
		logger: logger,
	}
}

func (h *HandlerImpl) list(w http.ResponseWriter, r *http.Request, name string,
	fetch func(context.Context) ([]types.LookupItem, error)) {
	items, err := fetch(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to list lookup table",
			slog.String("table", name), slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to fetch "+name)
		return
	}
	if items == nil {
		items = []types.LookupItem{}
	}
	api.WriteResponse(w, r, http.StatusOK, name+" fetched successfully", items)
}

func (h *HandlerImpl) ListCompanies(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "companies", h.repo.ListCompanies)
}

func (h *HandlerImpl) ListZones(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "zones", h.repo.ListZones)
}

func (h *HandlerImpl) ListBranches(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "branches", h.repo.ListBranches)
}

func (h *HandlerImpl) ListDivisions(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "divisions", h.repo.ListDivisions)
}

func (h *HandlerImpl) ListLinesOfBusiness(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "lobs", h.repo.ListLinesOfBusiness)
}
