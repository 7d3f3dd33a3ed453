package catalog

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/skyvault/skyvault/internal/api"
)

type CatalogHandler struct {
	catalogService CatalogService
	logger         *slog.Logger
}

func NewCatalogHandler(catalogService CatalogService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
		logger:         logger,
	}
}

// Items serves the cached upstream item catalog.
func (h *CatalogHandler) Items(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Items"))

	items, err := h.catalogService.Items(ctx)
	if err != nil {
		l.ErrorContext(ctx, "Failed to fetch item catalog", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadGateway, "upstream catalog unavailable")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(items)
}

// Election serves the cached upstream election resource.
func (h *CatalogHandler) Election(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Election"))

	election, err := h.catalogService.Election(ctx)
	if err != nil {
		l.ErrorContext(ctx, "Failed to fetch election data", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadGateway, "upstream election data unavailable")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(election)
}

// PlayerProfiles proxies player-profile inventory lookups.
func (h *CatalogHandler) PlayerProfiles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "PlayerProfiles"))

	name := chi.URLParam(r, "name")
	if name == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "player name is required")
		return
	}

	profiles, err := h.catalogService.PlayerProfiles(ctx, name)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "player not found")
			return
		}
		l.ErrorContext(ctx, "Failed to fetch player profiles", slog.String("player", name), slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadGateway, "upstream profiles unavailable")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(profiles)
}
