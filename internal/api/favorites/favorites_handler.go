package favorites

import (
	"errors"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/skyvault/skyvault/app/observability/metrics"
	"github.com/skyvault/skyvault/internal/api"
	"github.com/skyvault/skyvault/internal/api/auth"
)

type FavoritesHandler struct {
	favoritesService FavoritesService
	logger           *slog.Logger
}

func NewFavoritesHandler(favoritesService FavoritesService, logger *slog.Logger) *FavoritesHandler {
	return &FavoritesHandler{
		favoritesService: favoritesService,
		logger:           logger,
	}
}

// List returns the authenticated user's favorites, newest first.
func (h *FavoritesHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("FavoritesHandler").Start(r.Context(), "ListFavorites", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/favorites"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "ListFavorites"))

	userID, ok := auth.GetUserIDFromContext(ctx)
	if !ok {
		l.ErrorContext(ctx, "User ID not found in context")
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	favs, err := h.favoritesService.List(ctx, userID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to list favorites", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "server error")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, favs)
}

// Add favorites an item for the authenticated user. Re-adding an existing
// favorite succeeds without creating a duplicate.
func (h *FavoritesHandler) Add(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("FavoritesHandler").Start(r.Context(), "AddFavorite", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/favorites"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "AddFavorite"))

	userID, ok := auth.GetUserIDFromContext(ctx)
	if !ok {
		l.ErrorContext(ctx, "User ID not found in context")
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	span.SetAttributes(semconv.EnduserIDKey.Int64(userID))
	l = l.With(slog.Int64("userID", userID))

	var req api.AddFavoriteRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if req.ItemID == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "itemId is required")
		return
	}

	if err := h.favoritesService.Add(ctx, userID, req.ItemID, req.ItemName); err != nil {
		switch {
		case errors.Is(err, api.ErrBadRequest):
			api.ErrorResponse(w, r, http.StatusBadRequest, "itemId is required")
		case errors.Is(err, api.ErrNotFound):
			api.ErrorResponse(w, r, http.StatusNotFound, "user not found")
		default:
			l.ErrorContext(ctx, "Failed to add favorite", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "server error")
		}
		return
	}

	if m := metrics.Get(); m != nil {
		m.FavoriteAddsTotal.Add(ctx, 1)
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, map[string]bool{"ok": true})
}

// Remove unfavorites an item. Removing an item that is not favorited is a
// 404 so the client can detect a desynced mirror.
func (h *FavoritesHandler) Remove(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("FavoritesHandler").Start(r.Context(), "RemoveFavorite", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/favorites"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "RemoveFavorite"))

	userID, ok := auth.GetUserIDFromContext(ctx)
	if !ok {
		l.ErrorContext(ctx, "User ID not found in context")
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	span.SetAttributes(semconv.EnduserIDKey.Int64(userID))
	l = l.With(slog.Int64("userID", userID))

	var req api.RemoveFavoriteRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if req.ItemID == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "itemId is required")
		return
	}

	if err := h.favoritesService.Remove(ctx, userID, req.ItemID); err != nil {
		switch {
		case errors.Is(err, api.ErrNotFound):
			api.ErrorResponse(w, r, http.StatusNotFound, "favorite not found")
		case errors.Is(err, api.ErrBadRequest):
			api.ErrorResponse(w, r, http.StatusBadRequest, "itemId is required")
		default:
			l.ErrorContext(ctx, "Failed to remove favorite", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "server error")
		}
		return
	}

	if m := metrics.Get(); m != nil {
		m.FavoriteRemovesTotal.Add(ctx, 1)
	}
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]bool{"ok": true})
}
