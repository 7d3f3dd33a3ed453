package favorites

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/skyvault/skyvault/internal/api"
)

var _ FavoritesService = (*ServiceImpl)(nil)

// FavoritesService exposes the per-user favorites operations. Callers are
// expected to pass a userID resolved from a verified token; the service
// itself never sees credentials.
type FavoritesService interface {
	List(ctx context.Context, userID int64) ([]api.Favorite, error)

	// Add is idempotent: favoriting an already-favorited item succeeds and
	// leaves a single row, which keeps optimistic-UI retries cheap.
	Add(ctx context.Context, userID int64, itemID, itemName string) error

	// Remove fails with api.ErrNotFound when no matching row exists.
	Remove(ctx context.Context, userID int64, itemID string) error
}

type ServiceImpl struct {
	logger *slog.Logger
	repo   FavoritesRepo
}

func NewServiceImpl(repo FavoritesRepo, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger: logger,
		repo:   repo,
	}
}

func (s *ServiceImpl) List(ctx context.Context, userID int64) ([]api.Favorite, error) {
	favs, err := s.repo.ListByUserID(ctx, userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list favorites", slog.Int64("userID", userID), slog.Any("error", err))
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	return favs, nil
}

func (s *ServiceImpl) Add(ctx context.Context, userID int64, itemID, itemName string) error {
	if itemID == "" {
		return fmt.Errorf("itemId is required: %w", api.ErrBadRequest)
	}
	if err := s.repo.Add(ctx, userID, itemID, itemName); err != nil {
		s.logger.ErrorContext(ctx, "Failed to add favorite", slog.Int64("userID", userID), slog.String("itemID", itemID), slog.Any("error", err))
		return fmt.Errorf("add favorite: %w", err)
	}
	return nil
}

func (s *ServiceImpl) Remove(ctx context.Context, userID int64, itemID string) error {
	if itemID == "" {
		return fmt.Errorf("itemId is required: %w", api.ErrBadRequest)
	}
	if err := s.repo.Remove(ctx, userID, itemID); err != nil {
		return fmt.Errorf("remove favorite: %w", err)
	}
	return nil
}
