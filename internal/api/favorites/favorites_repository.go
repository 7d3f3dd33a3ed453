package favorites

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/skyvault/skyvault/internal/api"
)

const foreignKeyViolationCode = "23503"

// DB is the subset of pgxpool.Pool the repository needs. pgxmock satisfies
// it in tests.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var _ FavoritesRepo = (*RepositoryImpl)(nil)

type FavoritesRepo interface {
	ListByUserID(ctx context.Context, userID int64) ([]api.Favorite, error)
	Add(ctx context.Context, userID int64, itemID, itemName string) error
	Remove(ctx context.Context, userID int64, itemID string) error
}

type RepositoryImpl struct {
	logger *slog.Logger
	db     DB
}

func NewRepositoryImpl(db DB, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{
		logger: logger,
		db:     db,
	}
}

// ListByUserID returns the user's favorites, newest first. A user with no
// favorites yields an empty slice, not an error.
func (r *RepositoryImpl) ListByUserID(ctx context.Context, userID int64) ([]api.Favorite, error) {
	rows, err := r.db.Query(ctx,
		`SELECT item_id, COALESCE(item_name, ''), created_at
         FROM favorites
         WHERE user_id = $1
         ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query favorites: %w", err)
	}
	defer rows.Close()

	favs := []api.Favorite{}
	for rows.Next() {
		var f api.Favorite
		if err := rows.Scan(&f.ItemID, &f.ItemName, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan favorite row: %w", err)
		}
		favs = append(favs, f)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating favorite rows: %w", err)
	}

	return favs, nil
}

// Add inserts the (user, item) pair if absent. The conditional insert is a
// single atomic statement; duplicates are swallowed by the unique index, so
// repeated adds succeed without creating a second row.
func (r *RepositoryImpl) Add(ctx context.Context, userID int64, itemID, itemName string) error {
	var namePtr *string
	if itemName != "" {
		namePtr = &itemName
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO favorites (user_id, item_id, item_name)
         VALUES ($1, $2, $3)
         ON CONFLICT (user_id, item_id) DO NOTHING`,
		userID, itemID, namePtr)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolationCode {
			return fmt.Errorf("user %d not found: %w", userID, api.ErrNotFound)
		}
		return fmt.Errorf("failed to insert favorite: %w", err)
	}

	r.logger.InfoContext(ctx, "Favorite added", slog.Int64("userID", userID), slog.String("itemID", itemID))
	return nil
}

// Remove deletes the (user, item) pair. Deleting an absent pair returns
// api.ErrNotFound so the client can detect a desync.
func (r *RepositoryImpl) Remove(ctx context.Context, userID int64, itemID string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM favorites
         WHERE user_id = $1 AND item_id = $2`,
		userID, itemID)
	if err != nil {
		return fmt.Errorf("failed to delete favorite: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("favorite %q: %w", itemID, api.ErrNotFound)
	}

	r.logger.InfoContext(ctx, "Favorite removed", slog.Int64("userID", userID), slog.String("itemID", itemID))
	return nil
}
