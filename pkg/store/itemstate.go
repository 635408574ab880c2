package store

import (
	"context"
	"fmt"
	"time"

	"github.com/go-pkgz/repeater/v2"

	"github.com/tritonhub/tritonhub/pkg/feed"
)

// itemStateSQL represents a per-item override row
type itemStateSQL struct {
	UserID    string `db:"user_id"`
	ItemID    string `db:"item_id"`
	Read      bool   `db:"read"`
	Completed bool   `db:"completed"`
}

// GetOverrides loads the user's read and completed id sets for merging into
// derived feed items
func (s *Store) GetOverrides(ctx context.Context, userID string) (feed.Overrides, error) {
	var rows []itemStateSQL
	query := `SELECT user_id, item_id, read, completed FROM item_state WHERE user_id = ?`
	if err := s.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return feed.Overrides{}, fmt.Errorf("load item state: %w", err)
	}

	overrides := feed.Overrides{
		Read:      make(map[string]struct{}),
		Completed: make(map[string]struct{}),
	}
	for _, r := range rows {
		if r.Read {
			overrides.Read[r.ItemID] = struct{}{}
		}
		if r.Completed {
			overrides.Completed[r.ItemID] = struct{}{}
		}
	}
	return overrides, nil
}

// MarkItemRead records a read override for a derived item id
func (s *Store) MarkItemRead(ctx context.Context, userID, itemID string) error {
	return s.upsertState(ctx, userID, itemID, "read")
}

// MarkItemCompleted records a local completion override for a derived item id
func (s *Store) MarkItemCompleted(ctx context.Context, userID, itemID string) error {
	return s.upsertState(ctx, userID, itemID, "completed")
}

func (s *Store) upsertState(ctx context.Context, userID, itemID, column string) error {
	retrier := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))

	return retrier.Do(ctx, func() error {
		query := fmt.Sprintf(`
			INSERT INTO item_state (user_id, item_id, %[1]s, updated_at)
			VALUES (?, ?, 1, datetime('now'))
			ON CONFLICT(user_id, item_id) DO UPDATE SET %[1]s = 1, updated_at = datetime('now')
		`, column)
		if _, err := s.db.ExecContext(ctx, query, userID, itemID); err != nil {
			if isLockError(err) {
				return err // retrier will retry this
			}
			return &criticalError{err: fmt.Errorf("upsert item state: %w", err)}
		}
		return nil
	})
}
