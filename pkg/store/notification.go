package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-pkgz/repeater/v2"

	"github.com/tritonhub/tritonhub/pkg/domain"
)

// notificationSQL represents a notification row for SQL operations
type notificationSQL struct {
	ID        int64     `db:"id"`
	UserID    string    `db:"user_id"`
	Source    string    `db:"source"`
	Category  string    `db:"category"`
	EventDate string    `db:"event_date"`
	EventTime string    `db:"event_time"`
	Urgency   string    `db:"urgency"`
	Link      string    `db:"link"`
	Summary   string    `db:"summary"`
	Completed bool      `db:"completed"`
	CreatedAt time.Time `db:"created_at"`
}

func (n notificationSQL) toDomain() domain.Notification {
	return domain.Notification{
		ID:        n.ID,
		UserID:    n.UserID,
		Source:    n.Source,
		Category:  n.Category,
		EventDate: n.EventDate,
		EventTime: n.EventTime,
		Urgency:   n.Urgency,
		Link:      n.Link,
		Summary:   n.Summary,
		Completed: n.Completed,
		CreatedAt: n.CreatedAt,
	}
}

// ListNotifications returns all notifications for the user, newest first
func (s *Store) ListNotifications(ctx context.Context, userID string) ([]domain.Notification, error) {
	var rows []notificationSQL
	query := `SELECT * FROM notifications WHERE user_id = ? ORDER BY created_at DESC, id DESC`
	if err := s.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	notifications := make([]domain.Notification, 0, len(rows))
	for _, r := range rows {
		notifications = append(notifications, r.toDomain())
	}
	return notifications, nil
}

// GetNotification retrieves a single notification scoped to the user
func (s *Store) GetNotification(ctx context.Context, userID string, id int64) (*domain.Notification, error) {
	var row notificationSQL
	query := `SELECT * FROM notifications WHERE user_id = ? AND id = ?`
	if err := s.db.GetContext(ctx, &row, query, userID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("notification %d not found", id)
		}
		return nil, fmt.Errorf("get notification: %w", err)
	}
	n := row.toDomain()
	return &n, nil
}

// CreateNotification inserts a notification and sets its assigned id and
// creation time on the passed record. Absent date/time/link fields must
// already carry the EMPTY sentinel.
func (s *Store) CreateNotification(ctx context.Context, n *domain.Notification) error {
	if n.EventDate == "" {
		n.EventDate = domain.EmptySentinel
	}
	if n.EventTime == "" {
		n.EventTime = domain.EmptySentinel
	}
	if n.Link == "" {
		n.Link = domain.EmptySentinel
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	retrier := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))

	return retrier.Do(ctx, func() error {
		query := `
			INSERT INTO notifications (user_id, source, category, event_date, event_time, urgency, link, summary, completed, created_at)
			VALUES (:user_id, :source, :category, :event_date, :event_time, :urgency, :link, :summary, :completed, :created_at)
		`
		result, err := s.db.NamedExecContext(ctx, query, notificationSQL{
			UserID:    n.UserID,
			Source:    n.Source,
			Category:  n.Category,
			EventDate: n.EventDate,
			EventTime: n.EventTime,
			Urgency:   n.Urgency,
			Link:      n.Link,
			Summary:   n.Summary,
			Completed: n.Completed,
			CreatedAt: n.CreatedAt,
		})
		if err != nil {
			if isLockError(err) {
				return err // retrier will retry this
			}
			return &criticalError{err: fmt.Errorf("insert notification: %w", err)}
		}

		id, err := result.LastInsertId()
		if err != nil {
			return &criticalError{err: fmt.Errorf("get last insert id: %w", err)}
		}
		n.ID = id
		return nil
	})
}

// SetNotificationCompleted toggles the completion flag on a notification
func (s *Store) SetNotificationCompleted(ctx context.Context, userID string, id int64, completed bool) error {
	retrier := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))

	return retrier.Do(ctx, func() error {
		query := `UPDATE notifications SET completed = ? WHERE user_id = ? AND id = ?`
		result, err := s.db.ExecContext(ctx, query, completed, userID, id)
		if err != nil {
			if isLockError(err) {
				return err
			}
			return &criticalError{err: fmt.Errorf("update notification completed: %w", err)}
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return &criticalError{err: fmt.Errorf("get rows affected: %w", err)}
		}
		if affected == 0 {
			return &criticalError{err: fmt.Errorf("notification %d not found", id)}
		}
		return nil
	})
}
