package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/taskd/internal/model"
)

const notificationColumns = "id, user_id, task_id, kind, message, read, created_at"

// CreateNotification inserts a new notification record.
// A missing ID or timestamp is filled in.
func (s *SQLiteStore) CreateNotification(
	ctx context.Context,
	n model.Notification,
) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	if n.Kind == "" {
		n.Kind = model.NotificationStatusChange
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, task_id, kind, message, read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.TaskID, string(n.Kind), n.Message,
		boolToInt(n.Read), n.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("creating notification: %w", err)
	}

	return nil
}

// GetUnreadNotifications retrieves a user's unread notifications,
// newest first.
func (s *SQLiteStore) GetUnreadNotifications(
	ctx context.Context,
	userID int64,
) ([]model.Notification, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT "+notificationColumns+
			" FROM notifications WHERE user_id = ? AND read = 0 ORDER BY created_at DESC",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying unread notifications: %w", err)
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}

	return notifications, rows.Err()
}

// MarkNotificationRead marks one of the user's notifications as read.
// Notifications addressed to somebody else are reported as ErrNotFound.
func (s *SQLiteStore) MarkNotificationRead(
	ctx context.Context,
	userID int64,
	id string,
) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET read = 1 WHERE id = ? AND user_id = ?", id, userID,
	)
	if err != nil {
		return fmt.Errorf("marking notification %s as read: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("marking notification %s as read: %w", id, ErrNotFound)
	}
	return nil
}

// scanNotification scans a notification row selected with notificationColumns.
func scanNotification(row rowScanner) (model.Notification, error) {
	var (
		n       model.Notification
		kind    string
		readInt int
	)

	err := row.Scan(
		&n.ID, &n.UserID, &n.TaskID, &kind, &n.Message,
		&readInt, &n.CreatedAt,
	)
	if err != nil {
		return model.Notification{}, fmt.Errorf("scanning notification row: %w", err)
	}

	n.Kind = model.NotificationKind(kind)
	n.Read = readInt != 0

	return n, nil
}
