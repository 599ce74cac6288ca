package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"bookingcore/internal/model"
)

type NotificationRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewNotificationRepository(db *pgxpool.Pool, logger *zap.Logger) *NotificationRepository {
	return &NotificationRepository{
		db:     db,
		logger: logger,
	}
}

// Insert stores an in-app notification for a tenant's staff.
func (r *NotificationRepository) Insert(ctx context.Context, n *model.Notification) (int64, error) {
	query := `
		INSERT INTO notifications (tenant_id, kind, title, description, link)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query, n.TenantID, n.Kind, n.Title, n.Description, n.Link).
		Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert notification: %w", err)
	}

	r.logger.Debug("Notification inserted",
		zap.Int64("id", n.ID),
		zap.Int64("tenant_id", n.TenantID),
		zap.String("kind", n.Kind),
	)
	return n.ID, nil
}

// ListByTenant returns the tenant's notifications, newest first.
func (r *NotificationRepository) ListByTenant(ctx context.Context, tenantID int64, limit int) ([]model.Notification, error) {
	query := `
		SELECT id, tenant_id, kind, title, description, COALESCE(link, ''), is_read, created_at
		FROM notifications
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		var n model.Notification
		err := rows.Scan(
			&n.ID,
			&n.TenantID,
			&n.Kind,
			&n.Title,
			&n.Description,
			&n.Link,
			&n.IsRead,
			&n.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}

	return notifications, rows.Err()
}

// UnreadCount returns how many notifications the tenant has not read yet.
func (r *NotificationRepository) UnreadCount(ctx context.Context, tenantID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM notifications WHERE tenant_id = $1 AND is_read = FALSE
	`, tenantID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// MarkAsRead flips the read flag. Tenant-scoped so one tenant cannot mark
// another's notifications.
func (r *NotificationRepository) MarkAsRead(ctx context.Context, tenantID, id int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE notifications SET is_read = TRUE WHERE id = $1 AND tenant_id = $2
	`, id, tenantID)
	if err != nil {
		return fmt.Errorf("failed to mark notification as read: %w", err)
	}
	return nil
}
