package db

import (
	"context"
	"errors"

	"ride-dispatch/internal/dispatch-service/core/domain/model"
	"ride-dispatch/internal/dispatch-service/core/myerrors"
	"ride-dispatch/internal/dispatch-service/core/ports"

	"github.com/jackc/pgx/v5"
)

const notificationColumns = `
	notification_id, recipient_id, type, title, message, ride_id,
	is_read, created_at, read_at`

type NotificationsRepo struct {
	db *DB
}

func NewNotificationsRepo(db *DB) ports.INotificationsRepo {
	return &NotificationsRepo{
		db: db,
	}
}

func (nr *NotificationsRepo) Create(ctx context.Context, n model.Notification) (model.Notification, error) {
	q := `
	INSERT INTO notifications(recipient_id, type, title, message, ride_id, is_read)
	VALUES ($1, $2, $3, $4, $5, FALSE)
	RETURNING` + notificationColumns

	row := nr.db.GetPool().QueryRow(ctx, q, n.RecipientID, n.Type, n.Title, n.Message, n.RideID)
	out, err := scanNotification(row)
	if err != nil {
		return model.Notification{}, myerrors.Internal("insert notification", err)
	}
	return out, nil
}

func (nr *NotificationsRepo) ListForUser(ctx context.Context, userID int64, limit, offset int) ([]model.Notification, error) {
	q := `SELECT` + notificationColumns + `
	FROM notifications
	WHERE recipient_id = $1
	ORDER BY created_at DESC
	LIMIT $2 OFFSET $3`

	rows, err := nr.db.GetPool().Query(ctx, q, userID, limit, offset)
	if err != nil {
		return nil, myerrors.Internal("list notifications", err)
	}
	defer rows.Close()

	var out []model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, myerrors.Internal("scan notification", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, myerrors.Internal("list notifications", err)
	}
	return out, nil
}

func (nr *NotificationsRepo) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	q := `SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND is_read = FALSE`

	var count int64
	if err := nr.db.GetPool().QueryRow(ctx, q, userID).Scan(&count); err != nil {
		return 0, myerrors.Internal("count unread notifications", err)
	}
	return count, nil
}

// MarkRead is conditional on ownership; read_at is stamped once and kept on
// repeated calls so is_read and read_at stay consistent.
func (nr *NotificationsRepo) MarkRead(ctx context.Context, notificationID, userID int64) (model.Notification, error) {
	q := `
	UPDATE notifications
	SET
		is_read = TRUE,
		read_at = COALESCE(read_at, NOW())
	WHERE notification_id = $1 AND recipient_id = $2
	RETURNING` + notificationColumns

	row := nr.db.GetPool().QueryRow(ctx, q, notificationID, userID)
	out, err := scanNotification(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Notification{}, nr.diagnoseMarkRead(ctx, notificationID)
		}
		return model.Notification{}, myerrors.Internal("mark notification read", err)
	}
	return out, nil
}

func (nr *NotificationsRepo) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	q := `
	UPDATE notifications
	SET
		is_read = TRUE,
		read_at = COALESCE(read_at, NOW())
	WHERE recipient_id = $1 AND is_read = FALSE`

	tag, err := nr.db.GetPool().Exec(ctx, q, userID)
	if err != nil {
		return 0, myerrors.Internal("mark all notifications read", err)
	}
	return tag.RowsAffected(), nil
}

func (nr *NotificationsRepo) diagnoseMarkRead(ctx context.Context, notificationID int64) error {
	q := `SELECT recipient_id FROM notifications WHERE notification_id = $1`

	var recipientID int64
	err := nr.db.GetPool().QueryRow(ctx, q, notificationID).Scan(&recipientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return myerrors.NotFound("notification %d not found", notificationID)
		}
		return myerrors.Internal("fetch notification", err)
	}
	return myerrors.Forbidden("notification %d belongs to another user", notificationID)
}

func scanNotification(row pgx.Row) (model.Notification, error) {
	var n model.Notification
	err := row.Scan(
		&n.ID,
		&n.RecipientID,
		&n.Type,
		&n.Title,
		&n.Message,
		&n.RideID,
		&n.IsRead,
		&n.CreatedAt,
		&n.ReadAt,
	)
	if err != nil {
		return model.Notification{}, err
	}
	return n, nil
}
