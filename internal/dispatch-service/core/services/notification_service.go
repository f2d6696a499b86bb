package services

import (
	"context"
	"time"

	"ride-dispatch/internal/dispatch-service/core/domain/model"
	websocketdto "ride-dispatch/internal/dispatch-service/core/domain/websocket_dto"
	"ride-dispatch/internal/dispatch-service/core/myerrors"
	"ride-dispatch/internal/dispatch-service/core/ports"
	"ride-dispatch/internal/mylogger"
)

const (
	DefaultNotificationLimit = 20
	MaxNotificationLimit     = 100
)

// NotificationService is the gateway: it always writes the durable record and
// then attempts the live push. The durable write is the source of truth; a push
// failure is logged and swallowed.
type NotificationService struct {
	mylog mylogger.Logger
	repo  ports.INotificationsRepo
	push  ports.INotifyWebsocket
}

func NewNotificationService(log mylogger.Logger, repo ports.INotificationsRepo, push ports.INotifyWebsocket) ports.INotificationService {
	return &NotificationService{
		mylog: log,
		repo:  repo,
		push:  push,
	}
}

func (ns *NotificationService) Notify(ctx context.Context, recipientID int64, t model.NotificationType, title, message string, rideID *int64) (model.Notification, error) {
	log := ns.mylog.Action("Notify")

	if recipientID <= 0 {
		return model.Notification{}, myerrors.Validation("recipient id is required")
	}
	if t == "" {
		return model.Notification{}, myerrors.Validation("notification type is required")
	}

	n, err := ns.repo.Create(ctx, model.Notification{
		RecipientID: recipientID,
		Type:        t,
		Title:       title,
		Message:     message,
		RideID:      rideID,
	})
	if err != nil {
		return model.Notification{}, myerrors.Internal("persist notification", err)
	}

	if ns.push != nil {
		event, err := websocketdto.NewEvent(websocketdto.EventNotification, websocketdto.RideEventDto{
			NotificationID: n.ID,
			Type:           string(n.Type),
			Title:          n.Title,
			Message:        n.Message,
			RideID:         n.RideID,
			CreatedAt:      n.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			log.Error("cannot encode push event", err, "notification_id", n.ID)
			return n, nil
		}
		// best-effort: a disconnected client catches up via the durable path
		ns.push.WriteToUser(recipientID, event)
	}

	return n, nil
}

func (ns *NotificationService) ListForUser(ctx context.Context, userID int64, limit, offset int) ([]model.Notification, error) {
	if userID <= 0 {
		return nil, myerrors.Validation("user id is required")
	}
	if limit <= 0 {
		limit = DefaultNotificationLimit
	}
	if limit > MaxNotificationLimit {
		limit = MaxNotificationLimit
	}
	if offset < 0 {
		offset = 0
	}
	return ns.repo.ListForUser(ctx, userID, limit, offset)
}

func (ns *NotificationService) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	if userID <= 0 {
		return 0, myerrors.Validation("user id is required")
	}
	return ns.repo.UnreadCount(ctx, userID)
}

func (ns *NotificationService) MarkRead(ctx context.Context, notificationID, userID int64) (model.Notification, error) {
	if notificationID <= 0 || userID <= 0 {
		return model.Notification{}, myerrors.Validation("notification id and user id are required")
	}
	return ns.repo.MarkRead(ctx, notificationID, userID)
}

func (ns *NotificationService) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	if userID <= 0 {
		return 0, myerrors.Validation("user id is required")
	}
	return ns.repo.MarkAllRead(ctx, userID)
}
