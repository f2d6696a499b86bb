package ports

import (
	"context"

	"ride-dispatch/internal/dispatch-service/core/domain/model"
)

// IRidesRepo owns ride records. Every status-changing method is an atomic
// conditional update: the status precondition is checked and applied in one
// statement, so a racing caller loses with InvalidTransition instead of
// overwriting (see myerrors for the taxonomy each method returns).
type IRidesRepo interface {
	Create(ctx context.Context, ride model.Ride) (model.Ride, error)
	Get(ctx context.Context, rideID int64) (model.Ride, error)

	Accept(ctx context.Context, rideID, driverID int64) (model.Ride, error)
	Start(ctx context.Context, rideID, driverID int64) (model.Ride, error)
	Complete(ctx context.Context, rideID, driverID int64, finalPrice *float64) (model.Ride, error)
	CancelByPassenger(ctx context.Context, rideID, passengerID int64) (model.Ride, error)
	CancelByDriver(ctx context.Context, rideID, driverID int64) (model.Ride, error)

	ListByPassenger(ctx context.Context, passengerID int64, limit int) ([]model.Ride, error)
	ListByDriver(ctx context.Context, driverID int64, limit int) ([]model.Ride, error)

	// FindActiveByDriver returns the driver's ride in accepted/started status,
	// or NotFound when the driver has none.
	FindActiveByDriver(ctx context.Context, driverID int64) (model.Ride, error)
}

type INotificationsRepo interface {
	Create(ctx context.Context, n model.Notification) (model.Notification, error)
	ListForUser(ctx context.Context, userID int64, limit, offset int) ([]model.Notification, error)
	UnreadCount(ctx context.Context, userID int64) (int64, error)
	// MarkRead fails with Forbidden when the notification belongs to someone else.
	MarkRead(ctx context.Context, notificationID, userID int64) (model.Notification, error)
	MarkAllRead(ctx context.Context, userID int64) (int64, error)
}

// IPresenceRepo is the durable driver presence registry. Location writes are
// last-writer-wins; no cross-driver coordination.
type IPresenceRepo interface {
	SetAvailability(ctx context.Context, driverID int64, available bool, vehicleType string) error
	UpdateLocation(ctx context.Context, driverID int64, lat, lng float64) error
	Get(ctx context.Context, driverID int64) (model.DriverPresence, error)
	ListAvailable(ctx context.Context) ([]model.DriverPresence, error)
}
