package ports

import (
	"context"

	"ride-dispatch/internal/dispatch-service/core/domain/dto"
	"ride-dispatch/internal/dispatch-service/core/domain/model"
)

// IRidesService is the ride state machine. Transitions move forward only:
// pending -> accepted -> started -> completed, with cancelled reachable from
// pending or accepted.
type IRidesService interface {
	Create(ctx context.Context, req dto.RideRequestDto) (model.Ride, error)
	Get(ctx context.Context, rideID int64) (model.Ride, error)
	Accept(ctx context.Context, rideID, driverID int64) (model.Ride, error)
	Start(ctx context.Context, rideID, driverID int64) (model.Ride, error)
	Complete(ctx context.Context, rideID, driverID int64, finalPrice *float64) (model.Ride, error)
	Cancel(ctx context.Context, rideID, actorID int64, actorType model.ActorType) (model.Ride, error)
	ListByPassenger(ctx context.Context, passengerID int64, limit int) ([]model.Ride, error)
	ListByDriver(ctx context.Context, driverID int64, limit int) ([]model.Ride, error)
	// FindActiveByDriver resolves the accepted or started ride a driver is on,
	// used to route live location to the right passenger.
	FindActiveByDriver(ctx context.Context, driverID int64) (model.Ride, error)
}

type IMatchingService interface {
	FindNearby(ctx context.Context, lat, lng, radiusKm float64, limit int) ([]model.DriverPresence, error)
}

type IPresenceService interface {
	SetAvailability(ctx context.Context, driverID int64, available bool, vehicleType string) (model.DriverPresence, error)
	UpdateLocation(ctx context.Context, driverID int64, lat, lng float64) (model.DriverPresence, error)
	Get(ctx context.Context, driverID int64) (model.DriverPresence, error)
	// Warm loads the available drivers from the durable registry into the
	// in-process index after a restart.
	Warm(ctx context.Context) error
}

type INotificationService interface {
	Notify(ctx context.Context, recipientID int64, t model.NotificationType, title, message string, rideID *int64) (model.Notification, error)
	ListForUser(ctx context.Context, userID int64, limit, offset int) ([]model.Notification, error)
	UnreadCount(ctx context.Context, userID int64) (int64, error)
	MarkRead(ctx context.Context, notificationID, userID int64) (model.Notification, error)
	MarkAllRead(ctx context.Context, userID int64) (int64, error)
}

type IDispatchService interface {
	RequestRide(ctx context.Context, req dto.RideRequestDto) (model.Ride, []model.DriverPresence, error)
}
