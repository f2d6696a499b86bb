package services

import (
	"context"
	"sync"
	"time"

	messagebrokerdto "ride-dispatch/internal/dispatch-service/core/domain/message_broker_dto"
	"ride-dispatch/internal/dispatch-service/core/domain/model"
	websocketdto "ride-dispatch/internal/dispatch-service/core/domain/websocket_dto"
	"ride-dispatch/internal/dispatch-service/core/myerrors"
	"ride-dispatch/internal/dispatch-service/core/ports"
	"ride-dispatch/internal/mylogger"

	amqp "github.com/rabbitmq/amqp091-go"
)

func testLogger() mylogger.Logger {
	log, _ := mylogger.New(mylogger.LevelError)
	return log
}

// memRidesRepo mirrors the conditional-update semantics of the postgres repo:
// each transition checks and applies its precondition under one lock, so a
// racing caller loses with InvalidTransition.
type memRidesRepo struct {
	mu    sync.Mutex
	seq   int64
	rides map[int64]model.Ride
}

func newMemRidesRepo() *memRidesRepo {
	return &memRidesRepo{rides: make(map[int64]model.Ride)}
}

var _ ports.IRidesRepo = (*memRidesRepo)(nil)

func (r *memRidesRepo) Create(ctx context.Context, ride model.Ride) (model.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	ride.ID = r.seq
	ride.Status = model.StatusPending
	ride.CreatedAt = time.Now()
	ride.UpdatedAt = ride.CreatedAt
	r.rides[ride.ID] = ride
	return ride, nil
}

func (r *memRidesRepo) Get(ctx context.Context, rideID int64) (model.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ride, ok := r.rides[rideID]
	if !ok {
		return model.Ride{}, myerrors.NotFound("ride %d not found", rideID)
	}
	return ride, nil
}

func (r *memRidesRepo) Accept(ctx context.Context, rideID, driverID int64) (model.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ride, ok := r.rides[rideID]
	if !ok {
		return model.Ride{}, myerrors.NotFound("ride %d not found", rideID)
	}
	if ride.Status != model.StatusPending {
		return model.Ride{}, myerrors.InvalidTransition("cannot accept ride %d in status %s", rideID, ride.Status)
	}
	ride.Status = model.StatusAccepted
	ride.DriverID = &driverID
	ride.UpdatedAt = time.Now()
	r.rides[rideID] = ride
	return ride, nil
}

func (r *memRidesRepo) Start(ctx context.Context, rideID, driverID int64) (model.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ride, ok := r.rides[rideID]
	if !ok {
		return model.Ride{}, myerrors.NotFound("ride %d not found", rideID)
	}
	if ride.DriverID == nil || *ride.DriverID != driverID {
		return model.Ride{}, myerrors.Forbidden("ride %d is not assigned to driver %d", rideID, driverID)
	}
	if ride.Status != model.StatusAccepted {
		return model.Ride{}, myerrors.InvalidTransition("cannot start ride %d in status %s", rideID, ride.Status)
	}
	now := time.Now()
	ride.Status = model.StatusStarted
	ride.StartedAt = &now
	ride.UpdatedAt = now
	r.rides[rideID] = ride
	return ride, nil
}

func (r *memRidesRepo) Complete(ctx context.Context, rideID, driverID int64, finalPrice *float64) (model.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ride, ok := r.rides[rideID]
	if !ok {
		return model.Ride{}, myerrors.NotFound("ride %d not found", rideID)
	}
	if ride.DriverID == nil || *ride.DriverID != driverID {
		return model.Ride{}, myerrors.Forbidden("ride %d is not assigned to driver %d", rideID, driverID)
	}
	if ride.Status != model.StatusStarted && ride.Status != model.StatusAccepted {
		return model.Ride{}, myerrors.InvalidTransition("cannot complete ride %d in status %s", rideID, ride.Status)
	}
	now := time.Now()
	if ride.StartedAt == nil {
		ride.StartedAt = &now
	}
	price := ride.EstimatedPrice
	if finalPrice != nil {
		price = *finalPrice
	}
	ride.FinalPrice = &price
	ride.Status = model.StatusCompleted
	ride.CompletedAt = &now
	ride.UpdatedAt = now
	r.rides[rideID] = ride
	return ride, nil
}

func (r *memRidesRepo) CancelByPassenger(ctx context.Context, rideID, passengerID int64) (model.Ride, error) {
	return r.cancel(rideID, func(ride model.Ride) bool { return ride.PassengerID == passengerID })
}

func (r *memRidesRepo) CancelByDriver(ctx context.Context, rideID, driverID int64) (model.Ride, error) {
	return r.cancel(rideID, func(ride model.Ride) bool {
		return ride.DriverID != nil && *ride.DriverID == driverID
	})
}

func (r *memRidesRepo) cancel(rideID int64, isActor func(model.Ride) bool) (model.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ride, ok := r.rides[rideID]
	if !ok {
		return model.Ride{}, myerrors.NotFound("ride %d not found", rideID)
	}
	if !isActor(ride) {
		return model.Ride{}, myerrors.Forbidden("not a party to ride %d", rideID)
	}
	if ride.Status != model.StatusPending && ride.Status != model.StatusAccepted {
		return model.Ride{}, myerrors.InvalidTransition("cannot cancel ride %d in status %s", rideID, ride.Status)
	}
	ride.Status = model.StatusCancelled
	ride.UpdatedAt = time.Now()
	r.rides[rideID] = ride
	return ride, nil
}

func (r *memRidesRepo) ListByPassenger(ctx context.Context, passengerID int64, limit int) ([]model.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []model.Ride
	for _, ride := range r.rides {
		if ride.PassengerID == passengerID && len(out) < limit {
			out = append(out, ride)
		}
	}
	return out, nil
}

func (r *memRidesRepo) ListByDriver(ctx context.Context, driverID int64, limit int) ([]model.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []model.Ride
	for _, ride := range r.rides {
		if ride.DriverID != nil && *ride.DriverID == driverID && len(out) < limit {
			out = append(out, ride)
		}
	}
	return out, nil
}

func (r *memRidesRepo) FindActiveByDriver(ctx context.Context, driverID int64) (model.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ride := range r.rides {
		if ride.DriverID != nil && *ride.DriverID == driverID &&
			(ride.Status == model.StatusAccepted || ride.Status == model.StatusStarted) {
			return ride, nil
		}
	}
	return model.Ride{}, myerrors.NotFound("driver %d has no active ride", driverID)
}

// memNotificationsRepo is the in-memory stand-in for the durable gateway store.
type memNotificationsRepo struct {
	mu            sync.Mutex
	seq           int64
	notifications []model.Notification
	failCreate    error
}

func newMemNotificationsRepo() *memNotificationsRepo {
	return &memNotificationsRepo{}
}

var _ ports.INotificationsRepo = (*memNotificationsRepo)(nil)

func (r *memNotificationsRepo) Create(ctx context.Context, n model.Notification) (model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failCreate != nil {
		return model.Notification{}, r.failCreate
	}
	r.seq++
	n.ID = r.seq
	n.IsRead = false
	n.CreatedAt = time.Now()
	r.notifications = append(r.notifications, n)
	return n, nil
}

func (r *memNotificationsRepo) ListForUser(ctx context.Context, userID int64, limit, offset int) ([]model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var all []model.Notification
	for i := len(r.notifications) - 1; i >= 0; i-- {
		if r.notifications[i].RecipientID == userID {
			all = append(all, r.notifications[i])
		}
	}
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *memNotificationsRepo) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var count int64
	for _, n := range r.notifications {
		if n.RecipientID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *memNotificationsRepo) MarkRead(ctx context.Context, notificationID, userID int64) (model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, n := range r.notifications {
		if n.ID != notificationID {
			continue
		}
		if n.RecipientID != userID {
			return model.Notification{}, myerrors.Forbidden("notification %d belongs to another user", notificationID)
		}
		if !n.IsRead {
			now := time.Now()
			n.IsRead = true
			n.ReadAt = &now
			r.notifications[i] = n
		}
		return r.notifications[i], nil
	}
	return model.Notification{}, myerrors.NotFound("notification %d not found", notificationID)
}

func (r *memNotificationsRepo) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var updated int64
	now := time.Now()
	for i, n := range r.notifications {
		if n.RecipientID == userID && !n.IsRead {
			n.IsRead = true
			n.ReadAt = &now
			r.notifications[i] = n
			updated++
		}
	}
	return updated, nil
}

// memPresenceRepo backs the presence service in tests.
type memPresenceRepo struct {
	mu      sync.Mutex
	drivers map[int64]model.DriverPresence
}

func newMemPresenceRepo() *memPresenceRepo {
	return &memPresenceRepo{drivers: make(map[int64]model.DriverPresence)}
}

var _ ports.IPresenceRepo = (*memPresenceRepo)(nil)

func (r *memPresenceRepo) SetAvailability(ctx context.Context, driverID int64, available bool, vehicleType string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.drivers[driverID]
	p.DriverID = driverID
	p.Available = available
	if vehicleType != "" {
		p.VehicleType = vehicleType
	}
	p.UpdatedAt = time.Now()
	r.drivers[driverID] = p
	return nil
}

func (r *memPresenceRepo) UpdateLocation(ctx context.Context, driverID int64, lat, lng float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.drivers[driverID]
	p.DriverID = driverID
	p.Latitude = &lat
	p.Longitude = &lng
	p.UpdatedAt = time.Now()
	r.drivers[driverID] = p
	return nil
}

func (r *memPresenceRepo) Get(ctx context.Context, driverID int64) (model.DriverPresence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.drivers[driverID]
	if !ok {
		return model.DriverPresence{}, myerrors.NotFound("driver %d has no presence record", driverID)
	}
	return p, nil
}

func (r *memPresenceRepo) ListAvailable(ctx context.Context) ([]model.DriverPresence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []model.DriverPresence
	for _, p := range r.drivers {
		if p.Available {
			out = append(out, p)
		}
	}
	return out, nil
}

// recordPush captures live-push events per user.
type recordPush struct {
	mu     sync.Mutex
	events map[int64][]websocketdto.Event
}

func newRecordPush() *recordPush {
	return &recordPush{events: make(map[int64][]websocketdto.Event)}
}

var _ ports.INotifyWebsocket = (*recordPush)(nil)

func (p *recordPush) WriteToUser(userID int64, msg websocketdto.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events[userID] = append(p.events[userID], msg)
}

func (p *recordPush) IsConnected(userID int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events[userID]) > 0
}

func (p *recordPush) forUser(userID int64) []websocketdto.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]websocketdto.Event(nil), p.events[userID]...)
}

// recordBroker captures published broker messages.
type recordBroker struct {
	mu        sync.Mutex
	requested []messagebrokerdto.RideRequested
	statuses  []messagebrokerdto.RideStatus
	failWith  error
}

func newRecordBroker() *recordBroker {
	return &recordBroker{}
}

var _ ports.IRidesBroker = (*recordBroker)(nil)

func (b *recordBroker) Close() error { return nil }
func (b *recordBroker) IsAlive() bool {
	return true
}

func (b *recordBroker) PublishRideRequested(ctx context.Context, msg messagebrokerdto.RideRequested) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failWith != nil {
		return b.failWith
	}
	b.requested = append(b.requested, msg)
	return nil
}

func (b *recordBroker) PublishRideStatus(ctx context.Context, msg messagebrokerdto.RideStatus) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failWith != nil {
		return b.failWith
	}
	b.statuses = append(b.statuses, msg)
	return nil
}

func (b *recordBroker) ConsumeRideRequests(ctx context.Context, consumerName string) (<-chan amqp.Delivery, error) {
	return make(chan amqp.Delivery), nil
}

func (b *recordBroker) statusLog() []messagebrokerdto.RideStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]messagebrokerdto.RideStatus(nil), b.statuses...)
}

func (b *recordBroker) requestedLog() []messagebrokerdto.RideRequested {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]messagebrokerdto.RideRequested(nil), b.requested...)
}

// float64Ptr and friends keep the table tests readable.
func float64Ptr(v float64) *float64 { return &v }
func int64Ptr(v int64) *int64       { return &v }
func stringPtr(v string) *string    { return &v }
