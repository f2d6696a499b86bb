package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"ride-dispatch/internal/dispatch-service/adapters/driven/index"
	"ride-dispatch/internal/dispatch-service/core/domain/dto"
	"ride-dispatch/internal/dispatch-service/core/domain/model"
	"ride-dispatch/internal/dispatch-service/core/myerrors"
	"ride-dispatch/internal/dispatch-service/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rideFixture struct {
	repo      *memRidesRepo
	presRepo  *memPresenceRepo
	notifRepo *memNotificationsRepo
	push      *recordPush
	broker    *recordBroker
	presence  ports.IPresenceService
	svc       ports.IRidesService
}

func newRideFixture() *rideFixture {
	log := testLogger()
	f := &rideFixture{
		repo:      newMemRidesRepo(),
		presRepo:  newMemPresenceRepo(),
		notifRepo: newMemNotificationsRepo(),
		push:      newRecordPush(),
		broker:    newRecordBroker(),
	}
	f.presence = NewPresenceService(log, f.presRepo, index.NewScanRegistry())
	gateway := NewNotificationService(log, f.notifRepo, f.push)
	f.svc = NewRidesService(log, f.repo, f.presence, gateway, f.broker)
	return f
}

func validRideRequest(passengerID int64) dto.RideRequestDto {
	return dto.RideRequestDto{
		PassengerID:          int64Ptr(passengerID),
		VehicleType:          stringPtr("economy"),
		PickUpLatitude:       float64Ptr(9.6412),
		PickUpLongitude:      float64Ptr(-13.5784),
		PickUpAddress:        stringPtr("Kaloum, Conakry"),
		DestinationLatitude:  float64Ptr(9.6802),
		DestinationLongitude: float64Ptr(-13.5401),
		DestinationAddress:   stringPtr("Ratoma, Conakry"),
		DistanceMeters:       float64Ptr(7200),
		DurationSeconds:      int64Ptr(1260),
		EstimatedPrice:       float64Ptr(15000),
	}
}

func TestRideLifecycleHappyPath(t *testing.T) {
	ctx := context.Background()
	f := newRideFixture()

	const passengerID, driverID = int64(42), int64(7)
	_, err := f.presence.SetAvailability(ctx, driverID, true, "economy")
	require.NoError(t, err)

	ride, err := f.svc.Create(ctx, validRideRequest(passengerID))
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, ride.Status)
	assert.Nil(t, ride.DriverID)

	ride, err = f.svc.Accept(ctx, ride.ID, driverID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAccepted, ride.Status)
	require.NotNil(t, ride.DriverID)
	assert.Equal(t, driverID, *ride.DriverID)

	// the assigned driver leaves the matching pool
	p, err := f.presence.Get(ctx, driverID)
	require.NoError(t, err)
	assert.False(t, p.Available)

	// the passenger hears about it, durably and live
	count, err := f.notifRepo.UnreadCount(ctx, passengerID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
	assert.Len(t, f.push.forUser(passengerID), 1)

	ride, err = f.svc.Start(ctx, ride.ID, driverID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusStarted, ride.Status)
	assert.NotNil(t, ride.StartedAt)

	ride, err = f.svc.Complete(ctx, ride.ID, driverID, float64Ptr(20000))
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, ride.Status)
	require.NotNil(t, ride.FinalPrice)
	assert.Equal(t, 20000.0, *ride.FinalPrice)
	assert.NotNil(t, ride.CompletedAt)

	// the driver rejoins the pool
	p, err = f.presence.Get(ctx, driverID)
	require.NoError(t, err)
	assert.True(t, p.Available)

	// every transition published a status event
	statuses := f.broker.statusLog()
	require.Len(t, statuses, 3)
	assert.Equal(t, "accepted", statuses[0].Status)
	assert.Equal(t, "started", statuses[1].Status)
	assert.Equal(t, "completed", statuses[2].Status)
}

func TestCompleteFallsBackToEstimatedPrice(t *testing.T) {
	ctx := context.Background()
	f := newRideFixture()

	ride, err := f.svc.Create(ctx, validRideRequest(1))
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, ride.ID, 7)
	require.NoError(t, err)
	_, err = f.svc.Start(ctx, ride.ID, 7)
	require.NoError(t, err)

	done, err := f.svc.Complete(ctx, ride.ID, 7, nil)
	require.NoError(t, err)
	require.NotNil(t, done.FinalPrice)
	assert.Equal(t, ride.EstimatedPrice, *done.FinalPrice)
}

func TestCompleteFromAcceptedStampsStartedAt(t *testing.T) {
	ctx := context.Background()
	f := newRideFixture()

	ride, err := f.svc.Create(ctx, validRideRequest(1))
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, ride.ID, 7)
	require.NoError(t, err)

	// skip-ahead completion still records a start time
	done, err := f.svc.Complete(ctx, ride.ID, 7, nil)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, done.Status)
	assert.NotNil(t, done.StartedAt)
	assert.NotNil(t, done.CompletedAt)
}

func TestConcurrentAcceptSingleWinner(t *testing.T) {
	ctx := context.Background()
	f := newRideFixture()

	ride, err := f.svc.Create(ctx, validRideRequest(1))
	require.NoError(t, err)

	const drivers = 8
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		wins   int
		losses int
	)
	for i := 0; i < drivers; i++ {
		wg.Add(1)
		go func(driverID int64) {
			defer wg.Done()
			_, err := f.svc.Accept(ctx, ride.ID, driverID)

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
			} else if myerrors.IsInvalidTransition(err) {
				losses++
			}
		}(int64(100 + i))
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, drivers-1, losses)

	got, err := f.svc.Get(ctx, ride.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAccepted, got.Status)
	assert.NotNil(t, got.DriverID)
}

func TestCancelFromStartedRejected(t *testing.T) {
	ctx := context.Background()
	f := newRideFixture()

	ride, err := f.svc.Create(ctx, validRideRequest(1))
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, ride.ID, 7)
	require.NoError(t, err)
	_, err = f.svc.Start(ctx, ride.ID, 7)
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, ride.ID, 1, model.ActorPassenger)
	assert.True(t, myerrors.IsInvalidTransition(err))

	_, err = f.svc.Cancel(ctx, ride.ID, 7, model.ActorDriver)
	assert.True(t, myerrors.IsInvalidTransition(err))
}

func TestCancelByPassengerReleasesDriver(t *testing.T) {
	ctx := context.Background()
	f := newRideFixture()

	const passengerID, driverID = int64(1), int64(7)
	_, err := f.presence.SetAvailability(ctx, driverID, true, "economy")
	require.NoError(t, err)

	ride, err := f.svc.Create(ctx, validRideRequest(passengerID))
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, ride.ID, driverID)
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(ctx, ride.ID, passengerID, model.ActorPassenger)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, cancelled.Status)

	p, err := f.presence.Get(ctx, driverID)
	require.NoError(t, err)
	assert.True(t, p.Available)

	// the driver is told, not the passenger who acted
	count, err := f.notifRepo.UnreadCount(ctx, driverID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestTransitionsByWrongDriverForbidden(t *testing.T) {
	ctx := context.Background()
	f := newRideFixture()

	ride, err := f.svc.Create(ctx, validRideRequest(1))
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, ride.ID, 7)
	require.NoError(t, err)

	_, err = f.svc.Start(ctx, ride.ID, 8)
	assert.True(t, myerrors.IsForbidden(err))

	_, err = f.svc.Complete(ctx, ride.ID, 8, nil)
	assert.True(t, myerrors.IsForbidden(err))

	_, err = f.svc.Cancel(ctx, ride.ID, 8, model.ActorDriver)
	assert.True(t, myerrors.IsForbidden(err))
}

func TestTerminalRideIsImmutable(t *testing.T) {
	ctx := context.Background()
	f := newRideFixture()

	ride, err := f.svc.Create(ctx, validRideRequest(1))
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, ride.ID, 7)
	require.NoError(t, err)
	_, err = f.svc.Complete(ctx, ride.ID, 7, nil)
	require.NoError(t, err)

	_, err = f.svc.Accept(ctx, ride.ID, 8)
	assert.True(t, myerrors.IsInvalidTransition(err))
	_, err = f.svc.Start(ctx, ride.ID, 7)
	assert.True(t, myerrors.IsInvalidTransition(err))
	_, err = f.svc.Cancel(ctx, ride.ID, 1, model.ActorPassenger)
	assert.True(t, myerrors.IsInvalidTransition(err))
}

func TestCreateValidation(t *testing.T) {
	ctx := context.Background()
	f := newRideFixture()

	tests := []struct {
		name   string
		mutate func(*dto.RideRequestDto)
	}{
		{"missing passenger", func(r *dto.RideRequestDto) { r.PassengerID = nil }},
		{"missing pickup", func(r *dto.RideRequestDto) { r.PickUpLatitude = nil }},
		{"latitude out of range", func(r *dto.RideRequestDto) { r.PickUpLatitude = float64Ptr(91) }},
		{"longitude out of range", func(r *dto.RideRequestDto) { r.DestinationLongitude = float64Ptr(-181) }},
		{"missing vehicle type", func(r *dto.RideRequestDto) { r.VehicleType = nil }},
		{"negative estimate", func(r *dto.RideRequestDto) { r.EstimatedPrice = float64Ptr(-1) }},
		{"zero passengers", func(r *dto.RideRequestDto) { r.PassengerCount = new(int) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRideRequest(1)
			tt.mutate(&req)
			_, err := f.svc.Create(ctx, req)
			assert.True(t, myerrors.IsValidation(err), "expected validation error, got %v", err)
		})
	}
}

func TestCompleteRejectsNegativeFinalPrice(t *testing.T) {
	ctx := context.Background()
	f := newRideFixture()

	ride, err := f.svc.Create(ctx, validRideRequest(1))
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, ride.ID, 7)
	require.NoError(t, err)

	_, err = f.svc.Complete(ctx, ride.ID, 7, float64Ptr(-5))
	assert.True(t, myerrors.IsValidation(err))
}

func TestGatewayFailureDoesNotBlockTransition(t *testing.T) {
	ctx := context.Background()
	f := newRideFixture()
	f.notifRepo.failCreate = errors.New("notifications store down")

	ride, err := f.svc.Create(ctx, validRideRequest(1))
	require.NoError(t, err)

	accepted, err := f.svc.Accept(ctx, ride.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAccepted, accepted.Status)
}

func TestUnknownRideNotFound(t *testing.T) {
	ctx := context.Background()
	f := newRideFixture()

	_, err := f.svc.Get(ctx, 999)
	assert.True(t, myerrors.IsNotFound(err))

	_, err = f.svc.Accept(ctx, 999, 7)
	assert.True(t, myerrors.IsNotFound(err))
}
