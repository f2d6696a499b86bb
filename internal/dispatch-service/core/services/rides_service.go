package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"ride-dispatch/internal/dispatch-service/core/domain/dto"
	messagebrokerdto "ride-dispatch/internal/dispatch-service/core/domain/message_broker_dto"
	"ride-dispatch/internal/dispatch-service/core/domain/model"
	"ride-dispatch/internal/dispatch-service/core/myerrors"
	"ride-dispatch/internal/dispatch-service/core/ports"
	"ride-dispatch/internal/mylogger"

	"github.com/google/uuid"
)

const DefaultListLimit = 20

type RidesService struct {
	mylog    mylogger.Logger
	rides    ports.IRidesRepo
	presence ports.IPresenceService
	gateway  ports.INotificationService
	broker   ports.IRidesBroker
}

func NewRidesService(
	log mylogger.Logger,
	rides ports.IRidesRepo,
	presence ports.IPresenceService,
	gateway ports.INotificationService,
	broker ports.IRidesBroker,
) ports.IRidesService {
	return &RidesService{
		mylog:    log,
		rides:    rides,
		presence: presence,
		gateway:  gateway,
		broker:   broker,
	}
}

func (rs *RidesService) Create(ctx context.Context, req dto.RideRequestDto) (model.Ride, error) {
	log := rs.mylog.Action("CreateRide")

	if err := validateRideRequest(req); err != nil {
		return model.Ride{}, err
	}

	m := model.Ride{
		PassengerID: *req.PassengerID,
		DriverID:    req.DriverID,
		Origin: model.Point{
			Latitude:  *req.PickUpLatitude,
			Longitude: *req.PickUpLongitude,
			Address:   *req.PickUpAddress,
		},
		Destination: model.Point{
			Latitude:  *req.DestinationLatitude,
			Longitude: *req.DestinationLongitude,
			Address:   *req.DestinationAddress,
		},
		EstimatedPrice: *req.EstimatedPrice,
		VehicleType:    *req.VehicleType,
		PassengerCount: 1,
		Notes:          req.Notes,
		Status:         model.StatusPending,
	}
	if req.DistanceMeters != nil {
		m.DistanceMeters = *req.DistanceMeters
	}
	if req.DurationSeconds != nil {
		m.DurationSeconds = *req.DurationSeconds
	}
	if req.PassengerCount != nil {
		m.PassengerCount = *req.PassengerCount
	}

	ride, err := rs.rides.Create(ctx, m)
	if err != nil {
		log.Error("cannot create ride", err, "passenger_id", m.PassengerID)
		return model.Ride{}, err
	}

	log.Info("ride created", "ride_id", ride.ID, "passenger_id", ride.PassengerID, "estimated_price", ride.EstimatedPrice)
	return ride, nil
}

func (rs *RidesService) Get(ctx context.Context, rideID int64) (model.Ride, error) {
	return rs.rides.Get(ctx, rideID)
}

func (rs *RidesService) Accept(ctx context.Context, rideID, driverID int64) (model.Ride, error) {
	log := rs.mylog.Action("AcceptRide")

	ride, err := rs.rides.Accept(ctx, rideID, driverID)
	if err != nil {
		return model.Ride{}, err
	}
	log.Info("ride accepted", "ride_id", rideID, "driver_id", driverID)

	// accepted drivers leave the matching pool
	if _, err := rs.presence.SetAvailability(ctx, driverID, false, ""); err != nil {
		log.Error("cannot flip driver availability", err, "driver_id", driverID)
	}

	rs.notifyCounterparty(ctx, ride, model.NotifyRideAccepted,
		"Driver on the way",
		fmt.Sprintf("Driver %d accepted your ride", driverID),
		ride.PassengerID)
	rs.publishStatus(ctx, ride)

	return ride, nil
}

func (rs *RidesService) Start(ctx context.Context, rideID, driverID int64) (model.Ride, error) {
	log := rs.mylog.Action("StartRide")

	ride, err := rs.rides.Start(ctx, rideID, driverID)
	if err != nil {
		return model.Ride{}, err
	}
	log.Info("ride started", "ride_id", rideID, "driver_id", driverID)

	rs.notifyCounterparty(ctx, ride, model.NotifyRideStarted,
		"Ride started",
		"Your ride is in progress",
		ride.PassengerID)
	rs.publishStatus(ctx, ride)

	return ride, nil
}

func (rs *RidesService) Complete(ctx context.Context, rideID, driverID int64, finalPrice *float64) (model.Ride, error) {
	log := rs.mylog.Action("CompleteRide")

	if finalPrice != nil && (*finalPrice < 0 || math.IsNaN(*finalPrice)) {
		return model.Ride{}, myerrors.Validation("final price must be non-negative")
	}

	ride, err := rs.rides.Complete(ctx, rideID, driverID, finalPrice)
	if err != nil {
		return model.Ride{}, err
	}
	log.Info("ride completed", "ride_id", rideID, "driver_id", driverID, "final_price", *ride.FinalPrice)

	// completed drivers rejoin the matching pool
	if _, err := rs.presence.SetAvailability(ctx, driverID, true, ""); err != nil {
		log.Error("cannot flip driver availability", err, "driver_id", driverID)
	}

	rs.notifyCounterparty(ctx, ride, model.NotifyRideCompleted,
		"Ride completed",
		fmt.Sprintf("Your ride is complete, final price %.2f", *ride.FinalPrice),
		ride.PassengerID)
	rs.publishStatus(ctx, ride)

	return ride, nil
}

func (rs *RidesService) Cancel(ctx context.Context, rideID, actorID int64, actorType model.ActorType) (model.Ride, error) {
	log := rs.mylog.Action("CancelRide")

	var (
		ride model.Ride
		err  error
	)
	switch actorType {
	case model.ActorPassenger:
		ride, err = rs.rides.CancelByPassenger(ctx, rideID, actorID)
	case model.ActorDriver:
		ride, err = rs.rides.CancelByDriver(ctx, rideID, actorID)
	default:
		return model.Ride{}, myerrors.Validation("unknown actor type %q", actorType)
	}
	if err != nil {
		return model.Ride{}, err
	}
	log.Info("ride cancelled", "ride_id", rideID, "actor_id", actorID, "actor_type", actorType)

	// an assigned driver becomes matchable again
	if ride.DriverID != nil {
		if _, err := rs.presence.SetAvailability(ctx, *ride.DriverID, true, ""); err != nil {
			log.Error("cannot flip driver availability", err, "driver_id", *ride.DriverID)
		}
	}

	switch actorType {
	case model.ActorPassenger:
		if ride.DriverID != nil {
			rs.notifyCounterparty(ctx, ride, model.NotifyRideCancelled,
				"Ride cancelled",
				"The passenger cancelled the ride",
				*ride.DriverID)
		}
	case model.ActorDriver:
		rs.notifyCounterparty(ctx, ride, model.NotifyRideCancelled,
			"Ride cancelled",
			"The driver cancelled the ride",
			ride.PassengerID)
	}
	rs.publishStatus(ctx, ride)

	return ride, nil
}

func (rs *RidesService) ListByPassenger(ctx context.Context, passengerID int64, limit int) ([]model.Ride, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	return rs.rides.ListByPassenger(ctx, passengerID, limit)
}

func (rs *RidesService) ListByDriver(ctx context.Context, driverID int64, limit int) ([]model.Ride, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	return rs.rides.ListByDriver(ctx, driverID, limit)
}

func (rs *RidesService) FindActiveByDriver(ctx context.Context, driverID int64) (model.Ride, error) {
	return rs.rides.FindActiveByDriver(ctx, driverID)
}

// notifyCounterparty writes the durable notification and attempts the live push.
// A gateway failure never rolls the transition back: the ride is already updated
// and the durable/poll path catches up.
func (rs *RidesService) notifyCounterparty(ctx context.Context, ride model.Ride, t model.NotificationType, title, message string, recipientID int64) {
	if _, err := rs.gateway.Notify(ctx, recipientID, t, title, message, &ride.ID); err != nil {
		rs.mylog.Action("notifyCounterparty").Error("cannot deliver ride notification", err,
			"ride_id", ride.ID, "recipient_id", recipientID, "type", t)
	}
}

func (rs *RidesService) publishStatus(ctx context.Context, ride model.Ride) {
	if rs.broker == nil {
		return
	}
	msg := messagebrokerdto.RideStatus{
		RideID:        ride.ID,
		Status:        string(ride.Status),
		DriverID:      ride.DriverID,
		Timestamp:     time.Now().Format(time.RFC3339),
		CorrelationID: "req_" + uuid.NewString(),
	}
	if err := rs.broker.PublishRideStatus(ctx, msg); err != nil {
		rs.mylog.Action("publishStatus").Error("cannot publish ride status", err, "ride_id", ride.ID)
	}
}

func validateRideRequest(req dto.RideRequestDto) error {
	if req.PassengerID == nil || *req.PassengerID <= 0 {
		return myerrors.Validation("passenger id is required")
	}
	if err := validateLatLng(req.PickUpLatitude, req.PickUpLongitude); err != nil {
		return myerrors.Validation("invalid pickup coords: %v", err)
	}
	if err := validateAddress(req.PickUpAddress); err != nil {
		return myerrors.Validation("invalid pickup address: %v", err)
	}
	if err := validateLatLng(req.DestinationLatitude, req.DestinationLongitude); err != nil {
		return myerrors.Validation("invalid destination coords: %v", err)
	}
	if err := validateAddress(req.DestinationAddress); err != nil {
		return myerrors.Validation("invalid destination address: %v", err)
	}
	if req.VehicleType == nil || *req.VehicleType == "" {
		return myerrors.Validation("vehicle type is required")
	}
	if req.EstimatedPrice == nil || *req.EstimatedPrice < 0 {
		return myerrors.Validation("estimated price is required")
	}
	if req.PassengerCount != nil && *req.PassengerCount <= 0 {
		return myerrors.Validation("passenger count must be positive")
	}
	return nil
}

var (
	errEmptyField       = fmt.Errorf("field is empty")
	errInvalidLatitude  = fmt.Errorf("latitude outside [-90, 90]")
	errInvalidLongitude = fmt.Errorf("longitude outside [-180, 180]")
	errAddressTooLong   = fmt.Errorf("maximum 255 characters allowed")
)

func validateLatLng(lat, lng *float64) error {
	if lat == nil || lng == nil {
		return errEmptyField
	}
	if math.Abs(*lat) > 90 {
		return errInvalidLatitude
	}
	if math.Abs(*lng) > 180 {
		return errInvalidLongitude
	}
	return nil
}

func validateAddress(s *string) error {
	if s == nil || *s == "" {
		return errEmptyField
	}
	if len(*s) > 255 {
		return errAddressTooLong
	}
	return nil
}
