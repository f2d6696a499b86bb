package services

import (
	"context"
	"time"

	"ride-dispatch/internal/config"
	"ride-dispatch/internal/dispatch-service/core/domain/dto"
	messagebrokerdto "ride-dispatch/internal/dispatch-service/core/domain/message_broker_dto"
	"ride-dispatch/internal/dispatch-service/core/domain/model"
	"ride-dispatch/internal/dispatch-service/core/myerrors"
	"ride-dispatch/internal/dispatch-service/core/ports"
	"ride-dispatch/internal/mylogger"

	"github.com/google/uuid"
)

// DispatchService orchestrates ride creation: matching for visibility, the state
// machine for the record, the broker for offer fan-out. The reference behavior
// is kept: candidates are informational and the passenger (or the offer flow)
// decides; no driver is auto-assigned.
type DispatchService struct {
	appCtx   context.Context
	mylog    mylogger.Logger
	cfg      *config.Matchconfig
	rides    ports.IRidesService
	matching ports.IMatchingService
	broker   ports.IRidesBroker
}

func NewDispatchService(
	appCtx context.Context,
	log mylogger.Logger,
	cfg *config.Matchconfig,
	rides ports.IRidesService,
	matching ports.IMatchingService,
	broker ports.IRidesBroker,
) ports.IDispatchService {
	return &DispatchService{
		appCtx:   appCtx,
		mylog:    log,
		cfg:      cfg,
		rides:    rides,
		matching: matching,
		broker:   broker,
	}
}

func (ds *DispatchService) RequestRide(ctx context.Context, req dto.RideRequestDto) (model.Ride, []model.DriverPresence, error) {
	log := ds.mylog.Action("RequestRide")

	// Create validates; a ValidationError propagates unchanged.
	ride, err := ds.rides.Create(ctx, req)
	if err != nil {
		return model.Ride{}, nil, err
	}

	candidates, err := ds.matching.FindNearby(ctx, ride.Origin.Latitude, ride.Origin.Longitude, ds.cfg.SearchRadiusKm, ds.cfg.Limit)
	if err != nil {
		// the ride exists; candidate visibility is best-effort
		log.Error("cannot list candidate drivers", err, "ride_id", ride.ID)
		candidates = nil
	}

	if ds.broker != nil {
		msg := messagebrokerdto.RideRequested{
			RideID:         ride.ID,
			PassengerID:    ride.PassengerID,
			VehicleType:    ride.VehicleType,
			EstimatedPrice: ride.EstimatedPrice,
			PickupLocation: messagebrokerdto.Location{
				Lat:     ride.Origin.Latitude,
				Lng:     ride.Origin.Longitude,
				Address: ride.Origin.Address,
			},
			DestinationLocation: messagebrokerdto.Location{
				Lat:     ride.Destination.Latitude,
				Lng:     ride.Destination.Longitude,
				Address: ride.Destination.Address,
			},
			CorrelationID: "req_" + uuid.NewString(),
		}
		if err := ds.broker.PublishRideRequested(ctx, msg); err != nil {
			// offers are a notification concern; the ride stays created and
			// drivers still see it via the poll path
			log.Error("cannot publish ride request", err, "ride_id", ride.ID)
		}
	}

	if ds.cfg.PendingTTLSeconds > 0 {
		go ds.expireIfPending(ride, time.Duration(ds.cfg.PendingTTLSeconds)*time.Second)
	}

	log.Info("ride dispatched", "ride_id", ride.ID, "candidates", len(candidates))
	return ride, candidates, nil
}

// expireIfPending cancels a ride that no driver accepted within the TTL. The
// re-check plus the conditional update in the repository make a racing accept
// win over the expiry.
func (ds *DispatchService) expireIfPending(ride model.Ride, ttl time.Duration) {
	log := ds.mylog.Action("expireIfPending")

	select {
	case <-ds.appCtx.Done():
		return
	case <-time.After(ttl):
	}

	current, err := ds.rides.Get(ds.appCtx, ride.ID)
	if err != nil || current.Status != model.StatusPending {
		return
	}

	if _, err := ds.rides.Cancel(ds.appCtx, ride.ID, ride.PassengerID, model.ActorPassenger); err != nil {
		if !myerrors.IsInvalidTransition(err) {
			log.Error("cannot expire pending ride", err, "ride_id", ride.ID)
		}
		return
	}
	log.Info("pending ride expired", "ride_id", ride.ID, "ttl", ttl.String())
}
