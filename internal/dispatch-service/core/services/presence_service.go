package services

import (
	"context"
	"math"

	"ride-dispatch/internal/dispatch-service/core/domain/model"
	"ride-dispatch/internal/dispatch-service/core/myerrors"
	"ride-dispatch/internal/dispatch-service/core/ports"
	"ride-dispatch/internal/mylogger"
)

// PresenceService keeps the durable registry and the in-process driver index in
// step: the repo is the source of truth, the index serves candidate queries.
type PresenceService struct {
	mylog mylogger.Logger
	repo  ports.IPresenceRepo
	index ports.IDriverIndex
}

func NewPresenceService(log mylogger.Logger, repo ports.IPresenceRepo, index ports.IDriverIndex) ports.IPresenceService {
	return &PresenceService{
		mylog: log,
		repo:  repo,
		index: index,
	}
}

func (ps *PresenceService) SetAvailability(ctx context.Context, driverID int64, available bool, vehicleType string) (model.DriverPresence, error) {
	if driverID <= 0 {
		return model.DriverPresence{}, myerrors.Validation("driver id is required")
	}

	if err := ps.repo.SetAvailability(ctx, driverID, available, vehicleType); err != nil {
		return model.DriverPresence{}, err
	}

	p, err := ps.repo.Get(ctx, driverID)
	if err != nil {
		return model.DriverPresence{}, err
	}

	if err := ps.mirror(ctx, p); err != nil {
		ps.mylog.Action("SetAvailability").Error("cannot update driver index", err, "driver_id", driverID)
	}
	return p, nil
}

func (ps *PresenceService) UpdateLocation(ctx context.Context, driverID int64, lat, lng float64) (model.DriverPresence, error) {
	if driverID <= 0 {
		return model.DriverPresence{}, myerrors.Validation("driver id is required")
	}
	if math.Abs(lat) > 90 || math.Abs(lng) > 180 {
		return model.DriverPresence{}, myerrors.Validation("invalid coordinates (%v, %v)", lat, lng)
	}

	if err := ps.repo.UpdateLocation(ctx, driverID, lat, lng); err != nil {
		return model.DriverPresence{}, err
	}

	p, err := ps.repo.Get(ctx, driverID)
	if err != nil {
		return model.DriverPresence{}, err
	}

	if err := ps.mirror(ctx, p); err != nil {
		ps.mylog.Action("UpdateLocation").Error("cannot update driver index", err, "driver_id", driverID)
	}
	return p, nil
}

func (ps *PresenceService) Get(ctx context.Context, driverID int64) (model.DriverPresence, error) {
	return ps.repo.Get(ctx, driverID)
}

// Warm rebuilds the in-process index from the durable registry. Called once at
// startup; a failure leaves the index cold, not the service down.
func (ps *PresenceService) Warm(ctx context.Context) error {
	log := ps.mylog.Action("WarmPresenceIndex")

	if ps.selfIndexed() {
		return nil
	}

	drivers, err := ps.repo.ListAvailable(ctx)
	if err != nil {
		return err
	}
	for _, p := range drivers {
		if err := ps.index.Upsert(ctx, p); err != nil {
			log.Error("cannot index driver", err, "driver_id", p.DriverID)
		}
	}
	log.Info("driver index warmed", "drivers", len(drivers))
	return nil
}

func (ps *PresenceService) mirror(ctx context.Context, p model.DriverPresence) error {
	if ps.selfIndexed() {
		return nil
	}
	if p.Available {
		return ps.index.Upsert(ctx, p)
	}
	return ps.index.Remove(ctx, p.DriverID)
}

// selfIndexed reports whether the registry answers candidate queries itself, in
// which case there is no separate index to keep in step.
func (ps *PresenceService) selfIndexed() bool {
	return any(ps.repo) == any(ps.index)
}
