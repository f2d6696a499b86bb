package db

import (
	"context"
	"errors"

	"ride-dispatch/internal/dispatch-service/core/domain/model"
	"ride-dispatch/internal/dispatch-service/core/myerrors"
	"ride-dispatch/internal/dispatch-service/core/ports"

	"github.com/jackc/pgx/v5"
)

const rideColumns = `
	ride_id, passenger_id, driver_id,
	pickup_latitude, pickup_longitude, pickup_address,
	destination_latitude, destination_longitude, destination_address,
	distance_meters, duration_seconds, estimated_price, final_price,
	vehicle_type, passenger_count, notes,
	status, created_at, started_at, completed_at, updated_at`

type RidesRepo struct {
	db *DB
}

func NewRidesRepo(db *DB) ports.IRidesRepo {
	return &RidesRepo{
		db: db,
	}
}

func (rr *RidesRepo) Create(ctx context.Context, m model.Ride) (model.Ride, error) {
	q := `
	INSERT INTO rides(
		passenger_id, driver_id,
		pickup_latitude, pickup_longitude, pickup_address,
		destination_latitude, destination_longitude, destination_address,
		distance_meters, duration_seconds, estimated_price,
		vehicle_type, passenger_count, notes,
		status
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, 'pending')
	RETURNING` + rideColumns

	row := rr.db.GetPool().QueryRow(ctx, q,
		m.PassengerID,
		m.DriverID,
		m.Origin.Latitude,
		m.Origin.Longitude,
		m.Origin.Address,
		m.Destination.Latitude,
		m.Destination.Longitude,
		m.Destination.Address,
		m.DistanceMeters,
		m.DurationSeconds,
		m.EstimatedPrice,
		m.VehicleType,
		m.PassengerCount,
		m.Notes,
	)

	ride, err := scanRide(row)
	if err != nil {
		return model.Ride{}, myerrors.Internal("insert ride", err)
	}
	return ride, nil
}

func (rr *RidesRepo) Get(ctx context.Context, rideID int64) (model.Ride, error) {
	q := `SELECT` + rideColumns + ` FROM rides WHERE ride_id = $1`

	row := rr.db.GetPool().QueryRow(ctx, q, rideID)
	ride, err := scanRide(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Ride{}, myerrors.NotFound("ride %d not found", rideID)
		}
		return model.Ride{}, myerrors.Internal("fetch ride", err)
	}
	return ride, nil
}

// Accept is the contended transition: two drivers racing for the same pending
// ride resolve on the status predicate, the loser's update matches zero rows.
func (rr *RidesRepo) Accept(ctx context.Context, rideID, driverID int64) (model.Ride, error) {
	q := `
	UPDATE rides
	SET
		status = 'accepted',
		driver_id = $2,
		updated_at = NOW()
	WHERE ride_id = $1 AND status = 'pending'
	RETURNING` + rideColumns

	row := rr.db.GetPool().QueryRow(ctx, q, rideID, driverID)
	ride, err := scanRide(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Ride{}, rr.diagnose(ctx, rideID, "accept", []model.RideStatus{model.StatusPending}, nil)
		}
		return model.Ride{}, myerrors.Internal("accept ride", err)
	}
	return ride, nil
}

func (rr *RidesRepo) Start(ctx context.Context, rideID, driverID int64) (model.Ride, error) {
	q := `
	UPDATE rides
	SET
		status = 'started',
		started_at = NOW(),
		updated_at = NOW()
	WHERE ride_id = $1 AND status = 'accepted' AND driver_id = $2
	RETURNING` + rideColumns

	row := rr.db.GetPool().QueryRow(ctx, q, rideID, driverID)
	ride, err := scanRide(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Ride{}, rr.diagnose(ctx, rideID, "start", []model.RideStatus{model.StatusAccepted}, &driverID)
		}
		return model.Ride{}, myerrors.Internal("start ride", err)
	}
	return ride, nil
}

// Complete also accepts skip-ahead completion from accepted; started_at is
// back-filled so the timestamp invariant holds, and final_price falls back to
// the estimate when the caller sends none.
func (rr *RidesRepo) Complete(ctx context.Context, rideID, driverID int64, finalPrice *float64) (model.Ride, error) {
	q := `
	UPDATE rides
	SET
		status = 'completed',
		final_price = COALESCE($3, estimated_price),
		started_at = COALESCE(started_at, NOW()),
		completed_at = NOW(),
		updated_at = NOW()
	WHERE ride_id = $1 AND status IN ('started', 'accepted') AND driver_id = $2
	RETURNING` + rideColumns

	row := rr.db.GetPool().QueryRow(ctx, q, rideID, driverID, finalPrice)
	ride, err := scanRide(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Ride{}, rr.diagnose(ctx, rideID, "complete",
				[]model.RideStatus{model.StatusStarted, model.StatusAccepted}, &driverID)
		}
		return model.Ride{}, myerrors.Internal("complete ride", err)
	}
	return ride, nil
}

func (rr *RidesRepo) CancelByPassenger(ctx context.Context, rideID, passengerID int64) (model.Ride, error) {
	q := `
	UPDATE rides
	SET
		status = 'cancelled',
		updated_at = NOW()
	WHERE ride_id = $1 AND status IN ('pending', 'accepted') AND passenger_id = $2
	RETURNING` + rideColumns

	row := rr.db.GetPool().QueryRow(ctx, q, rideID, passengerID)
	ride, err := scanRide(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Ride{}, rr.diagnoseCancel(ctx, rideID, func(r model.Ride) bool {
				return r.PassengerID == passengerID
			})
		}
		return model.Ride{}, myerrors.Internal("cancel ride", err)
	}
	return ride, nil
}

func (rr *RidesRepo) CancelByDriver(ctx context.Context, rideID, driverID int64) (model.Ride, error) {
	q := `
	UPDATE rides
	SET
		status = 'cancelled',
		updated_at = NOW()
	WHERE ride_id = $1 AND status IN ('pending', 'accepted') AND driver_id = $2
	RETURNING` + rideColumns

	row := rr.db.GetPool().QueryRow(ctx, q, rideID, driverID)
	ride, err := scanRide(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Ride{}, rr.diagnoseCancel(ctx, rideID, func(r model.Ride) bool {
				return r.DriverID != nil && *r.DriverID == driverID
			})
		}
		return model.Ride{}, myerrors.Internal("cancel ride", err)
	}
	return ride, nil
}

func (rr *RidesRepo) ListByPassenger(ctx context.Context, passengerID int64, limit int) ([]model.Ride, error) {
	q := `SELECT` + rideColumns + ` FROM rides WHERE passenger_id = $1 ORDER BY created_at DESC LIMIT $2`
	return rr.list(ctx, q, passengerID, limit)
}

func (rr *RidesRepo) ListByDriver(ctx context.Context, driverID int64, limit int) ([]model.Ride, error) {
	q := `SELECT` + rideColumns + ` FROM rides WHERE driver_id = $1 ORDER BY created_at DESC LIMIT $2`
	return rr.list(ctx, q, driverID, limit)
}

func (rr *RidesRepo) FindActiveByDriver(ctx context.Context, driverID int64) (model.Ride, error) {
	q := `SELECT` + rideColumns + `
	FROM rides
	WHERE driver_id = $1 AND status IN ('accepted', 'started')
	ORDER BY updated_at DESC
	LIMIT 1`

	row := rr.db.GetPool().QueryRow(ctx, q, driverID)
	ride, err := scanRide(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Ride{}, myerrors.NotFound("driver %d has no active ride", driverID)
		}
		return model.Ride{}, myerrors.Internal("fetch active ride", err)
	}
	return ride, nil
}

func (rr *RidesRepo) list(ctx context.Context, q string, id int64, limit int) ([]model.Ride, error) {
	rows, err := rr.db.GetPool().Query(ctx, q, id, limit)
	if err != nil {
		return nil, myerrors.Internal("list rides", err)
	}
	defer rows.Close()

	var rides []model.Ride
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, myerrors.Internal("scan ride", err)
		}
		rides = append(rides, ride)
	}
	if err := rows.Err(); err != nil {
		return nil, myerrors.Internal("list rides", err)
	}
	return rides, nil
}

// diagnose explains a zero-row conditional update: missing ride, wrong status
// (including a lost race), or a driver that is not assigned to the ride.
func (rr *RidesRepo) diagnose(ctx context.Context, rideID int64, verb string, allowed []model.RideStatus, requireDriver *int64) error {
	ride, err := rr.Get(ctx, rideID)
	if err != nil {
		return err
	}
	if !statusIn(ride.Status, allowed) {
		return myerrors.InvalidTransition("cannot %s ride %d in status %s", verb, rideID, ride.Status)
	}
	if requireDriver != nil && (ride.DriverID == nil || *ride.DriverID != *requireDriver) {
		return myerrors.Forbidden("driver %d is not assigned to ride %d", *requireDriver, rideID)
	}
	return myerrors.InvalidTransition("cannot %s ride %d in status %s", verb, rideID, ride.Status)
}

func (rr *RidesRepo) diagnoseCancel(ctx context.Context, rideID int64, isActor func(model.Ride) bool) error {
	ride, err := rr.Get(ctx, rideID)
	if err != nil {
		return err
	}
	if !statusIn(ride.Status, []model.RideStatus{model.StatusPending, model.StatusAccepted}) {
		return myerrors.InvalidTransition("cannot cancel ride %d in status %s", rideID, ride.Status)
	}
	if !isActor(ride) {
		return myerrors.Forbidden("actor is not a party to ride %d", rideID)
	}
	return myerrors.InvalidTransition("cannot cancel ride %d in status %s", rideID, ride.Status)
}

func statusIn(s model.RideStatus, allowed []model.RideStatus) bool {
	for _, a := range allowed {
		if s == a {
			return true
		}
	}
	return false
}

func scanRide(row pgx.Row) (model.Ride, error) {
	var m model.Ride
	err := row.Scan(
		&m.ID,
		&m.PassengerID,
		&m.DriverID,
		&m.Origin.Latitude,
		&m.Origin.Longitude,
		&m.Origin.Address,
		&m.Destination.Latitude,
		&m.Destination.Longitude,
		&m.Destination.Address,
		&m.DistanceMeters,
		&m.DurationSeconds,
		&m.EstimatedPrice,
		&m.FinalPrice,
		&m.VehicleType,
		&m.PassengerCount,
		&m.Notes,
		&m.Status,
		&m.CreatedAt,
		&m.StartedAt,
		&m.CompletedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return model.Ride{}, err
	}
	return m, nil
}
