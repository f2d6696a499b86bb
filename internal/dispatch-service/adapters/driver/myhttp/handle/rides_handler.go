package handle

import (
	"encoding/json"
	"net/http"

	"ride-dispatch/internal/dispatch-service/core/domain/dto"
	"ride-dispatch/internal/dispatch-service/core/domain/model"
	"ride-dispatch/internal/dispatch-service/core/ports"
	"ride-dispatch/internal/mylogger"
)

type RidesHandler struct {
	ridesService    ports.IRidesService
	dispatchService ports.IDispatchService
	log             mylogger.Logger
}

func NewRidesHandler(rs ports.IRidesService, ds ports.IDispatchService, log mylogger.Logger) *RidesHandler {
	return &RidesHandler{
		ridesService:    rs,
		dispatchService: ds,
		log:             log,
	}
}

// RequestRide creates a pending ride and returns it together with the drivers
// found near the pickup point.
func (rh *RidesHandler) RequestRide() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := dto.RideRequestDto{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			JsonError(w, http.StatusBadRequest, err)
			return
		}

		passengerID, err := authedUserID(r)
		if err != nil {
			JsonServiceError(w, err)
			return
		}
		req.PassengerID = &passengerID

		ride, candidates, err := rh.dispatchService.RequestRide(r.Context(), req)
		if err != nil {
			JsonServiceError(w, err)
			return
		}

		jsonResponse(w, http.StatusCreated, dto.DispatchResponseDto{
			Ride:       dto.RideToResponse(ride),
			Candidates: dto.PresencesToNearby(candidates),
		})
	}
}

func (rh *RidesHandler) GetRide() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rideID, err := pathID(r, "ride_id")
		if err != nil {
			JsonServiceError(w, err)
			return
		}

		ride, err := rh.ridesService.Get(r.Context(), rideID)
		if err != nil {
			JsonServiceError(w, err)
			return
		}

		jsonResponse(w, http.StatusOK, dto.RideToResponse(ride))
	}
}

func (rh *RidesHandler) AcceptRide() http.HandlerFunc {
	return rh.transition(func(r *http.Request, rideID, driverID int64) (model.Ride, error) {
		return rh.ridesService.Accept(r.Context(), rideID, driverID)
	})
}

func (rh *RidesHandler) StartRide() http.HandlerFunc {
	return rh.transition(func(r *http.Request, rideID, driverID int64) (model.Ride, error) {
		return rh.ridesService.Start(r.Context(), rideID, driverID)
	})
}

func (rh *RidesHandler) CompleteRide() http.HandlerFunc {
	return rh.transition(func(r *http.Request, rideID, driverID int64) (model.Ride, error) {
		req := dto.RideCompleteRequestDto{}
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				return model.Ride{}, err
			}
		}
		return rh.ridesService.Complete(r.Context(), rideID, driverID, req.FinalPrice)
	})
}

// CancelRide resolves the acting side from the authenticated role; a driver
// cancel doubles as declining an accepted ride.
func (rh *RidesHandler) CancelRide() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rideID, err := pathID(r, "ride_id")
		if err != nil {
			JsonServiceError(w, err)
			return
		}
		actorID, err := authedUserID(r)
		if err != nil {
			JsonServiceError(w, err)
			return
		}

		actor := model.ActorPassenger
		if authedRole(r) == string(model.ActorDriver) {
			actor = model.ActorDriver
		}

		ride, err := rh.ridesService.Cancel(r.Context(), rideID, actorID, actor)
		if err != nil {
			JsonServiceError(w, err)
			return
		}

		jsonResponse(w, http.StatusOK, dto.RideToResponse(ride))
	}
}

// ListRides returns the ride history of the authenticated user, newest first.
func (rh *RidesHandler) ListRides() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := authedUserID(r)
		if err != nil {
			JsonServiceError(w, err)
			return
		}
		limit := queryInt(r, "limit", 0)

		var rides []model.Ride
		if authedRole(r) == string(model.ActorDriver) {
			rides, err = rh.ridesService.ListByDriver(r.Context(), userID, limit)
		} else {
			rides, err = rh.ridesService.ListByPassenger(r.Context(), userID, limit)
		}
		if err != nil {
			JsonServiceError(w, err)
			return
		}

		out := make([]dto.RideResponseDto, 0, len(rides))
		for _, ride := range rides {
			out = append(out, dto.RideToResponse(ride))
		}
		jsonResponse(w, http.StatusOK, out)
	}
}

func (rh *RidesHandler) transition(do func(r *http.Request, rideID, driverID int64) (model.Ride, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rideID, err := pathID(r, "ride_id")
		if err != nil {
			JsonServiceError(w, err)
			return
		}
		driverID, err := authedUserID(r)
		if err != nil {
			JsonServiceError(w, err)
			return
		}

		ride, err := do(r, rideID, driverID)
		if err != nil {
			JsonServiceError(w, err)
			return
		}

		jsonResponse(w, http.StatusOK, dto.RideToResponse(ride))
	}
}
