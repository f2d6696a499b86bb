package handle

import (
	"encoding/json"
	"net/http"

	"ride-dispatch/internal/config"
	"ride-dispatch/internal/dispatch-service/core/domain/dto"
	"ride-dispatch/internal/dispatch-service/core/myerrors"
	"ride-dispatch/internal/dispatch-service/core/ports"
	"ride-dispatch/internal/mylogger"
)

type DriversHandler struct {
	cfg             *config.Matchconfig
	presenceService ports.IPresenceService
	matchingService ports.IMatchingService
	log             mylogger.Logger
}

func NewDriversHandler(cfg *config.Matchconfig, ps ports.IPresenceService, ms ports.IMatchingService, log mylogger.Logger) *DriversHandler {
	return &DriversHandler{
		cfg:             cfg,
		presenceService: ps,
		matchingService: ms,
		log:             log,
	}
}

// SetStatus flips the authenticated driver online or offline.
func (dh *DriversHandler) SetStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		driverID, err := authedUserID(r)
		if err != nil {
			JsonServiceError(w, err)
			return
		}

		req := dto.DriverStatusRequestDto{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			JsonError(w, http.StatusBadRequest, err)
			return
		}
		if req.Available == nil {
			JsonServiceError(w, myerrors.Validation("available is required"))
			return
		}

		vehicleType := ""
		if req.VehicleType != nil {
			vehicleType = *req.VehicleType
		}

		p, err := dh.presenceService.SetAvailability(r.Context(), driverID, *req.Available, vehicleType)
		if err != nil {
			JsonServiceError(w, err)
			return
		}

		jsonResponse(w, http.StatusOK, dto.PresenceToNearby(p))
	}
}

// UpdateLocation records a position report for the authenticated driver.
func (dh *DriversHandler) UpdateLocation() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		driverID, err := authedUserID(r)
		if err != nil {
			JsonServiceError(w, err)
			return
		}

		req := dto.DriverLocationRequestDto{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			JsonError(w, http.StatusBadRequest, err)
			return
		}
		if req.Latitude == nil || req.Longitude == nil {
			JsonServiceError(w, myerrors.Validation("latitude and longitude are required"))
			return
		}

		p, err := dh.presenceService.UpdateLocation(r.Context(), driverID, *req.Latitude, *req.Longitude)
		if err != nil {
			JsonServiceError(w, err)
			return
		}

		jsonResponse(w, http.StatusOK, dto.PresenceToNearby(p))
	}
}

// Nearby lists available drivers around a point, nearest first.
func (dh *DriversHandler) Nearby() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lat, okLat := queryFloat(r, "lat")
		lng, okLng := queryFloat(r, "lng")
		if !okLat || !okLng {
			JsonServiceError(w, myerrors.Validation("lat and lng query parameters are required"))
			return
		}

		radiusKm, ok := queryFloat(r, "radius_km")
		if !ok {
			radiusKm = dh.cfg.SearchRadiusKm
		}
		limit := queryInt(r, "limit", 0)

		drivers, err := dh.matchingService.FindNearby(r.Context(), lat, lng, radiusKm, limit)
		if err != nil {
			JsonServiceError(w, err)
			return
		}

		jsonResponse(w, http.StatusOK, dto.PresencesToNearby(drivers))
	}
}
