package dto

import (
	"time"

	"ride-dispatch/internal/dispatch-service/core/domain/model"
)

type DriverStatusRequestDto struct {
	Available   *bool   `json:"available"`
	VehicleType *string `json:"vehicle_type,omitempty"`
}

type DriverLocationRequestDto struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type NearbyDriverDto struct {
	DriverID    int64   `json:"driver_id"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	VehicleType string  `json:"vehicle_type"`
	UpdatedAt   string  `json:"updated_at"`
}

func PresenceToNearby(p model.DriverPresence) NearbyDriverDto {
	d := NearbyDriverDto{
		DriverID:    p.DriverID,
		VehicleType: p.VehicleType,
		UpdatedAt:   p.UpdatedAt.Format(time.RFC3339),
	}
	if p.HasLocation() {
		d.Latitude = *p.Latitude
		d.Longitude = *p.Longitude
	}
	return d
}

func PresencesToNearby(ps []model.DriverPresence) []NearbyDriverDto {
	out := make([]NearbyDriverDto, 0, len(ps))
	for _, p := range ps {
		out = append(out, PresenceToNearby(p))
	}
	return out
}
