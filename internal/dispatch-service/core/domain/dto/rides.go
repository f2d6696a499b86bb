package dto

import (
	"time"

	"ride-dispatch/internal/dispatch-service/core/domain/model"
)

type RideRequestDto struct {
	PassengerID *int64  `json:"passenger_id"`
	DriverID    *int64  `json:"driver_id,omitempty"`
	VehicleType *string `json:"vehicle_type"`

	PickUpLatitude       *float64 `json:"pickup_latitude"`
	PickUpLongitude      *float64 `json:"pickup_longitude"`
	PickUpAddress        *string  `json:"pickup_address"`
	DestinationLatitude  *float64 `json:"destination_latitude"`
	DestinationLongitude *float64 `json:"destination_longitude"`
	DestinationAddress   *string  `json:"destination_address"`

	// trip facts from the routing/pricing collaborator, passed through opaquely
	DistanceMeters  *float64 `json:"distance_meters"`
	DurationSeconds *int64   `json:"duration_seconds"`
	EstimatedPrice  *float64 `json:"estimated_price"`
	PassengerCount  *int     `json:"passenger_count,omitempty"`
	Notes           *string  `json:"notes,omitempty"`
}

type RideResponseDto struct {
	RideID         int64    `json:"ride_id"`
	PassengerID    int64    `json:"passenger_id"`
	DriverID       *int64   `json:"driver_id,omitempty"`
	Status         string   `json:"status"`
	EstimatedPrice float64  `json:"estimated_price"`
	FinalPrice     *float64 `json:"final_price,omitempty"`
	VehicleType    string   `json:"vehicle_type"`
	CreatedAt      string   `json:"created_at"`
	StartedAt      string   `json:"started_at,omitempty"`
	CompletedAt    string   `json:"completed_at,omitempty"`
	UpdatedAt      string   `json:"updated_at"`

	PickUpLatitude       float64 `json:"pickup_latitude"`
	PickUpLongitude      float64 `json:"pickup_longitude"`
	PickUpAddress        string  `json:"pickup_address"`
	DestinationLatitude  float64 `json:"destination_latitude"`
	DestinationLongitude float64 `json:"destination_longitude"`
	DestinationAddress   string  `json:"destination_address"`
}

type RideCompleteRequestDto struct {
	FinalPrice *float64 `json:"final_price,omitempty"`
}

type RideCancelRequestDto struct {
	Reason string `json:"reason,omitempty"`
}

type DispatchResponseDto struct {
	Ride       RideResponseDto   `json:"ride"`
	Candidates []NearbyDriverDto `json:"candidates"`
}

func RideToResponse(r model.Ride) RideResponseDto {
	res := RideResponseDto{
		RideID:         r.ID,
		PassengerID:    r.PassengerID,
		DriverID:       r.DriverID,
		Status:         string(r.Status),
		EstimatedPrice: r.EstimatedPrice,
		FinalPrice:     r.FinalPrice,
		VehicleType:    r.VehicleType,
		CreatedAt:      r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      r.UpdatedAt.Format(time.RFC3339),

		PickUpLatitude:       r.Origin.Latitude,
		PickUpLongitude:      r.Origin.Longitude,
		PickUpAddress:        r.Origin.Address,
		DestinationLatitude:  r.Destination.Latitude,
		DestinationLongitude: r.Destination.Longitude,
		DestinationAddress:   r.Destination.Address,
	}
	if r.StartedAt != nil {
		res.StartedAt = r.StartedAt.Format(time.RFC3339)
	}
	if r.CompletedAt != nil {
		res.CompletedAt = r.CompletedAt.Format(time.RFC3339)
	}
	return res
}
