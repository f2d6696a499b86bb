package model

import "time"

type RideStatus string

const (
	StatusPending   RideStatus = "pending"
	StatusAccepted  RideStatus = "accepted"
	StatusStarted   RideStatus = "started"
	StatusCompleted RideStatus = "completed"
	StatusCancelled RideStatus = "cancelled"
)

// Terminal reports whether no further mutation is permitted on a ride in this status.
func (s RideStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type Point struct {
	Latitude  float64
	Longitude float64
	Address   string
}

type Ride struct {
	ID          int64
	PassengerID int64
	DriverID    *int64

	Origin      Point
	Destination Point

	// trip facts supplied by the routing/pricing collaborator
	DistanceMeters  float64
	DurationSeconds int64
	EstimatedPrice  float64
	FinalPrice      *float64
	VehicleType     string
	PassengerCount  int
	Notes           *string

	Status RideStatus

	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	UpdatedAt   time.Time
}

type ActorType string

const (
	ActorPassenger ActorType = "passenger"
	ActorDriver    ActorType = "driver"
)
