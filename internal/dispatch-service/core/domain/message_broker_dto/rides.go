package messagebrokerdto

type Location struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address"`
}

// RideRequested fans a freshly created ride out to the offer consumer.
type RideRequested struct {
	RideID              int64    `json:"ride_id"`
	PassengerID         int64    `json:"passenger_id"`
	VehicleType         string   `json:"vehicle_type"`
	EstimatedPrice      float64  `json:"estimated_price"`
	PickupLocation      Location `json:"pickup_location"`
	DestinationLocation Location `json:"destination_location"`
	CorrelationID       string   `json:"correlation_id"`
}

// RideStatus is published on every ride-state transition for external consumers
// (billing, analytics) that are outside this service.
type RideStatus struct {
	RideID        int64  `json:"ride_id"`
	Status        string `json:"status"`
	DriverID      *int64 `json:"driver_id,omitempty"`
	Timestamp     string `json:"timestamp"`
	CorrelationID string `json:"correlation_id"`
}
