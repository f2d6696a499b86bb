package websocketdto

import "encoding/json"

// Event is the envelope for every message exchanged over a websocket connection.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

const (
	EventWelcome        = "welcome"
	EventPing           = "ping"
	EventPong           = "pong"
	EventError          = "error"
	EventLocationUpdate = "location_update"
	EventDriverLocation = "driver_location"
	EventNotification   = "notification"
)

type WelcomeDto struct {
	Message    string `json:"message"`
	UserID     int64  `json:"user_id"`
	Role       string `json:"role"`
	ServerTime string `json:"server_time"`
}

type PongDto struct {
	ServerTime string `json:"server_time"`
}

type ErrorDto struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// LocationUpdateDto is the driver heartbeat payload.
type LocationUpdateDto struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// DriverLocationDto is relayed to the passenger of an active ride.
type DriverLocationDto struct {
	RideID    int64   `json:"ride_id"`
	DriverID  int64   `json:"driver_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp string  `json:"timestamp"`
}

// RideEventDto mirrors the durable notification pushed over the live channel.
type RideEventDto struct {
	NotificationID int64  `json:"notification_id"`
	Type           string `json:"type"`
	Title          string `json:"title"`
	Message        string `json:"message"`
	RideID         *int64 `json:"ride_id,omitempty"`
	CreatedAt      string `json:"created_at"`
}

func NewEvent(eventType string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: eventType, Data: data}, nil
}
