package model

import "time"

type NotificationType string

const (
	NotifyRideRequested NotificationType = "ride_requested"
	NotifyRideAccepted  NotificationType = "ride_accepted"
	NotifyRideStarted   NotificationType = "ride_started"
	NotifyRideCompleted NotificationType = "ride_completed"
	NotifyRideCancelled NotificationType = "ride_cancelled"
)

// Notification is the durable record of a ride event. It is the source of truth;
// the live websocket push is only a latency optimization.
type Notification struct {
	ID          int64
	RecipientID int64
	Type        NotificationType
	Title       string
	Message     string
	RideID      *int64
	IsRead      bool
	CreatedAt   time.Time
	ReadAt      *time.Time
}
