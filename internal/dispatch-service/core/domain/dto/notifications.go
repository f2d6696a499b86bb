package dto

import (
	"time"

	"ride-dispatch/internal/dispatch-service/core/domain/model"
)

type NotificationDto struct {
	ID        int64  `json:"id"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	RideID    *int64 `json:"ride_id,omitempty"`
	IsRead    bool   `json:"is_read"`
	CreatedAt string `json:"created_at"`
	ReadAt    string `json:"read_at,omitempty"`
}

type UnreadCountDto struct {
	Count int64 `json:"count"`
}

func NotificationToDto(n model.Notification) NotificationDto {
	d := NotificationDto{
		ID:        n.ID,
		Type:      string(n.Type),
		Title:     n.Title,
		Message:   n.Message,
		RideID:    n.RideID,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt.Format(time.RFC3339),
	}
	if n.ReadAt != nil {
		d.ReadAt = n.ReadAt.Format(time.RFC3339)
	}
	return d
}

func NotificationsToDto(ns []model.Notification) []NotificationDto {
	out := make([]NotificationDto, 0, len(ns))
	for _, n := range ns {
		out = append(out, NotificationToDto(n))
	}
	return out
}
