package handle

import (
	"net/http"

	"ride-dispatch/internal/dispatch-service/core/domain/dto"
	"ride-dispatch/internal/dispatch-service/core/ports"
	"ride-dispatch/internal/mylogger"
)

type NotificationsHandler struct {
	gateway ports.INotificationService
	log     mylogger.Logger
}

func NewNotificationsHandler(gw ports.INotificationService, log mylogger.Logger) *NotificationsHandler {
	return &NotificationsHandler{
		gateway: gw,
		log:     log,
	}
}

func (nh *NotificationsHandler) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := authedUserID(r)
		if err != nil {
			JsonServiceError(w, err)
			return
		}

		limit := queryInt(r, "limit", 0)
		offset := queryInt(r, "offset", 0)

		notifications, err := nh.gateway.ListForUser(r.Context(), userID, limit, offset)
		if err != nil {
			JsonServiceError(w, err)
			return
		}

		jsonResponse(w, http.StatusOK, dto.NotificationsToDto(notifications))
	}
}

func (nh *NotificationsHandler) UnreadCount() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := authedUserID(r)
		if err != nil {
			JsonServiceError(w, err)
			return
		}

		count, err := nh.gateway.UnreadCount(r.Context(), userID)
		if err != nil {
			JsonServiceError(w, err)
			return
		}

		jsonResponse(w, http.StatusOK, dto.UnreadCountDto{Count: count})
	}
}

func (nh *NotificationsHandler) MarkRead() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := authedUserID(r)
		if err != nil {
			JsonServiceError(w, err)
			return
		}
		notificationID, err := pathID(r, "notification_id")
		if err != nil {
			JsonServiceError(w, err)
			return
		}

		n, err := nh.gateway.MarkRead(r.Context(), notificationID, userID)
		if err != nil {
			JsonServiceError(w, err)
			return
		}

		jsonResponse(w, http.StatusOK, dto.NotificationToDto(n))
	}
}

func (nh *NotificationsHandler) MarkAllRead() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := authedUserID(r)
		if err != nil {
			JsonServiceError(w, err)
			return
		}

		updated, err := nh.gateway.MarkAllRead(r.Context(), userID)
		if err != nil {
			JsonServiceError(w, err)
			return
		}

		jsonResponse(w, http.StatusOK, map[string]int64{"updated": updated})
	}
}
