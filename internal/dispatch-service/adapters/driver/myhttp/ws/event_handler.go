package ws

import (
	"encoding/json"
	"fmt"
	"time"

	"ride-dispatch/internal/dispatch-service/core/domain/model"
	websocketdto "ride-dispatch/internal/dispatch-service/core/domain/websocket_dto"
	"ride-dispatch/internal/dispatch-service/core/myerrors"
	"ride-dispatch/internal/dispatch-service/core/ports"
)

type EventHandler struct {
	dis      *Dispatcher
	presence ports.IPresenceService
	rides    ports.IRidesService
}

func NewEventHandler(dis *Dispatcher, presence ports.IPresenceService, rides ports.IRidesService) *EventHandler {
	return &EventHandler{
		dis:      dis,
		presence: presence,
		rides:    rides,
	}
}

func (eh *EventHandler) Ping(c *Client, e websocketdto.Event) error {
	pong, err := websocketdto.NewEvent(websocketdto.EventPong, websocketdto.PongDto{
		ServerTime: time.Now().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	c.send(pong)
	return nil
}

// LocationUpdate is the driver heartbeat. It lands in the presence registry and,
// when the driver is on an active ride, is relayed to that ride's passenger.
func (eh *EventHandler) LocationUpdate(c *Client, e websocketdto.Event) error {
	if c.role != string(model.ActorDriver) {
		return fmt.Errorf("only drivers report locations")
	}

	var req websocketdto.LocationUpdateDto
	if err := json.Unmarshal(e.Data, &req); err != nil {
		return err
	}
	if req.Latitude == nil || req.Longitude == nil {
		return fmt.Errorf("latitude and longitude are required")
	}

	if _, err := eh.presence.UpdateLocation(c.ctx, c.userID, *req.Latitude, *req.Longitude); err != nil {
		return err
	}

	ride, err := eh.rides.FindActiveByDriver(c.ctx, c.userID)
	if err != nil {
		if myerrors.IsNotFound(err) {
			return nil
		}
		return err
	}

	relay, err := websocketdto.NewEvent(websocketdto.EventDriverLocation, websocketdto.DriverLocationDto{
		RideID:    ride.ID,
		DriverID:  c.userID,
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
		Timestamp: time.Now().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	eh.dis.WriteToUser(ride.PassengerID, relay)
	return nil
}
