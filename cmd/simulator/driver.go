package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"ride-dispatch/internal/dispatch-service/core/domain/dto"
	"ride-dispatch/internal/dispatch-service/core/domain/model"
	websocketdto "ride-dispatch/internal/dispatch-service/core/domain/websocket_dto"
)

// DriverSimulator plays one driver end to end: go online, stream heartbeats,
// take the first offered ride, drive it to completion, go back online.
type DriverSimulator struct {
	driverID   int64
	jwtToken   string
	baseURL    string
	wsURL      string
	currentLat float64
	currentLng float64

	httpClient *HTTPClient
	wsClient   *WebSocketClient
	logger     *Logger
	ctx        context.Context

	mu         sync.Mutex
	activeRide *int64
}

func NewDriverSimulator(ctx context.Context, driverID int64, jwtToken, baseURL, wsURL string, lat, lng float64, logger *Logger) *DriverSimulator {
	return &DriverSimulator{
		driverID:   driverID,
		jwtToken:   jwtToken,
		baseURL:    baseURL,
		wsURL:      wsURL,
		currentLat: lat,
		currentLng: lng,
		httpClient: NewHTTPClient(logger),
		wsClient:   NewWebSocketClient(ctx, logger),
		logger:     logger,
		ctx:        ctx,
	}
}

func (d *DriverSimulator) Run() error {
	if err := d.goOnline(); err != nil {
		return err
	}

	url := d.wsURL + fmt.Sprintf(WSDriverPath, d.driverID)
	if err := d.wsClient.Connect(url, d.jwtToken); err != nil {
		return err
	}
	defer d.wsClient.Close()

	go d.heartbeatLoop()

	return d.wsClient.ReadMessages(d.handleEvent)
}

func (d *DriverSimulator) goOnline() error {
	available := true
	vehicleType := "economy"
	_, err := d.httpClient.DoRequest("POST", d.baseURL+DriverStatusPath, dto.DriverStatusRequestDto{
		Available:   &available,
		VehicleType: &vehicleType,
	}, d.headers())
	if err != nil {
		return fmt.Errorf("going online: %w", err)
	}

	_, err = d.httpClient.DoRequest("POST", d.baseURL+DriverLocationPath, dto.DriverLocationRequestDto{
		Latitude:  &d.currentLat,
		Longitude: &d.currentLng,
	}, d.headers())
	if err != nil {
		return fmt.Errorf("reporting initial location: %w", err)
	}

	d.logger.HTTP("driver %d online at (%.4f, %.4f)", d.driverID, d.currentLat, d.currentLng)
	return nil
}

func (d *DriverSimulator) heartbeatLoop() {
	ticker := time.NewTicker(LocationUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			// simulate small movement
			d.currentLat += (rand.Float64() - 0.5) / 1000
			d.currentLng += (rand.Float64() - 0.5) / 1000

			event, err := websocketdto.NewEvent(websocketdto.EventLocationUpdate, websocketdto.LocationUpdateDto{
				Latitude:  &d.currentLat,
				Longitude: &d.currentLng,
			})
			if err != nil {
				continue
			}
			if err := d.wsClient.SendMessage(event); err != nil {
				d.logger.Error("sending heartbeat: %v", err)
				return
			}
		}
	}
}

func (d *DriverSimulator) handleEvent(payload []byte) error {
	var event websocketdto.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return err
	}

	switch event.Type {
	case websocketdto.EventWelcome:
		d.logger.WebSocket("welcome: %s", payload)
	case websocketdto.EventNotification:
		var n websocketdto.RideEventDto
		if err := json.Unmarshal(event.Data, &n); err != nil {
			return err
		}
		d.logger.WebSocket("notification %s: %s", n.Type, n.Message)

		if n.Type == string(model.NotifyRideRequested) && n.RideID != nil {
			go d.takeRide(*n.RideID)
		}
	case websocketdto.EventError:
		d.logger.Warn("server error event: %s", event.Data)
	default:
		d.logger.WebSocket("event %s: %s", event.Type, event.Data)
	}
	return nil
}

// takeRide accepts an offered ride and walks it through the full lifecycle.
func (d *DriverSimulator) takeRide(rideID int64) {
	d.mu.Lock()
	if d.activeRide != nil {
		d.mu.Unlock()
		d.logger.Info("ignoring offer for ride %d, already on ride %d", rideID, *d.activeRide)
		return
	}
	d.activeRide = &rideID
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.activeRide = nil
		d.mu.Unlock()
	}()

	if _, err := d.httpClient.DoRequest("POST", d.baseURL+fmt.Sprintf(RideAcceptPath, rideID), nil, d.headers()); err != nil {
		d.logger.Warn("ride %d not accepted (someone else won?): %v", rideID, err)
		return
	}
	d.logger.HTTP("accepted ride %d", rideID)

	time.Sleep(RidePhaseDelay)
	if _, err := d.httpClient.DoRequest("POST", d.baseURL+fmt.Sprintf(RideStartPath, rideID), nil, d.headers()); err != nil {
		d.logger.Error("starting ride %d: %v", rideID, err)
		return
	}
	d.logger.HTTP("started ride %d", rideID)

	time.Sleep(RidePhaseDelay)
	if _, err := d.httpClient.DoRequest("POST", d.baseURL+fmt.Sprintf(RideCompletePath, rideID), dto.RideCompleteRequestDto{}, d.headers()); err != nil {
		d.logger.Error("completing ride %d: %v", rideID, err)
		return
	}
	d.logger.HTTP("completed ride %d", rideID)
}

func (d *DriverSimulator) headers() map[string]string {
	return map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer " + d.jwtToken,
	}
}
