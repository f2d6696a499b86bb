package ws

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	websocketdto "ride-dispatch/internal/dispatch-service/core/domain/websocket_dto"
	"ride-dispatch/internal/dispatch-service/core/ports"
	"ride-dispatch/internal/mylogger"

	"github.com/gorilla/websocket"
)

var websocketUpgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type EventHandle func(c *Client, e websocketdto.Event) error

// Dispatcher keeps the live connections keyed by user id and routes inbound
// events to their handlers. It is the push side of the notification gateway.
type Dispatcher struct {
	sync.RWMutex
	ctx      context.Context
	clients  map[int64]*Client
	handlers map[string]EventHandle
	log      mylogger.Logger
}

func NewDispatcher(ctx context.Context, log mylogger.Logger) *Dispatcher {
	return &Dispatcher{
		ctx:      ctx,
		clients:  make(map[int64]*Client),
		handlers: make(map[string]EventHandle),
		log:      log,
	}
}

var _ ports.INotifyWebsocket = (*Dispatcher)(nil)

// InitHandler registers the inbound event handlers.
func (d *Dispatcher) InitHandler(eh *EventHandler) {
	d.handlers[websocketdto.EventPing] = eh.Ping
	d.handlers[websocketdto.EventLocationUpdate] = eh.LocationUpdate
}

// WsHandler upgrades an authenticated request on /ws/... routes. The id in the
// path must be the id the auth middleware resolved from the token.
func (d *Dispatcher) WsHandler(pathParam, role string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := d.log.Action("wsHandler")

		pathedID, err := strconv.ParseInt(r.PathValue(pathParam), 10, 64)
		if err != nil || pathedID <= 0 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		authedID, err := strconv.ParseInt(r.Header.Get("X-UserId"), 10, 64)
		if err != nil || authedID != pathedID {
			w.WriteHeader(http.StatusForbidden)
			return
		}

		conn, err := websocketUpgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error("cannot upgrade connection", err, "user_id", pathedID)
			return
		}

		// the connection outlives the upgrade request, so it hangs off the
		// dispatcher context rather than the request context
		client := NewClient(d.ctx, conn, d, pathedID, role)
		d.AddClient(client)

		go client.ReadMessage()
		go client.WriteMessage()

		welcome, err := websocketdto.NewEvent(websocketdto.EventWelcome, websocketdto.WelcomeDto{
			Message:    "connected",
			UserID:     pathedID,
			Role:       role,
			ServerTime: time.Now().Format(time.RFC3339),
		})
		if err == nil {
			client.send(welcome)
		}

		log.Info("websocket connected", "user_id", pathedID, "role", role)
	}
}

func (d *Dispatcher) AddClient(client *Client) {
	d.Lock()
	defer d.Unlock()

	// a reconnect supersedes the old connection
	if old, ok := d.clients[client.userID]; ok {
		old.cancel()
	}
	d.clients[client.userID] = client
}

func (d *Dispatcher) RemoveClient(client *Client) {
	d.Lock()
	defer d.Unlock()

	if current, ok := d.clients[client.userID]; ok && current == client {
		delete(d.clients, client.userID)
	}
}

// WriteToUser pushes an event to a connected user. A missing or slow connection
// is not an error; delivery here is best effort.
func (d *Dispatcher) WriteToUser(userID int64, msg websocketdto.Event) {
	d.RLock()
	client, ok := d.clients[userID]
	d.RUnlock()

	if !ok {
		return
	}
	client.send(msg)
}

func (d *Dispatcher) IsConnected(userID int64) bool {
	d.RLock()
	defer d.RUnlock()

	_, ok := d.clients[userID]
	return ok
}

func (d *Dispatcher) route(c *Client, e websocketdto.Event) {
	handler, ok := d.handlers[e.Type]
	if !ok {
		c.sendError("unknown_event", "unsupported event type "+e.Type)
		return
	}
	if err := handler(c, e); err != nil {
		d.log.Action("ws_route").Error("event handler failed", err, "user_id", c.userID, "type", e.Type)
		c.sendError("handler_error", err.Error())
	}
}
