package ws

import (
	"context"
	"encoding/json"

	websocketdto "ride-dispatch/internal/dispatch-service/core/domain/websocket_dto"

	"github.com/gorilla/websocket"
)

const (
	maxMessageSize = 1024
	egressBuffer   = 16
)

type Client struct {
	ctx    context.Context
	cancel context.CancelFunc
	conn   *websocket.Conn
	dis    *Dispatcher
	egress chan websocketdto.Event
	userID int64
	role   string
}

func NewClient(ctx context.Context, conn *websocket.Conn, dis *Dispatcher, userID int64, role string) *Client {
	ctx, cancel := context.WithCancel(ctx)
	return &Client{
		ctx:    ctx,
		cancel: cancel,
		conn:   conn,
		dis:    dis,
		egress: make(chan websocketdto.Event, egressBuffer),
		userID: userID,
		role:   role,
	}
}

// ReadMessage pumps inbound events to the dispatcher. A malformed frame gets an
// error event back but does not close the connection.
func (c *Client) ReadMessage() {
	defer func() {
		c.dis.RemoveClient(c)
		c.cancel()
	}()

	c.conn.SetReadLimit(maxMessageSize)

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.dis.log.Action("ws_read").Warn("unexpected websocket close", "user_id", c.userID, "reason", err.Error())
			}
			return
		}

		var req websocketdto.Event
		if err := json.Unmarshal(payload, &req); err != nil {
			c.sendError("malformed_event", "message is not a valid event envelope")
			continue
		}

		c.dis.route(c, req)
	}
}

// WriteMessage drains the egress channel onto the wire.
func (c *Client) WriteMessage() {
	defer c.conn.Close()

	for {
		select {
		case <-c.ctx.Done():
			return
		case event, ok := <-c.egress:
			if !ok {
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				c.dis.log.Action("ws_write").Error("cannot write websocket event", err, "user_id", c.userID)
				return
			}
		}
	}
}

// send queues an event, dropping it when the client cannot keep up. The durable
// notification record is the source of truth either way.
func (c *Client) send(e websocketdto.Event) {
	select {
	case c.egress <- e:
	default:
		c.dis.log.Action("ws_send").Warn("egress buffer full, dropping event", "user_id", c.userID, "type", e.Type)
	}
}

func (c *Client) sendError(code, message string) {
	e, err := websocketdto.NewEvent(websocketdto.EventError, websocketdto.ErrorDto{
		Code:    code,
		Message: message,
	})
	if err != nil {
		return
	}
	c.send(e)
}
