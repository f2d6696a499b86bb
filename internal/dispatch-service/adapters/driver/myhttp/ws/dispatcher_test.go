package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	websocketdto "ride-dispatch/internal/dispatch-service/core/domain/websocket_dto"
	"ride-dispatch/internal/mylogger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() mylogger.Logger {
	log, _ := mylogger.New(mylogger.LevelError)
	return log
}

func receive(t *testing.T, c *Client) websocketdto.Event {
	t.Helper()
	select {
	case e := <-c.egress:
		return e
	case <-time.After(time.Second):
		t.Fatal("no event queued")
		return websocketdto.Event{}
	}
}

func TestWriteToUserReachesConnectedClient(t *testing.T) {
	d := NewDispatcher(context.Background(), testLogger())
	client := NewClient(context.Background(), nil, d, 42, "passenger")
	d.AddClient(client)

	assert.True(t, d.IsConnected(42))
	assert.False(t, d.IsConnected(99))

	event, err := websocketdto.NewEvent(websocketdto.EventNotification, websocketdto.RideEventDto{
		NotificationID: 1,
		Type:           "ride_accepted",
	})
	require.NoError(t, err)

	d.WriteToUser(42, event)
	got := receive(t, client)
	assert.Equal(t, websocketdto.EventNotification, got.Type)

	// pushing to an absent user is a silent no-op
	d.WriteToUser(99, event)
}

func TestRemoveClientDisconnects(t *testing.T) {
	d := NewDispatcher(context.Background(), testLogger())
	client := NewClient(context.Background(), nil, d, 42, "driver")
	d.AddClient(client)
	d.RemoveClient(client)

	assert.False(t, d.IsConnected(42))
}

func TestReconnectSupersedesOldConnection(t *testing.T) {
	d := NewDispatcher(context.Background(), testLogger())
	first := NewClient(context.Background(), nil, d, 42, "driver")
	second := NewClient(context.Background(), nil, d, 42, "driver")

	d.AddClient(first)
	d.AddClient(second)

	select {
	case <-first.ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("old connection was not cancelled")
	}

	// the stale client leaving must not evict the live one
	d.RemoveClient(first)
	assert.True(t, d.IsConnected(42))
}

func TestRouteUnknownEventAnswersWithError(t *testing.T) {
	d := NewDispatcher(context.Background(), testLogger())
	client := NewClient(context.Background(), nil, d, 42, "passenger")
	d.AddClient(client)

	d.route(client, websocketdto.Event{Type: "teleport"})

	got := receive(t, client)
	assert.Equal(t, websocketdto.EventError, got.Type)

	var payload websocketdto.ErrorDto
	require.NoError(t, json.Unmarshal(got.Data, &payload))
	assert.Equal(t, "unknown_event", payload.Code)
}

func TestPingAnswersPong(t *testing.T) {
	d := NewDispatcher(context.Background(), testLogger())
	client := NewClient(context.Background(), nil, d, 42, "passenger")
	d.AddClient(client)
	d.InitHandler(NewEventHandler(d, nil, nil))

	d.route(client, websocketdto.Event{Type: websocketdto.EventPing})

	got := receive(t, client)
	assert.Equal(t, websocketdto.EventPong, got.Type)

	var payload websocketdto.PongDto
	require.NoError(t, json.Unmarshal(got.Data, &payload))
	assert.NotEmpty(t, payload.ServerTime)
}
