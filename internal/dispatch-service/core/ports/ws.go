package ports

import websocketdto "ride-dispatch/internal/dispatch-service/core/domain/websocket_dto"

// INotifyWebsocket is the push path of the gateway. Delivery is best-effort:
// an absent or broken connection is not an error the caller sees.
type INotifyWebsocket interface {
	WriteToUser(userID int64, msg websocketdto.Event)
	IsConnected(userID int64) bool
}
