package bus

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/tiger/traffic-signal-controller/api/trafficv1"
)

// Time allowed to write an envelope to the peer before the subscriber is
// considered dead.
const writeWait = 1 * time.Second

// ConnSubscriber adapts a websocket connection to the Subscriber contract.
// Sends are serialized by the hub, so no additional locking is needed.
type ConnSubscriber struct {
	conn *websocket.Conn
}

// NewConnSubscriber wraps an upgraded connection.
func NewConnSubscriber(conn *websocket.Conn) *ConnSubscriber {
	return &ConnSubscriber{conn: conn}
}

// Send writes one envelope as a JSON text message.
func (s *ConnSubscriber) Send(env trafficv1.Envelope) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return s.conn.WriteJSON(env)
}

// Close performs the close handshake without waiting on the peer.
func (s *ConnSubscriber) Close() {
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = s.conn.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = s.conn.Close()
}
