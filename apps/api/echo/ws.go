package echoapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/trezcool/shule/core"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true }, // CORS is enforced upstream
}

const wsWriteTimeout = 10 * time.Second

// wsConn adapts a gorilla connection to core.Subscriber. Gorilla allows a
// single concurrent writer so every write goes through the mutex; the read
// side stays with the handler's loop.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func newWSConn(conn *websocket.Conn) *wsConn {
	return &wsConn{conn: conn}
}

var _ core.Subscriber = (*wsConn)(nil)

func (c *wsConn) Send(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.conn.WriteJSON(f)
}

// close sends a close frame with the given code, then tears the
// connection down.
func (c *wsConn) close(code int, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	deadline := time.Now().Add(wsWriteTimeout)
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	_ = c.conn.Close()
}
