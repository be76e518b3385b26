package echoapi

import (
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

// notificationSocket streams notification frames to one signed-in user.
// The connection joins the user's personal group for its whole lifetime;
// inbound messages are ignored.
type notificationSocket struct {
	auth   *jwtAuth
	broker core.Broadcaster
	logger core.Logger
}

func (h notificationSocket) handle(ctx echo.Context) error {
	conn, err := upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		return errors.Wrap(err, "upgrading connection")
	}
	ws := newWSConn(conn)

	usr, err := h.auth.authenticateSocket(ctx)
	if err != nil {
		ws.close(core.CloseAuthFailed, "authentication failed")
		return nil
	}

	group := core.UserGroup(usr.ID)
	h.broker.Subscribe(group, ws)
	h.logger.Debug(fmt.Sprintf("user %s joined %s", usr.ID, group))

	// leaving the group is unconditional, no matter how the connection ends
	defer func() {
		h.broker.Unsubscribe(group, ws)
		ws.close(websocket.CloseNormalClosure, "")
		h.logger.Debug(fmt.Sprintf("user %s left %s", usr.ID, group))
	}()

	for {
		// the client has nothing to say on this stream; drain and discard
		if _, _, err := conn.ReadMessage(); err != nil {
			return nil
		}
	}
}
