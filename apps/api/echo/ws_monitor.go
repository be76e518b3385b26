package echoapi

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/monitor"
)

// monitorSocket serves the monitoring stream: periodic system snapshots
// plus on-demand log tails, driven by client commands.
type monitorSocket struct {
	auth      *jwtAuth
	broker    core.Broadcaster
	collector monitor.Collector
	logs      monitor.LogRegistry
	logger    core.Logger
	interval  time.Duration
}

func (h monitorSocket) handle(ctx echo.Context) error {
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

	sess := monitor.NewSession(monitor.Params{
		User:      usr,
		Conn:      ws,
		Collector: h.collector,
		Logs:      h.logs,
		Broker:    h.broker,
		Logger:    h.logger,
		Interval:  h.interval,
	})
	sess.Start()

	defer func() {
		sess.Close()
		ws.close(websocket.CloseNormalClosure, "")
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return nil
		}
		sess.HandleMessage(data)
	}
}
