package core

// Frame is the envelope of every message exchanged over a realtime connection.
// The field names are part of the wire contract with the frontend.
type Frame struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Outbound frame types.
const (
	FrameNotification = "notification"
	FrameSystemUpdate = "system_update"
	FrameLogUpdate    = "log_update"
	FrameError        = "error"
	FrameInfo         = "info"
)

// Inbound command types on the monitoring connection.
const (
	CmdSubscribeLog   = "subscribe_log"
	CmdUnsubscribeLog = "unsubscribe_log"
	CmdSetInterval    = "set_interval"
)

// CloseAuthFailed is sent when a connection cannot be tied to an
// authenticated user during the handshake.
const CloseAuthFailed = 4001

type messagePayload struct {
	Message string `json:"message"`
}

func ErrorFrame(msg string) Frame {
	return Frame{Type: FrameError, Payload: messagePayload{Message: msg}}
}

func InfoFrame(msg string) Frame {
	return Frame{Type: FrameInfo, Payload: messagePayload{Message: msg}}
}

// LogUpdatePayload carries one new line of a tailed log.
type LogUpdatePayload struct {
	LogAlias string `json:"log_alias"`
	Line     string `json:"line"`
}

func LogUpdateFrame(alias, line string) Frame {
	return Frame{Type: FrameLogUpdate, Payload: LogUpdatePayload{LogAlias: alias, Line: line}}
}
