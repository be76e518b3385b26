package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

const (
	DefaultInterval = 5 * time.Second
	minIntervalSecs = 1
	maxIntervalSecs = 60
)

type (
	// Params configures a monitoring Session.
	Params struct {
		User      user.User
		Conn      core.Subscriber // the connection: frame sink and group-membership handle
		Collector Collector
		Logs      LogRegistry
		Broker    core.Broadcaster
		Logger    core.Logger

		Interval time.Duration // periodic snapshot interval; DefaultInterval if 0

		// tail pacing knobs, zero means the Tailer defaults
		TailPollInterval time.Duration
		TailLineDelay    time.Duration
	}

	// Session is the per-connection state machine of the monitoring
	// stream: one periodic system-snapshot task plus a dynamic set of
	// log-tail tasks, each independently cancellable. HandleMessage is
	// driven from the single connection read loop; background tasks only
	// touch the session through the mutex-guarded task set.
	Session struct {
		p        Params
		interval time.Duration

		mu       sync.Mutex
		periodic *task
		tails    map[string]*task
		closed   bool
	}

	task struct {
		cancel context.CancelFunc
		done   chan struct{}
	}
)

type (
	command struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}

	logAliasPayload struct {
		LogAlias string `json:"log_alias"`
	}

	intervalPayload struct {
		Interval json.Number `json:"interval"`
	}
)

func NewSession(p Params) *Session {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Session{
		p:        p,
		interval: interval,
		tails:    make(map[string]*task),
	}
}

// Start launches the periodic system-snapshot task.
func (s *Session) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.periodic != nil {
		return
	}
	s.periodic = s.startPeriodic(s.interval)
}

// HandleMessage processes one inbound client frame. Malformed or unknown
// commands yield exactly one error frame; the connection stays open.
func (s *Session) HandleMessage(data []byte) {
	var cmd command
	if err := json.Unmarshal(data, &cmd); err != nil {
		s.emit(core.ErrorFrame("Invalid JSON received."))
		return
	}

	switch cmd.Type {
	case core.CmdSubscribeLog:
		s.handleSubscribeLog(cmd.Payload)
	case core.CmdUnsubscribeLog:
		s.handleUnsubscribeLog(cmd.Payload)
	case core.CmdSetInterval:
		s.handleSetInterval(cmd.Payload)
	default:
		s.emit(core.ErrorFrame(fmt.Sprintf("Unknown message type: %s", cmd.Type)))
	}
}

// Close cancels the periodic task and every tail task, awaits their
// termination, then defensively leaves every log group the connection
// might still belong to. Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	periodic := s.periodic
	s.periodic = nil
	tails := make([]*task, 0, len(s.tails))
	for _, t := range s.tails {
		tails = append(tails, t)
	}
	s.mu.Unlock()

	if periodic != nil {
		periodic.cancel()
		<-periodic.done
	}
	for _, t := range tails {
		t.cancel()
	}
	for _, t := range tails {
		<-t.done
	}

	for _, alias := range s.p.Logs.Aliases() {
		s.p.Broker.Unsubscribe(core.LogGroup(alias), s.p.Conn)
	}
}

// TailCount reports the number of live tail tasks.
func (s *Session) TailCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tails)
}

// Commands

func (s *Session) handleSubscribeLog(payload json.RawMessage) {
	var p logAliasPayload
	_ = json.Unmarshal(payload, &p)
	if p.LogAlias == "" {
		s.emit(core.ErrorFrame("Missing 'log_alias' in subscribe_log payload."))
		return
	}

	if !s.p.User.IsAdmin() {
		s.emit(core.ErrorFrame(fmt.Sprintf("Permission denied to subscribe to log %q.", p.LogAlias)))
		return
	}

	path, ok := s.p.Logs.Resolve(p.LogAlias)
	if !ok {
		s.emit(core.ErrorFrame(fmt.Sprintf("Log alias %q not found.", p.LogAlias)))
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if _, exists := s.tails[p.LogAlias]; exists {
		s.mu.Unlock()
		s.emit(core.InfoFrame(fmt.Sprintf("Already subscribed to log %q.", p.LogAlias)))
		return
	}
	t := s.startTail(p.LogAlias, path)
	s.tails[p.LogAlias] = t
	s.mu.Unlock()

	s.p.Broker.Subscribe(core.LogGroup(p.LogAlias), s.p.Conn)
	s.emit(core.InfoFrame(fmt.Sprintf("Subscribed to log %q.", p.LogAlias)))
}

func (s *Session) handleUnsubscribeLog(payload json.RawMessage) {
	var p logAliasPayload
	_ = json.Unmarshal(payload, &p)
	if p.LogAlias == "" {
		s.emit(core.ErrorFrame("Missing 'log_alias' in unsubscribe_log payload."))
		return
	}

	s.mu.Lock()
	t, exists := s.tails[p.LogAlias]
	if exists {
		delete(s.tails, p.LogAlias)
	}
	s.mu.Unlock()

	if !exists {
		s.emit(core.InfoFrame(fmt.Sprintf("Not currently subscribed to log %q.", p.LogAlias)))
		return
	}

	t.cancel()
	<-t.done
	s.p.Broker.Unsubscribe(core.LogGroup(p.LogAlias), s.p.Conn)
	s.emit(core.InfoFrame(fmt.Sprintf("Unsubscribed from log %q.", p.LogAlias)))
}

func (s *Session) handleSetInterval(payload json.RawMessage) {
	var p intervalPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		s.emit(core.ErrorFrame("Invalid interval value. Must be an integer between 1 and 60."))
		return
	}
	secs, err := p.Interval.Int64()
	if err != nil || secs < minIntervalSecs || secs > maxIntervalSecs {
		s.emit(core.ErrorFrame("Invalid interval value. Must be an integer between 1 and 60."))
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	old := s.periodic
	s.periodic = nil
	s.mu.Unlock()

	// await the old task so two periodic pushers never coexist
	if old != nil {
		old.cancel()
		<-old.done
	}

	interval := time.Duration(secs) * time.Second
	s.mu.Lock()
	s.interval = interval
	if !s.closed {
		s.periodic = s.startPeriodic(interval)
	}
	s.mu.Unlock()

	s.emit(core.InfoFrame(fmt.Sprintf("Monitoring interval set to %d seconds.", secs)))
}

// Interval returns the current snapshot interval.
func (s *Session) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// Tasks

// startPeriodic spawns the snapshot pusher. Collection runs on the task's
// own goroutine so a blocking collector never stalls the message loop.
func (s *Session) startPeriodic(interval time.Duration) *task {
	ctx, cancel := context.WithCancel(context.Background())
	t := &task{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(t.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			snap, err := s.p.Collector.Snapshot()
			if err != nil {
				s.emit(core.ErrorFrame(fmt.Sprintf("Error getting system info: %v", err)))
				return
			}
			s.emit(core.Frame{Type: core.FrameSystemUpdate, Payload: snap})

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return t
}

func (s *Session) startTail(alias, path string) *task {
	ctx, cancel := context.WithCancel(context.Background())
	t := &task{cancel: cancel, done: make(chan struct{})}

	tailer := &Tailer{
		Alias:        alias,
		Path:         path,
		PollInterval: s.p.TailPollInterval,
		LineDelay:    s.p.TailLineDelay,
		StillWanted: func() bool {
			s.mu.Lock()
			defer s.mu.Unlock()
			return s.tails[alias] == t
		},
	}

	go func() {
		defer close(t.done)
		tailer.Run(ctx, s.emit)

		// termination always releases the task's slot, whatever the cause
		s.mu.Lock()
		if s.tails[alias] == t {
			delete(s.tails, alias)
		}
		s.mu.Unlock()
		s.p.Broker.Unsubscribe(core.LogGroup(alias), s.p.Conn)
	}()
	return t
}

func (s *Session) emit(f core.Frame) {
	if err := s.p.Conn.Send(f); err != nil {
		s.p.Logger.Debug(fmt.Sprintf("dropping %s frame for user %s: %v", f.Type, s.p.User.ID, err))
	}
}
