package monitor

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

// fakeConn records every frame sent to the connection.
type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
}

var _ core.Subscriber = (*fakeConn)(nil)

func (c *fakeConn) Send(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) all() []core.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]core.Frame(nil), c.frames...)
}

func (c *fakeConn) byType(typ string) []core.Frame {
	var out []core.Frame
	for _, f := range c.all() {
		if f.Type == typ {
			out = append(out, f)
		}
	}
	return out
}

// lastMessage returns the message of the newest error/info frame.
func (c *fakeConn) lastMessage(t *testing.T, typ string) string {
	t.Helper()
	frames := c.byType(typ)
	if len(frames) == 0 {
		t.Fatalf("no %q frame received", typ)
	}
	return fmt.Sprintf("%v", frames[len(frames)-1].Payload)
}

type fakeCollector struct {
	mu    sync.Mutex
	calls int
	err   error
}

var _ Collector = (*fakeCollector)(nil)

func (c *fakeCollector) Snapshot() (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return Snapshot{}, c.err
	}
	return Snapshot{CPUPercent: 12.5, CPUCountLogical: 4}, nil
}

type fakeRegistry map[string]string

var _ LogRegistry = (fakeRegistry)(nil)

func (r fakeRegistry) Resolve(alias string) (string, bool) {
	path, ok := r[alias]
	return path, ok
}

func (r fakeRegistry) Aliases() []string {
	aliases := make([]string, 0, len(r))
	for a := range r {
		aliases = append(aliases, a)
	}
	sort.Strings(aliases)
	return aliases
}

// fakeBroker records group membership.
type fakeBroker struct {
	mu     sync.Mutex
	groups map[string]int
}

var _ core.Broadcaster = (*fakeBroker)(nil)

func newFakeBroker() *fakeBroker { return &fakeBroker{groups: make(map[string]int)} }

func (b *fakeBroker) Subscribe(group string, _ core.Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.groups[group]++
}

func (b *fakeBroker) Unsubscribe(group string, _ core.Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.groups[group] > 0 {
		b.groups[group]--
	}
}

func (b *fakeBroker) Broadcast(string, core.Frame) {}

func (b *fakeBroker) members(group string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.groups[group]
}

type nopLogger struct{}

var _ core.Logger = (*nopLogger)(nil)

func (nopLogger) Enable(bool)                  {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func tempLogFile(t *testing.T) string {
	t.Helper()
	dir, err := ioutil.TempDir("", "monitor-test")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	path := filepath.Join(dir, "app.log")
	if err := ioutil.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestSession(t *testing.T, usr user.User, logs LogRegistry) (*Session, *fakeConn, *fakeBroker) {
	t.Helper()
	conn := &fakeConn{}
	broker := newFakeBroker()
	if logs == nil {
		logs = fakeRegistry{}
	}
	sess := NewSession(Params{
		User:             usr,
		Conn:             conn,
		Collector:        &fakeCollector{},
		Logs:             logs,
		Broker:           broker,
		Logger:           nopLogger{},
		Interval:         time.Hour, // keep the periodic task quiet after the first push
		TailPollInterval: 5 * time.Millisecond,
		TailLineDelay:    time.Millisecond,
	})
	t.Cleanup(sess.Close)
	return sess, conn, broker
}

func admin() user.User {
	return user.User{ID: "1", Username: "admin", IsActive: true, Roles: []string{user.RoleAdmin}}
}

func student() user.User {
	return user.User{ID: "2", Username: "student", IsActive: true, Roles: []string{user.RoleStudent}}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition never met")
}

func TestSession_periodicSnapshots(t *testing.T) {
	sess, conn, _ := newTestSession(t, admin(), nil)
	sess.Start()

	// first snapshot goes out immediately
	waitFor(t, func() bool { return len(conn.byType(core.FrameSystemUpdate)) >= 1 })

	frames := conn.byType(core.FrameSystemUpdate)
	snap, ok := frames[0].Payload.(Snapshot)
	if assert.True(t, ok) {
		assert.Equal(t, 12.5, snap.CPUPercent)
	}
}

func TestSession_collectorError(t *testing.T) {
	conn := &fakeConn{}
	sess := NewSession(Params{
		User:      admin(),
		Conn:      conn,
		Collector: &fakeCollector{err: errors.New("boom")},
		Logs:      fakeRegistry{},
		Broker:    newFakeBroker(),
		Logger:    nopLogger{},
	})
	defer sess.Close()
	sess.Start()

	waitFor(t, func() bool { return len(conn.byType(core.FrameError)) >= 1 })

	// the task terminates after one error frame
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, conn.byType(core.FrameError), 1)
	assert.Empty(t, conn.byType(core.FrameSystemUpdate))
}

func TestSession_handleMessage(t *testing.T) {
	t.Run("invalid JSON", func(t *testing.T) {
		sess, conn, _ := newTestSession(t, admin(), nil)
		sess.HandleMessage([]byte("{nope"))
		assert.Len(t, conn.byType(core.FrameError), 1)
		assert.Contains(t, conn.lastMessage(t, core.FrameError), "Invalid JSON received.")
	})

	t.Run("unknown type", func(t *testing.T) {
		sess, conn, _ := newTestSession(t, admin(), nil)
		sess.HandleMessage([]byte(`{"type":"dance"}`))
		assert.Len(t, conn.byType(core.FrameError), 1)
		assert.Contains(t, conn.lastMessage(t, core.FrameError), "Unknown message type: dance")
	})
}

func TestSession_subscribeLog(t *testing.T) {
	path := tempLogFile(t)
	logs := fakeRegistry{"app": path}

	t.Run("admin subscribes", func(t *testing.T) {
		sess, conn, broker := newTestSession(t, admin(), logs)
		sess.HandleMessage([]byte(`{"type":"subscribe_log","payload":{"log_alias":"app"}}`))

		assert.Equal(t, 1, sess.TailCount())
		assert.Equal(t, 1, broker.members(core.LogGroup("app")))
		assert.Contains(t, conn.lastMessage(t, core.FrameInfo), `Subscribed to log "app".`)
	})

	t.Run("duplicate subscribe is informational", func(t *testing.T) {
		sess, conn, _ := newTestSession(t, admin(), logs)
		sess.HandleMessage([]byte(`{"type":"subscribe_log","payload":{"log_alias":"app"}}`))
		sess.HandleMessage([]byte(`{"type":"subscribe_log","payload":{"log_alias":"app"}}`))

		assert.Equal(t, 1, sess.TailCount())
		assert.Contains(t, conn.lastMessage(t, core.FrameInfo), `Already subscribed to log "app".`)
	})

	t.Run("unknown alias", func(t *testing.T) {
		sess, conn, _ := newTestSession(t, admin(), logs)
		sess.HandleMessage([]byte(`{"type":"subscribe_log","payload":{"log_alias":"nope"}}`))

		assert.Equal(t, 0, sess.TailCount())
		assert.Contains(t, conn.lastMessage(t, core.FrameError), `Log alias "nope" not found.`)
	})

	t.Run("non-admin is denied", func(t *testing.T) {
		sess, conn, _ := newTestSession(t, student(), logs)
		sess.HandleMessage([]byte(`{"type":"subscribe_log","payload":{"log_alias":"app"}}`))

		assert.Equal(t, 0, sess.TailCount())
		assert.Contains(t, conn.lastMessage(t, core.FrameError), `Permission denied to subscribe to log "app".`)
	})

	t.Run("missing alias", func(t *testing.T) {
		sess, conn, _ := newTestSession(t, admin(), logs)
		sess.HandleMessage([]byte(`{"type":"subscribe_log","payload":{}}`))
		assert.Contains(t, conn.lastMessage(t, core.FrameError), "Missing 'log_alias'")
	})
}

func TestSession_unsubscribeLog(t *testing.T) {
	path := tempLogFile(t)
	logs := fakeRegistry{"app": path}

	t.Run("round trip", func(t *testing.T) {
		sess, conn, broker := newTestSession(t, admin(), logs)
		sess.HandleMessage([]byte(`{"type":"subscribe_log","payload":{"log_alias":"app"}}`))
		sess.HandleMessage([]byte(`{"type":"unsubscribe_log","payload":{"log_alias":"app"}}`))

		assert.Equal(t, 0, sess.TailCount())
		assert.Equal(t, 0, broker.members(core.LogGroup("app")))
		assert.Contains(t, conn.lastMessage(t, core.FrameInfo), `Unsubscribed from log "app".`)
	})

	t.Run("not subscribed is informational", func(t *testing.T) {
		sess, conn, _ := newTestSession(t, admin(), logs)
		sess.HandleMessage([]byte(`{"type":"unsubscribe_log","payload":{"log_alias":"app"}}`))
		assert.Contains(t, conn.lastMessage(t, core.FrameInfo), `Not currently subscribed to log "app".`)
	})
}

func TestSession_setInterval(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		sess, conn, _ := newTestSession(t, admin(), nil)
		sess.HandleMessage([]byte(`{"type":"set_interval","payload":{"interval":30}}`))

		assert.Equal(t, 30*time.Second, sess.Interval())
		assert.Contains(t, conn.lastMessage(t, core.FrameInfo), "Monitoring interval set to 30 seconds.")
	})

	t.Run("out of range low", func(t *testing.T) {
		sess, conn, _ := newTestSession(t, admin(), nil)
		sess.HandleMessage([]byte(`{"type":"set_interval","payload":{"interval":0}}`))

		assert.Equal(t, time.Hour, sess.Interval()) // unchanged
		assert.Contains(t, conn.lastMessage(t, core.FrameError), "Invalid interval value. Must be an integer between 1 and 60.")
	})

	t.Run("out of range high", func(t *testing.T) {
		sess, conn, _ := newTestSession(t, admin(), nil)
		sess.HandleMessage([]byte(`{"type":"set_interval","payload":{"interval":61}}`))

		assert.Equal(t, time.Hour, sess.Interval())
		assert.Contains(t, conn.lastMessage(t, core.FrameError), "Invalid interval value.")
	})

	t.Run("not an integer", func(t *testing.T) {
		sess, conn, _ := newTestSession(t, admin(), nil)
		sess.HandleMessage([]byte(`{"type":"set_interval","payload":{"interval":"abc"}}`))

		assert.Equal(t, time.Hour, sess.Interval())
		assert.Contains(t, conn.lastMessage(t, core.FrameError), "Invalid interval value.")
	})
}

func TestSession_Close(t *testing.T) {
	path := tempLogFile(t)
	logs := fakeRegistry{"app": path}

	sess, _, broker := newTestSession(t, admin(), logs)
	sess.Start()
	sess.HandleMessage([]byte(`{"type":"subscribe_log","payload":{"log_alias":"app"}}`))
	assert.Equal(t, 1, sess.TailCount())

	sess.Close()
	assert.Equal(t, 0, sess.TailCount())
	assert.Equal(t, 0, broker.members(core.LogGroup("app")))

	// idempotent
	sess.Close()
}
