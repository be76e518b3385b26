package monitor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/shule/core"
)

type frameSink struct {
	mu     sync.Mutex
	frames []core.Frame
}

func (s *frameSink) emit(f core.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, f)
}

func (s *frameSink) byType(typ string) []core.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Frame
	for _, f := range s.frames {
		if f.Type == typ {
			out = append(out, f)
		}
	}
	return out
}

func (s *frameSink) lines() []string {
	var out []string
	for _, f := range s.byType(core.FrameLogUpdate) {
		out = append(out, f.Payload.(core.LogUpdatePayload).Line)
	}
	return out
}

func runTailer(t *testing.T, path string) (*frameSink, context.CancelFunc, chan struct{}) {
	t.Helper()
	sink := &frameSink{}
	tailer := &Tailer{
		Alias:        "app",
		Path:         path,
		PollInterval: 5 * time.Millisecond,
		LineDelay:    time.Millisecond,
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		tailer.Run(ctx, sink.emit)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return sink, cancel, done
}

func appendLine(t *testing.T, path, line string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = f.Close() }()
	if _, err = f.WriteString(line); err != nil {
		t.Fatal(err)
	}
}

func TestTailer_streamsAppendedLines(t *testing.T) {
	path := tempLogFile(t)
	sink, _, _ := runTailer(t, path)

	// give the tailer a moment to reach EOF before appending
	time.Sleep(20 * time.Millisecond)
	appendLine(t, path, "hello\nworld\n")

	waitFor(t, func() bool { return len(sink.lines()) >= 2 })
	assert.Equal(t, []string{"hello", "world"}, sink.lines()[:2])
	assert.Empty(t, sink.byType(core.FrameError))
}

func TestTailer_skipsExistingContent(t *testing.T) {
	path := tempLogFile(t)
	appendLine(t, path, "old line\n")

	sink, _, _ := runTailer(t, path)
	time.Sleep(20 * time.Millisecond)
	appendLine(t, path, "new line\n")

	waitFor(t, func() bool { return len(sink.lines()) >= 1 })
	assert.Equal(t, []string{"new line"}, sink.lines())
}

func TestTailer_partialLines(t *testing.T) {
	path := tempLogFile(t)
	sink, _, _ := runTailer(t, path)

	time.Sleep(20 * time.Millisecond)
	appendLine(t, path, "half")
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, sink.lines()) // no newline yet

	appendLine(t, path, " done\n")
	waitFor(t, func() bool { return len(sink.lines()) >= 1 })
	assert.Equal(t, []string{"half done"}, sink.lines())
}

func TestTailer_cancellation(t *testing.T) {
	path := tempLogFile(t)
	sink, cancel, done := runTailer(t, path)

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("tailer did not terminate on cancellation")
	}

	appendLine(t, path, "after cancel\n")
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, sink.lines())
}

func TestTailer_missingFile(t *testing.T) {
	sink := &frameSink{}
	tailer := &Tailer{Alias: "app", Path: filepath.Join(os.TempDir(), "does-not-exist.log")}
	tailer.Run(context.Background(), sink.emit)

	frames := sink.byType(core.FrameError)
	if assert.Len(t, frames, 1) {
		assert.Contains(t, fmt.Sprintf("%v", frames[0].Payload), "Log file not found")
	}
}

func TestTailer_fileDisappears(t *testing.T) {
	path := tempLogFile(t)
	sink, _, done := runTailer(t, path)

	time.Sleep(20 * time.Millisecond)
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("tailer did not terminate after file removal")
	}
	assert.Len(t, sink.byType(core.FrameError), 1)
}

func TestTailer_stillWanted(t *testing.T) {
	path := tempLogFile(t)
	sink := &frameSink{}
	var wanted = true
	var mu sync.Mutex
	tailer := &Tailer{
		Alias:        "app",
		Path:         path,
		PollInterval: 5 * time.Millisecond,
		StillWanted: func() bool {
			mu.Lock()
			defer mu.Unlock()
			return wanted
		},
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		tailer.Run(context.Background(), sink.emit)
	}()

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	wanted = false
	mu.Unlock()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("tailer did not terminate once unwanted")
	}
	assert.Empty(t, sink.byType(core.FrameError)) // silent termination
}
