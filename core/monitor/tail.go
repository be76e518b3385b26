package monitor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/trezcool/shule/core"
)

const (
	defaultTailPollInterval = 500 * time.Millisecond
	defaultTailLineDelay    = 10 * time.Millisecond
)

// Tailer follows a file's growth and emits each newly appended line.
// Only new content is streamed: the tailer seeks to end-of-file on start.
// It terminates on cancellation, on losing its subscription, or on the
// first unrecoverable read error.
type Tailer struct {
	Alias string
	Path  string

	// PollInterval is how long to pause when no new line is available.
	// LineDelay bounds CPU usage between consecutive line reads.
	PollInterval time.Duration
	LineDelay    time.Duration

	// StillWanted, when set, is checked at every iteration; the tailer
	// terminates silently once it reports false (the owning connection
	// tore the subscription down concurrently).
	StillWanted func() bool
}

// Run tails the file until ctx is cancelled or a fatal error occurs,
// emitting log_update frames (and at most one error frame) through emit.
func (t *Tailer) Run(ctx context.Context, emit func(core.Frame)) {
	poll := t.PollInterval
	if poll <= 0 {
		poll = defaultTailPollInterval
	}
	delay := t.LineDelay
	if delay <= 0 {
		delay = defaultTailLineDelay
	}

	fi, err := os.Stat(t.Path)
	if err != nil || !fi.Mode().IsRegular() {
		emit(core.ErrorFrame(fmt.Sprintf("Log file not found: %s", t.Path)))
		return
	}
	f, err := os.Open(t.Path)
	if err != nil {
		emit(core.ErrorFrame(fmt.Sprintf("Permission denied for log file: %s", t.Path)))
		return
	}
	defer func() { _ = f.Close() }()

	if _, err = f.Seek(0, io.SeekEnd); err != nil {
		emit(core.ErrorFrame(fmt.Sprintf("Error reading log %s: %v", t.Alias, err)))
		return
	}

	reader := bufio.NewReader(f)
	var partial strings.Builder

	for {
		if ctx.Err() != nil {
			return
		}
		if t.StillWanted != nil && !t.StillWanted() {
			return
		}

		chunk, err := reader.ReadString('\n')
		switch {
		case err == nil:
			line := partial.String() + chunk
			partial.Reset()
			emit(core.LogUpdateFrame(t.Alias, strings.TrimRight(line, "\r\n")))
			if !sleep(ctx, delay) {
				return
			}

		case err == io.EOF:
			// no complete line yet; keep what we have and wait for growth
			partial.WriteString(chunk)
			if _, serr := os.Stat(t.Path); serr != nil {
				if os.IsNotExist(serr) {
					emit(core.ErrorFrame(fmt.Sprintf("Log file disappeared: %s", t.Path)))
				} else if os.IsPermission(serr) {
					emit(core.ErrorFrame(fmt.Sprintf("Permission lost for log file: %s", t.Path)))
				} else {
					emit(core.ErrorFrame(fmt.Sprintf("Error reading log %s: %v", t.Alias, serr)))
				}
				return
			}
			if !sleep(ctx, poll) {
				return
			}

		case os.IsNotExist(err):
			emit(core.ErrorFrame(fmt.Sprintf("Log file disappeared: %s", t.Path)))
			return

		case os.IsPermission(err):
			emit(core.ErrorFrame(fmt.Sprintf("Permission lost for log file: %s", t.Path)))
			return

		default:
			emit(core.ErrorFrame(fmt.Sprintf("Error reading log %s: %v", t.Alias, err)))
			return
		}
	}
}

// sleep pauses for d, returning false if ctx was cancelled first.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
