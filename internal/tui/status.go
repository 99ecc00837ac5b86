package tui

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// StatusWriter draws a single spinning status line while a slow call, such
// as a release index fetch, is in flight. On anything but a terminal it
// writes nothing.
type StatusWriter struct {
	w       io.Writer
	mu      sync.Mutex
	message string
	start   time.Time
	done    chan struct{}
	stopped bool
}

// StartStatus begins showing msg on w. Call Stop when the work is over.
func StartStatus(w io.Writer, msg string) *StatusWriter {
	sw := &StatusWriter{
		w:       w,
		message: msg,
		start:   time.Now(),
		done:    make(chan struct{}),
	}
	if IsTerminal(w) {
		go sw.loop()
	} else {
		sw.stopped = true
	}
	return sw
}

// Update replaces the message and restarts the elapsed timer.
func (sw *StatusWriter) Update(msg string) {
	sw.mu.Lock()
	sw.message = msg
	sw.start = time.Now()
	sw.mu.Unlock()
}

// Stop clears the status line. It is safe to call more than once.
func (sw *StatusWriter) Stop() {
	sw.mu.Lock()
	if sw.stopped {
		sw.mu.Unlock()
		return
	}
	sw.stopped = true
	sw.mu.Unlock()
	close(sw.done)
	fmt.Fprint(sw.w, "\r\033[K")
}

func (sw *StatusWriter) loop() {
	tick := 0
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-sw.done:
			return
		case <-ticker.C:
			sw.mu.Lock()
			msg, start := sw.message, sw.start
			sw.mu.Unlock()

			frame := spinnerFrames[tick%len(spinnerFrames)]
			tick++
			fmt.Fprintf(sw.w, "\r\033[K%s %s (%s)", frame, msg, formatElapsed(time.Since(start)))
		}
	}
}

func formatElapsed(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < 10*time.Second:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	default:
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
}
