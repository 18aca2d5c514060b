// Package progress defines the event type the orchestrator publishes as it
// drives a download, and a plain-line renderer for non-interactive runs.
package progress

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
)

// Event reports the state of an in-progress download. Two consumers render
// it: the plain Printer below, and internal/tui's full-screen view.
type Event struct {
	Downloaded int64
	Total      int64
	Speed      float64 // bytes/sec, EMA-smoothed by the caller
	Done       bool
	Err        error
}

// Printer renders Events as single overwritten lines to an io.Writer,
// mirroring the teacher's non-TUI progress output.
type Printer struct {
	w        io.Writer
	lastLine int // length of the last line written, for clearing
}

// NewPrinter builds a Printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Render writes one progress line, carriage-returning over the previous one.
func (p *Printer) Render(e Event) {
	var pct float64
	if e.Total > 0 {
		pct = float64(e.Downloaded) / float64(e.Total) * 100
	}

	line := fmt.Sprintf("%6.2f%%  %s / %s  %s/s",
		pct,
		humanize.Bytes(uint64(e.Downloaded)),
		humanize.Bytes(uint64(e.Total)),
		humanize.Bytes(uint64(e.Speed)))

	pad := p.lastLine - len(line)
	if pad < 0 {
		pad = 0
	}
	fmt.Fprintf(p.w, "\r%s%*s", line, pad, "")
	p.lastLine = len(line)

	if e.Done {
		fmt.Fprintln(p.w)
	}
}

// SpeedEstimator smooths raw byte deltas into a bytes/sec EMA, the same
// smoothing shape the teacher's health monitor uses for worker speed.
type SpeedEstimator struct {
	alpha    float64
	speed    float64
	lastTime time.Time
}

// NewSpeedEstimator builds an estimator with the given EMA smoothing factor.
func NewSpeedEstimator(alpha float64) *SpeedEstimator {
	if alpha <= 0 || alpha > 1 {
		alpha = 0.3
	}
	return &SpeedEstimator{alpha: alpha}
}

// Observe folds in a newly-reported byte delta and returns the current
// smoothed speed estimate in bytes/sec.
func (s *SpeedEstimator) Observe(delta int64) float64 {
	now := time.Now()
	if s.lastTime.IsZero() {
		s.lastTime = now
		return s.speed
	}

	elapsed := now.Sub(s.lastTime).Seconds()
	s.lastTime = now
	if elapsed <= 0 {
		return s.speed
	}

	instant := float64(delta) / elapsed
	if s.speed == 0 {
		s.speed = instant
	} else {
		s.speed = (1-s.alpha)*s.speed + s.alpha*instant
	}
	return s.speed
}
