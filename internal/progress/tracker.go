// Package progress renders per-table transfer progress.
package progress

import (
	"sync/atomic"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Tracker tracks one table's transfer progress. The bar only appears
// when a total is known; with an unknown (zero) total the tracker just
// counts, so quiet runs and tests stay quiet.
type Tracker struct {
	bar       *progressbar.ProgressBar
	current   atomic.Int64
	startTime time.Time
}

// New creates a tracker with no bar yet.
func New() *Tracker {
	return &Tracker{startTime: time.Now()}
}

// SetTotal installs the progress bar sized by the approximate row
// count. The count is display-only; rows past the estimate still
// count.
func (t *Tracker) SetTotal(total int64) {
	if total <= 0 {
		return
	}
	t.bar = progressbar.NewOptions64(
		total,
		progressbar.OptionSetDescription("Transferring"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("rows"),
		progressbar.OptionSpinnerType(14),
	)
}

// Add increments the progress counter.
func (t *Tracker) Add(n int64) {
	t.current.Add(n)
	if t.bar != nil {
		t.bar.Add64(n)
	}
}

// Current returns the rows counted so far.
func (t *Tracker) Current() int64 {
	return t.current.Load()
}

// Elapsed returns the time since the tracker was created.
func (t *Tracker) Elapsed() time.Duration {
	return time.Since(t.startTime)
}

// Finish completes the bar, if one was shown.
func (t *Tracker) Finish() {
	if t.bar != nil {
		t.bar.Finish()
	}
}
