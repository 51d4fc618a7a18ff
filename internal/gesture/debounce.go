package gesture

import "time"

// Debouncer bundles rapid updates and runs only the latest one once the
// trailing delay has passed without a newer push. Time is passed in
// explicitly so callers drive it from their own clock.
type Debouncer struct {
	delay time.Duration
	fn    func() error
	due   time.Time
}

// NewDebouncer returns a debouncer with the given trailing delay.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Push replaces the pending update with fn and restarts the delay.
func (d *Debouncer) Push(fn func() error, now time.Time) {
	d.fn = fn
	d.due = now.Add(d.delay)
}

// Pending reports whether an update is waiting.
func (d *Debouncer) Pending() bool { return d.fn != nil }

// Due returns when the pending update fires.
func (d *Debouncer) Due() (time.Time, bool) {
	return d.due, d.fn != nil
}

// Tick runs the pending update if its delay has passed.
func (d *Debouncer) Tick(now time.Time) (bool, error) {
	if d.fn == nil || now.Before(d.due) {
		return false, nil
	}
	return true, d.Flush()
}

// Flush runs the pending update immediately.
func (d *Debouncer) Flush() error {
	fn := d.fn
	d.fn = nil
	if fn == nil {
		return nil
	}
	return fn()
}

// Cancel drops the pending update.
func (d *Debouncer) Cancel() { d.fn = nil }
