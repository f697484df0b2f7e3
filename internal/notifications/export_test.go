package notifications

import "time"

// SetNow overrides the dispatcher clock in tests.
func (d *Dispatcher) SetNow(now func() time.Time) {
	d.now = now
}
