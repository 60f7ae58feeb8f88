// Package debounce coalesces bursts of triggers into one delayed call.
package debounce

import (
    "sync"
    "time"

    "github.com/jonboulle/clockwork"
)

// Debouncer runs the most recently triggered function once no new trigger has
// arrived for the configured delay.  Each Trigger cancels the pending timer
// before scheduling a new one, so at most one callback is ever pending.
type Debouncer struct {
    clock clockwork.Clock
    delay time.Duration

    mu      sync.Mutex
    gen     uint64
    pending clockwork.Timer
}

// New returns a Debouncer on clock.  A nil clock means the real clock.
func New(clock clockwork.Clock, delay time.Duration) *Debouncer {
    if clock == nil {
        clock = clockwork.NewRealClock()
    }
    return &Debouncer{clock: clock, delay: delay}
}

// Delay returns the debounce window.
func (d *Debouncer) Delay() time.Duration { return d.delay }

// Trigger (re)starts the window.  fn runs when the window elapses unless
// another Trigger or Cancel supersedes it.
func (d *Debouncer) Trigger(fn func()) {
    d.mu.Lock()
    defer d.mu.Unlock()
    if d.pending != nil {
        d.pending.Stop()
    }
    d.gen++
    gen := d.gen
    d.pending = d.clock.AfterFunc(d.delay, func() {
        // a timer may fire after Stop lost the race; the generation check
        // drops it
        d.mu.Lock()
        if gen != d.gen || d.pending == nil {
            d.mu.Unlock()
            return
        }
        d.pending = nil
        d.mu.Unlock()
        fn()
    })
}

// Cancel drops the pending callback, if any.  It reports whether one was
// pending.
func (d *Debouncer) Cancel() bool {
    d.mu.Lock()
    defer d.mu.Unlock()
    if d.pending == nil {
        return false
    }
    d.pending.Stop()
    d.pending = nil
    d.gen++
    return true
}

// Pending reports whether a callback is scheduled.
func (d *Debouncer) Pending() bool {
    d.mu.Lock()
    defer d.mu.Unlock()
    return d.pending != nil
}
