package debounce

import (
    "sync"
    "testing"
    "time"

    "github.com/jonboulle/clockwork"
    "github.com/stretchr/testify/assert"
)

// fake clock callbacks run on their own goroutine
const settle = 100 * time.Millisecond

type recorder struct {
    mu    sync.Mutex
    calls []int
}

func (r *recorder) add(i int) func() {
    return func() {
        r.mu.Lock()
        defer r.mu.Unlock()
        r.calls = append(r.calls, i)
    }
}

func (r *recorder) got() []int {
    r.mu.Lock()
    defer r.mu.Unlock()
    return append([]int(nil), r.calls...)
}

func TestTriggerCoalescesWithinWindow(t *testing.T) {
    clock := clockwork.NewFakeClock()
    d := New(clock, 200*time.Millisecond)

    rec := &recorder{}
    for i := 1; i <= 3; i++ {
        d.Trigger(rec.add(i))
        clock.Advance(50 * time.Millisecond)
    }
    assert.Empty(t, rec.got())
    assert.True(t, d.Pending())

    clock.Advance(150 * time.Millisecond)
    assert.Eventually(t, func() bool { return len(rec.got()) == 1 }, time.Second, time.Millisecond)
    assert.Equal(t, []int{3}, rec.got())
    assert.Eventually(t, func() bool { return !d.Pending() }, time.Second, time.Millisecond)
}

func TestTriggerAfterWindowFiresAgain(t *testing.T) {
    clock := clockwork.NewFakeClock()
    d := New(clock, 200*time.Millisecond)

    rec := &recorder{}
    d.Trigger(rec.add(1))
    clock.Advance(200 * time.Millisecond)
    assert.Eventually(t, func() bool { return len(rec.got()) == 1 }, time.Second, time.Millisecond)

    d.Trigger(rec.add(2))
    clock.Advance(199 * time.Millisecond)
    assert.Never(t, func() bool { return len(rec.got()) > 1 }, settle, 5*time.Millisecond)
    clock.Advance(time.Millisecond)
    assert.Eventually(t, func() bool { return len(rec.got()) == 2 }, time.Second, time.Millisecond)
    assert.Equal(t, []int{1, 2}, rec.got())
}

func TestCancelDropsPending(t *testing.T) {
    clock := clockwork.NewFakeClock()
    d := New(clock, 200*time.Millisecond)

    rec := &recorder{}
    d.Trigger(rec.add(1))
    assert.True(t, d.Cancel())
    assert.False(t, d.Cancel())
    clock.Advance(time.Second)
    assert.Never(t, func() bool { return len(rec.got()) > 0 }, settle, 5*time.Millisecond)
}

func TestRealClockFires(t *testing.T) {
    d := New(nil, 5*time.Millisecond)
    done := make(chan struct{})
    d.Trigger(func() { close(done) })
    select {
    case <-done:
    case <-time.After(time.Second):
        t.Fatal("debounced callback never ran")
    }
}
