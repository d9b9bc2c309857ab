package engine

import (
	"sync/atomic"
	"time"
)

// A statusGeneration is one status in the history of an engine. When the
// status changes, the generation gets a successor and its channel is closed,
// which wakes up every goroutine waiting on it.
type statusGeneration struct {
	status  Status
	number  uint64
	changed chan struct{}
	next    *statusGeneration
}

// statusBoard publishes the status of an engine. Only the simulation
// goroutine publishes; any goroutine can read or wait.
type statusBoard struct {
	current atomic.Pointer[statusGeneration]
}

func newStatusBoard(initial Status) *statusBoard {
	b := &statusBoard{}
	b.current.Store(&statusGeneration{
		status:  initial,
		changed: make(chan struct{}),
	})

	return b
}

func (b *statusBoard) load() *statusGeneration {
	return b.current.Load()
}

// publish appends a new generation. It returns false if the status did not
// change.
func (b *statusBoard) publish(s Status) bool {
	cur := b.current.Load()
	if cur.status == s {
		return false
	}

	next := &statusGeneration{
		status:  s,
		number:  cur.number + 1,
		changed: make(chan struct{}),
	}
	cur.next = next
	b.current.Store(next)
	close(cur.changed)

	return true
}

// waitFor blocks until the target status is observed, the target becomes
// unreachable, or the timeout expires. A non-positive timeout waits without
// limit. Waiters follow the chain of generations, so a status that is
// replaced quickly is still observed.
func (b *statusBoard) waitFor(target Status, timeout time.Duration) Status {
	return b.waitFrom(b.current.Load(), target, timeout)
}

// waitFrom waits like waitFor, starting from generation g.
func (b *statusBoard) waitFrom(
	g *statusGeneration,
	target Status,
	timeout time.Duration,
) Status {
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	for {
		if g.status == target || !target.IsReachableFrom(g.status) {
			return g.status
		}

		select {
		case <-g.changed:
			g = g.next
		case <-expired:
			return b.current.Load().status
		}
	}
}
