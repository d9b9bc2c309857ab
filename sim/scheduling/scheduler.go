// Package scheduling provides the priority queues that decide which event of
// a simulation happens next.
package scheduling

import "github.com/sarchlab/reactor/sim/timing"

// Schedulable is anything that is due at a certain time. Schedulable values
// are tracked by identity, so they are usually pointers.
type Schedulable interface {
	comparable
	Tau() timing.VTimeInSec
}

// A Scheduler tracks events and tells which one is due next.
type Scheduler[E Schedulable] interface {
	// Add starts tracking an event.
	Add(e E)

	// Remove stops tracking an event.
	Remove(e E)

	// Update re-reads the time of a tracked event after it changed.
	Update(e E)

	// Next returns the event with the earliest time without removing it. The
	// boolean is false if no event is tracked.
	Next() (E, bool)

	// Contains tells if the event is tracked.
	Contains(e E) bool

	// Len returns the number of tracked events.
	Len() int
}

// A BatchScheduler can also return a group of next-due events at once. All
// its methods are safe for concurrent use.
type BatchScheduler[E Schedulable] interface {
	Scheduler[E]

	// NextBatch returns the next-due events in time order.
	NextBatch() []E
}
