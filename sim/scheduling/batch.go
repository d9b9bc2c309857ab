package scheduling

import (
	"fmt"
	"math"
	"sync"

	"github.com/sarchlab/reactor/sim/timing"
)

// lockedScheduler serializes every operation on an IndexedPriorityScheduler,
// so that workers can update events while the engine queries the queue.
type lockedScheduler[E Schedulable] struct {
	lock  sync.Mutex
	queue *IndexedPriorityScheduler[E]
}

func (s *lockedScheduler[E]) Add(e E) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.queue.Add(e)
}

func (s *lockedScheduler[E]) Remove(e E) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.queue.Remove(e)
}

func (s *lockedScheduler[E]) Update(e E) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.queue.Update(e)
}

func (s *lockedScheduler[E]) Next() (E, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.queue.Next()
}

func (s *lockedScheduler[E]) Contains(e E) bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.queue.Contains(e)
}

func (s *lockedScheduler[E]) Len() int {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.queue.Len()
}

// FixedBatchScheduler returns batches of at most a fixed number of events.
type FixedBatchScheduler[E Schedulable] struct {
	lockedScheduler[E]
	batchSize int
}

// NewFixedBatchScheduler creates a FixedBatchScheduler. The batch size must be
// positive.
func NewFixedBatchScheduler[E Schedulable](
	batchSize int,
) *FixedBatchScheduler[E] {
	if batchSize < 1 {
		panic(fmt.Sprintf("scheduling: invalid batch size %d", batchSize))
	}

	s := &FixedBatchScheduler[E]{batchSize: batchSize}
	s.queue = NewIndexedPriorityScheduler[E]()

	return s
}

// BatchSize returns the maximum number of events in a batch.
func (s *FixedBatchScheduler[E]) BatchSize() int {
	return s.batchSize
}

// NextBatch returns the min(batchSize, Len()) earliest events.
func (s *FixedBatchScheduler[E]) NextBatch() []E {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.queue.Earliest(s.batchSize)
}

// EpsilonBatchScheduler groups the events whose times are close to each
// other. Starting from the earliest event, the next event joins the batch if
// it is due less than epsilon after the last event admitted.
type EpsilonBatchScheduler[E Schedulable] struct {
	lockedScheduler[E]
	epsilon timing.VTimeInSec
}

// NewEpsilonBatchScheduler creates an EpsilonBatchScheduler.
func NewEpsilonBatchScheduler[E Schedulable](
	epsilon timing.VTimeInSec,
) *EpsilonBatchScheduler[E] {
	if epsilon < 0 || math.IsNaN(float64(epsilon)) {
		panic(fmt.Sprintf("scheduling: invalid epsilon %v", epsilon))
	}

	s := &EpsilonBatchScheduler[E]{epsilon: epsilon}
	s.queue = NewIndexedPriorityScheduler[E]()

	return s
}

// Epsilon returns the maximum gap between two consecutive events of a batch.
func (s *EpsilonBatchScheduler[E]) Epsilon() timing.VTimeInSec {
	return s.epsilon
}

// NextBatch returns the earliest events that are within epsilon of each
// other.
func (s *EpsilonBatchScheduler[E]) NextBatch() []E {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.queue.EarliestWhile(func(prev, next timing.VTimeInSec) bool {
		return math.Abs(float64(next-prev)) < float64(s.epsilon)
	})
}

// UnboundedBatchScheduler lets the caller decide the size of every batch.
type UnboundedBatchScheduler[E Schedulable] struct {
	lockedScheduler[E]
}

// NewUnboundedBatchScheduler creates an UnboundedBatchScheduler.
func NewUnboundedBatchScheduler[E Schedulable]() *UnboundedBatchScheduler[E] {
	s := &UnboundedBatchScheduler[E]{}
	s.queue = NewIndexedPriorityScheduler[E]()

	return s
}

// NextBatchOf returns the min(size, Len()) earliest events.
func (s *UnboundedBatchScheduler[E]) NextBatchOf(size int) []E {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.queue.Earliest(size)
}

// NextBatch returns every tracked event in time order.
func (s *UnboundedBatchScheduler[E]) NextBatch() []E {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.queue.Earliest(s.queue.Len())
}
