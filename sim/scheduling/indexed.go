package scheduling

import (
	"container/heap"
	"fmt"

	"github.com/sarchlab/reactor/sim/timing"
)

type entry[E Schedulable] struct {
	event E
	tau   timing.VTimeInSec
	seq   uint64
}

// before orders entries by time, and by insertion sequence on equal times.
func (e entry[E]) before(other entry[E]) bool {
	if e.tau != other.tau {
		return e.tau < other.tau
	}

	return e.seq < other.seq
}

// entryHeap is a binary min-heap that keeps the position of every event in an
// index, so that any event can be found in O(1) and re-sifted in O(log n).
type entryHeap[E Schedulable] struct {
	entries []entry[E]
	index   map[E]int
}

func (h *entryHeap[E]) Len() int {
	return len(h.entries)
}

func (h *entryHeap[E]) Less(i, j int) bool {
	return h.entries[i].before(h.entries[j])
}

func (h *entryHeap[E]) Swap(i, j int) {
	h.entries[i], h.entries[j] = h.entries[j], h.entries[i]
	h.index[h.entries[i].event] = i
	h.index[h.entries[j].event] = j
}

func (h *entryHeap[E]) Push(x any) {
	e := x.(entry[E])
	h.index[e.event] = len(h.entries)
	h.entries = append(h.entries, e)
}

func (h *entryHeap[E]) Pop() any {
	old := h.entries
	n := len(old)
	e := old[n-1]

	var zero entry[E]
	old[n-1] = zero
	h.entries = old[:n-1]
	delete(h.index, e.event)

	return e
}

// IndexedPriorityScheduler is a Scheduler backed by an indexed binary heap.
// It is not safe for concurrent use.
type IndexedPriorityScheduler[E Schedulable] struct {
	heap    entryHeap[E]
	nextSeq uint64
}

// NewIndexedPriorityScheduler creates an empty IndexedPriorityScheduler.
func NewIndexedPriorityScheduler[E Schedulable]() *IndexedPriorityScheduler[E] {
	return &IndexedPriorityScheduler[E]{
		heap: entryHeap[E]{
			index: make(map[E]int),
		},
	}
}

// Add starts tracking an event. Adding an event twice panics.
func (s *IndexedPriorityScheduler[E]) Add(e E) {
	if _, tracked := s.heap.index[e]; tracked {
		panic(fmt.Sprintf("scheduling: event %v is already scheduled", e))
	}

	heap.Push(&s.heap, entry[E]{event: e, tau: e.Tau(), seq: s.nextSeq})
	s.nextSeq++
}

// Next returns the earliest event.
func (s *IndexedPriorityScheduler[E]) Next() (E, bool) {
	if len(s.heap.entries) == 0 {
		var zero E
		return zero, false
	}

	return s.heap.entries[0].event, true
}

// Remove stops tracking an event. Removing an unknown event panics.
func (s *IndexedPriorityScheduler[E]) Remove(e E) {
	i := s.mustFind(e)
	heap.Remove(&s.heap, i)
}

// Update re-sifts an event after its time changed. Updating an unknown event
// panics.
func (s *IndexedPriorityScheduler[E]) Update(e E) {
	i := s.mustFind(e)

	tau := e.Tau()
	if tau == s.heap.entries[i].tau {
		return
	}

	s.heap.entries[i].tau = tau
	heap.Fix(&s.heap, i)
}

// Contains tells if an event is tracked.
func (s *IndexedPriorityScheduler[E]) Contains(e E) bool {
	_, tracked := s.heap.index[e]
	return tracked
}

// Len returns the number of tracked events.
func (s *IndexedPriorityScheduler[E]) Len() int {
	return len(s.heap.entries)
}

// Earliest returns up to n events in time order, without removing them.
func (s *IndexedPriorityScheduler[E]) Earliest(n int) []E {
	if n <= 0 {
		return []E{}
	}

	batch := make([]E, 0, min(n, s.Len()))
	s.walk(func(e entry[E]) bool {
		batch = append(batch, e.event)
		return len(batch) < n
	})

	return batch
}

// EarliestWhile returns events in time order for as long as accept allows.
// The first event is always returned. Accept is given the time of the last
// accepted event and the time of the candidate.
func (s *IndexedPriorityScheduler[E]) EarliestWhile(
	accept func(prev, next timing.VTimeInSec) bool,
) []E {
	batch := []E{}

	var prev timing.VTimeInSec
	s.walk(func(e entry[E]) bool {
		if len(batch) > 0 && !accept(prev, e.tau) {
			return false
		}

		batch = append(batch, e.event)
		prev = e.tau

		return true
	})

	return batch
}

// walk visits the entries in time order with a best-first search over the
// heap. The heap itself is not modified.
func (s *IndexedPriorityScheduler[E]) walk(visit func(e entry[E]) bool) {
	entries := s.heap.entries
	if len(entries) == 0 {
		return
	}

	f := &frontier[E]{entries: entries, positions: []int{0}}
	for f.Len() > 0 {
		i := heap.Pop(f).(int)
		if !visit(entries[i]) {
			return
		}

		for _, child := range [2]int{2*i + 1, 2*i + 2} {
			if child < len(entries) {
				heap.Push(f, child)
			}
		}
	}
}

func (s *IndexedPriorityScheduler[E]) mustFind(e E) int {
	i, tracked := s.heap.index[e]
	if !tracked {
		panic(fmt.Sprintf("scheduling: event %v is not scheduled", e))
	}

	return i
}

// frontier is a heap of heap positions, used to visit a heap in order.
type frontier[E Schedulable] struct {
	entries   []entry[E]
	positions []int
}

func (f *frontier[E]) Len() int {
	return len(f.positions)
}

func (f *frontier[E]) Less(i, j int) bool {
	return f.entries[f.positions[i]].before(f.entries[f.positions[j]])
}

func (f *frontier[E]) Swap(i, j int) {
	f.positions[i], f.positions[j] = f.positions[j], f.positions[i]
}

func (f *frontier[E]) Push(x any) {
	f.positions = append(f.positions, x.(int))
}

func (f *frontier[E]) Pop() any {
	n := len(f.positions)
	p := f.positions[n-1]
	f.positions = f.positions[:n-1]

	return p
}
