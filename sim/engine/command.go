package engine

import "sync"

// A Command is a unit of work submitted from any goroutine. It runs on the
// simulation goroutine, with exclusive access to the engine, before the next
// step. A returned error terminates the simulation.
type Command func(e *Engine) error

// commandQueue is an unbounded FIFO of commands with a wake-up signal for the
// simulation goroutine.
type commandQueue struct {
	lock    sync.Mutex
	pending []Command
	closed  bool
	signal  chan struct{}
}

func newCommandQueue() *commandQueue {
	return &commandQueue{
		signal: make(chan struct{}, 1),
	}
}

// push queues a command and reports whether the queue still accepts
// commands.
func (q *commandQueue) push(c Command) bool {
	q.lock.Lock()
	if q.closed {
		q.lock.Unlock()
		return false
	}

	q.pending = append(q.pending, c)
	q.lock.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// drain takes all the commands queued so far.
func (q *commandQueue) drain() []Command {
	q.lock.Lock()
	defer q.lock.Unlock()

	cmds := q.pending
	q.pending = nil

	return cmds
}

// close refuses any further command and takes the ones still queued.
func (q *commandQueue) close() []Command {
	q.lock.Lock()
	defer q.lock.Unlock()

	q.closed = true
	cmds := q.pending
	q.pending = nil

	return cmds
}

func (q *commandQueue) wait() <-chan struct{} {
	return q.signal
}
