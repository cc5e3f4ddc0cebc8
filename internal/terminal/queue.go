package terminal

import (
	"context"
	"io"
	"sync"
)

// lineQueue is the input FIFO between the reader goroutine and the session
// loop.
//
// The session loop is its only consumer. A handler waiting in ReadLine
// therefore receives the next line itself, and no command can be dispatched
// until it returns.
type lineQueue struct {
	mu     sync.Mutex
	lines  []string
	closed bool
	signal chan struct{} // buffered, size 1
}

func newLineQueue() *lineQueue {
	return &lineQueue{
		lines:  make([]string, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue appends a line. Returns false if the queue is closed.
func (q *lineQueue) Enqueue(line string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.lines = append(q.lines, line)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue pops the front line without blocking.
func (q *lineQueue) TryDequeue() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.lines) == 0 {
		return "", false
	}
	line := q.lines[0]
	if len(q.lines) == 1 {
		q.lines = q.lines[:0]
	} else {
		q.lines = q.lines[1:]
	}
	return line, true
}

// Next blocks until a line is available. It returns io.EOF once the queue is
// closed and drained.
func (q *lineQueue) Next(ctx context.Context) (string, error) {
	for {
		if line, ok := q.TryDequeue(); ok {
			return line, nil
		}

		q.mu.Lock()
		done := q.closed && len(q.lines) == 0
		q.mu.Unlock()
		if done {
			return "", io.EOF
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-q.signal:
		}
	}
}

// Len returns the number of pending lines.
func (q *lineQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.lines)
}

// Close stops accepting lines and wakes the consumer.
func (q *lineQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
