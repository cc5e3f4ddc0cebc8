package testutil

import "sync"

// SequenceRand returns a fixed sequence of values from IntN, cycling when
// exhausted. Values are reduced modulo n.
type SequenceRand struct {
	mu     sync.Mutex
	values []int
	next   int
}

// NewSequenceRand creates a generator. With no values it always returns 0.
func NewSequenceRand(values ...int) *SequenceRand {
	return &SequenceRand{values: values}
}

// IntN returns the next value in [0, n).
func (r *SequenceRand) IntN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.values) == 0 || n <= 0 {
		return 0
	}
	v := r.values[r.next%len(r.values)]
	r.next++
	if v < 0 {
		v = -v
	}
	return v % n
}
