package ordernumber

import "sync/atomic"

// MemorySeed is the value a fresh MemoryCounter starts from; its first number is MemorySeed+1.
const MemorySeed int64 = 99999

// Sequence yields order numbers from process-local state.
type Sequence interface {
	Next() int64
}

// MemoryCounter is an in-process Sequence for tests and demos. It does not
// survive restarts and shares nothing with other instances, so it must never
// back purchase creation.
type MemoryCounter struct {
	n atomic.Int64
}

// NewMemoryCounter returns a counter seeded at MemorySeed.
func NewMemoryCounter() *MemoryCounter {
	c := &MemoryCounter{}
	c.n.Store(MemorySeed)
	return c
}

// Next increments and returns the counter.
func (c *MemoryCounter) Next() int64 {
	return c.n.Add(1)
}
