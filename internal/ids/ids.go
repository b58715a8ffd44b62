// Package ids hands out the process-wide counters that window and viewport
// labels are derived from.
package ids

import (
	"sync"
	"sync/atomic"
)

// Allocator issues strictly increasing identifiers. Each category is
// independent and safe for concurrent use.
type Allocator interface {
	NextWindowID() uint32
	NextRecreationID() uint32
}

// Counter is the production Allocator. The zero value is ready to use and
// its first identifier in each category is 1.
type Counter struct {
	window     atomic.Uint32
	recreation atomic.Uint32
}

var _ Allocator = (*Counter)(nil)

// NewCounter returns a fresh Counter.
func NewCounter() *Counter {
	return &Counter{}
}

// NextWindowID returns the next window instance id.
func (c *Counter) NextWindowID() uint32 {
	return c.window.Add(1)
}

// NextRecreationID returns the next viewport recreation generation.
// Generations are global across windows.
func (c *Counter) NextRecreationID() uint32 {
	return c.recreation.Add(1)
}

// Sequence is a deterministic Allocator for tests. Values are drawn from the
// configured slices in order; once a slice is exhausted it continues counting
// up from the last value handed out.
type Sequence struct {
	mu          sync.Mutex
	windows     []uint32
	recreations []uint32
	lastWindow  uint32
	lastRecr    uint32
}

var _ Allocator = (*Sequence)(nil)

// NewSequence builds a Sequence that returns windows and then recreations in
// the given order.
func NewSequence(windows, recreations []uint32) *Sequence {
	return &Sequence{
		windows:     append([]uint32(nil), windows...),
		recreations: append([]uint32(nil), recreations...),
	}
}

// NextWindowID implements Allocator.
func (s *Sequence) NextWindowID() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastWindow = next(&s.windows, s.lastWindow)
	return s.lastWindow
}

// NextRecreationID implements Allocator.
func (s *Sequence) NextRecreationID() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRecr = next(&s.recreations, s.lastRecr)
	return s.lastRecr
}

func next(queue *[]uint32, last uint32) uint32 {
	if len(*queue) == 0 {
		return last + 1
	}
	v := (*queue)[0]
	*queue = (*queue)[1:]
	return v
}
