// Package counter provides the message-count statistics (msgsSent,
// msgsReceived) a neighbor session exposes for show-neighbor output.
// The reader and writer goroutines increment independently of the
// goroutine that reads the value for a status command, so the counter
// must be safe for concurrent use without the caller taking a lock.
package counter

import (
	"fmt"
	"sync/atomic"
)

// Counter is a monotonically increasing 64-bit count.
type Counter struct {
	count uint64
}

// New returns a zeroed Counter.
func New() *Counter {
	return new(Counter)
}

// Reset zeroes the counter.
func (c *Counter) Reset() {
	atomic.StoreUint64(&c.count, 0)
}

// Increment adds one.
func (c *Counter) Increment() {
	atomic.AddUint64(&c.count, 1)
}

// Value returns the current count.
func (c *Counter) Value() uint64 {
	return atomic.LoadUint64(&c.count)
}

func (c *Counter) String() string {
	return fmt.Sprintf("%d", c.Value())
}
