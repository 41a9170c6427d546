package production

import (
	"sync"
	"time"
)

const orderNumberLayout = "20060102150405.000"

// DefaultOrderPrefix is prepended to generated order numbers
const DefaultOrderPrefix = "P"

// OrderNumberGenerator issues production order numbers
type OrderNumberGenerator interface {
	Next(now time.Time) string
}

// TimeOrderNumberGenerator formats numbers as prefix + yyyyMMddHHmmssSSS.
// Within one process the numbers strictly increase: a request in the same
// millisecond as the previous one is pushed to the next millisecond.
// Collisions between processes are caught by the primary key.
type TimeOrderNumberGenerator struct {
	prefix string
	mu     sync.Mutex
	last   time.Time
}

// NewTimeOrderNumberGenerator creates a generator with the given prefix
func NewTimeOrderNumberGenerator(prefix string) *TimeOrderNumberGenerator {
	if prefix == "" {
		prefix = DefaultOrderPrefix
	}
	return &TimeOrderNumberGenerator{prefix: prefix}
}

// Next returns the next order number for now
func (g *TimeOrderNumberGenerator) Next(now time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	t := now.Truncate(time.Millisecond)
	if !t.After(g.last) {
		t = g.last.Add(time.Millisecond)
	}
	g.last = t

	s := t.Format(orderNumberLayout)
	// drop the '.' between seconds and milliseconds
	return g.prefix + s[:14] + s[15:]
}
