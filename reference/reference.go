// Package reference generates payment-group and payment references in the
// "YYYY-<sequence>" shape used by downstream finance systems.
//
// The generator is safe for concurrent use: a mutex guards a strictly
// increasing tick so two goroutines can never mint the same reference.
package reference

import (
	"fmt"
	"sync"
	"time"
)

// Generator mints sequential references. The zero value is not usable; call
// NewGenerator.
type Generator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewGenerator returns a ready-to-use Generator.
func NewGenerator() *Generator {
	return &Generator{now: time.Now}
}

// Next returns a new reference of the form "YYYY-<tick>", where tick is a
// strictly increasing nanosecond timestamp. Monotonicity is enforced under
// the lock, so references are unique even when the clock does not advance
// between calls.
func (g *Generator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	t := g.now().UTC()
	tick := t.UnixNano()
	if tick <= g.last {
		tick = g.last + 1
	}
	g.last = tick

	return fmt.Sprintf("%d-%d", t.Year(), tick)
}
