package admission

import (
	"errors"
	"time"
)

// MaxCapacity is the hard ceiling on slots in any table. A caller may
// request a smaller limit per invocation, but never a larger one.
const MaxCapacity = 10

// DefaultRetryInterval is how long Admit sleeps between attempts when
// the pool is full.
const DefaultRetryInterval = 10 * time.Second

// Sentinel errors returned by admission operations.
var (
	// ErrInvalidConfiguration is returned when the requested maximum is
	// outside 1..MaxCapacity. Non-retriable; the shared table is never
	// touched.
	ErrInvalidConfiguration = errors.New("invalid instance limit")

	// ErrNoSlotAvailable is returned when every slot is held by a live
	// process. Retriable: Admit waits and tries again.
	ErrNoSlotAvailable = errors.New("no admission slot available")

	// ErrCoordination is returned when the shared table cannot be
	// attached or its lock cannot be acquired.
	ErrCoordination = errors.New("coordination primitive failure")
)

// Slots is the locked view of one shared slot table. PIDs has one entry
// per slot; entries at index < Count are occupied, the rest are free.
// A Slots value is only ever handed out inside Table.WithLock.
type Slots struct {
	Count int
	PIDs  []int
}

// Table is one shared slot table. WithLock runs fn with exclusive
// cross-process access to the table; mutations made by fn are visible
// to every process attached to the same table once fn returns nil.
type Table interface {
	WithLock(fn func(*Slots) error) error
}

// Store provides attach-or-create access to shared slot tables, one per
// coordination key. The second return value reports whether this call
// created the table.
type Store interface {
	AttachOrCreate(key string, capacity int) (Table, bool, error)
}

// Option configures a Controller.
type Option func(*Controller)

// WithRetryInterval sets the sleep between Admit attempts.
func WithRetryInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.retryInterval = d
		}
	}
}

// WithMaxAttempts bounds the number of Admit attempts. Zero keeps the
// default unbounded wait.
func WithMaxAttempts(n int) Option {
	return func(c *Controller) {
		if n >= 0 {
			c.maxAttempts = n
		}
	}
}

// WithLiveness replaces the process liveness probe. Tests use this to
// substitute a fake registry of live PIDs.
func WithLiveness(alive func(pid int) bool) Option {
	return func(c *Controller) {
		if alive != nil {
			c.alive = alive
		}
	}
}

// WithPID overrides the identity recorded in occupied slots. Defaults
// to the current process.
func WithPID(pid int) Option {
	return func(c *Controller) {
		c.pid = pid
	}
}
