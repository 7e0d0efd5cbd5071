package admission

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/genrun/genrun/internal/logging"
	"github.com/genrun/genrun/internal/proc"
)

// Controller decides whether the calling process may run under a given
// coordination key. It is safe for use from a single goroutine per
// process; cross-process safety comes from the Store's lock.
type Controller struct {
	store         Store
	alive         func(pid int) bool
	log           *logging.Logger
	pid           int
	retryInterval time.Duration
	maxAttempts   int
}

// New creates a Controller backed by the given store. By default it
// records the current process ID, probes liveness with proc.Alive,
// retries every DefaultRetryInterval, and waits without bound.
func New(store Store, opts ...Option) *Controller {
	c := &Controller{
		store:         store,
		alive:         proc.Alive,
		log:           logging.NopLogger(),
		pid:           os.Getpid(),
		retryInterval: DefaultRetryInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithLogger sets the logger used for admission events.
func WithLogger(log *logging.Logger) Option {
	return func(c *Controller) {
		if log != nil {
			c.log = log
		}
	}
}

// TryAdmit makes a single admission attempt for key with the given
// instance limit. On success the calling process occupies exactly one
// slot. Returns ErrInvalidConfiguration for a limit outside
// 1..MaxCapacity, ErrNoSlotAvailable when every slot is held by a live
// process, or ErrCoordination when the table cannot be attached or
// locked.
func (c *Controller) TryAdmit(key string, maxInst int) error {
	if maxInst <= 0 || maxInst > MaxCapacity {
		return fmt.Errorf("%w: max instances must be between 1 and %d, got %d",
			ErrInvalidConfiguration, MaxCapacity, maxInst)
	}

	table, created, err := c.store.AttachOrCreate(key, MaxCapacity)
	if err != nil {
		return fmt.Errorf("%w: attach slot table for %q: %v", ErrCoordination, key, err)
	}
	if created {
		c.log.Debug("slot table created", "key", key)
	}

	err = table.WithLock(func(s *Slots) error {
		return c.occupy(key, maxInst, s)
	})
	if err == nil || errors.Is(err, ErrNoSlotAvailable) {
		return err
	}
	return fmt.Errorf("%w: lock slot table for %q: %v", ErrCoordination, key, err)
}

// occupy runs under the table lock. It appends the caller to a free
// slot when the count permits, otherwise it reclaims the first slot
// whose holder is dead. Reclamation overwrites in place and leaves the
// count unchanged.
func (c *Controller) occupy(key string, maxInst int, s *Slots) error {
	n := s.Count
	if n < 0 {
		n = 0
	}
	if n > len(s.PIDs) {
		// A writer with a larger idea of capacity got here first. Trust
		// the slots we can see, never index past them.
		n = len(s.PIDs)
	}

	if n < maxInst && n < len(s.PIDs) {
		s.PIDs[n] = c.pid
		s.Count = n + 1
		c.log.Info("slot occupied", "key", key, "slot", n+1, "pid", c.pid)
		return nil
	}

	for i := 0; i < n; i++ {
		if c.alive(s.PIDs[i]) {
			continue
		}
		stale := s.PIDs[i]
		s.PIDs[i] = c.pid
		c.log.Info("stale slot reclaimed", "key", key, "slot", i+1, "stale_pid", stale, "pid", c.pid)
		return nil
	}

	return fmt.Errorf("%w: %d slots held by live processes (limit %d)", ErrNoSlotAvailable, n, maxInst)
}

// Admit blocks until the calling process is admitted under key, the
// context is cancelled, or the configured attempt bound is exhausted.
// The table lock is never held while sleeping, so a process killed
// mid-wait cannot wedge the pool.
func (c *Controller) Admit(ctx context.Context, key string, maxInst int) error {
	for attempt := 1; ; attempt++ {
		err := c.TryAdmit(key, maxInst)
		if err == nil || !errors.Is(err, ErrNoSlotAvailable) {
			return err
		}
		if c.maxAttempts > 0 && attempt >= c.maxAttempts {
			return fmt.Errorf("gave up after %d attempts: %w", attempt, err)
		}

		c.log.Debug("pool full, waiting",
			"key", key,
			"attempt", attempt,
			"retry_interval", c.retryInterval.String(),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.retryInterval):
		}
	}
}
