package spill

import (
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/davidvella/spill/run"
)

// asyncSpiller sorts and encodes runs on a single background goroutine while
// the caller keeps filling a fresh buffer. The errgroup limit of one is the
// single-slot handoff: a spill requested before the previous run has been
// registered blocks in Go, which is the backpressure Add relies on.
type asyncSpiller[T any] struct {
	group errgroup.Group
	once  sync.Once

	mu  sync.Mutex
	err error
}

func (a *asyncSpiller[T]) spill(c *Collection[T]) error {
	a.once.Do(func() {
		a.group.SetLimit(1)
	})
	if err := a.firstErr(); err != nil {
		return err
	}

	full := c.buf[:c.n:c.n]
	c.buf = make([]T, len(c.buf))
	c.n = 0
	// The background writer needs encode state of its own; the prototype
	// stays with the foreground for the final synchronous spill.
	codec := c.codec.Clone()
	less := c.less

	a.group.Go(func() error {
		sortStable(full, less)
		r, size, err := run.Write(c.storage, codec, full)
		if err != nil {
			a.setErr(err)
			return err
		}
		c.registerRun(r, size, len(full))
		return nil
	})

	// A spill that failed while Go was blocking on it surfaces here rather
	// than on some later call.
	return a.firstErr()
}

// flush waits for the in-flight spill, if any, and reports the first
// background failure.
func (a *asyncSpiller[T]) flush() error {
	if err := a.group.Wait(); err != nil {
		return err
	}
	return a.firstErr()
}

func (a *asyncSpiller[T]) setErr(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err == nil {
		a.err = err
	}
}

func (a *asyncSpiller[T]) firstErr() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}
