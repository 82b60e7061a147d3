package spill

import "errors"

var ErrIteratorExhausted = errors.New("spill: iterator exhausted")

// Iterator yields records in comparator order. HasNext is cheap; Next fails
// only on storage or decode errors, or when called past exhaustion.
type Iterator[T any] interface {
	HasNext() bool
	Next() (T, error)
	Close() error
}

// memoryIterator serves the pure in-memory path, used only when no run was
// ever spilled. With destructive iteration the consumed prefix is shared
// collection state, so a second traversal observes an empty sequence.
type memoryIterator[T any] struct {
	c   *Collection[T]
	idx int
}

func newMemoryIterator[T any](c *Collection[T]) *memoryIterator[T] {
	sortStable(c.buf[c.head:c.n], c.less)
	return &memoryIterator[T]{c: c, idx: c.head}
}

func (m *memoryIterator[T]) HasNext() bool {
	if m.c.opts.destructiveIteration {
		return m.c.head < m.c.n
	}
	return m.idx < m.c.n
}

func (m *memoryIterator[T]) Next() (T, error) {
	var zero T
	if !m.HasNext() {
		return zero, ErrIteratorExhausted
	}

	if m.c.opts.destructiveIteration {
		rec := m.c.buf[m.c.head]
		m.c.buf[m.c.head] = zero
		m.c.head++
		return rec, nil
	}

	rec := m.c.buf[m.idx]
	m.idx++
	return rec, nil
}

func (m *memoryIterator[T]) Close() error {
	return nil
}
