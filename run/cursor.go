package run

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/davidvella/spill/tempfile"
)

var (
	ErrCorrupt         = errors.New("run: record decode failed mid-stream")
	ErrCursorExhausted = errors.New("run: cursor exhausted")
)

// Cursor reads a Run's records back in order, holding one already-decoded
// look-ahead record so callers can compare it before consuming it. Each
// cursor owns an independent clone of the codec prototype it was opened with.
type Cursor[T any] struct {
	run     Run
	file    *os.File
	reader  io.ReadCloser
	codec   Codec[T]
	current T
	valid   bool
	closed  bool
}

// OpenCursor opens r's backing file, clones prototype for isolated decode
// state, and primes the look-ahead. A bufferSize of zero reads unbuffered.
func OpenCursor[T any](storage *tempfile.Storage, r Run, prototype Codec[T], bufferSize int) (*Cursor[T], error) {
	f, err := os.Open(r.Path)
	if err != nil {
		return nil, fmt.Errorf("run: failed to open %s: %w", r.Path, err)
	}

	rd, err := storage.WrapReader(f, bufferSize)
	if err != nil {
		f.Close()
		return nil, err
	}

	c := &Cursor[T]{
		run:    r,
		file:   f,
		reader: rd,
		codec:  prototype.Clone(),
	}
	c.codec.SetInput(rd)

	if err := c.advance(); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Cursor[T]) advance() error {
	rec, err := c.codec.Decode()
	if err == io.EOF {
		var zero T
		c.current, c.valid = zero, false
		return nil
	}
	if err != nil {
		var zero T
		c.current, c.valid = zero, false
		return fmt.Errorf("%w: %s: %w", ErrCorrupt, c.run.Path, err)
	}
	c.current, c.valid = rec, true
	return nil
}

// HasNext reports whether a look-ahead record is present.
func (c *Cursor[T]) HasNext() bool {
	return c.valid
}

// Peek returns the look-ahead record without consuming it. Only meaningful
// while HasNext reports true.
func (c *Cursor[T]) Peek() T {
	return c.current
}

// Next returns the look-ahead record and eagerly decodes the one after it.
func (c *Cursor[T]) Next() (T, error) {
	var zero T
	if !c.valid {
		return zero, ErrCursorExhausted
	}
	rec := c.current
	if err := c.advance(); err != nil {
		return zero, err
	}
	return rec, nil
}

// Close releases the cursor's input resources. Safe to call more than once.
func (c *Cursor[T]) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.valid = false

	err := c.reader.Close()
	if cerr := c.file.Close(); err == nil {
		err = cerr
	}
	return err
}
