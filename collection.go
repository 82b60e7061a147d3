package spill

import (
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/davidvella/spill/merge"
	"github.com/davidvella/spill/run"
	"github.com/davidvella/spill/tempfile"
)

var (
	ErrInvalidMaxRecords = errors.New("spill: maxRecordsInMemory must be greater than 0")
	ErrNoTempDirectories = errors.New("spill: at least one temp directory must be provided")
	ErrAddAfterFinalize  = errors.New("spill: cannot add after finalize")
	ErrCleanedUp         = errors.New("spill: collection already cleaned up")
)

// Codec is the caller-supplied record serializer. See run.Codec for the full
// contract, in particular the required io.EOF discipline on Decode and the
// independence requirement on Clone.
type Codec[T any] = run.Codec[T]

// Less reports whether a orders before b. It must implement a strict weak
// ordering and stay consistent for the lifetime of the Collection.
type Less[T any] func(a, b T) bool

type phase int

const (
	phaseAccepting phase = iota
	phaseFinalized
	phaseIterating
	phaseCleanedUp
)

// Collection accumulates records and hands them back in sorted order,
// spilling sorted runs to temp files whenever the in-memory quota is
// exceeded. A Collection is single-caller; only the optional async spill
// worker runs concurrently with the caller.
type Collection[T any] struct {
	less    Less[T]
	codec   Codec[T]
	opts    options
	storage *tempfile.Storage
	log     *slog.Logger

	buf  []T
	n    int
	head int

	runsMu sync.Mutex
	runs   []run.Run

	phase phase
	async *asyncSpiller[T]
}

// New prepares a Collection with the given ordering and codec prototype.
func New[T any](less Less[T], codec Codec[T], opts ...Option) (*Collection[T], error) {
	if less == nil {
		return nil, errors.New("spill: an ordering is required")
	}
	if codec == nil {
		return nil, errors.New("spill: a codec is required")
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if o.maxRecordsInMemory <= 0 {
		return nil, ErrInvalidMaxRecords
	}
	if len(o.tempDirectories) == 0 {
		return nil, ErrNoTempDirectories
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	c := &Collection[T]{
		less:  less,
		codec: codec,
		opts:  o,
		storage: tempfile.New(o.tempDirectories, tempfile.Options{
			MinFreeSpace: o.minFreeSpace,
			Compress:     o.compress,
		}),
		log: o.logger,
		buf: make([]T, o.maxRecordsInMemory),
	}
	if o.asyncSpill {
		c.async = &asyncSpiller[T]{}
	}
	return c, nil
}

// Add accepts one record. If the buffer is at quota the buffered records are
// sorted and spilled to a new run first; a spill failure aborts the Add and
// the record is not accepted.
func (c *Collection[T]) Add(rec T) error {
	if c.phase != phaseAccepting {
		if c.phase == phaseCleanedUp {
			return ErrCleanedUp
		}
		return ErrAddAfterFinalize
	}

	if c.n == len(c.buf) {
		if err := c.spill(); err != nil {
			return err
		}
	}

	c.buf[c.n] = rec
	c.n++
	return nil
}

// Finalize transitions the collection out of the accepting phase. It is
// idempotent. If at least one run was spilled, any buffered remainder is
// spilled as one final run so that iteration is purely merge based; with no
// runs the buffer is kept for the in-memory path.
func (c *Collection[T]) Finalize() error {
	switch c.phase {
	case phaseCleanedUp:
		return ErrCleanedUp
	case phaseAccepting:
	default:
		return nil
	}

	if c.async != nil {
		if err := c.async.flush(); err != nil {
			return err
		}
	}
	c.phase = phaseFinalized

	if len(c.runs) == 0 {
		return nil
	}
	if c.n > 0 {
		return c.spillSync()
	}
	return nil
}

// Iterator finalizes the collection if necessary and returns an iterator
// over all records in order. It may be called multiple times; each call
// returns an independent iterator, though a destructive in-memory traversal
// leaves later iterators with nothing to yield.
func (c *Collection[T]) Iterator() (Iterator[T], error) {
	if c.phase == phaseCleanedUp {
		return nil, ErrCleanedUp
	}
	if err := c.Finalize(); err != nil {
		return nil, err
	}
	c.phase = phaseIterating

	if len(c.runs) == 0 {
		return newMemoryIterator(c), nil
	}
	return merge.Open(merge.Config[T]{
		Storage: c.storage,
		Runs:    c.runs,
		Codec:   c.codec,
		Less:    c.less,
		Logger:  c.log,
	})
}

// Cleanup deletes every run's backing file. It is irreversible; the
// collection cannot be iterated afterwards.
func (c *Collection[T]) Cleanup() error {
	if c.phase == phaseCleanedUp {
		return nil
	}
	if c.async != nil {
		// A failed background spill no longer matters; the runs are going away.
		_ = c.async.flush()
	}
	c.phase = phaseCleanedUp

	c.runsMu.Lock()
	paths := make([]string, len(c.runs))
	for i, r := range c.runs {
		paths[i] = r.Path
	}
	c.runs = nil
	c.runsMu.Unlock()

	return tempfile.DeleteAll(paths)
}

func (c *Collection[T]) spill() error {
	if c.async != nil {
		return c.async.spill(c)
	}
	return c.spillSync()
}

// spillSync sorts the buffer's occupied prefix in place and writes it out as
// a new run on the caller's goroutine.
func (c *Collection[T]) spillSync() error {
	sortStable(c.buf[:c.n], c.less)
	r, size, err := run.Write(c.storage, c.codec, c.buf[:c.n])
	if err != nil {
		return err
	}
	c.registerRun(r, size, c.n)
	c.n = 0
	return nil
}

// registerRun appends r to the run registry. Registry order is creation
// order and becomes the merge's ordinal order.
func (c *Collection[T]) registerRun(r run.Run, size int64, records int) {
	c.runsMu.Lock()
	c.runs = append(c.runs, r)
	ordinal := len(c.runs) - 1
	c.runsMu.Unlock()

	if c.opts.sampleRecordSize && records > 0 {
		c.log.Debug("spilled run",
			"ordinal", ordinal, "records", records,
			"bytes", size, "bytesPerRecord", size/int64(records))
	} else {
		c.log.Debug("spilled run", "ordinal", ordinal, "records", records)
	}
}

// sortStable keeps arrival order for records that compare equal; the merge's
// tie-breaking depends on it.
func sortStable[T any](recs []T, less Less[T]) {
	sort.SliceStable(recs, func(i, j int) bool {
		return less(recs[i], recs[j])
	})
}
