// Package merge turns a set of sorted runs back into one ordered record
// stream. Active cursors are held in a B-tree ranked by (look-ahead record,
// run ordinal); because each run was stably sorted and ordinals follow run
// creation order, the merged output is equivalent to a stable sort over the
// whole original insertion sequence.
package merge

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/btree"

	"github.com/davidvella/spill/run"
	"github.com/davidvella/spill/tempfile"
)

var ErrExhausted = errors.New("merge: iterator exhausted")

// Config describes one merge pass.
type Config[T any] struct {
	Storage *tempfile.Storage
	Runs    []run.Run
	// Codec is the prototype each cursor clones for isolated decode state.
	Codec run.Codec[T]
	Less  func(a, b T) bool
	// Logger receives advisory diagnostics. Defaults to slog.Default.
	Logger *slog.Logger
}

type entry[T any] struct {
	cursor  *run.Cursor[T]
	ordinal int
}

// Iterator is a k-way merge over run cursors.
type Iterator[T any] struct {
	tree   *btree.BTreeG[entry[T]]
	log    *slog.Logger
	closed bool
}

// Open opens one cursor per run in creation order, assigning ordinals in that
// same order. Runs that are already exhausted are closed and excluded. Every
// remaining run stays open for the whole merge, so the per-run read buffer is
// negotiated against available memory before any file is opened.
func Open[T any](cfg Config[T]) (*Iterator[T], error) {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	bufferSize := negotiateBufferSize(len(cfg.Runs), log)
	log.Debug("opening merge", "runs", len(cfg.Runs), "bufferSize", bufferSize)

	byRank := func(a, b entry[T]) bool {
		if cfg.Less(a.cursor.Peek(), b.cursor.Peek()) {
			return true
		}
		if cfg.Less(b.cursor.Peek(), a.cursor.Peek()) {
			return false
		}
		return a.ordinal < b.ordinal
	}

	tree := btree.NewG[entry[T]](2, byRank)
	ordinal := 0
	for _, r := range cfg.Runs {
		cur, err := run.OpenCursor(cfg.Storage, r, cfg.Codec, bufferSize)
		if err != nil {
			closeAll(tree)
			return nil, err
		}
		if !cur.HasNext() {
			if cerr := cur.Close(); cerr != nil {
				closeAll(tree)
				return nil, cerr
			}
			continue
		}
		tree.ReplaceOrInsert(entry[T]{cursor: cur, ordinal: ordinal})
		ordinal++
	}

	return &Iterator[T]{tree: tree, log: log}, nil
}

// HasNext reports whether any cursor still holds a look-ahead record.
func (m *Iterator[T]) HasNext() bool {
	return m.tree.Len() > 0
}

// Next removes the minimum-ranked cursor, consumes its look-ahead, and
// reinserts the cursor if it still has data; otherwise the cursor is closed
// and dropped.
func (m *Iterator[T]) Next() (T, error) {
	var zero T
	e, ok := m.tree.DeleteMin()
	if !ok {
		return zero, ErrExhausted
	}

	rec, err := e.cursor.Next()
	if err != nil {
		return zero, fmt.Errorf("merge: %w", err)
	}

	if e.cursor.HasNext() {
		m.tree.ReplaceOrInsert(e)
	} else if cerr := e.cursor.Close(); cerr != nil {
		m.log.Warn("failed to close exhausted run cursor", "error", cerr)
	}

	return rec, nil
}

// Close drains and closes every remaining cursor. Safe to call after natural
// exhaustion, and more than once.
func (m *Iterator[T]) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	return closeAll(m.tree)
}

func closeAll[T any](tree *btree.BTreeG[entry[T]]) error {
	var errs []error
	for {
		e, ok := tree.DeleteMin()
		if !ok {
			break
		}
		if err := e.cursor.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
