// Package run persists one spill's worth of sorted records as an opaque,
// codec-framed temp file and reads it back through a look-ahead cursor.
package run

import (
	"fmt"
	"io"

	"github.com/davidvella/spill/tempfile"
)

// Codec translates records to and from a run's byte stream. Implementations
// are supplied by the caller and own the on-disk framing; a run file is
// nothing more than the concatenation of successive Encode calls.
//
// Decode must return io.EOF itself, not a wrapped variant, at a clean end of
// data. An end of stream that cuts a record short must surface as any other
// error, never as io.EOF, so that truncated runs are detected instead of
// silently shortening the output.
//
// Clone must return a codec that can be used independently of the original,
// so that several runs can be read at the same time without shared decode
// state.
type Codec[T any] interface {
	SetOutput(w io.Writer)
	Encode(rec T) error
	SetInput(r io.Reader)
	Decode() (T, error)
	Clone() Codec[T]
}

// A Run is one spilled batch of records, already sorted and serialized into a
// single temp file.
type Run struct {
	Path string
}

// countingWriter tracks encoded bytes ahead of any compression layer.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// Write serializes records, which must already be sorted, into a freshly
// allocated temp file. Each slot is cleared immediately after it is encoded
// so large payloads become collectable while the spill is still in progress.
// Returns the new Run and the number of encoded bytes before compression.
//
// On failure the partially written file is left in place; deleting it is the
// collection's cleanup concern.
func Write[T any](storage *tempfile.Storage, codec Codec[T], records []T) (Run, int64, error) {
	f, err := storage.Create("spill")
	if err != nil {
		return Run{}, 0, err
	}
	path := f.Name()

	w := storage.WrapWriter(f)
	cw := &countingWriter{w: w}
	codec.SetOutput(cw)

	var zero T
	for i := range records {
		if err := codec.Encode(records[i]); err != nil {
			w.Close()
			f.Close()
			return Run{}, 0, fmt.Errorf("run: failed to write %s: %w", path, err)
		}
		records[i] = zero
	}

	if err := w.Close(); err != nil {
		f.Close()
		return Run{}, 0, fmt.Errorf("run: failed to flush %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return Run{}, 0, fmt.Errorf("run: failed to close %s: %w", path, err)
	}

	return Run{Path: path}, cw.n, nil
}
