package merge_test

import (
	"bytes"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidvella/spill/merge"
	"github.com/davidvella/spill/recordio"
	"github.com/davidvella/spill/run"
	"github.com/davidvella/spill/tempfile"
)

func bytesLess(a, b []byte) bool { return bytes.Compare(a, b) < 0 }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newStorage(t *testing.T) *tempfile.Storage {
	t.Helper()
	return tempfile.New([]string{t.TempDir()}, tempfile.Options{})
}

// writeRun spills one pre-sorted record batch.
func writeRun(t *testing.T, storage *tempfile.Storage, records ...string) run.Run {
	t.Helper()

	recs := make([][]byte, len(records))
	for i, s := range records {
		recs[i] = []byte(s)
	}
	r, _, err := run.Write(storage, recordio.NewBytes(), recs)
	require.NoError(t, err)
	return r
}

func open(t *testing.T, storage *tempfile.Storage, runs ...run.Run) *merge.Iterator[[]byte] {
	t.Helper()

	it, err := merge.Open(merge.Config[[]byte]{
		Storage: storage,
		Runs:    runs,
		Codec:   recordio.NewBytes(),
		Less:    bytesLess,
		Logger:  quietLogger(),
	})
	require.NoError(t, err)
	return it
}

func drain(t *testing.T, it *merge.Iterator[[]byte]) []string {
	t.Helper()
	var out []string
	for it.HasNext() {
		rec, err := it.Next()
		require.NoError(t, err)
		out = append(out, string(rec))
	}
	return out
}

func TestMergeOrdersAcrossRuns(t *testing.T) {
	storage := newStorage(t)

	a := writeRun(t, storage, "c", "e")
	b := writeRun(t, storage, "a", "d")
	c := writeRun(t, storage, "b")

	it := open(t, storage, a, b, c)
	defer it.Close()

	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, drain(t, it))

	_, err := it.Next()
	assert.ErrorIs(t, err, merge.ErrExhausted)
}

// Comparator-equal records must come out in run-creation order, because each
// run's records precede any equal record spilled later.
func TestMergeTieBreakByOrdinal(t *testing.T) {
	storage := newStorage(t)

	// Equal keys, payload identifies the run.
	lessByFirstByte := func(a, b []byte) bool { return a[0] < b[0] }

	first := writeRun(t, storage, "k-run0-a", "k-run0-b")
	second := writeRun(t, storage, "k-run1-a")
	third := writeRun(t, storage, "k-run2-a")

	it, err := merge.Open(merge.Config[[]byte]{
		Storage: storage,
		Runs:    []run.Run{first, second, third},
		Codec:   recordio.NewBytes(),
		Less:    lessByFirstByte,
		Logger:  quietLogger(),
	})
	require.NoError(t, err)
	defer it.Close()

	assert.Equal(t,
		[]string{"k-run0-a", "k-run0-b", "k-run1-a", "k-run2-a"},
		drain(t, it))
}

func TestMergeExcludesExhaustedRuns(t *testing.T) {
	storage := newStorage(t)

	empty := writeRun(t, storage)
	full := writeRun(t, storage, "x", "y")

	it := open(t, storage, empty, full)
	defer it.Close()

	assert.Equal(t, []string{"x", "y"}, drain(t, it))
}

func TestMergeNoRuns(t *testing.T) {
	storage := newStorage(t)

	it := open(t, storage)
	assert.False(t, it.HasNext())
	require.NoError(t, it.Close())
}

func TestMergeSingleRun(t *testing.T) {
	storage := newStorage(t)
	r := writeRun(t, storage, "a", "b", "c")

	it := open(t, storage, r)
	defer it.Close()

	assert.Equal(t, []string{"a", "b", "c"}, drain(t, it))
}

func TestMergeCloseBeforeExhaustion(t *testing.T) {
	storage := newStorage(t)

	a := writeRun(t, storage, "a", "c")
	b := writeRun(t, storage, "b", "d")

	it := open(t, storage, a, b)

	rec, err := it.Next()
	require.NoError(t, err)
	assert.Equal(t, "a", string(rec))

	require.NoError(t, it.Close())
	require.NoError(t, it.Close(), "close must be idempotent")
	assert.False(t, it.HasNext())
}

func TestMergeOpenFailsOnMissingRun(t *testing.T) {
	storage := newStorage(t)

	ok := writeRun(t, storage, "a")
	missing := run.Run{Path: ok.Path + ".gone"}

	_, err := merge.Open(merge.Config[[]byte]{
		Storage: storage,
		Runs:    []run.Run{ok, missing},
		Codec:   recordio.NewBytes(),
		Less:    bytesLess,
		Logger:  quietLogger(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), missing.Path)
}
