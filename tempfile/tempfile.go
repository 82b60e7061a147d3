// Package tempfile allocates and tracks the temporary files that sorted runs
// are spilled into. A Storage picks the first candidate directory with enough
// free space, hands out uniquely named files, and can layer buffering and
// zstd compression over their byte streams. Every file created through this
// package is registered so Sweep can remove leftovers after an abnormal
// shutdown.
package tempfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
)

var ErrNoSpace = errors.New("tempfile: no candidate directory has enough free space")

const defaultBufferSize = 128 * 1024

// Options configures a Storage.
type Options struct {
	// MinFreeSpace is the minimum number of free bytes a candidate directory's
	// filesystem must have before a file is placed there. Zero disables the
	// check and the first directory is always used.
	MinFreeSpace uint64

	// Compress wraps file streams with zstd.
	Compress bool

	// BufferSize is the write-side buffer size in bytes.
	BufferSize int
}

// Storage allocates temp files across a set of candidate directories.
type Storage struct {
	dirs []string
	opts Options
}

func New(dirs []string, opts Options) *Storage {
	if opts.BufferSize == 0 {
		opts.BufferSize = defaultBufferSize
	}
	return &Storage{dirs: dirs, opts: opts}
}

// Create allocates a uniquely named file in the first candidate directory
// that passes the free-space check and registers it for Sweep.
func (s *Storage) Create(prefix string) (*os.File, error) {
	dir, err := s.pickDir()
	if err != nil {
		return nil, err
	}

	path := filepath.Join(dir, fmt.Sprintf("%s-%s.tmp", prefix, uuid.NewString()))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("tempfile: failed to create %s: %w", path, err)
	}

	register(path)
	return f, nil
}

func (s *Storage) pickDir() (string, error) {
	if s.opts.MinFreeSpace == 0 {
		return s.dirs[0], nil
	}
	for _, dir := range s.dirs {
		if freeSpace(dir) >= s.opts.MinFreeSpace {
			return dir, nil
		}
	}
	return "", fmt.Errorf("%w: need %d bytes in one of %v", ErrNoSpace, s.opts.MinFreeSpace, s.dirs)
}

// WrapWriter layers buffering, and compression when enabled, over w. Closing
// the returned writer flushes the layers without closing w itself.
func (s *Storage) WrapWriter(w io.Writer) io.WriteCloser {
	bw := bufio.NewWriterSize(w, s.opts.BufferSize)
	if !s.opts.Compress {
		return flushCloser{bw}
	}
	// The default options never fail.
	zw, _ := zstd.NewWriter(bw)
	return &compressedWriter{zw: zw, bw: bw}
}

// WrapReader layers buffering, and decompression when enabled, over r.
// A bufferSize of zero leaves the stream unbuffered.
func (s *Storage) WrapReader(r io.Reader, bufferSize int) (io.ReadCloser, error) {
	if bufferSize > 0 {
		r = bufio.NewReaderSize(r, bufferSize)
	}
	if !s.opts.Compress {
		return io.NopCloser(r), nil
	}
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("tempfile: failed to open compressed stream: %w", err)
	}
	return zr.IOReadCloser(), nil
}

type flushCloser struct {
	*bufio.Writer
}

func (f flushCloser) Close() error {
	return f.Flush()
}

type compressedWriter struct {
	zw *zstd.Encoder
	bw *bufio.Writer
}

func (w *compressedWriter) Write(p []byte) (int, error) {
	return w.zw.Write(p)
}

func (w *compressedWriter) Close() error {
	if err := w.zw.Close(); err != nil {
		return err
	}
	return w.bw.Flush()
}

// DeleteAll removes every given path and unregisters it from the sweep set.
// Files that are already gone are not an error; all other failures are
// collected and returned together.
func DeleteAll(paths []string) error {
	var errs []error
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("tempfile: failed to delete %s: %w", path, err))
		}
		unregister(path)
	}
	return errors.Join(errs...)
}

var (
	sweepMu  sync.Mutex
	sweepSet = make(map[string]struct{})
)

func register(path string) {
	sweepMu.Lock()
	defer sweepMu.Unlock()
	sweepSet[path] = struct{}{}
}

func unregister(path string) {
	sweepMu.Lock()
	defer sweepMu.Unlock()
	delete(sweepSet, path)
}

// Sweep removes every file created through this package that has not been
// deleted yet. It is intended as a best-effort, process-exit cleanup for
// collections that were never cleaned up explicitly.
func Sweep() error {
	sweepMu.Lock()
	paths := make([]string, 0, len(sweepSet))
	for path := range sweepSet {
		paths = append(paths, path)
	}
	sweepMu.Unlock()

	return DeleteAll(paths)
}
