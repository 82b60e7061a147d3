package spill

import (
	"log/slog"
	"os"
)

// DefaultMaxRecordsInMemory is the record quota used when none is configured.
const DefaultMaxRecordsInMemory = 500000

// options defines all configuration options for a Collection.
type options struct {
	maxRecordsInMemory   int
	tempDirectories      []string
	destructiveIteration bool
	sampleRecordSize     bool
	asyncSpill           bool
	compress             bool
	minFreeSpace         uint64
	logger               *slog.Logger
}

// Option is a function that configures a Collection.
type Option func(*options)

// WithMaxRecordsInMemory sets how many records accumulate in memory before a
// sorted run is spilled to disk. Must be greater than zero.
func WithMaxRecordsInMemory(n int) Option {
	return func(o *options) {
		o.maxRecordsInMemory = n
	}
}

// WithTempDirectories sets the candidate directories that sorted runs are
// written to.
func WithTempDirectories(dirs ...string) Option {
	return func(o *options) {
		o.tempDirectories = dirs
	}
}

// WithDestructiveIteration controls whether an in-memory iteration may
// discard records as it hands them out, trading repeatability for a lower
// peak footprint. Enabled by default; iteration over spilled runs is always
// single-pass regardless.
func WithDestructiveIteration(enabled bool) Option {
	return func(o *options) {
		o.destructiveIteration = enabled
	}
}

// WithSampleRecordSize logs the average encoded record size of each spilled
// run at debug level. Diagnostic only.
func WithSampleRecordSize(enabled bool) Option {
	return func(o *options) {
		o.sampleRecordSize = enabled
	}
}

// WithAsyncSpill moves run encoding onto a background goroutine so the caller
// can keep adding records into a fresh buffer while the previous buffer is
// written out. At most one run is mid-write at a time; Add blocks when a new
// spill is triggered before the previous one has registered its run.
func WithAsyncSpill() Option {
	return func(o *options) {
		o.asyncSpill = true
	}
}

// WithCompression compresses run files with zstd.
func WithCompression() Option {
	return func(o *options) {
		o.compress = true
	}
}

// WithMinFreeSpace sets the minimum free bytes a temp directory's filesystem
// must have before runs are placed there. Zero disables the check.
func WithMinFreeSpace(bytes uint64) Option {
	return func(o *options) {
		o.minFreeSpace = bytes
	}
}

// WithLogger sets the logger used for spill and merge diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// defaultOptions returns the default configuration.
func defaultOptions() options {
	return options{
		maxRecordsInMemory:   DefaultMaxRecordsInMemory,
		tempDirectories:      []string{os.TempDir()},
		destructiveIteration: true,
	}
}
