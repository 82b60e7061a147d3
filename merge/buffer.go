package merge

import (
	"log/slog"
	"math"
	"runtime"
	"runtime/debug"

	"github.com/KimMachineGun/automemlimit/memlimit"
)

const (
	// defaultBufferSize is the per-run read buffer when memory is plentiful.
	defaultBufferSize = 128 * 1024

	// perRunOverhead approximates the fixed cost of keeping one run open
	// (file handle, decoder state) beyond its read buffer. Tunable, advisory.
	perRunOverhead = 20 * 1024
)

// negotiateBufferSize picks a per-run read buffer size given that every run
// stays open, and buffered, for the entire merge. When the estimated
// available memory cannot cover the default buffer for every run the size is
// shrunk, down to zero (unbuffered reads). The estimate is best effort and
// advisory only; it never affects correctness.
func negotiateBufferSize(numRuns int, log *slog.Logger) int {
	if numRuns == 0 {
		return defaultBufferSize
	}

	budget := memoryBudget()
	if budget <= 0 {
		// No usable limit information; keep the default.
		return defaultBufferSize
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	available := budget - int64(ms.HeapInuse) - int64(ms.StackInuse)

	free := available - int64(numRuns)*perRunOverhead
	perRun := free / int64(numRuns)

	switch {
	case perRun <= 0:
		log.Warn("not enough memory to buffer run reads, reading unbuffered",
			"runs", numRuns, "budget", budget)
		return 0
	case perRun < defaultBufferSize:
		log.Warn("shrinking per-run read buffer below default",
			"runs", numRuns, "bufferSize", perRun)
		return int(perRun)
	default:
		return defaultBufferSize
	}
}

// memoryBudget estimates total memory available to the process: GOMEMLIMIT
// when set, otherwise the cgroup limit, otherwise system memory. Zero means
// unknown.
func memoryBudget() int64 {
	if limit := debug.SetMemoryLimit(-1); limit > 0 && limit < math.MaxInt64 {
		return limit
	}
	if limit, err := memlimit.FromCgroup(); err == nil && limit > 0 {
		return int64(limit)
	}
	if limit, err := memlimit.FromSystem(); err == nil && limit > 0 {
		return int64(limit)
	}
	return 0
}
