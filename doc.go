// Package spill implements a bounded-memory external sort: records are added
// one at a time to an in-memory buffer, sorted batches are spilled to
// temporary runs on disk once the buffer's record quota is exceeded, and a
// single ordered sequence over everything is produced by a k-way merge.
//
// It is the sorting primitive used for record streams, such as aligned reads,
// that do not fit in memory. Callers supply the ordering and a codec for
// their record type:
//
//	c, err := spill.New[[]byte](
//		func(a, b []byte) bool { return bytes.Compare(a, b) < 0 },
//		recordio.NewBytes(),
//		spill.WithMaxRecordsInMemory(500000),
//		spill.WithTempDirectories(os.TempDir()),
//	)
//	if err != nil { ... }
//	for _, rec := range input {
//		if err := c.Add(rec); err != nil { ... }
//	}
//	it, err := c.Iterator()
//	if err != nil { ... }
//	for it.HasNext() {
//		rec, err := it.Next()
//		...
//	}
//	_ = it.Close()
//	_ = c.Cleanup()
//
// Ties between records that compare equal are resolved by insertion order:
// the in-buffer sort is stable and the merge breaks ties by run creation
// order, so the output is always equivalent to a stable sort over the full
// insertion sequence regardless of how many spills occurred.
//
// A Collection moves strictly through the phases accepting, finalized,
// iterating, and cleaned up. Adding after finalization, or iterating after
// cleanup, is caller misuse and fails immediately.
package spill
