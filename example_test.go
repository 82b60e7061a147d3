package spill_test

import (
	"bytes"
	"fmt"
	"os"

	"github.com/davidvella/spill"
	"github.com/davidvella/spill/recordio"
)

// ExampleCollection sorts more records than the in-memory quota allows,
// forcing sorted runs onto disk that are merged back at iteration time.
func ExampleCollection() {
	tmpDir, err := os.MkdirTemp("", "spill-*")
	if err != nil {
		fmt.Printf("Failed to create temp dir: %v\n", err)
		return
	}
	defer os.RemoveAll(tmpDir)

	c, err := spill.New[[]byte](
		func(a, b []byte) bool { return bytes.Compare(a, b) < 0 },
		recordio.NewBytes(),
		spill.WithMaxRecordsInMemory(2),
		spill.WithTempDirectories(tmpDir),
	)
	if err != nil {
		fmt.Printf("Failed to create collection: %v\n", err)
		return
	}

	for _, rec := range []string{"walrus", "gopher", "badger", "lemur", "otter"} {
		if err := c.Add([]byte(rec)); err != nil {
			fmt.Printf("Failed to add record: %v\n", err)
			return
		}
	}

	it, err := c.Iterator()
	if err != nil {
		fmt.Printf("Failed to open iterator: %v\n", err)
		return
	}
	for it.HasNext() {
		rec, err := it.Next()
		if err != nil {
			fmt.Printf("Failed to read record: %v\n", err)
			return
		}
		fmt.Println(string(rec))
	}

	if err := it.Close(); err != nil {
		fmt.Printf("Failed to close iterator: %v\n", err)
		return
	}
	if err := c.Cleanup(); err != nil {
		fmt.Printf("Failed to clean up: %v\n", err)
		return
	}

	// Output:
	// badger
	// gopher
	// lemur
	// otter
	// walrus
}
