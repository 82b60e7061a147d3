package align_test

import (
	"bytes"
	"fmt"
	"io"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidvella/spill"
	"github.com/davidvella/spill/align"
)

func TestCoordinateLess(t *testing.T) {
	mapped := func(ref, pos int32) align.Record {
		return align.Record{Ref: ref, Pos: pos}
	}
	unmapped := align.Record{Ref: -1, Pos: -1}

	tests := []struct {
		name string
		a, b align.Record
		want bool
	}{
		{name: "lower reference first", a: mapped(0, 500), b: mapped(1, 100), want: true},
		{name: "higher reference last", a: mapped(2, 100), b: mapped(1, 500), want: false},
		{name: "same reference by position", a: mapped(1, 100), b: mapped(1, 200), want: true},
		{name: "equal coordinates", a: mapped(1, 100), b: mapped(1, 100), want: false},
		{name: "mapped before unmapped", a: mapped(5, 100), b: unmapped, want: true},
		{name: "unmapped after mapped", a: unmapped, b: mapped(0, 0), want: false},
		{name: "unmapped ties", a: unmapped, b: unmapped, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, align.CoordinateLess(tt.a, tt.b))
		})
	}
}

func TestQueryNameLess(t *testing.T) {
	a := align.Record{Name: "read-001"}
	b := align.Record{Name: "read-002"}

	assert.True(t, align.QueryNameLess(a, b))
	assert.False(t, align.QueryNameLess(b, a))
	assert.False(t, align.QueryNameLess(a, a))
}

func TestUnmapped(t *testing.T) {
	assert.True(t, align.Record{Ref: -1}.Unmapped())
	assert.False(t, align.Record{Ref: 0}.Unmapped())
}

func TestCodecRoundTrip(t *testing.T) {
	records := []align.Record{
		{
			Name:     "read-1",
			Ref:      3,
			Pos:      1_000_000,
			Flag:     0x63,
			MapQ:     60,
			Sequence: []byte("ACGTACGT"),
			Quality:  []byte("IIIIHHHH"),
		},
		{Name: "read-2", Ref: -1, Pos: -1, Flag: 0x4, Sequence: []byte("TTTT"), Quality: []byte("!!!!")},
		{Name: "", Ref: 0, Pos: 0, Sequence: []byte{}, Quality: []byte{}},
	}

	var buf bytes.Buffer
	enc := align.NewCodec()
	enc.SetOutput(&buf)
	for _, rec := range records {
		require.NoError(t, enc.Encode(rec))
	}

	dec := align.NewCodec()
	dec.SetInput(&buf)
	for _, want := range records {
		got, err := dec.Decode()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := dec.Decode()
	assert.Equal(t, io.EOF, err)
}

func TestCodecTruncated(t *testing.T) {
	var buf bytes.Buffer
	enc := align.NewCodec()
	enc.SetOutput(&buf)
	require.NoError(t, enc.Encode(align.Record{
		Name:     "read-1",
		Sequence: []byte("ACGT"),
		Quality:  []byte("IIII"),
	}))

	dec := align.NewCodec()
	dec.SetInput(bytes.NewReader(buf.Bytes()[:buf.Len()-3]))

	_, err := dec.Decode()
	require.Error(t, err)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

// Sorting a shuffled stream of reads through a spilling collection must come
// out in coordinate order with unmapped reads trailing.
func TestSortReadsByCoordinate(t *testing.T) {
	const numReads = 2000

	records := make([]align.Record, 0, numReads)
	for i := 0; i < numReads; i++ {
		rec := align.Record{
			Name:     fmt.Sprintf("read-%04d", i),
			Ref:      int32(i % 4),
			Pos:      int32(i),
			MapQ:     30,
			Sequence: []byte("ACGTACGTACGT"),
			Quality:  []byte("IIIIIIIIIIII"),
		}
		if i%97 == 0 {
			rec.Ref, rec.Pos = -1, -1
		}
		records = append(records, rec)
	}

	rng := rand.New(rand.NewSource(7))
	rng.Shuffle(len(records), func(i, j int) {
		records[i], records[j] = records[j], records[i]
	})

	col, err := spill.New[align.Record](align.CoordinateLess, align.NewCodec(),
		spill.WithMaxRecordsInMemory(128),
		spill.WithTempDirectories(t.TempDir()),
	)
	require.NoError(t, err)
	defer col.Cleanup()

	for _, rec := range records {
		require.NoError(t, col.Add(rec))
	}

	it, err := col.Iterator()
	require.NoError(t, err)
	defer it.Close()

	var got []align.Record
	for it.HasNext() {
		rec, err := it.Next()
		require.NoError(t, err)
		got = append(got, rec)
	}
	require.Len(t, got, numReads)

	for i := 1; i < len(got); i++ {
		assert.False(t, align.CoordinateLess(got[i], got[i-1]),
			"records out of order at index %d", i)
	}
	assert.True(t, got[len(got)-1].Unmapped(), "unmapped reads must sort last")
}
