// Package align holds the minimal aligned-read record the sorting engine is
// typically asked to order, together with the standard orderings and an
// on-disk codec for it.
package align

// Record is one aligned read. Ref is the reference sequence index and Pos the
// 0-based leftmost mapping coordinate; both are -1 for unmapped reads.
type Record struct {
	Name     string
	Ref      int32
	Pos      int32
	Flag     uint16
	MapQ     uint8
	Sequence []byte
	Quality  []byte
}

// Unmapped reports whether the record has no mapping coordinate.
func (r Record) Unmapped() bool {
	return r.Ref < 0
}

// CoordinateLess orders records by (reference index, position), with unmapped
// records after all mapped ones.
func CoordinateLess(a, b Record) bool {
	if a.Unmapped() {
		return false
	}
	if b.Unmapped() {
		return true
	}
	if a.Ref != b.Ref {
		return a.Ref < b.Ref
	}
	return a.Pos < b.Pos
}

// QueryNameLess orders records lexicographically by read name.
func QueryNameLess(a, b Record) bool {
	return a.Name < b.Name
}
