package recordio

import (
	"io"

	"github.com/davidvella/spill/run"
)

// Bytes is a codec over raw byte-slice records: each record is a magic-framed,
// length-prefixed blob. It satisfies run.Codec[[]byte].
type Bytes struct {
	bw BinaryWriter
	br BinaryReader
}

var _ run.Codec[[]byte] = (*Bytes)(nil)

func NewBytes() *Bytes {
	return &Bytes{}
}

func (c *Bytes) SetOutput(w io.Writer) {
	c.bw = NewBinaryWriter(w)
}

func (c *Bytes) Encode(rec []byte) error {
	if _, err := c.bw.WriteMagic(); err != nil {
		return err
	}
	_, err := c.bw.WriteBytes(rec)
	return err
}

func (c *Bytes) SetInput(r io.Reader) {
	c.br = NewBinaryReader(r)
}

// Decode returns the next record, or io.EOF when the stream ends cleanly on a
// frame boundary. A stream that ends inside a record is reported as corrupt.
func (c *Bytes) Decode() ([]byte, error) {
	if err := c.br.ReadMagic(); err != nil {
		return nil, err
	}
	return c.br.ReadBytes()
}

func (c *Bytes) Clone() run.Codec[[]byte] {
	return NewBytes()
}
