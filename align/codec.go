package align

import (
	"io"

	"github.com/davidvella/spill/recordio"
	"github.com/davidvella/spill/run"
)

// Codec (de)serializes Records with recordio framing. The zero value is
// ready to use once attached to a stream.
type Codec struct {
	bw recordio.BinaryWriter
	br recordio.BinaryReader
}

var _ run.Codec[Record] = (*Codec)(nil)

func NewCodec() *Codec {
	return &Codec{}
}

func (c *Codec) SetOutput(w io.Writer) {
	c.bw = recordio.NewBinaryWriter(w)
}

func (c *Codec) Encode(rec Record) error {
	if _, err := c.bw.WriteMagic(); err != nil {
		return err
	}
	if _, err := c.bw.WriteString(rec.Name); err != nil {
		return err
	}
	if _, err := c.bw.WriteInt64(int64(rec.Ref)); err != nil {
		return err
	}
	if _, err := c.bw.WriteInt64(int64(rec.Pos)); err != nil {
		return err
	}
	// Flag and MapQ share one field.
	if _, err := c.bw.WriteInt64(int64(rec.Flag)<<8 | int64(rec.MapQ)); err != nil {
		return err
	}
	if _, err := c.bw.WriteBytes(rec.Sequence); err != nil {
		return err
	}
	_, err := c.bw.WriteBytes(rec.Quality)
	return err
}

func (c *Codec) SetInput(r io.Reader) {
	c.br = recordio.NewBinaryReader(r)
}

// Decode returns the next record, or io.EOF at a clean end of stream.
func (c *Codec) Decode() (Record, error) {
	var rec Record

	if err := c.br.ReadMagic(); err != nil {
		return rec, err
	}

	name, err := c.br.ReadString()
	if err != nil {
		return rec, err
	}
	ref, err := c.br.ReadInt64()
	if err != nil {
		return rec, err
	}
	pos, err := c.br.ReadInt64()
	if err != nil {
		return rec, err
	}
	flagMapQ, err := c.br.ReadInt64()
	if err != nil {
		return rec, err
	}
	seq, err := c.br.ReadBytes()
	if err != nil {
		return rec, err
	}
	qual, err := c.br.ReadBytes()
	if err != nil {
		return rec, err
	}

	rec = Record{
		Name:     name,
		Ref:      int32(ref),
		Pos:      int32(pos),
		Flag:     uint16(flagMapQ >> 8),
		MapQ:     uint8(flagMapQ & 0xff),
		Sequence: seq,
		Quality:  qual,
	}
	return rec, nil
}

func (c *Codec) Clone() run.Codec[Record] {
	return NewCodec()
}
