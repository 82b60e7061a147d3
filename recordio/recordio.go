// Package recordio provides length-prefixed binary framing helpers and a
// byte-slice codec built on them, used as the toolkit's default on-disk
// record format.
package recordio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var (
	Uint64Size = int64(binary.Size(uint64(0)))
	Int64Size  = int64(binary.Size(int64(0)))
	// MagicBytes Magic bytes to identify valid recordio frames (REC).
	MagicBytes           = []byte{0x52, 0x45, 0x43}
	ErrInvalidMagicBytes = errors.New("recordio: invalid magic bytes - not a valid recordio frame")
)

// BinaryWriter handles writing binary data with error handling.
type BinaryWriter struct {
	w io.Writer
}

func NewBinaryWriter(w io.Writer) BinaryWriter {
	return BinaryWriter{w: w}
}

// WriteMagic writes the frame marker that precedes every record.
func (bw BinaryWriter) WriteMagic() (int64, error) {
	n, err := bw.w.Write(MagicBytes)
	if err != nil {
		return int64(n), fmt.Errorf("error writing magic bytes: %w", err)
	}
	return int64(n), nil
}

func (bw BinaryWriter) WriteString(s string) (int64, error) {
	// Write string length (uint64)
	if err := binary.Write(bw.w, binary.LittleEndian, uint64(len(s))); err != nil {
		return 0, fmt.Errorf("error writing string length: %w", err)
	}

	// Write string content
	n, err := bw.w.Write([]byte(s))
	if err != nil {
		return Uint64Size, fmt.Errorf("error writing string content: %w", err)
	}

	// Return total bytes written (length field + string content)
	return Uint64Size + int64(n), nil
}

func (bw BinaryWriter) WriteInt64(i int64) (int64, error) {
	err := binary.Write(bw.w, binary.LittleEndian, i)
	if err != nil {
		return 0, err
	}
	return Int64Size, nil
}

func (bw BinaryWriter) WriteBytes(b []byte) (int64, error) {
	// Write bytes length (uint64)
	if err := binary.Write(bw.w, binary.LittleEndian, uint64(len(b))); err != nil {
		return 0, fmt.Errorf("error writing bytes length: %w", err)
	}

	// Write bytes content
	n, err := bw.w.Write(b)
	if err != nil {
		return Uint64Size, fmt.Errorf("error writing bytes content: %w", err)
	}

	// Return total bytes written (length field + bytes content)
	return Uint64Size + int64(n), nil
}

// BinaryReader handles reading binary data with error handling.
type BinaryReader struct {
	r io.Reader
}

func NewBinaryReader(r io.Reader) BinaryReader {
	return BinaryReader{r: r}
}

// ReadMagic consumes one frame marker. It returns io.EOF untouched when the
// stream ends cleanly on a frame boundary, so callers can tell "no more
// records" apart from a record cut short.
func (br BinaryReader) ReadMagic() error {
	magic := make([]byte, len(MagicBytes))
	n, err := io.ReadFull(br.r, magic)
	if err == io.EOF {
		return io.EOF
	}
	if err != nil {
		return fmt.Errorf("error reading magic bytes after %d bytes: %w", n, err)
	}
	for i := range magic {
		if magic[i] != MagicBytes[i] {
			return ErrInvalidMagicBytes
		}
	}
	return nil
}

func (br BinaryReader) ReadString() (string, error) {
	var length uint64
	if err := binary.Read(br.r, binary.LittleEndian, &length); err != nil {
		return "", fmt.Errorf("error reading string length: %w", midRecord(err))
	}

	b := make([]byte, length)
	if _, err := io.ReadFull(br.r, b); err != nil {
		return "", fmt.Errorf("error reading string content: %w", midRecord(err))
	}
	return string(b), nil
}

func (br BinaryReader) ReadInt64() (int64, error) {
	var value int64
	if err := binary.Read(br.r, binary.LittleEndian, &value); err != nil {
		return 0, fmt.Errorf("error reading int64: %w", midRecord(err))
	}
	return value, nil
}

func (br BinaryReader) ReadBytes() ([]byte, error) {
	var length uint64
	if err := binary.Read(br.r, binary.LittleEndian, &length); err != nil {
		return nil, fmt.Errorf("error reading bytes length: %w", midRecord(err))
	}

	b := make([]byte, length)
	if _, err := io.ReadFull(br.r, b); err != nil {
		return nil, fmt.Errorf("error reading bytes content: %w", midRecord(err))
	}
	return b, nil
}

// midRecord converts a clean-looking EOF into io.ErrUnexpectedEOF. The field
// readers only run after a frame marker has been consumed, so any end of
// stream here cuts a record short.
func midRecord(err error) error {
	if errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
