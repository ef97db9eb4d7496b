// Package stream provides the byte-level read/write helpers the
// codec and the per-neighbor connection loop build framed BGP
// messages out of.
package stream

import (
	"bytes"
	"encoding/binary"
	"io"
)

// Read consumes exactly count bytes from r, blocking across multiple
// underlying Read calls if the first one returns short. Returns nil
// for count == 0.
func Read(r io.Reader, count int) ([]byte, error) {
	if count == 0 {
		return nil, nil
	}
	b := make([]byte, count)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Write sends b to w with a single Write call; io.Writer reports any
// short write as a non-nil error, which is returned.
func Write(w io.Writer, b []byte) error {
	_, err := w.Write(b)
	return err
}

// ReadBytes reads n bytes from the byte buffer and returns them.
func ReadBytes(n int, buf *bytes.Buffer) []byte {
	bs := make([]byte, n)
	for i := range bs {
		bs[i], _ = buf.ReadByte()
	}
	return bs
}

// ReadByte reads a single byte off the given byte buffer and returns it.
func ReadByte(buf *bytes.Buffer) byte {
	return ReadBytes(1, buf)[0]
}

// ReadUint16 reads 2 bytes off the buffer and returns them as a uint16.
func ReadUint16(buf *bytes.Buffer) uint16 {
	return binary.BigEndian.Uint16(ReadBytes(2, buf))
}

// ReadUint32 reads 4 bytes off the buffer and returns them as a uint32.
func ReadUint32(buf *bytes.Buffer) uint32 {
	return binary.BigEndian.Uint32(ReadBytes(4, buf))
}
