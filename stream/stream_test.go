package stream

import (
	"bytes"
	"testing"
)

func TestReadExact(t *testing.T) {
	r := bytes.NewReader([]byte{0x01, 0x02, 0x03, 0x04})
	b, err := Read(r, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(b, []byte{0x01, 0x02, 0x03}) {
		t.Errorf("got %v", b)
	}
}

func TestReadZeroReturnsNil(t *testing.T) {
	r := bytes.NewReader([]byte{0x01})
	b, err := Read(r, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b != nil {
		t.Errorf("expected nil, got %v", b)
	}
}

func TestReadShortReturnsError(t *testing.T) {
	r := bytes.NewReader([]byte{0x01})
	if _, err := Read(r, 4); err == nil {
		t.Error("expected error reading past EOF")
	}
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, []byte{0xAA, 0xBB}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), []byte{0xAA, 0xBB}) {
		t.Errorf("got %v", buf.Bytes())
	}
}

func TestReadUint16AndUint32(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06})
	if got := ReadUint16(buf); got != 0x0102 {
		t.Errorf("got %x", got)
	}
	if got := ReadUint32(buf); got != 0x03040506 {
		t.Errorf("got %x", got)
	}
}
