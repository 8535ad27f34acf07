package a2s

import (
	"bytes"
	"encoding/binary"
)

// cursor reads little-endian fields from a reply, advancing past each one.
// Every read is bounds-checked and fails with *MalformedError.
type cursor struct {
	buf []byte
	pos int
}

func newCursor(buf []byte, pos int) *cursor {
	return &cursor{buf: buf, pos: pos}
}

func (c *cursor) take(field string, width int) ([]byte, error) {
	if c.pos+width > len(c.buf) {
		return nil, &MalformedError{Field: field, Offset: c.pos, Width: width, Len: len(c.buf)}
	}

	b := c.buf[c.pos : c.pos+width]
	c.pos += width

	return b, nil
}

func (c *cursor) u8(field string) (uint8, error) {
	b, err := c.take(field, 1)
	if err != nil {
		return 0, err
	}

	return b[0], nil
}

func (c *cursor) u16(field string) (uint16, error) {
	b, err := c.take(field, 2)
	if err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint16(b), nil
}

func (c *cursor) u64(field string) (uint64, error) {
	b, err := c.take(field, 8)
	if err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint64(b), nil
}

// cstring reads a null-terminated string and skips its terminator.
func (c *cursor) cstring(field string) (string, error) {
	if c.pos > len(c.buf) {
		return "", &MalformedError{Field: field, Offset: c.pos, Width: -1, Len: len(c.buf)}
	}

	end := bytes.IndexByte(c.buf[c.pos:], 0)
	if end < 0 {
		return "", &MalformedError{Field: field, Offset: c.pos, Width: -1, Len: len(c.buf)}
	}

	s := string(c.buf[c.pos : c.pos+end])
	c.pos += end + 1

	return s, nil
}
