package a2s

import (
	"errors"
	"fmt"
)

// Failure classes. Every error returned by this package matches exactly one
// of them with errors.Is.
var (
	ErrTransport           = errors.New("transport failure")
	ErrProtocolMismatch    = errors.New("protocol mismatch")
	ErrMalformedResponse   = errors.New("malformed response")
	ErrUnsupportedDecoding = errors.New("unsupported decoding")
)

// TransportError wraps a send or receive failure of the transport.
type TransportError struct {
	Err error
	Op  string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is reports ErrTransport as a match.
func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// ProtocolError reports a reply whose type byte is not the one expected.
type ProtocolError struct {
	Expected byte
	Actual   byte
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("unexpected response type: 0x%02X, expected: 0x%02X", e.Actual, e.Expected)
}

// Is reports ErrProtocolMismatch as a match.
func (e *ProtocolError) Is(target error) bool { return target == ErrProtocolMismatch }

// MalformedError reports a read past the end of a reply.
// Width is -1 for null-terminated strings missing their terminator.
type MalformedError struct {
	Field  string
	Offset int
	Width  int
	Len    int
}

func (e *MalformedError) Error() string {
	if e.Width < 0 {
		return fmt.Sprintf("malformed response: %s at offset %d: unterminated string (len %d)",
			e.Field, e.Offset, e.Len)
	}

	return fmt.Sprintf("malformed response: %s at offset %d: need %d bytes, have %d",
		e.Field, e.Offset, e.Width, max(e.Len-e.Offset, 0))
}

// Is reports ErrMalformedResponse as a match.
func (e *MalformedError) Is(target error) bool { return target == ErrMalformedResponse }

// UnsupportedError reports a decode request for a body layout that is not implemented.
type UnsupportedError struct {
	Kind Kind
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("decoding of %s replies is not supported", e.Kind)
}

// Is reports ErrUnsupportedDecoding as a match.
func (e *UnsupportedError) Is(target error) bool { return target == ErrUnsupportedDecoding }
