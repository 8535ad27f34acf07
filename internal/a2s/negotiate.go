package a2s

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Transport sends datagrams to a fixed remote address and returns received
// datagrams one at a time, in arrival order.
// A Transport serves one negotiation at a time.
type Transport interface {
	Send(ctx context.Context, packet []byte) error
	Receive(ctx context.Context) ([]byte, error)
}

// Negotiate sends request and returns the final reply, answering at most one
// challenge. A challenge is answered by resending request followed by the
// challenge token. A second challenge is reported as a protocol mismatch.
func Negotiate(ctx context.Context, t Transport, request []byte) ([]byte, error) {
	reply, err := roundTrip(ctx, t, request)
	if err != nil {
		return nil, err
	}

	if reply[typeOffset] != S2CChallenge {
		return reply, nil
	}

	token := reply[typeOffset+1:]
	log.Trace().
		Hex("token", token).
		Uint8("request", requestHeader(request)).
		Msg("Challenge received, resending request")

	challenged := make([]byte, 0, len(request)+len(token))
	challenged = append(challenged, request...)
	challenged = append(challenged, token...)

	reply, err = roundTrip(ctx, t, challenged)
	if err != nil {
		return nil, err
	}

	if reply[typeOffset] == S2CChallenge {
		return nil, &ProtocolError{Expected: expectedReply(request), Actual: S2CChallenge}
	}

	return reply, nil
}

// roundTrip sends one packet and awaits exactly one reply of at least 5 bytes.
func roundTrip(ctx context.Context, t Transport, packet []byte) ([]byte, error) {
	if err := t.Send(ctx, packet); err != nil {
		return nil, &TransportError{Op: "send", Err: err}
	}

	reply, err := t.Receive(ctx)
	if err != nil {
		return nil, &TransportError{Op: "receive", Err: err}
	}

	if len(reply) <= typeOffset {
		return nil, &MalformedError{Field: "header", Offset: 0, Width: typeOffset + 1, Len: len(reply)}
	}

	return reply, nil
}

func requestHeader(request []byte) byte {
	if len(request) <= typeOffset {
		return 0
	}
	return request[typeOffset]
}

// expectedReply maps a request header to the reply type a server answers with.
func expectedReply(request []byte) byte {
	switch requestHeader(request) {
	case A2SInfo:
		return S2AInfo
	case A2SPlayer:
		return S2APlayer
	case A2SRules:
		return S2ARules
	case A2APing:
		return A2APingReply
	default:
		return 0
	}
}
