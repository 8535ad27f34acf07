package a2s

import "context"

// Engine runs queries against the server behind a Transport.
// It is not safe for concurrent use: the transport serves one query at a time.
type Engine struct {
	transport Transport
}

// New returns an Engine that queries through t.
func New(t Transport) *Engine {
	return &Engine{transport: t}
}

// FetchInfo sends A2S_INFO and decodes the reply.
func (e *Engine) FetchInfo(ctx context.Context) (*ServerInfo, error) {
	reply, err := Negotiate(ctx, e.transport, BuildRequest(KindInfo))
	if err != nil {
		return nil, err
	}

	return DecodeInfo(reply)
}

// FetchRaw sends a request of the given kind and returns the reply undecoded.
// A reply whose type byte does not answer the request is a protocol mismatch.
func (e *Engine) FetchRaw(ctx context.Context, kind Kind) ([]byte, error) {
	request := BuildRequest(kind)

	reply, err := Negotiate(ctx, e.transport, request)
	if err != nil {
		return nil, err
	}

	if want := expectedReply(request); reply[typeOffset] != want {
		return nil, &ProtocolError{Expected: want, Actual: reply[typeOffset]}
	}

	return reply, nil
}

// Decode decodes a reply to a request of the given kind. Info replies decode
// to *ServerInfo and ping replies are returned as is. Player and rules
// bodies are not supported.
func Decode(kind Kind, reply []byte) (any, error) {
	switch kind {
	case KindInfo:
		info, err := DecodeInfo(reply)
		if err != nil {
			return nil, err
		}
		return info, nil
	case KindPing:
		return reply, nil
	default:
		return nil, &UnsupportedError{Kind: kind}
	}
}
