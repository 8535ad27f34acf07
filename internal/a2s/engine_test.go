package a2s

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

var errNoReply = errors.New("no reply queued")

// stubTransport records sent packets and replays queued replies.
type stubTransport struct {
	sendErr error
	sent    [][]byte
	replies [][]byte
}

func (s *stubTransport) Send(_ context.Context, packet []byte) error {
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, append([]byte(nil), packet...))
	return nil
}

func (s *stubTransport) Receive(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(s.replies) == 0 {
		return nil, errNoReply
	}
	reply := s.replies[0]
	s.replies = s.replies[1:]
	return reply, nil
}

var challengeReply = []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x41, 0x0A, 0x0B, 0x0C, 0x0D}

func TestNegotiateWithoutChallenge(t *testing.T) {
	reply := infoReply(0, nil)
	stub := &stubTransport{replies: [][]byte{reply}}

	got, err := Negotiate(context.Background(), stub, BuildRequest(KindInfo))
	if err != nil {
		t.Fatalf("Negotiate: %v", err)
	}
	if !bytes.Equal(got, reply) {
		t.Fatalf("Negotiate = % X, want % X", got, reply)
	}
	if len(stub.sent) != 1 {
		t.Fatalf("sent %d packets, want 1", len(stub.sent))
	}
}

func TestNegotiateChallenge(t *testing.T) {
	final := infoReply(0, nil)
	stub := &stubTransport{replies: [][]byte{challengeReply, final}}
	request := BuildRequest(KindInfo)
	original := append([]byte(nil), request...)

	got, err := Negotiate(context.Background(), stub, request)
	if err != nil {
		t.Fatalf("Negotiate: %v", err)
	}
	if !bytes.Equal(got, final) {
		t.Fatalf("Negotiate = % X, want % X", got, final)
	}

	if len(stub.sent) != 2 {
		t.Fatalf("sent %d packets, want 2", len(stub.sent))
	}
	if !bytes.Equal(stub.sent[0], original) {
		t.Errorf("first packet = % X, want % X", stub.sent[0], original)
	}
	want := append(append([]byte(nil), original...), 0x0A, 0x0B, 0x0C, 0x0D)
	if !bytes.Equal(stub.sent[1], want) {
		t.Errorf("second packet = % X, want % X", stub.sent[1], want)
	}
	if !bytes.Equal(request, original) {
		t.Errorf("request modified: % X", request)
	}
}

func TestNegotiateDoubleChallenge(t *testing.T) {
	stub := &stubTransport{replies: [][]byte{challengeReply, challengeReply}}

	_, err := Negotiate(context.Background(), stub, BuildRequest(KindPlayer))
	var perr *ProtocolError
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want *ProtocolError", err)
	}
	if perr.Actual != S2CChallenge || perr.Expected != S2APlayer {
		t.Fatalf("ProtocolError = %+v", perr)
	}
	if len(stub.sent) != 2 {
		t.Fatalf("sent %d packets, want 2", len(stub.sent))
	}
}

func TestNegotiateShortReply(t *testing.T) {
	stub := &stubTransport{replies: [][]byte{{0xFF, 0xFF, 0xFF}}}

	_, err := Negotiate(context.Background(), stub, BuildRequest(KindPing))
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("err = %v, want malformed response", err)
	}
}

func TestNegotiateTransportFailure(t *testing.T) {
	sendFailure := errors.New("network unreachable")

	cases := []struct {
		name   string
		stub   *stubTransport
		op     string
		target error
	}{
		{"send", &stubTransport{sendErr: sendFailure}, "send", sendFailure},
		{"receive", &stubTransport{}, "receive", errNoReply},
		{"receive after challenge", &stubTransport{replies: [][]byte{challengeReply}}, "receive", errNoReply},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Negotiate(context.Background(), tc.stub, BuildRequest(KindInfo))
			if !errors.Is(err, ErrTransport) || !errors.Is(err, tc.target) {
				t.Fatalf("err = %v, want transport failure wrapping %v", err, tc.target)
			}

			var terr *TransportError
			if !errors.As(err, &terr) || terr.Op != tc.op {
				t.Fatalf("TransportError = %+v, want op %q", terr, tc.op)
			}
		})
	}
}

func TestNegotiateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Negotiate(ctx, &stubTransport{}, BuildRequest(KindInfo))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestEngineFetchInfo(t *testing.T) {
	stub := &stubTransport{replies: [][]byte{challengeReply, fullReply()}}

	info, err := New(stub).FetchInfo(context.Background())
	if err != nil {
		t.Fatalf("FetchInfo: %v", err)
	}
	if info.Name != "My Server" || info.GamePort == nil || *info.GamePort != 27015 {
		t.Fatalf("FetchInfo = %+v", info)
	}
}

func TestEngineFetchInfoUnknownType(t *testing.T) {
	reply := infoReply(0, nil)
	reply[4] = 0x99

	_, err := New(&stubTransport{replies: [][]byte{reply}}).FetchInfo(context.Background())
	if !errors.Is(err, ErrProtocolMismatch) {
		t.Fatalf("err = %v, want protocol mismatch", err)
	}
}

func TestEngineFetchRaw(t *testing.T) {
	reply := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x44, 0x00}
	stub := &stubTransport{replies: [][]byte{challengeReply, reply}}

	got, err := New(stub).FetchRaw(context.Background(), KindPlayer)
	if err != nil {
		t.Fatalf("FetchRaw: %v", err)
	}
	if !bytes.Equal(got, reply) {
		t.Fatalf("FetchRaw = % X, want % X", got, reply)
	}
	if !bytes.Equal(stub.sent[1], []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x55, 0x0A, 0x0B, 0x0C, 0x0D}) {
		t.Fatalf("challenge packet = % X", stub.sent[1])
	}
}

func TestEngineFetchRawUnexpectedType(t *testing.T) {
	tests := []struct {
		kind Kind
		want byte
	}{
		{KindInfo, S2AInfo},
		{KindPlayer, S2APlayer},
		{KindRules, S2ARules},
		{KindPing, A2APingReply},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			stub := &stubTransport{replies: [][]byte{{0xFF, 0xFF, 0xFF, 0xFF, 0x99, 0x00}}}

			got, err := New(stub).FetchRaw(context.Background(), tt.kind)
			var perr *ProtocolError
			if !errors.As(err, &perr) || !errors.Is(err, ErrProtocolMismatch) {
				t.Fatalf("FetchRaw = % X, %v; want protocol mismatch", got, err)
			}
			if perr.Expected != tt.want || perr.Actual != 0x99 {
				t.Fatalf("ProtocolError = %+v, want expected 0x%02X actual 0x99", perr, tt.want)
			}
			if got != nil {
				t.Fatalf("payload returned with error: % X", got)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	for _, kind := range []Kind{KindPlayer, KindRules} {
		_, err := Decode(kind, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x44, 0x00})
		var uerr *UnsupportedError
		if !errors.Is(err, ErrUnsupportedDecoding) || !errors.As(err, &uerr) || uerr.Kind != kind {
			t.Errorf("Decode(%s) err = %v, want unsupported decoding", kind, err)
		}
	}

	v, err := Decode(KindInfo, infoReply(0, nil))
	if err != nil {
		t.Fatalf("Decode(info): %v", err)
	}
	if _, ok := v.(*ServerInfo); !ok {
		t.Fatalf("Decode(info) = %T, want *ServerInfo", v)
	}

	ping := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x6A, 0x00}
	v, err = Decode(KindPing, ping)
	if err != nil || !bytes.Equal(v.([]byte), ping) {
		t.Fatalf("Decode(ping) = %v, %v", v, err)
	}
}
