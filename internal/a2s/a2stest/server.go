// Package a2stest provides a loopback A2S responder for tests.
package a2stest

import (
	"bytes"
	"net"
	"sync"
	"testing"

	"github.com/woozymasta/srcquery/internal/a2s"
)

// Server answers A2S requests on a loopback UDP socket.
// When Challenge is set, requests not ending with it are answered with a challenge.
type Server struct {
	pc   net.PacketConn
	info *a2s.ServerInfo

	challenge []byte

	mu       sync.Mutex
	requests [][]byte
	silent   bool
}

// NewServer starts a responder serving info, closed when the test ends.
func NewServer(tb testing.TB, info *a2s.ServerInfo, challenge []byte) *Server {
	tb.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		tb.Fatalf("listen: %v", err)
	}

	s := &Server{pc: pc, info: info, challenge: challenge}
	tb.Cleanup(func() { _ = pc.Close() })

	go s.serve()

	return s
}

// Addr returns the host:port of the responder.
func (s *Server) Addr() string {
	return s.pc.LocalAddr().String()
}

// SetSilent stops (or resumes) answering requests.
func (s *Server) SetSilent(silent bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.silent = silent
}

// Requests returns a copy of every packet received so far.
func (s *Server) Requests() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([][]byte(nil), s.requests...)
}

func (s *Server) serve() {
	buf := make([]byte, 1500)
	for {
		n, addr, err := s.pc.ReadFrom(buf)
		if err != nil {
			return
		}

		req := append([]byte(nil), buf[:n]...)

		s.mu.Lock()
		s.requests = append(s.requests, req)
		silent := s.silent
		s.mu.Unlock()

		if silent || len(req) < 5 {
			continue
		}

		if reply := s.reply(req); reply != nil {
			_, _ = s.pc.WriteTo(reply, addr)
		}
	}
}

func (s *Server) reply(req []byte) []byte {
	header := []byte{0xFF, 0xFF, 0xFF, 0xFF}

	if len(s.challenge) > 0 && !bytes.HasSuffix(req, s.challenge) {
		return append(append(header, a2s.S2CChallenge), s.challenge...)
	}

	switch req[4] {
	case a2s.A2SInfo:
		return a2s.EncodeInfo(s.info)
	case a2s.A2SPlayer:
		return append(header, a2s.S2APlayer, 0x00)
	case a2s.A2SRules:
		return append(header, a2s.S2ARules, 0x00, 0x00)
	case a2s.A2APing:
		return append(header, a2s.A2APingReply, 0x00)
	default:
		return nil
	}
}
