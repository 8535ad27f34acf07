package transport

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/woozymasta/srcquery/internal/a2s"
	"github.com/woozymasta/srcquery/internal/a2s/a2stest"
)

func testInfo() *a2s.ServerInfo {
	port := uint16(27015)
	return &a2s.ServerInfo{
		Protocol:   17,
		Name:       "Loopback",
		Map:        "cs_office",
		Folder:     "cstrike",
		Game:       "Counter-Strike",
		AppID:      240,
		Players:    3,
		MaxPlayers: 16,
		Version:    "1.0.0.0",
		EDF:        a2s.EDFPort,
		GamePort:   &port,
	}
}

func bind(t *testing.T, address string) *UDP {
	t.Helper()

	u := NewUDP(address, 0)
	if err := u.Bind(context.Background()); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	t.Cleanup(func() { _ = u.Close() })

	return u
}

func TestUDPStateMachine(t *testing.T) {
	srv := a2stest.NewServer(t, testInfo(), nil)
	u := NewUDP(srv.Addr(), 0)
	ctx := context.Background()

	if u.State() != StateUnbound {
		t.Fatalf("state = %s, want unbound", u.State())
	}
	if err := u.Send(ctx, a2s.BuildRequest(a2s.KindPing)); !errors.Is(err, ErrNotBound) {
		t.Fatalf("Send before Bind = %v, want ErrNotBound", err)
	}
	if _, err := u.Receive(ctx); !errors.Is(err, ErrNotBound) {
		t.Fatalf("Receive before Bind = %v, want ErrNotBound", err)
	}

	if err := u.Bind(ctx); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if u.State() != StateBound {
		t.Fatalf("state = %s, want bound", u.State())
	}

	if err := u.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := u.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if u.State() != StateClosed {
		t.Fatalf("state = %s, want closed", u.State())
	}
	if err := u.Send(ctx, a2s.BuildRequest(a2s.KindPing)); !errors.Is(err, ErrClosed) {
		t.Fatalf("Send after Close = %v, want ErrClosed", err)
	}
	if err := u.Bind(ctx); !errors.Is(err, ErrClosed) {
		t.Fatalf("Bind after Close = %v, want ErrClosed", err)
	}
}

func TestUDPFetchInfoWithChallenge(t *testing.T) {
	token := []byte{0x11, 0x22, 0x33, 0x44}
	srv := a2stest.NewServer(t, testInfo(), token)
	u := bind(t, srv.Addr())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	info, err := a2s.New(u).FetchInfo(ctx)
	if err != nil {
		t.Fatalf("FetchInfo: %v", err)
	}
	if info.Name != "Loopback" || info.GamePort == nil || *info.GamePort != 27015 {
		t.Fatalf("FetchInfo = %+v", info)
	}

	if n := len(srv.Requests()); n != 2 {
		t.Fatalf("server saw %d requests, want 2", n)
	}

	// The transport stays usable for the next query.
	raw, err := a2s.New(u).FetchRaw(ctx, a2s.KindRules)
	if err != nil {
		t.Fatalf("FetchRaw: %v", err)
	}
	if raw[4] != a2s.S2ARules {
		t.Fatalf("rules reply type = 0x%02X", raw[4])
	}
}

func TestUDPReceiveDeadline(t *testing.T) {
	srv := a2stest.NewServer(t, testInfo(), nil)
	srv.SetSilent(true)
	u := bind(t, srv.Addr())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := a2s.New(u).FetchInfo(ctx)
	if !errors.Is(err, a2s.ErrTransport) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want transport failure on deadline", err)
	}

	// The transport stays usable after a timed out query.
	srv.SetSilent(false)
	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()

	raw, err := a2s.New(u).FetchRaw(ctx2, a2s.KindPing)
	if err != nil {
		t.Fatalf("FetchRaw after timeout: %v", err)
	}
	if raw[4] != a2s.A2APingReply {
		t.Fatalf("ping reply type = 0x%02X", raw[4])
	}
}

func TestUDPCloseReleasesReceive(t *testing.T) {
	srv := a2stest.NewServer(t, testInfo(), nil)
	srv.SetSilent(true)
	u := bind(t, srv.Addr())

	done := make(chan error, 1)
	go func() {
		_, err := u.Receive(context.Background())
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	if err := u.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	select {
	case err := <-done:
		if !errors.Is(err, ErrClosed) {
			t.Fatalf("Receive = %v, want ErrClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Receive not released by Close")
	}
}

func TestUDPCloseDuringBind(t *testing.T) {
	srv := a2stest.NewServer(t, testInfo(), nil)
	u := NewUDP(srv.Addr(), 0)

	entered := make(chan struct{})
	release := make(chan struct{})
	dialed := make(chan net.Conn, 1)
	u.dial = func(ctx context.Context, network, address string) (net.Conn, error) {
		close(entered)
		<-release

		var d net.Dialer
		conn, err := d.DialContext(ctx, network, address)
		if err == nil {
			dialed <- conn
		}
		return conn, err
	}

	done := make(chan error, 1)
	go func() { done <- u.Bind(context.Background()) }()
	<-entered

	// State and Close must not wait for the slow dial
	closed := make(chan struct{})
	go func() {
		_ = u.State()
		_ = u.Close()
		close(closed)
	}()

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close blocked by a pending Bind")
	}

	close(release)
	if err := <-done; !errors.Is(err, ErrClosed) {
		t.Fatalf("Bind = %v, want ErrClosed", err)
	}
	if u.State() != StateClosed {
		t.Fatalf("State = %s, want closed", u.State())
	}

	conn := <-dialed
	if _, err := conn.Write([]byte{0}); !errors.Is(err, net.ErrClosed) {
		t.Fatalf("dialed socket left open: write err = %v", err)
	}
}
