// Package transport provides the UDP datagram transport used by A2S queries.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/rs/zerolog/log"
)

// DefaultBufferSize fits the largest single (non split) Source reply.
const DefaultBufferSize = 1400

var (
	// ErrNotBound is returned by Send and Receive before Bind.
	ErrNotBound = errors.New("transport not bound")

	// ErrClosed is returned once the transport is closed, including to
	// receivers that were waiting when Close was called.
	ErrClosed = errors.New("transport closed")
)

// State is the lifecycle stage of a transport.
type State int32

// Lifecycle stages.
const (
	StateUnbound State = iota
	StateBound
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnbound:
		return "unbound"
	case StateBound:
		return "bound"
	default:
		return "closed"
	}
}

// datagram is one read result of the socket.
type datagram struct {
	err  error
	data []byte
}

// UDP is a connected UDP socket to a single remote address.
// Received datagrams are handed out one per Receive call, in arrival order.
type UDP struct {
	conn   *net.UDPConn
	slot   chan datagram
	closed chan struct{}

	address    string
	bufferSize int

	dial func(ctx context.Context, network, address string) (net.Conn, error)

	mu    sync.Mutex
	state State
	wg    sync.WaitGroup
}

// NewUDP returns an unbound transport for the host:port address.
// A bufferSize of zero selects DefaultBufferSize.
func NewUDP(address string, bufferSize int) *UDP {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}

	var dialer net.Dialer

	return &UDP{
		dial:       dialer.DialContext,
		address:    address,
		bufferSize: bufferSize,
		slot:       make(chan datagram, 1),
		closed:     make(chan struct{}),
	}
}

// Address returns the remote address the transport sends to.
func (u *UDP) Address() string {
	return u.address
}

// State returns the current lifecycle stage.
func (u *UDP) State() State {
	u.mu.Lock()
	defer u.mu.Unlock()

	return u.state
}

// Bind resolves the remote address, opens the socket and starts reading.
// Resolution runs without holding the lock, so Close and State stay responsive.
func (u *UDP) Bind(ctx context.Context) error {
	switch u.State() {
	case StateBound:
		return nil
	case StateClosed:
		return ErrClosed
	}

	conn, err := u.dial(ctx, "udp", u.address)
	if err != nil {
		return fmt.Errorf("dial %s: %w", u.address, err)
	}

	udpConn, ok := conn.(*net.UDPConn)
	if !ok {
		_ = conn.Close()
		return fmt.Errorf("dial %s: unexpected connection type %T", u.address, conn)
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	switch u.state {
	case StateBound:
		// A concurrent Bind won
		_ = udpConn.Close()
		return nil
	case StateClosed:
		_ = udpConn.Close()
		return ErrClosed
	}

	u.conn = udpConn
	u.state = StateBound

	u.wg.Add(1)
	go u.readLoop()

	log.Trace().
		Str("address", u.address).
		Str("local", udpConn.LocalAddr().String()).
		Msg("UDP transport bound")

	return nil
}

// Send discards a datagram left over from an abandoned query, then writes packet.
func (u *UDP) Send(ctx context.Context, packet []byte) error {
	conn, err := u.bound()
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	select {
	case stale := <-u.slot:
		log.Trace().
			Str("address", u.address).
			Int("size", len(stale.data)).
			Err(stale.err).
			Msg("Discarded stale datagram")
	default:
	}

	if _, err := conn.Write(packet); err != nil {
		if u.State() == StateClosed {
			return ErrClosed
		}
		return fmt.Errorf("write: %w", err)
	}

	return nil
}

// Receive waits for the next datagram, the end of ctx, or Close.
func (u *UDP) Receive(ctx context.Context) ([]byte, error) {
	if _, err := u.bound(); err != nil {
		return nil, err
	}

	select {
	case d := <-u.slot:
		if d.err != nil {
			return nil, fmt.Errorf("read: %w", d.err)
		}
		return d.data, nil
	case <-u.closed:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close releases the socket and every pending Receive. It is safe to call more than once.
func (u *UDP) Close() error {
	u.mu.Lock()
	if u.state == StateClosed {
		u.mu.Unlock()
		return nil
	}

	prev := u.state
	u.state = StateClosed
	close(u.closed)
	u.mu.Unlock()

	if prev != StateBound {
		return nil
	}

	err := u.conn.Close()
	u.wg.Wait()

	return err
}

func (u *UDP) bound() (*net.UDPConn, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	switch u.state {
	case StateUnbound:
		return nil, ErrNotBound
	case StateClosed:
		return nil, ErrClosed
	}

	return u.conn, nil
}

// readLoop moves datagrams from the socket into the single slot. It blocks
// while the slot is full, leaving later datagrams queued in the socket.
func (u *UDP) readLoop() {
	defer u.wg.Done()

	buf := make([]byte, u.bufferSize)
	for {
		n, err := u.conn.Read(buf)

		var d datagram
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			// ICMP unreachable and similar errors are reported to the waiting query.
			d.err = err
		} else {
			d.data = append([]byte(nil), buf[:n]...)
		}

		select {
		case u.slot <- d:
		case <-u.closed:
			return
		}
	}
}
