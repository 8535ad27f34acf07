// Package game provides functionality to query game servers using the Source Engine Query (A2S) protocol.
package game

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/srcquery/internal/a2s"
	"github.com/woozymasta/srcquery/internal/config"
	"github.com/woozymasta/srcquery/internal/transport"
)

// QueryServer connects to a game server via UDP and requests A2S_INFO.
// It returns server details (such as name, map, players) or an error if the server is unreachable.
func QueryServer(ctx context.Context, address string, options config.A2S) (*a2s.ServerInfo, error) {
	var info *a2s.ServerInfo

	err := withEngine(ctx, address, options, func(ctx context.Context, e *a2s.Engine) error {
		var err error
		info, err = e.FetchInfo(ctx)
		return err
	})

	return info, err
}

// QueryRaw sends a request of any kind and returns the undecoded reply.
func QueryRaw(ctx context.Context, address string, kind a2s.Kind, options config.A2S) ([]byte, error) {
	var reply []byte

	err := withEngine(ctx, address, options, func(ctx context.Context, e *a2s.Engine) error {
		var err error
		reply, err = e.FetchRaw(ctx, kind)
		return err
	})

	return reply, err
}

// withEngine runs fn against a fresh transport bounded by the configured timeout.
func withEngine(ctx context.Context, address string, options config.A2S, fn func(context.Context, *a2s.Engine) error) error {
	if options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, options.Timeout)
		defer cancel()
	}

	udp := transport.NewUDP(address, int(options.BufferSize))
	if err := udp.Bind(ctx); err != nil {
		return &a2s.TransportError{Op: "bind", Err: err}
	}
	defer func() { _ = udp.Close() }()

	start := time.Now()
	err := fn(ctx, a2s.New(udp))

	log.Trace().
		Err(err).
		Str("address", address).
		Dur("duration", time.Since(start)).
		Msg("A2S query finished")

	return err
}
