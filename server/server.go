// Package server implements the TCP front-end: it accepts connections and
// spawns an independent session per connection.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/rs/zerolog"

	"github.com/foundry9/robonav/config"
	"github.com/foundry9/robonav/session"
	"github.com/foundry9/robonav/telemetry"
)

// Server accepts robot connections on a single TCP listener and runs one
// Session per connection to completion, isolated from every other
// session's state.
type Server struct {
	cfg    *config.Config
	broker *telemetry.Broker
	log    zerolog.Logger

	wg sync.WaitGroup
}

// New constructs a Server. cfg and broker are shared read-only by every
// spawned session.
func New(cfg *config.Config, broker *telemetry.Broker, log zerolog.Logger) *Server {
	return &Server{cfg: cfg, broker: broker, log: log}
}

// Serve accepts connections on lis until ctx is cancelled or the listener
// fails. When ctx is cancelled or the listener is closed, it blocks until
// every in-flight session has finished; any other accept error is returned
// at once, without waiting for in-flight sessions.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = lis.Close()
	}()

	for {
		conn, err := lis.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				s.wg.Wait()
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				return nil
			}
			return fmt.Errorf("server: accept: %w", err)
		}

		s.wg.Add(1)
		go func(c net.Conn) {
			defer s.wg.Done()
			s.handleConn(ctx, c)
		}(conn)
	}
}

// handleConn runs one session to completion and recovers from any panic in
// the session so one misbehaving connection never takes the server down.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Str("remote_addr", conn.RemoteAddr().String()).Msg("session panicked")
			_ = conn.Close()
		}
	}()

	// A session suspends only on socket I/O; closing the connection when
	// the server shuts down is what actually interrupts a blocked read.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	sess := session.New(conn, s.cfg, s.broker, s.log)
	sess.Run(ctx)
}
