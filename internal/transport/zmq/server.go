// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package zmq serves requests over a ZeroMQ REP socket: one message in,
// one reply out.
package zmq

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/go-zeromq/zmq4"
	"github.com/samber/oops"
)

// DefaultEndpoint is the endpoint the service binds when none is configured.
const DefaultEndpoint = "tcp://*:5555"

// maxConsecutiveErrors bounds back-to-back receive failures before Run gives up.
const maxConsecutiveErrors = 10

// Handler turns one request message into one reply.
type Handler interface {
	HandleMessage(ctx context.Context, msg []byte) []byte
}

// NormalizeEndpoint rewrites the libzmq wildcard host "*" to 0.0.0.0.
func NormalizeEndpoint(endpoint string) string {
	if rest, ok := strings.CutPrefix(endpoint, "tcp://*:"); ok {
		return "tcp://0.0.0.0:" + rest
	}
	return endpoint
}

// Server is a ZeroMQ REP server.
type Server struct {
	endpoint string
	handler  Handler
	logger   *slog.Logger

	mu   sync.RWMutex
	sock zmq4.Socket
}

// NewServer creates a server that binds endpoint.
func NewServer(endpoint string, handler Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		endpoint: NormalizeEndpoint(endpoint),
		handler:  handler,
		logger:   logger,
	}
}

// Addr returns the bound endpoint, or "" before Run has bound it.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.sock == nil || s.sock.Addr() == nil {
		return ""
	}
	return "tcp://" + s.sock.Addr().String()
}

// Run binds the socket and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	sock := zmq4.NewRep(ctx)
	if err := sock.Listen(s.endpoint); err != nil {
		_ = sock.Close() //nolint:errcheck // listen error takes precedence
		return oops.Code("TRANSPORT_LISTEN_FAILED").With("endpoint", s.endpoint).Wrap(err)
	}

	s.mu.Lock()
	s.sock = sock
	s.mu.Unlock()

	stop := context.AfterFunc(ctx, func() {
		if err := sock.Close(); err != nil {
			s.logger.Debug("error closing zmq socket", "error", err)
		}
	})
	defer func() {
		if stop() {
			_ = sock.Close() //nolint:errcheck // shutting down
		}
	}()

	s.logger.Info("zmq server started", "endpoint", s.Addr())

	failures := 0
	for {
		msg, err := sock.Recv()
		if err != nil {
			if ctx.Err() != nil {
				s.logger.Info("zmq server stopped")
				return nil
			}
			failures++
			s.logger.Warn("zmq receive failed", "error", err, "consecutive", failures)
			if failures >= maxConsecutiveErrors {
				return oops.Code("TRANSPORT_RECV_FAILED").With("endpoint", s.endpoint).Wrap(err)
			}
			continue
		}
		failures = 0
		Messages.Inc()

		reply := s.handler.HandleMessage(ctx, msg.Bytes())
		if err := sock.Send(zmq4.NewMsg(reply)); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Error("zmq send failed", "error", err)
		}
	}
}
