// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package line serves requests over plain TCP, one JSON message per line.
// Each connection is handled concurrently; replies on a connection come
// back in request order.
package line

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/userauth/internal/protocol"
)

// MaxLineBytes is the longest request line accepted.
const MaxLineBytes = 1 << 20

// Handler turns one request message into one reply.
type Handler interface {
	HandleMessage(ctx context.Context, msg []byte) []byte
}

// Server is a line-delimited TCP server.
type Server struct {
	addr     string
	handler  Handler
	logger   *slog.Logger
	listener net.Listener
	mu       sync.RWMutex
	conns    sync.WaitGroup
}

// NewServer creates a server listening on addr.
func NewServer(addr string, handler Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{addr: addr, handler: handler, logger: logger}
}

// Addr returns the listen address, or "" before Run has bound it.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run accepts connections until ctx is cancelled, then closes every open
// connection and waits for their handlers to return.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return oops.Code("TRANSPORT_LISTEN_FAILED").With("addr", s.addr).Wrap(err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	s.logger.Info("line server started", "addr", listener.Addr().String())

	stop := context.AfterFunc(ctx, func() {
		if err := listener.Close(); err != nil {
			s.logger.Debug("error closing listener", "error", err)
		}
	})
	defer stop()
	defer s.conns.Wait()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.logger.Info("line server stopped")
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return oops.Code("TRANSPORT_ACCEPT_FAILED").Wrap(err)
			}
			s.logger.Error("accept failed", "error", err)
			continue
		}
		Connections.Inc()
		s.conns.Add(1)
		go func() {
			defer s.conns.Done()
			s.serve(ctx, conn)
		}()
	}
}

func (s *Server) serve(ctx context.Context, conn net.Conn) {
	connID := ulid.Make().String()
	logger := s.logger.With("conn_id", connID, "remote", conn.RemoteAddr().String())
	logger.Debug("connection opened")

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() }) //nolint:errcheck // unblocks the reader
	defer stop()
	defer func() {
		if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			logger.Debug("error closing connection", "error", err)
		}
		logger.Debug("connection closed")
	}()

	reader := bufio.NewReaderSize(conn, 4096)
	for {
		line, tooLong, err := readLine(reader)
		if tooLong {
			logger.Warn("request line too long", "limit", MaxLineBytes)
			if !s.reply(ctx, conn, logger, oversizedReply) {
				return
			}
		} else if msg := bytes.TrimSpace(line); len(msg) > 0 {
			if !s.reply(ctx, conn, logger, s.handler.HandleMessage(ctx, msg)) {
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil && !errors.Is(err, net.ErrClosed) {
				logger.Warn("read failed", "error", err)
			}
			return
		}
	}
}

// oversizedReply answers a line longer than MaxLineBytes.
var oversizedReply = protocol.MustEncode(protocol.Fail(protocol.MsgInvalidJSON))

func (s *Server) reply(ctx context.Context, conn net.Conn, logger *slog.Logger, reply []byte) bool {
	if _, err := conn.Write(append(reply[:len(reply):len(reply)], '\n')); err != nil {
		if ctx.Err() == nil {
			logger.Warn("write failed", "error", err)
		}
		return false
	}
	return true
}

// readLine returns the next line without its terminator. A line longer than
// MaxLineBytes is read through to its newline and dropped, with tooLong set.
// A final line without a newline is returned together with io.EOF.
func readLine(r *bufio.Reader) (line []byte, tooLong bool, err error) {
	for {
		chunk, readErr := r.ReadSlice('\n')
		if !tooLong {
			if len(line)+len(chunk) > MaxLineBytes+1 {
				tooLong = true
				line = nil
			} else {
				line = append(line, chunk...)
			}
		}
		if errors.Is(readErr, bufio.ErrBufferFull) {
			continue
		}
		if tooLong {
			return nil, true, readErr
		}
		return bytes.TrimSuffix(line, []byte("\n")), false, readErr
	}
}
