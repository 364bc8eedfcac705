// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package line

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"net"

	"github.com/samber/oops"
)

// Client sends one request line at a time and reads the reply line.
// It is not safe for concurrent use.
type Client struct {
	conn   net.Conn
	reader *bufio.Reader
}

// Dial connects to a line server at addr. The connection is closed when ctx
// is cancelled.
func Dial(ctx context.Context, addr string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, oops.Code("TRANSPORT_DIAL_FAILED").With("addr", addr).Wrap(err)
	}
	context.AfterFunc(ctx, func() { _ = conn.Close() }) //nolint:errcheck // unblocks pending reads
	return &Client{conn: conn, reader: bufio.NewReaderSize(conn, 4096)}, nil
}

// Do writes payload as one line and returns the reply without its newline.
func (c *Client) Do(payload []byte) ([]byte, error) {
	if bytes.ContainsRune(payload, '\n') {
		return nil, oops.Code("TRANSPORT_INVALID_PAYLOAD").Errorf("payload must not contain a newline")
	}
	if _, err := c.conn.Write(append(payload, '\n')); err != nil {
		return nil, oops.Code("TRANSPORT_SEND_FAILED").Wrap(err)
	}
	reply, err := c.reader.ReadBytes('\n')
	if err != nil {
		return nil, oops.Code("TRANSPORT_RECV_FAILED").Wrap(err)
	}
	return bytes.TrimRight(reply, "\r\n"), nil
}

// Close closes the connection.
func (c *Client) Close() error {
	if err := c.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return oops.Code("TRANSPORT_CLOSE_FAILED").Wrap(err)
	}
	return nil
}
