// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package zmq

import (
	"context"
	"time"

	"github.com/go-zeromq/zmq4"
	"github.com/samber/oops"
)

// Client is a ZeroMQ REQ client. Calls must strictly alternate request and
// reply, so a Client is not safe for concurrent use.
type Client struct {
	sock     zmq4.Socket
	endpoint string
}

// Dial connects a REQ socket to endpoint. The socket lives until Close or
// until ctx is cancelled.
func Dial(ctx context.Context, endpoint string) (*Client, error) {
	endpoint = NormalizeEndpoint(endpoint)
	sock := zmq4.NewReq(ctx, zmq4.WithDialerRetry(250*time.Millisecond))
	if err := sock.Dial(endpoint); err != nil {
		_ = sock.Close() //nolint:errcheck // dial error takes precedence
		return nil, oops.Code("TRANSPORT_DIAL_FAILED").With("endpoint", endpoint).Wrap(err)
	}
	return &Client{sock: sock, endpoint: endpoint}, nil
}

// Do sends one request and waits for its reply.
func (c *Client) Do(payload []byte) ([]byte, error) {
	if err := c.sock.Send(zmq4.NewMsg(payload)); err != nil {
		return nil, oops.Code("TRANSPORT_SEND_FAILED").With("endpoint", c.endpoint).Wrap(err)
	}
	reply, err := c.sock.Recv()
	if err != nil {
		return nil, oops.Code("TRANSPORT_RECV_FAILED").With("endpoint", c.endpoint).Wrap(err)
	}
	return reply.Bytes(), nil
}

// Close closes the socket.
func (c *Client) Close() error {
	if err := c.sock.Close(); err != nil {
		return oops.Code("TRANSPORT_CLOSE_FAILED").Wrap(err)
	}
	return nil
}
