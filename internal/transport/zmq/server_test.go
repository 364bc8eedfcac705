// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package zmq_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/userauth/internal/transport/zmq"
)

type echoHandler struct{}

func (echoHandler) HandleMessage(_ context.Context, msg []byte) []byte {
	return []byte(strings.ToUpper(string(msg)))
}

func startServer(t *testing.T) (*zmq.Server, func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	srv := zmq.NewServer("tcp://127.0.0.1:0", echoHandler{}, nil)

	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	require.Eventually(t, func() bool { return srv.Addr() != "" }, 5*time.Second, 10*time.Millisecond)

	return srv, func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	assert.Equal(t, "tcp://0.0.0.0:5555", zmq.NormalizeEndpoint(zmq.DefaultEndpoint))
	assert.Equal(t, "tcp://127.0.0.1:6000", zmq.NormalizeEndpoint("tcp://127.0.0.1:6000"))
	assert.Equal(t, "ipc:///tmp/auth.sock", zmq.NormalizeEndpoint("ipc:///tmp/auth.sock"))
}

func TestServer_RequestReply(t *testing.T) {
	srv, stop := startServer(t)
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := zmq.Dial(ctx, srv.Addr())
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	for _, msg := range []string{"first", "second", "third"} {
		reply, err := client.Do([]byte(msg))
		require.NoError(t, err)
		assert.Equal(t, strings.ToUpper(msg), string(reply))
	}
}

func TestServer_ListenFailure(t *testing.T) {
	srv := zmq.NewServer("bogus://nowhere", echoHandler{}, nil)
	err := srv.Run(context.Background())
	require.Error(t, err)
	assert.Empty(t, srv.Addr())
}
