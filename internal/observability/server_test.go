// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package observability

import (
	"context"
	"io"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedState struct{ sessions, resets int }

func (f fixedState) ActiveSessions() int { return f.sessions }
func (f fixedState) PendingResets() int  { return f.resets }

func startServer(t *testing.T, isReady ReadinessChecker, extra ...prometheus.Collector) *Server {
	t.Helper()
	server, err := NewServer("127.0.0.1:0", isReady, extra...)
	require.NoError(t, err)
	_, err = server.Start()
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, server.Stop(ctx))
	})
	require.NotEmpty(t, server.Addr())
	return server
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url) //nolint:gosec,noctx // test-only local URL
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestServer_Metrics(t *testing.T) {
	server := startServer(t, nil, StateCollectors(fixedState{sessions: 3, resets: 1})...)

	status, body := get(t, "http://"+server.Addr()+"/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "go_goroutines")
	assert.Contains(t, body, "userauth_active_sessions 3")
	assert.Contains(t, body, "userauth_pending_resets 1")
}

func TestServer_Liveness(t *testing.T) {
	server := startServer(t, func() bool { return false })

	status, body := get(t, "http://"+server.Addr()+"/healthz/liveness")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok\n", body)
}

func TestServer_Readiness(t *testing.T) {
	var ready atomic.Bool
	server := startServer(t, ready.Load)
	url := "http://" + server.Addr() + "/healthz/readiness"

	status, body := get(t, url)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "not ready\n", body)

	ready.Store(true)
	status, body = get(t, url)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok\n", body)
}

func TestServer_NilReadinessIsReady(t *testing.T) {
	server := startServer(t, nil)
	status, _ := get(t, "http://"+server.Addr()+"/healthz/readiness")
	assert.Equal(t, http.StatusOK, status)
}

func TestServer_DoubleStart(t *testing.T) {
	server := startServer(t, nil)
	_, err := server.Start()
	assert.Error(t, err)
}

func TestServer_StopBeforeStart(t *testing.T) {
	server, err := NewServer("127.0.0.1:0", nil)
	require.NoError(t, err)
	assert.NoError(t, server.Stop(context.Background()))
	assert.Empty(t, server.Addr())
}

func TestNewServer_DuplicateCollector(t *testing.T) {
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "dup_total", Help: "dup"})
	_, err := NewServer("127.0.0.1:0", nil, c, c)
	assert.Error(t, err)
}

func TestServer_ListenFailure(t *testing.T) {
	server, err := NewServer("256.0.0.1:-1", nil)
	require.NoError(t, err)
	_, err = server.Start()
	require.Error(t, err)

	// A failed start leaves the server startable again.
	server.addr = "127.0.0.1:0"
	_, err = server.Start()
	require.NoError(t, err)
	assert.NoError(t, server.Stop(context.Background()))
}
