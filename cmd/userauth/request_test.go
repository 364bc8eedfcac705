// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/userauth/internal/auth"
	"github.com/holomush/userauth/internal/credential"
	"github.com/holomush/userauth/internal/dispatch"
	"github.com/holomush/userauth/internal/protocol"
	"github.com/holomush/userauth/pkg/errutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memBackend struct {
	mu   sync.Mutex
	data credential.Credentials
}

func (m *memBackend) Load(context.Context) (credential.Credentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := credential.Credentials{}
	for k, v := range m.data {
		out[k] = v
	}
	return out, nil
}

func (m *memBackend) Save(_ context.Context, creds credential.Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = creds
	return nil
}

// localRequester feeds payloads straight into a dispatcher.
type localRequester struct {
	d *dispatch.Dispatcher
}

func (l localRequester) Do(payload []byte) ([]byte, error) {
	return l.d.HandleMessage(context.Background(), payload), nil
}

func (localRequester) Close() error { return nil }

func newLocalRequester(t *testing.T, users credential.Credentials) (localRequester, *memBackend) {
	t.Helper()
	backend := &memBackend{data: users}
	store, err := credential.NewStore(backend)
	require.NoError(t, err)
	require.NoError(t, store.Load(context.Background()))
	svc, err := auth.NewService(store, auth.WithLogger(quietLogger()))
	require.NoError(t, err)
	d, err := dispatch.New(svc, dispatch.WithLogger(quietLogger()))
	require.NoError(t, err)
	return localRequester{d: d}, backend
}

func TestSend_PrintsRequestAndReply(t *testing.T) {
	client, _ := newLocalRequester(t, credential.Credentials{})
	var out bytes.Buffer

	resp, err := send(&out, client, protocol.WireRequest{Action: "register", Username: "bob", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, protocol.StatusOK, resp.Status)
	assert.Equal(t, dispatch.MsgRegisterOK, resp.Message)
	assert.Equal(t,
		"> {\"action\":\"register\",\"username\":\"bob\",\"password\":\"pw\"}\n"+
			"< {\"status\":\"ok\",\"message\":\"User registered successfully\",\"username\":\"bob\"}\n",
		out.String())
}

func TestRunDemo(t *testing.T) {
	client, backend := newLocalRequester(t, credential.Credentials{"alice": "old"})
	var out bytes.Buffer

	err := runDemo(&out, client, protocol.WireRequest{Username: "alice", Password: "old", NewPassword: "new"})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 8, "four request/reply pairs")
	assert.Contains(t, lines[1], `"message":"Login successful"`)
	assert.Contains(t, lines[3], `"message":"Reset code generated"`)
	assert.Contains(t, lines[5], `"message":"Password has been reset successfully"`)
	assert.Contains(t, lines[7], `"message":"Login successful"`)

	assert.Equal(t, "new", backend.data["alice"])
}

func TestRunDemo_UnknownUser(t *testing.T) {
	client, _ := newLocalRequester(t, credential.Credentials{})
	err := runDemo(io.Discard, client, protocol.WireRequest{Username: "ghost", Password: "a", NewPassword: "b"})
	errutil.AssertErrorCode(t, err, "REQUEST_DEMO_FAILED")
}

func TestRunDemo_RequiresFields(t *testing.T) {
	client, _ := newLocalRequester(t, credential.Credentials{})
	err := runDemo(io.Discard, client, protocol.WireRequest{Username: "alice"})
	errutil.AssertErrorCode(t, err, "REQUEST_INVALID")
}

func TestDialRequester_UnknownTransport(t *testing.T) {
	_, err := dialRequester(context.Background(), "carrier-pigeon", "x")
	errutil.AssertErrorCode(t, err, "REQUEST_INVALID_TRANSPORT")
}
