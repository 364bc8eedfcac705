// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"io"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/userauth/internal/protocol"
	"github.com/holomush/userauth/internal/transport/line"
	"github.com/holomush/userauth/internal/transport/zmq"
)

// requester sends one request and returns its reply.
type requester interface {
	Do(payload []byte) ([]byte, error)
	Close() error
}

type requestConfig struct {
	transport string
	endpoint  string
	timeout   time.Duration
	demo      bool
	req       protocol.WireRequest
}

const defaultRequestEndpoint = "tcp://127.0.0.1:5555"

// NewRequestCmd creates the request subcommand.
func NewRequestCmd() *cobra.Command {
	cfg := &requestConfig{}

	cmd := &cobra.Command{
		Use:   "request",
		Short: "Send a request to a running userauth service",
		Long: `Send one request and print the reply. With --demo, run the scripted
password reset flow: login, reset_request, reset_password with the issued
code, then login with the new password.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.timeout)
			defer cancel()

			client, err := dialRequester(ctx, cfg.transport, cfg.endpoint)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }() //nolint:errcheck // best-effort close

			if cfg.demo {
				return runDemo(cmd.OutOrStdout(), client, cfg.req)
			}
			_, err = send(cmd.OutOrStdout(), client, cfg.req)
			return err
		},
	}

	cmd.Flags().StringVar(&cfg.transport, "transport", "zmq", "transport to use (zmq or line)")
	cmd.Flags().StringVar(&cfg.endpoint, "endpoint", defaultRequestEndpoint, "server endpoint (zmq URL or host:port for line)")
	cmd.Flags().DurationVar(&cfg.timeout, "timeout", 10*time.Second, "overall timeout")
	cmd.Flags().BoolVar(&cfg.demo, "demo", false, "run the scripted password reset flow")
	cmd.Flags().StringVar(&cfg.req.Action, "action", "", "request action (login, logout, register, reset_request, reset_password)")
	cmd.Flags().StringVar(&cfg.req.Username, "username", "", "username")
	cmd.Flags().StringVar(&cfg.req.Password, "password", "", "password")
	cmd.Flags().StringVar(&cfg.req.SessionID, "session-id", "", "session id for logout")
	cmd.Flags().StringVar(&cfg.req.ResetCode, "reset-code", "", "reset code for reset_password")
	cmd.Flags().StringVar(&cfg.req.NewPassword, "new-password", "", "new password for reset_password")

	return cmd
}

func dialRequester(ctx context.Context, transport, endpoint string) (requester, error) {
	switch transport {
	case "zmq":
		c, err := zmq.Dial(ctx, endpoint)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "line":
		c, err := line.Dial(ctx, endpoint)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, oops.Code("REQUEST_INVALID_TRANSPORT").
			With("transport", transport).
			Errorf("transport must be 'zmq' or 'line', got %q", transport)
	}
}

// send writes the request and its reply to out and returns the decoded reply.
func send(out io.Writer, client requester, req protocol.WireRequest) (protocol.Response, error) {
	payload, err := req.Marshal()
	if err != nil {
		return protocol.Response{}, err
	}
	reply, err := client.Do(payload)
	if err != nil {
		return protocol.Response{}, err
	}
	//nolint:errcheck // console output
	io.WriteString(out, "> "+string(payload)+"\n< "+string(reply)+"\n")

	resp, err := protocol.DecodeResponse(reply)
	if err != nil {
		return protocol.Response{}, err
	}
	return resp, nil
}

// runDemo runs the login / reset / login flow for req.Username.
func runDemo(out io.Writer, client requester, req protocol.WireRequest) error {
	if req.Username == "" || req.Password == "" || req.NewPassword == "" {
		return oops.Code("REQUEST_INVALID").Errorf("--demo needs --username, --password and --new-password")
	}

	if _, err := send(out, client, protocol.WireRequest{
		Action: "login", Username: req.Username, Password: req.Password,
	}); err != nil {
		return err
	}

	resp, err := send(out, client, protocol.WireRequest{Action: "reset_request", Username: req.Username})
	if err != nil {
		return err
	}
	if resp.Status != protocol.StatusOK || resp.ResetCode == nil {
		return oops.Code("REQUEST_DEMO_FAILED").With("message", resp.Message).Errorf("reset_request failed: %s", resp.Message)
	}

	resp, err = send(out, client, protocol.WireRequest{
		Action: "reset_password", Username: req.Username, ResetCode: *resp.ResetCode, NewPassword: req.NewPassword,
	})
	if err != nil {
		return err
	}
	if resp.Status != protocol.StatusOK {
		return oops.Code("REQUEST_DEMO_FAILED").With("message", resp.Message).Errorf("reset_password failed: %s", resp.Message)
	}

	_, err = send(out, client, protocol.WireRequest{
		Action: "login", Username: req.Username, Password: req.NewPassword,
	})
	return err
}
