// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package dispatch routes decoded requests to the auth service and turns
// the results into protocol responses.
package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/holomush/userauth/internal/auth"
	"github.com/holomush/userauth/internal/protocol"
	"github.com/holomush/userauth/pkg/errutil"
)

var tracer = otel.Tracer("userauth/dispatch")

// AuthService is the set of auth operations the dispatcher drives.
type AuthService interface {
	Login(ctx context.Context, username, password string) (auth.Session, error)
	Logout(ctx context.Context, sessionID string) (string, error)
	Register(ctx context.Context, username, password string) error
	RequestReset(ctx context.Context, username string) (auth.ResetTicket, error)
	ResetPassword(ctx context.Context, username, code, newPassword string) error
}

// result carries a handler's response and the error behind it, if any.
type result struct {
	resp protocol.Response
	err  error
}

type handlerFunc func(ctx context.Context, req protocol.Request) result

// Dispatcher maps each action to its handler. Requests for actions without
// a handler go to login.
type Dispatcher struct {
	svc      AuthService
	logger   *slog.Logger
	handlers map[protocol.Action]handlerFunc
	now      func() time.Time
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the dispatcher logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// New creates a Dispatcher over svc.
func New(svc AuthService, opts ...Option) (*Dispatcher, error) {
	if svc == nil {
		return nil, oops.Code("DISPATCH_INVALID").Errorf("auth service is required")
	}
	d := &Dispatcher{svc: svc, now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.New(slog.DiscardHandler)
	}
	d.handlers = map[protocol.Action]handlerFunc{
		protocol.ActionLogin:         d.login,
		protocol.ActionLogout:        d.logout,
		protocol.ActionRegister:      d.register,
		protocol.ActionResetRequest:  d.resetRequest,
		protocol.ActionResetPassword: d.resetPassword,
	}
	return d, nil
}

// HandleMessage decodes one raw message, dispatches it and returns the
// encoded reply. It always returns a reply.
func (d *Dispatcher) HandleMessage(ctx context.Context, msg []byte) []byte {
	req, err := protocol.Decode(msg)
	if err != nil {
		d.logger.WarnContext(ctx, "rejected malformed message", "bytes", len(msg), "error", err)
		recordRequest("unknown", OutcomeInvalid, 0)
		return protocol.MustEncode(protocol.Fail(protocol.MsgInvalidJSON))
	}
	return protocol.MustEncode(d.Dispatch(ctx, req))
}

// Dispatch runs the handler for req.Action.
func (d *Dispatcher) Dispatch(ctx context.Context, req protocol.Request) protocol.Response {
	requestID := ulid.Make().String()
	action := req.Action.String()
	start := d.now()

	ctx, span := tracer.Start(ctx, "userauth.dispatch",
		trace.WithAttributes(
			attribute.String("request.id", requestID),
			attribute.String("request.action", action),
		),
	)
	defer span.End()

	handler, ok := d.handlers[req.Action]
	if !ok {
		handler = d.login
	}
	res := handler(ctx, req)

	outcome := OutcomeOK
	switch {
	case res.resp.Status == protocol.StatusOK:
	case isInternal(res.err):
		outcome = OutcomeInternal
		span.RecordError(res.err)
		span.SetStatus(codes.Error, res.err.Error())
		errutil.LogErrorContext(ctx, d.logger, "request failed", res.err,
			"request_id", requestID, "action", action)
	default:
		outcome = OutcomeRejected
	}
	span.SetAttributes(attribute.String("request.outcome", outcome))
	recordRequest(action, outcome, d.now().Sub(start))

	d.logger.InfoContext(ctx, "request handled",
		"request_id", requestID,
		"action", action,
		"requested_action", req.RawAction,
		"status", string(res.resp.Status),
		"outcome", outcome,
	)
	return res.resp
}

// userFacing lists the codes that map to a specific client message. Every
// other error is internal.
var userFacing = map[string]bool{
	auth.CodeMissingField:       true,
	auth.CodeInvalidCredentials: true,
	auth.CodeUsernameTaken:      true,
	auth.CodeUserNotFound:       true,
	auth.CodeSessionNotFound:    true,
	auth.CodeResetNotFound:      true,
	auth.CodeResetCodeMismatch:  true,
}

func isInternal(err error) bool {
	return err != nil && !userFacing[errutil.Code(err)]
}

func internal(err error) result {
	return result{resp: protocol.Fail(protocol.MsgInternalError), err: err}
}
