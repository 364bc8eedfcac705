// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package dispatch

import (
	"context"

	"github.com/holomush/userauth/internal/auth"
	"github.com/holomush/userauth/internal/protocol"
	"github.com/holomush/userauth/pkg/errutil"
)

// Client-facing messages.
const (
	MsgLoginMissing        = "Missing username or password"
	MsgLoginOK             = "Login successful"
	MsgLoginInvalid        = "Invalid username or password"
	MsgLogoutMissing       = "Missing session_id"
	MsgLogoutOK            = "Logout successful"
	MsgLogoutInvalid       = "Invalid or expired session_id"
	MsgRegisterMissing     = "Missing username, or password for registration"
	MsgRegisterTaken       = "Username already exists"
	MsgRegisterOK          = "User registered successfully"
	MsgResetRequestMissing = "Username missing"
	MsgResetRequestUnknown = "Username not found"
	MsgResetRequestOK      = "Reset code generated"
	MsgResetMissing        = "Missing username, reset_code, or new_password"
	MsgResetNoTicket       = "No reset code found for this user"
	MsgResetBadCode        = "Invalid reset code"
	MsgResetOK             = "Password has been reset successfully"
)

func (d *Dispatcher) login(ctx context.Context, req protocol.Request) result {
	rejected := func(msg string) protocol.Response {
		return protocol.Fail(msg).WithUsername(req.Username).WithAuthenticated(false)
	}
	if req.Username == "" || req.Password == "" {
		return result{resp: rejected(MsgLoginMissing)}
	}

	session, err := d.svc.Login(ctx, req.Username, req.Password)
	switch {
	case err == nil:
		return result{resp: protocol.OK(MsgLoginOK).
			WithUsername(session.Username).
			WithAuthenticated(true).
			WithSessionID(session.ID)}
	case errutil.HasCode(err, auth.CodeInvalidCredentials):
		return result{resp: rejected(MsgLoginInvalid), err: err}
	case errutil.HasCode(err, auth.CodeMissingField):
		return result{resp: rejected(MsgLoginMissing), err: err}
	default:
		return internal(err)
	}
}

func (d *Dispatcher) logout(ctx context.Context, req protocol.Request) result {
	if req.SessionID == "" {
		return result{resp: protocol.Fail(MsgLogoutMissing)}
	}

	_, err := d.svc.Logout(ctx, req.SessionID)
	switch {
	case err == nil:
		return result{resp: protocol.OK(MsgLogoutOK)}
	case errutil.HasCode(err, auth.CodeSessionNotFound):
		return result{resp: protocol.Fail(MsgLogoutInvalid), err: err}
	case errutil.HasCode(err, auth.CodeMissingField):
		return result{resp: protocol.Fail(MsgLogoutMissing), err: err}
	default:
		return internal(err)
	}
}

func (d *Dispatcher) register(ctx context.Context, req protocol.Request) result {
	if req.Username == "" || req.Password == "" {
		return result{resp: protocol.Fail(MsgRegisterMissing)}
	}

	err := d.svc.Register(ctx, req.Username, req.Password)
	switch {
	case err == nil:
		return result{resp: protocol.OK(MsgRegisterOK).WithUsername(req.Username)}
	case errutil.HasCode(err, auth.CodeUsernameTaken):
		return result{resp: protocol.Fail(MsgRegisterTaken), err: err}
	case errutil.HasCode(err, auth.CodeMissingField):
		return result{resp: protocol.Fail(MsgRegisterMissing), err: err}
	default:
		return internal(err)
	}
}

func (d *Dispatcher) resetRequest(ctx context.Context, req protocol.Request) result {
	if req.Username == "" {
		return result{resp: protocol.Fail(MsgResetRequestMissing)}
	}

	ticket, err := d.svc.RequestReset(ctx, req.Username)
	switch {
	case err == nil:
		return result{resp: protocol.OK(MsgResetRequestOK).
			WithUsername(ticket.Username).
			WithResetCode(ticket.Code)}
	case errutil.HasCode(err, auth.CodeUserNotFound):
		return result{resp: protocol.Fail(MsgResetRequestUnknown), err: err}
	case errutil.HasCode(err, auth.CodeMissingField):
		return result{resp: protocol.Fail(MsgResetRequestMissing), err: err}
	default:
		return internal(err)
	}
}

func (d *Dispatcher) resetPassword(ctx context.Context, req protocol.Request) result {
	if req.Username == "" || req.ResetCode == "" || req.NewPassword == "" {
		return result{resp: protocol.Fail(MsgResetMissing)}
	}

	err := d.svc.ResetPassword(ctx, req.Username, req.ResetCode, req.NewPassword)
	switch {
	case err == nil:
		return result{resp: protocol.OK(MsgResetOK).WithUsername(req.Username)}
	case errutil.HasCode(err, auth.CodeResetNotFound):
		return result{resp: protocol.Fail(MsgResetNoTicket), err: err}
	case errutil.HasCode(err, auth.CodeResetCodeMismatch):
		return result{resp: protocol.Fail(MsgResetBadCode), err: err}
	case errutil.HasCode(err, auth.CodeMissingField):
		return result{resp: protocol.Fail(MsgResetMissing), err: err}
	default:
		return internal(err)
	}
}
