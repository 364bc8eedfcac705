// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package protocol

import (
	"bytes"
	"encoding/json"

	"github.com/samber/oops"
)

// Status is the outcome reported in every response.
type Status string

// Response statuses.
const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// Response is a reply message. Optional fields are omitted when nil; field
// order here is the order on the wire.
type Response struct {
	Status        Status  `json:"status" jsonschema:"enum=ok,enum=error"`
	Message       string  `json:"message"`
	Username      *string `json:"username,omitempty"`
	Authenticated *bool   `json:"authenticated,omitempty"`
	SessionID     *string `json:"session_id,omitempty"`
	ResetCode     *string `json:"reset_code,omitempty"`
}

// OK builds a success response.
func OK(message string) Response {
	return Response{Status: StatusOK, Message: message}
}

// Fail builds an error response.
func Fail(message string) Response {
	return Response{Status: StatusError, Message: message}
}

// WithUsername sets the username field.
func (r Response) WithUsername(username string) Response {
	r.Username = &username
	return r
}

// WithAuthenticated sets the authenticated field.
func (r Response) WithAuthenticated(authenticated bool) Response {
	r.Authenticated = &authenticated
	return r
}

// WithSessionID sets the session_id field.
func (r Response) WithSessionID(id string) Response {
	r.SessionID = &id
	return r
}

// WithResetCode sets the reset_code field.
func (r Response) WithResetCode(code string) Response {
	r.ResetCode = &code
	return r
}

// Messages shared by every handler.
const (
	MsgInvalidJSON   = "Invalid JSON"
	MsgInternalError = "Internal server error"
)

// Encode renders r as compact JSON without HTML escaping.
func Encode(r Response) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return nil, oops.Code("PROTOCOL_ENCODE_FAILED").Wrap(err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// DecodeResponse parses a reply message.
func DecodeResponse(data []byte) (Response, error) {
	var r Response
	if err := json.Unmarshal(data, &r); err != nil {
		return Response{}, oops.Code(CodeInvalidJSON).Wrap(err)
	}
	return r, nil
}

// fallbackInternalError is sent when a response cannot be encoded.
var fallbackInternalError = []byte(`{"status":"error","message":"Internal server error"}`)

// MustEncode encodes r, falling back to a fixed internal error reply so a
// caller always has something to send.
func MustEncode(r Response) []byte {
	data, err := Encode(r)
	if err != nil {
		return append([]byte(nil), fallbackInternalError...)
	}
	return data
}
