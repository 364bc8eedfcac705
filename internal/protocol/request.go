// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package protocol defines the JSON request and response messages exchanged
// with clients.
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/samber/oops"
)

// CodeInvalidJSON is returned by Decode for input that is not one JSON object.
const CodeInvalidJSON = "PROTOCOL_INVALID_JSON"

// Request is a decoded client message. Text fields are trimmed; a field
// that was absent, null, or not a scalar is empty.
type Request struct {
	Action      Action
	RawAction   string
	Username    string
	Password    string
	SessionID   string
	ResetCode   string
	NewPassword string
}

// Decode parses one message. Numbers keep their literal text and booleans
// become "true" or "false".
func Decode(data []byte) (Request, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return Request{}, oops.Code(CodeInvalidJSON).Wrap(err)
	}
	if doc == nil {
		return Request{}, oops.Code(CodeInvalidJSON).Errorf("message is not a JSON object")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Request{}, oops.Code(CodeInvalidJSON).Errorf("trailing data after JSON object")
	}

	var rawAction string
	if s, ok := doc["action"].(string); ok {
		rawAction = strings.TrimSpace(s)
	}
	return Request{
		Action:      ParseAction(rawAction),
		RawAction:   rawAction,
		Username:    field(doc, "username"),
		Password:    field(doc, "password"),
		SessionID:   field(doc, "session_id"),
		ResetCode:   field(doc, "reset_code"),
		NewPassword: field(doc, "new_password"),
	}, nil
}

func field(doc map[string]any, key string) string {
	switch v := doc[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// WireRequest is the JSON shape of a request, used for schema output and by
// clients building messages.
type WireRequest struct {
	Action      string `json:"action,omitempty" jsonschema:"enum=login,enum=logout,enum=register,enum=reset_request,enum=reset_password,description=Handler to run; anything else is treated as login"`
	Username    string `json:"username,omitempty"`
	Password    string `json:"password,omitempty"`
	SessionID   string `json:"session_id,omitempty"`
	ResetCode   string `json:"reset_code,omitempty"`
	NewPassword string `json:"new_password,omitempty"`
}

// Marshal encodes r as a compact JSON object.
func (r WireRequest) Marshal() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, oops.Code("PROTOCOL_ENCODE_FAILED").Wrap(err)
	}
	return data, nil
}
