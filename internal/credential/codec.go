// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package credential

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/samber/oops"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// Format is an on-disk encoding of Credentials.
type Format int

// Supported formats.
const (
	FormatJSON Format = iota
	FormatYAML
)

func (f Format) String() string {
	if f == FormatYAML {
		return "yaml"
	}
	return "json"
}

// FormatForPath picks YAML for .yaml/.yml paths and JSON otherwise.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Encode renders creds. JSON output is indented by four spaces and ends
// in a newline.
func Encode(f Format, creds Credentials) ([]byte, error) {
	if creds == nil {
		creds = Credentials{}
	}
	if f == FormatYAML {
		data, err := yaml.Marshal(map[string]string(creds))
		if err != nil {
			return nil, oops.Code(CodeInvalidData).With("format", f.String()).Wrap(err)
		}
		return data, nil
	}
	data, err := json.MarshalIndent(creds, "", "    ")
	if err != nil {
		return nil, oops.Code(CodeInvalidData).With("format", f.String()).Wrap(err)
	}
	return append(data, '\n'), nil
}

// Decode parses and validates a credentials document. Anything other than
// an object of string values is rejected.
func Decode(f Format, data []byte) (Credentials, error) {
	raw := data
	if f == FormatYAML {
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, oops.Code(CodeInvalidData).With("format", f.String()).Wrap(err)
		}
		if doc == nil {
			doc = map[string]any{}
		}
		converted, err := json.Marshal(doc)
		if err != nil {
			return nil, oops.Code(CodeInvalidData).With("format", f.String()).Wrap(err)
		}
		raw = converted
	}

	doc, err := jschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, oops.Code(CodeInvalidData).With("format", f.String()).Wrap(err)
	}
	if err := Validate(doc); err != nil {
		return nil, oops.With("format", f.String()).Wrap(err)
	}

	var creds Credentials
	if err := json.Unmarshal(raw, &creds); err != nil {
		return nil, oops.Code(CodeInvalidData).With("format", f.String()).Wrap(err)
	}
	return creds, nil
}
