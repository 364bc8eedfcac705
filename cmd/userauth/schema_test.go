// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaCmd(t *testing.T) {
	for _, name := range []string{"request", "response", "credentials"} {
		t.Run(name, func(t *testing.T) {
			cmd := NewRootCmd()
			buf := new(bytes.Buffer)
			cmd.SetOut(buf)
			cmd.SetArgs([]string{"schema", name})

			require.NoError(t, cmd.Execute())

			var schema map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &schema))
			assert.Contains(t, schema["$id"], "holomush.dev/schemas/")
		})
	}
}

func TestSchemaCmd_RejectsUnknown(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"schema", "sessions"})
	assert.Error(t, cmd.Execute())
}
