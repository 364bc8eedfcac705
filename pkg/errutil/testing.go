// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package errutil

import (
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertErrorCode fails unless err resolves to code the same way HasCode
// resolves it for the dispatcher's message mapping.
func AssertErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, Code(err), "error: %v", err)
}

// AssertErrorContext fails unless the oops context of err has key set to value.
func AssertErrorContext(t *testing.T, err error, key string, value any) {
	t.Helper()
	assert.Equal(t, value, mustOops(t, err).Context()[key], "context key %q", key)
}

// AssertErrorHint fails unless the operator hint on err mentions substr.
func AssertErrorHint(t *testing.T, err error, substr string) {
	t.Helper()
	assert.Contains(t, mustOops(t, err).Hint(), substr)
}

func mustOops(t *testing.T, err error) oops.OopsError {
	t.Helper()
	require.Error(t, err)
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok, "expected oops error, got %T", err)
	return oopsErr
}
