// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/userauth/internal/auth"
	"github.com/holomush/userauth/pkg/errutil"
)

func TestSessionRegistry_CreateResolveRemove(t *testing.T) {
	r := auth.NewSessionRegistry(sequence("123456"))

	s, err := r.Create("ana")
	require.NoError(t, err)
	assert.Equal(t, "123456", s.ID)
	assert.Equal(t, "ana", s.Username)
	assert.False(t, s.CreatedAt.IsZero())

	username, ok := r.Resolve("123456")
	require.True(t, ok)
	assert.Equal(t, "ana", username)

	assert.True(t, r.Remove("123456"))
	assert.False(t, r.Remove("123456"), "second remove reports absence")

	_, ok = r.Resolve("123456")
	assert.False(t, ok)
	assert.Zero(t, r.Len())
}

func TestSessionRegistry_RetriesOnCollision(t *testing.T) {
	r := auth.NewSessionRegistry(sequence("111111", "111111", "111111", "222222"))

	first, err := r.Create("ana")
	require.NoError(t, err)
	second, err := r.Create("ana")
	require.NoError(t, err)

	assert.Equal(t, "111111", first.ID)
	assert.Equal(t, "222222", second.ID)
	assert.Equal(t, 2, r.Len())
}

func TestSessionRegistry_ExhaustedDraws(t *testing.T) {
	r := auth.NewSessionRegistry(sequence("111111"))

	_, err := r.Create("ana")
	require.NoError(t, err)

	_, err = r.Create("bob")
	errutil.AssertErrorCode(t, err, auth.CodeSessionIDExhausted)
	assert.Equal(t, 1, r.Len())
}

func TestSessionRegistry_GeneratorFailure(t *testing.T) {
	r := auth.NewSessionRegistry(auth.CodeFunc(func() (string, error) {
		return "", errors.New("entropy exhausted")
	}))

	_, err := r.Create("ana")
	require.Error(t, err)
	assert.Zero(t, r.Len())
}

func TestSessionRegistry_SameUserManySessions(t *testing.T) {
	r := auth.NewSessionRegistry(sequence("100001", "100002"))

	a, err := r.Create("ana")
	require.NoError(t, err)
	b, err := r.Create("ana")
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.True(t, r.Remove(a.ID))
	username, ok := r.Resolve(b.ID)
	assert.True(t, ok, "other sessions of the same user stay live")
	assert.Equal(t, "ana", username)
}
