// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"crypto/rand"
	"io"
	"math/big"
	"strconv"

	"github.com/samber/oops"
)

// Bounds of the six-digit codes used as session ids and reset codes.
const (
	CodeMin = 100000
	CodeMax = 999999
)

// CodeGenerator produces six-digit decimal codes.
type CodeGenerator interface {
	Next() (string, error)
}

// RandomCodes draws codes uniformly from [CodeMin, CodeMax].
type RandomCodes struct {
	// Source defaults to crypto/rand.Reader.
	Source io.Reader
}

var codeSpan = big.NewInt(CodeMax - CodeMin + 1)

// Next returns a fresh code.
func (g RandomCodes) Next() (string, error) {
	src := g.Source
	if src == nil {
		src = rand.Reader
	}
	n, err := rand.Int(src, codeSpan)
	if err != nil {
		return "", oops.Code(CodeGenerateFailed).Wrap(err)
	}
	return strconv.FormatInt(n.Int64()+CodeMin, 10), nil
}

// CodeFunc adapts a function to CodeGenerator.
type CodeFunc func() (string, error)

// Next calls f.
func (f CodeFunc) Next() (string, error) { return f() }
