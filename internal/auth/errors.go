// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

// Error codes attached to errors returned from this package.
const (
	CodeMissingField       = "AUTH_MISSING_FIELD"
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeUsernameTaken      = "AUTH_USERNAME_TAKEN"
	CodeUserNotFound       = "AUTH_USER_NOT_FOUND"
	CodeRegisterFailed     = "AUTH_REGISTER_FAILED"
	CodeLoginFailed        = "AUTH_LOGIN_FAILED"

	CodeSessionNotFound    = "SESSION_NOT_FOUND"
	CodeSessionIDExhausted = "SESSION_ID_EXHAUSTED"

	CodeResetNotFound     = "RESET_NOT_FOUND"
	CodeResetCodeMismatch = "RESET_CODE_MISMATCH"
	CodeResetFailed       = "RESET_FAILED"

	CodeGenerateFailed = "CODE_GENERATE_FAILED"
)
