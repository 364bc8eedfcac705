// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package dispatch_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/holomush/userauth/internal/credential"
)

var _ = Describe("Request handling", func() {
	var s *stack

	BeforeEach(func() {
		s = newStack(credential.Credentials{"ana": "pw1"})
	})

	Describe("login", func() {
		It("opens a fresh session on every success", func() {
			first := s.send(map[string]any{"action": "login", "username": "ana", "password": "pw1"})
			second := s.send(map[string]any{"action": "login", "username": "ana", "password": "pw1"})

			Expect(first).To(HaveKeyWithValue("status", "ok"))
			Expect(first).To(HaveKeyWithValue("message", "Login successful"))
			Expect(first).To(HaveKeyWithValue("username", "ana"))
			Expect(first).To(HaveKeyWithValue("authenticated", true))
			Expect(first["session_id"]).To(MatchRegexp(`^[1-9]\d{5}$`))
			Expect(second["session_id"]).NotTo(Equal(first["session_id"]))
		})

		It("answers unknown users and wrong passwords identically", func() {
			unknown := s.send(map[string]any{"action": "login", "username": "ghost", "password": "pw1"})
			wrong := s.send(map[string]any{"action": "login", "username": "ana", "password": "nope"})

			Expect(unknown).To(Equal(map[string]any{
				"status": "error", "message": "Invalid username or password",
				"username": "ghost", "authenticated": false,
			}))
			Expect(wrong).To(Equal(map[string]any{
				"status": "error", "message": "Invalid username or password",
				"username": "ana", "authenticated": false,
			}))
		})

		It("reports missing fields with an empty username", func() {
			Expect(s.send(map[string]any{"action": "login", "password": "pw1"})).To(Equal(map[string]any{
				"status": "error", "message": "Missing username or password",
				"username": "", "authenticated": false,
			}))
		})

		It("treats whitespace-only fields as missing", func() {
			reply := s.send(map[string]any{"action": "login", "username": "ana", "password": "   "})
			Expect(reply).To(HaveKeyWithValue("message", "Missing username or password"))
			Expect(reply).To(HaveKeyWithValue("username", "ana"))
		})

		It("treats a null password as missing rather than the text None", func() {
			s = newStack(credential.Credentials{"nully": "None"})

			reply := s.sendRaw(`{"action":"login","username":"nully","password":null}`)
			Expect(reply).To(HaveKeyWithValue("message", "Missing username or password"))
			Expect(reply).To(HaveKeyWithValue("authenticated", false))
		})

		It("passes booleans as lower-case text", func() {
			s = newStack(credential.Credentials{"flag": "true"})

			reply := s.sendRaw(`{"action":"login","username":"flag","password":true}`)
			Expect(reply).To(HaveKeyWithValue("message", "Login successful"))
		})
	})

	Describe("dispatch fallback", func() {
		DescribeTable("routes to login",
			func(msg map[string]any) {
				reply := s.send(msg)
				Expect(reply).To(HaveKeyWithValue("message", "Login successful"))
			},
			Entry("missing action", map[string]any{"username": "ana", "password": "pw1"}),
			Entry("empty action", map[string]any{"action": "", "username": "ana", "password": "pw1"}),
			Entry("unknown action", map[string]any{"action": "delete_user", "username": "ana", "password": "pw1"}),
			Entry("non-string action", map[string]any{"action": 3, "username": "ana", "password": "pw1"}),
		)
	})

	Describe("logout", func() {
		It("succeeds once per session", func() {
			login := s.send(map[string]any{"action": "login", "username": "ana", "password": "pw1"})
			id := login["session_id"]

			Expect(s.send(map[string]any{"action": "logout", "session_id": id})).To(Equal(map[string]any{
				"status": "ok", "message": "Logout successful",
			}))
			Expect(s.send(map[string]any{"action": "logout", "session_id": id})).To(Equal(map[string]any{
				"status": "error", "message": "Invalid or expired session_id",
			}))
		})

		It("requires a session id", func() {
			Expect(s.send(map[string]any{"action": "logout"})).To(Equal(map[string]any{
				"status": "error", "message": "Missing session_id",
			}))
		})

		It("accepts a numeric session id", func() {
			login := s.send(map[string]any{"action": "login", "username": "ana", "password": "pw1"})
			Expect(login["session_id"]).To(BeAssignableToTypeOf(""))

			Expect(s.sendRaw(`{"action":"logout","session_id":` + login["session_id"].(string) + `}`)).
				To(HaveKeyWithValue("message", "Logout successful"))
		})
	})

	Describe("register", func() {
		It("matches the documented wire output", func() {
			raw := `{"action":"register","username":"bob","password":"p1"}`
			Expect(string(s.dispatcher.HandleMessage(context.Background(), []byte(raw)))).
				To(Equal(`{"status":"ok","message":"User registered successfully","username":"bob"}`))
			Expect(string(s.dispatcher.HandleMessage(context.Background(), []byte(raw)))).
				To(Equal(`{"status":"error","message":"Username already exists"}`))
		})

		It("persists before replying", func() {
			s.send(map[string]any{"action": "register", "username": "bob", "password": "p1"})
			Expect(s.backend.saves).To(Equal(1))
			Expect(s.backend.data).To(HaveKeyWithValue("bob", "p1"))
		})

		It("requires both fields", func() {
			Expect(s.send(map[string]any{"action": "register", "username": "bob"})).
				To(HaveKeyWithValue("message", "Missing username, or password for registration"))
		})

		It("reports save failures as internal errors and keeps memory unchanged", func() {
			s.backend.saveErr = errors.New("disk full")
			Expect(s.send(map[string]any{"action": "register", "username": "bob", "password": "p1"})).To(Equal(map[string]any{
				"status": "error", "message": "Internal server error",
			}))
			Expect(s.store.Contains("bob")).To(BeFalse())
		})
	})

	Describe("password reset", func() {
		It("completes a round trip", func() {
			issued := s.send(map[string]any{"action": "reset_request", "username": "ana"})
			Expect(issued).To(HaveKeyWithValue("status", "ok"))
			Expect(issued).To(HaveKeyWithValue("message", "Reset code generated"))
			Expect(issued).To(HaveKeyWithValue("username", "ana"))
			code := issued["reset_code"]
			Expect(code).To(MatchRegexp(`^\d{6}$`))

			Expect(s.send(map[string]any{
				"action": "reset_password", "username": "ana", "reset_code": code, "new_password": "pw2",
			})).To(Equal(map[string]any{
				"status": "ok", "message": "Password has been reset successfully", "username": "ana",
			}))

			Expect(s.send(map[string]any{"action": "login", "username": "ana", "password": "pw1"})).
				To(HaveKeyWithValue("message", "Invalid username or password"))
			Expect(s.send(map[string]any{"action": "login", "username": "ana", "password": "pw2"})).
				To(HaveKeyWithValue("message", "Login successful"))

			Expect(s.send(map[string]any{
				"action": "reset_password", "username": "ana", "reset_code": code, "new_password": "pw3",
			})).To(HaveKeyWithValue("message", "No reset code found for this user"))
		})

		It("keeps the ticket after a wrong code", func() {
			issued := s.send(map[string]any{"action": "reset_request", "username": "ana"})
			wrong := "000000"

			Expect(s.send(map[string]any{
				"action": "reset_password", "username": "ana", "reset_code": wrong, "new_password": "pw2",
			})).To(HaveKeyWithValue("message", "Invalid reset code"))

			Expect(s.send(map[string]any{
				"action": "reset_password", "username": "ana", "reset_code": issued["reset_code"], "new_password": "pw2",
			})).To(HaveKeyWithValue("status", "ok"))
		})

		It("only honours the latest code", func() {
			first := s.send(map[string]any{"action": "reset_request", "username": "ana"})
			second := s.send(map[string]any{"action": "reset_request", "username": "ana"})
			if first["reset_code"] == second["reset_code"] {
				Skip("both draws produced the same code")
			}

			Expect(s.send(map[string]any{
				"action": "reset_password", "username": "ana", "reset_code": first["reset_code"], "new_password": "pw2",
			})).To(HaveKeyWithValue("message", "Invalid reset code"))
		})

		It("rejects unknown users and missing fields", func() {
			Expect(s.send(map[string]any{"action": "reset_request", "username": "ghost"})).To(Equal(map[string]any{
				"status": "error", "message": "Username not found",
			}))
			Expect(s.send(map[string]any{"action": "reset_request"})).To(Equal(map[string]any{
				"status": "error", "message": "Username missing",
			}))
			Expect(s.send(map[string]any{"action": "reset_password", "username": "ana"})).To(Equal(map[string]any{
				"status": "error", "message": "Missing username, reset_code, or new_password",
			}))
			Expect(s.send(map[string]any{
				"action": "reset_password", "username": "ana", "reset_code": "123456", "new_password": "x",
			})).To(HaveKeyWithValue("message", "No reset code found for this user"))
		})

		It("accepts a numeric reset code", func() {
			issued := s.send(map[string]any{"action": "reset_request", "username": "ana"})
			raw := `{"action":"reset_password","username":"ana","reset_code":` + issued["reset_code"].(string) + `,"new_password":"pw2"}`
			Expect(s.sendRaw(raw)).To(HaveKeyWithValue("status", "ok"))
		})
	})

	Describe("malformed input", func() {
		DescribeTable("replies Invalid JSON",
			func(raw string) {
				Expect(s.sendRaw(raw)).To(Equal(map[string]any{"status": "error", "message": "Invalid JSON"}))
			},
			Entry("garbage", "not json"),
			Entry("truncated", `{"action":"login"`),
			Entry("array", `[1,2]`),
			Entry("null", `null`),
			Entry("empty", ``),
		)
	})
})
