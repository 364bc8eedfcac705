// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package protocol

// Action selects the handler for a request.
type Action int

// Known actions. The zero value is login, which is also what any
// unrecognised action resolves to.
const (
	ActionLogin Action = iota
	ActionLogout
	ActionRegister
	ActionResetRequest
	ActionResetPassword
)

var actionNames = [...]string{
	ActionLogin:         "login",
	ActionLogout:        "logout",
	ActionRegister:      "register",
	ActionResetRequest:  "reset_request",
	ActionResetPassword: "reset_password",
}

// String returns the wire name of the action.
func (a Action) String() string {
	if a < 0 || int(a) >= len(actionNames) {
		return actionNames[ActionLogin]
	}
	return actionNames[a]
}

// ParseAction maps a wire name to an Action. Matching is exact; anything
// else, including the empty string, is login.
func ParseAction(name string) Action {
	switch name {
	case "logout":
		return ActionLogout
	case "register":
		return ActionRegister
	case "reset_request":
		return ActionResetRequest
	case "reset_password":
		return ActionResetPassword
	default:
		return ActionLogin
	}
}

// Actions lists every action in declaration order.
func Actions() []Action {
	return []Action{ActionLogin, ActionLogout, ActionRegister, ActionResetRequest, ActionResetPassword}
}
