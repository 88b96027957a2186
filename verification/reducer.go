// Package verification models the state of the email verification page as a
// pure reducer over actions.
package verification

import (
	"strings"
	"time"
)

// ActionType names a state transition.
type ActionType string

const (
	SetEmail            ActionType = "SET_EMAIL"
	SetVerified         ActionType = "SET_VERIFIED"
	SetVerificationCode ActionType = "SET_VERIFICATION_CODE"
	SetExpiresAt        ActionType = "SET_EXPIRES_AT"
	Reset               ActionType = "RESET"
)

// State is what the verification page shows.
type State struct {
	Email            string     `json:"email"`
	IsVerified       bool       `json:"isVerified"`
	VerificationCode string     `json:"verificationCode,omitempty"`
	ExpiresAt        *time.Time `json:"expiresAt,omitempty"`
}

// Action carries the payload for its Type; other fields are ignored.
type Action struct {
	Type      ActionType
	Email     string
	Verified  bool
	Code      string
	ExpiresAt *time.Time
}

// Initial returns the empty state.
func Initial() State {
	return State{}
}

// Reduce returns the state after applying action. It never mutates state.
// Unknown action types leave the state unchanged.
func Reduce(state State, action Action) State {
	switch action.Type {
	case SetEmail:
		state.Email = action.Email
	case SetVerified:
		state.IsVerified = action.Verified
	case SetVerificationCode:
		state.VerificationCode = action.Code
	case SetExpiresAt:
		if action.ExpiresAt != nil {
			t := *action.ExpiresAt
			state.ExpiresAt = &t
		} else {
			state.ExpiresAt = nil
		}
	case Reset:
		return Initial()
	}
	return state
}

// ReduceAll folds actions over state in order.
func ReduceAll(state State, actions ...Action) State {
	for _, a := range actions {
		state = Reduce(state, a)
	}
	return state
}

// MaskEmail hides the local part of an address except its first character,
// e.g. "jane@x.com" becomes "j***@x.com". Addresses without '@' or with a
// local part of two characters or fewer are returned unchanged.
func MaskEmail(email string) string {
	at := strings.Index(email, "@")
	if at < 0 {
		return email
	}
	local, domain := []rune(email[:at]), email[at+1:]
	if len(local) <= 2 {
		return email
	}
	return string(local[:1]) + strings.Repeat("*", len(local)-1) + "@" + domain
}
