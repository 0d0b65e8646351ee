package domain

import (
	"encoding/json"
	"time"
)

type VerificationState string

const (
	VerificationIdle      VerificationState = "idle"
	VerificationVerifying VerificationState = "verifying"
	VerificationVerified  VerificationState = "verified"
	VerificationFailed    VerificationState = "failed"
)

var verificationTransitions = map[VerificationState][]VerificationState{
	VerificationIdle:      {VerificationVerifying},
	VerificationVerifying: {VerificationVerified, VerificationFailed},
}

func CanTransitionTo(from, to VerificationState) bool {
	for _, next := range verificationTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s VerificationState) IsTerminal() bool {
	return s == VerificationVerified || s == VerificationFailed
}

func (s VerificationState) String() string {
	return string(s)
}

// PaymentConfirmation is the outcome of one verification token. Result holds
// whatever the backend answered, Error the failure text.
type PaymentConfirmation struct {
	Token     string            `json:"token,omitempty"`
	State     VerificationState `json:"state"`
	Result    json.RawMessage   `json:"result,omitempty"`
	Error     string            `json:"error,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}
