package enums

import "fmt"

// VerificationState describes whether a store's LINE webhook channel is
// operationally live. NotStarted means the store has no channel credentials
// yet; Awaiting means credentials exist but no delivery has been confirmed;
// Connected means a webhook round-trip was observed.
type VerificationState string

const (
	VerificationStateNotStarted VerificationState = "not_started"
	VerificationStateAwaiting   VerificationState = "awaiting"
	VerificationStateConnected  VerificationState = "connected"
)

var validVerificationStates = []VerificationState{
	VerificationStateNotStarted,
	VerificationStateAwaiting,
	VerificationStateConnected,
}

// String implements fmt.Stringer.
func (v VerificationState) String() string {
	return string(v)
}

// IsValid reports whether the value is a known VerificationState.
func (v VerificationState) IsValid() bool {
	for _, candidate := range validVerificationStates {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseVerificationState converts raw input into a VerificationState.
func ParseVerificationState(value string) (VerificationState, error) {
	for _, candidate := range validVerificationStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid verification state %q", value)
}
