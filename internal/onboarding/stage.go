package onboarding

import (
	"encoding/json"
	"fmt"
)

// Stage is one step of the signup wizard. The set is closed; every decision point
// switches over all four values.
type Stage int

const (
	StagePersonalData Stage = iota
	StageAddress
	StageCredentials
	StagePayment
)

// String returns the wire name of the stage.
func (s Stage) String() string {
	switch s {
	case StagePersonalData:
		return "personal_data"
	case StageAddress:
		return "address"
	case StageCredentials:
		return "credentials"
	case StagePayment:
		return "payment"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// MarshalJSON encodes the stage by name.
func (s Stage) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// next returns the stage that follows s. Payment has no successor.
func (s Stage) next() (Stage, bool) {
	switch s {
	case StagePersonalData:
		return StageAddress, true
	case StageAddress:
		return StageCredentials, true
	case StageCredentials:
		return StagePayment, true
	case StagePayment:
		return s, false
	default:
		return s, false
	}
}

// previous returns the stage before s. Back is only offered from Address and Credentials.
func (s Stage) previous() (Stage, bool) {
	switch s {
	case StagePersonalData:
		return s, false
	case StageAddress:
		return StagePersonalData, true
	case StageCredentials:
		return StageAddress, true
	case StagePayment:
		return s, false
	default:
		return s, false
	}
}

// CanGoBack reports whether a back transition is allowed from s.
func (s Stage) CanGoBack() bool {
	_, ok := s.previous()
	return ok
}
