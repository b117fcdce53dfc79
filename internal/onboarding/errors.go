package onboarding

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingReferralCode blocks the wizard before any input is accepted.
	ErrMissingReferralCode = errors.New("referral code missing")
	// ErrBusy rejects an action while another remote call of the same wizard is in flight.
	ErrBusy = errors.New("another operation is in progress")
	// ErrBackNotAllowed is returned when going back from the first or last stage.
	ErrBackNotAllowed = errors.New("cannot go back from this stage")
	// ErrAdvanceNotAllowed is returned when advancing from the payment stage.
	ErrAdvanceNotAllowed = errors.New("payment stage has no forward transition")
	// ErrPlanNotAvailable is returned when a plan is requested before the payment stage.
	ErrPlanNotAvailable = errors.New("payment plan is only available at the payment stage")
	// ErrFieldsLocked is returned when editing fields after the account was created.
	ErrFieldsLocked = errors.New("fields are locked once the account exists")
	// ErrUnknownField is returned for field names outside the form.
	ErrUnknownField = errors.New("unknown field")
	// ErrInvariantViolation marks a defect: the wizard reached a state it must never reach.
	ErrInvariantViolation = errors.New("onboarding invariant violated")
)

// User-facing messages written into the wizard state.
const (
	msgPostalCodeNotFound = "postal code not found"
	msgLookupFailed       = "lookup failed, verify and retry"
	msgRegistrationFailed = "could not create your account, please try again"
	msgPlanFailed         = "could not issue your payment plan, please try again"
)

// Call names one of the remote collaborators.
type Call string

const (
	CallAddressLookup Call = "address_lookup"
	CallRegistration  Call = "registration"
	CallPlanIssuance  Call = "plan_issuance"
)

// RemoteError wraps a failed remote call together with the message shown to the user.
type RemoteError struct {
	Call    Call
	Message string
	Err     error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %v", e.Call, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// userMessage picks the server-provided message carried by err, falling back to fallback.
func userMessage(err error, fallback string) string {
	var carrier interface{ UserMessage() string }
	if errors.As(err, &carrier) {
		if msg := strings.TrimSpace(carrier.UserMessage()); msg != "" {
			return msg
		}
	}
	return fallback
}
