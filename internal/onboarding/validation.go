package onboarding

import (
	"strings"
	"unicode/utf8"
)

// MinPasswordLength is the shortest password accepted at the credentials stage.
const MinPasswordLength = 6

// Reason identifies why a stage failed validation.
type Reason string

const (
	ReasonMissingPersonalFields Reason = "missing_personal_fields"
	ReasonMissingAddressFields  Reason = "missing_address_fields"
	ReasonMissingPassword       Reason = "missing_password"
	ReasonPasswordMismatch      Reason = "password_mismatch"
	ReasonPasswordTooShort      Reason = "password_too_short"
)

var reasonMessages = map[Reason]string{
	ReasonMissingPersonalFields: "missing personal fields",
	ReasonMissingAddressFields:  "missing address fields",
	ReasonMissingPassword:       "missing password",
	ReasonPasswordMismatch:      "password mismatch",
	ReasonPasswordTooShort:      "password too short",
}

// ValidationError reports that the fields collected so far do not satisfy the current stage.
type ValidationError struct {
	Stage   Stage
	Reason  Reason
	Missing []Field
}

func (e *ValidationError) Error() string {
	if msg, ok := reasonMessages[e.Reason]; ok {
		return msg
	}
	return string(e.Reason)
}

var (
	personalFields = []Field{FieldName, FieldNationalID, FieldEmail, FieldPhone}
	addressFields  = []Field{FieldPostalCode, FieldStreet, FieldNumber, FieldNeighborhood, FieldCity, FieldStateCode}
)

// Validate decides whether fields are sufficient to leave stage. It has no side effects.
func Validate(stage Stage, fields Fields) error {
	switch stage {
	case StagePersonalData:
		return requireAll(stage, fields, personalFields, ReasonMissingPersonalFields)
	case StageAddress:
		return requireAll(stage, fields, addressFields, ReasonMissingAddressFields)
	case StageCredentials:
		return validateCredentials(fields)
	case StagePayment:
		return nil
	default:
		return nil
	}
}

func requireAll(stage Stage, fields Fields, required []Field, reason Reason) error {
	var missing []Field
	for _, f := range required {
		if strings.TrimSpace(fields.Get(f)) == "" {
			missing = append(missing, f)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &ValidationError{Stage: stage, Reason: reason, Missing: missing}
}

func validateCredentials(fields Fields) error {
	var missing []Field
	if fields.Password == "" {
		missing = append(missing, FieldPassword)
	}
	if fields.PasswordConfirmation == "" {
		missing = append(missing, FieldPasswordConfirmation)
	}
	if len(missing) > 0 {
		return &ValidationError{Stage: StageCredentials, Reason: ReasonMissingPassword, Missing: missing}
	}
	if fields.Password != fields.PasswordConfirmation {
		return &ValidationError{Stage: StageCredentials, Reason: ReasonPasswordMismatch}
	}
	if utf8.RuneCountInString(fields.Password) < MinPasswordLength {
		return &ValidationError{Stage: StageCredentials, Reason: ReasonPasswordTooShort}
	}
	return nil
}
