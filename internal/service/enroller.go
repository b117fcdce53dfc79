package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vanshika/indica/backend/internal/onboarding"
)

// WizardFactory builds a fresh wizard for a referral code.
type WizardFactory func(referralCode string) (*onboarding.Wizard, error)

// Enroller drives a wizard through every stage on behalf of an applicant,
// exactly as the browser flow would.
type Enroller struct {
	factory  WizardFactory
	logger   *slog.Logger
	skipPlan bool
}

// NewEnroller creates an Enroller. With skipPlan the run stops at the payment stage.
func NewEnroller(factory WizardFactory, logger *slog.Logger, skipPlan bool) *Enroller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Enroller{factory: factory, logger: logger.With("component", "enroller"), skipPlan: skipPlan}
}

// Enroll runs one applicant to completion.
func (e *Enroller) Enroll(ctx context.Context, in Applicant) (EnrollmentResult, error) {
	who := maskEmail(in.Email)
	wizard, err := e.factory(in.ReferralCode)
	if err != nil {
		return EnrollmentResult{}, fmt.Errorf("applicant %s: %w", who, err)
	}

	steps := []struct {
		stage  onboarding.Stage
		fields []fieldValue
	}{
		{onboarding.StagePersonalData, []fieldValue{
			{onboarding.FieldName, sanitizeString(in.Name)},
			{onboarding.FieldNationalID, in.NationalID},
			{onboarding.FieldEmail, in.Email},
			{onboarding.FieldPhone, in.Phone},
		}},
		{onboarding.StageAddress, []fieldValue{
			{onboarding.FieldPostalCode, in.PostalCode},
			{onboarding.FieldNumber, in.Number},
			{onboarding.FieldComplement, in.Complement},
		}},
		{onboarding.StageCredentials, []fieldValue{
			{onboarding.FieldPassword, in.Password},
			{onboarding.FieldPasswordConfirmation, in.Password},
		}},
	}

	for _, step := range steps {
		for _, fv := range step.fields {
			if err := wizard.SetField(ctx, fv.field, fv.value); err != nil {
				return EnrollmentResult{}, fmt.Errorf("applicant %s: set %s: %w", who, fv.field, err)
			}
		}
		if step.stage == onboarding.StageAddress {
			if err := e.fillAddress(ctx, wizard, in); err != nil {
				return EnrollmentResult{}, fmt.Errorf("applicant %s: %w", who, err)
			}
		}
		if err := wizard.Advance(ctx); err != nil {
			return EnrollmentResult{}, fmt.Errorf("applicant %s: leave %s: %w", who, step.stage, err)
		}
	}

	state := wizard.Snapshot()
	if state.Account == nil {
		return EnrollmentResult{}, fmt.Errorf("applicant %s: %w: no account after registration", who, onboarding.ErrInvariantViolation)
	}
	result := EnrollmentResult{Email: state.Account.Email, AccountID: state.Account.ID}
	if result.Email == "" {
		result.Email = state.Fields.Email
	}
	e.logger.Info("applicant registered", "account_id", result.AccountID, "national_id", maskNationalID(in.NationalID))

	if e.skipPlan {
		return result, nil
	}
	if err := wizard.RequestPlan(ctx); err != nil {
		return result, fmt.Errorf("applicant %s: request plan: %w", who, err)
	}
	plan := wizard.Snapshot().InstallmentPlan
	if plan != nil {
		result.PlanID = plan.ID
		result.DocumentURL = plan.DocumentURL
	}
	return result, nil
}

type fieldValue struct {
	field onboarding.Field
	value string
}

// fillAddress applies explicit address values after the lookup ran. A lookup
// miss is fine when the applicant supplied the address by hand.
func (e *Enroller) fillAddress(ctx context.Context, wizard *onboarding.Wizard, in Applicant) error {
	manual := []fieldValue{
		{onboarding.FieldStreet, in.Street},
		{onboarding.FieldNeighborhood, in.Neighborhood},
		{onboarding.FieldCity, in.City},
		{onboarding.FieldStateCode, in.StateCode},
	}
	for _, fv := range manual {
		if fv.value == "" {
			continue
		}
		if err := wizard.SetField(ctx, fv.field, fv.value); err != nil {
			return fmt.Errorf("set %s: %w", fv.field, err)
		}
	}
	if msg := wizard.Snapshot().AddressLookupError; msg != "" {
		e.logger.Warn("address lookup failed for applicant", "postal_code", in.PostalCode, "lookup_error", msg)
	}
	return nil
}

// IsRetryable reports whether an enrollment failed on a remote call that may
// succeed when run again.
func IsRetryable(err error) bool {
	var remote *onboarding.RemoteError
	return errors.As(err, &remote)
}
