package onboarding

import (
	"context"
	"time"

	"github.com/vanshika/indica/backend/internal/domain"
)

// AddressLookup resolves a postal code to an address. A well-formed "no match"
// answer is reported as domain.ErrPostalCodeNotFound.
type AddressLookup interface {
	Lookup(ctx context.Context, postalCode string) (domain.Address, error)
}

// AccountRegistrar creates the account for a completed signup.
type AccountRegistrar interface {
	Register(ctx context.Context, reg domain.Registration) (domain.Account, error)
}

// PlanIssuer issues the installment plan for an existing account.
type PlanIssuer interface {
	IssuePlan(ctx context.Context, req domain.PlanRequest) (domain.InstallmentPlan, error)
}

// ReferralRecorder credits the inviting member once an account exists.
type ReferralRecorder interface {
	RecordReferral(ctx context.Context, referral domain.Referral) error
}

// Outcome classifies the result of a remote call for observers.
type Outcome string

const (
	OutcomeOK       Outcome = "ok"
	OutcomeNotFound Outcome = "not_found"
	OutcomeError    Outcome = "error"
)

// Observer receives wizard events, typically to feed metrics.
type Observer interface {
	StageChanged(from, to Stage)
	ValidationFailed(stage Stage, reason Reason)
	RemoteCallFinished(call Call, outcome Outcome, elapsed time.Duration)
	StaleLookupDiscarded()
}

type noopObserver struct{}

func (noopObserver) StageChanged(Stage, Stage) {}
func (noopObserver) ValidationFailed(Stage, Reason) {}
func (noopObserver) RemoteCallFinished(Call, Outcome, time.Duration) {}
func (noopObserver) StaleLookupDiscarded() {}
