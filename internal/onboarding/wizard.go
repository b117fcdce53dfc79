package onboarding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vanshika/indica/backend/internal/domain"
)

// Dependencies are the collaborators a Wizard talks to.
type Dependencies struct {
	Lookup    AddressLookup
	Accounts  AccountRegistrar
	Plans     PlanIssuer
	Referrals ReferralRecorder // optional
	Observer  Observer         // optional
	Logger    *slog.Logger
}

// Options tune a Wizard.
type Options struct {
	PlanLabel           string
	LookupTimeout       time.Duration
	RegistrationTimeout time.Duration
	PlanTimeout         time.Duration
	ReferralTimeout     time.Duration
}

const (
	defaultPlanLabel       = "Clube Indica"
	defaultLookupTimeout   = 5 * time.Second
	defaultMutationTimeout = 20 * time.Second
	defaultReferralTimeout = 5 * time.Second
)

func (o Options) withDefaults() Options {
	if strings.TrimSpace(o.PlanLabel) == "" {
		o.PlanLabel = defaultPlanLabel
	}
	if o.LookupTimeout <= 0 {
		o.LookupTimeout = defaultLookupTimeout
	}
	if o.RegistrationTimeout <= 0 {
		o.RegistrationTimeout = defaultMutationTimeout
	}
	if o.PlanTimeout <= 0 {
		o.PlanTimeout = defaultMutationTimeout
	}
	if o.ReferralTimeout <= 0 {
		o.ReferralTimeout = defaultReferralTimeout
	}
	return o
}

// State is a point-in-time copy of the wizard, safe to hand to the presentation layer.
type State struct {
	Stage              Stage
	Fields             Fields
	ReferralCode       string
	Pending            bool
	LastError          string
	AddressLookupError string
	Account            *domain.Account
	InstallmentPlan    *domain.InstallmentPlan
}

// Complete reports whether the workflow reached its terminal state.
func (s State) Complete() bool {
	return s.InstallmentPlan != nil
}

type operation int

const (
	opNone operation = iota
	opLookup
	opRegistration
	opPlan
)

// Wizard is the referral signup state machine for one browsing session.
// All methods are safe for concurrent use; at most one remote call runs at a time.
type Wizard struct {
	mu sync.Mutex

	state     State
	op        operation
	lookupSeq uint64

	deps            Dependencies
	opts            Options
	logger          *slog.Logger
	nowFn           func() time.Time
	registrationKey string
	planKey         string
}

// New starts a wizard for the referral code captured from the inbound link.
func New(referralCode string, deps Dependencies, opts Options) (*Wizard, error) {
	referralCode = strings.TrimSpace(referralCode)
	if referralCode == "" {
		return nil, ErrMissingReferralCode
	}
	if deps.Lookup == nil || deps.Accounts == nil || deps.Plans == nil {
		return nil, errors.New("onboarding: lookup, accounts and plans clients are required")
	}
	if deps.Observer == nil {
		deps.Observer = noopObserver{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Wizard{
		state: State{
			Stage:        StagePersonalData,
			ReferralCode: referralCode,
		},
		deps:            deps,
		opts:            opts.withDefaults(),
		logger:          logger.With("component", "onboarding", "referral_code", referralCode),
		nowFn:           time.Now,
		registrationKey: uuid.NewString(),
		planKey:         uuid.NewString(),
	}, nil
}

// WithClock overrides the time provider (used primarily in tests).
func (w *Wizard) WithClock(nowFn func() time.Time) {
	if nowFn != nil {
		w.nowFn = nowFn
	}
}

// Snapshot returns a copy of the current state.
func (w *Wizard) Snapshot() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

func (w *Wizard) snapshotLocked() State {
	s := w.state
	s.Pending = w.op != opNone
	if s.Account != nil {
		acct := *s.Account
		s.Account = &acct
	}
	if s.InstallmentPlan != nil {
		plan := *s.InstallmentPlan
		s.InstallmentPlan = &plan
	}
	return s
}

// SetField stores one typed value. Completing the postal code triggers the address
// lookup, which runs before SetField returns; its outcome lands in AddressLookupError
// rather than in the returned error.
func (w *Wizard) SetField(ctx context.Context, field Field, value string) error {
	if !field.valid() {
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}

	w.mu.Lock()
	if w.state.Account != nil {
		w.mu.Unlock()
		return ErrFieldsLocked
	}
	if w.op == opRegistration || w.op == opPlan {
		w.mu.Unlock()
		return ErrBusy
	}

	value = normalizeValue(field, value)
	w.state.Fields.set(field, value)
	if field != FieldPostalCode {
		w.mu.Unlock()
		return nil
	}

	// Any postal code edit supersedes lookups already in flight.
	w.lookupSeq++
	w.state.AddressLookupError = ""
	digits := digitsOnly(value)
	if len(digits) != PostalCodeLength {
		if w.op == opLookup {
			w.op = opNone
		}
		w.mu.Unlock()
		return nil
	}
	seq := w.lookupSeq
	w.op = opLookup
	w.mu.Unlock()

	w.lookup(ctx, seq, digits)
	return nil
}

func (w *Wizard) lookup(ctx context.Context, seq uint64, digits string) {
	ctx, cancel := context.WithTimeout(ctx, w.opts.LookupTimeout)
	defer cancel()

	start := w.nowFn()
	addr, err := w.deps.Lookup.Lookup(ctx, digits)
	elapsed := w.nowFn().Sub(start)

	w.mu.Lock()
	defer w.mu.Unlock()

	if seq != w.lookupSeq {
		w.deps.Observer.StaleLookupDiscarded()
		w.logger.Debug("discarding stale postal code lookup", "postal_code", digits)
		return
	}
	defer func() { w.op = opNone }()

	switch {
	case errors.Is(err, domain.ErrPostalCodeNotFound):
		w.state.AddressLookupError = msgPostalCodeNotFound
		w.deps.Observer.RemoteCallFinished(CallAddressLookup, OutcomeNotFound, elapsed)
	case err != nil:
		w.state.AddressLookupError = msgLookupFailed
		w.deps.Observer.RemoteCallFinished(CallAddressLookup, OutcomeError, elapsed)
		w.logger.Warn("postal code lookup failed", "postal_code", digits, "error", err)
	default:
		w.state.Fields.Street = normalizeValue(FieldStreet, addr.Street)
		w.state.Fields.Neighborhood = normalizeValue(FieldNeighborhood, addr.Neighborhood)
		w.state.Fields.City = normalizeValue(FieldCity, addr.City)
		w.state.Fields.StateCode = normalizeValue(FieldStateCode, addr.StateCode)
		w.deps.Observer.RemoteCallFinished(CallAddressLookup, OutcomeOK, elapsed)
	}
}

// Advance runs the validation gate for the current stage and moves forward.
// Leaving the credentials stage also creates the account; the stage only changes
// once the account service accepted the signup.
func (w *Wizard) Advance(ctx context.Context) error {
	w.mu.Lock()
	if w.op != opNone {
		w.mu.Unlock()
		return ErrBusy
	}

	stage := w.state.Stage
	switch stage {
	case StagePersonalData, StageAddress:
		defer w.mu.Unlock()
		if err := w.gateLocked(stage); err != nil {
			return err
		}
		next, _ := stage.next()
		w.moveLocked(next)
		return nil
	case StageCredentials:
		if err := w.gateLocked(stage); err != nil {
			w.mu.Unlock()
			return err
		}
		if w.state.Account != nil {
			w.mu.Unlock()
			return w.invariant("account already exists before leaving credentials")
		}
		reg := w.registrationLocked()
		w.op = opRegistration
		w.mu.Unlock()
		return w.register(ctx, reg)
	case StagePayment:
		w.mu.Unlock()
		return ErrAdvanceNotAllowed
	default:
		w.mu.Unlock()
		return w.invariant(fmt.Sprintf("unknown stage %d", int(stage)))
	}
}

func (w *Wizard) gateLocked(stage Stage) error {
	w.state.LastError = ""
	err := Validate(stage, w.state.Fields)
	if err == nil {
		return nil
	}
	w.state.LastError = err.Error()
	var verr *ValidationError
	if errors.As(err, &verr) {
		w.deps.Observer.ValidationFailed(stage, verr.Reason)
	}
	return err
}

func (w *Wizard) moveLocked(to Stage) {
	from := w.state.Stage
	w.state.Stage = to
	w.deps.Observer.StageChanged(from, to)
	w.logger.Debug("stage changed", "from", from.String(), "to", to.String())
}

func (w *Wizard) registrationLocked() domain.Registration {
	f := w.state.Fields
	return domain.Registration{
		Name:           f.Name,
		NationalID:     digitsOnly(f.NationalID),
		Email:          f.Email,
		Phone:          digitsOnly(f.Phone),
		Password:       f.Password,
		ReferralCode:   w.state.ReferralCode,
		Address:        f.Address(),
		IdempotencyKey: w.registrationKey,
	}
}

func (w *Wizard) register(ctx context.Context, reg domain.Registration) error {
	callCtx, cancel := context.WithTimeout(ctx, w.opts.RegistrationTimeout)
	defer cancel()

	start := w.nowFn()
	acct, err := w.deps.Accounts.Register(callCtx, reg)
	elapsed := w.nowFn().Sub(start)

	w.mu.Lock()
	w.op = opNone
	if err != nil {
		msg := userMessage(err, msgRegistrationFailed)
		w.state.LastError = msg
		w.mu.Unlock()
		w.deps.Observer.RemoteCallFinished(CallRegistration, OutcomeError, elapsed)
		w.logger.Warn("account registration failed", "error", err)
		return &RemoteError{Call: CallRegistration, Message: msg, Err: err}
	}
	if w.state.Account != nil {
		w.mu.Unlock()
		return w.invariant("account set twice")
	}
	w.state.Account = &acct
	w.moveLocked(StagePayment)
	referral := domain.Referral{
		ReferralCode: w.state.ReferralCode,
		Account:      acct,
		ReferredAt:   w.nowFn().UTC(),
	}
	w.mu.Unlock()

	w.deps.Observer.RemoteCallFinished(CallRegistration, OutcomeOK, elapsed)
	w.logger.Info("account registered", "account_id", acct.ID)
	w.recordReferral(ctx, referral)
	return nil
}

func (w *Wizard) recordReferral(ctx context.Context, referral domain.Referral) {
	if w.deps.Referrals == nil {
		return
	}
	// The account already exists remotely, so the ledger write must outlive the caller.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.opts.ReferralTimeout)
	defer cancel()
	if err := w.deps.Referrals.RecordReferral(ctx, referral); err != nil {
		w.logger.Error("recording referral failed", "account_id", referral.Account.ID, "error", err)
	}
}

// Back returns to the previous stage. Only Address and Credentials allow it.
func (w *Wizard) Back() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.op != opNone {
		return ErrBusy
	}
	prev, ok := w.state.Stage.previous()
	if !ok {
		return ErrBackNotAllowed
	}
	w.state.LastError = ""
	w.moveLocked(prev)
	return nil
}

// RequestPlan issues the installment plan for the created account. Once a plan
// exists further calls return nil without contacting the billing service.
func (w *Wizard) RequestPlan(ctx context.Context) error {
	w.mu.Lock()
	if w.op != opNone {
		w.mu.Unlock()
		return ErrBusy
	}
	if w.state.InstallmentPlan != nil {
		w.mu.Unlock()
		return nil
	}
	if w.state.Stage != StagePayment {
		w.mu.Unlock()
		return ErrPlanNotAvailable
	}
	if w.state.Account == nil {
		w.mu.Unlock()
		return w.invariant("payment stage reached without an account")
	}

	w.state.LastError = ""
	acct := *w.state.Account
	holder := acct.Name
	if strings.TrimSpace(holder) == "" {
		holder = w.state.Fields.Name
	}
	req := domain.PlanRequest{
		AccountID:      acct.ID,
		Description:    fmt.Sprintf("%s - %s", w.opts.PlanLabel, holder),
		IdempotencyKey: w.planKey,
	}
	w.op = opPlan
	w.mu.Unlock()

	callCtx, cancel := context.WithTimeout(ctx, w.opts.PlanTimeout)
	defer cancel()

	start := w.nowFn()
	plan, err := w.deps.Plans.IssuePlan(callCtx, req)
	elapsed := w.nowFn().Sub(start)

	w.mu.Lock()
	w.op = opNone
	if err != nil {
		msg := userMessage(err, msgPlanFailed)
		w.state.LastError = msg
		w.mu.Unlock()
		w.deps.Observer.RemoteCallFinished(CallPlanIssuance, OutcomeError, elapsed)
		w.logger.Warn("installment plan issuance failed", "account_id", acct.ID, "error", err)
		return &RemoteError{Call: CallPlanIssuance, Message: msg, Err: err}
	}
	w.state.InstallmentPlan = &plan
	w.mu.Unlock()

	w.deps.Observer.RemoteCallFinished(CallPlanIssuance, OutcomeOK, elapsed)
	w.logger.Info("onboarding complete", "account_id", acct.ID, "plan_id", plan.ID)
	return nil
}

func (w *Wizard) invariant(detail string) error {
	w.logger.Error("onboarding invariant violated", "detail", detail)
	return fmt.Errorf("%w: %s", ErrInvariantViolation, detail)
}
