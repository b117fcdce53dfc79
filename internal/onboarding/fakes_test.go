package onboarding

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vanshika/indica/backend/internal/domain"
	"github.com/vanshika/indica/backend/internal/logging"
)

type fakeLookup struct {
	mu        sync.Mutex
	addresses map[string]domain.Address
	err       error
	calls     []string
	// gates, when set, block Lookup for a postal code until the channel is closed.
	gates   map[string]chan struct{}
	started chan string
}

func (f *fakeLookup) Lookup(ctx context.Context, postalCode string) (domain.Address, error) {
	f.mu.Lock()
	f.calls = append(f.calls, postalCode)
	gate := f.gates[postalCode]
	f.mu.Unlock()

	if f.started != nil {
		f.started <- postalCode
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return domain.Address{}, ctx.Err()
		}
	}

	if f.err != nil {
		return domain.Address{}, f.err
	}
	addr, ok := f.addresses[postalCode]
	if !ok {
		return domain.Address{}, domain.ErrPostalCodeNotFound
	}
	return addr, nil
}

type fakeAccounts struct {
	mu      sync.Mutex
	account domain.Account
	err     error
	calls   []domain.Registration
	gate    chan struct{}
	started chan struct{}
}

func (f *fakeAccounts) Register(ctx context.Context, reg domain.Registration) (domain.Account, error) {
	f.mu.Lock()
	f.calls = append(f.calls, reg)
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
	if f.err != nil {
		return domain.Account{}, f.err
	}
	return f.account, nil
}

func (f *fakeAccounts) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakePlans struct {
	mu    sync.Mutex
	plan  domain.InstallmentPlan
	err   error
	calls []domain.PlanRequest
}

func (f *fakePlans) IssuePlan(_ context.Context, req domain.PlanRequest) (domain.InstallmentPlan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if f.err != nil {
		return domain.InstallmentPlan{}, f.err
	}
	return f.plan, nil
}

type fakeRecorder struct {
	mu        sync.Mutex
	referrals []domain.Referral
	err       error
}

func (f *fakeRecorder) RecordReferral(_ context.Context, referral domain.Referral) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.referrals = append(f.referrals, referral)
	return f.err
}

type recordingObserver struct {
	mu          sync.Mutex
	transitions [][2]Stage
	failures    []Reason
	outcomes    map[Call][]Outcome
	stale       int
}

func (o *recordingObserver) StageChanged(from, to Stage) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.transitions = append(o.transitions, [2]Stage{from, to})
}

func (o *recordingObserver) ValidationFailed(_ Stage, reason Reason) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failures = append(o.failures, reason)
}

func (o *recordingObserver) RemoteCallFinished(call Call, outcome Outcome, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.outcomes == nil {
		o.outcomes = map[Call][]Outcome{}
	}
	o.outcomes[call] = append(o.outcomes[call], outcome)
}

func (o *recordingObserver) StaleLookupDiscarded() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stale++
}

// remoteErr mimics a structured API error carrying a user-facing message.
type remoteErr struct {
	msg string
}

func (e *remoteErr) Error() string { return "remote: " + e.msg }

func (e *remoteErr) UserMessage() string { return e.msg }

var errTransport = errors.New("dial tcp: connection refused")

type harness struct {
	lookup   *fakeLookup
	accounts *fakeAccounts
	plans    *fakePlans
	recorder *fakeRecorder
	observer *recordingObserver
}

func newHarness() *harness {
	return &harness{
		lookup: &fakeLookup{addresses: map[string]domain.Address{
			"01310100": {
				PostalCode:   "01310100",
				Street:       "Avenida Paulista",
				Neighborhood: "Bela Vista",
				City:         "São Paulo",
				StateCode:    "SP",
			},
		}},
		accounts: &fakeAccounts{account: domain.Account{
			ID:         "42",
			Name:       "Maria Silva",
			Email:      "maria@example.com",
			NationalID: "12345678900",
		}},
		plans: &fakePlans{plan: domain.InstallmentPlan{
			ID:          "carne-1",
			DocumentURL: "https://billing.example/carnes/carne-1.pdf",
		}},
		recorder: &fakeRecorder{},
		observer: &recordingObserver{},
	}
}

func (h *harness) deps() Dependencies {
	return Dependencies{
		Lookup:    h.lookup,
		Accounts:  h.accounts,
		Plans:     h.plans,
		Referrals: h.recorder,
		Observer:  h.observer,
		Logger:    logging.Discard(),
	}
}
