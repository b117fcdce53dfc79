package onboarding

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/indica/backend/internal/domain"
)

func newWizard(t *testing.T, h *harness) *Wizard {
	t.Helper()
	w, err := New("MARIA10", h.deps(), Options{PlanLabel: "Clube Indica"})
	require.NoError(t, err)
	return w
}

func fill(t *testing.T, w *Wizard, values map[Field]string) {
	t.Helper()
	for field, value := range values {
		require.NoError(t, w.SetField(context.Background(), field, value))
	}
}

var personal = map[Field]string{
	FieldName:       "Maria Silva",
	FieldNationalID: "123.456.789-00",
	FieldEmail:      "Maria@Example.com",
	FieldPhone:      "(11) 99999-0000",
}

var credentials = map[Field]string{
	FieldPassword:             "segredo123",
	FieldPasswordConfirmation: "segredo123",
}

// toCredentials walks a fresh wizard up to the credentials stage.
func toCredentials(t *testing.T, w *Wizard) {
	t.Helper()
	ctx := context.Background()
	fill(t, w, personal)
	require.NoError(t, w.Advance(ctx))
	require.NoError(t, w.SetField(ctx, FieldPostalCode, "01310-100"))
	require.NoError(t, w.SetField(ctx, FieldNumber, "1000"))
	require.NoError(t, w.Advance(ctx))
	require.Equal(t, StageCredentials, w.Snapshot().Stage)
}

func assertInvariants(t *testing.T, s State) {
	t.Helper()
	assert.Equal(t, s.Stage == StagePayment, s.Account != nil, "account must be set iff stage is payment")
	if s.InstallmentPlan != nil {
		assert.NotNil(t, s.Account, "plan requires an account")
	}
}

func TestNewRequiresReferralCode(t *testing.T) {
	_, err := New("  ", newHarness().deps(), Options{})
	assert.ErrorIs(t, err, ErrMissingReferralCode)
}

func TestNewRequiresClients(t *testing.T) {
	_, err := New("MARIA10", Dependencies{}, Options{})
	assert.Error(t, err)
}

func TestPersonalDataScenarioAdvancesToAddress(t *testing.T) {
	h := newHarness()
	w := newWizard(t, h)

	fill(t, w, map[Field]string{
		FieldName:       "Maria Silva",
		FieldNationalID: "12345678900",
		FieldEmail:      "maria@example.com",
		FieldPhone:      "11999990000",
	})
	require.NoError(t, w.Advance(context.Background()))

	s := w.Snapshot()
	assert.Equal(t, StageAddress, s.Stage)
	assert.Empty(t, s.LastError)
	assert.Equal(t, [][2]Stage{{StagePersonalData, StageAddress}}, h.observer.transitions)
}

func TestAdvanceWithMissingFieldsStays(t *testing.T) {
	h := newHarness()
	w := newWizard(t, h)
	fill(t, w, map[Field]string{FieldName: "Maria Silva"})

	err := w.Advance(context.Background())

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, ReasonMissingPersonalFields, verr.Reason)
	s := w.Snapshot()
	assert.Equal(t, StagePersonalData, s.Stage)
	assert.Equal(t, "missing personal fields", s.LastError)
	assert.Equal(t, []Reason{ReasonMissingPersonalFields}, h.observer.failures)
}

func TestLastErrorClearedOnNextValidationAttempt(t *testing.T) {
	w := newWizard(t, newHarness())
	ctx := context.Background()

	require.Error(t, w.Advance(ctx))
	require.NotEmpty(t, w.Snapshot().LastError)

	fill(t, w, personal)
	require.NoError(t, w.Advance(ctx))
	assert.Empty(t, w.Snapshot().LastError)
}

func TestFieldNormalization(t *testing.T) {
	w := newWizard(t, newHarness())
	fill(t, w, map[Field]string{
		FieldName:     "  José Souza ",
		FieldEmail:    " Jose@Example.COM",
		FieldPassword: " keep spaces ",
	})

	f := w.Snapshot().Fields
	assert.Equal(t, "José Souza", f.Name)
	assert.Equal(t, "jose@example.com", f.Email)
	assert.Equal(t, " keep spaces ", f.Password)
}

func TestSetFieldRejectsUnknownField(t *testing.T) {
	w := newWizard(t, newHarness())
	err := w.SetField(context.Background(), Field("nickname"), "mari")
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestPostalCodeLookupFillsAddress(t *testing.T) {
	h := newHarness()
	w := newWizard(t, h)
	ctx := context.Background()
	fill(t, w, map[Field]string{FieldNumber: "1000", FieldComplement: "apto 12"})

	require.NoError(t, w.SetField(ctx, FieldPostalCode, "01310100"))

	s := w.Snapshot()
	assert.Empty(t, s.AddressLookupError)
	assert.False(t, s.Pending)
	assert.Equal(t, "Avenida Paulista", s.Fields.Street)
	assert.Equal(t, "Bela Vista", s.Fields.Neighborhood)
	assert.Equal(t, "São Paulo", s.Fields.City)
	assert.Equal(t, "SP", s.Fields.StateCode)
	assert.Equal(t, "1000", s.Fields.Number, "number is never touched by the lookup")
	assert.Equal(t, "apto 12", s.Fields.Complement, "complement is never touched by the lookup")
	assert.Equal(t, []Outcome{OutcomeOK}, h.observer.outcomes[CallAddressLookup])
}

func TestPostalCodeLookupStripsNonDigits(t *testing.T) {
	h := newHarness()
	w := newWizard(t, h)

	require.NoError(t, w.SetField(context.Background(), FieldPostalCode, "01310-100"))

	assert.Equal(t, []string{"01310100"}, h.lookup.calls)
	assert.Equal(t, "01310-100", w.Snapshot().Fields.PostalCode)
}

func TestIncompletePostalCodeDoesNotLookup(t *testing.T) {
	h := newHarness()
	w := newWizard(t, h)

	require.NoError(t, w.SetField(context.Background(), FieldPostalCode, "0131010"))
	require.NoError(t, w.SetField(context.Background(), FieldPostalCode, "013101000"))

	assert.Empty(t, h.lookup.calls)
}

func TestPostalCodeNotFoundKeepsFields(t *testing.T) {
	h := newHarness()
	w := newWizard(t, h)
	ctx := context.Background()
	fill(t, w, map[Field]string{FieldStreet: "Rua Manual", FieldCity: "Campinas"})

	require.NoError(t, w.SetField(ctx, FieldPostalCode, "99999999"))

	s := w.Snapshot()
	assert.Equal(t, "postal code not found", s.AddressLookupError)
	assert.Empty(t, s.LastError)
	assert.Equal(t, "Rua Manual", s.Fields.Street)
	assert.Equal(t, "Campinas", s.Fields.City)
	assert.False(t, s.Pending)
}

func TestManualAddressAcceptedAfterNotFound(t *testing.T) {
	w := newWizard(t, newHarness())
	ctx := context.Background()
	fill(t, w, personal)
	require.NoError(t, w.Advance(ctx))

	require.NoError(t, w.SetField(ctx, FieldPostalCode, "99999999"))
	fill(t, w, map[Field]string{
		FieldStreet:       "Rua Manual",
		FieldNumber:       "7",
		FieldNeighborhood: "Centro",
		FieldCity:         "Campinas",
		FieldStateCode:    "sp",
	})

	require.NoError(t, w.Advance(ctx))
	assert.Equal(t, StageCredentials, w.Snapshot().Stage)
}

func TestPostalCodeLookupTransportFailure(t *testing.T) {
	h := newHarness()
	h.lookup.err = errTransport
	w := newWizard(t, h)

	require.NoError(t, w.SetField(context.Background(), FieldPostalCode, "01310100"))

	s := w.Snapshot()
	assert.Equal(t, "lookup failed, verify and retry", s.AddressLookupError)
	assert.Empty(t, s.Fields.Street)
	assert.False(t, s.Pending)
	assert.Equal(t, []Outcome{OutcomeError}, h.observer.outcomes[CallAddressLookup])
}

func TestStaleLookupResponseIsDiscarded(t *testing.T) {
	h := newHarness()
	h.lookup.addresses["20040020"] = domain.Address{
		Street:       "Avenida Rio Branco",
		Neighborhood: "Centro",
		City:         "Rio de Janeiro",
		StateCode:    "RJ",
	}
	first := make(chan struct{})
	second := make(chan struct{})
	h.lookup.gates = map[string]chan struct{}{"01310100": first, "20040020": second}
	h.lookup.started = make(chan string, 2)
	w := newWizard(t, h)
	ctx := context.Background()

	firstDone := make(chan error, 1)
	go func() { firstDone <- w.SetField(ctx, FieldPostalCode, "01310100") }()
	require.Equal(t, "01310100", <-h.lookup.started)
	assert.True(t, w.Snapshot().Pending)

	secondDone := make(chan error, 1)
	go func() { secondDone <- w.SetField(ctx, FieldPostalCode, "20040020") }()
	require.Equal(t, "20040020", <-h.lookup.started)

	// The newer lookup resolves first, then the superseded one arrives late.
	close(second)
	require.NoError(t, <-secondDone)
	close(first)
	require.NoError(t, <-firstDone)

	s := w.Snapshot()
	assert.Equal(t, "Avenida Rio Branco", s.Fields.Street)
	assert.Equal(t, "RJ", s.Fields.StateCode)
	assert.False(t, s.Pending)
	assert.Equal(t, 1, h.observer.stale)
}

func TestEditingPostalCodeInvalidatesInFlightLookup(t *testing.T) {
	h := newHarness()
	gate := make(chan struct{})
	h.lookup.gates = map[string]chan struct{}{"01310100": gate}
	h.lookup.started = make(chan string, 1)
	w := newWizard(t, h)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- w.SetField(ctx, FieldPostalCode, "01310100") }()
	<-h.lookup.started

	require.NoError(t, w.SetField(ctx, FieldPostalCode, "0131010"))
	assert.False(t, w.Snapshot().Pending)

	close(gate)
	require.NoError(t, <-done)

	s := w.Snapshot()
	assert.Empty(t, s.Fields.Street, "stale address must not be applied")
	assert.Equal(t, "0131010", s.Fields.PostalCode)
}

func TestAdvanceRejectedWhileLookupPending(t *testing.T) {
	h := newHarness()
	gate := make(chan struct{})
	h.lookup.gates = map[string]chan struct{}{"01310100": gate}
	h.lookup.started = make(chan string, 1)
	w := newWizard(t, h)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- w.SetField(ctx, FieldPostalCode, "01310100") }()
	<-h.lookup.started

	assert.ErrorIs(t, w.Advance(ctx), ErrBusy)
	assert.ErrorIs(t, w.Back(), ErrBusy)

	close(gate)
	require.NoError(t, <-done)
}

func TestCredentialsTooShortScenario(t *testing.T) {
	h := newHarness()
	w := newWizard(t, h)
	toCredentials(t, w)
	fill(t, w, map[Field]string{FieldPassword: "abc", FieldPasswordConfirmation: "abc"})

	err := w.Advance(context.Background())

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, ReasonPasswordTooShort, verr.Reason)
	s := w.Snapshot()
	assert.Equal(t, StageCredentials, s.Stage)
	assert.Equal(t, "password too short", s.LastError)
	assert.Zero(t, h.accounts.callCount(), "validation failures never reach the account service")
}

func TestRegistrationFailureSurfacesServerMessage(t *testing.T) {
	h := newHarness()
	h.accounts.err = &remoteErr{msg: "email already registered"}
	w := newWizard(t, h)
	toCredentials(t, w)
	fill(t, w, credentials)

	err := w.Advance(context.Background())

	var rerr *RemoteError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, CallRegistration, rerr.Call)
	s := w.Snapshot()
	assert.Equal(t, "email already registered", s.LastError)
	assert.Equal(t, StageCredentials, s.Stage)
	assert.Nil(t, s.Account)
	assert.False(t, s.Pending)
	assertInvariants(t, s)
	assert.Empty(t, h.recorder.referrals)
}

func TestRegistrationFailureFallsBackToGenericMessage(t *testing.T) {
	h := newHarness()
	h.accounts.err = errTransport
	w := newWizard(t, h)
	toCredentials(t, w)
	fill(t, w, credentials)

	require.Error(t, w.Advance(context.Background()))
	assert.Equal(t, msgRegistrationFailed, w.Snapshot().LastError)
}

func TestRegistrationRetryReusesIdempotencyKey(t *testing.T) {
	h := newHarness()
	h.accounts.err = errTransport
	w := newWizard(t, h)
	toCredentials(t, w)
	fill(t, w, credentials)
	ctx := context.Background()

	require.Error(t, w.Advance(ctx))
	h.accounts.err = nil
	require.NoError(t, w.Advance(ctx))

	require.Len(t, h.accounts.calls, 2)
	assert.NotEmpty(t, h.accounts.calls[0].IdempotencyKey)
	assert.Equal(t, h.accounts.calls[0].IdempotencyKey, h.accounts.calls[1].IdempotencyKey)
	assert.Equal(t, StagePayment, w.Snapshot().Stage)
}

func TestRegistrationPayload(t *testing.T) {
	h := newHarness()
	w := newWizard(t, h)
	toCredentials(t, w)
	fill(t, w, credentials)

	require.NoError(t, w.Advance(context.Background()))

	require.Len(t, h.accounts.calls, 1)
	reg := h.accounts.calls[0]
	assert.Equal(t, "Maria Silva", reg.Name)
	assert.Equal(t, "12345678900", reg.NationalID)
	assert.Equal(t, "maria@example.com", reg.Email)
	assert.Equal(t, "11999990000", reg.Phone)
	assert.Equal(t, "segredo123", reg.Password)
	assert.Equal(t, "MARIA10", reg.ReferralCode)
	assert.Equal(t, "01310100", reg.Address.PostalCode)
	assert.Equal(t, "Avenida Paulista", reg.Address.Street)
}

func TestFullSignupScenario(t *testing.T) {
	h := newHarness()
	w := newWizard(t, h)
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	w.WithClock(func() time.Time { return now })
	ctx := context.Background()

	toCredentials(t, w)
	fill(t, w, credentials)
	require.NoError(t, w.Advance(ctx))

	s := w.Snapshot()
	require.NotNil(t, s.Account)
	assert.Equal(t, "42", s.Account.ID)
	assert.Equal(t, StagePayment, s.Stage)
	assert.False(t, s.Complete())
	assertInvariants(t, s)

	require.NoError(t, w.RequestPlan(ctx))

	require.Len(t, h.plans.calls, 1)
	assert.Equal(t, "42", h.plans.calls[0].AccountID)
	assert.Equal(t, "Clube Indica - Maria Silva", h.plans.calls[0].Description)

	s = w.Snapshot()
	require.NotNil(t, s.InstallmentPlan)
	assert.Equal(t, "https://billing.example/carnes/carne-1.pdf", s.InstallmentPlan.DocumentURL)
	assert.True(t, s.Complete())
	assert.Equal(t, StagePayment, s.Stage)
	assertInvariants(t, s)

	require.Len(t, h.recorder.referrals, 1)
	assert.Equal(t, "MARIA10", h.recorder.referrals[0].ReferralCode)
	assert.Equal(t, "42", h.recorder.referrals[0].Account.ID)
	assert.Equal(t, now, h.recorder.referrals[0].ReferredAt)
}

func TestRequestPlanIsIdempotent(t *testing.T) {
	h := newHarness()
	w := newWizard(t, h)
	toCredentials(t, w)
	fill(t, w, credentials)
	ctx := context.Background()
	require.NoError(t, w.Advance(ctx))

	require.NoError(t, w.RequestPlan(ctx))
	require.NoError(t, w.RequestPlan(ctx))

	assert.Len(t, h.plans.calls, 1)
}

func TestRequestPlanFailureAllowsRetry(t *testing.T) {
	h := newHarness()
	h.plans.err = &remoteErr{msg: "customer has pending charges"}
	w := newWizard(t, h)
	toCredentials(t, w)
	fill(t, w, credentials)
	ctx := context.Background()
	require.NoError(t, w.Advance(ctx))

	err := w.RequestPlan(ctx)
	var rerr *RemoteError
	require.ErrorAs(t, err, &rerr)
	s := w.Snapshot()
	assert.Equal(t, "customer has pending charges", s.LastError)
	assert.Nil(t, s.InstallmentPlan)

	h.plans.err = nil
	require.NoError(t, w.RequestPlan(ctx))
	s = w.Snapshot()
	assert.Empty(t, s.LastError)
	assert.NotNil(t, s.InstallmentPlan)
	assert.Len(t, h.plans.calls, 2)
	assert.Equal(t, h.plans.calls[0].IdempotencyKey, h.plans.calls[1].IdempotencyKey)
}

func TestRequestPlanBeforePaymentStage(t *testing.T) {
	h := newHarness()
	w := newWizard(t, h)

	assert.ErrorIs(t, w.RequestPlan(context.Background()), ErrPlanNotAvailable)
	assert.Empty(t, h.plans.calls)
}

func TestRequestPlanWithoutAccountIsInvariantViolation(t *testing.T) {
	h := newHarness()
	w := newWizard(t, h)
	// Force an unreachable state to prove the guard blocks the remote call.
	w.state.Stage = StagePayment

	assert.ErrorIs(t, w.RequestPlan(context.Background()), ErrInvariantViolation)
	assert.Empty(t, h.plans.calls)
}

func TestReferralRecorderFailureDoesNotBlockSignup(t *testing.T) {
	h := newHarness()
	h.recorder.err = errors.New("graph unavailable")
	w := newWizard(t, h)
	toCredentials(t, w)
	fill(t, w, credentials)

	require.NoError(t, w.Advance(context.Background()))
	assert.Equal(t, StagePayment, w.Snapshot().Stage)
}

func TestBackTransitions(t *testing.T) {
	w := newWizard(t, newHarness())
	ctx := context.Background()

	assert.ErrorIs(t, w.Back(), ErrBackNotAllowed)

	toCredentials(t, w)
	require.NoError(t, w.Back())
	assert.Equal(t, StageAddress, w.Snapshot().Stage)
	require.NoError(t, w.Back())
	assert.Equal(t, StagePersonalData, w.Snapshot().Stage)

	require.NoError(t, w.Advance(ctx))
	require.NoError(t, w.Advance(ctx))
	fill(t, w, credentials)
	require.NoError(t, w.Advance(ctx))
	assert.ErrorIs(t, w.Back(), ErrBackNotAllowed)
	assert.ErrorIs(t, w.Advance(ctx), ErrAdvanceNotAllowed)
}

func TestFieldsLockedAfterAccount(t *testing.T) {
	w := newWizard(t, newHarness())
	toCredentials(t, w)
	fill(t, w, credentials)
	require.NoError(t, w.Advance(context.Background()))

	err := w.SetField(context.Background(), FieldEmail, "other@example.com")
	assert.ErrorIs(t, err, ErrFieldsLocked)
	assert.Equal(t, "maria@example.com", w.Snapshot().Fields.Email)
}

func TestSecondSubmitRejectedWhileRegistrationPending(t *testing.T) {
	h := newHarness()
	h.accounts.gate = make(chan struct{})
	h.accounts.started = make(chan struct{}, 1)
	w := newWizard(t, h)
	toCredentials(t, w)
	fill(t, w, credentials)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- w.Advance(ctx) }()
	<-h.accounts.started

	assert.True(t, w.Snapshot().Pending)
	assert.ErrorIs(t, w.Advance(ctx), ErrBusy)
	assert.ErrorIs(t, w.SetField(ctx, FieldName, "Outra"), ErrBusy)
	assert.ErrorIs(t, w.RequestPlan(ctx), ErrBusy)

	close(h.accounts.gate)
	require.NoError(t, <-done)
	assert.Equal(t, 1, h.accounts.callCount())
	assertInvariants(t, w.Snapshot())
}

func TestSnapshotIsACopy(t *testing.T) {
	w := newWizard(t, newHarness())
	toCredentials(t, w)
	fill(t, w, credentials)
	require.NoError(t, w.Advance(context.Background()))

	s := w.Snapshot()
	s.Account.ID = "tampered"
	s.Fields.Name = "tampered"

	again := w.Snapshot()
	assert.Equal(t, "42", again.Account.ID)
	assert.Equal(t, "Maria Silva", again.Fields.Name)
}
