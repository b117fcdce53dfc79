package domain

import "time"

// Address captures the structured address collected during signup.
type Address struct {
	PostalCode   string
	Street       string
	Number       string
	Complement   string
	Neighborhood string
	City         string
	StateCode    string
}

// Account is the record returned by the account service once a signup is accepted.
type Account struct {
	ID         string
	Name       string
	Email      string
	NationalID string
	CreatedAt  time.Time
}

// InstallmentPlan is the recurring-payment schedule (carnê) issued for an account.
// DocumentURL points at the payment slip the member must settle.
type InstallmentPlan struct {
	ID           string
	DocumentURL  string
	Installments int
	AmountCents  int64
	FirstDueDate time.Time
}

// Referral links an inviting member, identified by referral code, to the account it brought in.
type Referral struct {
	ReferralCode string
	Account      Account
	ReferredAt   time.Time
}
