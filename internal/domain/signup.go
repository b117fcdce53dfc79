package domain

// Registration is the payload sent to the account service when a signup leaves the credentials stage.
type Registration struct {
	Name           string
	NationalID     string
	Email          string
	Phone          string
	Password       string
	ReferralCode   string
	Address        Address
	IdempotencyKey string
}

// PlanRequest asks the billing service to issue an installment plan for an account.
type PlanRequest struct {
	AccountID      string
	Description    string
	IdempotencyKey string
}
