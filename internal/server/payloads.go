package server

import (
	"time"

	"github.com/vanshika/indica/backend/internal/onboarding"
)

type startSessionRequest struct {
	ReferralCode string `json:"referralCode"`
}

type updateFieldsRequest struct {
	Fields map[string]string `json:"fields"`
}

type stateEnvelope struct {
	State snapshotResponse `json:"state"`
	Error string           `json:"error,omitempty"`
}

type stageResponse struct {
	Name    string `json:"name"`
	Ordinal int    `json:"ordinal"`
}

// fieldsResponse mirrors onboarding.Fields with passwords reduced to flags.
type fieldsResponse struct {
	Name                    string `json:"name"`
	NationalID              string `json:"nationalId"`
	Email                   string `json:"email"`
	Phone                   string `json:"phone"`
	PostalCode              string `json:"postalCode"`
	Street                  string `json:"street"`
	Number                  string `json:"number"`
	Complement              string `json:"complement"`
	Neighborhood            string `json:"neighborhood"`
	City                    string `json:"city"`
	StateCode               string `json:"stateCode"`
	PasswordSet             bool   `json:"passwordSet"`
	PasswordConfirmationSet bool   `json:"passwordConfirmationSet"`
}

type accountResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	NationalID string `json:"nationalId"`
}

type planResponse struct {
	ID           string `json:"id"`
	DocumentURL  string `json:"documentUrl"`
	Installments int    `json:"installments,omitempty"`
	AmountCents  int64  `json:"amountCents,omitempty"`
	FirstDueDate string `json:"firstDueDate,omitempty"`
}

type snapshotResponse struct {
	Stage              stageResponse    `json:"stage"`
	Fields             fieldsResponse   `json:"fields"`
	ReferralCode       string           `json:"referralCode"`
	Pending            bool             `json:"pending"`
	LastError          string           `json:"lastError,omitempty"`
	AddressLookupError string           `json:"addressLookupError,omitempty"`
	Account            *accountResponse `json:"account,omitempty"`
	InstallmentPlan    *planResponse    `json:"installmentPlan,omitempty"`
	CanGoBack          bool             `json:"canGoBack"`
	Complete           bool             `json:"complete"`
}

func newSnapshotResponse(s onboarding.State) snapshotResponse {
	f := s.Fields
	resp := snapshotResponse{
		Stage: stageResponse{Name: s.Stage.String(), Ordinal: int(s.Stage)},
		Fields: fieldsResponse{
			Name:                    f.Name,
			NationalID:              f.NationalID,
			Email:                   f.Email,
			Phone:                   f.Phone,
			PostalCode:              f.PostalCode,
			Street:                  f.Street,
			Number:                  f.Number,
			Complement:              f.Complement,
			Neighborhood:            f.Neighborhood,
			City:                    f.City,
			StateCode:               f.StateCode,
			PasswordSet:             f.Password != "",
			PasswordConfirmationSet: f.PasswordConfirmation != "",
		},
		ReferralCode:       s.ReferralCode,
		Pending:            s.Pending,
		LastError:          s.LastError,
		AddressLookupError: s.AddressLookupError,
		CanGoBack:          s.Stage.CanGoBack(),
		Complete:           s.Complete(),
	}
	if s.Account != nil {
		resp.Account = &accountResponse{
			ID:         s.Account.ID,
			Name:       s.Account.Name,
			Email:      s.Account.Email,
			NationalID: s.Account.NationalID,
		}
	}
	if p := s.InstallmentPlan; p != nil {
		resp.InstallmentPlan = &planResponse{
			ID:           p.ID,
			DocumentURL:  p.DocumentURL,
			Installments: p.Installments,
			AmountCents:  p.AmountCents,
			FirstDueDate: formatDate(p.FirstDueDate),
		}
	}
	return resp
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
