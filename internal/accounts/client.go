// Package accounts wraps the remote account registration endpoint.
package accounts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/vanshika/indica/backend/internal/domain"
	"github.com/vanshika/indica/backend/internal/restclient"
)

// ErrMissingAccountID is returned when the service accepts a signup without identifying the account.
var ErrMissingAccountID = errors.New("account service returned no account id")

// Client creates accounts. It keeps no state between calls.
type Client struct {
	rest *restclient.Client
}

// New creates an accounts client rooted at baseURL.
func New(baseURL string, opts ...restclient.Option) (*Client, error) {
	rest, err := restclient.New(baseURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("accounts client: %w", err)
	}
	return &Client{rest: rest}, nil
}

type addressPayload struct {
	PostalCode   string `json:"postalCode"`
	Street       string `json:"street"`
	Number       string `json:"number"`
	Complement   string `json:"complement,omitempty"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
}

type registerRequest struct {
	Name         string          `json:"name"`
	CPF          string          `json:"cpf"`
	Email        string          `json:"email"`
	Phone        string          `json:"phone"`
	Password     string          `json:"password"`
	ReferralCode string          `json:"referralCode"`
	Address      *addressPayload `json:"address,omitempty"`
}

// accountID accepts numeric and string identifiers.
type accountID string

func (id *accountID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = accountID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode account id: %w", err)
	}
	*id = accountID(n.String())
	return nil
}

type accountResponse struct {
	ID        accountID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CPF       string    `json:"cpf"`
	CreatedAt time.Time `json:"createdAt"`
}

// Register submits the signup and returns the created account.
func (c *Client) Register(ctx context.Context, reg domain.Registration) (domain.Account, error) {
	body := registerRequest{
		Name:         reg.Name,
		CPF:          reg.NationalID,
		Email:        reg.Email,
		Phone:        reg.Phone,
		Password:     reg.Password,
		ReferralCode: reg.ReferralCode,
	}
	if reg.Address != (domain.Address{}) {
		body.Address = &addressPayload{
			PostalCode:   reg.Address.PostalCode,
			Street:       reg.Address.Street,
			Number:       reg.Address.Number,
			Complement:   reg.Address.Complement,
			Neighborhood: reg.Address.Neighborhood,
			City:         reg.Address.City,
			State:        reg.Address.StateCode,
		}
	}

	headers := map[string]string{}
	if reg.IdempotencyKey != "" {
		headers["Idempotency-Key"] = reg.IdempotencyKey
	}

	var resp accountResponse
	err := c.rest.Do(ctx, restclient.Request{
		Method:  http.MethodPost,
		Path:    "users",
		Body:    body,
		Headers: headers,
	}, &resp)
	if err != nil {
		return domain.Account{}, fmt.Errorf("register account: %w", err)
	}
	if resp.ID == "" {
		return domain.Account{}, ErrMissingAccountID
	}

	acct := domain.Account{
		ID:         string(resp.ID),
		Name:       resp.Name,
		Email:      resp.Email,
		NationalID: resp.CPF,
		CreatedAt:  resp.CreatedAt,
	}
	// Older deployments echo only the id; fall back to what was submitted.
	if acct.Name == "" {
		acct.Name = reg.Name
	}
	if acct.Email == "" {
		acct.Email = reg.Email
	}
	if acct.NationalID == "" {
		acct.NationalID = reg.NationalID
	}
	return acct, nil
}
