// Package addresslookup resolves Brazilian postal codes (CEP) through a ViaCEP-compatible service.
package addresslookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/vanshika/indica/backend/internal/domain"
	"github.com/vanshika/indica/backend/internal/restclient"
)

// ErrInvalidPostalCode is returned for inputs that are not exactly eight digits.
var ErrInvalidPostalCode = errors.New("postal code must have 8 digits")

var postalCodePattern = regexp.MustCompile(`^\d{8}$`)

// Client queries the lookup service. It keeps no state between calls.
type Client struct {
	rest *restclient.Client
}

// New creates a lookup client for baseURL (for example https://viacep.com.br).
func New(baseURL string, opts ...restclient.Option) (*Client, error) {
	rest, err := restclient.New(baseURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("address lookup client: %w", err)
	}
	return &Client{rest: rest}, nil
}

// notFoundMarker accepts both `true` and `"true"`; the service has emitted each over time.
type notFoundMarker bool

func (m *notFoundMarker) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*m = notFoundMarker(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decode erro marker: %w", err)
	}
	*m = notFoundMarker(strings.EqualFold(strings.TrimSpace(s), "true"))
	return nil
}

type lookupResponse struct {
	CEP          string         `json:"cep"`
	Street       string         `json:"logradouro"`
	Complement   string         `json:"complemento"`
	Neighborhood string         `json:"bairro"`
	City         string         `json:"localidade"`
	StateCode    string         `json:"uf"`
	NotFound     notFoundMarker `json:"erro"`
}

// Lookup returns the address for an 8-digit postal code. A well-formed "no match"
// answer yields domain.ErrPostalCodeNotFound; anything else that goes wrong is a
// transport or remote failure.
func (c *Client) Lookup(ctx context.Context, postalCode string) (domain.Address, error) {
	if !postalCodePattern.MatchString(postalCode) {
		return domain.Address{}, ErrInvalidPostalCode
	}

	var resp lookupResponse
	err := c.rest.Do(ctx, restclient.Request{
		Method: http.MethodGet,
		Path:   "ws/" + postalCode + "/json/",
	}, &resp)
	if err != nil {
		return domain.Address{}, fmt.Errorf("lookup postal code %s: %w", postalCode, err)
	}
	if resp.NotFound {
		return domain.Address{}, domain.ErrPostalCodeNotFound
	}

	return domain.Address{
		PostalCode:   postalCode,
		Street:       clean(resp.Street),
		Neighborhood: clean(resp.Neighborhood),
		City:         clean(resp.City),
		StateCode:    strings.ToUpper(clean(resp.StateCode)),
	}, nil
}

func clean(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
