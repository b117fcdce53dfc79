// Package billing wraps the installment plan (carnê) issuance endpoint.
package billing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/vanshika/indica/backend/internal/domain"
	"github.com/vanshika/indica/backend/internal/restclient"
)

// ErrMissingDocumentURL is returned when the service issues a plan without a payment slip link.
var ErrMissingDocumentURL = errors.New("billing service returned no document url")

// Terms fixes the shape of every plan this client issues.
type Terms struct {
	Installments  int
	AmountCents   int64
	FirstDueAfter time.Duration
}

// Client issues installment plans. It keeps no state between calls.
type Client struct {
	rest  *restclient.Client
	terms Terms
	nowFn func() time.Time
}

// New creates a billing client rooted at baseURL.
func New(baseURL string, terms Terms, opts ...restclient.Option) (*Client, error) {
	if terms.Installments <= 0 {
		return nil, fmt.Errorf("billing client: installments must be positive")
	}
	rest, err := restclient.New(baseURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("billing client: %w", err)
	}
	return &Client{rest: rest, terms: terms, nowFn: time.Now}, nil
}

// WithClock overrides the time provider (used primarily in tests).
func (c *Client) WithClock(nowFn func() time.Time) {
	if nowFn != nil {
		c.nowFn = nowFn
	}
}

type issueRequest struct {
	CustomerID   string `json:"customerId"`
	Description  string `json:"description"`
	Installments int    `json:"installments"`
	AmountCents  int64  `json:"amountCents"`
	FirstDueDate string `json:"firstDueDate"`
}

type planResponse struct {
	ID           string `json:"id"`
	PDFURL       string `json:"pdfUrl"`
	Link         string `json:"link"`
	Installments int    `json:"installments"`
	AmountCents  int64  `json:"amountCents"`
	FirstDueDate string `json:"firstDueDate"`
}

const dateLayout = "2006-01-02"

// IssuePlan asks the billing service for a carnê for req.AccountID.
func (c *Client) IssuePlan(ctx context.Context, req domain.PlanRequest) (domain.InstallmentPlan, error) {
	if strings.TrimSpace(req.AccountID) == "" {
		return domain.InstallmentPlan{}, fmt.Errorf("issue plan: account id is required")
	}

	firstDue := c.nowFn().UTC().Add(c.terms.FirstDueAfter)
	headers := map[string]string{}
	if req.IdempotencyKey != "" {
		headers["Idempotency-Key"] = req.IdempotencyKey
	}

	var resp planResponse
	err := c.rest.Do(ctx, restclient.Request{
		Method: http.MethodPost,
		Path:   "carnes",
		Body: issueRequest{
			CustomerID:   req.AccountID,
			Description:  req.Description,
			Installments: c.terms.Installments,
			AmountCents:  c.terms.AmountCents,
			FirstDueDate: firstDue.Format(dateLayout),
		},
		Headers: headers,
	}, &resp)
	if err != nil {
		return domain.InstallmentPlan{}, fmt.Errorf("issue plan for account %s: %w", req.AccountID, err)
	}

	docURL := strings.TrimSpace(resp.PDFURL)
	if docURL == "" {
		docURL = strings.TrimSpace(resp.Link)
	}
	if docURL == "" {
		return domain.InstallmentPlan{}, ErrMissingDocumentURL
	}

	plan := domain.InstallmentPlan{
		ID:           resp.ID,
		DocumentURL:  docURL,
		Installments: resp.Installments,
		AmountCents:  resp.AmountCents,
	}
	if plan.Installments == 0 {
		plan.Installments = c.terms.Installments
	}
	if plan.AmountCents == 0 {
		plan.AmountCents = c.terms.AmountCents
	}
	if due, err := time.Parse(dateLayout, resp.FirstDueDate); err == nil {
		plan.FirstDueDate = due
	} else {
		plan.FirstDueDate, _ = time.Parse(dateLayout, firstDue.Format(dateLayout))
	}
	return plan, nil
}
