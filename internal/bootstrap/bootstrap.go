// Package bootstrap builds the remote clients and the wizard factory from configuration.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vanshika/indica/backend/internal/accounts"
	"github.com/vanshika/indica/backend/internal/addresslookup"
	"github.com/vanshika/indica/backend/internal/billing"
	"github.com/vanshika/indica/backend/internal/config"
	"github.com/vanshika/indica/backend/internal/graph"
	"github.com/vanshika/indica/backend/internal/onboarding"
	"github.com/vanshika/indica/backend/internal/repository"
	"github.com/vanshika/indica/backend/internal/restclient"
)

// Clients holds the collaborators every wizard shares.
type Clients struct {
	Lookup    *addresslookup.Client
	Accounts  *accounts.Client
	Billing   *billing.Client
	Referrals *repository.Referrals // nil when GRAPH_URI is unset

	graph graph.Client
}

// Build creates the HTTP clients and, when configured, connects the referral ledger.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Clients, error) {
	lookup, err := addresslookup.New(cfg.Lookup.BaseURL,
		restclient.WithTimeout(cfg.Lookup.Timeout),
		restclient.WithLogger(logger.With("client", "address_lookup")),
	)
	if err != nil {
		return nil, err
	}

	accts, err := accounts.New(cfg.Accounts.BaseURL,
		restclient.WithTimeout(cfg.Accounts.Timeout),
		restclient.WithAPIKey(cfg.Accounts.APIKey),
		restclient.WithLogger(logger.With("client", "accounts")),
	)
	if err != nil {
		return nil, err
	}

	bill, err := billing.New(cfg.Billing.BaseURL, billing.Terms{
		Installments:  cfg.Billing.Installments,
		AmountCents:   cfg.Billing.AmountCents,
		FirstDueAfter: cfg.Billing.FirstDueAfter,
	},
		restclient.WithTimeout(cfg.Billing.Timeout),
		restclient.WithAPIKey(cfg.Billing.APIKey),
		restclient.WithLogger(logger.With("client", "billing")),
	)
	if err != nil {
		return nil, err
	}

	clients := &Clients{Lookup: lookup, Accounts: accts, Billing: bill}

	if cfg.Graph.URI == "" {
		logger.Warn("GRAPH_URI not set, referral ledger disabled")
		return clients, nil
	}
	gc, err := graph.NewNeo4jClient(ctx, graph.Options{
		URI:            cfg.Graph.URI,
		Database:       cfg.Graph.Database,
		Username:       cfg.Graph.Username,
		Password:       cfg.Graph.Password,
		MaxConnections: cfg.Graph.MaxConnections,
	})
	if err != nil {
		return nil, fmt.Errorf("connect referral ledger: %w", err)
	}
	referrals := repository.NewReferrals(gc)
	if err := referrals.EnsureSchema(ctx); err != nil {
		_ = gc.Close(ctx)
		return nil, err
	}
	clients.graph = gc
	clients.Referrals = referrals
	return clients, nil
}

// Close releases the graph driver, if any.
func (c *Clients) Close(ctx context.Context) error {
	if c.graph == nil {
		return nil
	}
	return c.graph.Close(ctx)
}

// WizardFactory returns a constructor for wizards sharing these clients.
// observer may be nil.
func (c *Clients) WizardFactory(cfg config.Config, observer onboarding.Observer, logger *slog.Logger) func(string) (*onboarding.Wizard, error) {
	deps := onboarding.Dependencies{
		Lookup:   c.Lookup,
		Accounts: c.Accounts,
		Plans:    c.Billing,
		Observer: observer,
		Logger:   logger,
	}
	// A typed nil would make the wizard call into a missing ledger.
	if c.Referrals != nil {
		deps.Referrals = c.Referrals
	}
	opts := onboarding.Options{
		PlanLabel:           cfg.Billing.PlanLabel,
		LookupTimeout:       cfg.Lookup.Timeout,
		RegistrationTimeout: cfg.Accounts.Timeout,
		PlanTimeout:         cfg.Billing.Timeout,
	}
	return func(referralCode string) (*onboarding.Wizard, error) {
		return onboarding.New(referralCode, deps, opts)
	}
}
