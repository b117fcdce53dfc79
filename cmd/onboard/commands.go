package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vanshika/indica/backend/internal/addresslookup"
	"github.com/vanshika/indica/backend/internal/bootstrap"
	"github.com/vanshika/indica/backend/internal/config"
	"github.com/vanshika/indica/backend/internal/domain"
	"github.com/vanshika/indica/backend/internal/logging"
	"github.com/vanshika/indica/backend/internal/restclient"
	"github.com/vanshika/indica/backend/internal/service"
)

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "onboard",
		Short:         "Operator tooling for the referral signup backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(lookupCmd(), enrollCmd(), referralsCmd(), versionCmd())
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), Version)
		},
	}
}

func lookupCmd() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "lookup <postal-code>",
		Short: "Resolve a postal code (CEP) to an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if timeout <= 0 {
				timeout = cfg.Lookup.Timeout
			}
			client, err := addresslookup.New(cfg.Lookup.BaseURL, restclient.WithTimeout(timeout))
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			addr, err := client.Lookup(ctx, digitsOnly(args[0]))
			if errors.Is(err, domain.ErrPostalCodeNotFound) {
				return fmt.Errorf("postal code %s not found", args[0])
			}
			if err != nil {
				return err
			}
			return writeYAML(cmd.OutOrStdout(), addressDoc{
				PostalCode:   addr.PostalCode,
				Street:       addr.Street,
				Neighborhood: addr.Neighborhood,
				City:         addr.City,
				StateCode:    addr.StateCode,
			})
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Lookup timeout (defaults to LOOKUP_TIMEOUT)")
	return cmd
}

type addressDoc struct {
	PostalCode   string `yaml:"postalCode"`
	Street       string `yaml:"street"`
	Neighborhood string `yaml:"neighborhood"`
	City         string `yaml:"city"`
	StateCode    string `yaml:"stateCode"`
}

func enrollCmd() *cobra.Command {
	var (
		file     string
		workers  int
		skipPlan bool
	)
	cmd := &cobra.Command{
		Use:   "enroll",
		Short: "Run a batch of applicants through the signup wizard",
		Long: `Reads applicants from a YAML file and drives each one through the same
wizard the web flow uses: personal data, address (with postal code lookup),
credentials with account registration, and installment plan issuance.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := logging.New(cfg.Logging).With("component", "enroll")

			applicants, err := service.LoadApplicants(file)
			if err != nil {
				return err
			}
			if len(applicants) == 0 {
				return fmt.Errorf("no applicants in %s", file)
			}

			clients, err := bootstrap.Build(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeClients(clients, logger)

			enroller := service.NewEnroller(clients.WizardFactory(cfg, nil, logger), logger, skipPlan)
			batch := service.NewBatchEnroller(enroller, workers)

			start := time.Now()
			logger.Info("enrolling applicants", "count", len(applicants), "workers", workers)
			results, runErr := batch.EnrollAll(ctx, applicants)

			done := make([]service.EnrollmentResult, 0, len(results))
			for _, res := range results {
				if res.AccountID != "" {
					done = append(done, res)
				}
			}
			if err := writeYAML(cmd.OutOrStdout(), map[string]any{"enrolled": done}); err != nil {
				return err
			}
			logger.Info("enrollment finished", "duration", time.Since(start).String(), "enrolled", len(done), "total", len(applicants))
			return runErr
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "applicants.yaml", "Applicants YAML file")
	cmd.Flags().IntVarP(&workers, "workers", "w", 4, "Concurrent wizards")
	cmd.Flags().BoolVar(&skipPlan, "skip-plan", false, "Stop at the payment stage without issuing plans")
	return cmd
}

func referralsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "referrals <referral-code>",
		Short: "Show the accounts credited to a referral code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.Graph.URI == "" {
				return errors.New("GRAPH_URI is required to read the referral ledger")
			}
			logger := logging.New(cfg.Logging)

			clients, err := bootstrap.Build(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer closeClients(clients, logger)

			summary, err := clients.Referrals.Summarize(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			return writeYAML(cmd.OutOrStdout(), summary)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum accounts to list")
	return cmd
}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

func closeClients(clients *bootstrap.Clients, logger *slog.Logger) {
	if err := clients.Close(context.Background()); err != nil {
		logger.Warn("closing graph client failed", "error", err)
	}
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
