package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/vanshika/indica/backend/internal/generator"
)

func main() {
	cfg := generator.DefaultConfig()
	var (
		applicants   = flag.Int("applicants", cfg.NumApplicants, "number of applicants to generate")
		referrers    = flag.Int("referrers", cfg.NumReferrers, "number of distinct referral codes")
		manualChance = flag.Float64("manual-address-chance", cfg.ManualAddressChance, "probability of an applicant with an unknown postal code and typed address")
		seed         = flag.Int64("seed", cfg.Seed, "random seed for deterministic generation")
		output       = flag.String("output", "data/applicants.yaml", "path of the applicants file")
		writeStdout  = flag.Bool("stdout", false, "write the applicants document to stdout instead of a file")
	)
	flag.Parse()

	genCfg := generator.Config{
		NumApplicants:       *applicants,
		NumReferrers:        *referrers,
		ManualAddressChance: clampProbability(*manualChance),
		Seed:                *seed,
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	generated, err := generator.New(genCfg).Generate(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generation failed: %v\n", err)
		os.Exit(1)
	}

	if *writeStdout {
		if err := generator.EncodeApplicants(os.Stdout, generated); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write applicants to stdout: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := generator.WriteApplicants(generated, *output); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write applicants: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stdout, "Generated %d applicants into %s\n", len(generated), *output)
}

func clampProbability(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}
