package server

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// HealthService defines behaviour for readiness probes.
type HealthService interface {
	Probe(ctx context.Context) error
}

// Pinger is anything that can check its backing connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DependencyHealth probes every registered dependency and reports all failures.
// Nil pingers are skipped, so optional dependencies can be registered unconditionally.
type DependencyHealth map[string]Pinger

// Probe implements the HealthService interface.
func (d DependencyHealth) Probe(ctx context.Context) error {
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		p := d[name]
		if p == nil {
			continue
		}
		if err := p.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
