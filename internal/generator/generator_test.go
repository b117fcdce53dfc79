package generator

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vanshika/indica/backend/internal/service"
)

func TestGenerateIsDeterministic(t *testing.T) {
	cfg := Config{NumApplicants: 20, NumReferrers: 3, ManualAddressChance: 0.5, Seed: 7}

	first, err := New(cfg).Generate(context.Background())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	second, err := New(cfg).Generate(context.Background())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(first) != 20 {
		t.Fatalf("expected 20 applicants, got %d", len(first))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("applicant %d differs between runs with the same seed", i)
		}
	}

	codes := map[string]struct{}{}
	for _, app := range first {
		codes[app.ReferralCode] = struct{}{}
		if len(app.PostalCode) != 8 || len(app.Password) < 6 {
			t.Errorf("applicant not valid for the wizard: %+v", app)
		}
		if strings.HasPrefix(app.PostalCode, "99") && app.City == "" {
			t.Errorf("unknown postal code without manual address: %+v", app)
		}
	}
	if len(codes) > 3 {
		t.Errorf("expected at most 3 referrers, got %d", len(codes))
	}
}

func TestNationalIDCheckDigits(t *testing.T) {
	// 529.982.247-25 is a well-known valid CPF.
	base := []int{5, 2, 9, 9, 8, 2, 2, 4, 7}
	if d := cpfCheckDigit(base); d != 2 {
		t.Fatalf("first check digit: want 2 got %d", d)
	}
	if d := cpfCheckDigit(append(base, 2)); d != 5 {
		t.Fatalf("second check digit: want 5 got %d", d)
	}

	id := New(Config{Seed: 1}).nationalID()
	if len(id) != 11 {
		t.Fatalf("expected 11 digits, got %q", id)
	}
}

func TestWriteApplicantsRoundTrip(t *testing.T) {
	apps, err := New(Config{NumApplicants: 3, Seed: 3}).Generate(context.Background())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	path := filepath.Join(t.TempDir(), "out", "applicants.yaml")
	if err := WriteApplicants(apps, path); err != nil {
		t.Fatalf("write: %v", err)
	}

	loaded, err := service.LoadApplicants(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 3 || loaded[0] != apps[0] {
		t.Fatalf("round trip mismatch: %+v vs %+v", loaded, apps)
	}
}

func TestGenerateHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(DefaultConfig()).Generate(ctx); err == nil {
		t.Fatal("expected cancellation error")
	}
}
