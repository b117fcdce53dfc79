package generator

// Config drives the synthetic applicant generator.
type Config struct {
	NumApplicants int
	NumReferrers  int
	// ManualAddressChance is the share of applicants whose postal code is not
	// known to the lookup service and who therefore carry a typed address.
	ManualAddressChance float64
	Seed                int64
}

// DefaultConfig returns settings sized for a staging run.
func DefaultConfig() Config {
	return Config{
		NumApplicants:       50,
		NumReferrers:        5,
		ManualAddressChance: 0.2,
		Seed:                42,
	}
}
