package generator

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/vanshika/indica/backend/internal/service"
)

// Generator produces synthetic applicants for batch enrollment.
type Generator struct {
	cfg  Config
	rand *rand.Rand
}

// New returns a configured Generator instance.
func New(cfg Config) *Generator {
	def := DefaultConfig()
	if cfg.NumApplicants <= 0 {
		cfg.NumApplicants = def.NumApplicants
	}
	if cfg.NumReferrers <= 0 {
		cfg.NumReferrers = def.NumReferrers
	}
	if cfg.ManualAddressChance < 0 || cfg.ManualAddressChance > 1 {
		cfg.ManualAddressChance = def.ManualAddressChance
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	return &Generator{cfg: cfg, rand: rand.New(rand.NewSource(cfg.Seed))}
}

var (
	firstNames = []string{"Ana", "Bruno", "Carla", "Diego", "Elisa", "Fábio", "Gabriela", "Heitor", "Íris", "João", "Larissa", "Marcos", "Natália", "Otávio", "Paula", "Rafael", "Sofia", "Tiago"}
	lastNames  = []string{"Almeida", "Barbosa", "Cardoso", "Dias", "Esteves", "Ferreira", "Gomes", "Lima", "Machado", "Nogueira", "Oliveira", "Pereira", "Ribeiro", "Santos", "Souza", "Teixeira"}
	domains    = []string{"example.com", "example.com.br", "mail.example"}

	// Postal codes the public lookup resolves.
	knownPostalCodes = []string{"01310100", "20040020", "30130010", "70040900", "80010000", "40020000"}

	manualAddresses = []service.Applicant{
		{Street: "Rua das Palmeiras", Neighborhood: "Centro", City: "Campinas", StateCode: "SP"},
		{Street: "Avenida Beira Mar", Neighborhood: "Meireles", City: "Fortaleza", StateCode: "CE"},
		{Street: "Rua XV de Novembro", Neighborhood: "Centro", City: "Joinville", StateCode: "SC"},
	}
)

// Generate synthesises applicants. It respects context cancellation.
func (g *Generator) Generate(ctx context.Context) ([]service.Applicant, error) {
	referrers := make([]string, g.cfg.NumReferrers)
	for i := range referrers {
		referrers[i] = g.referralCode()
	}

	out := make([]service.Applicant, g.cfg.NumApplicants)
	for i := range out {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		first := firstNames[g.rand.Intn(len(firstNames))]
		last := lastNames[g.rand.Intn(len(lastNames))]

		app := service.Applicant{
			ReferralCode: referrers[g.rand.Intn(len(referrers))],
			Name:         first + " " + last,
			NationalID:   g.nationalID(),
			Email:        fmt.Sprintf("%s.%s.%04d@%s", asciiLower(first), asciiLower(last), i+1, domains[g.rand.Intn(len(domains))]),
			Phone:        fmt.Sprintf("119%08d", g.rand.Intn(100000000)),
			Number:       fmt.Sprintf("%d", 1+g.rand.Intn(2000)),
			Password:     g.password(),
		}
		if g.rand.Float64() < g.cfg.ManualAddressChance {
			manual := manualAddresses[g.rand.Intn(len(manualAddresses))]
			app.PostalCode = fmt.Sprintf("99%06d", g.rand.Intn(1000000))
			app.Street, app.Neighborhood, app.City, app.StateCode = manual.Street, manual.Neighborhood, manual.City, manual.StateCode
		} else {
			app.PostalCode = knownPostalCodes[g.rand.Intn(len(knownPostalCodes))]
		}
		if g.rand.Intn(4) == 0 {
			app.Complement = fmt.Sprintf("Apto %d", 10+g.rand.Intn(190))
		}
		out[i] = app
	}
	return out, nil
}

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func (g *Generator) referralCode() string {
	var b strings.Builder
	for i := 0; i < 8; i++ {
		b.WriteByte(codeAlphabet[g.rand.Intn(len(codeAlphabet))])
	}
	return b.String()
}

func (g *Generator) password() string {
	const letters = "abcdefghijkmnpqrstuvwxyz23456789"
	b := make([]byte, 10)
	for i := range b {
		b[i] = letters[g.rand.Intn(len(letters))]
	}
	return string(b)
}

// nationalID returns a CPF with valid check digits.
func (g *Generator) nationalID() string {
	digits := make([]int, 11)
	for i := 0; i < 9; i++ {
		digits[i] = g.rand.Intn(10)
	}
	digits[9] = cpfCheckDigit(digits[:9])
	digits[10] = cpfCheckDigit(digits[:10])

	var b strings.Builder
	for _, d := range digits {
		b.WriteByte(byte('0' + d))
	}
	return b.String()
}

func cpfCheckDigit(digits []int) int {
	sum := 0
	weight := len(digits) + 1
	for _, d := range digits {
		sum += d * weight
		weight--
	}
	rest := sum % 11
	if rest < 2 {
		return 0
	}
	return 11 - rest
}

func asciiLower(s string) string {
	r := strings.NewReplacer("á", "a", "é", "e", "í", "i", "Í", "i", "ó", "o", "ô", "o", "ã", "a", "ç", "c")
	return strings.ToLower(r.Replace(s))
}
