// Package repository persists the referral ledger in the graph database.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vanshika/indica/backend/internal/domain"
	"github.com/vanshika/indica/backend/internal/graph"
)

// ErrMissingReferralCode is returned for ledger queries without a referral code.
var ErrMissingReferralCode = errors.New("referral code is required")

// Referrals records which member invited which account.
type Referrals struct {
	client graph.Client
	nowFn  func() time.Time
}

// NewReferrals wraps a graph client.
func NewReferrals(client graph.Client) *Referrals {
	return &Referrals{client: client, nowFn: time.Now}
}

// WithClock overrides the time provider (used primarily in tests).
func (r *Referrals) WithClock(nowFn func() time.Time) {
	if nowFn != nil {
		r.nowFn = nowFn
	}
}

// EnsureSchema creates the uniqueness constraints the MERGE statements rely on.
func (r *Referrals) EnsureSchema(ctx context.Context) error {
	for _, cypher := range schemaCypher {
		if _, err := r.client.Write(ctx, graph.Statement{Cypher: cypher}); err != nil {
			return fmt.Errorf("ensure ledger schema: %w", err)
		}
	}
	return nil
}

// RecordReferral merges the inviting member, the new account and the edge between
// them. Recording the same account twice leaves one edge.
func (r *Referrals) RecordReferral(ctx context.Context, referral domain.Referral) error {
	code := strings.TrimSpace(referral.ReferralCode)
	if code == "" {
		return ErrMissingReferralCode
	}
	if strings.TrimSpace(referral.Account.ID) == "" {
		return errors.New("account id is required")
	}

	referredAt := referral.ReferredAt
	if referredAt.IsZero() {
		referredAt = r.nowFn()
	}

	params := map[string]any{
		"referralCode": code,
		"accountId":    referral.Account.ID,
		"props": map[string]any{
			"name":       referral.Account.Name,
			"email":      referral.Account.Email,
			"nationalId": referral.Account.NationalID,
		},
		"referredAt": referredAt.UTC().Format(time.RFC3339),
	}
	if _, err := r.client.Write(ctx, graph.Statement{Cypher: recordReferralCypher, Params: params}); err != nil {
		return fmt.Errorf("record referral of account %s by %s: %w", referral.Account.ID, code, err)
	}
	return nil
}

// Summary aggregates the ledger for one member.
type Summary struct {
	ReferralCode string
	Total        int64
	Accounts     []ReferredAccount
}

// ReferredAccount is one account credited to a member.
type ReferredAccount struct {
	AccountID  string
	Name       string
	ReferredAt time.Time
}

// Summarize returns the accounts credited to referralCode, most recent first.
func (r *Referrals) Summarize(ctx context.Context, referralCode string, limit int) (Summary, error) {
	code := strings.TrimSpace(referralCode)
	if code == "" {
		return Summary{}, ErrMissingReferralCode
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	res, err := r.client.Read(ctx, graph.Statement{
		Cypher: listReferralsCypher,
		Params: map[string]any{"referralCode": code, "limit": limit},
	})
	if err != nil {
		return Summary{}, fmt.Errorf("list referrals of %s: %w", code, err)
	}

	summary := Summary{ReferralCode: code}
	for _, row := range res.Rows {
		acct := ReferredAccount{
			AccountID: row.String("accountId"),
			Name:      row.String("name"),
		}
		if ts, err := time.Parse(time.RFC3339, row.String("referredAt")); err == nil {
			acct.ReferredAt = ts
		}
		summary.Accounts = append(summary.Accounts, acct)
	}

	countRes, err := r.client.Read(ctx, graph.Statement{
		Cypher: countReferralsCypher,
		Params: map[string]any{"referralCode": code},
	})
	if err != nil {
		return Summary{}, fmt.Errorf("count referrals of %s: %w", code, err)
	}
	if len(countRes.Rows) > 0 {
		total, err := countRes.Rows[0].Int("total")
		if err != nil {
			return Summary{}, fmt.Errorf("count referrals of %s: %w", code, err)
		}
		summary.Total = total
	}
	return summary, nil
}

// Ping verifies the graph connection.
func (r *Referrals) Ping(ctx context.Context) error {
	return r.client.VerifyConnectivity(ctx)
}

var schemaCypher = []string{
	`CREATE CONSTRAINT member_referral_code IF NOT EXISTS FOR (m:Member) REQUIRE m.referralCode IS UNIQUE`,
	`CREATE CONSTRAINT account_id IF NOT EXISTS FOR (a:Account) REQUIRE a.id IS UNIQUE`,
}

const recordReferralCypher = `
MERGE (m:Member {referralCode: $referralCode})
MERGE (a:Account {id: $accountId})
SET a += $props
MERGE (m)-[r:REFERRED]->(a)
ON CREATE SET r.referredAt = $referredAt
`

const listReferralsCypher = `
MATCH (:Member {referralCode: $referralCode})-[r:REFERRED]->(a:Account)
RETURN a.id AS accountId, a.name AS name, r.referredAt AS referredAt
ORDER BY r.referredAt DESC
LIMIT $limit
`

const countReferralsCypher = `
MATCH (:Member {referralCode: $referralCode})-[:REFERRED]->(a:Account)
RETURN count(a) AS total
`
