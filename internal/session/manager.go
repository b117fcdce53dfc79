package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vanshika/indica/backend/internal/onboarding"
)

// WizardFactory builds a fresh wizard for a referral code.
type WizardFactory func(referralCode string) (*onboarding.Wizard, error)

// Session is a resolved browsing session.
type Session struct {
	ID           string
	Token        string
	ReferralCode string
	ExpiresAt    time.Time
	Wizard       *onboarding.Wizard
}

type liveWizard struct {
	wizard    *onboarding.Wizard
	expiresAt time.Time
}

// Manager maps session ids to live wizards. Only the referral code outlives
// the process; a wizard missing from memory is rebuilt empty from it.
type Manager struct {
	store   Store
	codec   *Codec
	factory WizardFactory
	ttl     time.Duration
	logger  *slog.Logger
	nowFn   func() time.Time
	newID   func() string

	mu   sync.Mutex
	live map[string]liveWizard
}

// NewManager wires a manager.
func NewManager(store Store, codec *Codec, factory WizardFactory, ttl time.Duration, logger *slog.Logger) (*Manager, error) {
	if store == nil || codec == nil || factory == nil {
		return nil, errors.New("session manager: store, codec and factory are required")
	}
	if ttl <= 0 {
		return nil, errors.New("session manager: ttl must be positive")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:   store,
		codec:   codec,
		factory: factory,
		ttl:     ttl,
		logger:  logger.With("component", "session"),
		nowFn:   time.Now,
		newID:   uuid.NewString,
		live:    make(map[string]liveWizard),
	}, nil
}

// WithClock overrides the time provider for the manager and its codec.
func (m *Manager) WithClock(nowFn func() time.Time) {
	if nowFn != nil {
		m.nowFn = nowFn
		m.codec.WithClock(nowFn)
	}
}

// Start opens a session for referralCode. A blank code creates nothing.
func (m *Manager) Start(ctx context.Context, referralCode string) (Session, error) {
	referralCode = strings.TrimSpace(referralCode)
	if referralCode == "" {
		return Session{}, onboarding.ErrMissingReferralCode
	}
	wizard, err := m.factory(referralCode)
	if err != nil {
		return Session{}, err
	}

	now := m.nowFn().UTC()
	record := Record{
		ID:           m.newID(),
		ReferralCode: referralCode,
		CreatedAt:    now,
		ExpiresAt:    now.Add(m.ttl),
	}
	if err := m.store.Save(ctx, record); err != nil {
		return Session{}, fmt.Errorf("save session: %w", err)
	}
	token, err := m.codec.Issue(record)
	if err != nil {
		return Session{}, err
	}

	m.mu.Lock()
	m.live[record.ID] = liveWizard{wizard: wizard, expiresAt: record.ExpiresAt}
	m.mu.Unlock()

	m.logger.Info("session started", "session_id", record.ID, "referral_code", referralCode)
	return Session{
		ID:           record.ID,
		Token:        token,
		ReferralCode: referralCode,
		ExpiresAt:    record.ExpiresAt,
		Wizard:       wizard,
	}, nil
}

// Resolve returns the session behind a cookie value.
func (m *Manager) Resolve(ctx context.Context, token string) (Session, error) {
	id, err := m.codec.Parse(token)
	if err != nil {
		return Session{}, err
	}

	record, err := m.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			m.forget(id)
		}
		return Session{}, err
	}
	now := m.nowFn()
	if record.Expired(now) {
		m.forget(id)
		if err := m.store.Delete(ctx, id); err != nil {
			m.logger.Warn("failed to delete expired session", "session_id", id, "error", err)
		}
		return Session{}, ErrNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.live[id]
	if !ok {
		wizard, err := m.factory(record.ReferralCode)
		if err != nil {
			return Session{}, fmt.Errorf("rebuild wizard: %w", err)
		}
		entry = liveWizard{wizard: wizard, expiresAt: record.ExpiresAt}
		m.live[id] = entry
		m.logger.Info("wizard rebuilt from stored session", "session_id", id)
	}
	return Session{
		ID:           id,
		Token:        token,
		ReferralCode: record.ReferralCode,
		ExpiresAt:    record.ExpiresAt,
		Wizard:       entry.wizard,
	}, nil
}

// Abandon discards the wizard and the stored referral code.
func (m *Manager) Abandon(ctx context.Context, token string) error {
	id, err := m.codec.Parse(token)
	if err != nil {
		return err
	}
	m.forget(id)
	if err := m.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	m.logger.Info("session abandoned", "session_id", id)
	return nil
}

// Prune drops expired sessions from memory and from the store.
func (m *Manager) Prune(ctx context.Context) (int, error) {
	now := m.nowFn()
	m.mu.Lock()
	for id, entry := range m.live {
		if !entry.expiresAt.After(now) {
			delete(m.live, id)
		}
	}
	m.mu.Unlock()

	removed, err := m.store.PruneExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("prune sessions: %w", err)
	}
	return removed, nil
}

// Run prunes every interval until ctx is cancelled.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := m.Prune(ctx)
			if err != nil {
				m.logger.Warn("session prune failed", "error", err)
				continue
			}
			if removed > 0 {
				m.logger.Debug("pruned expired sessions", "count", removed)
			}
		}
	}
}

// Live reports how many wizards are held in memory.
func (m *Manager) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.live)
}

// Ping checks the backing store.
func (m *Manager) Ping(ctx context.Context) error {
	return m.store.Ping(ctx)
}

func (m *Manager) forget(id string) {
	m.mu.Lock()
	delete(m.live, id)
	m.mu.Unlock()
}
