package stripewebhook

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

type ledgerStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	WebhookEventKey(provider, eventID string) string
}

// Ledger remembers which provider events were taken for processing, so a
// redelivery is acknowledged instead of applied twice. Entries live for
// the retention window; Stripe stops retrying after three days.
type Ledger struct {
	store     ledgerStore
	provider  string
	retention time.Duration
}

func NewLedger(store ledgerStore, provider string, retention time.Duration) (*Ledger, error) {
	switch {
	case store == nil:
		return nil, errors.New("ledger store is required")
	case strings.TrimSpace(provider) == "":
		return nil, errors.New("provider is required")
	case retention <= 0:
		return nil, errors.New("retention must be positive")
	}
	return &Ledger{store: store, provider: provider, retention: retention}, nil
}

// Claim records eventID and reports whether this delivery is the first.
func (l *Ledger) Claim(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, errors.New("event id is required")
	}
	first, err := l.store.SetNX(ctx, l.store.WebhookEventKey(l.provider, eventID), time.Now().UTC().Format(time.RFC3339), l.retention)
	if err != nil {
		return false, fmt.Errorf("claim %s event %s: %w", l.provider, eventID, err)
	}
	return first, nil
}

// Release forgets a claim whose processing failed, so the provider's
// retry is processed again.
func (l *Ledger) Release(ctx context.Context, eventID string) error {
	if eventID == "" {
		return nil
	}
	return l.store.Del(ctx, l.store.WebhookEventKey(l.provider, eventID))
}
