// Package payments wraps the hosted payment provider behind an awaitable
// request/response gateway. Begin opens a payment session the storefront hands
// to the provider's checkout widget; Await blocks until that session reaches a
// terminal outcome, fed either by provider webhooks or by polling.
package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/nilgirisfresh-backend/pkg/errors"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/logger"
)

// Outcome is the provider-neutral state of a payment session.
type Outcome string

const (
	OutcomePending   Outcome = "pending"
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeCancelled Outcome = "cancelled"
)

// Terminal reports whether the outcome will not change again.
func (o Outcome) Terminal() bool {
	return o == OutcomeSucceeded || o == OutcomeFailed || o == OutcomeCancelled
}

// Payer is the contact block prefilled in the provider's checkout.
type Payer struct {
	Name  string
	Email string
	Phone string
}

// BeginRequest opens a payment session.
type BeginRequest struct {
	Amount         decimal.Decimal
	Currency       string
	Payer          Payer
	IdempotencyKey string
	Metadata       map[string]string
}

// Session is what the storefront needs to drive the hosted checkout.
type Session struct {
	Reference    string          `json:"reference"`
	ClientSecret string          `json:"client_secret"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
}

// Result is the observed state of a session.
type Result struct {
	Reference string
	Outcome   Outcome
	Reason    string
}

// Provider is the low-level payment API.
type Provider interface {
	CreateSession(ctx context.Context, req BeginRequest) (Session, error)
	Lookup(ctx context.Context, reference string) (Result, error)
	CancelSession(ctx context.Context, reference string) (Result, error)
}

// Gateway is the awaitable surface checkout depends on.
type Gateway interface {
	Begin(ctx context.Context, req BeginRequest) (Session, error)
	Await(ctx context.Context, reference string) (Result, error)
	Cancel(ctx context.Context, reference string) (Result, error)
}

// Hub fans provider notifications out to in-flight Await calls.
type Hub struct {
	mu      sync.Mutex
	waiters map[string][]chan Result
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{waiters: map[string][]chan Result{}}
}

func (h *Hub) subscribe(reference string) (<-chan Result, func()) {
	ch := make(chan Result, 1)
	h.mu.Lock()
	h.waiters[reference] = append(h.waiters[reference], ch)
	h.mu.Unlock()
	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		list := h.waiters[reference]
		for i, c := range list {
			if c == ch {
				list = append(list[:i], list[i+1:]...)
				break
			}
		}
		if len(list) == 0 {
			delete(h.waiters, reference)
		} else {
			h.waiters[reference] = list
		}
	}
}

// Resolve delivers a terminal result to every waiter of its reference.
// Non-terminal results are ignored. It reports how many waiters were woken.
func (h *Hub) Resolve(res Result) int {
	if !res.Outcome.Terminal() {
		return 0
	}
	h.mu.Lock()
	list := h.waiters[res.Reference]
	delete(h.waiters, res.Reference)
	h.mu.Unlock()
	for _, ch := range list {
		select {
		case ch <- res:
		default:
		}
	}
	return len(list)
}

// GatewayConfig tunes the awaiting gateway.
type GatewayConfig struct {
	PollInterval time.Duration
	AwaitTimeout time.Duration
}

type awaitingGateway struct {
	provider Provider
	hub      *Hub
	poll     time.Duration
	timeout  time.Duration
	logg     *logger.Logger
}

// NewGateway builds a Gateway that resolves sessions from the hub with a
// polling fallback for notifications delivered to another instance.
func NewGateway(provider Provider, hub *Hub, cfg GatewayConfig, logg *logger.Logger) (Gateway, error) {
	if provider == nil {
		return nil, fmt.Errorf("payment provider required")
	}
	if hub == nil {
		return nil, fmt.Errorf("payment hub required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = 2 * time.Second
	}
	timeout := cfg.AwaitTimeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &awaitingGateway{provider: provider, hub: hub, poll: poll, timeout: timeout, logg: logg}, nil
}

func (g *awaitingGateway) Begin(ctx context.Context, req BeginRequest) (Session, error) {
	if !req.Amount.IsPositive() {
		return Session{}, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}
	if strings.TrimSpace(req.Currency) == "" {
		return Session{}, pkgerrors.New(pkgerrors.CodeValidation, "payment currency required")
	}
	session, err := g.provider.CreateSession(ctx, req)
	if err != nil {
		return Session{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment session")
	}
	return session, nil
}

// Await returns once the session is terminal. When the context or the await
// timeout ends first, it returns the last observed pending result together
// with a DEPENDENCY_ERROR so the caller can retry.
func (g *awaitingGateway) Await(ctx context.Context, reference string) (Result, error) {
	if strings.TrimSpace(reference) == "" {
		return Result{}, pkgerrors.New(pkgerrors.CodeValidation, "payment reference required")
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	notified, unsubscribe := g.hub.subscribe(reference)
	defer unsubscribe()

	last := Result{Reference: reference, Outcome: OutcomePending}
	ticker := time.NewTicker(g.poll)
	defer ticker.Stop()

	for {
		res, err := g.provider.Lookup(ctx, reference)
		switch {
		case err == nil && res.Outcome.Terminal():
			return res, nil
		case err == nil:
			last = res
		case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		default:
			if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
				return Result{}, err
			}
			g.logg.Warn(g.logg.WithPaymentReference(ctx, reference), fmt.Sprintf("payment lookup failed: %v", err))
		}

		select {
		case res := <-notified:
			return res, nil
		case <-ticker.C:
		case <-ctx.Done():
			return last, pkgerrors.Wrap(pkgerrors.CodeDependency, ctx.Err(), "payment outcome not available yet")
		}
	}
}

func (g *awaitingGateway) Cancel(ctx context.Context, reference string) (Result, error) {
	res, err := g.provider.CancelSession(ctx, reference)
	if err != nil {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel payment session")
	}
	g.hub.Resolve(res)
	return res, nil
}
