package payments

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"

	pkgerrors "github.com/angelmondragon/nilgirisfresh-backend/pkg/errors"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/logger"
)

type fakeProvider struct {
	mu       sync.Mutex
	outcomes map[string]Outcome
	lookups  int
	created  []BeginRequest
}

func (f *fakeProvider) CreateSession(_ context.Context, req BeginRequest) (Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, req)
	return Session{Reference: "pi_1", ClientSecret: "pi_1_secret", Amount: req.Amount, Currency: req.Currency}, nil
}

func (f *fakeProvider) Lookup(_ context.Context, reference string) (Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	outcome, ok := f.outcomes[reference]
	if !ok {
		return Result{}, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}
	return Result{Reference: reference, Outcome: outcome}, nil
}

func (f *fakeProvider) CancelSession(_ context.Context, reference string) (Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes[reference] = OutcomeCancelled
	return Result{Reference: reference, Outcome: OutcomeCancelled}, nil
}

func (f *fakeProvider) set(reference string, outcome Outcome) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes[reference] = outcome
}

func newTestGateway(t *testing.T, provider Provider, hub *Hub, cfg GatewayConfig) Gateway {
	t.Helper()
	gw, err := NewGateway(provider, hub, cfg, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}
	return gw
}

func TestAwaitReturnsImmediatelyForTerminalSession(t *testing.T) {
	provider := &fakeProvider{outcomes: map[string]Outcome{"pi_1": OutcomeSucceeded}}
	gw := newTestGateway(t, provider, NewHub(), GatewayConfig{PollInterval: time.Hour, AwaitTimeout: time.Second})

	res, err := gw.Await(context.Background(), "pi_1")
	if err != nil {
		t.Fatalf("await: %v", err)
	}
	if res.Outcome != OutcomeSucceeded {
		t.Fatalf("expected succeeded, got %s", res.Outcome)
	}
}

func TestAwaitWakesOnHubNotification(t *testing.T) {
	provider := &fakeProvider{outcomes: map[string]Outcome{"pi_1": OutcomePending}}
	hub := NewHub()
	gw := newTestGateway(t, provider, hub, GatewayConfig{PollInterval: time.Hour, AwaitTimeout: 5 * time.Second})

	done := make(chan Result, 1)
	go func() {
		res, err := gw.Await(context.Background(), "pi_1")
		if err != nil {
			t.Errorf("await: %v", err)
		}
		done <- res
	}()

	deadline := time.After(2 * time.Second)
	for {
		if hub.Resolve(Result{Reference: "pi_1", Outcome: OutcomeFailed, Reason: "card_declined"}) > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("await never subscribed")
		case <-time.After(5 * time.Millisecond):
		}
	}

	select {
	case res := <-done:
		if res.Outcome != OutcomeFailed || res.Reason != "card_declined" {
			t.Fatalf("unexpected result %+v", res)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("await did not return after notification")
	}
}

func TestAwaitPollsUntilTerminal(t *testing.T) {
	provider := &fakeProvider{outcomes: map[string]Outcome{"pi_1": OutcomePending}}
	gw := newTestGateway(t, provider, NewHub(), GatewayConfig{PollInterval: 10 * time.Millisecond, AwaitTimeout: 5 * time.Second})

	go func() {
		time.Sleep(30 * time.Millisecond)
		provider.set("pi_1", OutcomeSucceeded)
	}()

	res, err := gw.Await(context.Background(), "pi_1")
	if err != nil {
		t.Fatalf("await: %v", err)
	}
	if res.Outcome != OutcomeSucceeded {
		t.Fatalf("expected succeeded, got %s", res.Outcome)
	}
}

func TestAwaitTimesOutAsDependencyError(t *testing.T) {
	provider := &fakeProvider{outcomes: map[string]Outcome{"pi_1": OutcomePending}}
	gw := newTestGateway(t, provider, NewHub(), GatewayConfig{PollInterval: 5 * time.Millisecond, AwaitTimeout: 30 * time.Millisecond})

	res, err := gw.Await(context.Background(), "pi_1")
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if res.Outcome != OutcomePending {
		t.Fatalf("expected pending result on timeout, got %s", res.Outcome)
	}
}

func TestAwaitUnknownReference(t *testing.T) {
	provider := &fakeProvider{outcomes: map[string]Outcome{}}
	gw := newTestGateway(t, provider, NewHub(), GatewayConfig{PollInterval: time.Hour, AwaitTimeout: time.Second})

	if _, err := gw.Await(context.Background(), "pi_missing"); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := gw.Await(context.Background(), " "); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestBeginValidatesAmount(t *testing.T) {
	provider := &fakeProvider{outcomes: map[string]Outcome{}}
	gw := newTestGateway(t, provider, NewHub(), GatewayConfig{})

	if _, err := gw.Begin(context.Background(), BeginRequest{Amount: decimal.Zero, Currency: "inr"}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	session, err := gw.Begin(context.Background(), BeginRequest{Amount: decimal.NewFromInt(360), Currency: "inr"})
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if session.Reference != "pi_1" || session.ClientSecret == "" {
		t.Fatalf("unexpected session %+v", session)
	}
}

func TestHubIgnoresPendingResults(t *testing.T) {
	hub := NewHub()
	ch, unsubscribe := hub.subscribe("pi_1")
	defer unsubscribe()

	if n := hub.Resolve(Result{Reference: "pi_1", Outcome: OutcomePending}); n != 0 {
		t.Fatalf("pending result should wake nobody, woke %d", n)
	}
	select {
	case res := <-ch:
		t.Fatalf("unexpected delivery %+v", res)
	default:
	}
}

func TestResultFromIntent(t *testing.T) {
	cases := []struct {
		name   string
		intent *stripe.PaymentIntent
		want   Outcome
	}{
		{"succeeded", &stripe.PaymentIntent{ID: "pi", Status: stripe.PaymentIntentStatusSucceeded}, OutcomeSucceeded},
		{"canceled", &stripe.PaymentIntent{ID: "pi", Status: stripe.PaymentIntentStatusCanceled}, OutcomeCancelled},
		{"processing", &stripe.PaymentIntent{ID: "pi", Status: stripe.PaymentIntentStatusProcessing}, OutcomePending},
		{"awaiting method", &stripe.PaymentIntent{ID: "pi", Status: stripe.PaymentIntentStatusRequiresPaymentMethod}, OutcomePending},
		{"declined", &stripe.PaymentIntent{
			ID:               "pi",
			Status:           stripe.PaymentIntentStatusRequiresPaymentMethod,
			LastPaymentError: &stripe.Error{Msg: "Your card was declined."},
		}, OutcomeFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ResultFromIntent(tc.intent).Outcome; got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}
