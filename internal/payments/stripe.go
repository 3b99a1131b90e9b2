package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v82"

	pkgerrors "github.com/angelmondragon/nilgirisfresh-backend/pkg/errors"
	pkgstripe "github.com/angelmondragon/nilgirisfresh-backend/pkg/stripe"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/types"
)

// IntentAPI is the slice of the Stripe client the provider calls.
type IntentAPI interface {
	CreatePaymentIntent(ctx context.Context, req pkgstripe.IntentRequest) (*stripe.PaymentIntent, error)
	GetPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error)
	CancelPaymentIntent(ctx context.Context, id, reason string) (*stripe.PaymentIntent, error)
}

// StripeProvider maps PaymentIntents onto payment sessions.
type StripeProvider struct {
	api IntentAPI
}

// NewStripeProvider wraps the Stripe client.
func NewStripeProvider(api IntentAPI) (*StripeProvider, error) {
	if api == nil {
		return nil, fmt.Errorf("stripe client required")
	}
	return &StripeProvider{api: api}, nil
}

func (p *StripeProvider) CreateSession(ctx context.Context, req BeginRequest) (Session, error) {
	minor, err := types.MinorUnits(req.Amount)
	if err != nil {
		return Session{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment amount")
	}
	intent, err := p.api.CreatePaymentIntent(ctx, pkgstripe.IntentRequest{
		AmountMinor:    minor,
		Currency:       req.Currency,
		ReceiptEmail:   req.Payer.Email,
		Description:    describePayer(req.Payer),
		IdempotencyKey: req.IdempotencyKey,
		Metadata:       req.Metadata,
	})
	if err != nil {
		return Session{}, err
	}
	return Session{
		Reference:    intent.ID,
		ClientSecret: intent.ClientSecret,
		Amount:       types.FromMinorUnits(intent.Amount),
		Currency:     string(intent.Currency),
	}, nil
}

func (p *StripeProvider) Lookup(ctx context.Context, reference string) (Result, error) {
	intent, err := p.api.GetPaymentIntent(ctx, reference)
	if err != nil {
		if isStripeNotFound(err) {
			return Result{}, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "payment not found")
		}
		return Result{}, err
	}
	return ResultFromIntent(intent), nil
}

func (p *StripeProvider) CancelSession(ctx context.Context, reference string) (Result, error) {
	intent, err := p.api.CancelPaymentIntent(ctx, reference, string(stripe.PaymentIntentCancellationReasonAbandoned))
	if err != nil {
		// An intent that already reached a terminal state cannot be cancelled;
		// report its real outcome instead.
		if current, lookupErr := p.Lookup(ctx, reference); lookupErr == nil && current.Outcome.Terminal() {
			return current, nil
		}
		return Result{}, err
	}
	return ResultFromIntent(intent), nil
}

// ResultFromIntent converts a PaymentIntent into a provider-neutral result.
func ResultFromIntent(intent *stripe.PaymentIntent) Result {
	if intent == nil {
		return Result{Outcome: OutcomePending}
	}
	res := Result{Reference: intent.ID}
	switch intent.Status {
	case stripe.PaymentIntentStatusSucceeded:
		res.Outcome = OutcomeSucceeded
	case stripe.PaymentIntentStatusCanceled:
		res.Outcome = OutcomeCancelled
		res.Reason = string(intent.CancellationReason)
	case stripe.PaymentIntentStatusRequiresPaymentMethod:
		// A failed confirmation drops the intent back to requires_payment_method
		// with the decline attached.
		if intent.LastPaymentError != nil {
			res.Outcome = OutcomeFailed
			res.Reason = intent.LastPaymentError.Msg
		} else {
			res.Outcome = OutcomePending
		}
	default:
		res.Outcome = OutcomePending
	}
	return res
}

func describePayer(p Payer) string {
	parts := make([]string, 0, 2)
	if name := strings.TrimSpace(p.Name); name != "" {
		parts = append(parts, name)
	}
	if phone := strings.TrimSpace(p.Phone); phone != "" {
		parts = append(parts, phone)
	}
	if len(parts) == 0 {
		return "NilgirisFresh order"
	}
	return "NilgirisFresh order for " + strings.Join(parts, ", ")
}

func isStripeNotFound(err error) bool {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return stripeErr.HTTPStatusCode == 404 || stripeErr.Code == stripe.ErrorCodeResourceMissing
	}
	return false
}
