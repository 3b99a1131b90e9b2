// Package stripewebhook turns verified Stripe events into payment outcomes.
package stripewebhook

import (
	"context"
	"encoding/json"

	"github.com/stripe/stripe-go/v82"

	"github.com/angelmondragon/nilgirisfresh-backend/internal/payments"
	pkgerrors "github.com/angelmondragon/nilgirisfresh-backend/pkg/errors"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/logger"
)

// OutcomeRecorder persists a payment outcome against its checkout attempt.
type OutcomeRecorder interface {
	RecordOutcome(ctx context.Context, res payments.Result) error
}

type resolver interface {
	Resolve(res payments.Result) int
}

type ServiceParams struct {
	Hub      resolver
	Recorder OutcomeRecorder
	Logger   *logger.Logger
}

type Service struct {
	hub      resolver
	recorder OutcomeRecorder
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Hub == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment hub required")
	}
	if params.Recorder == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outcome recorder required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{hub: params.Hub, recorder: params.Recorder, logg: params.Logger}, nil
}

// HandleEvent records the outcome first and then wakes in-process waiters.
// Events other than PaymentIntent terminal transitions are acknowledged and
// ignored.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded,
		stripe.EventTypePaymentIntentPaymentFailed,
		stripe.EventTypePaymentIntentCanceled:
	default:
		return nil
	}

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent event")
	}
	if intent.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment intent id missing")
	}

	res := payments.ResultFromIntent(&intent)
	if event.Type == stripe.EventTypePaymentIntentPaymentFailed && !res.Outcome.Terminal() {
		res.Outcome = payments.OutcomeFailed
	}

	ctx = s.logg.WithPaymentReference(ctx, intent.ID)
	if err := s.recorder.RecordOutcome(ctx, res); err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			// Intents created outside checkout (dashboard, tests) have no attempt.
			s.logg.Warn(ctx, "payment outcome for unknown attempt ignored")
		} else {
			return err
		}
	}
	woken := s.hub.Resolve(res)
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"outcome": string(res.Outcome),
		"waiters": woken,
	}), "payment outcome received")
	return nil
}
