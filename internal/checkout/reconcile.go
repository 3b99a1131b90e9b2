package checkout

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/nilgirisfresh-backend/internal/payments"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/nilgirisfresh-backend/pkg/errors"
)

// ReconcileReport summarises one pass over paid attempts without an order.
type ReconcileReport struct {
	Scanned  int
	Recorded int
	Failed   int
}

// ExpireReport summarises one pass over stale pending attempts.
type ExpireReport struct {
	Scanned   int
	Recorded  int
	Abandoned int
	Failed    int
}

// ReconcileUnrecorded retries order insertion for every unrecorded attempt
// and for succeeded attempts older than succeededBefore (zero means all). The shopper's cart
// is not touched: it may hold a newer selection by now.
func (s *service) ReconcileUnrecorded(ctx context.Context, succeededBefore time.Time, limit int) (ReconcileReport, error) {
	var report ReconcileReport
	unrecorded, err := s.attempts.ListByStatus(ctx, []enums.PaymentAttemptStatus{enums.PaymentAttemptStatusUnrecorded}, time.Time{}, limit)
	if err != nil {
		return report, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list unrecorded attempts")
	}
	stuck, err := s.attempts.ListByStatus(ctx, []enums.PaymentAttemptStatus{enums.PaymentAttemptStatusSucceeded}, succeededBefore, limit)
	if err != nil {
		return report, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list succeeded attempts")
	}

	var errs error
	for _, attempt := range append(unrecorded, stuck...) {
		attempt := attempt
		report.Scanned++
		attemptCtx := s.logg.WithPaymentReference(ctx, attempt.Reference)
		if _, err := s.placeOrder(attemptCtx, &attempt, false); err != nil {
			report.Failed++
			errs = multierr.Append(errs, fmt.Errorf("reconcile %s: %w", attempt.Reference, err))
			continue
		}
		report.Recorded++
		if attempt.Status == enums.PaymentAttemptStatusUnrecorded {
			s.metrics.IncReconciled()
		}
	}
	return report, errs
}

// ExpirePending resolves attempts that stayed pending past createdBefore.
// The gateway session is cancelled; a session that turns out to be paid is
// recorded instead.
func (s *service) ExpirePending(ctx context.Context, createdBefore time.Time, limit int) (ExpireReport, error) {
	var report ExpireReport
	pending, err := s.attempts.ListByStatus(ctx, []enums.PaymentAttemptStatus{enums.PaymentAttemptStatusPending}, createdBefore, limit)
	if err != nil {
		return report, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending attempts")
	}

	var errs error
	for _, attempt := range pending {
		attempt := attempt
		report.Scanned++
		attemptCtx := s.logg.WithPaymentReference(ctx, attempt.Reference)

		result, err := s.gateway.Cancel(attemptCtx, attempt.Reference)
		if err != nil && !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			report.Failed++
			errs = multierr.Append(errs, fmt.Errorf("expire %s: %w", attempt.Reference, err))
			continue
		}
		if err != nil {
			result = payments.Result{Reference: attempt.Reference, Outcome: payments.OutcomeCancelled, Reason: "session not found at gateway"}
		}

		if result.Outcome == payments.OutcomeSucceeded {
			if _, err := s.placeOrder(attemptCtx, &attempt, false); err != nil {
				report.Failed++
				errs = multierr.Append(errs, fmt.Errorf("record %s: %w", attempt.Reference, err))
				continue
			}
			report.Recorded++
			continue
		}

		if result.Outcome != payments.OutcomeFailed {
			result.Outcome = payments.OutcomeCancelled
		}
		if result.Reason == "" {
			result.Reason = "expired"
		}
		if _, err := s.abandon(attemptCtx, &attempt, result); err != nil {
			report.Failed++
			errs = multierr.Append(errs, fmt.Errorf("abandon %s: %w", attempt.Reference, err))
			continue
		}
		report.Abandoned++
	}
	return report, errs
}
