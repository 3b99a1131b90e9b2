package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/nilgirisfresh-backend/internal/checkout"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/logger"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/metrics"
)

const (
	paymentReconcileJobName = "payment-reconcile"
	paymentExpireJobName    = "payment-expire"

	defaultBatchSize      = 50
	defaultReconcileGrace = 2 * time.Minute
	defaultAttemptTTL     = 2 * time.Hour
)

type paymentSweeper interface {
	ReconcileUnrecorded(ctx context.Context, succeededBefore time.Time, limit int) (checkout.ReconcileReport, error)
	ExpirePending(ctx context.Context, createdBefore time.Time, limit int) (checkout.ExpireReport, error)
}

// PaymentJobParams configure the payment sweep jobs.
type PaymentJobParams struct {
	Logger    *logger.Logger
	Checkout  paymentSweeper
	Metrics   *metrics.CronJobMetrics
	BatchSize int
	// ReconcileGrace leaves freshly succeeded attempts to the shopper's own
	// completion request and the webhook.
	ReconcileGrace time.Duration
	AttemptTTL     time.Duration
}

func (p PaymentJobParams) validate() error {
	if p.Logger == nil {
		return fmt.Errorf("logger required")
	}
	if p.Checkout == nil {
		return fmt.Errorf("checkout service required")
	}
	return nil
}

func (p PaymentJobParams) batchSize() int {
	if p.BatchSize <= 0 {
		return defaultBatchSize
	}
	return p.BatchSize
}

type paymentReconcileJob struct {
	logg      *logger.Logger
	checkout  paymentSweeper
	metrics   *metrics.CronJobMetrics
	batchSize int
	grace     time.Duration
	now       func() time.Time
}

// NewPaymentReconcileJob builds the job that records orders for captured
// payments whose order insert never landed.
func NewPaymentReconcileJob(params PaymentJobParams) (Job, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	grace := params.ReconcileGrace
	if grace <= 0 {
		grace = defaultReconcileGrace
	}
	return &paymentReconcileJob{
		logg:      params.Logger,
		checkout:  params.Checkout,
		metrics:   params.Metrics,
		batchSize: params.batchSize(),
		grace:     grace,
		now:       time.Now,
	}, nil
}

func (j *paymentReconcileJob) Name() string { return paymentReconcileJobName }

func (j *paymentReconcileJob) Run(ctx context.Context) error {
	report, err := j.checkout.ReconcileUnrecorded(ctx, j.now().UTC().Add(-j.grace), j.batchSize)
	j.metrics.AddItems(paymentReconcileJobName, "recorded", report.Recorded)
	j.metrics.AddItems(paymentReconcileJobName, "failed", report.Failed)
	ctx = j.logg.WithFields(ctx, map[string]any{
		"scanned":  report.Scanned,
		"recorded": report.Recorded,
		"failed":   report.Failed,
	})
	if err != nil {
		return fmt.Errorf("reconcile unrecorded payments: %w", err)
	}
	if report.Scanned > 0 {
		j.logg.Info(ctx, "reconciled captured payments")
	}
	return nil
}

type paymentExpireJob struct {
	logg      *logger.Logger
	checkout  paymentSweeper
	metrics   *metrics.CronJobMetrics
	batchSize int
	ttl       time.Duration
	now       func() time.Time
}

// NewPaymentExpireJob builds the job that settles attempts left pending past
// their TTL, cancelling them at the provider when nothing was captured.
func NewPaymentExpireJob(params PaymentJobParams) (Job, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	ttl := params.AttemptTTL
	if ttl <= 0 {
		ttl = defaultAttemptTTL
	}
	return &paymentExpireJob{
		logg:      params.Logger,
		checkout:  params.Checkout,
		metrics:   params.Metrics,
		batchSize: params.batchSize(),
		ttl:       ttl,
		now:       time.Now,
	}, nil
}

func (j *paymentExpireJob) Name() string { return paymentExpireJobName }

func (j *paymentExpireJob) Run(ctx context.Context) error {
	report, err := j.checkout.ExpirePending(ctx, j.now().UTC().Add(-j.ttl), j.batchSize)
	j.metrics.AddItems(paymentExpireJobName, "recorded", report.Recorded)
	j.metrics.AddItems(paymentExpireJobName, "abandoned", report.Abandoned)
	j.metrics.AddItems(paymentExpireJobName, "failed", report.Failed)
	ctx = j.logg.WithFields(ctx, map[string]any{
		"scanned":   report.Scanned,
		"recorded":  report.Recorded,
		"abandoned": report.Abandoned,
		"failed":    report.Failed,
	})
	if err != nil {
		return fmt.Errorf("expire pending payments: %w", err)
	}
	if report.Scanned > 0 {
		j.logg.Info(ctx, "expired stale payment attempts")
	}
	return nil
}
