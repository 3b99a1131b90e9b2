package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/nilgirisfresh-backend/internal/cart"
	"github.com/angelmondragon/nilgirisfresh-backend/internal/catalog"
	"github.com/angelmondragon/nilgirisfresh-backend/internal/orders"
	"github.com/angelmondragon/nilgirisfresh-backend/internal/payments"
	"github.com/angelmondragon/nilgirisfresh-backend/internal/settings"
	"github.com/angelmondragon/nilgirisfresh-backend/internal/whatsapp"
	pkgcheckout "github.com/angelmondragon/nilgirisfresh-backend/pkg/checkout"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/db"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/db/models"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/nilgirisfresh-backend/pkg/errors"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/logger"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/metrics"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/types"
)

const defaultLockTTL = 15 * time.Minute

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cartStore interface {
	Cart(ctx context.Context, owner cart.Owner) (cart.Cart, error)
	Settle(ctx context.Context, userID uuid.UUID, paid types.OrderLines) error
}

type selectionResolver interface {
	Resolve(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (*catalog.Selection, error)
}

type settingsReader interface {
	Get(ctx context.Context) (settings.Settings, error)
	RequirePaymentIdentifier(ctx context.Context) (settings.Settings, error)
}

// LockStore guards a shopper against concurrent checkout submissions.
type LockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	CheckoutLockKey(userID string) string
}

// BeginResult is handed to the storefront to drive the hosted payment form.
type BeginResult struct {
	Session     payments.Session `json:"session"`
	TotalItems  int              `json:"total_items"`
	UPIPayLink  string           `json:"upi_pay_link,omitempty"`
	AttemptID   uuid.UUID        `json:"attempt_id"`
	ExpiresAt   time.Time        `json:"lock_expires_at"`
	Description string           `json:"description"`
}

// CompleteResult reports how a payment ended. Order and WhatsAppURL are set
// only when the payment succeeded.
type CompleteResult struct {
	Reference   string           `json:"reference"`
	Outcome     payments.Outcome `json:"outcome"`
	Order       *orders.OrderDTO `json:"order,omitempty"`
	WhatsAppURL string           `json:"whatsapp_url,omitempty"`
	Notice      string           `json:"notice,omitempty"`
}

// CancelResult is returned when a shopper abandons or fails a payment.
type CancelResult struct {
	Reference string           `json:"reference"`
	Outcome   payments.Outcome `json:"outcome"`
	Notice    string           `json:"notice"`
}

// Service runs the payment-to-order workflow.
type Service interface {
	BeginPayment(ctx context.Context, owner cart.Owner, form pkgcheckout.ShippingForm, idempotencyKey string) (*BeginResult, error)
	CompletePayment(ctx context.Context, userID uuid.UUID, reference string) (*CompleteResult, error)
	CancelPayment(ctx context.Context, userID uuid.UUID, reference, reason string) (*CancelResult, error)
	AttachEvidence(ctx context.Context, userID uuid.UUID, reference, objectKey string) error
	RecordOutcome(ctx context.Context, result payments.Result) error
	ReconcileUnrecorded(ctx context.Context, succeededBefore time.Time, limit int) (ReconcileReport, error)
	ExpirePending(ctx context.Context, createdBefore time.Time, limit int) (ExpireReport, error)
}

// ServiceParams collects the checkout collaborators.
type ServiceParams struct {
	Tx       txRunner
	Attempts AttemptRepository
	Orders   orders.Repository
	Cart     cartStore
	Catalog  selectionResolver
	Settings settingsReader
	Gateway  payments.Gateway
	Locks    LockStore
	Events   *orders.Events
	Metrics  *metrics.CheckoutMetrics
	Logger   *logger.Logger
	Currency string
	LockTTL  time.Duration
}

type service struct {
	tx       txRunner
	attempts AttemptRepository
	orders   orders.Repository
	cart     cartStore
	catalog  selectionResolver
	settings settingsReader
	gateway  payments.Gateway
	locks    LockStore
	events   *orders.Events
	metrics  *metrics.CheckoutMetrics
	logg     *logger.Logger
	currency string
	lockTTL  time.Duration
}

// NewService builds the checkout service.
func NewService(p ServiceParams) (Service, error) {
	switch {
	case p.Tx == nil:
		return nil, fmt.Errorf("tx runner required")
	case p.Attempts == nil:
		return nil, fmt.Errorf("attempt repository required")
	case p.Orders == nil:
		return nil, fmt.Errorf("orders repository required")
	case p.Cart == nil:
		return nil, fmt.Errorf("cart store required")
	case p.Catalog == nil:
		return nil, fmt.Errorf("catalog resolver required")
	case p.Settings == nil:
		return nil, fmt.Errorf("settings reader required")
	case p.Gateway == nil:
		return nil, fmt.Errorf("payment gateway required")
	case p.Locks == nil:
		return nil, fmt.Errorf("lock store required")
	case p.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	currency := strings.ToLower(strings.TrimSpace(p.Currency))
	if currency == "" {
		currency = "inr"
	}
	ttl := p.LockTTL
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &service{
		tx:       p.Tx,
		attempts: p.Attempts,
		orders:   p.Orders,
		cart:     p.Cart,
		catalog:  p.Catalog,
		settings: p.Settings,
		gateway:  p.Gateway,
		locks:    p.Locks,
		events:   p.Events,
		metrics:  p.Metrics,
		logg:     p.Logger,
		currency: currency,
		lockTTL:  ttl,
	}, nil
}

// BeginPayment prices the owner's bound cart and opens a gateway session.
// A guest cart the owner carried into sign-in is merged before the read.
func (s *service) BeginPayment(ctx context.Context, owner cart.Owner, form pkgcheckout.ShippingForm, idempotencyKey string) (*BeginResult, error) {
	if !owner.Bound() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to check out")
	}
	userID := *owner.UserID
	shipping, err := pkgcheckout.ValidateShippingForm(form)
	if err != nil {
		return nil, err
	}

	current, err := s.cart.Cart(ctx, owner)
	if err != nil {
		return nil, err
	}
	if current.Empty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	if err := s.checkStock(ctx, current); err != nil {
		return nil, err
	}
	store, err := s.settings.RequirePaymentIdentifier(ctx)
	if err != nil {
		return nil, err
	}

	lockKey := s.locks.CheckoutLockKey(userID.String())
	acquired, err := s.locks.SetNX(ctx, lockKey, time.Now().UTC().Format(time.RFC3339), s.lockTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire checkout lock")
	}
	if !acquired {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "a checkout is already in progress")
	}
	lockedAt := time.Now().UTC()

	totals := current.Totals()
	snapshot := current.Snapshot()
	if strings.TrimSpace(idempotencyKey) == "" {
		idempotencyKey = "checkout:" + userID.String() + ":" + uuid.NewString()
	}
	session, err := s.gateway.Begin(ctx, payments.BeginRequest{
		Amount:   totals.TotalAmount,
		Currency: s.currency,
		Payer: payments.Payer{
			Name:  shipping.CustomerName,
			Email: shipping.EmailOrEmpty(),
			Phone: shipping.Phone,
		},
		IdempotencyKey: idempotencyKey,
		Metadata: map[string]string{
			"user_id":     userID.String(),
			"total_items": fmt.Sprintf("%d", totals.TotalItems),
		},
	})
	if err != nil {
		s.releaseLock(ctx, userID)
		return nil, err
	}

	attempt := &models.PaymentAttempt{
		UserID:    userID,
		Reference: session.Reference,
		Amount:    totals.TotalAmount,
		Currency:  s.currency,
		Status:    enums.PaymentAttemptStatusPending,
		Shipping:  shipping,
		Items:     snapshot,
	}
	if err := s.attempts.Create(ctx, attempt); err != nil {
		if db.IsUniqueViolation(err, "") {
			// The idempotency key replayed an existing session.
			existing, findErr := s.attempts.FindByReference(ctx, session.Reference)
			if findErr == nil && existing.UserID == userID {
				attempt = existing
			} else {
				s.releaseLock(ctx, userID)
				return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "payment session already in use")
			}
		} else {
			if _, cancelErr := s.gateway.Cancel(ctx, session.Reference); cancelErr != nil {
				s.logg.Warn(s.logg.WithPaymentReference(ctx, session.Reference), "cancel orphaned payment session failed: "+cancelErr.Error())
			}
			s.releaseLock(ctx, userID)
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist payment attempt")
		}
	}

	s.metrics.IncPaymentsBegun()
	logCtx := s.logg.WithUserID(s.logg.WithPaymentReference(ctx, session.Reference), userID.String())
	s.logg.Info(logCtx, "payment session opened")

	description := fmt.Sprintf("NilgirisFresh order for %s", shipping.CustomerName)
	return &BeginResult{
		Session:     session,
		TotalItems:  totals.TotalItems,
		UPIPayLink:  settings.UPILink(store.UPIID, totals.TotalAmount, description),
		AttemptID:   attempt.ID,
		ExpiresAt:   lockedAt.Add(s.lockTTL),
		Description: description,
	}, nil
}

func (s *service) checkStock(ctx context.Context, current cart.Cart) error {
	inputs := make([]pkgcheckout.StockValidationInput, 0, len(current.Items))
	for _, item := range current.Items {
		input := pkgcheckout.StockValidationInput{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Name:      item.DisplayName,
		}
		sel, err := s.catalog.Resolve(ctx, item.ProductID, item.VariantID)
		switch {
		case err == nil:
			input.StockStatus = sel.StockStatus
		case pkgerrors.IsCode(err, pkgerrors.CodeNotFound), pkgerrors.IsCode(err, pkgerrors.CodeValidation):
			// Deleted products and variants that went out of stock block checkout alike.
			input.StockStatus = enums.StockStatusOutOfStock
		default:
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "re-check cart stock")
		}
		inputs = append(inputs, input)
	}
	return pkgcheckout.ValidateStock(inputs)
}

func (s *service) releaseLock(ctx context.Context, userID uuid.UUID) {
	if err := s.locks.Del(ctx, s.locks.CheckoutLockKey(userID.String())); err != nil {
		s.logg.Warn(s.logg.WithUserID(ctx, userID.String()), "release checkout lock failed: "+err.Error())
	}
}

func (s *service) ownedAttempt(ctx context.Context, userID uuid.UUID, reference string) (*models.PaymentAttempt, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to check out")
	}
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference required")
	}
	attempt, err := s.loadAttempt(ctx, reference)
	if err != nil {
		return nil, err
	}
	if attempt.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}
	return attempt, nil
}

func (s *service) loadAttempt(ctx context.Context, reference string) (*models.PaymentAttempt, error) {
	attempt, err := s.attempts.FindByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment attempt")
	}
	return attempt, nil
}

// CompletePayment waits for the gateway outcome and, on success, records
// the order before clearing the cart. Calling it again for a recorded
// payment returns the same order.
func (s *service) CompletePayment(ctx context.Context, userID uuid.UUID, reference string) (*CompleteResult, error) {
	attempt, err := s.ownedAttempt(ctx, userID, reference)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithPaymentReference(s.logg.WithUserID(ctx, userID.String()), attempt.Reference)

	switch attempt.Status {
	case enums.PaymentAttemptStatusRecorded:
		return s.completedResult(ctx, attempt)
	case enums.PaymentAttemptStatusFailed, enums.PaymentAttemptStatusCancelled:
		return &CompleteResult{
			Reference: attempt.Reference,
			Outcome:   outcomeForStatus(attempt.Status),
			Notice:    noticeFor(outcomeForStatus(attempt.Status)),
		}, nil
	case enums.PaymentAttemptStatusUnrecorded, enums.PaymentAttemptStatusSucceeded:
		return s.placeOrder(ctx, attempt, true)
	}

	result, err := s.gateway.Await(ctx, attempt.Reference)
	if err != nil {
		return nil, err
	}
	s.metrics.IncOutcome(string(result.Outcome))

	switch result.Outcome {
	case payments.OutcomeSucceeded:
		return s.placeOrder(ctx, attempt, true)
	default:
		abandoned, err := s.abandon(ctx, attempt, result)
		if err != nil {
			return nil, err
		}
		return &CompleteResult{
			Reference: abandoned.Reference,
			Outcome:   abandoned.Outcome,
			Notice:    abandoned.Notice,
		}, nil
	}
}

func (s *service) completedResult(ctx context.Context, attempt *models.PaymentAttempt) (*CompleteResult, error) {
	order, err := s.orders.FindByPaymentReference(ctx, attempt.Reference)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load recorded order")
	}
	if order == nil {
		return nil, s.markUnrecorded(ctx, attempt, errors.New("payment attempt has no recorded order"))
	}
	return s.successResult(ctx, order), nil
}

func (s *service) successResult(ctx context.Context, order *models.Order) *CompleteResult {
	dto := orders.NewOrderDTO(*order)
	res := &CompleteResult{
		Reference: order.PaymentReference,
		Outcome:   payments.OutcomeSucceeded,
		Order:     &dto,
		Notice:    "Payment received. Your order has been placed.",
	}
	store, err := s.settings.Get(ctx)
	if err != nil {
		s.logg.Warn(ctx, "load settings for whatsapp link failed: "+err.Error())
		return res
	}
	if number := whatsapp.Digits(store.WhatsAppNumber); number != "" {
		msg := whatsapp.OrderMessage(order.Shipping(), order.Items, order.TotalAmount, order.PaymentReference)
		res.WhatsAppURL = whatsapp.Link(number, msg)
	}
	return res
}

// placeOrder inserts the order and marks the attempt recorded in one
// transaction. On failure the attempt becomes unrecorded and the cart is
// left alone. An attempt abandoned earlier is revived: the gateway reported
// the money as taken, so the order is owed regardless.
func (s *service) placeOrder(ctx context.Context, attempt *models.PaymentAttempt, settleCart bool) (*CompleteResult, error) {
	switch attempt.Status {
	case enums.PaymentAttemptStatusFailed, enums.PaymentAttemptStatusCancelled:
		s.logg.Warn(s.logg.WithField(ctx, "previous_status", string(attempt.Status)), "payment succeeded after the attempt was abandoned")
		fallthrough
	case enums.PaymentAttemptStatusPending:
		ok, err := s.attempts.Transition(ctx, attempt.ID, revivableStatuses, enums.PaymentAttemptStatusSucceeded, nil)
		if err != nil {
			s.logg.Warn(ctx, "mark attempt succeeded failed: "+err.Error())
		} else if ok {
			attempt.Status = enums.PaymentAttemptStatusSucceeded
		}
	}

	order := orderFromAttempt(attempt)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.orders.WithTx(tx).Create(ctx, order); err != nil {
			return err
		}
		ok, err := s.attempts.WithTx(tx).MarkRecorded(ctx, attempt.ID, order.ID)
		if err != nil {
			return err
		}
		if !ok {
			return errAlreadyRecorded
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errAlreadyRecorded) || db.IsUniqueViolation(err, "") {
			// Another path (webhook, retry or reconcile job) recorded it first.
			return s.completedResult(ctx, attempt)
		}
		return nil, s.markUnrecorded(ctx, attempt, err)
	}

	s.metrics.IncOrdersPlaced()
	s.events.Placed(ctx, *order)
	s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), "order recorded")

	if settleCart {
		if err := s.cart.Settle(ctx, attempt.UserID, attempt.Items); err != nil {
			s.logg.Error(ctx, "settle cart after order failed", err)
		}
	}
	s.releaseLock(ctx, attempt.UserID)
	return s.successResult(ctx, order), nil
}

var errAlreadyRecorded = errors.New("payment attempt already recorded")

var revivableStatuses = []enums.PaymentAttemptStatus{
	enums.PaymentAttemptStatusPending,
	enums.PaymentAttemptStatusFailed,
	enums.PaymentAttemptStatusCancelled,
}

func (s *service) markUnrecorded(ctx context.Context, attempt *models.PaymentAttempt, cause error) error {
	msg := cause.Error()
	from := append(append([]enums.PaymentAttemptStatus{}, recordableStatuses...), revivableStatuses...)
	if _, err := s.attempts.Transition(ctx, attempt.ID, from, enums.PaymentAttemptStatusUnrecorded, &msg); err != nil {
		s.logg.Error(ctx, "mark attempt unrecorded failed", err)
	}
	if attempt.Status != enums.PaymentAttemptStatusUnrecorded {
		s.metrics.IncUnreconciled()
	}
	s.logg.Error(ctx, "order insert failed after successful payment", cause)
	return pkgerrors.Wrap(pkgerrors.CodePaymentUnreconciled, cause, "payment received but order was not recorded").
		WithDetails(map[string]string{"payment_reference": attempt.Reference})
}

func orderFromAttempt(attempt *models.PaymentAttempt) *models.Order {
	shipping := attempt.Shipping
	return &models.Order{
		UserID:             attempt.UserID,
		CustomerName:       shipping.CustomerName,
		Phone:              shipping.Phone,
		Email:              shipping.Email,
		AddressLine1:       shipping.AddressLine1,
		AddressLine2:       shipping.AddressLine2,
		City:               shipping.City,
		State:              shipping.State,
		Pincode:            shipping.Pincode,
		Items:              attempt.Items.Clone(),
		TotalAmount:        attempt.Amount,
		Currency:           attempt.Currency,
		PaymentReference:   attempt.Reference,
		PaymentEvidenceKey: attempt.EvidenceKey,
		Status:             enums.OrderStatusPending,
	}
}

// CancelPayment abandons a payment the shopper closed or that failed at the
// gateway. The cart is left untouched.
func (s *service) CancelPayment(ctx context.Context, userID uuid.UUID, reference, reason string) (*CancelResult, error) {
	attempt, err := s.ownedAttempt(ctx, userID, reference)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithPaymentReference(s.logg.WithUserID(ctx, userID.String()), attempt.Reference)

	switch attempt.Status {
	case enums.PaymentAttemptStatusFailed, enums.PaymentAttemptStatusCancelled:
		outcome := outcomeForStatus(attempt.Status)
		return &CancelResult{Reference: attempt.Reference, Outcome: outcome, Notice: noticeFor(outcome)}, nil
	case enums.PaymentAttemptStatusPending:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment already succeeded").
			WithDetails(map[string]string{"payment_reference": attempt.Reference, "status": string(attempt.Status)})
	}

	result, err := s.gateway.Cancel(ctx, attempt.Reference)
	if err != nil {
		return nil, err
	}
	if result.Outcome == payments.OutcomeSucceeded {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment already succeeded").
			WithDetails(map[string]string{"payment_reference": attempt.Reference})
	}
	if result.Outcome != payments.OutcomeFailed {
		result.Outcome = payments.OutcomeCancelled
	}
	if result.Reason == "" {
		result.Reason = strings.TrimSpace(reason)
	}
	return s.abandon(ctx, attempt, result)
}

func (s *service) abandon(ctx context.Context, attempt *models.PaymentAttempt, result payments.Result) (*CancelResult, error) {
	status := enums.PaymentAttemptStatusCancelled
	if result.Outcome == payments.OutcomeFailed {
		status = enums.PaymentAttemptStatusFailed
	}
	var lastError *string
	if result.Reason != "" {
		lastError = &result.Reason
	}
	if _, err := s.attempts.Transition(ctx, attempt.ID, []enums.PaymentAttemptStatus{enums.PaymentAttemptStatusPending}, status, lastError); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment attempt")
	}
	s.releaseLock(ctx, attempt.UserID)
	s.logg.Info(s.logg.WithField(ctx, "outcome", string(result.Outcome)), "payment abandoned")

	outcome := outcomeForStatus(status)
	return &CancelResult{Reference: attempt.Reference, Outcome: outcome, Notice: noticeFor(outcome)}, nil
}

// AttachEvidence stores a payment screenshot key on the attempt, or on its
// order once the order exists.
func (s *service) AttachEvidence(ctx context.Context, userID uuid.UUID, reference, objectKey string) error {
	objectKey = strings.TrimSpace(objectKey)
	if objectKey == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "evidence object key required")
	}
	attempt, err := s.ownedAttempt(ctx, userID, reference)
	if err != nil {
		return err
	}
	if err := s.attempts.SetEvidenceKey(ctx, attempt.ID, objectKey); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach payment evidence")
	}
	if attempt.OrderID != nil {
		if err := s.orders.SetEvidenceKey(ctx, *attempt.OrderID, objectKey); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach payment evidence")
		}
	}
	return nil
}

// RecordOutcome applies a provider notification to the matching attempt.
func (s *service) RecordOutcome(ctx context.Context, result payments.Result) error {
	if !result.Outcome.Terminal() {
		return nil
	}
	attempt, err := s.loadAttempt(ctx, result.Reference)
	if err != nil {
		return err
	}
	ctx = s.logg.WithPaymentReference(ctx, attempt.Reference)
	switch {
	case attempt.Status == enums.PaymentAttemptStatusRecorded:
		return nil
	case result.Outcome == payments.OutcomeSucceeded:
		_, err := s.placeOrder(ctx, attempt, true)
		return err
	case attempt.Status == enums.PaymentAttemptStatusPending:
		_, err := s.abandon(ctx, attempt, result)
		return err
	}
	return nil
}

func outcomeForStatus(status enums.PaymentAttemptStatus) payments.Outcome {
	switch status {
	case enums.PaymentAttemptStatusFailed:
		return payments.OutcomeFailed
	case enums.PaymentAttemptStatusCancelled:
		return payments.OutcomeCancelled
	case enums.PaymentAttemptStatusPending:
		return payments.OutcomePending
	}
	return payments.OutcomeSucceeded
}

func noticeFor(outcome payments.Outcome) string {
	if outcome == payments.OutcomeFailed {
		return "Payment failed. Your cart has been kept so you can try again."
	}
	return "Payment cancelled. Your cart has been kept."
}
