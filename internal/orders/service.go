package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/nilgirisfresh-backend/pkg/db/models"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/nilgirisfresh-backend/pkg/errors"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/logger"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/pagination"
)

const defaultEvidenceTTL = time.Hour

type evidenceSigner interface {
	SignedReadURL(bucket, object string, expires time.Duration) (string, error)
}

// Actor is the authenticated identity performing an order operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// IsAdmin reports whether the actor may use back-office operations.
func (a Actor) IsAdmin() bool {
	return a.Role == enums.UserRoleAdmin
}

// Service exposes shopper order history and the admin order workflow.
type Service interface {
	ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (ListResult, error)
	GetForUser(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error)
	AdminList(ctx context.Context, status *enums.OrderStatus, params pagination.Params) (ListResult, error)
	AdminGet(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error)
	UpdateStatus(ctx context.Context, actor Actor, orderID uuid.UUID, next enums.OrderStatus) (*OrderDTO, error)
	AttachEvidence(ctx context.Context, userID, orderID uuid.UUID, objectKey string) (*OrderDTO, error)
	StatusCounts(ctx context.Context) (StatusCounts, error)
}

// ServiceParams collects the order service collaborators.
type ServiceParams struct {
	Repo           Repository
	Signer         evidenceSigner
	EvidenceBucket string
	EvidenceTTL    time.Duration
	Events         *Events
	Logger         *logger.Logger
}

type service struct {
	repo        Repository
	signer      evidenceSigner
	bucket      string
	evidenceTTL time.Duration
	events      *Events
	logg        *logger.Logger
}

// NewService builds the order service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Signer == nil {
		return nil, fmt.Errorf("evidence signer required")
	}
	ttl := params.EvidenceTTL
	if ttl <= 0 {
		ttl = defaultEvidenceTTL
	}
	return &service{
		repo:        params.Repo,
		signer:      params.Signer,
		bucket:      params.EvidenceBucket,
		evidenceTTL: ttl,
		events:      params.Events,
		logg:        params.Logger,
	}, nil
}

func (s *service) load(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) list(ctx context.Context, query ListQuery, params pagination.Params) (ListResult, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return ListResult{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	query.Cursor = cursor
	query.Limit = params.Limit
	rows, err := s.repo.List(ctx, query)
	if err != nil {
		return ListResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return pageOf(rows, params.Limit), nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (ListResult, error) {
	if userID == uuid.Nil {
		return ListResult{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to view orders")
	}
	return s.list(ctx, ListQuery{UserID: &userID}, params)
}

// GetForUser hides orders owned by someone else behind NOT_FOUND.
func (s *service) GetForUser(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	dto := NewOrderDTO(*order)
	return &dto, nil
}

func (s *service) AdminList(ctx context.Context, status *enums.OrderStatus, params pagination.Params) (ListResult, error) {
	if status != nil && !status.IsValid() {
		return ListResult{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	return s.list(ctx, ListQuery{Status: status}, params)
}

// AdminGet returns the order with a short-lived link to the payment evidence.
func (s *service) AdminGet(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	dto := NewOrderDTO(*order)
	if dto.HasEvidence {
		url, err := s.signer.SignedReadURL(s.bucket, *order.PaymentEvidenceKey, s.evidenceTTL)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "generate evidence url")
		}
		dto.EvidenceURL = &url
	}
	return &dto, nil
}

func (s *service) UpdateStatus(ctx context.Context, actor Actor, orderID uuid.UUID, next enums.OrderStatus) (*OrderDTO, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins may change order status")
	}
	if !next.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status").
			WithDetails(map[string]string{"status": "unknown status"})
	}
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	current := order.Status
	if current == next {
		dto := NewOrderDTO(*order)
		return &dto, nil
	}
	if !current.CanTransitionTo(next) {
		return nil, transitionConflict(current, next)
	}

	ok, err := s.repo.UpdateStatus(ctx, order.ID, current, next)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
	}
	order.Status = next
	order.UpdatedAt = time.Now().UTC()

	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, order.ID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"from":     current,
			"to":       next,
			"admin_id": actor.UserID.String(),
		})
		s.logg.Info(logCtx, "order status updated")
	}
	s.events.StatusChanged(ctx, *order, current)

	dto := NewOrderDTO(*order)
	return &dto, nil
}

func transitionConflict(from, to enums.OrderStatus) error {
	allowed := make([]string, 0, 2)
	for _, st := range from.NextStatuses() {
		allowed = append(allowed, string(st))
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot move order from %s to %s", from, to)).
		WithDetails(map[string]any{
			"from":    from,
			"to":      to,
			"allowed": allowed,
		})
}

// AttachEvidence records the object key of a payment screenshot on the
// shopper's own order.
func (s *service) AttachEvidence(ctx context.Context, userID, orderID uuid.UUID, objectKey string) (*OrderDTO, error) {
	objectKey = strings.TrimSpace(objectKey)
	if objectKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "evidence object key required")
	}
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err := s.repo.SetEvidenceKey(ctx, order.ID, objectKey); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach payment evidence")
	}
	order.PaymentEvidenceKey = &objectKey
	dto := NewOrderDTO(*order)
	return &dto, nil
}

func (s *service) StatusCounts(ctx context.Context) (StatusCounts, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count orders")
	}
	out := StatusCounts{
		enums.OrderStatusPending:   0,
		enums.OrderStatusConfirmed: 0,
		enums.OrderStatusShipped:   0,
		enums.OrderStatusDelivered: 0,
		enums.OrderStatusCancelled: 0,
	}
	for status, n := range counts {
		out[status] = n
	}
	return out, nil
}
