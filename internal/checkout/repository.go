package checkout

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/nilgirisfresh-backend/pkg/db/models"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/enums"
)

// AttemptRepository persists payment attempts.
type AttemptRepository interface {
	WithTx(tx *gorm.DB) AttemptRepository
	Create(ctx context.Context, attempt *models.PaymentAttempt) error
	FindByReference(ctx context.Context, reference string) (*models.PaymentAttempt, error)
	Transition(ctx context.Context, id uuid.UUID, from []enums.PaymentAttemptStatus, to enums.PaymentAttemptStatus, lastError *string) (bool, error)
	MarkRecorded(ctx context.Context, id, orderID uuid.UUID) (bool, error)
	SetEvidenceKey(ctx context.Context, id uuid.UUID, key string) error
	ListByStatus(ctx context.Context, statuses []enums.PaymentAttemptStatus, createdBefore time.Time, limit int) ([]models.PaymentAttempt, error)
}

type attemptRepository struct {
	db *gorm.DB
}

// NewAttemptRepository builds a payment attempt repository.
func NewAttemptRepository(db *gorm.DB) AttemptRepository {
	return &attemptRepository{db: db}
}

func (r *attemptRepository) WithTx(tx *gorm.DB) AttemptRepository {
	if tx == nil {
		return r
	}
	return &attemptRepository{db: tx}
}

func (r *attemptRepository) Create(ctx context.Context, attempt *models.PaymentAttempt) error {
	return r.db.WithContext(ctx).Create(attempt).Error
}

func (r *attemptRepository) FindByReference(ctx context.Context, reference string) (*models.PaymentAttempt, error) {
	var attempt models.PaymentAttempt
	if err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&attempt).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

// Transition moves an attempt to status to when it is currently in one of
// from. It reports false when the attempt had already moved on.
func (r *attemptRepository) Transition(ctx context.Context, id uuid.UUID, from []enums.PaymentAttemptStatus, to enums.PaymentAttemptStatus, lastError *string) (bool, error) {
	updates := map[string]any{
		"status":     to,
		"updated_at": time.Now().UTC(),
	}
	if lastError != nil {
		updates["last_error"] = *lastError
	}
	res := r.db.WithContext(ctx).Model(&models.PaymentAttempt{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MarkRecorded links the attempt to its order. Only attempts that have not
// been recorded or abandoned qualify.
func (r *attemptRepository) MarkRecorded(ctx context.Context, id, orderID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.PaymentAttempt{}).
		Where("id = ? AND status IN ?", id, recordableStatuses).
		Updates(map[string]any{
			"status":     enums.PaymentAttemptStatusRecorded,
			"order_id":   orderID,
			"last_error": nil,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *attemptRepository) SetEvidenceKey(ctx context.Context, id uuid.UUID, key string) error {
	return r.db.WithContext(ctx).Model(&models.PaymentAttempt{}).
		Where("id = ?", id).
		Updates(map[string]any{"evidence_key": key, "updated_at": time.Now().UTC()}).Error
}

// ListByStatus returns the oldest attempts first. A zero createdBefore
// matches every attempt.
func (r *attemptRepository) ListByStatus(ctx context.Context, statuses []enums.PaymentAttemptStatus, createdBefore time.Time, limit int) ([]models.PaymentAttempt, error) {
	if limit <= 0 {
		limit = 50
	}
	qb := r.db.WithContext(ctx).Where("status IN ?", statuses)
	if !createdBefore.IsZero() {
		qb = qb.Where("created_at < ?", createdBefore)
	}
	var rows []models.PaymentAttempt
	err := qb.Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

var recordableStatuses = []enums.PaymentAttemptStatus{
	enums.PaymentAttemptStatusPending,
	enums.PaymentAttemptStatusSucceeded,
	enums.PaymentAttemptStatusUnrecorded,
}
