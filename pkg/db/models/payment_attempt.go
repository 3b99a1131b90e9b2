package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/nilgirisfresh-backend/pkg/enums"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/types"
)

// PaymentAttempt tracks one gateway payment from initiation until an order is
// recorded (or the payment is abandoned). It holds everything needed to insert
// the order later, so a paid attempt can be reconciled without the cart.
type PaymentAttempt struct {
	ID          uuid.UUID                  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID                  `gorm:"column:user_id;type:uuid;not null;index"`
	Reference   string                     `gorm:"column:reference;not null;uniqueIndex"`
	Amount      decimal.Decimal            `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency    string                     `gorm:"column:currency;not null"`
	Status      enums.PaymentAttemptStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Shipping    types.ShippingDetails      `gorm:"column:shipping;type:jsonb;serializer:json;not null"`
	Items       types.OrderLines           `gorm:"column:items;type:jsonb;serializer:json;not null"`
	EvidenceKey *string                    `gorm:"column:evidence_key"`
	OrderID     *uuid.UUID                 `gorm:"column:order_id;type:uuid"`
	LastError   *string                    `gorm:"column:last_error"`
	CreatedAt   time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *PaymentAttempt) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
