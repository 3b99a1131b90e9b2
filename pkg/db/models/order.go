package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/nilgirisfresh-backend/pkg/enums"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/types"
)

// Order is the permanent record of a paid checkout.
type Order struct {
	ID                 uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID             uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index"`
	CustomerName       string            `gorm:"column:customer_name;not null"`
	Phone              string            `gorm:"column:phone;not null"`
	Email              *string           `gorm:"column:email"`
	AddressLine1       string            `gorm:"column:address_line1;not null"`
	AddressLine2       *string           `gorm:"column:address_line2"`
	City               string            `gorm:"column:city;not null"`
	State              string            `gorm:"column:state;not null"`
	Pincode            string            `gorm:"column:pincode;not null"`
	Items              types.OrderLines  `gorm:"column:order_items;type:jsonb;serializer:json;not null"`
	TotalAmount        decimal.Decimal   `gorm:"column:total_amount;type:numeric(12,2);not null"`
	Currency           string            `gorm:"column:currency;not null"`
	PaymentReference   string            `gorm:"column:payment_reference;not null;uniqueIndex"`
	PaymentEvidenceKey *string           `gorm:"column:payment_evidence_key"`
	Status             enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	CreatedAt          time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// Shipping rebuilds the delivery block stored on the order.
func (o Order) Shipping() types.ShippingDetails {
	return types.ShippingDetails{
		CustomerName: o.CustomerName,
		Phone:        o.Phone,
		Email:        o.Email,
		AddressLine1: o.AddressLine1,
		AddressLine2: o.AddressLine2,
		City:         o.City,
		State:        o.State,
		Pincode:      o.Pincode,
	}
}
