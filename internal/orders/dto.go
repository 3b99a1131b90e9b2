package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/nilgirisfresh-backend/pkg/db/models"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/enums"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/pagination"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/types"
)

// OrderDTO is the API shape of a placed order.
type OrderDTO struct {
	ID               uuid.UUID             `json:"id"`
	UserID           uuid.UUID             `json:"user_id"`
	Shipping         types.ShippingDetails `json:"shipping"`
	Items            types.OrderLines      `json:"items"`
	TotalAmount      decimal.Decimal       `json:"total_amount"`
	Currency         string                `json:"currency"`
	PaymentReference string                `json:"payment_reference"`
	Status           enums.OrderStatus     `json:"status"`
	NextStatuses     []enums.OrderStatus   `json:"next_statuses"`
	HasEvidence      bool                  `json:"has_payment_evidence"`
	EvidenceURL      *string               `json:"payment_evidence_url,omitempty"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
}

// ListResult is one page of orders.
type ListResult = pagination.Page[OrderDTO]

// StatusCounts maps every order status to its row count; absent statuses are zero.
type StatusCounts map[enums.OrderStatus]int64

// NewOrderDTO maps a stored order. Line items are deep-copied.
func NewOrderDTO(o models.Order) OrderDTO {
	return OrderDTO{
		ID:               o.ID,
		UserID:           o.UserID,
		Shipping:         o.Shipping(),
		Items:            o.Items.Clone(),
		TotalAmount:      o.TotalAmount,
		Currency:         o.Currency,
		PaymentReference: o.PaymentReference,
		Status:           o.Status,
		NextStatuses:     o.Status.NextStatuses(),
		HasEvidence:      o.PaymentEvidenceKey != nil && *o.PaymentEvidenceKey != "",
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
	}
}

func pageOf(rows []models.Order, limit int) ListResult {
	dtos := make([]OrderDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, NewOrderDTO(row))
	}
	return pagination.Slice(dtos, limit, func(o OrderDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
}
