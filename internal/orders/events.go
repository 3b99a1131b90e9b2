package orders

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/nilgirisfresh-backend/pkg/db/models"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/enums"
	"github.com/angelmondragon/nilgirisfresh-backend/pkg/logger"
)

const (
	EventOrderPlaced        = "order.placed"
	EventOrderStatusChanged = "order.status_changed"
)

// Event is the payload published to the orders topic.
type Event struct {
	Type             string            `json:"type"`
	OrderID          uuid.UUID         `json:"order_id"`
	UserID           uuid.UUID         `json:"user_id"`
	Status           enums.OrderStatus `json:"status"`
	PreviousStatus   enums.OrderStatus `json:"previous_status,omitempty"`
	TotalAmount      decimal.Decimal   `json:"total_amount"`
	Currency         string            `json:"currency"`
	PaymentReference string            `json:"payment_reference"`
	OccurredAt       time.Time         `json:"occurred_at"`
}

// TopicPublisher is the slice of the pubsub client used for order events.
type TopicPublisher interface {
	OrdersTopic() string
	Publish(ctx context.Context, topic string, data []byte, attrs map[string]string) (string, error)
}

// Events publishes order lifecycle events. The zero value and a nil
// *Events drop every event.
type Events struct {
	publisher TopicPublisher
	logg      *logger.Logger
}

// NewEvents wires a publisher. Passing a nil publisher disables publishing.
func NewEvents(publisher TopicPublisher, logg *logger.Logger) *Events {
	return &Events{publisher: publisher, logg: logg}
}

// Placed announces a newly recorded order.
func (e *Events) Placed(ctx context.Context, order models.Order) {
	e.publish(ctx, eventFor(EventOrderPlaced, order, ""))
}

// StatusChanged announces an admin transition.
func (e *Events) StatusChanged(ctx context.Context, order models.Order, previous enums.OrderStatus) {
	e.publish(ctx, eventFor(EventOrderStatusChanged, order, previous))
}

func eventFor(kind string, order models.Order, previous enums.OrderStatus) Event {
	return Event{
		Type:             kind,
		OrderID:          order.ID,
		UserID:           order.UserID,
		Status:           order.Status,
		PreviousStatus:   previous,
		TotalAmount:      order.TotalAmount,
		Currency:         order.Currency,
		PaymentReference: order.PaymentReference,
		OccurredAt:       time.Now().UTC(),
	}
}

// publish never fails the caller: the order row is already committed.
func (e *Events) publish(ctx context.Context, evt Event) {
	if e == nil || e.publisher == nil {
		return
	}
	data, err := json.Marshal(evt)
	if err != nil {
		e.logError(ctx, evt, "marshal order event", err)
		return
	}
	attrs := map[string]string{
		"event_type": evt.Type,
		"order_id":   evt.OrderID.String(),
	}
	if _, err := e.publisher.Publish(ctx, e.publisher.OrdersTopic(), data, attrs); err != nil {
		e.logError(ctx, evt, "publish order event", err)
	}
}

func (e *Events) logError(ctx context.Context, evt Event, msg string, err error) {
	if e.logg == nil {
		return
	}
	ctx = e.logg.WithFields(ctx, map[string]any{
		"event_type": evt.Type,
		"order_id":   evt.OrderID.String(),
	})
	e.logg.Error(ctx, msg, err)
}
