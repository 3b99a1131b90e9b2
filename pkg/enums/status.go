package enums

// OrderStatus moves forward one step at a time; any open order can be
// cancelled. Delivered and cancelled are final.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

var orderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

var orderSuccessor = map[OrderStatus]OrderStatus{
	OrderStatusPending:   OrderStatusConfirmed,
	OrderStatusConfirmed: OrderStatusShipped,
	OrderStatusShipped:   OrderStatusDelivered,
}

func ParseOrderStatus(raw string) (OrderStatus, error) {
	return parse("order status", orderStatuses, raw)
}

func (o OrderStatus) IsValid() bool {
	return member(o, orderStatuses)
}

func (o OrderStatus) IsTerminal() bool {
	return o == OrderStatusDelivered || o == OrderStatusCancelled
}

func (o OrderStatus) CanTransitionTo(next OrderStatus) bool {
	return member(next, o.NextStatuses())
}

// NextStatuses lists the statuses reachable from o in one step; the
// returned slice is the caller's.
func (o OrderStatus) NextStatuses() []OrderStatus {
	next, open := orderSuccessor[o]
	if !open {
		return nil
	}
	return []OrderStatus{next, OrderStatusCancelled}
}

// PaymentAttemptStatus follows a checkout payment from hand-off to the
// stored order. Unrecorded means the money was taken but the order write
// failed; the reconcile job retries those until they are recorded.
type PaymentAttemptStatus string

const (
	PaymentAttemptStatusPending    PaymentAttemptStatus = "pending"
	PaymentAttemptStatusSucceeded  PaymentAttemptStatus = "succeeded"
	PaymentAttemptStatusFailed     PaymentAttemptStatus = "failed"
	PaymentAttemptStatusCancelled  PaymentAttemptStatus = "cancelled"
	PaymentAttemptStatusUnrecorded PaymentAttemptStatus = "unrecorded"
	PaymentAttemptStatusRecorded   PaymentAttemptStatus = "recorded"
)

func (p PaymentAttemptStatus) IsValid() bool {
	return member(p, []PaymentAttemptStatus{
		PaymentAttemptStatusPending,
		PaymentAttemptStatusSucceeded,
		PaymentAttemptStatusFailed,
		PaymentAttemptStatusCancelled,
		PaymentAttemptStatusUnrecorded,
		PaymentAttemptStatusRecorded,
	})
}

func (p PaymentAttemptStatus) IsTerminal() bool {
	switch p {
	case PaymentAttemptStatusFailed, PaymentAttemptStatusCancelled, PaymentAttemptStatusRecorded:
		return true
	}
	return false
}
