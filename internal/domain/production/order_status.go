package production

// OrderStatus represents the lifecycle state of a production order
type OrderStatus string

const (
	OrderStatusPlanned        OrderStatus = "PLANNED"
	OrderStatusReserved       OrderStatus = "RESERVED"
	OrderStatusConsumed       OrderStatus = "CONSUMED"
	OrderStatusResultRecorded OrderStatus = "RESULT_RECORDED"
	OrderStatusReceived       OrderStatus = "RECEIVED"
	OrderStatusCancelled      OrderStatus = "CANCELLED"
)

// transitions is the single source of truth for legal status changes.
// ResultRecorded -> ResultRecorded covers additional partial results.
var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusPlanned:        {OrderStatusReserved, OrderStatusCancelled},
	OrderStatusReserved:       {OrderStatusConsumed, OrderStatusCancelled},
	OrderStatusConsumed:       {OrderStatusResultRecorded},
	OrderStatusResultRecorded: {OrderStatusResultRecorded, OrderStatusReceived},
	OrderStatusReceived:       {},
	OrderStatusCancelled:      {},
}

// IsValid checks if the status is a valid OrderStatus
func (s OrderStatus) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, next := range transitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true when no further transition is possible
func (s OrderStatus) IsTerminal() bool {
	return s.IsValid() && len(transitions[s]) == 0
}

// AllOrderStatuses returns every status in lifecycle order
func AllOrderStatuses() []OrderStatus {
	return []OrderStatus{
		OrderStatusPlanned,
		OrderStatusReserved,
		OrderStatusConsumed,
		OrderStatusResultRecorded,
		OrderStatusReceived,
		OrderStatusCancelled,
	}
}
