package model

import "time"

// OrderStatus enumerates the lifecycle states of an order.  The zero
// value is not a valid status; orders are always created as StatusDraft.
type OrderStatus string

const (
    StatusDraft      OrderStatus = "draft"       // created, not yet in the picking queue
    StatusQueued     OrderStatus = "queued"      // waiting in the queue for a device
    StatusInProgress OrderStatus = "in_progress" // claimed by a device, being picked
    StatusCompleted  OrderStatus = "completed"   // picking finished
    StatusCancelled  OrderStatus = "cancelled"   // withdrawn before picking started
)

// transitions is the single source of truth for which status changes are
// legal.  Every call site that moves an order between states must consult
// CanTransition instead of comparing status strings inline.
var transitions = map[OrderStatus]map[OrderStatus]bool{
    StatusDraft: {
        StatusQueued:    true, // enqueue
        StatusCancelled: true, // cancel
    },
    StatusQueued: {
        StatusDraft:      true, // dequeue back to draft
        StatusInProgress: true, // claim by a device
        StatusCancelled:  true, // cancel
    },
    StatusInProgress: {
        StatusDraft:     true, // administrative dequeue of an abandoned pick
        StatusCompleted: true, // completion
    },
    StatusCompleted:  {},
    StatusCancelled:  {},
}

// CanTransition reports whether an order may move from one status to
// another.  Terminal states (completed, cancelled) allow no transitions.
func CanTransition(from, to OrderStatus) bool {
    allowed, ok := transitions[from]
    if !ok {
        return false
    }
    return allowed[to]
}

// Valid reports whether s is one of the known order statuses.
func (s OrderStatus) Valid() bool {
    _, ok := transitions[s]
    return ok
}

// InQueue reports whether an order with this status occupies a queue
// position.  The invariant maintained by the repository layer is that
// queue_position is non-null exactly when InQueue returns true.
func (s OrderStatus) InQueue() bool {
    return s == StatusQueued || s == StatusInProgress
}

// Order is a request to pick a set of products for one customer.  It
// progresses through the fixed status lifecycle above.  QueuePosition is
// nil unless the order is queued or in progress.
//
// Fields:
//  ID            – primary key identifier.
//  CustomerID    – owning customer (tenant boundary).
//  Code          – human-readable order code, unique per customer.
//  Status        – current lifecycle status.
//  QueuePosition – rank among queued/in_progress orders, nil otherwise.
//  CreatedAt     – creation timestamp.
//  CompletedAt   – completion timestamp, nil until completed.
//  Notes         – free-form notes.
type Order struct {
    ID            uint64      // orders.order_id
    CustomerID    uint64      // orders.customer_id
    Code          string      // orders.order_code
    Status        OrderStatus // orders.status
    QueuePosition *uint32     // orders.queue_position (nullable)
    CreatedAt     time.Time   // orders.created_at
    CompletedAt   *time.Time  // orders.completed_at (nullable)
    Notes         string      // orders.notes
}

// OrderLine is one product/quantity entry on an order.  Lines are
// immutable once the order leaves draft or queued.
type OrderLine struct {
    ID        uint64 // order_lines.id
    OrderID   uint64 // order_lines.order_id
    ProductID uint64 // order_lines.product_id
    Quantity  uint32 // order_lines.quantity (positive)
}
