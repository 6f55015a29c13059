package model

import "time"

// PickList is the work record for one picking session on one device.
// For a queue-driven session the code equals the source order's code and
// OrderID references that order; for ad-hoc scanning sessions OrderID is
// nil.  At most one live picklist exists per (customer, code) pair; a
// re-claim reuses and resets the existing row instead of inserting a
// duplicate.
//
// Fields:
//  ID          – primary key identifier.
//  CustomerID  – owning customer.
//  OrderID     – source order, nil for ad-hoc picklists.
//  Code        – picklist code (order code for queue-driven sessions).
//  DeviceID    – device performing the pick.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last reset/claim timestamp.
//  PickStarted – whether picking has begun.
//  PickTime    – when picking began.
//  TimeTaken   – total pick duration, set at completion.
//  Successful  – nil until completion, then the worker's assertion.
//  Notes       – audit notes (restart/completion entries appended).
type PickList struct {
    ID          uint64         // picklists.picklist_id
    CustomerID  uint64         // picklists.customer_id
    OrderID     *uint64        // picklists.order_id (nullable)
    Code        string         // picklists.picklist_code
    DeviceID    uint64         // picklists.device_id
    CreatedAt   time.Time      // picklists.created_at
    UpdatedAt   time.Time      // picklists.updated_at
    PickStarted bool           // picklists.pick_started
    PickTime    time.Time      // picklists.pick_time
    TimeTaken   *time.Duration // picklists.time_taken_ms (nullable)
    Successful  *bool          // picklists.successful (nullable tri-state)
    Notes       string         // picklists.notes
}

// ProductPick is one ledger row representing a single physical unit to
// be scanned.  A claim expands every order line of quantity N into N
// rows so each unit can be resolved and retried independently.
// Successful is nil while the unit is unresolved.
type ProductPick struct {
    ID         uint64         // product_picks.id
    PickListID uint64         // product_picks.picklist_id
    ProductID  uint64         // product_picks.product_id
    Quantity   uint32         // product_picks.quantity (always 1 in the queue flow)
    TimeTaken  *time.Duration // product_picks.time_taken_ms (nullable)
    Successful *bool          // product_picks.successful (nullable tri-state)
    Notes      string         // product_picks.notes
}
