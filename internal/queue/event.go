// Package queue defines message payloads exchanged over the message broker.
package queue

// PickListCompletedEvent is published when a picklist is closed out by a
// device. It contains enough information for downstream consumers to
// log, notify, or trigger analytics without querying the primary
// database. OrderID and OrderCode are zero-valued for ad-hoc picklists
// that have no source order.
type PickListCompletedEvent struct {
    EventID      string `json:"event_id"`
    PickListID   uint64 `json:"picklist_id"`
    PickListCode string `json:"picklist_code"`
    OrderID      uint64 `json:"order_id,omitempty"`
    OrderCode    string `json:"order_code,omitempty"`
    CustomerID   uint64 `json:"customer_id"`
    DeviceID     uint64 `json:"device_id"`
    DeviceName   string `json:"device_name"`
    Successful   bool   `json:"successful"`
    TimeTakenMS  int64  `json:"time_taken_ms"`
    CompletedAt  string `json:"completed_at"`
}
