// Package repository defines error values that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrAlreadyPicking and ErrAlreadyCompleted both describe a
// claim conflict but carry different user-facing messages, while
// ErrInvalidState signals that an operation is illegal for the order's
// current lifecycle status.
package repository

import (
    "errors"

    "github.com/iliyamo/warehouse-pick-queue/internal/model"
)

// ErrOrderNotFound is returned when no order matches the given ID or
// code within the caller's customer scope. Handlers should translate
// this into an HTTP 404 response. Lookups never reveal whether an
// order exists under a different customer.
var ErrOrderNotFound = errors.New("order not found")

// ErrDeviceNotFound is returned when no device is registered under the
// given fingerprint. The caller must register the device first.
var ErrDeviceNotFound = errors.New("device not found")

// ErrProductNotFound is returned when a product code cannot be resolved
// within the customer's catalogue. During a picklist submission the
// whole transaction rolls back; no partial ledger is written.
var ErrProductNotFound = errors.New("product not found")

// ErrPickListNotFound is returned when no picklist exists for the
// given (code, customer, device) combination.
var ErrPickListNotFound = errors.New("picklist not found")

// ErrInvalidState is returned when an operation is not legal for the
// order's current status, such as enqueueing an order that is not a
// draft or claiming a cancelled order. Handlers should translate this
// into an HTTP 400 response.
var ErrInvalidState = errors.New("invalid order state")

// ErrAlreadyPicking is returned when a claim targets an order that is
// already in progress on another device. Maps to HTTP 409.
var ErrAlreadyPicking = errors.New("order is already being picked")

// ErrAlreadyCompleted is returned when a claim targets an order that
// has already been completed. Maps to HTTP 409.
var ErrAlreadyCompleted = errors.New("order has already been completed")

// ErrFingerprintTaken is returned when a device registration presents a
// fingerprint that is already registered to a different customer.
// Fingerprints are unique across the whole registry.
var ErrFingerprintTaken = errors.New("fingerprint registered to another customer")

// Claimable reports whether an order in the given status may be claimed
// for picking. It returns nil for a queued order and the sentinel
// describing the refusal otherwise, so both claim paths (queue claim
// and scan submission) refuse with identical semantics.
func Claimable(status model.OrderStatus) error {
    switch status {
    case model.StatusQueued:
        return nil
    case model.StatusInProgress:
        return ErrAlreadyPicking
    case model.StatusCompleted:
        return ErrAlreadyCompleted
    default:
        return ErrInvalidState
    }
}
