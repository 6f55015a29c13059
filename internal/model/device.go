package model

import "time"

// Device is a physical handheld or tablet used for picking.  Devices are
// identified by a stable client-generated fingerprint.  The fingerprint
// is unique across the whole registry, not per customer: a physical
// device belongs to one warehouse and re-registering it under another
// customer is rejected rather than silently duplicated.
//
// Fields:
//  ID          – primary key identifier.
//  CustomerID  – customer the device picks for.
//  Fingerprint – stable client-generated identifier.
//  Name        – display name entered at registration.
//  Description – free-form description.
//  LastLogin   – last successful registration or token refresh.
//  ListsPicked – derived count of completed picklists.
type Device struct {
    ID          uint64    // devices.device_id
    CustomerID  uint64    // devices.customer_id
    Fingerprint string    // devices.fingerprint
    Name        string    // devices.name
    Description string    // devices.description
    LastLogin   time.Time // devices.last_login
    ListsPicked uint32    // devices.lists_picked
}
