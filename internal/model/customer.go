package model

// Customer is the tenant boundary.  Every order, product, device and
// picklist belongs to exactly one customer, and every query in the
// repository layer filters by customer ID so that cross-tenant access
// is impossible.
type Customer struct {
    ID          uint64 // customers.customer_id
    Name        string // customers.name
    Description string // customers.description
}
