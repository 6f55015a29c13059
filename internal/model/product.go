package model

// Product is a pickable item in a customer's catalogue.  Codes are the
// values printed on shelf labels and scanned by devices; they are unique
// per customer, not globally.
type Product struct {
    ID          uint64 // products.product_id
    CustomerID  uint64 // products.customer_id
    Code        string // products.code
    Description string // products.description
    Location    string // products.location (warehouse shelf/bin)
    Active      bool   // products.active
}
