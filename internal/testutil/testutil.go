package testutil

import (
    "context"
    "database/sql"
    "testing"
    "time"

    jwt "github.com/golang-jwt/jwt/v5"

    "github.com/iliyamo/warehouse-pick-queue/internal/database"
    "github.com/iliyamo/warehouse-pick-queue/internal/model"
)

// OpenInMemoryDB opens an in-memory SQLite database with the schema
// applied. The shared cache makes every connection from the pool see the
// same database, and _txlock=immediate serializes writers the way the
// production row locks do. Caller cleanup is registered automatically.
func OpenInMemoryDB(t *testing.T, name string) *sql.DB {
    t.Helper()
    dsn := "file:" + name + "?mode=memory&cache=shared&_txlock=immediate&_busy_timeout=5000&_loc=UTC&_foreign_keys=on"
    d, err := database.OpenSQLite(dsn)
    if err != nil {
        t.Fatalf("open test db: %v", err)
    }
    // A single connection makes concurrent transactions queue at the
    // pool instead of hitting shared-cache table locks, which the busy
    // timeout does not cover.
    d.SetMaxOpenConns(1)
    if err := database.ApplySchema(d, "sqlite3"); err != nil {
        t.Fatalf("apply schema: %v", err)
    }
    t.Cleanup(func() { _ = d.Close() })
    return d
}

// CreateCustomer inserts a customer row and returns its ID.
func CreateCustomer(t *testing.T, db *sql.DB, name string) uint64 {
    t.Helper()
    res, err := db.Exec(`INSERT INTO customers (name, description) VALUES (?, '')`, name)
    if err != nil {
        t.Fatalf("create customer: %v", err)
    }
    id, _ := res.LastInsertId()
    return uint64(id)
}

// CreateProduct inserts an active product and returns its ID.
func CreateProduct(t *testing.T, db *sql.DB, customerID uint64, code string) uint64 {
    t.Helper()
    res, err := db.Exec(
        `INSERT INTO products (customer_id, code, description, location, active) VALUES (?, ?, '', '', 1)`,
        customerID, code,
    )
    if err != nil {
        t.Fatalf("create product %s: %v", code, err)
    }
    id, _ := res.LastInsertId()
    return uint64(id)
}

// OrderLine pairs a product with a quantity for CreateOrder.
type OrderLine struct {
    ProductID uint64
    Quantity  uint32
}

// CreateOrder inserts an order in the given status with the given lines
// and returns its ID. Queued and in_progress orders get the supplied
// queue position.
func CreateOrder(t *testing.T, db *sql.DB, customerID uint64, code string, status model.OrderStatus, pos *uint32, lines []OrderLine) uint64 {
    t.Helper()
    var posVal interface{}
    if pos != nil {
        posVal = *pos
    }
    res, err := db.Exec(
        `INSERT INTO orders (customer_id, order_code, status, queue_position, created_at, notes) VALUES (?, ?, ?, ?, ?, '')`,
        customerID, code, string(status), posVal, time.Now().UTC(),
    )
    if err != nil {
        t.Fatalf("create order %s: %v", code, err)
    }
    id, _ := res.LastInsertId()
    for _, l := range lines {
        if _, err := db.Exec(
            `INSERT INTO order_lines (order_id, product_id, quantity) VALUES (?, ?, ?)`,
            id, l.ProductID, l.Quantity,
        ); err != nil {
            t.Fatalf("create order line: %v", err)
        }
    }
    return uint64(id)
}

// CreateDevice inserts a registered device and returns its ID.
func CreateDevice(t *testing.T, db *sql.DB, customerID uint64, fingerprint, name string) uint64 {
    t.Helper()
    res, err := db.Exec(
        `INSERT INTO devices (customer_id, fingerprint, name, description, last_login, lists_picked) VALUES (?, ?, ?, '', ?, 0)`,
        customerID, fingerprint, name, time.Now().UTC(),
    )
    if err != nil {
        t.Fatalf("create device %s: %v", fingerprint, err)
    }
    id, _ := res.LastInsertId()
    return uint64(id)
}

// DeviceTokenHS256 returns a signed device token with the claims the
// auth middleware expects.
func DeviceTokenHS256(t *testing.T, secret string, deviceID, customerID uint64, fingerprint string) string {
    t.Helper()
    claims := jwt.MapClaims{
        "sub":         deviceID,
        "customer_id": customerID,
        "fingerprint": fingerprint,
        "exp":         time.Now().Add(time.Hour).Unix(),
        "iat":         time.Now().Unix(),
    }
    token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    s, err := token.SignedString([]byte(secret))
    if err != nil {
        t.Fatalf("sign token: %v", err)
    }
    return s
}

// Ctx returns a short test context.
func Ctx(t *testing.T) context.Context {
    t.Helper()
    ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    t.Cleanup(cancel)
    return ctx
}
