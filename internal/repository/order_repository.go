package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/iliyamo/warehouse-pick-queue/internal/model"
)

// OrderRepo provides data access for orders and their lines, including
// all queue operations. Queue positions are only ever assigned inside a
// transaction that holds a row lock, so two concurrent enqueues for the
// same customer cannot compute the same position. All timestamps are
// stored in UTC.
type OrderRepo struct {
    db      *sql.DB
    dialect Dialect
}

// NewOrderRepo returns a new OrderRepo bound to the given database.
func NewOrderRepo(db *sql.DB, d Dialect) *OrderRepo { return &OrderRepo{db: db, dialect: d} }

// DB exposes the underlying handle so handlers can open transactions
// that span multiple repositories.
func (r *OrderRepo) DB() *sql.DB { return r.db }

const orderColumns = `order_id, customer_id, order_code, status, queue_position, created_at, completed_at, notes`

// scanOrder reads one order row from any row scanner.
func scanOrder(row *sql.Row) (*model.Order, error) {
    var o model.Order
    var status string
    var pos sql.NullInt64
    var completed sql.NullTime
    err := row.Scan(&o.ID, &o.CustomerID, &o.Code, &status, &pos, &o.CreatedAt, &completed, &o.Notes)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrOrderNotFound
        }
        return nil, err
    }
    o.Status = model.OrderStatus(status)
    if pos.Valid {
        p := uint32(pos.Int64)
        o.QueuePosition = &p
    }
    if completed.Valid {
        t := completed.Time
        o.CompletedAt = &t
    }
    return &o, nil
}

// Create inserts a draft order together with its lines in one
// transaction. The generated ID, status and creation time are populated
// on the passed order. Lines must reference resolved product IDs and
// carry positive quantities; validation happens at the handler layer.
func (r *OrderRepo) Create(ctx context.Context, o *model.Order, lines []model.OrderLine) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    o.Status = model.StatusDraft
    o.CreatedAt = time.Now().UTC()
    res, err := tx.ExecContext(ctx,
        `INSERT INTO orders (customer_id, order_code, status, created_at, notes) VALUES (?, ?, ?, ?, ?)`,
        o.CustomerID, o.Code, string(o.Status), o.CreatedAt, o.Notes,
    )
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    o.ID = uint64(id)

    if len(lines) > 0 {
        query := `INSERT INTO order_lines (order_id, product_id, quantity) VALUES `
        args := make([]interface{}, 0, len(lines)*3)
        for i, l := range lines {
            if i > 0 {
                query += ","
            }
            query += "(?, ?, ?)"
            args = append(args, o.ID, l.ProductID, l.Quantity)
        }
        if _, err := tx.ExecContext(ctx, query, args...); err != nil {
            return err
        }
    }

    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// GetByID returns one order scoped to the given customer. It returns
// ErrOrderNotFound when no matching row exists, including when the
// order belongs to a different customer.
func (r *OrderRepo) GetByID(ctx context.Context, orderID, customerID uint64) (*model.Order, error) {
    const q = `SELECT ` + orderColumns + ` FROM orders WHERE order_id = ? AND customer_id = ?`
    return scanOrder(r.db.QueryRowContext(ctx, q, orderID, customerID))
}

// GetForUpdateTx loads one order under an exclusive row lock. The lock
// is held until the surrounding transaction commits or rolls back; this
// is the single serialization point for the claim protocol.
func (r *OrderRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, orderID, customerID uint64) (*model.Order, error) {
    q := `SELECT ` + orderColumns + ` FROM orders WHERE order_id = ? AND customer_id = ?` + r.dialect.ForUpdate()
    return scanOrder(tx.QueryRowContext(ctx, q, orderID, customerID))
}

// GetByCodeForUpdateTx is GetForUpdateTx keyed by order code instead of
// ID. The scan submission path matches orders by the code printed on
// the picklist rather than by primary key.
func (r *OrderRepo) GetByCodeForUpdateTx(ctx context.Context, tx *sql.Tx, code string, customerID uint64) (*model.Order, error) {
    q := `SELECT ` + orderColumns + ` FROM orders WHERE order_code = ? AND customer_id = ?` + r.dialect.ForUpdate()
    return scanOrder(tx.QueryRowContext(ctx, q, code, customerID))
}

// SetStatusTx updates only the status column of a locked order row.
// Callers must have verified the transition with model.CanTransition.
func (r *OrderRepo) SetStatusTx(ctx context.Context, tx *sql.Tx, orderID uint64, status model.OrderStatus) error {
    _, err := tx.ExecContext(ctx, `UPDATE orders SET status = ? WHERE order_id = ?`, string(status), orderID)
    return err
}

// CompleteTx marks a locked order as completed and records the
// completion time. The queue position is intentionally left in place;
// the queue listing uses it to keep recently completed orders in their
// old slot during the fade-out window.
func (r *OrderRepo) CompleteTx(ctx context.Context, tx *sql.Tx, orderID uint64, completedAt time.Time) error {
    _, err := tx.ExecContext(ctx,
        `UPDATE orders SET status = ?, completed_at = ? WHERE order_id = ?`,
        string(model.StatusCompleted), completedAt.UTC(), orderID,
    )
    return err
}

// Enqueue moves a draft order into the picking queue and returns its
// assigned position. The position is max(queue_position)+1 over all
// queued and in_progress orders of the customer, computed inside the
// same transaction that locks both the target order and the current
// queue tail, so concurrent enqueues cannot produce duplicates.
// It returns ErrInvalidState when the order is not a draft.
func (r *OrderRepo) Enqueue(ctx context.Context, orderID, customerID uint64) (uint32, error) {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return 0, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    o, err := r.GetForUpdateTx(ctx, tx, orderID, customerID)
    if err != nil {
        return 0, err
    }
    if !model.CanTransition(o.Status, model.StatusQueued) {
        return 0, ErrInvalidState
    }

    // Lock the queue tail row so a concurrent enqueue waits here rather
    // than reading the same maximum.
    tailQ := `SELECT queue_position FROM orders
              WHERE customer_id = ? AND status IN (?, ?) AND queue_position IS NOT NULL
              ORDER BY queue_position DESC LIMIT 1` + r.dialect.ForUpdate()
    var maxPos uint32
    var tail sql.NullInt64
    err = tx.QueryRowContext(ctx, tailQ, customerID, string(model.StatusQueued), string(model.StatusInProgress)).Scan(&tail)
    switch {
    case errors.Is(err, sql.ErrNoRows):
        maxPos = 0
    case err != nil:
        return 0, err
    case tail.Valid:
        maxPos = uint32(tail.Int64)
    }

    pos := maxPos + 1
    if _, err := tx.ExecContext(ctx,
        `UPDATE orders SET status = ?, queue_position = ? WHERE order_id = ?`,
        string(model.StatusQueued), pos, orderID,
    ); err != nil {
        return 0, err
    }

    if err := tx.Commit(); err != nil {
        return 0, err
    }
    committed = true
    return pos, nil
}

// Dequeue takes an order out of the queue and back to draft, clearing
// its position. Both queued and in_progress orders may be dequeued; the
// latter is how an administrator recovers an order abandoned by a
// device, since no automatic reclaim exists.
func (r *OrderRepo) Dequeue(ctx context.Context, orderID, customerID uint64) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    o, err := r.GetForUpdateTx(ctx, tx, orderID, customerID)
    if err != nil {
        return err
    }
    if !o.Status.InQueue() {
        return ErrInvalidState
    }
    if _, err := tx.ExecContext(ctx,
        `UPDATE orders SET status = ?, queue_position = NULL WHERE order_id = ?`,
        string(model.StatusDraft), orderID,
    ); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// Cancel withdraws an order. Only draft and queued orders may be
// cancelled; the queue position is cleared so the queued/in_progress
// position invariant keeps holding.
func (r *OrderRepo) Cancel(ctx context.Context, orderID, customerID uint64) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    o, err := r.GetForUpdateTx(ctx, tx, orderID, customerID)
    if err != nil {
        return err
    }
    if !model.CanTransition(o.Status, model.StatusCancelled) {
        return ErrInvalidState
    }
    if _, err := tx.ExecContext(ctx,
        `UPDATE orders SET status = ?, queue_position = NULL WHERE order_id = ?`,
        string(model.StatusCancelled), orderID,
    ); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// Reorder rewrites queue positions to follow the given ID list, 1..N.
// IDs that are unknown, belong to another customer or are not currently
// queued/in_progress are silently skipped; including them is not an
// error, their entries simply match no row.
func (r *OrderRepo) Reorder(ctx context.Context, customerID uint64, orderIDs []uint64) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    const q = `UPDATE orders SET queue_position = ?
               WHERE order_id = ? AND customer_id = ? AND status IN (?, ?)`
    for i, id := range orderIDs {
        if _, err := tx.ExecContext(ctx, q, i+1, id, customerID,
            string(model.StatusQueued), string(model.StatusInProgress)); err != nil {
            return err
        }
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// Move swaps the order's queue position with its immediate neighbour in
// the given direction ("up" means closer to the front). When no
// neighbour exists the call is a silent no-op and the current position
// is returned. It returns ErrOrderNotFound when the order is not among
// the customer's queued/in_progress orders.
func (r *OrderRepo) Move(ctx context.Context, orderID, customerID uint64, direction string) (uint32, error) {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return 0, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    lockQ := `SELECT order_id, queue_position FROM orders
              WHERE order_id = ? AND customer_id = ? AND status IN (?, ?)` + r.dialect.ForUpdate()
    var id uint64
    var pos sql.NullInt64
    err = tx.QueryRowContext(ctx, lockQ, orderID, customerID,
        string(model.StatusQueued), string(model.StatusInProgress)).Scan(&id, &pos)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return 0, ErrOrderNotFound
        }
        return 0, err
    }
    current := uint32(0)
    if pos.Valid {
        current = uint32(pos.Int64)
    }

    var adjQ string
    if direction == "up" {
        adjQ = `SELECT order_id, queue_position FROM orders
                WHERE customer_id = ? AND status IN (?, ?) AND queue_position < ?
                ORDER BY queue_position DESC LIMIT 1` + r.dialect.ForUpdate()
    } else {
        adjQ = `SELECT order_id, queue_position FROM orders
                WHERE customer_id = ? AND status IN (?, ?) AND queue_position > ?
                ORDER BY queue_position ASC LIMIT 1` + r.dialect.ForUpdate()
    }
    var adjID uint64
    var adjPos uint32
    err = tx.QueryRowContext(ctx, adjQ, customerID,
        string(model.StatusQueued), string(model.StatusInProgress), current).Scan(&adjID, &adjPos)
    if errors.Is(err, sql.ErrNoRows) {
        // Already at the edge of the queue.
        if err := tx.Commit(); err != nil {
            return 0, err
        }
        committed = true
        return current, nil
    }
    if err != nil {
        return 0, err
    }

    if _, err := tx.ExecContext(ctx, `UPDATE orders SET queue_position = ? WHERE order_id = ?`, adjPos, id); err != nil {
        return 0, err
    }
    if _, err := tx.ExecContext(ctx, `UPDATE orders SET queue_position = ? WHERE order_id = ?`, current, adjID); err != nil {
        return 0, err
    }

    if err := tx.Commit(); err != nil {
        return 0, err
    }
    committed = true
    return adjPos, nil
}

// QueueEntry is one row of the queue display: the order plus the number
// of line items it contains.
type QueueEntry struct {
    OrderID     uint64  `json:"order_id"`
    Code        string  `json:"order_code"`
    Status      string  `json:"status"`
    Position    *uint32 `json:"queue_position,omitempty"`
    ItemCount   uint32  `json:"item_count"`
    CreatedAt   string  `json:"created_at"`
    CompletedAt *string `json:"completed_at,omitempty"`
}

// ListQueue returns the customer's queued and in_progress orders plus
// orders completed after the cutoff (the transient fade-out window),
// ordered by queue position then creation time.
func (r *OrderRepo) ListQueue(ctx context.Context, customerID uint64, completedCutoff time.Time) ([]QueueEntry, error) {
    const q = `SELECT o.order_id, o.order_code, o.status, o.queue_position, o.created_at, o.completed_at, COUNT(l.id)
               FROM orders o
               LEFT JOIN order_lines l ON l.order_id = o.order_id
               WHERE o.customer_id = ?
                 AND (o.status IN (?, ?) OR (o.status = ? AND o.completed_at >= ?))
               GROUP BY o.order_id, o.order_code, o.status, o.queue_position, o.created_at, o.completed_at
               ORDER BY o.queue_position, o.created_at`
    rows, err := r.db.QueryContext(ctx, q, customerID,
        string(model.StatusQueued), string(model.StatusInProgress),
        string(model.StatusCompleted), completedCutoff.UTC())
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    entries := make([]QueueEntry, 0)
    for rows.Next() {
        var e QueueEntry
        var pos sql.NullInt64
        var created time.Time
        var completed sql.NullTime
        if err := rows.Scan(&e.OrderID, &e.Code, &e.Status, &pos, &created, &completed, &e.ItemCount); err != nil {
            return nil, err
        }
        if pos.Valid {
            p := uint32(pos.Int64)
            e.Position = &p
        }
        e.CreatedAt = created.UTC().Format(time.RFC3339)
        if completed.Valid {
            iso := completed.Time.UTC().Format(time.RFC3339)
            e.CompletedAt = &iso
        }
        entries = append(entries, e)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return entries, nil
}

// LineItem is one order line joined with its product code, used by the
// claim coordinator to expand the pick ledger.
type LineItem struct {
    ProductID   uint64
    ProductCode string
    Quantity    uint32
}

// LinesTx returns the order's lines with product codes in line creation
// order, within the caller's transaction.
func (r *OrderRepo) LinesTx(ctx context.Context, tx *sql.Tx, orderID uint64) ([]LineItem, error) {
    const q = `SELECT l.product_id, p.code, l.quantity
               FROM order_lines l
               JOIN products p ON p.product_id = l.product_id
               WHERE l.order_id = ?
               ORDER BY l.id`
    rows, err := tx.QueryContext(ctx, q, orderID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    var items []LineItem
    for rows.Next() {
        var it LineItem
        if err := rows.Scan(&it.ProductID, &it.ProductCode, &it.Quantity); err != nil {
            return nil, err
        }
        items = append(items, it)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return items, nil
}
