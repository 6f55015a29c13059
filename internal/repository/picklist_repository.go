package repository

import (
    "context"
    "database/sql"
    "errors"
    "fmt"
    "time"

    "github.com/iliyamo/warehouse-pick-queue/internal/model"
)

// PickListRepo provides data access for picklists and their product
// pick ledger. The claim coordinator relies on UpsertResetTx for the
// get-or-create-and-reset semantics: at most one live picklist exists
// per (customer, code), and a re-claim wipes the previous ledger before
// recreating it.
type PickListRepo struct {
    db      *sql.DB
    dialect Dialect
}

// NewPickListRepo returns a new PickListRepo bound to the given database.
func NewPickListRepo(db *sql.DB, d Dialect) *PickListRepo { return &PickListRepo{db: db, dialect: d} }

const picklistColumns = `picklist_id, customer_id, order_id, picklist_code, device_id,
    created_at, updated_at, pick_started, pick_time, time_taken_ms, successful, notes`

func scanPickList(row *sql.Row) (*model.PickList, error) {
    var pl model.PickList
    var orderID sql.NullInt64
    var timeTaken sql.NullInt64
    var successful sql.NullBool
    err := row.Scan(&pl.ID, &pl.CustomerID, &orderID, &pl.Code, &pl.DeviceID,
        &pl.CreatedAt, &pl.UpdatedAt, &pl.PickStarted, &pl.PickTime, &timeTaken, &successful, &pl.Notes)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrPickListNotFound
        }
        return nil, err
    }
    if orderID.Valid {
        id := uint64(orderID.Int64)
        pl.OrderID = &id
    }
    if timeTaken.Valid {
        d := time.Duration(timeTaken.Int64) * time.Millisecond
        pl.TimeTaken = &d
    }
    if successful.Valid {
        s := successful.Bool
        pl.Successful = &s
    }
    return &pl, nil
}

// GetByCodeAndDevice resolves the picklist a device is working on.
// Scoping by device as well as customer means a scan from a different
// device cannot touch another device's session.
func (r *PickListRepo) GetByCodeAndDevice(ctx context.Context, customerID uint64, code string, deviceID uint64) (*model.PickList, error) {
    const q = `SELECT ` + picklistColumns + ` FROM picklists
               WHERE picklist_code = ? AND customer_id = ? AND device_id = ?`
    return scanPickList(r.db.QueryRowContext(ctx, q, code, customerID, deviceID))
}

// UpsertResetTx looks up the picklist by (code, customer) under a row
// lock. When found, it is handed over to the given device: order link,
// device and updated_at are overwritten, pick_started is set, a restart
// note is appended and the entire existing product pick ledger is
// deleted. When absent, a fresh picklist is inserted. The second return
// value reports whether a new row was created.
func (r *PickListRepo) UpsertResetTx(ctx context.Context, tx *sql.Tx, customerID uint64, code string, deviceID uint64, orderID *uint64, deviceName string, now time.Time) (*model.PickList, bool, error) {
    now = now.UTC()
    q := `SELECT ` + picklistColumns + ` FROM picklists
          WHERE picklist_code = ? AND customer_id = ?` + r.dialect.ForUpdate()
    existing, err := scanPickList(tx.QueryRowContext(ctx, q, code, customerID))
    if err != nil && !errors.Is(err, ErrPickListNotFound) {
        return nil, false, err
    }

    if existing != nil {
        note := fmt.Sprintf("restarted by device %s at %s", deviceName, now.Format("2006-01-02 15:04"))
        notes := note
        if existing.Notes != "" {
            notes = existing.Notes + "\n" + note
        }
        var orderVal interface{}
        if orderID != nil {
            orderVal = *orderID
        }
        if _, err := tx.ExecContext(ctx,
            `UPDATE picklists
             SET device_id = ?, order_id = ?, updated_at = ?, pick_started = 1, notes = ?
             WHERE picklist_id = ?`,
            deviceID, orderVal, now, notes, existing.ID,
        ); err != nil {
            return nil, false, err
        }
        if _, err := tx.ExecContext(ctx,
            `DELETE FROM product_picks WHERE picklist_id = ?`, existing.ID,
        ); err != nil {
            return nil, false, err
        }
        existing.DeviceID = deviceID
        existing.OrderID = orderID
        existing.UpdatedAt = now
        existing.PickStarted = true
        existing.Notes = notes
        return existing, false, nil
    }

    var orderVal interface{}
    if orderID != nil {
        orderVal = *orderID
    }
    res, err := tx.ExecContext(ctx,
        `INSERT INTO picklists (customer_id, order_id, picklist_code, device_id,
             created_at, updated_at, pick_started, pick_time, notes)
         VALUES (?, ?, ?, ?, ?, ?, 1, ?, '')`,
        customerID, orderVal, code, deviceID, now, now, now,
    )
    if err != nil {
        return nil, false, err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return nil, false, err
    }
    return &model.PickList{
        ID:          uint64(id),
        CustomerID:  customerID,
        OrderID:     orderID,
        Code:        code,
        DeviceID:    deviceID,
        CreatedAt:   now,
        UpdatedAt:   now,
        PickStarted: true,
        PickTime:    now,
    }, true, nil
}

// CreatePicksBulkTx inserts one ledger row per product ID in a single
// statement, quantity 1 each, in the order given. The order of IDs is
// the device's on-screen pick sequence. Passing an empty slice has no
// effect and returns nil.
func (r *PickListRepo) CreatePicksBulkTx(ctx context.Context, tx *sql.Tx, picklistID uint64, productIDs []uint64) error {
    if len(productIDs) == 0 {
        return nil
    }
    query := `INSERT INTO product_picks (picklist_id, product_id, quantity, notes) VALUES `
    args := make([]interface{}, 0, len(productIDs)*2)
    for i, pid := range productIDs {
        if i > 0 {
            query += ","
        }
        query += "(?, ?, 1, '')"
        args = append(args, picklistID, pid)
    }
    _, err := tx.ExecContext(ctx, query, args...)
    return err
}

// NextPendingTx selects the first not-yet-resolved ledger row for the
// product, under a row lock. Rows with unknown outcome are preferred;
// when none remain, a previously failed row is retried. The second
// return value is false when every unit of the product has already been
// resolved successfully, which callers treat as a duplicate scan.
func (r *PickListRepo) NextPendingTx(ctx context.Context, tx *sql.Tx, picklistID, productID uint64) (uint64, bool, error) {
    unknownQ := `SELECT id FROM product_picks
                 WHERE picklist_id = ? AND product_id = ? AND successful IS NULL
                 ORDER BY id LIMIT 1` + r.dialect.ForUpdate()
    var id uint64
    err := tx.QueryRowContext(ctx, unknownQ, picklistID, productID).Scan(&id)
    if err == nil {
        return id, true, nil
    }
    if !errors.Is(err, sql.ErrNoRows) {
        return 0, false, err
    }

    failedQ := `SELECT id FROM product_picks
                WHERE picklist_id = ? AND product_id = ? AND successful = 0
                ORDER BY id LIMIT 1` + r.dialect.ForUpdate()
    err = tx.QueryRowContext(ctx, failedQ, picklistID, productID).Scan(&id)
    if err == nil {
        return id, true, nil
    }
    if errors.Is(err, sql.ErrNoRows) {
        return 0, false, nil
    }
    return 0, false, err
}

// ResolvePickTx records the outcome of one scanned unit and appends the
// audit note. The notes column is read back first so the append works
// the same on every SQL dialect.
func (r *PickListRepo) ResolvePickTx(ctx context.Context, tx *sql.Tx, pickID uint64, successful bool, timeTaken time.Duration, note string) error {
    var notes string
    if err := tx.QueryRowContext(ctx,
        `SELECT notes FROM product_picks WHERE id = ?`, pickID,
    ).Scan(&notes); err != nil {
        return err
    }
    if notes != "" {
        notes = notes + "\n" + note
    } else {
        notes = note
    }
    _, err := tx.ExecContext(ctx,
        `UPDATE product_picks SET successful = ?, time_taken_ms = ?, notes = ? WHERE id = ?`,
        successful, timeTaken.Milliseconds(), notes, pickID,
    )
    return err
}

// CountPendingTx returns how many units of the product are still
// unresolved in the picklist. Clients use this to decide whether more
// scans of the same product are expected.
func (r *PickListRepo) CountPendingTx(ctx context.Context, tx *sql.Tx, picklistID, productID uint64) (int, error) {
    const q = `SELECT COUNT(*) FROM product_picks
               WHERE picklist_id = ? AND product_id = ? AND successful IS NULL`
    var n int
    if err := tx.QueryRowContext(ctx, q, picklistID, productID).Scan(&n); err != nil {
        return 0, err
    }
    return n, nil
}

// CompleteTx closes out a picklist: records the total duration, the
// worker's success assertion and optional completion notes. Calling it
// again re-asserts the terminal fields; completion is idempotent.
func (r *PickListRepo) CompleteTx(ctx context.Context, tx *sql.Tx, picklistID uint64, timeTaken time.Duration, successful bool, notes string) error {
    _, err := tx.ExecContext(ctx,
        `UPDATE picklists SET time_taken_ms = ?, successful = ?, notes = ? WHERE picklist_id = ?`,
        timeTaken.Milliseconds(), successful, notes, picklistID,
    )
    return err
}
