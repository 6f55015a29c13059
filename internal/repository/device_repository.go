package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/iliyamo/warehouse-pick-queue/internal/model"
)

// DeviceRepo provides data access for the device registry. Fingerprints
// are unique across the whole registry, enforced by a unique index, so
// a physical device can never end up registered twice.
type DeviceRepo struct {
    db      *sql.DB
    dialect Dialect
}

// NewDeviceRepo returns a new DeviceRepo bound to the given database.
func NewDeviceRepo(db *sql.DB, d Dialect) *DeviceRepo { return &DeviceRepo{db: db, dialect: d} }

const deviceColumns = `device_id, customer_id, fingerprint, name, description, last_login, lists_picked`

func scanDevice(row *sql.Row) (*model.Device, error) {
    var d model.Device
    err := row.Scan(&d.ID, &d.CustomerID, &d.Fingerprint, &d.Name, &d.Description, &d.LastLogin, &d.ListsPicked)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrDeviceNotFound
        }
        return nil, err
    }
    return &d, nil
}

// GetByFingerprint resolves a device by its fingerprint. The lookup is
// deliberately not scoped by customer: the fingerprint identifies the
// physical device, and the device record carries its customer.
func (r *DeviceRepo) GetByFingerprint(ctx context.Context, fingerprint string) (*model.Device, error) {
    const q = `SELECT ` + deviceColumns + ` FROM devices WHERE fingerprint = ?`
    return scanDevice(r.db.QueryRowContext(ctx, q, fingerprint))
}

// Register creates a device for the fingerprint or refreshes an
// existing one. On a repeat registration the name (when provided) and
// last_login are updated. Registering a fingerprint that belongs to a
// different customer fails with ErrFingerprintTaken. The second return
// value reports whether a new row was created.
func (r *DeviceRepo) Register(ctx context.Context, customerID uint64, fingerprint, name, description string, now time.Time) (*model.Device, bool, error) {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return nil, false, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    q := `SELECT ` + deviceColumns + ` FROM devices WHERE fingerprint = ?` + r.dialect.ForUpdate()
    existing, err := scanDevice(tx.QueryRowContext(ctx, q, fingerprint))
    if err != nil && !errors.Is(err, ErrDeviceNotFound) {
        return nil, false, err
    }

    now = now.UTC()
    if existing != nil {
        if existing.CustomerID != customerID {
            return nil, false, ErrFingerprintTaken
        }
        if name == "" {
            name = existing.Name
        }
        if _, err := tx.ExecContext(ctx,
            `UPDATE devices SET name = ?, last_login = ? WHERE device_id = ?`,
            name, now, existing.ID,
        ); err != nil {
            return nil, false, err
        }
        existing.Name = name
        existing.LastLogin = now
        if err := tx.Commit(); err != nil {
            return nil, false, err
        }
        committed = true
        return existing, false, nil
    }

    res, err := tx.ExecContext(ctx,
        `INSERT INTO devices (customer_id, fingerprint, name, description, last_login, lists_picked)
         VALUES (?, ?, ?, ?, ?, 0)`,
        customerID, fingerprint, name, description, now,
    )
    if err != nil {
        return nil, false, err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return nil, false, err
    }
    if err := tx.Commit(); err != nil {
        return nil, false, err
    }
    committed = true
    return &model.Device{
        ID:          uint64(id),
        CustomerID:  customerID,
        Fingerprint: fingerprint,
        Name:        name,
        Description: description,
        LastLogin:   now,
    }, true, nil
}

// RefreshListsPickedTx recomputes the device's completed-picklist count
// from the picklists table. Called after a completion so the derived
// counter never drifts from the source of truth.
func (r *DeviceRepo) RefreshListsPickedTx(ctx context.Context, tx *sql.Tx, deviceID uint64) error {
    _, err := tx.ExecContext(ctx,
        `UPDATE devices
         SET lists_picked = (SELECT COUNT(*) FROM picklists WHERE device_id = ? AND successful IS NOT NULL)
         WHERE device_id = ?`,
        deviceID, deviceID,
    )
    return err
}
