package repository

import (
    "context"
    "database/sql"
    "errors"
    "strings"

    "github.com/iliyamo/warehouse-pick-queue/internal/model"
)

// ProductRepo provides data access for a customer's product catalogue.
// Product codes are unique per customer; every lookup is scoped so one
// customer's codes can never resolve against another's catalogue.
type ProductRepo struct {
    db *sql.DB
}

// NewProductRepo returns a new ProductRepo bound to the given database.
func NewProductRepo(db *sql.DB) *ProductRepo { return &ProductRepo{db: db} }

// Create inserts a product. A duplicate (customer, code) pair surfaces
// as the driver's constraint violation error.
func (r *ProductRepo) Create(ctx context.Context, p *model.Product) error {
    res, err := r.db.ExecContext(ctx,
        `INSERT INTO products (customer_id, code, description, location, active) VALUES (?, ?, ?, ?, ?)`,
        p.CustomerID, p.Code, p.Description, p.Location, p.Active,
    )
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    p.ID = uint64(id)
    return nil
}

// List returns all products of the customer ordered by code.
func (r *ProductRepo) List(ctx context.Context, customerID uint64) ([]model.Product, error) {
    const q = `SELECT product_id, customer_id, code, description, location, active
               FROM products WHERE customer_id = ? ORDER BY code`
    rows, err := r.db.QueryContext(ctx, q, customerID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    products := make([]model.Product, 0)
    for rows.Next() {
        var p model.Product
        if err := rows.Scan(&p.ID, &p.CustomerID, &p.Code, &p.Description, &p.Location, &p.Active); err != nil {
            return nil, err
        }
        products = append(products, p)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return products, nil
}

// GetByCode resolves one product by code within the customer scope.
func (r *ProductRepo) GetByCode(ctx context.Context, customerID uint64, code string) (*model.Product, error) {
    const q = `SELECT product_id, customer_id, code, description, location, active
               FROM products WHERE customer_id = ? AND code = ?`
    var p model.Product
    err := r.db.QueryRowContext(ctx, q, customerID, code).Scan(
        &p.ID, &p.CustomerID, &p.Code, &p.Description, &p.Location, &p.Active,
    )
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrProductNotFound
        }
        return nil, err
    }
    return &p, nil
}

// ResolveCodes maps product codes to IDs within the customer scope. If
// any code cannot be resolved the whole call fails with
// ErrProductNotFound; callers rely on this to reject a scan submission
// without writing a partial ledger.
func (r *ProductRepo) ResolveCodes(ctx context.Context, customerID uint64, codes []string) (map[string]uint64, error) {
    return resolveCodes(ctx, r.db, customerID, codes)
}

// ResolveCodesTx is ResolveCodes within an existing transaction.
func (r *ProductRepo) ResolveCodesTx(ctx context.Context, tx *sql.Tx, customerID uint64, codes []string) (map[string]uint64, error) {
    return resolveCodes(ctx, tx, customerID, codes)
}

// querier is the subset of *sql.DB and *sql.Tx used by resolveCodes.
type querier interface {
    QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

func resolveCodes(ctx context.Context, q querier, customerID uint64, codes []string) (map[string]uint64, error) {
    if len(codes) == 0 {
        return map[string]uint64{}, nil
    }
    // Deduplicate before building the IN clause; the same code may
    // appear many times in a scan submission.
    unique := make([]string, 0, len(codes))
    seen := make(map[string]struct{}, len(codes))
    for _, code := range codes {
        if _, ok := seen[code]; !ok {
            seen[code] = struct{}{}
            unique = append(unique, code)
        }
    }

    placeholders := make([]string, len(unique))
    args := make([]interface{}, 0, len(unique)+1)
    args = append(args, customerID)
    for i, code := range unique {
        placeholders[i] = "?"
        args = append(args, code)
    }
    query := `SELECT code, product_id FROM products WHERE customer_id = ? AND code IN (` +
        strings.Join(placeholders, ",") + `)`

    rows, err := q.QueryContext(ctx, query, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    resolved := make(map[string]uint64, len(unique))
    for rows.Next() {
        var code string
        var id uint64
        if err := rows.Scan(&code, &id); err != nil {
            return nil, err
        }
        resolved[code] = id
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    if len(resolved) != len(unique) {
        return nil, ErrProductNotFound
    }
    return resolved, nil
}
