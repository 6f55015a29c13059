package repository

// Dialect selects SQL fragments that differ between the production
// database and the one used in tests. All queries use ? placeholders
// and pass timestamps from Go, so the only divergence is row locking:
// MySQL needs an explicit FOR UPDATE clause, while SQLite has no such
// syntax and serializes writers through its transaction lock instead
// (connections are opened with _txlock=immediate for that reason).
type Dialect int

const (
    // MySQL is the production dialect.
    MySQL Dialect = iota
    // SQLite is used by tests and local development.
    SQLite
)

// ForUpdate returns the clause appended to SELECTs that must hold an
// exclusive row lock until the surrounding transaction ends.
func (d Dialect) ForUpdate() string {
    if d == MySQL {
        return " FOR UPDATE"
    }
    return ""
}
