package warehouse

import (
	"context"

	"github.com/ekaya-inc/ekaya-insight/pkg/models"
)

// Warehouse runs statements against one warehouse session.
// Each implementation owns its connection and must be closed when done.
type Warehouse interface {
	// Query runs a single statement. maxRows <= 0 reads every row; otherwise
	// reading stops after maxRows and the result is marked truncated.
	Query(ctx context.Context, query string, maxRows int) (*ResultSet, error)

	// TestConnection returns the session's identity (account, role,
	// database, schema) as reported by the warehouse.
	TestConnection(ctx context.Context) ([]models.Row, error)

	// Dialect describes quoting, type classes and introspection batteries.
	Dialect() *Dialect

	// DatabaseScoped is true when a default database is configured, which
	// selects the database battery over the account-wide one.
	DatabaseScoped() bool

	Close() error
}

// ResultSet holds rows with lower-cased keys and JSON-safe values.
type ResultSet struct {
	Columns   []string
	Rows      []models.Row
	Truncated bool
}

// Opener opens a fresh warehouse session per operation.
type Opener interface {
	Open(ctx context.Context) (Warehouse, error)
}

// MaxQueryLimit caps rows returned from ad-hoc statements.
const MaxQueryLimit = 1000
