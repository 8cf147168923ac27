package db

import (
	"context"
	"database/sql"
)

// DBTX is the subset of [sql.DB] and [sql.Tx] used by [Queries].
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// New returns the queries bound to db.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// Queries holds the SQL statements used by the storage package.
type Queries struct {
	db DBTX
}

// WithTx returns a copy of q that runs its statements inside tx.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}
