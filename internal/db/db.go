// Package db is the hand-prepared query layer over database/sql. It follows
// the sqlc shape — a DBTX abstraction, a Queries struct with WithTx, and a
// Prepare constructor that validates every statement against the live schema
// at startup — so callers depend on the Querier interface and tests can stub
// individual queries.
package db

import (
	"context"
	"database/sql"
	"fmt"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// Queries executes the application's SQL. Construct with New or Prepare.
type Queries struct {
	db DBTX
}

// New returns a Queries bound to the given connection or transaction.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a Queries scoped to the given transaction. The store package
// uses this inside withTx so every query in a multi-step write shares one
// serializable transaction.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Prepare validates every query against the live schema by preparing each
// statement once. A missing table or renamed column is caught here, at
// startup, rather than at the first query execution.
func Prepare(ctx context.Context, db DBTX) (*Queries, error) {
	statements := []string{
		getBookingByID,
		getPaymentByBooking,
		getUserProfile,
		updatePaymentStatus,
		listUnconfirmedPayments,
		upsertPaymentEvent,
		markPaymentEventProcessed,
		markPaymentEventFailed,
	}
	for _, s := range statements {
		stmt, err := db.PrepareContext(ctx, s)
		if err != nil {
			return nil, fmt.Errorf("db: prepare %.60q: %w", s, err)
		}
		_ = stmt.Close()
	}
	return New(db), nil
}
