// Package db is a hand-maintained, sqlc-shaped query layer: a DBTX
// interface any pool/conn/tx satisfies, and a Queries struct wrapping one.
// No sqlc schema was available to regenerate this from (see DESIGN.md), so
// it is maintained by hand in the same shape the teacher's generated
// internal/db package uses: DBTX / Queries / New / per-table Params and Row
// structs.
package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by *pgxpool.Pool, *pgxpool.Conn, and pgx.Tx, letting
// Queries run against a pool, a checked-out connection, or a transaction
// interchangeably.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries groups every hand-written query method against a DBTX.
type Queries struct {
	db DBTX
}

// New wraps dbtx in a Queries.
func New(dbtx DBTX) *Queries {
	return &Queries{db: dbtx}
}
