package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// contextKey namespaces values TransactionManager stashes on a context, so
// it can't collide with an unrelated package's context key of the same
// underlying string.
type contextKey string

const txKey contextKey = "pgx_tx"

// TransactionManager wraps the GEPA Postgres store's multi-statement
// writes (GEPAStore.SaveState's snapshot-plus-candidate-rows pair,
// Promote's deactivate-then-activate pair) in a single transaction, so a
// crash mid-write can't leave those tables in a state a snapshot and its
// own candidate history disagree about.
type TransactionManager struct {
	pool *pgxpool.Pool
}

// NewTransactionManager wraps pool for a store to drive its writes through.
func NewTransactionManager(pool *pgxpool.Pool) *TransactionManager {
	return &TransactionManager{pool: pool}
}

// WithTransaction runs fn with ctx carrying a live transaction, committing
// on success and rolling back on error or panic. A call nested inside an
// already-transactional ctx just runs fn directly — there is one
// transaction per top-level WithTransaction call, not per nesting level.
func (tm *TransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if GetTx(ctx) != nil {
		return fn(ctx)
	}

	tx, err := tm.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	txCtx := context.WithValue(ctx, txKey, tx)

	defer func() {
		if r := recover(); r != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				err = fmt.Errorf("panic recovered: %v, rollback error: %w", r, rbErr)
			} else {
				err = fmt.Errorf("panic recovered in transaction: %v", r)
			}
		}
	}()

	err = fn(txCtx)
	if err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("transaction error: %v, rollback error: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetTx returns the transaction ctx carries, or nil outside of one.
func GetTx(ctx context.Context) pgx.Tx {
	if tx, ok := ctx.Value(txKey).(pgx.Tx); ok {
		return tx
	}
	return nil
}

// GetConn is BaseRepository.conn's implementation: the ambient
// transaction if ctx carries one, otherwise pool.
func GetConn(ctx context.Context, pool *pgxpool.Pool) interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
} {
	if tx := GetTx(ctx); tx != nil {
		return tx
	}
	return pool
}
