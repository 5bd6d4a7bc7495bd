package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BaseRepository is embedded by every Postgres-backed store in this
// package (GEPAStore and friends): it holds the pool and resolves conn(ctx)
// to whichever connection the caller is composing with — the ambient
// transaction from a TransactionManager.WithTransaction, or the pool
// itself outside of one — so a repository method never has to know which
// case it's in.
type BaseRepository struct {
	pool *pgxpool.Pool
}

// NewBaseRepository wraps pool for embedding into a store.
func NewBaseRepository(pool *pgxpool.Pool) BaseRepository {
	return BaseRepository{pool: pool}
}

// Pool exposes the raw pool for callers that need it directly (schema
// migration, which runs once outside any transaction).
func (r *BaseRepository) Pool() *pgxpool.Pool {
	return r.pool
}

// conn resolves the connection a query should run against: the
// in-flight transaction if ctx carries one, otherwise the pool.
func (r *BaseRepository) conn(ctx context.Context) interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
} {
	return GetConn(ctx, r.pool)
}
