package postgres

import (
	"context"

	"github.com/pashagolub/pgxmock/v4"
)

// setupMockContext stashes mock as the ambient transaction so GEPAStore's
// conn(ctx) (and TransactionManager.WithTransaction's GetTx(ctx) != nil
// short-circuit) resolve to the mock pool instead of a real *pgxpool.Pool.
func setupMockContext(mock pgxmock.PgxPoolIface) context.Context {
	return context.WithValue(context.Background(), txKey, mock)
}
