package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhoicas/cotizaciones-api/internal/application/sales"
	"github.com/jhoicas/cotizaciones-api/internal/domain/repository"
)

var _ sales.SalesTxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// RunSales inicia una transacción, ejecuta fn con los repos de órdenes y bitácora atados a la tx
// y hace Commit o Rollback. Guardar la orden y su evento de transición es atómico.
func (r *TxRunner) RunSales(ctx context.Context, fn func(
	orderRepo repository.SalesOrderRepository,
	eventRepo repository.OrderEventRepository,
) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return wrap("begin transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(NewSalesOrderRepository(tx), NewOrderEventRepository(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return wrap("commit transaction", err)
	}
	return nil
}
