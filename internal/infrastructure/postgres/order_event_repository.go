package postgres

import (
	"context"

	"github.com/jhoicas/cotizaciones-api/internal/domain/entity"
	"github.com/jhoicas/cotizaciones-api/internal/domain/repository"
)

var _ repository.OrderEventRepository = (*OrderEventRepo)(nil)

// OrderEventRepo bitácora de transiciones (append-only).
type OrderEventRepo struct {
	q Querier
}

func NewOrderEventRepository(q Querier) *OrderEventRepo {
	return &OrderEventRepo{q: q}
}

func (r *OrderEventRepo) Create(ctx context.Context, e *entity.OrderEvent) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO sales_order_events (id, sales_order_id, action, from_status, to_status, actor_id, actor_role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.SalesOrderID, e.Action, e.FromStatus, e.ToStatus, e.ActorID, e.ActorRole, e.CreatedAt,
	)
	return wrap("insert order event", err)
}

func (r *OrderEventRepo) ListByOrder(ctx context.Context, orderID string) ([]*entity.OrderEvent, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, sales_order_id, action, from_status, to_status, actor_id, actor_role, created_at
		FROM sales_order_events WHERE sales_order_id = $1 ORDER BY created_at, id`, orderID)
	if err != nil {
		return nil, wrap("list order events", err)
	}
	defer rows.Close()
	var list []*entity.OrderEvent
	for rows.Next() {
		var e entity.OrderEvent
		if err := rows.Scan(&e.ID, &e.SalesOrderID, &e.Action, &e.FromStatus, &e.ToStatus,
			&e.ActorID, &e.ActorRole, &e.CreatedAt); err != nil {
			return nil, wrap("scan order event", err)
		}
		list = append(list, &e)
	}
	return list, wrap("list order events", rows.Err())
}
