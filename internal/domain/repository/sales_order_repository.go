package repository

import (
	"context"

	"github.com/jhoicas/cotizaciones-api/internal/domain/entity"
	"github.com/jhoicas/cotizaciones-api/internal/domain/workflow"
)

// SalesOrderFilter filtra el listado de cotizaciones.
type SalesOrderFilter struct {
	Status   workflow.Status
	ClientID int64
	Limit    int
	Offset   int
}

// SalesOrderRepository define el puerto de persistencia del agregado SalesOrder (DIP).
// Las partidas se guardan y leen siempre junto con el encabezado.
type SalesOrderRepository interface {
	Create(ctx context.Context, order *entity.SalesOrder) error
	// Update reemplaza encabezado y partidas completas.
	Update(ctx context.Context, order *entity.SalesOrder) error
	UpdateStatus(ctx context.Context, id string, status workflow.Status) error
	GetByID(ctx context.Context, id string) (*entity.SalesOrder, error)
	List(ctx context.Context, filter SalesOrderFilter) ([]*entity.SalesOrder, error)
	Delete(ctx context.Context, id string) error
}

// OrderEventRepository persiste la bitácora de transiciones.
type OrderEventRepository interface {
	Create(ctx context.Context, event *entity.OrderEvent) error
	ListByOrder(ctx context.Context, orderID string) ([]*entity.OrderEvent, error)
}
