package sales

import (
	"context"

	"github.com/jhoicas/cotizaciones-api/internal/domain/entity"
	"github.com/jhoicas/cotizaciones-api/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// SalesTxRunner ejecuta fn dentro de una transacción con los repos de cotización atados a ella.
type SalesTxRunner interface {
	RunSales(ctx context.Context, fn func(
		orderRepo repository.SalesOrderRepository,
		eventRepo repository.OrderEventRepository,
	) error) error
}

// QuoteDocument reúne lo necesario para imprimir una cotización.
type QuoteDocument struct {
	Order   *entity.SalesOrder
	Client  *entity.Client
	Company *entity.GlobalConfig
	TaxRate decimal.Decimal
}

// QuotePDFGenerator puerto del generador de PDF (la implementación vive en infraestructura).
type QuotePDFGenerator interface {
	GenerateQuotePDF(ctx context.Context, doc QuoteDocument) ([]byte, error)
}

// Settings parámetros de precio configurables.
type Settings struct {
	DefaultMargin   decimal.Decimal // si global_config no trae margen objetivo
	FallbackTaxRate decimal.Decimal // si la tasa no se puede deducir ni consultar
}

// Actor es quien ejecuta el caso de uso, tomado del JWT.
type Actor struct {
	UserID string
	Role   string
}
