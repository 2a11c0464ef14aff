package dto

import (
	"time"

	"github.com/jhoicas/cotizaciones-api/internal/domain/entity"
	"github.com/jhoicas/cotizaciones-api/internal/domain/workflow"
	"github.com/shopspring/decimal"
)

// OrderItemRequest partida en POST/PATCH /api/orders.
//
// Precio base: margin_percent si viene; si no, base_unit_price > 0; si no, el margen
// de la orden sobre el costo congelado. Sin origin_version_id la partida es manual y
// frozen_unit_cost / cost_snapshot se toman tal cual.
type OrderItemRequest struct {
	ID              string               `json:"id,omitempty"`
	ProductName     string               `json:"product_name"`
	OriginVersionID *int64               `json:"origin_version_id,omitempty"`
	Quantity        decimal.Decimal      `json:"quantity"`
	FrozenUnitCost  *decimal.Decimal     `json:"frozen_unit_cost,omitempty"`
	CostSnapshot    *entity.CostSnapshot `json:"cost_snapshot,omitempty"`
	MarginPercent   *decimal.Decimal     `json:"margin_percent,omitempty"`
	BaseUnitPrice   *decimal.Decimal     `json:"base_unit_price,omitempty"`
}

// CreateOrderRequest body para POST /api/orders.
type CreateOrderRequest struct {
	ClientID                int64              `json:"client_id"`
	ProjectName             string             `json:"project_name"`
	TaxRateID               int64              `json:"tax_rate_id"`
	ValidUntil              *time.Time         `json:"valid_until,omitempty"`
	DeliveryDate            *time.Time         `json:"delivery_date,omitempty"`
	AppliedTolerancePercent *decimal.Decimal   `json:"applied_tolerance_percent,omitempty"`
	MarginPercent           *decimal.Decimal   `json:"margin_percent,omitempty"` // sustituye el margen objetivo de la organización
	Notes                   string             `json:"notes,omitempty"`
	Conditions              string             `json:"conditions,omitempty"`
	ExternalInvoiceRef      string             `json:"external_invoice_ref,omitempty"`
	IsWarranty              bool               `json:"is_warranty"`
	Items                   []OrderItemRequest `json:"items"`
}

// UpdateOrderRequest body para PATCH /api/orders/:id. Campos nil no se tocan;
// Items, si viene, reemplaza todas las partidas.
type UpdateOrderRequest struct {
	ClientID                 *int64              `json:"client_id,omitempty"`
	ProjectName              *string             `json:"project_name,omitempty"`
	TaxRateID                *int64              `json:"tax_rate_id,omitempty"`
	ValidUntil               *time.Time          `json:"valid_until,omitempty"`
	DeliveryDate             *time.Time          `json:"delivery_date,omitempty"`
	AppliedTolerancePercent  *decimal.Decimal    `json:"applied_tolerance_percent,omitempty"`
	AppliedCommissionPercent *decimal.Decimal    `json:"applied_commission_percent,omitempty"`
	Notes                    *string             `json:"notes,omitempty"`
	Conditions               *string             `json:"conditions,omitempty"`
	ExternalInvoiceRef       *string             `json:"external_invoice_ref,omitempty"`
	IsWarranty               *bool               `json:"is_warranty,omitempty"`
	Items                    *[]OrderItemRequest `json:"items,omitempty"`
}

// TouchesPricing indica si la edición cambia campos financieros.
func (r UpdateOrderRequest) TouchesPricing() bool {
	return r.Items != nil || r.AppliedCommissionPercent != nil || r.TaxRateID != nil
}

// TouchesDocument indica si la edición cambia campos de documento.
func (r UpdateOrderRequest) TouchesDocument() bool {
	return r.ClientID != nil || r.ProjectName != nil || r.ValidUntil != nil || r.DeliveryDate != nil ||
		r.AppliedTolerancePercent != nil || r.Notes != nil || r.Conditions != nil ||
		r.ExternalInvoiceRef != nil || r.IsWarranty != nil
}

// OrderListFilter query de GET /api/orders.
type OrderListFilter struct {
	PageRequest
	Status   string `query:"status"`
	ClientID int64  `query:"client_id"`
}

// OrderItemResponse partida en respuestas.
type OrderItemResponse struct {
	ID              string              `json:"id"`
	Position        int                 `json:"position"`
	ProductName     string              `json:"product_name"`
	OriginVersionID *int64              `json:"origin_version_id,omitempty"`
	Quantity        decimal.Decimal     `json:"quantity"`
	FrozenUnitCost  decimal.Decimal     `json:"frozen_unit_cost"`
	BaseUnitPrice   decimal.Decimal     `json:"base_unit_price"`
	UnitPrice       decimal.Decimal     `json:"unit_price"`
	SubtotalPrice   decimal.Decimal     `json:"subtotal_price"`
	MarginPercent   decimal.Decimal     `json:"margin_percent"`
	NegativeMargin  bool                `json:"negative_margin"`
	CostSnapshot    entity.CostSnapshot `json:"cost_snapshot"`
}

// SalesOrderResponse cotización completa para GET /api/orders/:id.
type SalesOrderResponse struct {
	ID                       string                 `json:"id"`
	ClientID                 int64                  `json:"client_id"`
	UserID                   string                 `json:"user_id"`
	Status                   string                 `json:"status"`
	ProjectName              string                 `json:"project_name"`
	ValidUntil               *time.Time             `json:"valid_until,omitempty"`
	DeliveryDate             *time.Time             `json:"delivery_date,omitempty"`
	TaxRateID                int64                  `json:"tax_rate_id"`
	AppliedMarginPercent     decimal.Decimal        `json:"applied_margin_percent"`
	AppliedCommissionPercent decimal.Decimal        `json:"applied_commission_percent"`
	AppliedTolerancePercent  decimal.Decimal        `json:"applied_tolerance_percent"`
	CommissionAmount         decimal.Decimal        `json:"commission_amount"`
	Subtotal                 decimal.Decimal        `json:"subtotal"`
	TaxAmount                decimal.Decimal        `json:"tax_amount"`
	TotalPrice               decimal.Decimal        `json:"total_price"`
	Currency                 string                 `json:"currency"`
	Notes                    string                 `json:"notes,omitempty"`
	Conditions               string                 `json:"conditions,omitempty"`
	ExternalInvoiceRef       string                 `json:"external_invoice_ref,omitempty"`
	IsWarranty               bool                   `json:"is_warranty"`
	Items                    []OrderItemResponse    `json:"items"`
	Capabilities             *workflow.Capabilities `json:"capabilities,omitempty"`
	CreatedAt                time.Time              `json:"created_at"`
	UpdatedAt                time.Time              `json:"updated_at"`
}

// SalesOrderSummary fila del listado.
type SalesOrderSummary struct {
	ID                   string          `json:"id"`
	ClientID             int64           `json:"client_id"`
	ProjectName          string          `json:"project_name"`
	Status               string          `json:"status"`
	AppliedMarginPercent decimal.Decimal `json:"applied_margin_percent"`
	TotalPrice           decimal.Decimal `json:"total_price"`
	CreatedAt            time.Time       `json:"created_at"`
}

// SalesOrderListResponse respuesta de GET /api/orders.
type SalesOrderListResponse struct {
	Items []SalesOrderSummary `json:"items"`
	Page  PageResponse        `json:"page"`
}

// TransitionResponse resultado de POST /api/orders/:id/actions/:action.
type TransitionResponse struct {
	From  string             `json:"from"`
	To    string             `json:"to"`
	Order SalesOrderResponse `json:"order"`
}

// OrderEventResponse entrada de bitácora.
type OrderEventResponse struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	ActorID    string    `json:"actor_id"`
	ActorRole  string    `json:"actor_role"`
	CreatedAt  time.Time `json:"created_at"`
}

// StaleCostResponse aviso de costo desactualizado (informativo).
type StaleCostResponse struct {
	ItemID          string          `json:"item_id"`
	Position        int             `json:"position"`
	ProductName     string          `json:"product_name"`
	OriginVersionID int64           `json:"origin_version_id"`
	FrozenUnitCost  decimal.Decimal `json:"frozen_unit_cost"`
	CurrentUnitCost decimal.Decimal `json:"current_unit_cost"`
	Delta           decimal.Decimal `json:"delta"`
}

// ─── Revisión ───────────────────────────────────────────────────────────────

// Alcances de una edición de margen.
const (
	MarginScopeGlobal = "global"
	MarginScopeItem   = "item"
)

// MarginEdit una edición de margen; se aplican en el orden recibido.
type MarginEdit struct {
	Scope  string          `json:"scope"` // global | item
	Index  int             `json:"index"` // solo para scope=item, base 0
	Margin decimal.Decimal `json:"margin"`
}

// SimulateRequest body de simulate, pricing y authorize.
type SimulateRequest struct {
	Edits             []MarginEdit     `json:"edits"`
	CommissionPercent *decimal.Decimal `json:"commission_percent,omitempty"`
}

// PricingSummary totales financieros.
type PricingSummary struct {
	TotalCost        decimal.Decimal `json:"total_cost"`
	BaseSubtotal     decimal.Decimal `json:"base_subtotal"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	TaxRate          decimal.Decimal `json:"tax_rate"`
	TaxAmount        decimal.Decimal `json:"tax_amount"`
	Total            decimal.Decimal `json:"total"`
	NetUtility       decimal.Decimal `json:"net_utility"`
	WeightedMargin   decimal.Decimal `json:"weighted_margin"`
}

// ReviewItem partida en la sesión de revisión.
type ReviewItem struct {
	Index          int             `json:"index"`
	ItemID         string          `json:"item_id"`
	ProductName    string          `json:"product_name"`
	Quantity       decimal.Decimal `json:"quantity"`
	FrozenUnitCost decimal.Decimal `json:"frozen_unit_cost"`
	MarginPercent  decimal.Decimal `json:"margin_percent"`
	BaseUnitPrice  decimal.Decimal `json:"base_unit_price"`
	FinalUnitPrice decimal.Decimal `json:"final_unit_price"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	NegativeMargin bool            `json:"negative_margin"`
	PinnedPrice    bool            `json:"pinned_price"`
}

// SimulationResponse resultado de aplicar ediciones sin persistir.
type SimulationResponse struct {
	GlobalMargin      decimal.Decimal `json:"global_margin"`
	CommissionPercent decimal.Decimal `json:"commission_percent"`
	Items             []ReviewItem    `json:"items"`
	Totals            PricingSummary  `json:"totals"`
}

// ReviewResponse sesión de revisión de GET /api/orders/:id/review.
type ReviewResponse struct {
	Order        SalesOrderResponse    `json:"order"`
	Simulation   SimulationResponse    `json:"simulation"`
	Capabilities workflow.Capabilities `json:"capabilities"`
	StaleCosts   []StaleCostResponse   `json:"stale_costs"`
}
