package sales

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhoicas/cotizaciones-api/internal/application/dto"
	"github.com/jhoicas/cotizaciones-api/internal/domain"
	"github.com/jhoicas/cotizaciones-api/internal/domain/entity"
	"github.com/jhoicas/cotizaciones-api/internal/domain/pricing"
	"github.com/jhoicas/cotizaciones-api/internal/domain/repository"
	"github.com/jhoicas/cotizaciones-api/internal/domain/workflow"
	"github.com/shopspring/decimal"
)

// CreateOrder crea una cotización en DRAFT: congela costos, siembra precios con el margen
// objetivo, aplica la comisión del vendedor y el impuesto consultado en el momento.
func (uc *SalesUseCase) CreateOrder(ctx context.Context, a Actor, in dto.CreateOrderRequest) (resp *dto.SalesOrderResponse, err error) {
	ctx, span := uc.startSpan(ctx, "CreateOrder", "")
	defer func() { endSpan(span, err) }()

	actor, err := resolveActor(a)
	if err != nil {
		return nil, err
	}
	if !workflow.Can(workflow.StatusDraft, workflow.OpEditPricing, actor) {
		return nil, domain.ErrForbidden
	}

	// ── 1. Comisión del vendedor ─────────────────────────────────────────────
	user, err := uc.users.GetByID(ctx, a.UserID)
	if err != nil {
		return nil, fmt.Errorf("obtener usuario: %w", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	commission := pricing.NormalizePercent(user.CommissionRate)
	if !pricing.ValidCommission(commission) {
		return nil, domain.NewValidationError("applied_commission_percent",
			fmt.Sprintf("la comisión del vendedor (%s) debe estar entre 0 y %s", commission, pricing.MaxCommissionPercent))
	}

	// ── 2. Margen objetivo e impuesto ────────────────────────────────────────
	cfg, err := uc.config.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("obtener configuración: %w", err)
	}
	margin := uc.defaultMargin(cfg)
	if in.MarginPercent != nil {
		margin = *in.MarginPercent
	}
	taxRateID := in.TaxRateID
	if taxRateID == 0 && cfg != nil && cfg.DefaultTaxRateID != nil {
		taxRateID = *cfg.DefaultTaxRateID
	}
	taxRate := uc.settings.FallbackTaxRate
	if taxRateID > 0 {
		if taxRate, err = uc.lookupTaxRate(ctx, taxRateID); err != nil {
			return nil, err
		}
	}
	if err := uc.checkClient(ctx, in.ClientID); err != nil {
		return nil, err
	}

	// ── 3. Partidas y totales ────────────────────────────────────────────────
	now := uc.now()
	o := &entity.SalesOrder{
		ID:                 newID(),
		ClientID:           in.ClientID,
		UserID:             a.UserID,
		Status:             workflow.StatusDraft,
		ProjectName:        strings.TrimSpace(in.ProjectName),
		ValidUntil:         in.ValidUntil,
		DeliveryDate:       in.DeliveryDate,
		TaxRateID:          taxRateID,
		Currency:           entity.CurrencyMXN,
		Notes:              in.Notes,
		Conditions:         in.Conditions,
		ExternalInvoiceRef: in.ExternalInvoiceRef,
		IsWarranty:         in.IsWarranty,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if in.AppliedTolerancePercent != nil {
		o.AppliedTolerancePercent = *in.AppliedTolerancePercent
	}
	items, lines, err := uc.buildItems(ctx, in.Items, nil, margin)
	if err != nil {
		return nil, err
	}
	o.Items = items
	o.Renumber()
	if err := o.ApplyPricing(lines, commission, taxRate); err != nil {
		return nil, err
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}

	// ── 4. Persistir ─────────────────────────────────────────────────────────
	err = uc.tx.RunSales(ctx, func(orders repository.SalesOrderRepository, events repository.OrderEventRepository) error {
		if err := orders.Create(ctx, o); err != nil {
			return err
		}
		return events.Create(ctx, uc.newEvent(o, "create", "", a))
	})
	if err != nil {
		return nil, fmt.Errorf("crear orden: %w", err)
	}

	uc.log.Info().
		Str("order_id", o.ID).
		Str("actor", a.UserID).
		Int("items", len(o.Items)).
		Str("margin", o.AppliedMarginPercent.String()).
		Str("total", o.TotalPrice.String()).
		Msg("cotización creada")

	caps := o.Capabilities(actor)
	out := toOrderResponse(o, &caps)
	return &out, nil
}

// GetOrder obtiene una cotización con las capacidades del actor.
func (uc *SalesUseCase) GetOrder(ctx context.Context, a Actor, id string) (*dto.SalesOrderResponse, error) {
	actor, err := resolveActor(a)
	if err != nil {
		return nil, err
	}
	o, err := uc.loadOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	caps := o.Capabilities(actor)
	out := toOrderResponse(o, &caps)
	return &out, nil
}

// ListOrders lista cotizaciones filtradas por estatus y cliente, más recientes primero.
func (uc *SalesUseCase) ListOrders(ctx context.Context, in dto.OrderListFilter) (*dto.SalesOrderListResponse, error) {
	in.DefaultPage()
	filter := repository.SalesOrderFilter{
		Status:   workflow.Status(strings.ToUpper(strings.TrimSpace(in.Status))),
		ClientID: in.ClientID,
		Limit:    in.Limit,
		Offset:   in.Offset,
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, domain.NewValidationError("status", "estatus desconocido")
	}
	list, err := uc.orders.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listar órdenes: %w", err)
	}
	out := &dto.SalesOrderListResponse{
		Items: make([]dto.SalesOrderSummary, 0, len(list)),
		Page:  dto.PageResponse{Limit: in.Limit, Offset: in.Offset},
	}
	for _, o := range list {
		out.Items = append(out.Items, toSummary(o))
	}
	return out, nil
}

// UpdateOrder aplica una edición parcial. Items reemplaza todas las partidas.
//
// Los cambios financieros exigen la capacidad de editar precios del estatus actual; si la
// orden está ACCEPTED, la edición la regresa a revisión (re-edit). Los cambios que solo tocan
// textos exigen la capacidad de editar el documento y conservan los importes guardados.
func (uc *SalesUseCase) UpdateOrder(ctx context.Context, a Actor, id string, in dto.UpdateOrderRequest) (resp *dto.SalesOrderResponse, err error) {
	ctx, span := uc.startSpan(ctx, "UpdateOrder", id)
	defer func() { endSpan(span, err) }()

	actor, err := resolveActor(a)
	if err != nil {
		return nil, err
	}
	o, err := uc.loadOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.ClientID != nil && *in.ClientID != o.ClientID {
		if err := uc.checkClient(ctx, *in.ClientID); err != nil {
			return nil, err
		}
	}

	next := cloneOrder(o)
	applyDocumentFields(next, in)

	pricingTouched := in.TouchesPricing()
	if pricingTouched {
		commission := o.AppliedCommissionPercent
		if in.AppliedCommissionPercent != nil {
			commission = pricing.NormalizePercent(*in.AppliedCommissionPercent)
		}
		taxRate, err := uc.resolveTaxRate(ctx, o, in.TaxRateID)
		if err != nil {
			return nil, err
		}
		if in.TaxRateID != nil {
			next.TaxRateID = *in.TaxRateID
		}
		lines := o.PricingLines()
		if in.Items != nil {
			if next.Items, lines, err = uc.buildItems(ctx, *in.Items, o, o.AppliedMarginPercent); err != nil {
				return nil, err
			}
			next.Renumber()
		}
		if err := next.ApplyPricing(lines, commission, taxRate); err != nil {
			return nil, err
		}
	}

	pricingChanged := pricingTouched && financiallyDiffers(o, next)
	if pricingTouched && !pricingChanged {
		next = keepFinancials(o, next)
	}
	documentChanged := in.TouchesDocument() || namesDiffer(o, next)

	if pricingChanged {
		if err := workflow.Require(o.Status, workflow.OpEditPricing, actor); err != nil {
			return nil, err
		}
	}
	if documentChanged {
		if err := workflow.Require(o.Status, workflow.OpEditDocument, actor); err != nil {
			return nil, err
		}
	}
	if !pricingChanged && !documentChanged {
		caps := o.Capabilities(actor)
		out := toOrderResponse(o, &caps)
		return &out, nil
	}
	if err := next.Validate(); err != nil {
		return nil, err
	}

	var event *entity.OrderEvent
	if pricingChanged && workflow.RequiresReauthorization(o.Status) {
		from, err := next.Transition(workflow.ActionReEdit, actor)
		if err != nil {
			return nil, err
		}
		event = uc.newEvent(next, string(workflow.ActionReEdit), from, a)
	}
	next.UpdatedAt = uc.now()

	err = uc.tx.RunSales(ctx, func(orders repository.SalesOrderRepository, events repository.OrderEventRepository) error {
		if err := orders.Update(ctx, next); err != nil {
			return err
		}
		if event != nil {
			return events.Create(ctx, event)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("actualizar orden: %w", err)
	}

	if event != nil {
		uc.logTransition(next, event.Action, o.Status, a)
	}
	uc.log.Info().
		Str("order_id", next.ID).
		Str("actor", a.UserID).
		Bool("pricing_changed", pricingChanged).
		Bool("document_changed", documentChanged).
		Msg("cotización actualizada")

	caps := next.Capabilities(actor)
	out := toOrderResponse(next, &caps)
	return &out, nil
}

// DeleteOrder elimina una cotización si su estatus lo permite.
func (uc *SalesUseCase) DeleteOrder(ctx context.Context, a Actor, id string) error {
	actor, err := resolveActor(a)
	if err != nil {
		return err
	}
	o, err := uc.loadOrder(ctx, id)
	if err != nil {
		return err
	}
	if err := workflow.Require(o.Status, workflow.OpDelete, actor); err != nil {
		return err
	}
	if err := uc.orders.Delete(ctx, id); err != nil {
		return fmt.Errorf("eliminar orden: %w", err)
	}
	uc.log.Info().Str("order_id", id).Str("actor", a.UserID).Str("status", string(o.Status)).Msg("cotización eliminada")
	return nil
}

// ListEvents devuelve la bitácora de transiciones de la orden.
func (uc *SalesUseCase) ListEvents(ctx context.Context, id string) ([]dto.OrderEventResponse, error) {
	if _, err := uc.loadOrder(ctx, id); err != nil {
		return nil, err
	}
	list, err := uc.events.ListByOrder(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("listar eventos: %w", err)
	}
	out := make([]dto.OrderEventResponse, 0, len(list))
	for _, e := range list {
		out = append(out, toEventResponse(e))
	}
	return out, nil
}

// ─── helpers ────────────────────────────────────────────────────────────────

func (uc *SalesUseCase) defaultMargin(cfg *entity.GlobalConfig) decimal.Decimal {
	if cfg != nil && cfg.TargetProfitMargin.IsPositive() {
		return cfg.TargetProfitMargin
	}
	return uc.settings.DefaultMargin
}

func (uc *SalesUseCase) lookupTaxRate(ctx context.Context, id int64) (decimal.Decimal, error) {
	t, err := uc.taxRates.GetByID(ctx, id)
	if err != nil {
		return decimal.Zero, fmt.Errorf("obtener tasa de impuesto: %w", err)
	}
	if t == nil {
		return decimal.Zero, domain.NewValidationError("tax_rate_id", "la tasa de impuesto no existe")
	}
	return t.Rate, nil
}

// resolveTaxRate: al editar la tasa se deduce de los importes guardados, salvo que cambie
// tax_rate_id o que la orden aún no tenga subtotal.
func (uc *SalesUseCase) resolveTaxRate(ctx context.Context, o *entity.SalesOrder, newID *int64) (decimal.Decimal, error) {
	if newID != nil && *newID != o.TaxRateID {
		return uc.lookupTaxRate(ctx, *newID)
	}
	if !o.Subtotal.IsPositive() {
		if o.TaxRateID > 0 {
			return uc.lookupTaxRate(ctx, o.TaxRateID)
		}
		return uc.settings.FallbackTaxRate, nil
	}
	return o.TaxRateValue(uc.settings.FallbackTaxRate), nil
}

func (uc *SalesUseCase) checkClient(ctx context.Context, id int64) error {
	if id <= 0 {
		return nil // Validate reporta el campo faltante
	}
	c, err := uc.clients.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("obtener cliente: %w", err)
	}
	if c == nil {
		return domain.NewValidationError("client_id", "el cliente no existe")
	}
	return nil
}

func cloneOrder(o *entity.SalesOrder) *entity.SalesOrder {
	c := *o
	c.Items = append([]entity.SalesOrderItem(nil), o.Items...)
	return &c
}

func applyDocumentFields(o *entity.SalesOrder, in dto.UpdateOrderRequest) {
	if in.ClientID != nil {
		o.ClientID = *in.ClientID
	}
	if in.ProjectName != nil {
		o.ProjectName = strings.TrimSpace(*in.ProjectName)
	}
	if in.ValidUntil != nil {
		o.ValidUntil = in.ValidUntil
	}
	if in.DeliveryDate != nil {
		o.DeliveryDate = in.DeliveryDate
	}
	if in.AppliedTolerancePercent != nil {
		o.AppliedTolerancePercent = *in.AppliedTolerancePercent
	}
	if in.Notes != nil {
		o.Notes = *in.Notes
	}
	if in.Conditions != nil {
		o.Conditions = *in.Conditions
	}
	if in.ExternalInvoiceRef != nil {
		o.ExternalInvoiceRef = *in.ExternalInvoiceRef
	}
	if in.IsWarranty != nil {
		o.IsWarranty = *in.IsWarranty
	}
}

// financiallyDiffers compara las entradas financieras, no los totales derivados.
func financiallyDiffers(a, b *entity.SalesOrder) bool {
	if len(a.Items) != len(b.Items) ||
		a.TaxRateID != b.TaxRateID ||
		!a.AppliedCommissionPercent.Equal(b.AppliedCommissionPercent) {
		return true
	}
	for i := range a.Items {
		x, y := a.Items[i], b.Items[i]
		if !x.SameOrigin(y.OriginVersionID) ||
			!x.Quantity.Equal(y.Quantity) ||
			!x.FrozenUnitCost.Equal(y.FrozenUnitCost) ||
			!x.BaseUnitPrice.Equal(y.BaseUnitPrice) ||
			!x.UnitPrice.Equal(y.UnitPrice) {
			return true
		}
	}
	return false
}

func namesDiffer(a, b *entity.SalesOrder) bool {
	if len(a.Items) != len(b.Items) {
		return true
	}
	for i := range a.Items {
		if a.Items[i].ProductName != b.Items[i].ProductName {
			return true
		}
	}
	return false
}

// keepFinancials conserva partidas e importes de prev y toma de next solo los textos.
func keepFinancials(prev, next *entity.SalesOrder) *entity.SalesOrder {
	out := cloneOrder(next)
	out.Items = append([]entity.SalesOrderItem(nil), prev.Items...)
	for i := range out.Items {
		out.Items[i].ProductName = next.Items[i].ProductName
	}
	out.TaxRateID = prev.TaxRateID
	out.AppliedMarginPercent = prev.AppliedMarginPercent
	out.AppliedCommissionPercent = prev.AppliedCommissionPercent
	out.CommissionAmount = prev.CommissionAmount
	out.Subtotal = prev.Subtotal
	out.TaxAmount = prev.TaxAmount
	out.TotalPrice = prev.TotalPrice
	return out
}
