package sales_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/jhoicas/cotizaciones-api/internal/application/dto"
	"github.com/jhoicas/cotizaciones-api/internal/application/sales"
	"github.com/jhoicas/cotizaciones-api/internal/domain"
	"github.com/jhoicas/cotizaciones-api/internal/domain/entity"
	"github.com/jhoicas/cotizaciones-api/internal/domain/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recipeItem(version int64, qty string) dto.OrderItemRequest {
	return dto.OrderItemRequest{ProductName: fmt.Sprintf("Producto %d", version), OriginVersionID: i64(version), Quantity: d(qty)}
}

func createReq(items ...dto.OrderItemRequest) dto.CreateOrderRequest {
	return dto.CreateOrderRequest{
		ClientID:    7,
		ProjectName: "Residencia Lomas",
		TaxRateID:   1,
		Items:       items,
	}
}

func mustCreate(t *testing.T, f *fixture, items ...dto.OrderItemRequest) *dto.SalesOrderResponse {
	t.Helper()
	resp, err := f.uc.CreateOrder(context.Background(), vendedor, createReq(items...))
	require.NoError(t, err)
	return resp
}

func mustTransition(t *testing.T, f *fixture, a sales.Actor, id string, action workflow.Action) {
	t.Helper()
	_, err := f.uc.Transition(context.Background(), a, id, action)
	require.NoError(t, err, "acción %s", action)
}

// ──────────────────────────────────────────────────────────────────────────────
// CreateOrder
// ──────────────────────────────────────────────────────────────────────────────

func TestCreateOrder_SiembraPreciosYTotales(t *testing.T) {
	f := newFixture()
	resp := mustCreate(t, f, recipeItem(100, "1"))

	assert.Equal(t, "DRAFT", resp.Status)
	assert.Equal(t, "MXN", resp.Currency)
	require.Len(t, resp.Items, 1)
	it := resp.Items[0]
	assert.Equal(t, "1000.00", it.FrozenUnitCost.StringFixed(2))
	assert.Equal(t, "1250.00", it.BaseUnitPrice.StringFixed(2), "margen objetivo 25%")
	assert.Equal(t, "1312.50", it.UnitPrice.StringFixed(2), "comisión 0.05 se normaliza a 5%")
	assert.Equal(t, "25.00", it.MarginPercent.StringFixed(2))
	assert.Equal(t, entity.SnapshotRecipe, it.CostSnapshot.Kind())
	assert.Len(t, it.CostSnapshot.Ingredients(), 2)

	assert.Equal(t, "5.00", resp.AppliedCommissionPercent.StringFixed(2))
	assert.Equal(t, "62.50", resp.CommissionAmount.StringFixed(2))
	assert.Equal(t, "1312.50", resp.Subtotal.StringFixed(2))
	assert.Equal(t, "210.00", resp.TaxAmount.StringFixed(2))
	assert.Equal(t, "1522.50", resp.TotalPrice.StringFixed(2))
	require.NotNil(t, resp.Capabilities)
	assert.True(t, resp.Capabilities.CanEditPricing)

	events, err := f.uc.ListEvents(context.Background(), resp.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "create", events[0].Action)
	assert.Equal(t, "DRAFT", events[0].ToStatus)
}

func TestCreateOrder_PrecedenciaDePrecioBase(t *testing.T) {
	f := newFixture()
	resp := mustCreate(t, f,
		dto.OrderItemRequest{ProductName: "Con margen", OriginVersionID: i64(200), Quantity: d("1"), MarginPercent: dec("50"), BaseUnitPrice: dec("999")},
		dto.OrderItemRequest{ProductName: "Con precio", OriginVersionID: i64(200), Quantity: d("1"), BaseUnitPrice: dec("130")},
		dto.OrderItemRequest{ProductName: "Manual", Quantity: d("2"), FrozenUnitCost: dec("80")},
	)
	assert.Equal(t, "150.00", resp.Items[0].BaseUnitPrice.StringFixed(2))
	assert.Equal(t, "130.00", resp.Items[1].BaseUnitPrice.StringFixed(2))
	assert.Equal(t, "100.00", resp.Items[2].BaseUnitPrice.StringFixed(2))
	assert.Equal(t, entity.SnapshotManual, resp.Items[2].CostSnapshot.Kind())
	assert.Equal(t, []int{1, 2, 3}, []int{resp.Items[0].Position, resp.Items[1].Position, resp.Items[2].Position})
}

func TestCreateOrder_SinMargenObjetivoUsaDefault(t *testing.T) {
	f := newFixture()
	f.store.config = nil
	resp := mustCreate(t, f, recipeItem(200, "1"))
	assert.Equal(t, "140.00", resp.Items[0].BaseUnitPrice.StringFixed(2))
}

func TestCreateOrder_GerenteNoCaptura(t *testing.T) {
	f := newFixture()
	_, err := f.uc.CreateOrder(context.Background(), gerente, createReq(recipeItem(100, "1")))
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestCreateOrder_CamposObligatorios(t *testing.T) {
	f := newFixture()
	req := createReq(recipeItem(100, "0"))
	req.ProjectName = " "
	_, err := f.uc.CreateOrder(context.Background(), vendedor, req)

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	fields := map[string]bool{}
	for _, fe := range verr.Fields {
		fields[fe.Field] = true
	}
	assert.True(t, fields["project_name"])
	assert.True(t, fields["items[0].quantity"])
	assert.Empty(t, f.store.orders, "no se persiste nada")
}

func TestCreateOrder_VersionInexistente(t *testing.T) {
	f := newFixture()
	_, err := f.uc.CreateOrder(context.Background(), vendedor, createReq(recipeItem(999, "1")))
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "items[0].origin_version_id", verr.Fields[0].Field)
}

func TestCreateOrder_ClienteYTasaInexistentes(t *testing.T) {
	f := newFixture()
	req := createReq(recipeItem(100, "1"))
	req.ClientID = 55
	_, err := f.uc.CreateOrder(context.Background(), vendedor, req)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	req = createReq(recipeItem(100, "1"))
	req.TaxRateID = 9
	_, err = f.uc.CreateOrder(context.Background(), vendedor, req)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCreateOrder_ComisionDelVendedorFueraDeRango(t *testing.T) {
	f := newFixture()
	f.store.users[vendedor.UserID].CommissionRate = d("60")
	_, err := f.uc.CreateOrder(context.Background(), vendedor, createReq(recipeItem(100, "1")))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCreateOrder_FallaDeInfraestructura(t *testing.T) {
	f := newFixture()
	f.store.failWrites = fmt.Errorf("pool cerrado: %w", domain.ErrUnavailable)
	_, err := f.uc.CreateOrder(context.Background(), vendedor, createReq(recipeItem(100, "1")))
	assert.ErrorIs(t, err, domain.ErrUnavailable)
}

// ──────────────────────────────────────────────────────────────────────────────
// UpdateOrder
// ──────────────────────────────────────────────────────────────────────────────

func TestUpdateOrder_ConservaCostoCongelado(t *testing.T) {
	f := newFixture()
	created := mustCreate(t, f, recipeItem(100, "1"))
	f.store.versions[100].UnitCost = d("1200")

	items := []dto.OrderItemRequest{
		{ID: created.Items[0].ID, ProductName: "Cubierta", OriginVersionID: i64(100), Quantity: d("2")},
		recipeItem(200, "1"),
	}
	resp, err := f.uc.UpdateOrder(context.Background(), vendedor, created.ID, dto.UpdateOrderRequest{Items: &items})
	require.NoError(t, err)

	require.Len(t, resp.Items, 2)
	assert.Equal(t, created.Items[0].ID, resp.Items[0].ID)
	assert.Equal(t, "1000.00", resp.Items[0].FrozenUnitCost.StringFixed(2), "el costo congelado no se recalcula")
	assert.Equal(t, "1250.00", resp.Items[0].BaseUnitPrice.StringFixed(2), "conserva su precio base")
	assert.Equal(t, "100.00", resp.Items[1].FrozenUnitCost.StringFixed(2))
	assert.Equal(t, "DRAFT", resp.Status)
}

func TestUpdateOrder_CambioDeRecetaRecongela(t *testing.T) {
	f := newFixture()
	created := mustCreate(t, f, recipeItem(100, "1"))
	items := []dto.OrderItemRequest{
		{ID: created.Items[0].ID, ProductName: "Tarja", OriginVersionID: i64(200), Quantity: d("1")},
	}
	resp, err := f.uc.UpdateOrder(context.Background(), vendedor, created.ID, dto.UpdateOrderRequest{Items: &items})
	require.NoError(t, err)
	assert.Equal(t, "100.00", resp.Items[0].FrozenUnitCost.StringFixed(2))
}

func TestUpdateOrder_CambioDeTasaConsultaDeNuevo(t *testing.T) {
	f := newFixture()
	created := mustCreate(t, f, recipeItem(100, "1"))
	resp, err := f.uc.UpdateOrder(context.Background(), vendedor, created.ID, dto.UpdateOrderRequest{TaxRateID: i64(2)})
	require.NoError(t, err)
	assert.Equal(t, "105.00", resp.TaxAmount.StringFixed(2))
	assert.Equal(t, "1417.50", resp.TotalPrice.StringFixed(2))
}

func TestUpdateOrder_EnRevisionVendedorNoEdita(t *testing.T) {
	f := newFixture()
	created := mustCreate(t, f, recipeItem(100, "1"))
	mustTransition(t, f, vendedor, created.ID, workflow.ActionRequestAuth)

	items := []dto.OrderItemRequest{{ID: created.Items[0].ID, ProductName: "X", OriginVersionID: i64(100), Quantity: d("3")}}
	_, err := f.uc.UpdateOrder(context.Background(), vendedor, created.ID, dto.UpdateOrderRequest{Items: &items})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	notes := "urgente"
	_, err = f.uc.UpdateOrder(context.Background(), vendedor, created.ID, dto.UpdateOrderRequest{Notes: &notes})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "SENT es de solo lectura para ventas")
}

func TestUpdateOrder_AceptadaRegresaARevision(t *testing.T) {
	f := newFixture()
	created := mustCreate(t, f, recipeItem(100, "1"))
	mustTransition(t, f, vendedor, created.ID, workflow.ActionRequestAuth)
	mustTransition(t, f, gerente, created.ID, workflow.ActionAuthorize)

	items := []dto.OrderItemRequest{{ID: created.Items[0].ID, ProductName: "Cubierta", OriginVersionID: i64(100), Quantity: d("1"), MarginPercent: dec("30")}}
	resp, err := f.uc.UpdateOrder(context.Background(), vendedor, created.ID, dto.UpdateOrderRequest{Items: &items})
	require.NoError(t, err)
	assert.Equal(t, "SENT", resp.Status)

	events, _ := f.uc.ListEvents(context.Background(), created.ID)
	assert.Equal(t, "re-edit", events[len(events)-1].Action)
	assert.Equal(t, "ACCEPTED", events[len(events)-1].FromStatus)
}

func TestUpdateOrder_MismasPartidasFraccionariasNoCambianImportes(t *testing.T) {
	f := newFixture()
	created := mustCreate(t, f,
		dto.OrderItemRequest{ProductName: "Jaladera", Quantity: d("100"), FrozenUnitCost: dec("33.33"), MarginPercent: dec("40")},
		dto.OrderItemRequest{ProductName: "Bisagra", Quantity: d("250"), FrozenUnitCost: dec("12.347"), MarginPercent: dec("33.5")},
	)
	mustTransition(t, f, vendedor, created.ID, workflow.ActionRequestAuth)
	mustTransition(t, f, gerente, created.ID, workflow.ActionAuthorize)
	before := cloneOrder(f.store.orders[created.ID])

	items := make([]dto.OrderItemRequest, len(created.Items))
	for i, it := range created.Items {
		cost := it.FrozenUnitCost
		items[i] = dto.OrderItemRequest{ID: it.ID, ProductName: it.ProductName, Quantity: it.Quantity, FrozenUnitCost: &cost}
	}
	resp, err := f.uc.UpdateOrder(context.Background(), vendedor, created.ID, dto.UpdateOrderRequest{
		Items:                    &items,
		AppliedCommissionPercent: dec("0.05"),
	})
	require.NoError(t, err)

	assert.Equal(t, "ACCEPTED", resp.Status, "sin cambio financiero no hay re-edición")
	assert.Equal(t, "5.00", resp.AppliedCommissionPercent.StringFixed(2), "0.05 se interpreta como 5%")
	after := f.store.orders[created.ID]
	assert.True(t, before.AppliedMarginPercent.Equal(after.AppliedMarginPercent))
	assert.True(t, before.Subtotal.Equal(after.Subtotal))
	assert.True(t, before.TotalPrice.Equal(after.TotalPrice))
	for i := range before.Items {
		assert.True(t, before.Items[i].BaseUnitPrice.Equal(after.Items[i].BaseUnitPrice), "partida %d", i)
		assert.True(t, before.Items[i].UnitPrice.Equal(after.Items[i].UnitPrice), "partida %d", i)
	}
}

func TestUpdateOrder_ComisionComoFraccion(t *testing.T) {
	f := newFixture()
	created := mustCreate(t, f, recipeItem(100, "1"))
	resp, err := f.uc.UpdateOrder(context.Background(), vendedor, created.ID,
		dto.UpdateOrderRequest{AppliedCommissionPercent: dec("0.1")})
	require.NoError(t, err)
	assert.Equal(t, "10.00", resp.AppliedCommissionPercent.StringFixed(2))
	assert.Equal(t, "125.00", resp.CommissionAmount.StringFixed(2))
	assert.Equal(t, "1375.00", resp.Items[0].UnitPrice.StringFixed(2))
}

func TestUpdateOrder_VendidaSoloDocumento(t *testing.T) {
	f := newFixture()
	created := mustCreate(t, f, recipeItem(100, "1"))
	mustTransition(t, f, vendedor, created.ID, workflow.ActionRequestAuth)
	mustTransition(t, f, gerente, created.ID, workflow.ActionAuthorize)
	mustTransition(t, f, vendedor, created.ID, workflow.ActionMarkSold)

	notes := "Entrega en obra"
	resp, err := f.uc.UpdateOrder(context.Background(), vendedor, created.ID, dto.UpdateOrderRequest{Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, "Entrega en obra", resp.Notes)

	// Renombrar la partida sin tocar importes está permitido.
	same := []dto.OrderItemRequest{{ID: created.Items[0].ID, ProductName: "Cubierta de granito", OriginVersionID: i64(100), Quantity: d("1")}}
	resp, err = f.uc.UpdateOrder(context.Background(), vendedor, created.ID, dto.UpdateOrderRequest{Items: &same})
	require.NoError(t, err)
	assert.Equal(t, "Cubierta de granito", resp.Items[0].ProductName)
	assert.True(t, created.TotalPrice.Equal(resp.TotalPrice))

	changed := []dto.OrderItemRequest{{ID: created.Items[0].ID, ProductName: "Cubierta", OriginVersionID: i64(100), Quantity: d("2")}}
	_, err = f.uc.UpdateOrder(context.Background(), vendedor, created.ID, dto.UpdateOrderRequest{Items: &changed})
	var ite *domain.InvalidTransitionError
	require.ErrorAs(t, err, &ite)
	assert.Equal(t, "edit-pricing", ite.Action)
	assert.Equal(t, "SOLD", string(f.store.orders[created.ID].Status))
}

// ──────────────────────────────────────────────────────────────────────────────
// Transition
// ──────────────────────────────────────────────────────────────────────────────

func TestTransition_FlujoCompletoYBitacora(t *testing.T) {
	f := newFixture()
	created := mustCreate(t, f, recipeItem(100, "1"))

	resp, err := f.uc.Transition(context.Background(), vendedor, created.ID, workflow.ActionRequestAuth)
	require.NoError(t, err)
	assert.Equal(t, "DRAFT", resp.From)
	assert.Equal(t, "SENT", resp.To)

	mustTransition(t, f, gerente, created.ID, workflow.ActionRequestChanges)
	mustTransition(t, f, vendedor, created.ID, workflow.ActionRequestAuth)
	mustTransition(t, f, gerente, created.ID, workflow.ActionAuthorize)
	mustTransition(t, f, vendedor, created.ID, workflow.ActionMarkSold)

	_, err = f.uc.Transition(context.Background(), admin, created.ID, workflow.ActionReEdit)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "SOLD no regresa a revisión")
	assert.Equal(t, workflow.StatusSold, f.store.orders[created.ID].Status)

	events, err := f.uc.ListEvents(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Len(t, events, 6)
}

func TestTransition_ActorSinPermiso(t *testing.T) {
	f := newFixture()
	created := mustCreate(t, f, recipeItem(100, "1"))
	mustTransition(t, f, vendedor, created.ID, workflow.ActionRequestAuth)

	_, err := f.uc.Transition(context.Background(), vendedor, created.ID, workflow.ActionAuthorize)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = f.uc.Transition(context.Background(), gerente, created.ID, workflow.ActionCancel)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	resp, err := f.uc.Transition(context.Background(), admin, created.ID, workflow.ActionCancel)
	require.NoError(t, err)
	assert.Equal(t, "CANCELLED", resp.To)
}

func TestTransition_OrdenInexistente(t *testing.T) {
	f := newFixture()
	_, err := f.uc.Transition(context.Background(), vendedor, "nope", workflow.ActionRequestAuth)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestParseAction(t *testing.T) {
	a, err := sales.ParseAction("mark-lost")
	require.NoError(t, err)
	assert.Equal(t, workflow.ActionMarkLost, a)
	_, err = sales.ParseAction("publish")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// ──────────────────────────────────────────────────────────────────────────────
// Delete / List / PDF
// ──────────────────────────────────────────────────────────────────────────────

func TestDeleteOrder_SegunEstatus(t *testing.T) {
	f := newFixture()
	draft := mustCreate(t, f, recipeItem(100, "1"))
	require.NoError(t, f.uc.DeleteOrder(context.Background(), vendedor, draft.ID))
	assert.NotContains(t, f.store.orders, draft.ID)

	sent := mustCreate(t, f, recipeItem(100, "1"))
	mustTransition(t, f, vendedor, sent.ID, workflow.ActionRequestAuth)
	assert.ErrorIs(t, f.uc.DeleteOrder(context.Background(), admin, sent.ID), domain.ErrInvalidTransition)
}

func TestListOrders_Filtros(t *testing.T) {
	f := newFixture()
	a := mustCreate(t, f, recipeItem(100, "1"))
	mustCreate(t, f, recipeItem(200, "1"))
	mustTransition(t, f, vendedor, a.ID, workflow.ActionRequestAuth)

	list, err := f.uc.ListOrders(context.Background(), dto.OrderListFilter{Status: "sent"})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, a.ID, list.Items[0].ID)
	assert.Equal(t, 20, list.Page.Limit)

	_, err = f.uc.ListOrders(context.Background(), dto.OrderListFilter{Status: "ARCHIVED"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRenderPDF(t *testing.T) {
	f := newFixture()
	created := mustCreate(t, f, recipeItem(100, "1"))
	data, name, err := f.uc.RenderPDF(context.Background(), created.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	assert.Equal(t, "cotizacion_"+created.ID[:8]+".pdf", name)
	assert.Equal(t, "Constructora del Norte", f.pdf.last.Client.FullName)
	assert.True(t, d("0.16").Equal(f.pdf.last.TaxRate))
}
