package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/cotizaciones-api/internal/domain"
	"github.com/jhoicas/cotizaciones-api/internal/domain/entity"
	"github.com/jhoicas/cotizaciones-api/internal/domain/repository"
	"github.com/jhoicas/cotizaciones-api/internal/domain/workflow"
)

var _ repository.SalesOrderRepository = (*SalesOrderRepo)(nil)

// SalesOrderRepo implementación de SalesOrderRepository (usable con pool o tx).
type SalesOrderRepo struct {
	q Querier
}

// NewSalesOrderRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSalesOrderRepository(q Querier) *SalesOrderRepo {
	return &SalesOrderRepo{q: q}
}

const orderColumns = `id, client_id, user_id, status, project_name, valid_until, delivery_date, tax_rate_id,
	applied_margin_percent, applied_commission_percent, applied_tolerance_percent,
	commission_amount, subtotal, tax_amount, total_price, currency,
	notes, conditions, external_invoice_ref, is_warranty, created_at, updated_at`

const itemColumns = `id, sales_order_id, position, product_name, origin_version_id, quantity,
	frozen_unit_cost, base_unit_price, unit_price, subtotal_price, cost_snapshot`

// Create persiste encabezado y partidas. Debe llamarse dentro de una tx.
func (r *SalesOrderRepo) Create(ctx context.Context, o *entity.SalesOrder) error {
	query := `INSERT INTO sales_orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`
	_, err := r.q.Exec(ctx, query,
		o.ID, o.ClientID, o.UserID, string(o.Status), o.ProjectName, o.ValidUntil, o.DeliveryDate, o.TaxRateID,
		o.AppliedMarginPercent, o.AppliedCommissionPercent, o.AppliedTolerancePercent,
		o.CommissionAmount, o.Subtotal, o.TaxAmount, o.TotalPrice, o.Currency,
		o.Notes, o.Conditions, o.ExternalInvoiceRef, o.IsWarranty, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert sales order: %w", domain.ErrDuplicate)
		}
		return wrap("insert sales order", err)
	}
	return r.insertItems(ctx, o)
}

// Update reemplaza el encabezado y todas las partidas.
func (r *SalesOrderRepo) Update(ctx context.Context, o *entity.SalesOrder) error {
	query := `
		UPDATE sales_orders SET
			client_id = $2, status = $3, project_name = $4, valid_until = $5, delivery_date = $6,
			tax_rate_id = $7, applied_margin_percent = $8, applied_commission_percent = $9,
			applied_tolerance_percent = $10, commission_amount = $11, subtotal = $12, tax_amount = $13,
			total_price = $14, notes = $15, conditions = $16, external_invoice_ref = $17,
			is_warranty = $18, updated_at = $19
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		o.ID, o.ClientID, string(o.Status), o.ProjectName, o.ValidUntil, o.DeliveryDate,
		o.TaxRateID, o.AppliedMarginPercent, o.AppliedCommissionPercent,
		o.AppliedTolerancePercent, o.CommissionAmount, o.Subtotal, o.TaxAmount,
		o.TotalPrice, o.Notes, o.Conditions, o.ExternalInvoiceRef,
		o.IsWarranty, o.UpdatedAt,
	)
	if err != nil {
		return wrap("update sales order", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	if _, err := r.q.Exec(ctx, `DELETE FROM sales_order_items WHERE sales_order_id = $1`, o.ID); err != nil {
		return wrap("delete sales order items", err)
	}
	return r.insertItems(ctx, o)
}

func (r *SalesOrderRepo) insertItems(ctx context.Context, o *entity.SalesOrder) error {
	if len(o.Items) == 0 {
		return nil
	}
	query := `INSERT INTO sales_order_items (` + itemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	batch := &pgx.Batch{}
	for i := range o.Items {
		it := &o.Items[i]
		it.SalesOrderID = o.ID
		snapshot, err := json.Marshal(it.CostSnapshot)
		if err != nil {
			return fmt.Errorf("encode cost snapshot: %w", err)
		}
		batch.Queue(query,
			it.ID, o.ID, it.Position, it.ProductName, it.OriginVersionID, it.Quantity,
			it.FrozenUnitCost, it.BaseUnitPrice, it.UnitPrice, it.SubtotalPrice, snapshot,
		)
	}
	br := r.q.SendBatch(ctx, batch)
	defer br.Close()
	for range o.Items {
		if _, err := br.Exec(); err != nil {
			return wrap("insert sales order item", err)
		}
	}
	return nil
}

// UpdateStatus cambia solo el estatus.
func (r *SalesOrderRepo) UpdateStatus(ctx context.Context, id string, status workflow.Status) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE sales_orders SET status = $2, updated_at = now() WHERE id = $1`, id, string(status))
	if err != nil {
		return wrap("update sales order status", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID obtiene la orden con sus partidas; nil, nil si no existe.
func (r *SalesOrderRepo) GetByID(ctx context.Context, id string) (*entity.SalesOrder, error) {
	row := r.q.QueryRow(ctx, `SELECT `+orderColumns+` FROM sales_orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrap("get sales order", err)
	}

	rows, err := r.q.Query(ctx,
		`SELECT `+itemColumns+` FROM sales_order_items WHERE sales_order_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, wrap("list sales order items", err)
	}
	defer rows.Close()
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		o.Items = append(o.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list sales order items", err)
	}
	return o, nil
}

// List devuelve encabezados (sin partidas), más recientes primero.
func (r *SalesOrderRepo) List(ctx context.Context, f repository.SalesOrderFilter) ([]*entity.SalesOrder, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.ClientID > 0 {
		args = append(args, f.ClientID)
		where = append(where, fmt.Sprintf("client_id = $%d", len(args)))
	}
	query := `SELECT ` + orderColumns + ` FROM sales_orders`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, f.Limit, f.Offset)
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, wrap("list sales orders", err)
	}
	defer rows.Close()
	var list []*entity.SalesOrder
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, wrap("scan sales order", err)
		}
		list = append(list, o)
	}
	return list, wrap("list sales orders", rows.Err())
}

// Delete elimina la orden; partidas y eventos caen por ON DELETE CASCADE.
func (r *SalesOrderRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM sales_orders WHERE id = $1`, id); err != nil {
		return wrap("delete sales order", err)
	}
	return nil
}

func scanOrder(row pgx.Row) (*entity.SalesOrder, error) {
	var o entity.SalesOrder
	var status string
	err := row.Scan(
		&o.ID, &o.ClientID, &o.UserID, &status, &o.ProjectName, &o.ValidUntil, &o.DeliveryDate, &o.TaxRateID,
		&o.AppliedMarginPercent, &o.AppliedCommissionPercent, &o.AppliedTolerancePercent,
		&o.CommissionAmount, &o.Subtotal, &o.TaxAmount, &o.TotalPrice, &o.Currency,
		&o.Notes, &o.Conditions, &o.ExternalInvoiceRef, &o.IsWarranty, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.Status = workflow.Status(status)
	return &o, nil
}

func scanItem(rows pgx.Rows) (entity.SalesOrderItem, error) {
	var it entity.SalesOrderItem
	var snapshot []byte
	err := rows.Scan(
		&it.ID, &it.SalesOrderID, &it.Position, &it.ProductName, &it.OriginVersionID, &it.Quantity,
		&it.FrozenUnitCost, &it.BaseUnitPrice, &it.UnitPrice, &it.SubtotalPrice, &snapshot,
	)
	if err != nil {
		return it, wrap("scan sales order item", err)
	}
	if len(snapshot) > 0 {
		if err := json.Unmarshal(snapshot, &it.CostSnapshot); err != nil {
			return it, fmt.Errorf("decode cost snapshot of item %s: %w", it.ID, err)
		}
	}
	return it, nil
}
