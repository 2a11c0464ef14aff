// Package pdf genera el PDF de una cotización para el cliente.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Empresa + email       │  COTIZACIÓN folio + fecha   │
//	│  ─────────────────────────────────────────────────────────  │
//	│  CLIENTE: nombre / contacto / email                          │
//	│  PROYECTO: nombre, vigencia, entrega                         │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: # | Cant | Descripción | P.Unit | Importe            │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTALES: Subtotal / IVA / TOTAL (MXN)                       │
//	│  NOTAS Y CONDICIONES                                         │
//	└─────────────────────────────────────────────────────────────┘
//
// Solo se imprimen precios finales: costos, márgenes y comisión nunca salen al cliente.
package pdf

import (
	"context"
	"fmt"
	"strings"
	"time"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/jhoicas/cotizaciones-api/internal/application/sales"
	"github.com/jhoicas/cotizaciones-api/internal/domain/entity"
)

var _ sales.QuotePDFGenerator = (*MarotoPDFGenerator)(nil)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorWhite   = &props.Color{Red: 255, Green: 255, Blue: 255}
)

var printer = message.NewPrinter(language.MustParse("es-MX"))

// ── Generator ─────────────────────────────────────────────────────────────────

// MarotoPDFGenerator implementa sales.QuotePDFGenerator usando Maroto v2.
type MarotoPDFGenerator struct {
	now func() time.Time
}

// NewMarotoPDFGenerator construye el generador.
func NewMarotoPDFGenerator() *MarotoPDFGenerator { return &MarotoPDFGenerator{now: time.Now} }

// GenerateQuotePDF genera el PDF y devuelve sus bytes.
func (g *MarotoPDFGenerator) GenerateQuotePDF(_ context.Context, doc sales.QuoteDocument) ([]byte, error) {
	if doc.Order == nil {
		return nil, fmt.Errorf("pdf: orden vacía")
	}
	if doc.Company == nil {
		doc.Company = &entity.GlobalConfig{}
	}
	if doc.Client == nil {
		doc.Client = &entity.Client{ID: doc.Order.ClientID}
	}
	company := nonEmpty(doc.Company.CompanyName, "Cotización")

	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Cotización "+folio(doc.Order.ID), true).
		WithAuthor(company, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(doc, g.now()))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(clientRow(doc.Client))
	m.AddRows(projectRow(doc.Order))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(itemRows(doc.Order.Items)...)

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(doc.Order, doc.TaxRate))
	m.AddRows(notesRows(doc.Order)...)

	out, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return out.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func headerRow(doc sales.QuoteDocument, now time.Time) core.Row {
	return row.New(18).Add(
		col.New(7).Add(
			text.New(nonEmpty(doc.Company.CompanyName, "—"), props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New(nonEmpty(doc.Company.CompanyEmail, ""), props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New("COTIZACIÓN", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right,
				Color: colorPrimary, Top: 1,
			}),
			text.New(folio(doc.Order.ID), props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 7,
			}),
			text.New("Fecha: "+now.Format("02/01/2006"), props.Text{
				Size: 8, Align: align.Right, Top: 14, Color: colorGray,
			}),
		),
	)
}

func clientRow(c *entity.Client) core.Row {
	return row.New(14).Add(
		col.New(12).Add(
			text.New("CLIENTE", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(c.FullName, props.Text{
				Style: fontstyle.Bold, Size: 10, Top: 6,
			}),
			text.New(fmt.Sprintf("Contacto: %s   |   Email: %s",
				nonEmpty(c.ContactName, "—"),
				nonEmpty(c.Email, "—"),
			), props.Text{Size: 8, Top: 12, Color: colorGray}),
		),
	)
}

func projectRow(o *entity.SalesOrder) core.Row {
	return row.New(12).Add(
		col.New(12).Add(
			text.New("PROYECTO: "+o.ProjectName, props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(fmt.Sprintf("Vigencia: %s   |   Entrega estimada: %s",
				formatDate(o.ValidUntil), formatDate(o.DeliveryDate),
			), props.Text{Size: 8, Top: 7, Color: colorGray}),
		),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorWhite, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("#", 1, align.Center),
		h("Cant.", 1, align.Center),
		h("Descripción", 6, align.Left),
		h("Precio Unit.", 2, align.Right),
		h("Importe", 2, align.Right),
	).WithStyle(&props.Cell{BackgroundColor: colorPrimary})
}

// itemRows: una fila por partida, con el precio final (comisión incluida).
// Los importes suman el subtotal guardado.
func itemRows(items []entity.SalesOrderItem) []core.Row {
	result := make([]core.Row, 0, len(items))
	for _, it := range items {
		amount := it.Amount()
		result = append(result, row.New(7).Add(
			col.New(1).Add(text.New(fmt.Sprint(it.Position), props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(1).Add(text.New(it.Quantity.String(), props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(6).Add(text.New(it.ProductName, props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1})),
			col.New(2).Add(text.New(formatMoney(it.UnitPrice), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
			col.New(2).Add(text.New(formatMoney(amount), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
		))
	}
	return result
}

func totalsRow(o *entity.SalesOrder, taxRate decimal.Decimal) core.Row {
	label := func(s string) core.Component {
		return text.New(s, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2})
	}
	value := func(s string, top float64) core.Component {
		return text.New(s, props.Text{Size: 9, Align: align.Right, Right: 1, Top: top})
	}
	taxLabel := fmt.Sprintf("IVA %s%%:", taxRate.Mul(decimal.NewFromInt(100)).Round(2).String())

	return row.New(20).Add(
		col.New(6),
		col.New(3).Add(
			label("Subtotal:"),
			text.New(taxLabel, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2, Top: 5}),
			text.New("TOTAL "+o.Currency+":", props.Text{
				Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Right: 2, Top: 10,
			}),
		),
		col.New(3).Add(
			value(formatMoney(o.Subtotal), 0),
			value(formatMoney(o.TaxAmount), 5),
			text.New(formatMoney(o.TotalPrice), props.Text{
				Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Right: 1, Top: 10,
			}),
		),
	)
}

func notesRows(o *entity.SalesOrder) []core.Row {
	var rows []core.Row
	add := func(title, body string) {
		if body == "" {
			return
		}
		rows = append(rows,
			row.New(6).Add(col.New(12).Add(text.New(title, props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 2,
			}))),
			row.New(10).Add(col.New(12).Add(text.New(body, props.Text{Size: 8, Color: colorGray}))),
		)
	}
	add("NOTAS", o.Notes)
	add("CONDICIONES COMERCIALES", o.Conditions)
	if o.IsWarranty {
		add("GARANTÍA", "Trabajo realizado como garantía.")
	}
	return rows
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// formatMoney formatea con separadores es-MX: 1312.5 → "$1,312.50".
func formatMoney(d decimal.Decimal) string {
	return "$" + printer.Sprint(number.Decimal(d.Round(2).InexactFloat64(), number.Scale(2)))
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "—"
	}
	return t.Format("02/01/2006")
}

// folio primeros 8 caracteres del UUID en mayúsculas.
func folio(id string) string {
	if len(id) > 8 {
		id = id[:8]
	}
	return "COT-" + strings.ToUpper(id)
}
