// Package document genera las representaciones descargables de una factura.
//
// Layout del PDF (A4):
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Remitente             │  N° Factura + Estado        │
//	│  ─────────────────────────────────────────────────────────  │
//	│  CLIENTE: Nombre + dirección de facturación                 │
//	│  FECHAS: Emisión / Vencimiento / Moneda                     │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Cant | Descripción | P.Unit | Importe                │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTALES: Subtotal / Descuento / Impuestos / TOTAL           │
//	└─────────────────────────────────────────────────────────────┘
package document

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
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

	"github.com/jhoicas/courier-billing/internal/application/billing"
	"github.com/jhoicas/courier-billing/internal/domain/entity"
	"github.com/jhoicas/courier-billing/internal/domain/money"
)

var _ billing.InvoiceDocumentRenderer = (*MarotoPDFRenderer)(nil)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// ── Renderer ──────────────────────────────────────────────────────────────────

// Issuer datos del emisor impresos en la cabecera.
type Issuer struct {
	Name    string
	Address string
	Email   string
}

// MarotoPDFRenderer factura en PDF con Maroto v2.
type MarotoPDFRenderer struct {
	issuer Issuer
}

// NewMarotoPDFRenderer construye el renderer.
func NewMarotoPDFRenderer(issuer Issuer) *MarotoPDFRenderer {
	return &MarotoPDFRenderer{issuer: issuer}
}

func (r *MarotoPDFRenderer) ContentType() string { return "application/pdf" }

// Render genera el PDF y devuelve sus bytes.
func (r *MarotoPDFRenderer) Render(_ context.Context, inv *entity.Invoice, customer *entity.Customer) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Factura "+inv.Number, true).
		WithAuthor(r.issuer.Name, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(r.headerRow(inv))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(customerRow(inv, customer))
	m.AddRows(datesRow(inv))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(itemRows(inv.Items)...)

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(inv))

	doc, err := m.Generate()
	if err != nil {
		return nil, errors.Wrap(err, "pdf: generar documento")
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func (r *MarotoPDFRenderer) headerRow(inv *entity.Invoice) core.Row {
	return row.New(18).Add(
		col.New(7).Add(
			text.New(nonEmpty(r.issuer.Name, "Courier"), props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New(strings.Join(nonBlank(r.issuer.Address, r.issuer.Email), "   |   "), props.Text{
				Size: 8, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New("FACTURA", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right, Color: colorPrimary, Top: 1,
			}),
			text.New(inv.Number, props.Text{
				Style: fontstyle.Bold, Size: 11, Align: align.Right, Top: 7,
			}),
			text.New("Estado: "+string(inv.Status), props.Text{
				Size: 8, Align: align.Right, Top: 14, Color: colorGray,
			}),
		),
	)
}

func customerRow(inv *entity.Invoice, customer *entity.Customer) core.Row {
	name := inv.CustomerName
	if name == "" && customer != nil {
		name = customer.Name
	}
	a := inv.BillingAddress
	return row.New(16).Add(
		col.New(12).Add(
			text.New("FACTURAR A", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(name, props.Text{Style: fontstyle.Bold, Size: 10, Top: 6}),
			text.New(strings.Join(nonBlank(a.Line1, a.Line2, a.City, a.State, a.PostalCode, a.Country), ", "), props.Text{
				Size: 8, Top: 12, Color: colorGray,
			}),
		),
	)
}

func datesRow(inv *entity.Invoice) core.Row {
	issued := inv.CreatedAt
	if inv.SentAt != nil {
		issued = *inv.SentAt
	}
	cell := func(label, value string) core.Col {
		return col.New(4).Add(
			text.New(label, props.Text{Style: fontstyle.Bold, Size: 7, Color: colorGray, Top: 1}),
			text.New(value, props.Text{Size: 9, Top: 5}),
		)
	}
	return row.New(11).Add(
		cell("Emisión", issued.Format("02/01/2006")),
		cell("Vencimiento", inv.DueDate.Format("02/01/2006")),
		cell("Moneda", inv.Currency),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a, Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Cant.", 1, align.Center),
		h("Descripción", 6, align.Left),
		h("Precio Unit.", 2, align.Right),
		h("Importe", 3, align.Right),
	)
}

func itemRows(items []*entity.LineItem) []core.Row {
	rows := make([]core.Row, 0, len(items))
	for _, it := range items {
		rows = append(rows, row.New(7).Add(
			col.New(1).Add(text.New(it.Quantity.String(), props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(6).Add(text.New(it.Description, props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1})),
			col.New(2).Add(text.New(money.Format(it.UnitPrice), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
			col.New(3).Add(text.New(money.Format(it.Amount), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
		))
	}
	return rows
}

func totalsRow(inv *entity.Invoice) core.Row {
	cell := func(s string, top float64, a align.Type, bold bool) core.Component {
		p := props.Text{Size: 9, Align: a, Top: top, Right: 1}
		if bold {
			p.Style, p.Color, p.Size = fontstyle.Bold, colorPrimary, 10
		}
		return text.New(s, p)
	}
	return row.New(26).Add(
		col.New(6),
		col.New(3).Add(
			cell("Subtotal:", 0, align.Right, false),
			cell("Descuento:", 5, align.Right, false),
			cell("Impuestos:", 10, align.Right, false),
			cell("TOTAL:", 16, align.Right, true),
		),
		col.New(3).Add(
			cell(money.Format(inv.Subtotal), 0, align.Right, false),
			cell("-"+money.Format(inv.Discount), 5, align.Right, false),
			cell(money.Format(inv.Tax), 10, align.Right, false),
			cell(fmt.Sprintf("%s %s", money.Format(inv.Total), inv.Currency), 16, align.Right, true),
		),
	)
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

func nonBlank(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
