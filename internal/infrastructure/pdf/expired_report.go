// Package pdf genera el reporte imprimible de sugerencias vencidas para revisión manual.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Título + servicio   │  Fecha de generación         │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Producto | Categoría | Lote | Vence | Minorista ... │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTALES: sugerencias / unidades                            │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strconv"

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

	"github.com/jhoicas/retail-suggestions/internal/application/suggestion"
	"github.com/jhoicas/retail-suggestions/internal/domain/repository"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// ExpiredReportGenerator implementa suggestion.ReportRenderer usando Maroto v2.
type ExpiredReportGenerator struct {
	serviceName string
}

var _ suggestion.ReportRenderer = (*ExpiredReportGenerator)(nil)

// NewExpiredReportGenerator construye el generador.
func NewExpiredReportGenerator(serviceName string) *ExpiredReportGenerator {
	return &ExpiredReportGenerator{serviceName: serviceName}
}

// ContentType tipo MIME del documento.
func (g *ExpiredReportGenerator) ContentType() string { return "application/pdf" }

// Render genera el PDF y devuelve sus bytes.
func (g *ExpiredReportGenerator) Render(_ context.Context, report *suggestion.ExpiredReport) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Sugerencias vencidas", true).
		WithAuthor(g.serviceName, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(report, g.serviceName))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))

	m.AddRows(tableHeaderRow())
	if len(report.Rows) == 0 {
		m.AddRows(row.New(10).Add(col.New(12).Add(
			text.New("No hay sugerencias vencidas.", props.Text{
				Size: 9, Align: align.Center, Top: 3, Color: colorGray,
			}),
		)))
	}
	for _, r := range tableDetailRows(report.Rows) {
		m.AddRows(r)
	}

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(report))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func headerRow(report *suggestion.ExpiredReport, serviceName string) core.Row {
	return row.New(16).Add(
		col.New(8).Add(
			text.New("SUGERENCIAS VENCIDAS", props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New(serviceName+" · revisión manual", props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(4).Add(
			text.New("Generado: "+report.GeneratedAt.Format("02/01/2006 15:04")+" UTC", props.Text{
				Size: 8, Align: align.Right, Top: 3, Color: colorGray,
			}),
		),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Producto", 3, align.Left),
		h("Categoría", 2, align.Left),
		h("Lote", 2, align.Left),
		h("Vence", 1, align.Center),
		h("Último minorista", 2, align.Left),
		h("Intentos", 1, align.Center),
		h("Cant.", 1, align.Right),
	)
}

// tableDetailRows: una fila por sugerencia.
func tableDetailRows(views []repository.SuggestionView) []core.Row {
	cell := func(s string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(s, props.Text{
			Size: 8, Align: a, Top: 1, Left: 1, Right: 1,
		}))
	}
	result := make([]core.Row, 0, len(views))
	for _, v := range views {
		expiry := "—"
		if !v.ExpiryDate.IsZero() {
			expiry = v.ExpiryDate.Format("02/01/2006")
		}
		result = append(result, row.New(7).Add(
			cell(nonEmpty(v.ProductName, v.ProductID), 3, align.Left),
			cell(nonEmpty(v.ProductCategory, "—"), 2, align.Left),
			cell(nonEmpty(v.BatchCode, v.InventoryBatchID), 2, align.Left),
			cell(expiry, 1, align.Center),
			cell(v.RetailerID, 2, align.Left),
			cell(strconv.Itoa(v.Attempts), 1, align.Center),
			cell(formatUnits(v.Quantity), 1, align.Right),
		))
	}
	return result
}

func totalsRow(report *suggestion.ExpiredReport) core.Row {
	label := func(s string) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2,
		})
	}
	value := func(s string) core.Component {
		return text.New(s, props.Text{Size: 9, Align: align.Right, Right: 1})
	}
	return row.New(14).Add(
		col.New(6),
		col.New(3).Add(
			label("Sugerencias:"),
			text.New("Unidades:", props.Text{
				Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2, Top: 5,
			}),
		),
		col.New(3).Add(
			value(strconv.Itoa(len(report.Rows))),
			text.New(formatUnits(report.TotalUnits()), props.Text{
				Size: 9, Align: align.Right, Right: 1, Top: 5,
			}),
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

// formatUnits inserta puntos de miles. Ej: 25000 → "25.000".
func formatUnits(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := false
	if n < 0 {
		neg, s = true, s[1:]
	}
	size := len(s)
	if size <= 3 {
		if neg {
			return "-" + s
		}
		return s
	}
	buf := make([]byte, 0, size+size/3+1)
	if neg {
		buf = append(buf, '-')
	}
	for i, c := range []byte(s) {
		if i > 0 && (size-i)%3 == 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, c)
	}
	return string(buf)
}
