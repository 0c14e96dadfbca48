// Package xlsx exporta el reporte de sugerencias vencidas como hoja de cálculo.
package xlsx

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/jhoicas/retail-suggestions/internal/application/suggestion"
)

const sheetName = "Vencidas"

var headers = []string{
	"ID", "Producto", "Categoría", "Lote", "Vence", "Último minorista",
	"Minoristas intentados", "Intentos", "Cantidad", "Actualizada",
}

// ExpiredSheet implementa suggestion.ReportRenderer con excelize.
type ExpiredSheet struct{}

var _ suggestion.ReportRenderer = ExpiredSheet{}

// ContentType tipo MIME del libro.
func (ExpiredSheet) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Render escribe una fila por sugerencia y una fila final de totales.
func (ExpiredSheet) Render(_ context.Context, report *suggestion.ExpiredReport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("xlsx: renombrar hoja: %w", err)
	}
	if err := f.SetSheetRow(sheetName, "A1", &headers); err != nil {
		return nil, fmt.Errorf("xlsx: cabecera: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("xlsx: estilo: %w", err)
	}
	_ = f.SetRowStyle(sheetName, 1, 1, bold)

	for i, v := range report.Rows {
		expiry := ""
		if !v.ExpiryDate.IsZero() {
			expiry = v.ExpiryDate.Format("2006-01-02")
		}
		tried := ""
		for j, id := range v.TriedRetailers {
			if j > 0 {
				tried += ", "
			}
			tried += id
		}
		cells := []interface{}{
			v.ID, v.ProductName, v.ProductCategory, v.BatchCode, expiry, v.RetailerID,
			tried, v.Attempts, v.Quantity, v.UpdatedAt.UTC().Format("2006-01-02 15:04"),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheetName, cell, &cells); err != nil {
			return nil, fmt.Errorf("xlsx: fila %d: %w", i+2, err)
		}
	}

	totalRow := len(report.Rows) + 2
	label, _ := excelize.CoordinatesToCellName(8, totalRow)
	value, _ := excelize.CoordinatesToCellName(9, totalRow)
	_ = f.SetCellValue(sheetName, label, "Total")
	_ = f.SetCellValue(sheetName, value, report.TotalUnits())
	_ = f.SetRowStyle(sheetName, totalRow, totalRow, bold)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("xlsx: escribir libro: %w", err)
	}
	return buf.Bytes(), nil
}
