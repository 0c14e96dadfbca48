package suggestion

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/retail-suggestions/internal/domain"
	"github.com/jhoicas/retail-suggestions/internal/domain/repository"
)

// Formatos de exportación del reporte de sugerencias vencidas.
const (
	ReportFormatPDF  = "pdf"
	ReportFormatXLSX = "xlsx"
)

// ExpiredReport datos del reporte de sugerencias que terminaron en expired.
type ExpiredReport struct {
	GeneratedAt time.Time
	Rows        []repository.SuggestionView
}

// TotalUnits suma de unidades de las sugerencias del reporte.
func (r *ExpiredReport) TotalUnits() int64 {
	var total int64
	for _, row := range r.Rows {
		total += row.Quantity
	}
	return total
}

// ReportRenderer convierte el reporte a un documento descargable.
type ReportRenderer interface {
	Render(ctx context.Context, report *ExpiredReport) ([]byte, error)
	ContentType() string
}

// ReportUseCase genera el reporte de revisión manual de sugerencias vencidas.
type ReportUseCase struct {
	queries   *QueryUseCase
	renderers map[string]ReportRenderer
	now       func() time.Time
}

// NewReportUseCase construye el caso de uso. renderers se indexa por formato (pdf, xlsx).
func NewReportUseCase(queries *QueryUseCase, renderers map[string]ReportRenderer) *ReportUseCase {
	return &ReportUseCase{queries: queries, renderers: renderers, now: time.Now}
}

// ExpiredReport devuelve (bytes, filename, contentType). Formato desconocido = domain.ErrInvalidInput.
func (uc *ReportUseCase) ExpiredReport(ctx context.Context, format string, limit int) ([]byte, string, string, error) {
	r, ok := uc.renderers[format]
	if !ok {
		return nil, "", "", fmt.Errorf("%w: formato %q", domain.ErrInvalidInput, format)
	}
	rows, err := uc.queries.ListExpired(ctx, limit, 0)
	if err != nil {
		return nil, "", "", err
	}
	report := &ExpiredReport{GeneratedAt: uc.now().UTC(), Rows: rows}
	doc, err := r.Render(ctx, report)
	if err != nil {
		return nil, "", "", fmt.Errorf("reporte: generar %s: %w", format, err)
	}
	filename := fmt.Sprintf("sugerencias-vencidas-%s.%s", report.GeneratedAt.Format("20060102"), format)
	return doc, filename, r.ContentType(), nil
}
