package suggestion

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/retail-suggestions/internal/domain"
	"github.com/jhoicas/retail-suggestions/internal/domain/entity"
)

type captureRenderer struct{ got *ExpiredReport }

func (c *captureRenderer) Render(_ context.Context, r *ExpiredReport) ([]byte, error) {
	c.got = r
	return []byte("doc"), nil
}

func (c *captureRenderer) ContentType() string { return "text/plain" }

func TestExpiredReport_SoloVencidas(t *testing.T) {
	f := newFixture()
	f.store.addProduct("P", "Pan")
	f.store.addBatch("B", "P", 10, f.now.Add(time.Hour))
	f.store.putSuggestion(&entity.Suggestion{ID: "S1", ProductID: "P", InventoryBatchID: "B", RetailerID: "R1",
		Quantity: 4, Status: entity.SuggestionExpired, Attempts: 3, Version: 3})
	f.store.putSuggestion(&entity.Suggestion{ID: "S2", ProductID: "P", InventoryBatchID: "B", RetailerID: "R2",
		Quantity: 6, Status: entity.SuggestionConfirmed, Attempts: 1, Version: 2})
	r := &captureRenderer{}
	uc := NewReportUseCase(f.queries, map[string]ReportRenderer{ReportFormatPDF: r})
	uc.now = func() time.Time { return f.now }

	doc, filename, ctype, err := uc.ExpiredReport(context.Background(), ReportFormatPDF, 0)

	require.NoError(t, err)
	assert.Equal(t, "doc", string(doc))
	assert.Equal(t, "sugerencias-vencidas-20260310.pdf", filename)
	assert.Equal(t, "text/plain", ctype)
	require.Len(t, r.got.Rows, 1)
	assert.Equal(t, "S1", r.got.Rows[0].ID)
	assert.Equal(t, int64(4), r.got.TotalUnits())
}

func TestExpiredReport_FormatoDesconocido(t *testing.T) {
	f := newFixture()
	uc := NewReportUseCase(f.queries, map[string]ReportRenderer{})

	_, _, _, err := uc.ExpiredReport(context.Background(), "csv", 10)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
