package pdf

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/retail-suggestions/internal/application/suggestion"
	"github.com/jhoicas/retail-suggestions/internal/domain/entity"
	"github.com/jhoicas/retail-suggestions/internal/domain/repository"
)

func TestExpiredReportGenerator_Render(t *testing.T) {
	g := NewExpiredReportGenerator("retail-suggestions")
	report := &suggestion.ExpiredReport{
		GeneratedAt: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		Rows: []repository.SuggestionView{{
			Suggestion: entity.Suggestion{
				ID: "S1", ProductID: "P", InventoryBatchID: "B", RetailerID: "R3",
				Quantity: 12, Status: entity.SuggestionExpired, Attempts: 3,
			},
			ProductName: "Yogur", ProductCategory: "lácteos", BatchCode: "L-77",
			ExpiryDate: time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC),
		}},
	}

	doc, err := g.Render(context.Background(), report)

	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(doc, []byte("%PDF")))
	assert.Equal(t, "application/pdf", g.ContentType())
}

func TestExpiredReportGenerator_SinFilas(t *testing.T) {
	doc, err := NewExpiredReportGenerator("x").Render(context.Background(), &suggestion.ExpiredReport{GeneratedAt: time.Now()})

	require.NoError(t, err)
	assert.NotEmpty(t, doc)
}

func TestFormatUnits(t *testing.T) {
	assert.Equal(t, "0", formatUnits(0))
	assert.Equal(t, "999", formatUnits(999))
	assert.Equal(t, "25.000", formatUnits(25000))
	assert.Equal(t, "1.000.000", formatUnits(1000000))
	assert.Equal(t, "-1.500", formatUnits(-1500))
}
