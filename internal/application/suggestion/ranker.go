package suggestion

import (
	"context"
	"fmt"

	"github.com/jhoicas/retail-suggestions/internal/domain/inventory"
	"github.com/jhoicas/retail-suggestions/internal/domain/repository"
)

// RetailerRanker combina el libro de compras y el de ventas para ordenar minoristas por eficiencia.
type RetailerRanker struct {
	purchases     repository.PurchaseRepository
	sales         repository.SalesLedger
	maxCandidates int
}

// NewRetailerRanker construye el ranker. maxCandidates <= 0 usa el valor por defecto (5).
func NewRetailerRanker(purchases repository.PurchaseRepository, sales repository.SalesLedger, maxCandidates int) *RetailerRanker {
	if maxCandidates <= 0 {
		maxCandidates = inventory.DefaultMaxCandidates
	}
	return &RetailerRanker{purchases: purchases, sales: sales, maxCandidates: maxCandidates}
}

// Rank devuelve los mejores candidatos para el producto, el mejor primero.
// Sin historial de compras devuelve lista vacía (no error): "todavía no se puede sugerir".
func (r *RetailerRanker) Rank(ctx context.Context, productID string) ([]inventory.RankedRetailer, error) {
	totals, err := r.purchases.TotalsByRetailer(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("rank: purchase totals: %w", err)
	}
	if len(totals) == 0 {
		return []inventory.RankedRetailer{}, nil
	}

	ids := make([]string, 0, len(totals))
	for _, t := range totals {
		if t.TotalPurchased > 0 {
			ids = append(ids, t.RetailerID)
		}
	}
	if len(ids) == 0 {
		return []inventory.RankedRetailer{}, nil
	}

	sold, err := r.sales.SoldByRetailers(ctx, productID, ids)
	if err != nil {
		return nil, fmt.Errorf("rank: sales totals: %w", err)
	}
	return inventory.RankRetailers(totals, sold, r.maxCandidates), nil
}
