package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/retail-suggestions/internal/domain/entity"
	"github.com/jhoicas/retail-suggestions/internal/domain/repository"
)

var _ repository.SalesLedger = (*SalesLedger)(nil)

// SalesLedger ventas reportadas por minoristas en la tabla sales_events.
type SalesLedger struct {
	q Querier
}

// NewSalesLedger construye el adaptador. Pasar pool o tx (Querier).
func NewSalesLedger(q Querier) *SalesLedger {
	return &SalesLedger{q: q}
}

// SoldByRetailers suma de unidades vendidas del producto por minorista.
func (r *SalesLedger) SoldByRetailers(ctx context.Context, productID string, retailerIDs []string) (map[string]int64, error) {
	out := make(map[string]int64, len(retailerIDs))
	if len(retailerIDs) == 0 {
		return out, nil
	}
	rows, err := r.q.Query(ctx, `
		SELECT retailer_id, SUM(units)::BIGINT
		FROM sales_events
		WHERE product_id = $1 AND retailer_id = ANY($2)
		GROUP BY retailer_id`, productID, retailerIDs)
	if err != nil {
		return nil, fmt.Errorf("sold by retailers: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var n int64
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scan sales total: %w", err)
		}
		out[id] = n
	}
	return out, rows.Err()
}

// Record agrega una venta (usado por la carga inicial).
func (r *SalesLedger) Record(ctx context.Context, ev *entity.SalesEvent) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO sales_events (id, retailer_id, product_id, units, price, sold_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`,
		ev.ID, ev.RetailerID, ev.ProductID, ev.Units, ev.Price, ev.SoldAt)
	if err != nil {
		return fmt.Errorf("insert sales event: %w", err)
	}
	return nil
}
