package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/retail-suggestions/internal/domain/entity"
	"github.com/jhoicas/retail-suggestions/internal/domain/repository"
)

var _ repository.PurchaseRepository = (*PurchaseRepo)(nil)

// PurchaseRepo libro de compras (cabecera + líneas). Create debe correr dentro de una tx.
type PurchaseRepo struct {
	q Querier
}

// NewPurchaseRepository construye el adaptador. Pasar pool o tx (Querier).
func NewPurchaseRepository(q Querier) *PurchaseRepo {
	return &PurchaseRepo{q: q}
}

// TotalsByRetailer unidades compradas del producto por minorista (excluye líneas canceladas).
func (r *PurchaseRepo) TotalsByRetailer(ctx context.Context, productID string) ([]repository.RetailerPurchaseTotal, error) {
	query := `
		SELECT pr.retailer_id, SUM(pi.quantity)::BIGINT
		FROM purchase_items pi
		JOIN purchase_records pr ON pr.id = pi.purchase_id
		WHERE pi.product_id = $1 AND pi.status <> 'cancelled'
		GROUP BY pr.retailer_id
		HAVING SUM(pi.quantity) > 0
		ORDER BY pr.retailer_id`
	rows, err := r.q.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("purchase totals: %w", err)
	}
	defer rows.Close()

	var out []repository.RetailerPurchaseTotal
	for rows.Next() {
		var t repository.RetailerPurchaseTotal
		if err := rows.Scan(&t.RetailerID, &t.TotalPurchased); err != nil {
			return nil, fmt.Errorf("scan purchase total: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Create inserta la compra y sus líneas.
func (r *PurchaseRepo) Create(ctx context.Context, rec *entity.PurchaseRecord) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO purchase_records (id, retailer_id, source, suggestion_id, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		rec.ID, rec.RetailerID, rec.Source, rec.SuggestionID, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert purchase: %w", mapWriteErr(err))
	}
	for _, it := range rec.Items {
		_, err := r.q.Exec(ctx, `
			INSERT INTO purchase_items (purchase_id, product_id, inventory_batch_id, quantity, unit_price, status)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			rec.ID, it.ProductID, it.InventoryBatchID, it.Quantity, it.UnitPrice, it.Status)
		if err != nil {
			return fmt.Errorf("insert purchase item: %w", mapWriteErr(err))
		}
	}
	return nil
}
