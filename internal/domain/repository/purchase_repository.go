package repository

import (
	"context"

	"github.com/jhoicas/retail-suggestions/internal/domain/entity"
)

// RetailerPurchaseTotal unidades históricas compradas de un producto por un minorista.
type RetailerPurchaseTotal struct {
	RetailerID     string
	TotalPurchased int64
}

// PurchaseRepository define el puerto del libro de compras (append-only).
type PurchaseRepository interface {
	// TotalsByRetailer agrega las líneas no canceladas del producto agrupadas por minorista.
	TotalsByRetailer(ctx context.Context, productID string) ([]RetailerPurchaseTotal, error)
	Create(ctx context.Context, record *entity.PurchaseRecord) error
}
