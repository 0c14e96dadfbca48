package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de cumplimiento de una línea de compra.
const (
	PurchaseItemPending   = "pending"
	PurchaseItemFulfilled = "fulfilled"
	PurchaseItemCancelled = "cancelled"
)

// Orígenes de una compra.
const (
	PurchaseSourceSuggestion = "suggestion"
	PurchaseSourceCheckout   = "checkout"
)

// PurchaseRecord compra de un minorista con una o más líneas (append-only).
type PurchaseRecord struct {
	ID           string
	RetailerID   string
	Source       string
	SuggestionID *string
	Items        []PurchaseItem
	CreatedAt    time.Time
}

// PurchaseItem línea de compra.
type PurchaseItem struct {
	ProductID        string
	InventoryBatchID *string
	Quantity         int64
	UnitPrice        decimal.Decimal
	Status           string
}

// Total devuelve la suma de cantidad × precio unitario de las líneas.
func (p *PurchaseRecord) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range p.Items {
		total = total.Add(it.UnitPrice.Mul(decimal.NewFromInt(it.Quantity)))
	}
	return total
}
