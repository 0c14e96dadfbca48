package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product representa un producto del catálogo. El motor de sugerencias solo lo lee.
// Batches lista los lotes del producto (código + vencimiento); el stock vive en InventoryBatch.
type Product struct {
	ID        string
	Name      string
	Category  string
	Price     decimal.Decimal // precio mayorista usado al registrar la compra confirmada
	Batches   []Batch
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Batch identifica un lote del producto con su fecha de vencimiento.
type Batch struct {
	BatchCode  string
	ExpiryDate time.Time
}
