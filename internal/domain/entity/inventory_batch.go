package entity

import "time"

// Estados de un lote de inventario. Solo avanzan desde in_inventory, nunca retroceden.
const (
	BatchStatusInInventory = "in_inventory"
	BatchStatusAssigned    = "assigned"
	BatchStatusSold        = "sold"
	BatchStatusExpired     = "expired"
)

// InventoryBatch representa el stock disponible de un lote concreto de un producto.
type InventoryBatch struct {
	ID                 string
	ProductID          string
	BatchCode          string
	Quantity           int64 // nunca negativo
	ExpiryDate         time.Time
	Status             string
	AssignedRetailerID *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// IsAvailable indica si el lote puede ofrecerse: en inventario y con unidades.
func (b *InventoryBatch) IsAvailable() bool {
	return b.Status == BatchStatusInInventory && b.Quantity > 0
}

// CanTransitionBatch valida que el cambio de estado del lote sea hacia adelante.
func CanTransitionBatch(from, to string) bool {
	if from != BatchStatusInInventory {
		return false
	}
	switch to {
	case BatchStatusAssigned, BatchStatusSold, BatchStatusExpired:
		return true
	}
	return false
}
