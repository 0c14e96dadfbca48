package repository

import (
	"context"
	"time"

	"github.com/jhoicas/retail-suggestions/internal/domain/entity"
)

// InventoryBatchRepository define el puerto para consultar y descontar lotes de inventario.
// Usable con pool o dentro de una transacción.
type InventoryBatchRepository interface {
	// GetByID devuelve (nil, nil) si el lote no existe.
	GetByID(ctx context.Context, id string) (*entity.InventoryBatch, error)

	// FindAvailable devuelve un lote en inventario con cantidad > 0 del producto.
	// Si batchID no es vacío filtra por ese lote; si no, el de vencimiento más próximo.
	// Devuelve (nil, nil) si no hay ninguno.
	FindAvailable(ctx context.Context, productID, batchID string) (*entity.InventoryBatch, error)

	// ListExpiring devuelve los lotes disponibles cuyo vencimiento cae en [from, to].
	ListExpiring(ctx context.Context, from, to time.Time) ([]*entity.InventoryBatch, error)

	// ExpirePast marca como expired los lotes en inventario ya vencidos y devuelve sus IDs.
	ExpirePast(ctx context.Context, now time.Time) ([]string, error)

	// DecrementIfSufficient descuenta qty de forma atómica solo si el lote la tiene;
	// marca el lote sold al llegar a cero. Devuelve domain.ErrInsufficientStock si no alcanza.
	DecrementIfSufficient(ctx context.Context, batchID string, qty int64) (*entity.InventoryBatch, error)
}
