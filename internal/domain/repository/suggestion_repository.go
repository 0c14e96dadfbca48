package repository

import (
	"context"
	"time"

	"github.com/jhoicas/retail-suggestions/internal/domain/entity"
)

// UpsertSuggestion datos propuestos para la sugerencia activa de (producto, lote).
type UpsertSuggestion struct {
	ID               string // usado solo si se crea una nueva
	ProductID        string
	InventoryBatchID string
	RetailerID       string
	Quantity         int64
	Now              time.Time
}

// SuggestionView sugerencia expandida con datos del producto para listados.
type SuggestionView struct {
	entity.Suggestion
	ProductName     string
	ProductCategory string
	BatchCode       string
	ExpiryDate      time.Time
}

// SuggestionRepository define el puerto del almacén de sugerencias.
// Todas las escrituras son atómicas a nivel de almacén: nunca leer-modificar-guardar.
type SuggestionRepository interface {
	// Upsert busca la sugerencia activa de (ProductID, InventoryBatchID) y en una sola
	// escritura condicional la crea, la reasigna, actualiza la cantidad o no hace nada.
	Upsert(ctx context.Context, in UpsertSuggestion) (*entity.Suggestion, entity.SuggestionChange, error)

	// GetByID devuelve (nil, nil) si no existe.
	GetByID(ctx context.Context, id string) (*entity.Suggestion, error)

	// GetForUpdate igual que GetByID pero bloquea la fila (solo dentro de una transacción).
	GetForUpdate(ctx context.Context, id string) (*entity.Suggestion, error)

	// FindActive devuelve la sugerencia activa de (producto, lote) o (nil, nil).
	FindActive(ctx context.Context, productID, batchID string) (*entity.Suggestion, error)

	// FindLatest devuelve la última sugerencia de (producto, lote) en cualquier estado o (nil, nil).
	FindLatest(ctx context.Context, productID, batchID string) (*entity.Suggestion, error)

	// Reassign mueve la sugerencia al nuevo minorista si sigue en expectedVersion:
	// agrega el minorista actual a TriedRetailers, incrementa Attempts y deja status reassigned.
	// Devuelve domain.ErrConcurrentWrite si la versión cambió o el estado ya es terminal.
	Reassign(ctx context.Context, id string, expectedVersion int64, retailerID string, quantity int64, now time.Time) (*entity.Suggestion, error)

	// Transition cambia el estado si la sugerencia sigue en expectedVersion y en uno de from.
	// Devuelve domain.ErrConcurrentWrite en caso contrario.
	Transition(ctx context.Context, id string, expectedVersion int64, from []entity.SuggestionStatus, to entity.SuggestionStatus, now time.Time) (*entity.Suggestion, error)

	// ListActiveByRetailer devuelve las sugerencias activas del minorista con datos del producto.
	ListActiveByRetailer(ctx context.Context, retailerID string) ([]SuggestionView, error)

	// ListByStatus lista sugerencias en el estado indicado, más recientes primero.
	ListByStatus(ctx context.Context, status entity.SuggestionStatus, limit, offset int) ([]SuggestionView, error)

	// ListForSweep devuelve las activas sin actualizar desde staleBefore y las rejected pendientes de fallback.
	ListForSweep(ctx context.Context, staleBefore time.Time, limit int) ([]*entity.Suggestion, error)

	// ExpireActiveByBatches marca expired las sugerencias activas de los lotes indicados.
	ExpireActiveByBatches(ctx context.Context, batchIDs []string, now time.Time) (int64, error)
}
