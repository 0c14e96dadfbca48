package repository

import (
	"context"

	"github.com/jhoicas/retail-suggestions/internal/domain/entity"
)

// RetailerRepository define el puerto de lectura de minoristas.
// GetByID devuelve (nil, nil) si el minorista no existe.
type RetailerRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Retailer, error)
}
