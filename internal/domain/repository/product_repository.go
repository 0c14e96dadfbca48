package repository

import (
	"context"

	"github.com/jhoicas/retail-suggestions/internal/domain/entity"
)

// ProductRepository define el puerto de lectura del catálogo (DIP).
// GetByID devuelve (nil, nil) si el producto no existe.
type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Product, error)
}
