package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/retail-suggestions/internal/domain/entity"
	"github.com/jhoicas/retail-suggestions/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

// ProductRepo implementación del puerto ProductRepository sobre PostgreSQL (usable con pool o tx).
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador de lectura de productos. Pasar pool o tx (Querier).
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

// GetByID obtiene un producto por ID con sus lotes (código + vencimiento).
func (r *ProductRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	query := `
		SELECT id, name, category, price, created_at, updated_at
		FROM products WHERE id = $1`
	var p entity.Product
	err := r.q.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.Category, &p.Price, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	rows, err := r.q.Query(ctx, `
		SELECT batch_code, expiry_date
		FROM inventory_batches WHERE product_id = $1
		ORDER BY expiry_date, batch_code`, id)
	if err != nil {
		return nil, fmt.Errorf("get product batches: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var b entity.Batch
		if err := rows.Scan(&b.BatchCode, &b.ExpiryDate); err != nil {
			return nil, fmt.Errorf("scan product batch: %w", err)
		}
		p.Batches = append(p.Batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("product batches rows: %w", err)
	}
	return &p, nil
}
