package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/retail-suggestions/internal/domain"
	"github.com/jhoicas/retail-suggestions/internal/domain/entity"
	"github.com/jhoicas/retail-suggestions/internal/domain/repository"
)

var _ repository.InventoryBatchRepository = (*InventoryBatchRepo)(nil)

const batchColumns = `id, product_id, batch_code, quantity, expiry_date, status, assigned_retailer_id, created_at, updated_at`

// InventoryBatchRepo lotes de inventario sobre PostgreSQL (usable con pool o tx).
type InventoryBatchRepo struct {
	q Querier
}

// NewInventoryBatchRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInventoryBatchRepository(q Querier) *InventoryBatchRepo {
	return &InventoryBatchRepo{q: q}
}

func scanBatch(row pgx.Row) (*entity.InventoryBatch, error) {
	var b entity.InventoryBatch
	err := row.Scan(&b.ID, &b.ProductID, &b.BatchCode, &b.Quantity, &b.ExpiryDate,
		&b.Status, &b.AssignedRetailerID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// GetByID obtiene un lote por ID.
func (r *InventoryBatchRepo) GetByID(ctx context.Context, id string) (*entity.InventoryBatch, error) {
	b, err := scanBatch(r.q.QueryRow(ctx, `SELECT `+batchColumns+` FROM inventory_batches WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get batch: %w", err)
	}
	return b, nil
}

// FindAvailable lote en inventario con unidades; sin batchID elige el de vencimiento más próximo.
func (r *InventoryBatchRepo) FindAvailable(ctx context.Context, productID, batchID string) (*entity.InventoryBatch, error) {
	query := `
		SELECT ` + batchColumns + `
		FROM inventory_batches
		WHERE product_id = $1 AND status = 'in_inventory' AND quantity > 0
		  AND ($2::text = '' OR id = $2::text)
		ORDER BY expiry_date, id
		LIMIT 1`
	b, err := scanBatch(r.q.QueryRow(ctx, query, productID, batchID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find available batch: %w", err)
	}
	return b, nil
}

// ListExpiring lotes disponibles con vencimiento en [from, to], el más próximo primero.
func (r *InventoryBatchRepo) ListExpiring(ctx context.Context, from, to time.Time) ([]*entity.InventoryBatch, error) {
	query := `
		SELECT ` + batchColumns + `
		FROM inventory_batches
		WHERE status = 'in_inventory' AND quantity > 0 AND expiry_date BETWEEN $1 AND $2
		ORDER BY expiry_date, id`
	rows, err := r.q.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("list expiring batches: %w", err)
	}
	defer rows.Close()

	var out []*entity.InventoryBatch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ExpirePast marca expired los lotes en inventario cuyo vencimiento ya pasó. Solo avanza desde in_inventory.
func (r *InventoryBatchRepo) ExpirePast(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := r.q.Query(ctx, `
		UPDATE inventory_batches SET status = 'expired', updated_at = $1
		WHERE status = 'in_inventory' AND expiry_date < $1
		RETURNING id`, now)
	if err != nil {
		return nil, fmt.Errorf("expire batches: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("expire batches: %w", err)
	}
	return ids, nil
}

// DecrementIfSufficient descuenta qty en una sola sentencia condicional; al llegar a cero el lote pasa a sold.
func (r *InventoryBatchRepo) DecrementIfSufficient(ctx context.Context, batchID string, qty int64) (*entity.InventoryBatch, error) {
	if qty <= 0 {
		return nil, domain.ErrInvalidInput
	}
	query := `
		UPDATE inventory_batches
		SET quantity = quantity - $2,
		    status = CASE WHEN quantity - $2 = 0 THEN 'sold' ELSE status END,
		    updated_at = now()
		WHERE id = $1 AND status = 'in_inventory' AND quantity >= $2
		RETURNING ` + batchColumns
	b, err := scanBatch(r.q.QueryRow(ctx, query, batchID, qty))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrInsufficientStock
		}
		return nil, fmt.Errorf("decrement batch: %w", mapWriteErr(err))
	}
	return b, nil
}
