package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/retail-suggestions/internal/application/suggestion"
	"github.com/jhoicas/retail-suggestions/internal/domain/repository"
)

var _ suggestion.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
// Los conflictos de serialización se devuelven como domain.ErrConcurrentWrite para que el caso de uso reintente.
func (r *TxRunner) Run(ctx context.Context, fn func(
	batchRepo repository.InventoryBatchRepository,
	purchaseRepo repository.PurchaseRepository,
	suggestionRepo repository.SuggestionRepository,
) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batchRepo := NewInventoryBatchRepository(tx)
	purchaseRepo := NewPurchaseRepository(tx)
	suggestionRepo := NewSuggestionRepository(tx)

	if err := fn(batchRepo, purchaseRepo, suggestionRepo); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		if isWriteConflict(err) {
			return mapWriteErr(err)
		}
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
