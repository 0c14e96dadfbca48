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

var _ repository.SuggestionRepository = (*SuggestionRepo)(nil)

const suggestionColumns = `id, product_id, retailer_id, inventory_batch_id, quantity, status, attempts, tried_retailers, version, created_at, updated_at`

// activePredicate debe coincidir con el predicado de suggestions_one_active_idx.
const activePredicate = `status IN ('pending', 'reassigned')`

// SuggestionRepo almacén de sugerencias. Cada escritura es una única sentencia condicional.
type SuggestionRepo struct {
	q Querier
}

// NewSuggestionRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSuggestionRepository(q Querier) *SuggestionRepo {
	return &SuggestionRepo{q: q}
}

func scanSuggestion(row pgx.Row, extra ...any) (*entity.Suggestion, error) {
	var s entity.Suggestion
	var status string
	dest := []any{&s.ID, &s.ProductID, &s.RetailerID, &s.InventoryBatchID, &s.Quantity, &status,
		&s.Attempts, &s.TriedRetailers, &s.Version, &s.CreatedAt, &s.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	s.Status = entity.SuggestionStatus(status)
	if s.TriedRetailers == nil {
		s.TriedRetailers = []string{}
	}
	return &s, nil
}

// Upsert crea, reasigna, actualiza cantidad o no hace nada, todo en un INSERT ... ON CONFLICT.
// Las expresiones del SET leen la fila previa, por lo que el orden de las columnas no importa.
func (r *SuggestionRepo) Upsert(ctx context.Context, in repository.UpsertSuggestion) (*entity.Suggestion, entity.SuggestionChange, error) {
	query := `
		INSERT INTO suggestions AS s (
			id, product_id, retailer_id, inventory_batch_id, quantity, status,
			attempts, tried_retailers, version, last_change, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 'pending', 1, '{}', 1, 'created', $6, $6)
		ON CONFLICT (product_id, inventory_batch_id) WHERE ` + activePredicate + `
		DO UPDATE SET
			tried_retailers = CASE
				WHEN s.retailer_id <> EXCLUDED.retailer_id AND NOT (s.retailer_id = ANY (s.tried_retailers))
				THEN array_append(s.tried_retailers, s.retailer_id)
				ELSE s.tried_retailers END,
			status = CASE WHEN s.retailer_id <> EXCLUDED.retailer_id THEN 'reassigned' ELSE s.status END,
			attempts = CASE WHEN s.retailer_id <> EXCLUDED.retailer_id THEN s.attempts + 1 ELSE s.attempts END,
			version = CASE
				WHEN s.retailer_id <> EXCLUDED.retailer_id OR s.quantity <> EXCLUDED.quantity THEN s.version + 1
				ELSE s.version END,
			last_change = CASE
				WHEN s.retailer_id <> EXCLUDED.retailer_id THEN 'reassigned'
				WHEN s.quantity <> EXCLUDED.quantity THEN 'quantity_updated'
				ELSE 'unchanged' END,
			updated_at = CASE
				WHEN s.retailer_id <> EXCLUDED.retailer_id OR s.quantity <> EXCLUDED.quantity THEN EXCLUDED.updated_at
				ELSE s.updated_at END,
			quantity = EXCLUDED.quantity,
			retailer_id = EXCLUDED.retailer_id
		RETURNING ` + suggestionColumns + `, last_change`

	var change string
	s, err := scanSuggestion(r.q.QueryRow(ctx, query,
		in.ID, in.ProductID, in.RetailerID, in.InventoryBatchID, in.Quantity, in.Now), &change)
	if err != nil {
		return nil, "", fmt.Errorf("upsert suggestion: %w", mapWriteErr(err))
	}
	return s, entity.SuggestionChange(change), nil
}

func (r *SuggestionRepo) getOne(ctx context.Context, query string, args ...any) (*entity.Suggestion, error) {
	s, err := scanSuggestion(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// GetByID obtiene una sugerencia por ID.
func (r *SuggestionRepo) GetByID(ctx context.Context, id string) (*entity.Suggestion, error) {
	s, err := r.getOne(ctx, `SELECT `+suggestionColumns+` FROM suggestions WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get suggestion: %w", err)
	}
	return s, nil
}

// GetForUpdate obtiene la sugerencia y bloquea la fila (SELECT FOR UPDATE).
func (r *SuggestionRepo) GetForUpdate(ctx context.Context, id string) (*entity.Suggestion, error) {
	s, err := r.getOne(ctx, `SELECT `+suggestionColumns+` FROM suggestions WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		return nil, fmt.Errorf("get suggestion for update: %w", mapWriteErr(err))
	}
	return s, nil
}

// FindActive sugerencia activa de (producto, lote).
func (r *SuggestionRepo) FindActive(ctx context.Context, productID, batchID string) (*entity.Suggestion, error) {
	s, err := r.getOne(ctx, `
		SELECT `+suggestionColumns+` FROM suggestions
		WHERE product_id = $1 AND inventory_batch_id = $2 AND `+activePredicate, productID, batchID)
	if err != nil {
		return nil, fmt.Errorf("find active suggestion: %w", err)
	}
	return s, nil
}

// FindLatest última sugerencia de (producto, lote), activa o cerrada.
func (r *SuggestionRepo) FindLatest(ctx context.Context, productID, batchID string) (*entity.Suggestion, error) {
	s, err := r.getOne(ctx, `
		SELECT `+suggestionColumns+` FROM suggestions
		WHERE product_id = $1 AND inventory_batch_id = $2
		ORDER BY updated_at DESC, created_at DESC
		LIMIT 1`, productID, batchID)
	if err != nil {
		return nil, fmt.Errorf("find latest suggestion: %w", err)
	}
	return s, nil
}

// Reassign CAS por versión: mueve la sugerencia al nuevo minorista y archiva el actual en tried_retailers.
func (r *SuggestionRepo) Reassign(ctx context.Context, id string, expectedVersion int64, retailerID string, quantity int64, now time.Time) (*entity.Suggestion, error) {
	query := `
		UPDATE suggestions SET
			tried_retailers = CASE
				WHEN retailer_id = ANY (tried_retailers) THEN tried_retailers
				ELSE array_append(tried_retailers, retailer_id) END,
			retailer_id = $3,
			quantity = $4,
			status = 'reassigned',
			attempts = attempts + 1,
			version = version + 1,
			last_change = 'reassigned',
			updated_at = $5
		WHERE id = $1 AND version = $2 AND status IN ('pending', 'reassigned', 'rejected')
		RETURNING ` + suggestionColumns
	s, err := scanSuggestion(r.q.QueryRow(ctx, query, id, expectedVersion, retailerID, quantity, now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrConcurrentWrite
		}
		return nil, mapWriteErr(err)
	}
	return s, nil
}

// Transition CAS por versión y estado de origen.
func (r *SuggestionRepo) Transition(ctx context.Context, id string, expectedVersion int64, from []entity.SuggestionStatus, to entity.SuggestionStatus, now time.Time) (*entity.Suggestion, error) {
	fromText := make([]string, len(from))
	for i, st := range from {
		fromText[i] = string(st)
	}
	query := `
		UPDATE suggestions SET status = $4, version = version + 1, updated_at = $5
		WHERE id = $1 AND version = $2 AND status = ANY ($3)
		RETURNING ` + suggestionColumns
	s, err := scanSuggestion(r.q.QueryRow(ctx, query, id, expectedVersion, fromText, string(to), now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrConcurrentWrite
		}
		return nil, mapWriteErr(err)
	}
	return s, nil
}

const viewQuery = `
	SELECT s.id, s.product_id, s.retailer_id, s.inventory_batch_id, s.quantity, s.status, s.attempts,
	       s.tried_retailers, s.version, s.created_at, s.updated_at,
	       COALESCE(p.name, ''), COALESCE(p.category, ''), COALESCE(b.batch_code, ''),
	       COALESCE(b.expiry_date, 'epoch'::timestamptz)
	FROM suggestions s
	LEFT JOIN products p ON p.id = s.product_id
	LEFT JOIN inventory_batches b ON b.id = s.inventory_batch_id`

func (r *SuggestionRepo) listViews(ctx context.Context, query string, args ...any) ([]repository.SuggestionView, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []repository.SuggestionView{}
	for rows.Next() {
		var v repository.SuggestionView
		s, err := scanSuggestion(rows, &v.ProductName, &v.ProductCategory, &v.BatchCode, &v.ExpiryDate)
		if err != nil {
			return nil, err
		}
		v.Suggestion = *s
		out = append(out, v)
	}
	return out, rows.Err()
}

// ListActiveByRetailer sugerencias activas del minorista con datos del producto, las que vencen antes primero.
func (r *SuggestionRepo) ListActiveByRetailer(ctx context.Context, retailerID string) ([]repository.SuggestionView, error) {
	out, err := r.listViews(ctx, viewQuery+`
		WHERE s.retailer_id = $1 AND s.status IN ('pending', 'reassigned')
		ORDER BY b.expiry_date NULLS LAST, s.id`, retailerID)
	if err != nil {
		return nil, fmt.Errorf("list active suggestions: %w", err)
	}
	return out, nil
}

// ListByStatus lista por estado, más recientes primero.
func (r *SuggestionRepo) ListByStatus(ctx context.Context, status entity.SuggestionStatus, limit, offset int) ([]repository.SuggestionView, error) {
	out, err := r.listViews(ctx, viewQuery+`
		WHERE s.status = $1
		ORDER BY s.updated_at DESC, s.id
		LIMIT $2 OFFSET $3`, string(status), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list suggestions by status: %w", err)
	}
	return out, nil
}

// ListForSweep activas sin actualizar desde staleBefore y rechazadas cuyo fallback no terminó.
func (r *SuggestionRepo) ListForSweep(ctx context.Context, staleBefore time.Time, limit int) ([]*entity.Suggestion, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+suggestionColumns+` FROM suggestions
		WHERE (`+activePredicate+` AND updated_at < $1) OR status = 'rejected'
		ORDER BY updated_at, id
		LIMIT $2`, staleBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("list suggestions for sweep: %w", err)
	}
	defer rows.Close()

	var out []*entity.Suggestion
	for rows.Next() {
		s, err := scanSuggestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan suggestion: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ExpireActiveByBatches marca expired las activas de los lotes indicados.
func (r *SuggestionRepo) ExpireActiveByBatches(ctx context.Context, batchIDs []string, now time.Time) (int64, error) {
	if len(batchIDs) == 0 {
		return 0, nil
	}
	tag, err := r.q.Exec(ctx, `
		UPDATE suggestions SET status = 'expired', version = version + 1, updated_at = $2
		WHERE inventory_batch_id = ANY ($1) AND `+activePredicate, batchIDs, now)
	if err != nil {
		return 0, fmt.Errorf("expire suggestions by batch: %w", mapWriteErr(err))
	}
	return tag.RowsAffected(), nil
}
