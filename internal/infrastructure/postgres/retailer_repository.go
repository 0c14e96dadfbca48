package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/retail-suggestions/internal/domain/entity"
	"github.com/jhoicas/retail-suggestions/internal/domain/repository"
)

var _ repository.RetailerRepository = (*RetailerRepo)(nil)

// RetailerRepo lectura de minoristas.
type RetailerRepo struct {
	q Querier
}

// NewRetailerRepository construye el adaptador. Pasar pool o tx (Querier).
func NewRetailerRepository(q Querier) *RetailerRepo {
	return &RetailerRepo{q: q}
}

// GetByID obtiene un minorista por ID.
func (r *RetailerRepo) GetByID(ctx context.Context, id string) (*entity.Retailer, error) {
	query := `
		SELECT id, name, location, email, active, created_at
		FROM retailers WHERE id = $1`
	var m entity.Retailer
	err := r.q.QueryRow(ctx, query, id).Scan(&m.ID, &m.Name, &m.Location, &m.Email, &m.Active, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get retailer: %w", err)
	}
	return &m, nil
}
