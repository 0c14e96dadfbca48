package suggestion

import (
	"context"

	"github.com/jhoicas/retail-suggestions/internal/domain"
	"github.com/jhoicas/retail-suggestions/internal/domain/entity"
	"github.com/jhoicas/retail-suggestions/internal/domain/inventory"
	"github.com/jhoicas/retail-suggestions/internal/domain/repository"
)

const maxPageSize = 200

// QueryUseCase lecturas para minoristas y administración.
type QueryUseCase struct {
	suggestions repository.SuggestionRepository
	products    repository.ProductRepository
	retailers   repository.RetailerRepository
	ranker      Ranker
}

// NewQueryUseCase construye el caso de uso de consultas.
func NewQueryUseCase(
	suggestions repository.SuggestionRepository,
	products repository.ProductRepository,
	retailers repository.RetailerRepository,
	ranker Ranker,
) *QueryUseCase {
	return &QueryUseCase{suggestions: suggestions, products: products, retailers: retailers, ranker: ranker}
}

// ListPending devuelve las sugerencias activas del minorista con nombre y categoría del producto.
func (uc *QueryUseCase) ListPending(ctx context.Context, retailerID string) ([]repository.SuggestionView, error) {
	if retailerID == "" {
		return nil, domain.ErrInvalidInput
	}
	r, err := uc.retailers.GetByID(ctx, retailerID)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, domain.ErrNotFound
	}
	list, err := uc.suggestions.ListActiveByRetailer(ctx, retailerID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []repository.SuggestionView{}
	}
	return list, nil
}

// ListExpired sugerencias que agotaron candidatos o cuyo lote se perdió, para revisión manual.
func (uc *QueryUseCase) ListExpired(ctx context.Context, limit, offset int) ([]repository.SuggestionView, error) {
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	list, err := uc.suggestions.ListByStatus(ctx, entity.SuggestionExpired, limit, offset)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []repository.SuggestionView{}
	}
	return list, nil
}

// Ranking devuelve el ranking de minoristas del producto tal como lo usaría el motor.
func (uc *QueryUseCase) Ranking(ctx context.Context, productID string) ([]inventory.RankedRetailer, error) {
	p, err := uc.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	return uc.ranker.Rank(ctx, productID)
}

// RetailerActive indica si el minorista existe y está activo.
func (uc *QueryUseCase) RetailerActive(ctx context.Context, retailerID string) (bool, error) {
	r, err := uc.retailers.GetByID(ctx, retailerID)
	if err != nil {
		return false, err
	}
	return r != nil && r.Active, nil
}
