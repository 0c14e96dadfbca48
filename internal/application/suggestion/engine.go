package suggestion

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/retail-suggestions/internal/domain/entity"
	"github.com/jhoicas/retail-suggestions/internal/domain/inventory"
	"github.com/jhoicas/retail-suggestions/internal/domain/repository"
)

// Ranker ordena minoristas candidatos para un producto (lo implementa *RetailerRanker).
type Ranker interface {
	Rank(ctx context.Context, productID string) ([]inventory.RankedRetailer, error)
}

// Engine orquesta la sugerencia de un lote próximo a vencer para un producto.
// Solo escribe la sugerencia: el stock y las compras se tocan al confirmar.
type Engine struct {
	products    repository.ProductRepository
	batches     repository.InventoryBatchRepository
	retailers   repository.RetailerRepository
	suggestions repository.SuggestionRepository
	ranker      Ranker
	notifier    Notifier
	metrics     Metrics
	cfg         Config
	log         zerolog.Logger
	now         func() time.Time
}

// NewEngine construye el motor. notifier y metrics pueden ser nil.
func NewEngine(
	products repository.ProductRepository,
	batches repository.InventoryBatchRepository,
	retailers repository.RetailerRepository,
	suggestions repository.SuggestionRepository,
	ranker Ranker,
	notifier Notifier,
	metrics Metrics,
	cfg Config,
	log zerolog.Logger,
) *Engine {
	return &Engine{
		products:    products,
		batches:     batches,
		retailers:   retailers,
		suggestions: suggestions,
		ranker:      ranker,
		notifier:    notifier,
		metrics:     metricsOrNoop(metrics),
		cfg:         cfg.withDefaults(),
		log:         log.With().Str("component", "suggestion_engine").Logger(),
		now:         time.Now,
	}
}

// Suggest elige minorista y cantidad para el lote indicado (o el disponible que venza primero)
// y hace upsert idempotente de la sugerencia activa de (producto, lote).
// Los casos "no se puede sugerir" vuelven como Outcome.Reason; el error queda para fallos de E/S.
func (e *Engine) Suggest(ctx context.Context, productID, batchID string) (*Outcome, error) {
	out, err := e.suggest(ctx, productID, batchID)
	if err != nil {
		e.log.Error().Err(err).Str("product_id", productID).Str("batch_id", batchID).Msg("sugerencia fallida")
		return nil, err
	}
	e.metrics.SuggestOutcome(metricLabel(out.Reason))
	if out.Reason != ReasonNone {
		e.log.Info().
			Str("product_id", productID).
			Str("batch_id", out.InventoryBatchID).
			Str("reason", string(out.Reason)).
			Msg("no se generó sugerencia")
	}
	return out, nil
}

func (e *Engine) suggest(ctx context.Context, productID, batchID string) (*Outcome, error) {
	product, err := e.products.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("suggest: get product: %w", err)
	}
	if product == nil {
		return noSuggestion(ReasonProductNotFound, productID, batchID), nil
	}

	batch, err := e.batches.FindAvailable(ctx, productID, batchID)
	if err != nil {
		return nil, fmt.Errorf("suggest: find batch: %w", err)
	}
	if batch == nil {
		return noSuggestion(ReasonInsufficientStock, productID, batchID), nil
	}

	ranked, err := e.ranker.Rank(ctx, productID)
	if err != nil {
		return nil, err
	}
	if len(ranked) == 0 {
		return noSuggestion(ReasonNoPurchaseHistory, productID, batch.ID), nil
	}

	var out *Outcome
	err = retryOnConflict(ctx, e.cfg.WriteRetries, e.metrics, "upsert", func() error {
		active, err := e.suggestions.FindActive(ctx, productID, batch.ID)
		if err != nil {
			return fmt.Errorf("suggest: find active: %w", err)
		}
		candidate, ok := pickCandidate(ranked, active)
		if !ok {
			out = noSuggestion(ReasonNoCandidateRetailer, productID, batch.ID)
			out.Suggestion = active
			return nil
		}

		s, change, err := e.suggestions.Upsert(ctx, repository.UpsertSuggestion{
			ID:               uuid.New().String(),
			ProductID:        productID,
			InventoryBatchID: batch.ID,
			RetailerID:       candidate.RetailerID,
			Quantity:         inventory.SuggestedQuantity(candidate.TotalSold, batch.Quantity),
			Now:              e.now(),
		})
		if err != nil {
			return err
		}
		out = &Outcome{
			ProductID:        productID,
			InventoryBatchID: batch.ID,
			Suggestion:       s,
			Change:           change,
			Candidate:        &candidate,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !out.OK() {
		return out, nil
	}

	e.metrics.SuggestionChanged(out.Change)
	out.Retailer = e.lookupRetailer(ctx, out.Suggestion.RetailerID)

	switch out.Change {
	case entity.ChangeCreated, entity.ChangeReassigned:
		e.log.Info().
			Str("suggestion_id", out.Suggestion.ID).
			Str("product_id", productID).
			Str("batch_id", batch.ID).
			Str("retailer_id", out.Suggestion.RetailerID).
			Int64("quantity", out.Suggestion.Quantity).
			Str("change", string(out.Change)).
			Msg("sugerencia registrada")
		notifyRetailer(ctx, e.notifier, e.log, out.Suggestion, product.Name)
	}
	return out, nil
}

// pickCandidate devuelve el mejor minorista del ranking que aún no rechazó/ignoró esta sugerencia.
func pickCandidate(ranked []inventory.RankedRetailer, active *entity.Suggestion) (inventory.RankedRetailer, bool) {
	for _, r := range ranked {
		if active != nil && active.HasTried(r.RetailerID) {
			continue
		}
		return r, true
	}
	return inventory.RankedRetailer{}, false
}

func (e *Engine) lookupRetailer(ctx context.Context, retailerID string) *entity.Retailer {
	r, err := e.retailers.GetByID(ctx, retailerID)
	if err != nil {
		e.log.Warn().Err(err).Str("retailer_id", retailerID).Msg("no se pudo leer el minorista")
		return nil
	}
	return r
}

const notifyTimeout = 3 * time.Second

// notifyRetailer envía el aviso sin propagar errores: la sugerencia ya quedó escrita.
func notifyRetailer(ctx context.Context, n Notifier, log zerolog.Logger, s *entity.Suggestion, productName string) {
	if n == nil {
		return
	}
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	msg := fmt.Sprintf("Nueva sugerencia %s: %d unidades de %s (lote %s)",
		s.ID, s.Quantity, productName, s.InventoryBatchID)
	if err := n.Notify(nctx, s.RetailerID, msg); err != nil {
		log.Warn().Err(err).
			Str("suggestion_id", s.ID).
			Str("retailer_id", s.RetailerID).
			Msg("notificación al minorista fallida")
	}
}
