package suggestion

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/retail-suggestions/internal/domain"
	"github.com/jhoicas/retail-suggestions/internal/domain/entity"
	"github.com/jhoicas/retail-suggestions/internal/domain/repository"
)

// ConfirmResult sugerencia confirmada junto con la compra registrada y el lote descontado.
type ConfirmResult struct {
	Suggestion *entity.Suggestion
	Purchase   *entity.PurchaseRecord
	Batch      *entity.InventoryBatch
}

// RejectResult sugerencia rechazada y el resultado del fallback (nil si falló; lo retoma el barrido).
type RejectResult struct {
	Rejected *entity.Suggestion
	Fallback *FallbackResult
}

// ConfirmationHandler procesa la respuesta del minorista a una sugerencia.
type ConfirmationHandler struct {
	txRunner    TxRunner
	suggestions repository.SuggestionRepository
	products    repository.ProductRepository
	fallback    *FallbackHandler
	metrics     Metrics
	cfg         Config
	log         zerolog.Logger
	now         func() time.Time
}

// NewConfirmationHandler construye el manejador. metrics puede ser nil.
func NewConfirmationHandler(
	txRunner TxRunner,
	suggestions repository.SuggestionRepository,
	products repository.ProductRepository,
	fallback *FallbackHandler,
	metrics Metrics,
	cfg Config,
	log zerolog.Logger,
) *ConfirmationHandler {
	return &ConfirmationHandler{
		txRunner:    txRunner,
		suggestions: suggestions,
		products:    products,
		fallback:    fallback,
		metrics:     metricsOrNoop(metrics),
		cfg:         cfg.withDefaults(),
		log:         log.With().Str("component", "suggestion_confirmation").Logger(),
		now:         time.Now,
	}
}

// loadActive lee la sugerencia y valida que siga activa y pertenezca al actor.
// actorRetailerID vacío = administrador (puede actuar sobre cualquiera).
func (h *ConfirmationHandler) loadActive(ctx context.Context, get func(context.Context, string) (*entity.Suggestion, error), id, actorRetailerID string) (*entity.Suggestion, error) {
	s, err := get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get suggestion: %w", err)
	}
	if s == nil || !s.Status.IsActive() {
		return nil, domain.ErrNotFound
	}
	if actorRetailerID != "" && s.RetailerID != actorRetailerID {
		return nil, domain.ErrForbidden
	}
	return s, nil
}

// Confirm descuenta el stock, registra la compra y marca la sugerencia confirmed en una sola transacción.
// Si el lote ya no tiene la cantidad devuelve domain.ErrInsufficientStock y no toca nada.
func (h *ConfirmationHandler) Confirm(ctx context.Context, id, actorRetailerID string) (*ConfirmResult, error) {
	pre, err := h.loadActive(ctx, h.suggestions.GetByID, id, actorRetailerID)
	if err != nil {
		return nil, err
	}
	product, err := h.products.GetByID(ctx, pre.ProductID)
	if err != nil {
		return nil, fmt.Errorf("confirm: get product: %w", err)
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}

	var res *ConfirmResult
	err = retryOnConflict(ctx, h.cfg.WriteRetries, h.metrics, "confirm", func() error {
		return h.txRunner.Run(ctx, func(
			batchRepo repository.InventoryBatchRepository,
			purchaseRepo repository.PurchaseRepository,
			suggestionRepo repository.SuggestionRepository,
		) error {
			// Bloquea la fila de la sugerencia para serializar con rechazos y reasignaciones.
			s, err := h.loadActive(ctx, suggestionRepo.GetForUpdate, id, actorRetailerID)
			if err != nil {
				return err
			}

			batch, err := batchRepo.DecrementIfSufficient(ctx, s.InventoryBatchID, s.Quantity)
			if err != nil {
				return err
			}

			now := h.now()
			sid := s.ID
			bid := s.InventoryBatchID
			purchase := &entity.PurchaseRecord{
				ID:           uuid.New().String(),
				RetailerID:   s.RetailerID,
				Source:       entity.PurchaseSourceSuggestion,
				SuggestionID: &sid,
				Items: []entity.PurchaseItem{{
					ProductID:        s.ProductID,
					InventoryBatchID: &bid,
					Quantity:         s.Quantity,
					UnitPrice:        product.Price,
					Status:           entity.PurchaseItemFulfilled,
				}},
				CreatedAt: now,
			}
			if err := purchaseRepo.Create(ctx, purchase); err != nil {
				return err
			}

			confirmed, err := suggestionRepo.Transition(ctx, s.ID, s.Version, entity.ActiveSuggestionStatuses, entity.SuggestionConfirmed, now)
			if err != nil {
				return err
			}
			res = &ConfirmResult{Suggestion: confirmed, Purchase: purchase, Batch: batch}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	h.metrics.Confirmed()
	h.log.Info().
		Str("suggestion_id", id).
		Str("retailer_id", res.Suggestion.RetailerID).
		Str("batch_id", res.Suggestion.InventoryBatchID).
		Int64("quantity", res.Suggestion.Quantity).
		Int64("batch_remaining", res.Batch.Quantity).
		Msg("sugerencia confirmada")
	return res, nil
}

// Reject marca la sugerencia rejected y ejecuta el fallback en el acto.
// Si el fallback falla la sugerencia queda rejected y el barrido la retoma.
func (h *ConfirmationHandler) Reject(ctx context.Context, id, actorRetailerID string) (*RejectResult, error) {
	var rejected *entity.Suggestion
	err := retryOnConflict(ctx, h.cfg.WriteRetries, h.metrics, "reject", func() error {
		s, err := h.loadActive(ctx, h.suggestions.GetByID, id, actorRetailerID)
		if err != nil {
			return err
		}
		rejected, err = h.suggestions.Transition(ctx, s.ID, s.Version, entity.ActiveSuggestionStatuses, entity.SuggestionRejected, h.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	h.metrics.Rejected()
	h.log.Info().Str("suggestion_id", id).Str("retailer_id", rejected.RetailerID).Msg("sugerencia rechazada")

	res := &RejectResult{Rejected: rejected}
	if h.fallback == nil {
		return res, nil
	}
	fb, err := h.fallback.Reassign(ctx, id, TriggerRejection)
	if err != nil {
		h.log.Error().Err(err).Str("suggestion_id", id).Msg("fallback tras rechazo fallido; se reintentará en el barrido")
		return res, nil
	}
	res.Fallback = fb
	return res, nil
}
