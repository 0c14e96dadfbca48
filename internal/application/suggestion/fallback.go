package suggestion

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/retail-suggestions/internal/domain"
	"github.com/jhoicas/retail-suggestions/internal/domain/entity"
	"github.com/jhoicas/retail-suggestions/internal/domain/inventory"
	"github.com/jhoicas/retail-suggestions/internal/domain/repository"
)

// Trigger origen de una reasignación.
type Trigger string

const (
	TriggerRejection Trigger = "rejection"
	TriggerStale     Trigger = "stale"
)

// FallbackStatus resultado de un intento de reasignación.
type FallbackStatus string

const (
	FallbackReassigned FallbackStatus = "reassigned"
	FallbackExhausted  FallbackStatus = "exhausted"
	FallbackSkipped    FallbackStatus = "skipped"
)

// Causas de expiración registradas en log y métricas.
const (
	ExpireCauseExhausted    = "exhausted"
	ExpireCauseInconsistent = "inconsistent"
	ExpireCauseBatchGone    = "batch_unavailable"
	ExpireCauseSuperseded   = "superseded"
	ExpireCauseBatchExpired = "batch_expired"
)

// FallbackResult estado final de la sugerencia tras el intento.
type FallbackResult struct {
	Status     FallbackStatus
	Cause      string
	Suggestion *entity.Suggestion
}

// reassignable estados desde los que se puede mover una sugerencia a otro minorista.
var reassignable = []entity.SuggestionStatus{
	entity.SuggestionPending, entity.SuggestionReassigned, entity.SuggestionRejected,
}

// FallbackHandler reasigna sugerencias rechazadas o sin respuesta al siguiente mejor minorista.
type FallbackHandler struct {
	products    repository.ProductRepository
	batches     repository.InventoryBatchRepository
	suggestions repository.SuggestionRepository
	ranker      Ranker
	notifier    Notifier
	metrics     Metrics
	cfg         Config
	log         zerolog.Logger
	now         func() time.Time
}

// NewFallbackHandler construye el manejador. notifier y metrics pueden ser nil.
func NewFallbackHandler(
	products repository.ProductRepository,
	batches repository.InventoryBatchRepository,
	suggestions repository.SuggestionRepository,
	ranker Ranker,
	notifier Notifier,
	metrics Metrics,
	cfg Config,
	log zerolog.Logger,
) *FallbackHandler {
	return &FallbackHandler{
		products:    products,
		batches:     batches,
		suggestions: suggestions,
		ranker:      ranker,
		notifier:    notifier,
		metrics:     metricsOrNoop(metrics),
		cfg:         cfg.withDefaults(),
		log:         log.With().Str("component", "suggestion_fallback").Logger(),
		now:         time.Now,
	}
}

// Reassign mueve la sugerencia al mejor minorista que aún no la recibió, o la marca expired
// si no queda ninguno. Cada reintento por conflicto relee la sugerencia.
func (h *FallbackHandler) Reassign(ctx context.Context, suggestionID string, trigger Trigger) (*FallbackResult, error) {
	var res *FallbackResult
	err := retryOnConflict(ctx, h.cfg.WriteRetries, h.metrics, "reassign", func() error {
		s, err := h.suggestions.GetByID(ctx, suggestionID)
		if err != nil {
			return fmt.Errorf("reassign: get suggestion: %w", err)
		}
		if s == nil {
			return domain.ErrNotFound
		}
		res, err = h.reassign(ctx, s, trigger)
		return err
	})
	if err != nil {
		return nil, err
	}

	switch res.Status {
	case FallbackReassigned:
		h.metrics.Reassigned(string(trigger))
	case FallbackExhausted:
		h.metrics.Expired(res.Cause)
	}
	return res, nil
}

func (h *FallbackHandler) reassign(ctx context.Context, s *entity.Suggestion, trigger Trigger) (*FallbackResult, error) {
	now := h.now()
	switch {
	case s.Status == entity.SuggestionRejected:
	case s.Status.IsActive():
		if trigger == TriggerStale && !s.IsStale(now, h.cfg.StaleAfter) {
			return &FallbackResult{Status: FallbackSkipped, Suggestion: s}, nil
		}
	default:
		return &FallbackResult{Status: FallbackSkipped, Suggestion: s}, nil
	}

	product, err := h.products.GetByID(ctx, s.ProductID)
	if err != nil {
		return nil, fmt.Errorf("reassign: get product: %w", err)
	}
	if product == nil {
		return h.expire(ctx, s, ExpireCauseInconsistent, now)
	}

	batch, err := h.batches.GetByID(ctx, s.InventoryBatchID)
	if err != nil {
		return nil, fmt.Errorf("reassign: get batch: %w", err)
	}
	if batch == nil || !batch.IsAvailable() {
		return h.expire(ctx, s, ExpireCauseBatchGone, now)
	}

	ranked, err := h.ranker.Rank(ctx, s.ProductID)
	if err != nil {
		return nil, err
	}
	next, ok := nextCandidate(ranked, s)
	if !ok {
		return h.expire(ctx, s, ExpireCauseExhausted, now)
	}

	qty := inventory.SuggestedQuantity(next.TotalSold, batch.Quantity)
	updated, err := h.suggestions.Reassign(ctx, s.ID, s.Version, next.RetailerID, qty, now)
	if errors.Is(err, domain.ErrDuplicate) {
		// Otra sugerencia activa ya cubre el lote: esta queda superada.
		return h.expire(ctx, s, ExpireCauseSuperseded, now)
	}
	if err != nil {
		return nil, err
	}

	h.log.Info().
		Str("suggestion_id", updated.ID).
		Str("from_retailer", s.RetailerID).
		Str("to_retailer", updated.RetailerID).
		Int("attempts", updated.Attempts).
		Str("trigger", string(trigger)).
		Msg("sugerencia reasignada")
	notifyRetailer(ctx, h.notifier, h.log, updated, product.Name)
	return &FallbackResult{Status: FallbackReassigned, Suggestion: updated}, nil
}

// nextCandidate primer minorista del ranking distinto del actual y fuera del historial.
func nextCandidate(ranked []inventory.RankedRetailer, s *entity.Suggestion) (inventory.RankedRetailer, bool) {
	for _, r := range ranked {
		if r.RetailerID == s.RetailerID || s.HasTried(r.RetailerID) {
			continue
		}
		return r, true
	}
	return inventory.RankedRetailer{}, false
}

func (h *FallbackHandler) expire(ctx context.Context, s *entity.Suggestion, cause string, now time.Time) (*FallbackResult, error) {
	updated, err := h.suggestions.Transition(ctx, s.ID, s.Version, reassignable, entity.SuggestionExpired, now)
	if err != nil {
		return nil, err
	}
	ev := h.log.Info()
	if cause == ExpireCauseInconsistent {
		ev = h.log.Warn()
	}
	ev.Str("suggestion_id", s.ID).
		Str("product_id", s.ProductID).
		Str("batch_id", s.InventoryBatchID).
		Str("cause", cause).
		Msg("sugerencia expirada")
	return &FallbackResult{Status: FallbackExhausted, Cause: cause, Suggestion: updated}, nil
}

// SweepReport resumen de un barrido.
type SweepReport struct {
	Scanned    int `json:"scanned"`
	Reassigned int `json:"reassigned"`
	Expired    int `json:"expired"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}

// Sweep reprocesa las sugerencias activas sin respuesta y las rechazadas cuyo fallback no terminó.
// Un fallo en una sugerencia se registra y no detiene el barrido.
func (h *FallbackHandler) Sweep(ctx context.Context) (*SweepReport, error) {
	start := time.Now()
	defer func() { h.metrics.SweepDuration(time.Since(start)) }()

	staleBefore := h.now().Add(-h.cfg.StaleAfter)
	items, err := h.suggestions.ListForSweep(ctx, staleBefore, h.cfg.SweepBatch)
	if err != nil {
		return nil, fmt.Errorf("sweep: list: %w", err)
	}

	var reassigned, expired, skipped, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.cfg.Workers)
	for _, s := range items {
		s := s
		g.Go(func() error {
			trigger := TriggerStale
			if s.Status == entity.SuggestionRejected {
				trigger = TriggerRejection
			}
			res, err := h.Reassign(gctx, s.ID, trigger)
			if err != nil {
				failed.Add(1)
				h.log.Error().Err(err).Str("suggestion_id", s.ID).Msg("barrido: reasignación fallida")
				return nil
			}
			switch res.Status {
			case FallbackReassigned:
				reassigned.Add(1)
			case FallbackExhausted:
				expired.Add(1)
			default:
				skipped.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	report := &SweepReport{
		Scanned:    len(items),
		Reassigned: int(reassigned.Load()),
		Expired:    int(expired.Load()),
		Skipped:    int(skipped.Load()),
		Failed:     int(failed.Load()),
	}
	h.log.Info().
		Int("scanned", report.Scanned).
		Int("reassigned", report.Reassigned).
		Int("expired", report.Expired).
		Int("failed", report.Failed).
		Dur("elapsed", time.Since(start)).
		Msg("barrido de sugerencias terminado")
	return report, nil
}
