package suggestion

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/retail-suggestions/internal/domain/entity"
	"github.com/jhoicas/retail-suggestions/internal/domain/repository"
)

// TickReport resumen de una ejecución periódica.
type TickReport struct {
	ExpiredBatches     int        `json:"expired_batches"`
	ExpiredSuggestions int64      `json:"expired_suggestions"`
	Outcomes           []*Outcome `json:"-"`
	Suggested          int        `json:"suggested"`
	Skipped            int        `json:"skipped"`
	Failed             int        `json:"failed"`
}

// ExpiringUseCase recorre los lotes próximos a vencer y genera sugerencias para ellos.
type ExpiringUseCase struct {
	engine      *Engine
	batches     repository.InventoryBatchRepository
	suggestions repository.SuggestionRepository
	metrics     Metrics
	cfg         Config
	log         zerolog.Logger
	now         func() time.Time
}

// NewExpiringUseCase construye el caso de uso.
func NewExpiringUseCase(
	engine *Engine,
	batches repository.InventoryBatchRepository,
	suggestions repository.SuggestionRepository,
	metrics Metrics,
	cfg Config,
	log zerolog.Logger,
) *ExpiringUseCase {
	return &ExpiringUseCase{
		engine:      engine,
		batches:     batches,
		suggestions: suggestions,
		metrics:     metricsOrNoop(metrics),
		cfg:         cfg.withDefaults(),
		log:         log.With().Str("component", "suggestion_expiring").Logger(),
		now:         time.Now,
	}
}

// SuggestExpiring ejecuta Suggest para cada lote que vence dentro del horizonte.
// Con skipActive se saltan los lotes con sugerencia activa (ReasonAlreadyActive) o cuya última
// sugerencia quedó expired o rejected (ReasonPreviouslyClosed).
// Los resultados conservan el orden de los lotes; un lote que falla vuelve con ReasonFailed
// y no detiene a los demás.
func (uc *ExpiringUseCase) SuggestExpiring(ctx context.Context, skipActive bool) ([]*Outcome, error) {
	now := uc.now()
	batches, err := uc.batches.ListExpiring(ctx, now, now.Add(uc.cfg.ExpiryHorizon))
	if err != nil {
		return nil, fmt.Errorf("expiring: list batches: %w", err)
	}

	outcomes := make([]*Outcome, len(batches))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.cfg.Workers)
	for i, b := range batches {
		i, b := i, b
		g.Go(func() error {
			if skipActive {
				if out, done := uc.skipHandled(gctx, b.ProductID, b.ID); done {
					outcomes[i] = out
					return nil
				}
			}
			out, err := uc.engine.Suggest(gctx, b.ProductID, b.ID)
			if err != nil {
				out = failedOutcome(err, b.ProductID, b.ID)
			}
			outcomes[i] = out
			return nil
		})
	}
	_ = g.Wait()
	return outcomes, nil
}

// skipHandled decide si el tick debe saltar el lote según su última sugerencia:
// activa (ya hay oferta en curso) o expired/rejected (los candidatos ya se agotaron o el
// fallback queda en manos del barrido).
func (uc *ExpiringUseCase) skipHandled(ctx context.Context, productID, batchID string) (*Outcome, bool) {
	latest, err := uc.suggestions.FindLatest(ctx, productID, batchID)
	if err != nil {
		uc.log.Error().Err(err).Str("batch_id", batchID).Msg("no se pudo consultar la última sugerencia")
		return failedOutcome(err, productID, batchID), true
	}
	if latest == nil {
		return nil, false
	}
	var reason Reason
	switch {
	case latest.Status.IsActive():
		reason = ReasonAlreadyActive
	case latest.Status == entity.SuggestionExpired, latest.Status == entity.SuggestionRejected:
		reason = ReasonPreviouslyClosed
	default:
		return nil, false
	}
	out := noSuggestion(reason, productID, batchID)
	out.Suggestion = latest
	return out, true
}

// ExpireBatches marca expired los lotes vencidos y las sugerencias activas que los referencian.
func (uc *ExpiringUseCase) ExpireBatches(ctx context.Context) (int, int64, error) {
	now := uc.now()
	ids, err := uc.batches.ExpirePast(ctx, now)
	if err != nil {
		return 0, 0, fmt.Errorf("expire batches: %w", err)
	}
	if len(ids) == 0 {
		return 0, 0, nil
	}
	n, err := uc.suggestions.ExpireActiveByBatches(ctx, ids, now)
	if err != nil {
		return len(ids), 0, fmt.Errorf("expire suggestions: %w", err)
	}
	for i := int64(0); i < n; i++ {
		uc.metrics.Expired(ExpireCauseBatchExpired)
	}
	uc.log.Info().Int("batches", len(ids)).Int64("suggestions", n).Msg("lotes vencidos marcados como expired")
	return len(ids), n, nil
}

// RunTick ejecución periódica: vence lotes pasados y sugiere los próximos a vencer que no tengan
// sugerencia activa ni una cerrada sin confirmar.
func (uc *ExpiringUseCase) RunTick(ctx context.Context) (*TickReport, error) {
	batches, suggestions, err := uc.ExpireBatches(ctx)
	if err != nil {
		return nil, err
	}
	outcomes, err := uc.SuggestExpiring(ctx, true)
	if err != nil {
		return nil, err
	}

	report := &TickReport{ExpiredBatches: batches, ExpiredSuggestions: suggestions, Outcomes: outcomes}
	for _, o := range outcomes {
		switch {
		case o.OK():
			report.Suggested++
		case o.Reason == ReasonFailed:
			report.Failed++
		default:
			report.Skipped++
		}
	}
	uc.log.Info().
		Int("expired_batches", report.ExpiredBatches).
		Int("suggested", report.Suggested).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Msg("tick de sugerencias terminado")
	return report, nil
}
