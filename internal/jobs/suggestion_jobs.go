package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/retail-suggestions/internal/application/suggestion"
)

// Nombres de los jobs (también etiqueta de métricas y llave del candado).
const (
	JobExpiringTick = "expiring_tick"
	JobStaleSweep   = "stale_sweep"
)

// ExpiringTickJob vence lotes pasados y sugiere para los que vencen dentro del horizonte.
func ExpiringTickJob(uc *suggestion.ExpiringUseCase, interval time.Duration, log zerolog.Logger) Job {
	return Job{
		Name:     JobExpiringTick,
		Interval: interval,
		Timeout:  30 * time.Minute,
		Run: func(ctx context.Context) error {
			report, err := uc.RunTick(ctx)
			if err != nil {
				return err
			}
			log.Info().
				Int("expired_batches", report.ExpiredBatches).
				Int64("expired_suggestions", report.ExpiredSuggestions).
				Int("suggested", report.Suggested).
				Int("skipped", report.Skipped).
				Int("failed", report.Failed).
				Msg("tick de lotes por vencer")
			return nil
		},
	}
}

// StaleSweepJob reasigna sugerencias sin respuesta y rechazos pendientes de fallback.
func StaleSweepJob(h *suggestion.FallbackHandler, interval time.Duration, log zerolog.Logger) Job {
	return Job{
		Name:     JobStaleSweep,
		Interval: interval,
		Timeout:  15 * time.Minute,
		Run: func(ctx context.Context) error {
			report, err := h.Sweep(ctx)
			if err != nil {
				return err
			}
			if report.Scanned > 0 {
				log.Info().
					Int("scanned", report.Scanned).
					Int("reassigned", report.Reassigned).
					Int("expired", report.Expired).
					Int("failed", report.Failed).
					Msg("barrido de sugerencias sin respuesta")
			}
			return nil
		},
	}
}
