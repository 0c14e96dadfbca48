package suggestion

import (
	"context"
	"errors"
	"time"

	"github.com/jhoicas/retail-suggestions/internal/domain"
	"github.com/jhoicas/retail-suggestions/internal/domain/inventory"
)

// Config parámetros del motor de sugerencias.
type Config struct {
	MaxCandidates int           // tamaño máximo del ranking
	WriteRetries  int           // reintentos ante ErrConcurrentWrite
	StaleAfter    time.Duration // ventana sin respuesta antes de reasignar
	ExpiryHorizon time.Duration // lotes que vencen dentro de este horizonte califican
	Workers       int           // paralelismo de barridos por (producto, lote)
	SweepBatch    int           // máximo de sugerencias leídas por barrido
}

// DefaultConfig valores por defecto: top 5, 3 reintentos, 24h, 10 días.
func DefaultConfig() Config {
	return Config{
		MaxCandidates: inventory.DefaultMaxCandidates,
		WriteRetries:  3,
		StaleAfter:    24 * time.Hour,
		ExpiryHorizon: 10 * 24 * time.Hour,
		Workers:       4,
		SweepBatch:    500,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxCandidates <= 0 {
		c.MaxCandidates = d.MaxCandidates
	}
	if c.WriteRetries <= 0 {
		c.WriteRetries = d.WriteRetries
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = d.StaleAfter
	}
	if c.ExpiryHorizon <= 0 {
		c.ExpiryHorizon = d.ExpiryHorizon
	}
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	if c.SweepBatch <= 0 {
		c.SweepBatch = d.SweepBatch
	}
	return c
}

// retryOnConflict repite fn mientras devuelva domain.ErrConcurrentWrite, hasta attempts veces.
// fn debe releer el estado en cada intento.
func retryOnConflict(ctx context.Context, attempts int, metrics Metrics, op string, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = fn()
		if !errors.Is(err, domain.ErrConcurrentWrite) {
			return err
		}
		metrics.WriteConflict(op)
	}
	return err
}
