package suggestion

import (
	"context"
	"time"

	"github.com/jhoicas/retail-suggestions/internal/domain/entity"
	"github.com/jhoicas/retail-suggestions/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Garantiza que descuento de stock, compra y confirmación se apliquen juntos o ninguno.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		batchRepo repository.InventoryBatchRepository,
		purchaseRepo repository.PurchaseRepository,
		suggestionRepo repository.SuggestionRepository,
	) error) error
}

// Notifier avisa a un minorista de una sugerencia nueva o reasignada.
// Un fallo se registra en log y nunca hace fallar la operación.
type Notifier interface {
	Notify(ctx context.Context, retailerID, message string) error
}

// Metrics puerto de métricas del motor (Prometheus en producción, noop en tests).
type Metrics interface {
	SuggestOutcome(reason string)
	SuggestionChanged(change entity.SuggestionChange)
	Reassigned(trigger string)
	Expired(cause string)
	Confirmed()
	Rejected()
	WriteConflict(op string)
	SweepDuration(d time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) SuggestOutcome(string)                    {}
func (noopMetrics) SuggestionChanged(entity.SuggestionChange) {}
func (noopMetrics) Reassigned(string)                        {}
func (noopMetrics) Expired(string)                           {}
func (noopMetrics) Confirmed()                               {}
func (noopMetrics) Rejected()                                {}
func (noopMetrics) WriteConflict(string)                     {}
func (noopMetrics) SweepDuration(time.Duration)              {}

func metricsOrNoop(m Metrics) Metrics {
	if m == nil {
		return noopMetrics{}
	}
	return m
}
