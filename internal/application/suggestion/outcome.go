package suggestion

import (
	"github.com/jhoicas/retail-suggestions/internal/domain/entity"
	"github.com/jhoicas/retail-suggestions/internal/domain/inventory"
)

// Reason motivo por el que no se pudo sugerir. Vacío = hay sugerencia.
// No son errores: son resultados normales de la operación.
type Reason string

const (
	ReasonNone                Reason = ""
	ReasonProductNotFound     Reason = "product_not_found"
	ReasonInsufficientStock   Reason = "insufficient_stock"
	ReasonNoPurchaseHistory   Reason = "no_purchase_history"
	ReasonNoCandidateRetailer Reason = "no_candidate_retailer"
	// ReasonAlreadyActive solo lo produce el tick periódico al saltar lotes con sugerencia activa.
	ReasonAlreadyActive Reason = "already_active"
	// ReasonPreviouslyClosed lo produce el tick cuando la última sugerencia del lote quedó
	// expired o rejected: el lote no vuelve a ofrecerse automáticamente.
	ReasonPreviouslyClosed Reason = "previously_closed"
	// ReasonFailed el lote no se pudo procesar; Err trae la causa.
	ReasonFailed Reason = "failed"
)

// Outcome resultado de Suggest: Ok(Suggestion) o uno de los Reason.
type Outcome struct {
	ProductID        string
	InventoryBatchID string
	Reason           Reason
	Suggestion       *entity.Suggestion
	Change           entity.SuggestionChange
	Candidate        *inventory.RankedRetailer
	Retailer         *entity.Retailer // nombre/ubicación para mostrar; puede ser nil
	Err              error            // solo con ReasonFailed
}

// OK indica si el resultado contiene una sugerencia escrita o vigente.
func (o *Outcome) OK() bool {
	return o.Reason == ReasonNone && o.Suggestion != nil
}

func noSuggestion(reason Reason, productID, batchID string) *Outcome {
	return &Outcome{ProductID: productID, InventoryBatchID: batchID, Reason: reason}
}

func failedOutcome(err error, productID, batchID string) *Outcome {
	out := noSuggestion(ReasonFailed, productID, batchID)
	out.Err = err
	return out
}

func metricLabel(r Reason) string {
	if r == ReasonNone {
		return "ok"
	}
	return string(r)
}
