package entity

import "time"

// SuggestionStatus estado del ciclo de vida de una sugerencia.
type SuggestionStatus string

const (
	SuggestionPending    SuggestionStatus = "pending"
	SuggestionConfirmed  SuggestionStatus = "confirmed"
	SuggestionRejected   SuggestionStatus = "rejected"
	SuggestionExpired    SuggestionStatus = "expired"
	SuggestionReassigned SuggestionStatus = "reassigned"
)

// ActiveSuggestionStatuses estados que cuentan como sugerencia activa (no terminal).
var ActiveSuggestionStatuses = []SuggestionStatus{SuggestionPending, SuggestionReassigned}

// IsActive indica si el estado es pending o reassigned.
func (s SuggestionStatus) IsActive() bool {
	return s == SuggestionPending || s == SuggestionReassigned
}

// IsValid indica si el estado es uno de los conocidos.
func (s SuggestionStatus) IsValid() bool {
	switch s {
	case SuggestionPending, SuggestionConfirmed, SuggestionRejected, SuggestionExpired, SuggestionReassigned:
		return true
	}
	return false
}

// Suggestion recomienda que un minorista reciba una cantidad de un lote próximo a vencer.
// Se muta en sitio al reasignarse; TriedRetailers es un historial que solo crece.
type Suggestion struct {
	ID               string
	ProductID        string
	RetailerID       string
	InventoryBatchID string
	Quantity         int64
	Status           SuggestionStatus
	Attempts         int
	TriedRetailers   []string
	Version          int64 // se incrementa en cada escritura efectiva (CAS)
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// HasTried indica si el minorista ya recibió (y no aceptó) esta sugerencia.
func (s *Suggestion) HasTried(retailerID string) bool {
	for _, id := range s.TriedRetailers {
		if id == retailerID {
			return true
		}
	}
	return false
}

// IsStale indica si una sugerencia activa superó la ventana sin respuesta.
func (s *Suggestion) IsStale(now time.Time, window time.Duration) bool {
	return s.Status.IsActive() && s.UpdatedAt.Before(now.Add(-window))
}

// SuggestionChange describe el efecto de un upsert sobre el almacén.
type SuggestionChange string

const (
	ChangeCreated         SuggestionChange = "created"
	ChangeReassigned      SuggestionChange = "reassigned"
	ChangeQuantityUpdated SuggestionChange = "quantity_updated"
	ChangeUnchanged       SuggestionChange = "unchanged"
)
