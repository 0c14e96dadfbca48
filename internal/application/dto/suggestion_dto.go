package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/retail-suggestions/internal/application/suggestion"
	"github.com/jhoicas/retail-suggestions/internal/domain/entity"
	"github.com/jhoicas/retail-suggestions/internal/domain/inventory"
	"github.com/jhoicas/retail-suggestions/internal/domain/repository"
)

// SuggestionResponse sugerencia expuesta por la API.
type SuggestionResponse struct {
	ID               string     `json:"id"`
	ProductID        string     `json:"product_id"`
	ProductName      string     `json:"product_name,omitempty"`
	ProductCategory  string     `json:"product_category,omitempty"`
	InventoryBatchID string     `json:"inventory_batch_id"`
	BatchCode        string     `json:"batch_code,omitempty"`
	ExpiryDate       *time.Time `json:"expiry_date,omitempty"`
	RetailerID       string     `json:"retailer_id"`
	Quantity         int64      `json:"quantity"`
	Status           string     `json:"status"`
	Attempts         int        `json:"attempts"`
	TriedRetailers   []string   `json:"tried_retailers"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// SuggestionListResponse listado de sugerencias.
type SuggestionListResponse struct {
	Items []SuggestionResponse `json:"items"`
	Page  *PageResponse        `json:"page,omitempty"`
}

// RetailerSummary datos del minorista para mostrar junto a la sugerencia.
type RetailerSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location,omitempty"`
}

// RankedRetailerResponse candidato del ranking. Efficiency puede superar 1.0.
type RankedRetailerResponse struct {
	RetailerID     string  `json:"retailer_id"`
	TotalPurchased int64   `json:"total_purchased"`
	TotalSold      int64   `json:"total_sold"`
	Efficiency     float64 `json:"efficiency"`
}

// OutcomeResponse resultado de sugerir para un (producto, lote).
// Reason vacío = hay sugerencia.
type OutcomeResponse struct {
	ProductID        string                  `json:"product_id"`
	InventoryBatchID string                  `json:"inventory_batch_id,omitempty"`
	Reason           string                  `json:"reason,omitempty"`
	Change           string                  `json:"change,omitempty"`
	Error            string                  `json:"error,omitempty"` // solo con reason=failed
	Suggestion       *SuggestionResponse     `json:"suggestion,omitempty"`
	Candidate        *RankedRetailerResponse `json:"candidate,omitempty"`
	Retailer         *RetailerSummary        `json:"retailer,omitempty"`
}

// ExpiringResponse respuesta de GET /api/admin/suggestions/expiring.
type ExpiringResponse struct {
	Total     int               `json:"total"`
	Suggested int               `json:"suggested"`
	Failed    int               `json:"failed"`
	Outcomes  []OutcomeResponse `json:"outcomes"`
}

// PurchaseItemResponse línea de la compra generada al confirmar.
type PurchaseItemResponse struct {
	ProductID        string          `json:"product_id"`
	InventoryBatchID *string         `json:"inventory_batch_id,omitempty"`
	Quantity         int64           `json:"quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	Status           string          `json:"status"`
}

// PurchaseResponse compra registrada.
type PurchaseResponse struct {
	ID         string                 `json:"id"`
	RetailerID string                 `json:"retailer_id"`
	Source     string                 `json:"source"`
	Items      []PurchaseItemResponse `json:"items"`
	Total      decimal.Decimal        `json:"total"`
	CreatedAt  time.Time              `json:"created_at"`
}

// ConfirmResponse respuesta de POST /api/suggestions/confirm/:id.
type ConfirmResponse struct {
	Suggestion     SuggestionResponse `json:"suggestion"`
	Purchase       PurchaseResponse   `json:"purchase"`
	BatchRemaining int64              `json:"batch_remaining"`
	BatchStatus    string             `json:"batch_status"`
}

// RejectResponse respuesta de POST /api/suggestions/reject/:id.
type RejectResponse struct {
	Suggestion SuggestionResponse `json:"suggestion"`
	Fallback   string             `json:"fallback,omitempty"` // reassigned | exhausted | skipped
	Cause      string             `json:"cause,omitempty"`
}

// ToSuggestionResponse mapea la entidad.
func ToSuggestionResponse(s *entity.Suggestion) SuggestionResponse {
	tried := s.TriedRetailers
	if tried == nil {
		tried = []string{}
	}
	return SuggestionResponse{
		ID:               s.ID,
		ProductID:        s.ProductID,
		InventoryBatchID: s.InventoryBatchID,
		RetailerID:       s.RetailerID,
		Quantity:         s.Quantity,
		Status:           string(s.Status),
		Attempts:         s.Attempts,
		TriedRetailers:   tried,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}

// FromView mapea una sugerencia con datos del producto y del lote.
func FromView(v repository.SuggestionView) SuggestionResponse {
	out := ToSuggestionResponse(&v.Suggestion)
	out.ProductName = v.ProductName
	out.ProductCategory = v.ProductCategory
	out.BatchCode = v.BatchCode
	if !v.ExpiryDate.IsZero() {
		exp := v.ExpiryDate
		out.ExpiryDate = &exp
	}
	return out
}

// FromViews mapea un listado; nunca devuelve nil.
func FromViews(views []repository.SuggestionView) []SuggestionResponse {
	out := make([]SuggestionResponse, 0, len(views))
	for _, v := range views {
		out = append(out, FromView(v))
	}
	return out
}

// ToRankedResponse mapea el ranking; nunca devuelve nil.
func ToRankedResponse(ranked []inventory.RankedRetailer) []RankedRetailerResponse {
	out := make([]RankedRetailerResponse, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, rankedOne(r))
	}
	return out
}

func rankedOne(r inventory.RankedRetailer) RankedRetailerResponse {
	return RankedRetailerResponse{
		RetailerID:     r.RetailerID,
		TotalPurchased: r.TotalPurchased,
		TotalSold:      r.TotalSold,
		Efficiency:     r.Efficiency,
	}
}

// ToOutcomeResponse mapea el resultado de Suggest.
func ToOutcomeResponse(o *suggestion.Outcome) OutcomeResponse {
	out := OutcomeResponse{
		ProductID:        o.ProductID,
		InventoryBatchID: o.InventoryBatchID,
		Reason:           string(o.Reason),
		Change:           string(o.Change),
	}
	if o.Err != nil {
		out.Error = o.Err.Error()
	}
	if o.Suggestion != nil {
		s := ToSuggestionResponse(o.Suggestion)
		out.Suggestion = &s
		if out.InventoryBatchID == "" {
			out.InventoryBatchID = o.Suggestion.InventoryBatchID
		}
	}
	if o.Candidate != nil {
		c := rankedOne(*o.Candidate)
		out.Candidate = &c
	}
	if o.Retailer != nil {
		out.Retailer = &RetailerSummary{ID: o.Retailer.ID, Name: o.Retailer.Name, Location: o.Retailer.Location}
	}
	return out
}

// ToExpiringResponse agrupa los resultados del recorrido de lotes por vencer.
func ToExpiringResponse(outcomes []*suggestion.Outcome) ExpiringResponse {
	resp := ExpiringResponse{Outcomes: make([]OutcomeResponse, 0, len(outcomes))}
	for _, o := range outcomes {
		switch {
		case o.OK():
			resp.Suggested++
		case o.Reason == suggestion.ReasonFailed:
			resp.Failed++
		}
		resp.Outcomes = append(resp.Outcomes, ToOutcomeResponse(o))
	}
	resp.Total = len(resp.Outcomes)
	return resp
}

// ToConfirmResponse mapea el resultado de la confirmación.
func ToConfirmResponse(r *suggestion.ConfirmResult) ConfirmResponse {
	items := make([]PurchaseItemResponse, 0, len(r.Purchase.Items))
	for _, it := range r.Purchase.Items {
		items = append(items, PurchaseItemResponse{
			ProductID:        it.ProductID,
			InventoryBatchID: it.InventoryBatchID,
			Quantity:         it.Quantity,
			UnitPrice:        it.UnitPrice,
			Status:           it.Status,
		})
	}
	resp := ConfirmResponse{
		Suggestion: ToSuggestionResponse(r.Suggestion),
		Purchase: PurchaseResponse{
			ID:         r.Purchase.ID,
			RetailerID: r.Purchase.RetailerID,
			Source:     r.Purchase.Source,
			Items:      items,
			Total:      r.Purchase.Total(),
			CreatedAt:  r.Purchase.CreatedAt,
		},
	}
	if r.Batch != nil {
		resp.BatchRemaining = r.Batch.Quantity
		resp.BatchStatus = r.Batch.Status
	}
	return resp
}

// ToRejectResponse mapea el rechazo y el resultado del fallback.
func ToRejectResponse(r *suggestion.RejectResult) RejectResponse {
	resp := RejectResponse{Suggestion: ToSuggestionResponse(r.Rejected)}
	if r.Fallback != nil {
		resp.Fallback = string(r.Fallback.Status)
		resp.Cause = string(r.Fallback.Cause)
		if r.Fallback.Suggestion != nil {
			resp.Suggestion = ToSuggestionResponse(r.Fallback.Suggestion)
		}
	}
	return resp
}
