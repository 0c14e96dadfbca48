package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/retail-suggestions/internal/application/dto"
	"github.com/jhoicas/retail-suggestions/internal/application/suggestion"
	"github.com/jhoicas/retail-suggestions/internal/domain/repository"
)

// pendingLister lo implementa *suggestion.QueryUseCase.
type pendingLister interface {
	ListPending(ctx context.Context, retailerID string) ([]repository.SuggestionView, error)
}

// suggestionResponder lo implementa *suggestion.ConfirmationHandler.
type suggestionResponder interface {
	Confirm(ctx context.Context, id, actorRetailerID string) (*suggestion.ConfirmResult, error)
	Reject(ctx context.Context, id, actorRetailerID string) (*suggestion.RejectResult, error)
}

// SuggestionHandler maneja las peticiones HTTP del minorista sobre sus sugerencias (protegido).
type SuggestionHandler struct {
	queries   pendingLister
	responder suggestionResponder
}

// NewSuggestionHandler construye el handler.
func NewSuggestionHandler(queries pendingLister, responder suggestionResponder) *SuggestionHandler {
	return &SuggestionHandler{queries: queries, responder: responder}
}

// ListPending godoc
// @Summary      Sugerencias activas de un minorista
// @Tags         suggestions
// @Security     Bearer
// @Produce      json
// @Param        retailer_id  query  string  false  "ID del minorista (por defecto el del token)"
// @Success      200  {object}  dto.SuggestionListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/suggestions/pending [get]
func (h *SuggestionHandler) ListPending(c *fiber.Ctx) error {
	retailerID := c.Query("retailer_id")
	if actor := actorRetailerID(c); actor != "" {
		if retailerID == "" {
			retailerID = actor
		}
		if retailerID != actor {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "solo puede consultar sus propias sugerencias"})
		}
	}
	if retailerID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "retailer_id es requerido"})
	}
	list, err := h.queries.ListPending(c.Context(), retailerID)
	if err != nil {
		return writeError(c, err, "minorista no encontrado")
	}
	return c.JSON(dto.SuggestionListResponse{Items: dto.FromViews(list)})
}

// Confirm godoc
// @Summary      Confirmar sugerencia
// @Description  Descuenta el stock del lote, registra la compra y marca la sugerencia como confirmada en una sola transacción.
// @Tags         suggestions
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la sugerencia"
// @Success      200  {object}  dto.ConfirmResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/suggestions/confirm/{id} [post]
func (h *SuggestionHandler) Confirm(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_ID", Message: "id es requerido"})
	}
	res, err := h.responder.Confirm(c.Context(), id, actorRetailerID(c))
	if err != nil {
		return writeError(c, err, "sugerencia no encontrada o no activa")
	}
	return c.JSON(dto.ToConfirmResponse(res))
}

// Reject godoc
// @Summary      Rechazar sugerencia
// @Description  Marca la sugerencia como rechazada y la reasigna al siguiente minorista del ranking.
// @Tags         suggestions
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la sugerencia"
// @Success      200  {object}  dto.RejectResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/suggestions/reject/{id} [post]
func (h *SuggestionHandler) Reject(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_ID", Message: "id es requerido"})
	}
	res, err := h.responder.Reject(c.Context(), id, actorRetailerID(c))
	if err != nil {
		return writeError(c, err, "sugerencia no encontrada o no activa")
	}
	return c.JSON(dto.ToRejectResponse(res))
}
