package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/retail-suggestions/internal/application/dto"
	"github.com/jhoicas/retail-suggestions/internal/application/suggestion"
	"github.com/jhoicas/retail-suggestions/internal/domain/inventory"
	"github.com/jhoicas/retail-suggestions/internal/domain/repository"
)

type suggester interface {
	Suggest(ctx context.Context, productID, batchID string) (*suggestion.Outcome, error)
}

type expiringRunner interface {
	SuggestExpiring(ctx context.Context, skipActive bool) ([]*suggestion.Outcome, error)
}

type sweeper interface {
	Sweep(ctx context.Context) (*suggestion.SweepReport, error)
}

type adminQueries interface {
	ListExpired(ctx context.Context, limit, offset int) ([]repository.SuggestionView, error)
	Ranking(ctx context.Context, productID string) ([]inventory.RankedRetailer, error)
}

type reportExporter interface {
	ExpiredReport(ctx context.Context, format string, limit int) ([]byte, string, string, error)
}

// AdminDeps casos de uso que expone el handler de administración.
type AdminDeps struct {
	Engine   suggester
	Expiring expiringRunner
	Sweeper  sweeper
	Queries  adminQueries
	Reports  reportExporter
}

// AdminHandler disparadores manuales y vistas de revisión (solo rol admin).
type AdminHandler struct {
	deps AdminDeps
}

// NewAdminHandler construye el handler.
func NewAdminHandler(deps AdminDeps) *AdminHandler {
	return &AdminHandler{deps: deps}
}

// Expiring godoc
// @Summary      Sugerir para lotes próximos a vencer
// @Description  Ejecuta la sugerencia para cada lote en inventario que vence dentro del horizonte configurado.
// @Tags         admin
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.ExpiringResponse
// @Router       /api/admin/suggestions/expiring [get]
func (h *AdminHandler) Expiring(c *fiber.Ctx) error {
	outcomes, err := h.deps.Expiring.SuggestExpiring(c.Context(), false)
	if err != nil {
		return writeError(c, err, "recurso no encontrado")
	}
	return c.JSON(dto.ToExpiringResponse(outcomes))
}

// SuggestProduct godoc
// @Summary      Sugerir para un producto
// @Tags         admin
// @Security     Bearer
// @Produce      json
// @Param        productId  path   string  true   "ID del producto"
// @Param        batch_id   query  string  false  "Lote concreto (por defecto el que vence primero)"
// @Success      200  {object}  dto.OutcomeResponse
// @Router       /api/admin/suggestions/products/{productId} [post]
func (h *AdminHandler) SuggestProduct(c *fiber.Ctx) error {
	productID := c.Params("productId")
	if productID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_ID", Message: "productId es requerido"})
	}
	out, err := h.deps.Engine.Suggest(c.Context(), productID, c.Query("batch_id"))
	if err != nil {
		return writeError(c, err, "producto no encontrado")
	}
	return c.JSON(dto.ToOutcomeResponse(out))
}

// Sweep godoc
// @Summary      Reasignar sugerencias sin respuesta
// @Tags         admin
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  suggestion.SweepReport
// @Router       /api/admin/suggestions/sweep [post]
func (h *AdminHandler) Sweep(c *fiber.Ctx) error {
	report, err := h.deps.Sweeper.Sweep(c.Context())
	if err != nil {
		return writeError(c, err, "recurso no encontrado")
	}
	return c.JSON(report)
}

// Expired godoc
// @Summary      Sugerencias vencidas para revisión manual
// @Tags         admin
// @Security     Bearer
// @Produce      json
// @Produce      application/pdf
// @Param        format  query  string  false  "json (defecto), pdf o xlsx"
// @Param        limit   query  int     false  "Límite"  default(50)
// @Param        offset  query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.SuggestionListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/admin/suggestions/expired [get]
func (h *AdminHandler) Expired(c *fiber.Ctx) error {
	page := dto.PageRequest{Limit: c.QueryInt("limit", 50), Offset: c.QueryInt("offset", 0)}
	page.DefaultPage()

	format := c.Query("format", "json")
	if format != "json" {
		doc, filename, contentType, err := h.deps.Reports.ExpiredReport(c.Context(), format, page.Limit)
		if err != nil {
			return writeError(c, err, "recurso no encontrado")
		}
		c.Set(fiber.HeaderContentType, contentType)
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
		return c.Send(doc)
	}

	list, err := h.deps.Queries.ListExpired(c.Context(), page.Limit, page.Offset)
	if err != nil {
		return writeError(c, err, "recurso no encontrado")
	}
	return c.JSON(dto.SuggestionListResponse{
		Items: dto.FromViews(list),
		Page:  &dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	})
}

// Ranking godoc
// @Summary      Ranking de minoristas para un producto
// @Tags         admin
// @Security     Bearer
// @Produce      json
// @Param        productId  path  string  true  "ID del producto"
// @Success      200  {array}   dto.RankedRetailerResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/admin/retailers/ranking/{productId} [get]
func (h *AdminHandler) Ranking(c *fiber.Ctx) error {
	productID := c.Params("productId")
	if productID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_ID", Message: "productId es requerido"})
	}
	ranked, err := h.deps.Queries.Ranking(c.Context(), productID)
	if err != nil {
		return writeError(c, err, "producto no encontrado")
	}
	return c.JSON(dto.ToRankedResponse(ranked))
}
