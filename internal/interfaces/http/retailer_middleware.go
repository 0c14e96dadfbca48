package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/retail-suggestions/internal/application/dto"
)

// retailerChecker es el contrato mínimo que necesita el middleware para verificar al minorista.
// Lo implementa *suggestion.QueryUseCase.
type retailerChecker interface {
	RetailerActive(ctx context.Context, retailerID string) (bool, error)
}

// RequireActiveRetailer verifica que el minorista del token exista y siga activo.
// Debe usarse DESPUÉS de AuthMiddleware. Los tokens sin retailer_id (admin) pasan sin consulta.
//
// Comportamiento:
//   - 403 Forbidden  → minorista inexistente o desactivado.
//   - 503 Service Unavailable → fallo de infraestructura al consultar la DB.
func RequireActiveRetailer(checker retailerChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		retailerID := actorRetailerID(c)
		if retailerID == "" {
			return c.Next()
		}

		active, err := checker.RetailerActive(c.Context(), retailerID)
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
				Code:    "RETAILER_CHECK_FAILED",
				Message: "no se pudo verificar el minorista, intente más tarde",
			})
		}

		if !active {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Code:    "RETAILER_INACTIVE",
				Message: "el minorista '" + retailerID + "' no está activo",
			})
		}

		return c.Next()
	}
}
