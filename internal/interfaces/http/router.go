package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/retail-suggestions/internal/application/suggestion"
	"github.com/jhoicas/retail-suggestions/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Engine       *suggestion.Engine
	Fallback     *suggestion.FallbackHandler
	Confirmation *suggestion.ConfirmationHandler
	Expiring     *suggestion.ExpiringUseCase
	Queries      *suggestion.QueryUseCase
	Reports      *suggestion.ReportUseCase
	Gatherer     prometheus.Gatherer // nil = sin /metrics
	JWTSecret    string
	ServiceName  string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": deps.ServiceName})
	})
	if deps.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	// Sugerencias del minorista (admin puede actuar sobre cualquiera)
	suggestions := protected.Group("/suggestions",
		RequireRole(jwt.RoleRetailer, jwt.RoleAdmin),
		RequireActiveRetailer(deps.Queries),
	)
	suggestionHandler := NewSuggestionHandler(deps.Queries, deps.Confirmation)
	suggestions.Get("/pending", suggestionHandler.ListPending)
	suggestions.Post("/confirm/:id", suggestionHandler.Confirm)
	suggestions.Post("/reject/:id", suggestionHandler.Reject)

	// Administración
	admin := protected.Group("/admin", RequireRole(jwt.RoleAdmin))
	adminHandler := NewAdminHandler(AdminDeps{
		Engine:   deps.Engine,
		Expiring: deps.Expiring,
		Sweeper:  deps.Fallback,
		Queries:  deps.Queries,
		Reports:  deps.Reports,
	})
	admin.Get("/suggestions/expiring", adminHandler.Expiring)
	admin.Get("/suggestions/expired", adminHandler.Expired)
	admin.Post("/suggestions/sweep", adminHandler.Sweep)
	admin.Post("/suggestions/products/:productId", adminHandler.SuggestProduct)
	admin.Get("/retailers/ranking/:productId", adminHandler.Ranking)
}
