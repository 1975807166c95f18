// handlers/status_routes.go
package handlers

import (
	"opportunity-feed-system/middleware"
	"opportunity-feed-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupStatusRoutes(app *fiber.App, feedService *services.FeedService) {
	// 🔐 Secured routes — require user context from the Gateway.
	secured := app.Group("/s", middleware.UserContextMiddleware())

	secured.Get("/opportunities/:id/status", feedService.GetOpportunityStatus)
	secured.Post("/opportunities/:id/claim", feedService.ClaimOpportunity)
}
