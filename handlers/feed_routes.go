// handlers/feed_routes.go
package handlers

import (
	"opportunity-feed-system/middleware"
	"opportunity-feed-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupFeedRoutes(app *fiber.App, feedService *services.FeedService) {
	// 🔓 Public routes — no sign-in required, but still behind Gateway auth.
	// A wallet query param personalizes the feed; when the Gateway forwards
	// X-User-ID as well, the view also keeps the user's claim statuses fresh.
	app.Get("/feed", middleware.UserContextMiddleware(), feedService.GetFeed)
	app.Get("/feed/spotlight", feedService.GetSpotlight)
}
