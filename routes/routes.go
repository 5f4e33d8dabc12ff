package routes

import (
	"github.com/gofiber/fiber/v2"

	"gamevote-backend/controllers"
	"gamevote-backend/middleware"
)

// Register wires every endpoint. Paths match the original vote app, so
// there is no /api prefix.
func Register(app *fiber.App, pub *controllers.PublicController, admin *controllers.AdminController, jwtSecret string) {
	app.Get("/categories", pub.GetCategories)
	app.Get("/games", pub.GetGames)
	app.Get("/publishers", pub.GetPublishers)
	app.Get("/suggestions", pub.GetSuggestions)
	app.Post("/check-name", pub.CheckName)
	app.Post("/check-vote", pub.CheckVote)
	app.Post("/submit", pub.Submit)
	app.Get("/user-results/:username", pub.UserResults)

	app.Post("/admin-login", admin.Login)

	gated := app.Group("/", middleware.RequireAdmin(jwtSecret))
	gated.Get("/admin/view-table", admin.ViewTable)
	gated.Post("/admin/game", admin.AddGame)
	gated.Put("/admin/game/:id", admin.EditGame)
	gated.Delete("/admin/game/:id", admin.DeleteGame)
	gated.Post("/admin/publisher", admin.AddPublisher)
	gated.Put("/admin/publisher/:id", admin.EditPublisher)
	gated.Delete("/admin/publisher/:id", admin.DeletePublisher)
	gated.Post("/admin/category", admin.AddCategory)
	gated.Put("/admin/category/:id", admin.EditCategory)
	gated.Delete("/admin/category/:id", admin.DeleteCategory)
	gated.Put("/admin/vote/:id", admin.EditVote)
	gated.Delete("/admin/vote/:id", admin.DeleteVote)
	gated.Get("/download-excel", admin.DownloadExcel)
}
