// handlers/khatam.go
package handlers

import (
	"khatam-tracker/services"

	"github.com/gofiber/fiber/v2"
)

func SetupKhatamRoutes(app *fiber.App, khatamService *services.KhatamService) {
	// All routes are public: creators and pledgers are anonymous, and the
	// manage token (pledge routes) is the only credential in the system.
	app.Post("/khatam/create", khatamService.CreateKhatam)
	app.Get("/khatam/get", khatamService.GetKhatam)
	app.Get("/khatam/pledges", khatamService.ListPledges)
	app.Post("/khatam/:slug/cover", khatamService.UploadCover)

	app.Get("/progress/:slug", khatamService.GetProgress)
}
