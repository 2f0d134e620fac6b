// handlers/pledge.go
package handlers

import (
	"khatam-tracker/services"

	"github.com/gofiber/fiber/v2"
)

func SetupPledgeRoutes(app *fiber.App, pledgeService *services.PledgeService) {
	app.Post("/pledge/create", pledgeService.CreatePledge)
	app.Get("/pledge/get", pledgeService.GetPledge)
	app.Post("/pledge/update", pledgeService.UpdatePledge)
}
