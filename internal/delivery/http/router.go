package http

import (
	"github.com/gofiber/fiber/v2"
)

// SetupRoutes configures all HTTP routes
func SetupRoutes(app *fiber.App, handler *Handler) {
	// Health check
	app.Get("/health", handler.HealthCheck)

	// API v1 routes
	api := app.Group("/api/v1")
	{
		// Ingestion
		api.Post("/incidents", handler.IngestIncident)
		api.Post("/sos", handler.RaiseSOS)
		api.Post("/seed/incidents", handler.SeedIncidents)

		// Queries. /incidents/nearby must be registered before /incidents/:id.
		api.Get("/incidents", handler.ListIncidents)
		api.Get("/incidents/nearby", handler.NearbyIncidents)
		api.Get("/incidents/:id", handler.GetIncident)
		api.Get("/dataset/incidents", handler.RankedDataset)
		api.Get("/heatmap", handler.Heatmap)
		api.Get("/heatmap/nearby", handler.NearbyZones)
	}
}
