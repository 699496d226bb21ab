package http

import (
	"errors"
	"math"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/safesphere/backend/internal/domain"
	"github.com/safesphere/backend/internal/service"
)

// Handler contains all HTTP handlers
type Handler struct {
	incidentSvc *service.IncidentService
	seeder      *service.Seeder
	zoneStep    float64
	logger      *zap.Logger
}

// NewHandler creates a new handler. zoneStep is the default grid size
// used when requests do not pass zone_step themselves.
func NewHandler(incidentSvc *service.IncidentService, seeder *service.Seeder, zoneStep float64, logger *zap.Logger) *Handler {
	if zoneStep <= 0 {
		zoneStep = service.DefaultZoneStep
	}
	return &Handler{
		incidentSvc: incidentSvc,
		seeder:      seeder,
		zoneStep:    zoneStep,
		logger:      logger,
	}
}

// HealthCheck returns service health status including store reachability
func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	store := "ok"
	if err := h.incidentSvc.Health(c.Context()); err != nil {
		store = "unreachable"
		h.logger.Warn("store health check failed", zap.Error(err))
	}
	return c.JSON(fiber.Map{
		"status":  "ok",
		"service": "safesphere-backend",
		"version": "1.0.0",
		"store":   store,
	})
}

// IngestIncident validates, curates, and persists a threat incident report
func (h *Handler) IngestIncident(c *fiber.Ctx) error {
	var inc domain.Incident
	if err := c.BodyParser(&inc); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	curated, err := h.incidentSvc.Ingest(c.Context(), inc)
	if err != nil {
		return mapServiceError(err, "Failed to persist incident")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":     true,
		"incident_id": curated.ID,
		"message":     "Incident received and saved",
	})
}

// GetIncident returns the stored record for one incident id
func (h *Handler) GetIncident(c *fiber.Ctx) error {
	inc, err := h.incidentSvc.Get(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Incident not found")
		}
		return fiber.NewError(fiber.StatusServiceUnavailable, "Failed to read incident")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    inc,
	})
}

// ListIncidents returns recent incidents, most recently written first
func (h *Handler) ListIncidents(c *fiber.Ctx) error {
	limit := clampLimit(c.QueryInt("limit", service.DefaultListLimit))

	incidents, degraded := h.incidentSvc.List(c.Context(), limit)
	return c.JSON(fiber.Map{
		"success":   true,
		"count":     len(incidents),
		"incidents": incidents,
		"degraded":  degraded,
	})
}

// RankedDataset returns the flat id/type/rank/location projection
func (h *Handler) RankedDataset(c *fiber.Ctx) error {
	limit := clampLimit(c.QueryInt("limit", service.DefaultDatasetLimit))

	rows, degraded := h.incidentSvc.RankedDataset(c.Context(), limit)
	return c.JSON(fiber.Map{
		"success":   true,
		"count":     len(rows),
		"incidents": rows,
		"degraded":  degraded,
	})
}

// Heatmap returns quantized heat zones sorted by average rank descending
func (h *Handler) Heatmap(c *fiber.Ctx) error {
	zoneStep := c.QueryFloat("zone_step", h.zoneStep)
	limit := clampLimit(c.QueryInt("limit", service.DefaultSnapshotLimit))

	zones, degraded := h.incidentSvc.Heatmap(c.Context(), zoneStep, limit)
	return c.JSON(fiber.Map{
		"success":  true,
		"count":    len(zones),
		"zones":    zones,
		"degraded": degraded,
	})
}

// NearbyIncidents returns incidents within radius_km of the query point
func (h *Handler) NearbyIncidents(c *fiber.Ctx) error {
	lat, lng, err := requireCoordinates(c)
	if err != nil {
		return err
	}
	radiusKm := c.QueryFloat("radius_km", 2.0)
	limit := clampLimit(c.QueryInt("limit", service.DefaultSnapshotLimit))

	incidents, degraded := h.incidentSvc.NearbyIncidents(c.Context(), lat, lng, radiusKm, limit)
	return c.JSON(fiber.Map{
		"success":   true,
		"count":     len(incidents),
		"incidents": incidents,
		"degraded":  degraded,
	})
}

// NearbyZones returns heat zones within radius_km of the query point
func (h *Handler) NearbyZones(c *fiber.Ctx) error {
	lat, lng, err := requireCoordinates(c)
	if err != nil {
		return err
	}
	radiusKm := c.QueryFloat("radius_km", 2.0)
	zoneStep := c.QueryFloat("zone_step", h.zoneStep)
	limit := clampLimit(c.QueryInt("limit", service.DefaultSnapshotLimit))

	zones, degraded := h.incidentSvc.NearbyZones(c.Context(), lat, lng, radiusKm, zoneStep, limit)
	return c.JSON(fiber.Map{
		"success":  true,
		"count":    len(zones),
		"zones":    zones,
		"degraded": degraded,
	})
}

// RaiseSOS accepts a distress alert from a client device
func (h *Handler) RaiseSOS(c *fiber.Ctx) error {
	var alert domain.SOSAlert
	if err := c.BodyParser(&alert); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	inc, err := h.incidentSvc.RaiseSOS(c.Context(), alert)
	if err != nil {
		return mapServiceError(err, "Failed to process SOS alert")
	}

	return c.JSON(fiber.Map{
		"success":     true,
		"incident_id": inc.ID,
		"message":     "SOS Alert Processed",
	})
}

// SeedIncidents generates synthetic incidents around a center point
func (h *Handler) SeedIncidents(c *fiber.Ctx) error {
	var req domain.SeedRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	seeded, err := h.seeder.Seed(c.Context(), req)
	if err != nil {
		return mapServiceError(err, "Failed to seed incidents")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"seeded":  seeded,
	})
}

// mapServiceError distinguishes caller mistakes from store failures.
func mapServiceError(err error, storeMessage string) error {
	var vErr *domain.ValidationError
	if errors.As(err, &vErr) {
		return fiber.NewError(fiber.StatusBadRequest, vErr.Error())
	}
	return fiber.NewError(fiber.StatusServiceUnavailable, storeMessage)
}

// requireCoordinates parses the mandatory lat/lng query parameters.
// QueryFloat would silently turn garbage into 0, so parse strictly.
func requireCoordinates(c *fiber.Ctx) (float64, float64, error) {
	latRaw, lngRaw := c.Query("lat"), c.Query("lng")
	if latRaw == "" || lngRaw == "" {
		return 0, 0, fiber.NewError(fiber.StatusBadRequest, "lat and lng query parameters are required")
	}
	lat, latErr := strconv.ParseFloat(latRaw, 64)
	lng, lngErr := strconv.ParseFloat(lngRaw, 64)
	if latErr != nil || lngErr != nil || math.IsNaN(lat) || math.IsNaN(lng) {
		return 0, 0, fiber.NewError(fiber.StatusBadRequest, "lat and lng must be numeric")
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return 0, 0, fiber.NewError(fiber.StatusBadRequest, "lat/lng out of range")
	}
	return lat, lng, nil
}

func clampLimit(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit > 10000 {
		return 10000
	}
	return limit
}
