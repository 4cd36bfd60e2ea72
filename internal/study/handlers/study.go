package handlers

import (
	"errors"
	"log"
	"net/http"

	"perception-study/internal/lasso"
	"perception-study/internal/study/service"

	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Study Handler
// ============================================================

type StudyHandler struct {
	study  *service.Study
	cookie string
}

func NewStudyHandler(study *service.Study, cookieName string) *StudyHandler {
	return &StudyHandler{
		study:  study,
		cookie: cookieName,
	}
}

// Routes mounts every study endpoint on r.
func (h *StudyHandler) Routes(r fiber.Router) {
	// legacy upload endpoint, kept for old clients
	r.Post("/submit", h.SubmitLegacy)

	api := r.Group("/api")

	api.Post("/init-session", h.InitSession)
	api.Get("/session-status", h.SessionStatus)
	api.Post("/clear-session", h.ClearSession)

	api.Get("/sessions/:id", h.GetSession)
	api.Get("/sessions/:id/steps", h.GetSteps)
	api.Post("/sessions/:id/complete", h.CompleteSession)
	api.Get("/sessions/:id/regions", h.ListRegions)
	api.Post("/sessions/:id/regions", h.OpenRegion)
	api.Get("/sessions/:id/responses", h.ListResponses)
	api.Post("/sessions/:id/responses", h.SaveResponse)
	api.Post("/sessions/:id/submit", h.Submit)
	api.Get("/sessions/:id/submissions", h.ListSubmissions)

	api.Get("/regions/:region", h.GetRegion)
	api.Delete("/regions/:region", h.DisposeRegion)
	api.Post("/regions/:region/events", h.RegionEvents)
	api.Post("/regions/:region/save", h.SaveRegion)
	api.Post("/regions/:region/clear", h.ClearRegion)
	api.Post("/regions/:region/resize", h.ResizeRegion)
	api.Post("/regions/:region/path", h.TraceRegion)
	api.Get("/regions/:region/svg", h.RegionSVG)
	api.Get("/regions/:region/mask.png", h.RegionMask)

	api.Get("/charts/:chart/heatmap.png", h.ChartHeatmap)
}

// ============================================================
// Error mapping
// ============================================================

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, lasso.ErrUnknownRegion):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidResponse):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrSessionCleared),
		errors.Is(err, service.ErrLassoNotSaved),
		errors.Is(err, service.ErrRegionNotInScope):
		return http.StatusConflict
	case errors.Is(err, lasso.ErrNotEnoughPoints),
		errors.Is(err, lasso.ErrInvalidSurface):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeError(c fiber.Ctx, err error) error {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[STUDY] %s %s failed: %v", c.Method(), c.Path(), err)
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func badRequest(c fiber.Ctx, msg string) error {
	return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": msg})
}
