package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"perception-study/internal/lasso"
	"perception-study/internal/overlay"
	"perception-study/internal/study/service"

	"github.com/gofiber/fiber/v3"
)

const (
	defaultHeatmapSize = 400
	maxHeatmapSize     = lasso.MaxSurfaceSize
)

type submitRequest struct {
	Demographic json.RawMessage `json:"demographic"`
	PostStudy   json.RawMessage `json:"postStudy"`
}

// ============================================================
// Response Handlers
// ============================================================

// SaveResponse stores the answers for one chart of the session.
func (h *StudyHandler) SaveResponse(c fiber.Ctx) error {
	if len(c.Body()) == 0 {
		return badRequest(c, "empty body")
	}

	var req service.ResponseInput
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return badRequest(c, "invalid json")
	}

	resp, err := h.study.SaveResponse(context.Background(), c.Params("id"), req)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"response": resp,
	})
}

func (h *StudyHandler) ListResponses(c fiber.Ctx) error {
	responses, err := h.study.Responses(context.Background(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"responses": responses})
}

// Submit assembles the participant document and delivers it. The request
// fails only when the data file could not be written.
func (h *StudyHandler) Submit(c fiber.Ctx) error {
	var req submitRequest
	if len(c.Body()) > 0 {
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return badRequest(c, "invalid json")
		}
	}

	sub, err := h.study.Submit(context.Background(), c.Params("id"), req.Demographic, req.PostStudy)
	if err != nil {
		return writeError(c, err)
	}

	status := http.StatusOK
	if !sub.Success {
		status = http.StatusInternalServerError
	}
	return c.Status(status).JSON(fiber.Map{
		"success":      sub.Success,
		"submissionId": sub.ID,
		"results":      sub.Results,
	})
}

func (h *StudyHandler) ListSubmissions(c fiber.Ctx) error {
	subs, err := h.study.Submissions(context.Background(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"submissions": subs})
}

// SubmitLegacy writes any JSON body to participant_<unixmillis>.json.
func (h *StudyHandler) SubmitLegacy(c fiber.Ctx) error {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, c.Body(), "", "  "); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "invalid json"})
	}

	path, err := h.study.SubmitLegacy(pretty.Bytes())
	if err != nil {
		log.Printf("[STORAGE] Legacy submit failed: %v", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"success": false})
	}

	log.Printf("[STUDY] Legacy submission stored at %s", path)
	return c.JSON(fiber.Map{"success": true})
}

// ChartHeatmap renders how many participants circled each pixel of a chart.
func (h *StudyHandler) ChartHeatmap(c fiber.Ctx) error {
	chartID, err := strconv.Atoi(c.Params("chart"))
	if err != nil {
		return badRequest(c, "invalid chart id")
	}
	width, err := sizeParam(c, "w")
	if err != nil {
		return badRequest(c, err.Error())
	}
	height, err := sizeParam(c, "h")
	if err != nil {
		return badRequest(c, err.Error())
	}

	lassos, err := h.study.ChartLassos(context.Background(), chartID)
	if err != nil {
		return writeError(c, err)
	}

	img, err := overlay.Heatmap(lassos, width, height)
	if err != nil {
		return writeError(c, err)
	}
	c.Set("X-Lasso-Count", strconv.Itoa(len(lassos)))
	return sendPNG(c, img)
}

func sizeParam(c fiber.Ctx, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return defaultHeatmapSize, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > maxHeatmapSize {
		return 0, fmt.Errorf("%s must be between 1 and %d", key, maxHeatmapSize)
	}
	return n, nil
}

