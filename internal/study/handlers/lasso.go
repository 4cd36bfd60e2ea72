package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"log"
	"net/http"

	"perception-study/internal/lasso"
	"perception-study/internal/overlay"
	"perception-study/internal/study/service"

	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Lasso Region Handlers
// ============================================================

type openRegionRequest struct {
	ChartIndex int     `json:"chartIndex"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
}

type eventsRequest struct {
	Events []lasso.Event `json:"events"`
}

type resizeRequest struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type pathRequest struct {
	D string `json:"d"`
}

// OpenRegion creates a lasso region for one chart question of a session.
func (h *StudyHandler) OpenRegion(c fiber.Ctx) error {
	var req openRegionRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return badRequest(c, "invalid json")
	}

	sessionID := c.Params("id")
	r, err := h.study.OpenRegion(context.Background(), sessionID, req.ChartIndex, req.Width, req.Height)
	if err != nil {
		return writeError(c, err)
	}

	sess, err := h.study.Session(context.Background(), sessionID)
	if err != nil {
		return writeError(c, err)
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"regionId":   r.ID(),
		"chartIndex": r.ChartIndex(),
		"chartId":    sess.SelectedCharts[r.ChartIndex()],
	})
}

// RegionEvents feeds a batch of pointer events into the region.
func (h *StudyHandler) RegionEvents(c fiber.Ctx) error {
	r, err := h.region(c)
	if err != nil {
		return writeError(c, err)
	}

	var req eventsRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return badRequest(c, "invalid json")
	}

	points, err := r.Events(req.Events...)
	if err != nil {
		return badRequest(c, err.Error())
	}
	_, active := r.Stroke()

	return c.JSON(fiber.Map{
		"points": points,
		"active": active,
	})
}

// SaveRegion finalizes the current stroke into the saved lasso.
func (h *StudyHandler) SaveRegion(c fiber.Ctx) error {
	r, err := h.region(c)
	if err != nil {
		return writeError(c, err)
	}

	l, err := r.Save()
	if err != nil {
		log.Printf("[LASSO] Save %s rejected: %v", r.ID(), err)
		return writeError(c, err)
	}

	log.Printf("[LASSO] Saved %s: %d vertices, area %.4f", r.ID(), len(l.Vertices), l.Summary.Area)
	return c.JSON(fiber.Map{
		"saved": true,
		"lasso": l,
	})
}

// ListRegions reports the open regions of a session by chart index.
func (h *StudyHandler) ListRegions(c fiber.Ctx) error {
	sess, err := h.study.Session(context.Background(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}

	regions := []fiber.Map{}
	for _, r := range h.study.Regions().Owned(sess.ID) {
		regions = append(regions, fiber.Map{
			"regionId":   r.ID(),
			"chartIndex": r.ChartIndex(),
			"saved":      r.HasSaved(),
		})
	}
	return c.JSON(fiber.Map{"regions": regions})
}

// ResizeRegion follows a canvas resize. Later saves normalize against the
// new size; a lasso already saved is kept.
func (h *StudyHandler) ResizeRegion(c fiber.Ctx) error {
	r, err := h.region(c)
	if err != nil {
		return writeError(c, err)
	}

	var req resizeRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return badRequest(c, "invalid json")
	}
	if err := r.Resize(req.Width, req.Height); err != nil {
		return writeError(c, err)
	}

	width, height := r.Size()
	return c.JSON(fiber.Map{
		"width":  width,
		"height": height,
	})
}

// TraceRegion replaces the stroke with the outline given as SVG path data.
func (h *StudyHandler) TraceRegion(c fiber.Ctx) error {
	r, err := h.region(c)
	if err != nil {
		return writeError(c, err)
	}

	var req pathRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return badRequest(c, "invalid json")
	}
	points, err := overlay.ParsePath(req.D)
	if err != nil {
		return badRequest(c, err.Error())
	}
	// the stroke is closed again when it finishes
	if lasso.IsClosed(points) {
		points = points[:len(points)-1]
	}

	return c.JSON(fiber.Map{
		"points": r.Trace(points),
		"active": false,
	})
}

func (h *StudyHandler) ClearRegion(c fiber.Ctx) error {
	r, err := h.region(c)
	if err != nil {
		return writeError(c, err)
	}
	r.Clear()
	return c.JSON(fiber.Map{"cleared": true})
}

// GetRegion reports the stroke in progress and the saved lasso, if any.
func (h *StudyHandler) GetRegion(c fiber.Ctx) error {
	r, err := h.region(c)
	if err != nil {
		return writeError(c, err)
	}

	points, active := r.Stroke()
	width, height := r.Size()
	out := fiber.Map{
		"regionId":   r.ID(),
		"chartIndex": r.ChartIndex(),
		"width":      width,
		"height":     height,
		"points":     points,
		"active":     active,
		"saved":      false,
	}
	if l, ok := r.Saved(); ok {
		out["saved"] = true
		out["lasso"] = l
	}
	return c.JSON(out)
}

func (h *StudyHandler) DisposeRegion(c fiber.Ctx) error {
	id, err := lasso.ParseRegionID(c.Params("region"))
	if err != nil {
		return writeError(c, err)
	}
	h.study.Regions().Dispose(id)
	return c.SendStatus(http.StatusNoContent)
}

// RegionSVG renders the saved lasso at the region's surface size.
func (h *StudyHandler) RegionSVG(c fiber.Ctx) error {
	r, err := h.region(c)
	if err != nil {
		return writeError(c, err)
	}
	l, ok := r.Saved()
	if !ok {
		return writeError(c, service.ErrLassoNotSaved)
	}

	width, height := r.Size()
	svg, err := overlay.RenderSVG(width, height, l)
	if err != nil {
		return writeError(c, err)
	}

	c.Set("Content-Type", "image/svg+xml")
	return c.SendString(svg)
}

// RegionMask rasterizes the saved lasso at the region's surface size.
func (h *StudyHandler) RegionMask(c fiber.Ctx) error {
	r, err := h.region(c)
	if err != nil {
		return writeError(c, err)
	}
	l, ok := r.Saved()
	if !ok {
		return writeError(c, service.ErrLassoNotSaved)
	}

	width, height := r.Size()
	mask, err := overlay.Mask(l, int(width), int(height))
	if err != nil {
		return writeError(c, err)
	}
	return sendPNG(c, mask)
}

func (h *StudyHandler) region(c fiber.Ctx) (*lasso.Region, error) {
	id, err := lasso.ParseRegionID(c.Params("region"))
	if err != nil {
		return nil, err
	}
	return h.study.Regions().Get(id)
}

func sendPNG(c fiber.Ctx, img image.Image) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return writeError(c, err)
	}
	c.Set("Content-Type", "image/png")
	return c.Send(buf.Bytes())
}
