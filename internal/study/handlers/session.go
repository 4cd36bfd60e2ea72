package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"perception-study/internal/study/charts"

	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Session Handlers
// ============================================================

// InitSession starts a study session and hands its token out as a cookie.
func (h *StudyHandler) InitSession(c fiber.Ctx) error {
	sess, token, err := h.study.Start(context.Background())
	if err != nil {
		return writeError(c, err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.cookie,
		Value:    token,
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Expires:  time.Now().Add(24 * time.Hour),
	})

	return c.JSON(fiber.Map{
		"success":         true,
		"participantId":   sess.ParticipantID,
		"sessionId":       sess.ID,
		"selectedCharts":  sess.SelectedCharts,
		"chartCategories": sess.ChartCategories,
	})
}

// SessionStatus reports the session behind the cookie, if any.
func (h *StudyHandler) SessionStatus(c fiber.Ctx) error {
	token := c.Cookies(h.cookie)
	if token == "" {
		return c.JSON(fiber.Map{"sessionActive": false})
	}

	sess, err := h.study.SessionByToken(context.Background(), token)
	if err != nil || !sess.Active() {
		return c.JSON(fiber.Map{"sessionActive": false})
	}

	return c.JSON(fiber.Map{
		"sessionActive":  true,
		"participantId":  sess.ParticipantID,
		"sessionId":      sess.ID,
		"studyStartTime": sess.StartedAt.UnixMilli(),
	})
}

// ClearSession ends the cookie's session and expires the cookie.
func (h *StudyHandler) ClearSession(c fiber.Ctx) error {
	disposed := 0
	if token := c.Cookies(h.cookie); token != "" {
		if sessionID, ok := h.study.Tokens().Resolve(token); ok {
			n, err := h.study.Clear(context.Background(), sessionID)
			if err != nil {
				return writeError(c, err)
			}
			disposed = n
		}
	}

	c.ClearCookie(h.cookie)
	return c.JSON(fiber.Map{
		"success":         true,
		"disposedRegions": disposed,
	})
}

func (h *StudyHandler) GetSession(c fiber.Ctx) error {
	sess, err := h.study.Session(context.Background(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(sess)
}

// GetSteps lists the question screens of the session in order.
func (h *StudyHandler) GetSteps(c fiber.Ctx) error {
	sess, err := h.study.Session(context.Background(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"total": len(sess.SelectedCharts) * charts.QuestionsPerChart,
		"steps": charts.Steps(sess.SelectedCharts),
	})
}

// CompleteSession marks the main study complete and returns its timing.
func (h *StudyHandler) CompleteSession(c fiber.Ctx) error {
	sessionID := c.Params("id")
	timing, err := h.study.Complete(context.Background(), sessionID)
	if err != nil {
		return writeError(c, err)
	}

	log.Printf("[STUDY] Session %s completed main study in %s", sessionID, timing.FormattedDuration)
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"success":     true,
		"studyTiming": timing,
	})
}
