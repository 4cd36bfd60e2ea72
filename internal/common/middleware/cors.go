package middleware

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
)

// CORS allows the listed origins with credentials so the session cookie
// travels cross-origin. With no origins every origin is allowed, without
// credentials.
func CORS(origins []string) fiber.Handler {
	if len(origins) == 0 {
		return cors.New(cors.Config{
			AllowOrigins: []string{"*"},
			AllowHeaders: []string{"*"},
			AllowMethods: []string{"*"},
		})
	}

	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     []string{"Content-Type", "Accept"},
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowCredentials: true,
		ExposeHeaders:    []string{"X-Lasso-Count"},
	})
}
