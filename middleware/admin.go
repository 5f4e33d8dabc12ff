package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// AdminCookie carries the signed admin session token.
const AdminCookie = "admin_token"

// RequireAdmin fails closed with 403 unless the request carries a valid
// admin session token, either in the session cookie or as a bearer
// header. Gated routes never reach their handler without it.
func RequireAdmin(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rawToken := c.Cookies(AdminCookie)
		if rawToken == "" {
			header := c.Get("Authorization")
			if strings.HasPrefix(header, "Bearer ") {
				rawToken = header[len("Bearer "):]
			}
		}
		if rawToken == "" {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"status": "error", "message": "Unauthorized"})
		}

		token, err := jwt.Parse(rawToken, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"status": "error", "message": "Unauthorized"})
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"status": "error", "message": "Unauthorized"})
		}
		if isAdmin, ok := claims["admin"].(bool); !ok || !isAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"status": "error", "message": "Unauthorized"})
		}

		c.Locals("is_admin", true)
		return c.Next()
	}
}
