package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/labstack/echo/v4"
)

// TokenAuth returns an Echo middleware that requires the configured
// bearer token on every request. WebSocket clients cannot set headers
// from the browser, so a `token` query parameter is accepted as well.
// An empty configured token disables authentication.
func TokenAuth(token string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if token == "" {
				return next(c)
			}
			// Health checks stay unauthenticated for probes
			if c.Path() == "/health" {
				return next(c)
			}

			presented := bearerToken(c)
			if presented == "" {
				presented = c.QueryParam("token")
			}
			if presented == "" {
				return unauthorizedError(c, "Missing authorization header")
			}
			if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
				return unauthorizedError(c, "Invalid API token")
			}
			return next(c)
		}
	}
}

func bearerToken(c echo.Context) string {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}
