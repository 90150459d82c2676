package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// IsPublicPath reports whether path is a liveness probe served without a
// bearer token.
func IsPublicPath(path string) bool {
	switch path {
	case "/health", "/health/db":
		return true
	}
	return false
}

// AuthSkipper is the JWTConfig.Skipper. CORS preflights never carry
// credentials, so OPTIONS is let through as well; the CORS middleware
// answers them before any handler runs.
func AuthSkipper(c echo.Context) bool {
	if c.Request().Method == http.MethodOptions {
		return true
	}
	path := c.Path()
	if path == "" {
		path = c.Request().URL.Path
	}
	return IsPublicPath(path)
}
