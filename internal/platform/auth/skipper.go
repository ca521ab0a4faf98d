package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths lists URL paths that should bypass authentication. These are
// infrastructure endpoints that must be accessible without credentials.
var publicPaths = map[string]bool{
	"/health":    true,
	"/health/db": true,
	"/metrics":   true,
}

// AuthSkipper returns true for requests whose path should skip authentication.
// Health-check and metrics endpoints remain accessible without a bearer token.
func AuthSkipper(c echo.Context) bool {
	return publicPaths[c.Path()]
}

// IsPublicPath reports whether the given path is a public infrastructure
// endpoint that should bypass auth middleware.
func IsPublicPath(path string) bool {
	return publicPaths[path]
}
