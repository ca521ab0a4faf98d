package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medtrack/medtrack/internal/platform/auth"
)

// AuditEntry captures who accessed what, when, from where, and the action.
type AuditEntry struct {
	UserID     string
	UserRoles  []string
	Resource   string
	Action     string // read, create, update, delete, search
	IPAddress  string
	UserAgent  string
	Path       string
	Method     string
	Timestamp  time.Time
	RequestID  string
	StatusCode int
}

// AuditRecorder persists audit entries. Decoupling it from the middleware
// lets tests provide a mock implementation.
type AuditRecorder interface {
	RecordAccess(entry AuditEntry) error
}

// AuditRecorderFunc is a function adapter for AuditRecorder.
type AuditRecorderFunc func(entry AuditEntry) error

func (f AuditRecorderFunc) RecordAccess(entry AuditEntry) error {
	return f(entry)
}

// Audit returns middleware that logs every /api/v1/* access: the
// authenticated user, the resource touched and the action taken. Medication
// and dose records are health data, so access is always attributable.
//
// If no AuditRecorder is provided, it falls back to structured zerolog
// logging.
func Audit(logger zerolog.Logger, recorders ...AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			path := req.URL.Path

			if !strings.HasPrefix(path, "/api/v1/") {
				return next(c)
			}

			// Execute the handler first so we capture the response status
			err := next(c)

			ctx := req.Context()
			entry := AuditEntry{
				UserID:     auth.UserIDFromContext(ctx),
				UserRoles:  auth.RolesFromContext(ctx),
				Resource:   resourceFromPath(path),
				Action:     actionFromMethod(req.Method, path),
				IPAddress:  c.RealIP(),
				UserAgent:  req.UserAgent(),
				Path:       path,
				Method:     req.Method,
				Timestamp:  time.Now().UTC(),
				StatusCode: c.Response().Status,
			}
			if rid, ok := c.Get("request_id").(string); ok {
				entry.RequestID = rid
			}

			recorded := false
			for _, r := range recorders {
				if recordErr := r.RecordAccess(entry); recordErr == nil {
					recorded = true
				}
			}
			if !recorded {
				logger.Info().
					Str("user_id", entry.UserID).
					Strs("roles", entry.UserRoles).
					Str("resource", entry.Resource).
					Str("action", entry.Action).
					Str("path", entry.Path).
					Str("request_id", entry.RequestID).
					Int("status", entry.StatusCode).
					Str("remote_ip", entry.IPAddress).
					Msg("access")
			}

			return err
		}
	}
}

// resourceFromPath extracts the resource segment from /api/v1/<resource>/...
func resourceFromPath(path string) string {
	rest := strings.TrimPrefix(path, "/api/v1/")
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		return rest[:i]
	}
	return rest
}

func actionFromMethod(method, path string) string {
	switch method {
	case http.MethodGet:
		// A bare collection path is a search, an id path is a read.
		if strings.Count(strings.TrimPrefix(path, "/api/v1/"), "/") == 0 {
			return "search"
		}
		return "read"
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return strings.ToLower(method)
	}
}
