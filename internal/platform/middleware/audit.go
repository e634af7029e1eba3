package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/oncology/dashboard/internal/platform/auth"
)

// AuditEntry records one access to patient-level data.
type AuditEntry struct {
	UserID     string
	UserRoles  []string
	Resource   string
	Subject    string
	Path       string
	Method     string
	IPAddress  string
	RequestID  string
	StatusCode int
	Timestamp  time.Time
}

// auditRecorder receives each entry before it is logged.
type auditRecorder interface {
	RecordAccess(entry AuditEntry) error
}

// Audit logs every request to the routes it wraps as a "phi_access"
// event, after the handler has run so the status is known. resource names
// what was read; subjectParam, when set, is the path parameter identifying
// whose records (for the roster, the cancer name).
func Audit(logger zerolog.Logger, resource, subjectParam string) echo.MiddlewareFunc {
	return audit(logger, resource, subjectParam)
}

func audit(logger zerolog.Logger, resource, subjectParam string, recorders ...auditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)

			req := c.Request()
			entry := AuditEntry{
				UserID:     auth.UserIDFromContext(req.Context()),
				UserRoles:  auth.RolesFromContext(req.Context()),
				Resource:   resource,
				Path:       req.URL.Path,
				Method:     req.Method,
				IPAddress:  c.RealIP(),
				StatusCode: c.Response().Status,
				Timestamp:  time.Now().UTC(),
			}
			if subjectParam != "" {
				entry.Subject = c.Param(subjectParam)
			}
			if rid, ok := c.Get("request_id").(string); ok {
				entry.RequestID = rid
			}
			if he, ok := err.(*echo.HTTPError); ok {
				entry.StatusCode = he.Code
			}

			for _, r := range recorders {
				if r == nil {
					continue
				}
				if recErr := r.RecordAccess(entry); recErr != nil {
					logger.Error().Err(recErr).
						Str("request_id", entry.RequestID).
						Msg("failed to record audit entry")
				}
			}

			logger.Info().
				Str("type", "audit").
				Str("request_id", entry.RequestID).
				Str("user_id", entry.UserID).
				Strs("user_roles", entry.UserRoles).
				Str("resource", entry.Resource).
				Str("subject", entry.Subject).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Str("remote_ip", entry.IPAddress).
				Int("status", entry.StatusCode).
				Msg("phi_access")

			return err
		}
	}
}
