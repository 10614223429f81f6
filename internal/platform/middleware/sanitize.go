package middleware

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// maxHeaderValueSize caps any single header value at 8KB.
const maxHeaderValueSize = 8192

var (
	// SQL patterns are logged rather than blocked; queries are
	// parameterized so a match cannot reach the database as SQL.
	sqlPatterns = regexp.MustCompile(`(?i)('+\s*;\s*DROP\b|UNION\s+SELECT\b|'\s+OR\s+1\s*=\s*1|1\s*=\s*1)`)

	scriptPatterns = regexp.MustCompile(`(?i)(<script|javascript\s*:|on\w+\s*=)`)
)

// Sanitize rejects requests carrying common attack payloads in the path,
// headers or query string with a 400.
func Sanitize() echo.MiddlewareFunc {
	return SanitizeWithLogger(zerolog.Nop())
}

// SanitizeWithLogger is Sanitize with a logger for SQL pattern warnings.
func SanitizeWithLogger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if msg := requestViolation(c, logger); msg != "" {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": msg})
			}
			return next(c)
		}
	}
}

// requestViolation returns the first violation found in the request, or the
// empty string when the request is clean.
func requestViolation(c echo.Context, logger zerolog.Logger) string {
	req := c.Request()
	path := req.URL.Path
	rawPath := req.URL.RawPath
	if rawPath == "" {
		rawPath = path
	}

	if hasTraversal(path) || hasTraversal(rawPath) {
		return "Path traversal detected"
	}
	if hasNullByte(path) || hasNullByte(rawPath) {
		return "Null byte injection detected"
	}

	for name, values := range req.Header {
		for _, v := range values {
			if len(v) > maxHeaderValueSize {
				return "Header value exceeds maximum size: " + name
			}
			if strings.ContainsAny(v, "\r\n") {
				return "Header injection detected: " + name
			}
		}
	}

	for key, values := range req.URL.Query() {
		for _, v := range values {
			if hasNullByte(v) || hasNullByte(key) {
				return "Null byte injection detected in query parameter"
			}
			if sqlPatterns.MatchString(v) {
				logger.Warn().
					Str("param", key).
					Str("path", path).
					Str("remote_ip", c.RealIP()).
					Msg("potential SQL injection pattern detected in query parameter")
			}
			if scriptPatterns.MatchString(v) || scriptPatterns.MatchString(key) {
				return "Script injection detected in query parameter"
			}
		}
	}
	return ""
}

// hasTraversal checks for traversal sequences in raw and percent-encoded
// forms, including the double-encoded variant.
func hasTraversal(s string) bool {
	if strings.Contains(s, "..") {
		return true
	}
	lower := strings.ToLower(s)
	return strings.Contains(lower, "%2e%2e") || strings.Contains(lower, "%252e")
}

func hasNullByte(s string) bool {
	if strings.ContainsRune(s, '\x00') {
		return true
	}
	return strings.Contains(strings.ToLower(s), "%00")
}
