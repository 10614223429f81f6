package middleware

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// etagWriter buffers the response body so the handler output can be hashed
// before anything reaches the client. Header returns the original writer's
// map so headers set by handlers survive the swap.
type etagWriter struct {
	writer     http.ResponseWriter
	buf        bytes.Buffer
	statusCode int
}

func (w *etagWriter) Header() http.Header { return w.writer.Header() }

func (w *etagWriter) Write(b []byte) (int, error) { return w.buf.Write(b) }

func (w *etagWriter) WriteHeader(code int) { w.statusCode = code }

// flush writes the buffered status and body through the original writer.
func (w *etagWriter) flush() error {
	w.writer.WriteHeader(w.statusCode)
	if w.buf.Len() == 0 {
		return nil
	}
	_, err := w.writer.Write(w.buf.Bytes())
	return err
}

// ETag computes a strong ETag over successful GET and HEAD responses and
// answers If-None-Match with 304 Not Modified. Responses carry
// Cache-Control: private, no-cache so clients revalidate on every request.
// Paths with any of the given prefixes are passed through untouched.
func ETag(exclude ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Method != http.MethodGet && req.Method != http.MethodHead {
				return next(c)
			}
			for _, prefix := range exclude {
				if strings.HasPrefix(req.URL.Path, prefix) {
					return next(c)
				}
			}

			res := c.Response()
			orig := res.Writer
			bw := &etagWriter{writer: orig, statusCode: http.StatusOK}
			res.Writer = bw

			err := next(c)
			res.Writer = orig
			if err != nil {
				return err
			}
			if bw.statusCode != http.StatusOK {
				return bw.flush()
			}

			etag := fmt.Sprintf(`"%x"`, sha256.Sum256(bw.buf.Bytes()))
			header := res.Header()
			header.Set("ETag", etag)
			header.Set("Cache-Control", "private, no-cache")

			if matchesETag(req.Header.Get("If-None-Match"), etag) {
				orig.WriteHeader(http.StatusNotModified)
				return nil
			}
			return bw.flush()
		}
	}
}

// matchesETag reports whether the If-None-Match header value matches the
// given ETag. Handles the wildcard, comma-separated lists and weak tags.
func matchesETag(ifNoneMatch, etag string) bool {
	if ifNoneMatch == "" {
		return false
	}
	for _, candidate := range strings.Split(ifNoneMatch, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" {
			return true
		}
		candidate = strings.TrimPrefix(candidate, "W/")
		if candidate == etag {
			return true
		}
	}
	return false
}
