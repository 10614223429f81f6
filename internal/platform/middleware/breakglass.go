package middleware

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/amr/amr/internal/platform/auth"
)

type breakGlassContextKey string

const (
	breakGlassKey       breakGlassContextKey = "break_glass"
	breakGlassReasonKey breakGlassContextKey = "break_glass_reason"
)

const (
	breakGlassMaxPerHour  = 10
	breakGlassSweepPeriod = 5 * time.Minute
)

// bgWindow is a fixed one-hour counting window. The window starts at the
// user's first break-glass request and resets one hour later.
type bgWindow struct {
	start time.Time
	count int
}

// bgLimiter counts break-glass requests per user in fixed hourly windows.
type bgLimiter struct {
	mu      sync.Mutex
	windows map[string]*bgWindow
}

func newBGLimiter() *bgLimiter {
	return &bgLimiter{windows: make(map[string]*bgWindow)}
}

// allow records the request and reports whether the user stays under max
// for the current window. The caller supplies the clock.
func (l *bgLimiter) allow(userID string, now time.Time, max int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.windows[userID]
	if w == nil || now.Sub(w.start) >= time.Hour {
		w = &bgWindow{start: now}
		l.windows[userID] = w
	}
	if w.count >= max {
		return false
	}
	w.count++
	return true
}

// sweep drops windows that have expired.
func (l *bgLimiter) sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for userID, w := range l.windows {
		if now.Sub(w.start) >= time.Hour {
			delete(l.windows, userID)
		}
	}
}

// isClinicalPath reports whether the path is under the clinical API.
func isClinicalPath(path string) bool {
	return strings.HasPrefix(path, "/api/v1/")
}

// BreakGlass implements the emergency override for clinical data access.
// A request carrying a non-empty X-Break-Glass header from an authenticated
// user gets the admin role injected for the rest of the chain, limited to
// 10 requests per user per hour, and every use is logged at WARN for the
// audit trail. Must run after authentication.
func BreakGlass(logger zerolog.Logger) echo.MiddlewareFunc {
	limiter := newBGLimiter()

	go func() {
		ticker := time.NewTicker(breakGlassSweepPeriod)
		defer ticker.Stop()
		for range ticker.C {
			limiter.sweep(time.Now())
		}
	}()

	return breakGlassMiddleware(logger, limiter, time.Now)
}

// breakGlassMiddleware takes the limiter and clock so tests can inject both.
func breakGlassMiddleware(logger zerolog.Logger, limiter *bgLimiter, nowFn func() time.Time) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			path := req.URL.Path

			if !isClinicalPath(path) {
				return next(c)
			}
			reason := strings.TrimSpace(req.Header.Get("X-Break-Glass"))
			if reason == "" {
				return next(c)
			}

			ctx := req.Context()
			userID := auth.UserIDFromContext(ctx)
			if userID == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "break-glass requires authentication")
			}

			now := nowFn()
			if !limiter.allow(userID, now, breakGlassMaxPerHour) {
				return echo.NewHTTPError(http.StatusTooManyRequests,
					"break-glass rate limit exceeded: maximum 10 requests per user per hour")
			}

			roles := auth.RolesFromContext(ctx)
			hasAdmin := false
			for _, r := range roles {
				if r == "admin" {
					hasAdmin = true
					break
				}
			}
			if !hasAdmin {
				roles = append(roles, "admin")
			}

			ctx = context.WithValue(ctx, breakGlassKey, true)
			ctx = context.WithValue(ctx, breakGlassReasonKey, reason)
			ctx = context.WithValue(ctx, auth.UserRolesKey, roles)
			c.SetRequest(req.WithContext(ctx))

			logger.Warn().
				Str("type", "break_glass").
				Str("user_id", userID).
				Strs("original_roles", auth.RolesFromContext(req.Context())).
				Str("break_glass_reason", reason).
				Str("path", path).
				Str("method", req.Method).
				Str("remote_ip", c.RealIP()).
				Time("timestamp", now).
				Msg("break_glass_override")

			return next(c)
		}
	}
}

// IsBreakGlass reports whether the request used the break-glass override.
func IsBreakGlass(ctx context.Context) bool {
	v, _ := ctx.Value(breakGlassKey).(bool)
	return v
}

// BreakGlassReason returns the X-Break-Glass reason, or "" when the
// override was not used.
func BreakGlassReason(ctx context.Context) string {
	v, _ := ctx.Value(breakGlassReasonKey).(string)
	return v
}
