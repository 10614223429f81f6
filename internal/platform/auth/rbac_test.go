package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func contextWithRoles(roles ...string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := context.WithValue(req.Context(), UserRolesKey, roles)
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec)
}

func TestRequireRole_Allowed(t *testing.T) {
	c := contextWithRoles("doctor")
	h := RequireRole("doctor")(func(c echo.Context) error { return nil })
	if err := h(c); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRequireRole_AdminBypass(t *testing.T) {
	c := contextWithRoles("admin")
	h := RequireRole("doctor")(func(c echo.Context) error { return nil })
	if err := h(c); err != nil {
		t.Errorf("expected admin to bypass role check, got: %v", err)
	}
}

func TestRequireRole_Forbidden(t *testing.T) {
	c := contextWithRoles("nurse")
	h := RequireRole("doctor")(func(c echo.Context) error { return nil })
	err := h(c)
	if err == nil {
		t.Fatal("expected forbidden error")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %v", err)
	}
}

func TestRequireRole_NoRoles(t *testing.T) {
	c := contextWithRoles()
	h := RequireRole("doctor")(func(c echo.Context) error { return nil })
	if err := h(c); err == nil {
		t.Error("expected error for user with no roles")
	}
}
