package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

// helper creates an echo context with the given roles set on the request context.
func newContextWithRoles(method, path string, roles []string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, nil)
	ctx := context.WithValue(req.Context(), UserRolesKey, roles)
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}

var okHandler = func(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// TestRequireRole_AdminAccessesAll verifies that the admin role can access any
// role-protected endpoint regardless of which roles are listed.
func TestRequireRole_AdminAccessesAll(t *testing.T) {
	domainRoles := [][]string{
		{"doctor", "nurse"},
		{"doctor"},
		{"nurse"},
	}

	for _, roles := range domainRoles {
		c, _ := newContextWithRoles(http.MethodGet, "/", []string{"admin"})
		mw := RequireRole(roles...)
		err := mw(okHandler)(c)
		if err != nil {
			t.Errorf("admin should access endpoint requiring %v, got error: %v", roles, err)
		}
	}
}

// TestRequireRole_DoctorAccessesClinical verifies that a doctor can read and
// write clinical endpoints which list "doctor" as a permitted role.
func TestRequireRole_DoctorAccessesClinical(t *testing.T) {
	c, _ := newContextWithRoles(http.MethodGet, "/prescriptions", []string{"doctor"})
	mw := RequireRole("admin", "doctor", "nurse")
	if err := mw(okHandler)(c); err != nil {
		t.Errorf("doctor should read clinical endpoints, got error: %v", err)
	}

	c, _ = newContextWithRoles(http.MethodPost, "/prescriptions", []string{"doctor"})
	mw = RequireRole("admin", "doctor")
	if err := mw(okHandler)(c); err != nil {
		t.Errorf("doctor should write to clinical endpoints, got error: %v", err)
	}
}

// TestRequireRole_NurseReadOnly verifies that a nurse can read clinical
// endpoints but cannot write where only admin and doctor are permitted.
func TestRequireRole_NurseReadOnly(t *testing.T) {
	c, _ := newContextWithRoles(http.MethodGet, "/patients", []string{"nurse"})
	mw := RequireRole("admin", "doctor", "nurse")
	if err := mw(okHandler)(c); err != nil {
		t.Errorf("nurse should read patient endpoints, got error: %v", err)
	}

	c, _ = newContextWithRoles(http.MethodPost, "/patients", []string{"nurse"})
	mw = RequireRole("admin", "doctor")
	err := mw(okHandler)(c)
	if err == nil {
		t.Fatal("nurse should NOT write to patient endpoints")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusForbidden {
		t.Errorf("expected 403 Forbidden, got %d", httpErr.Code)
	}
}

// TestRequireRole_DoctorDeniedDoctorAdmin verifies that a doctor cannot write
// to the doctor registry, which is admin-only.
func TestRequireRole_DoctorDeniedDoctorAdmin(t *testing.T) {
	c, _ := newContextWithRoles(http.MethodPost, "/doctors", []string{"doctor"})
	mw := RequireRole("admin")
	err := mw(okHandler)(c)
	if err == nil {
		t.Fatal("doctor should NOT write to the doctor registry")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusForbidden {
		t.Errorf("expected 403 Forbidden, got %d", httpErr.Code)
	}
}

// TestRequireRole_NoRoleDenied verifies that a request with no roles is denied
// access to any role-protected endpoint.
func TestRequireRole_NoRoleDenied(t *testing.T) {
	c, _ := newContextWithRoles(http.MethodGet, "/prescriptions", []string{})
	mw := RequireRole("admin", "doctor", "nurse")
	if err := mw(okHandler)(c); err == nil {
		t.Error("empty roles should be denied")
	}

	// No context value at all
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/prescriptions", nil)
	rec := httptest.NewRecorder()
	c = e.NewContext(req, rec)
	err := mw(okHandler)(c)
	if err == nil {
		t.Error("nil roles should be denied")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusForbidden {
		t.Errorf("expected 403 Forbidden, got %d", httpErr.Code)
	}
}
