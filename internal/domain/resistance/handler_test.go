package resistance

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/amr/amr/internal/domain/antibiotic"
)

// failingAntibioticRepo simulates a database outage on lookups.
type failingAntibioticRepo struct {
	*mockAntibioticRepo
}

func (f *failingAntibioticRepo) GetByID(_ context.Context, _ uuid.UUID) (*antibiotic.Antibiotic, error) {
	return nil, fmt.Errorf("connection refused")
}

func newAlternativesContext(e *echo.Echo) (echo.Context, *httptest.ResponseRecorder) {
	target := fmt.Sprintf("/api/v1/resistance/alternatives?patient_id=%s&antibiotic_id=%s", uuid.New(), uuid.New())
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func assertHTTPStatus(t *testing.T, err error, want int) {
	t.Helper()
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %v", err)
	}
	if httpErr.Code != want {
		t.Errorf("expected %d, got %d", want, httpErr.Code)
	}
}

func TestGetAlternatives_UnknownAntibiotic(t *testing.T) {
	svc, _, _ := newTestService()
	h := NewHandler(svc)

	c, _ := newAlternativesContext(echo.New())
	assertHTTPStatus(t, h.GetAlternatives(c), http.StatusNotFound)
}

func TestGetAlternatives_LookupFailure(t *testing.T) {
	antibiotics := &failingAntibioticRepo{newMockAntibioticRepo()}
	h := NewHandler(NewService(newMockRecordRepo(), antibiotics))

	c, _ := newAlternativesContext(echo.New())
	assertHTTPStatus(t, h.GetAlternatives(c), http.StatusInternalServerError)
}

func TestGetRecord_NotFound(t *testing.T) {
	svc, _, _ := newTestService()
	h := NewHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/resistance-records/"+uuid.New().String(), nil)
	c := echo.New().NewContext(req, httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	assertHTTPStatus(t, h.GetRecord(c), http.StatusNotFound)
}
