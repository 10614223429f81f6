package prescription

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/amr/amr/internal/platform/auth"
	"github.com/amr/amr/pkg/pagination"
)

// NameResolver maps an authenticated username to a prescriber display name.
// Satisfied by the doctor service.
type NameResolver interface {
	ResolveName(ctx context.Context, username string) string
}

type Handler struct {
	svc      *Service
	resolver NameResolver
}

func NewHandler(svc *Service, resolver NameResolver) *Handler {
	return &Handler{svc: svc, resolver: resolver}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Read endpoints – admin, doctor, nurse
	readGroup := api.Group("", auth.RequireRole("admin", "doctor", "nurse"))
	readGroup.GET("/prescriptions", h.ListPrescriptions)
	readGroup.GET("/prescriptions/:id", h.GetPrescription)

	// Write endpoints – admin, doctor
	writeGroup := api.Group("", auth.RequireRole("admin", "doctor"))
	writeGroup.POST("/prescriptions", h.CreatePrescription)
	writeGroup.POST("/prescriptions/:id/complete", h.CompletePrescription)
	writeGroup.POST("/prescriptions/:id/cancel", h.CancelPrescription)
	writeGroup.POST("/prescriptions/:id/substitute", h.SubstituteAntibiotic)

	// Feedback is submitted by patients themselves, so it is open to any
	// authenticated user with no role gate.
	api.POST("/feedback", h.SubmitFeedback)
	api.GET("/feedback", h.GetFeedback)
}

func (h *Handler) CreatePrescription(c echo.Context) error {
	var p Prescription
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if username := auth.UsernameFromContext(c.Request().Context()); username != "" {
		p.DoctorName = h.resolver.ResolveName(c.Request().Context(), username)
	}
	result, err := h.svc.Prescribe(c.Request().Context(), &p)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, result)
}

func (h *Handler) GetPrescription(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "prescription not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPrescriptions(c echo.Context) error {
	pg := pagination.FromContext(c)
	if patientID := c.QueryParam("patient_id"); patientID != "" {
		pid, err := uuid.Parse(patientID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		items, total, err := h.svc.ListByPatient(c.Request().Context(), pid, pg.Limit, pg.Offset)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
	}
	params := map[string]string{}
	for _, k := range []string{"status", "doctor_name"} {
		if v := c.QueryParam(k); v != "" {
			params[k] = v
		}
	}
	items, total, err := h.svc.Search(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) CompletePrescription(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.Complete(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) CancelPrescription(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.Cancel(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

type substituteRequest struct {
	AntibioticID uuid.UUID `json:"antibiotic_id"`
}

func (h *Handler) SubstituteAntibiotic(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req substituteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.AntibioticID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "antibiotic_id is required")
	}
	p, err := h.svc.Substitute(c.Request().Context(), id, req.AntibioticID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) SubmitFeedback(c echo.Context) error {
	var f Feedback
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if f.PatientID == uuid.Nil || f.PrescriptionID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_id and prescription_id are required")
	}
	saved, err := h.svc.SubmitFeedback(c.Request().Context(), &f)
	if errors.Is(err, ErrDuplicate) {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, saved)
}

func (h *Handler) GetFeedback(c echo.Context) error {
	patientID, err := uuid.Parse(c.QueryParam("patient_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
	}
	if prescriptionID := c.QueryParam("prescription_id"); prescriptionID != "" {
		pid, err := uuid.Parse(prescriptionID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid prescription_id")
		}
		f, err := h.svc.GetFeedback(c.Request().Context(), patientID, pid)
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "feedback not found")
		}
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, f)
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListFeedbackByPatient(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
