package reporting

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	"github.com/amr/amr/internal/platform/auth"
)

// MeasureDefinition defines a reporting measure with its SQL query.
type MeasureDefinition struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	SQL         string   `json:"sql"`
	Parameters  []string `json:"parameters"`
}

// MeasureReport holds the results of evaluating a measure.
type MeasureReport struct {
	MeasureID   string                   `json:"measure_id"`
	MeasureName string                   `json:"measure_name"`
	GeneratedAt time.Time                `json:"generated_at"`
	Results     []map[string]interface{} `json:"results"`
	Parameters  map[string]string        `json:"parameters,omitempty"`
}

// PredefinedMeasures is the list of available reporting measures.
var PredefinedMeasures = []MeasureDefinition{
	{
		ID:          "antibiotic-effectiveness",
		Name:        "Antibiotic Effectiveness",
		Description: "Per antibiotic: completed courses, recovery-confirmed courses, and effectiveness rate",
		SQL: `SELECT a.name AS antibiotic,
       COUNT(p.id) FILTER (WHERE p.status = 'completed') AS completed,
       COUNT(p.id) FILTER (WHERE p.status = 'completed' AND f.feedback = 'recovered') AS recovered,
       COALESCE(ROUND(
           COUNT(p.id) FILTER (WHERE p.status = 'completed' AND f.feedback = 'recovered')::numeric * 100
           / NULLIF(COUNT(p.id) FILTER (WHERE p.status = 'completed'), 0), 1), 0) AS effectiveness_rate
FROM antibiotic a
LEFT JOIN prescription p ON p.antibiotic_id = a.id
LEFT JOIN feedback f ON f.prescription_id = p.id
GROUP BY a.name ORDER BY effectiveness_rate DESC, a.name`,
		Parameters: []string{},
	},
	{
		ID:          "resistance-distribution",
		Name:        "Resistance Test Distribution",
		Description: "Number of resistance test records grouped by result",
		SQL:         `SELECT result, COUNT(*) AS total FROM resistance_record GROUP BY result ORDER BY total DESC`,
		Parameters:  []string{},
	},
	{
		ID:          "prescription-volume-by-status",
		Name:        "Prescription Volume by Status",
		Description: "Count of prescriptions grouped by status",
		SQL:         `SELECT status, COUNT(*) AS total FROM prescription GROUP BY status ORDER BY total DESC`,
		Parameters:  []string{},
	},
	{
		ID:          "feedback-outcomes",
		Name:        "Feedback Outcomes",
		Description: "Count of patient feedback entries grouped by reported outcome",
		SQL:         `SELECT feedback, COUNT(*) AS total FROM feedback GROUP BY feedback ORDER BY total DESC`,
		Parameters:  []string{},
	},
	{
		ID:          "alert-summary",
		Name:        "Alert Summary",
		Description: "Count of effectiveness alerts grouped by priority and status",
		SQL:         `SELECT priority, status, COUNT(*) AS total FROM medicine_effectiveness_alert GROUP BY priority, status ORDER BY total DESC`,
		Parameters:  []string{},
	},
	{
		ID:          "treatment-status-summary",
		Name:        "Treatment Status Summary",
		Description: "Count of monitored treatments grouped by derived status",
		SQL:         `SELECT treatment_status, COUNT(*) AS total FROM patient_monitoring_dashboard GROUP BY treatment_status ORDER BY total DESC`,
		Parameters:  []string{},
	},
}

// Handler provides HTTP handlers for the reporting API.
type Handler struct {
	pool *pgxpool.Pool
}

// NewHandler creates a new reporting handler.
func NewHandler(pool *pgxpool.Pool) *Handler {
	return &Handler{pool: pool}
}

// RegisterRoutes registers the reporting API routes.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	reportGroup := api.Group("/reports", auth.RequireRole("admin", "doctor"))
	reportGroup.GET("/measures", h.ListMeasures)
	reportGroup.GET("/measures/:id/evaluate", h.EvaluateMeasure)
}

// ListMeasures returns all available measure definitions.
func (h *Handler) ListMeasures(c echo.Context) error {
	return c.JSON(http.StatusOK, PredefinedMeasures)
}

// EvaluateMeasure executes a measure's SQL and returns the results.
func (h *Handler) EvaluateMeasure(c echo.Context) error {
	measureID := c.Param("id")

	measure := FindMeasure(measureID)
	if measure == nil {
		return echo.NewHTTPError(http.StatusNotFound, "measure not found")
	}

	params := map[string]string{}
	for _, p := range measure.Parameters {
		if v := c.QueryParam(p); v != "" {
			params[p] = v
		}
	}

	results, err := h.executeSQL(c.Request().Context(), measure.SQL)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("query failed: %v", err))
	}

	report := MeasureReport{
		MeasureID:   measure.ID,
		MeasureName: measure.Name,
		GeneratedAt: time.Now(),
		Results:     results,
		Parameters:  params,
	}

	return c.JSON(http.StatusOK, report)
}

// executeSQL runs a SQL query and returns results as a slice of maps.
func (h *Handler) executeSQL(ctx context.Context, sql string) ([]map[string]interface{}, error) {
	rows, err := h.pool.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	var results []map[string]interface{}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}

		row := make(map[string]interface{}, len(fieldDescs))
		for i, fd := range fieldDescs {
			row[string(fd.Name)] = values[i]
		}
		results = append(results, row)
	}

	if results == nil {
		results = []map[string]interface{}{}
	}

	return results, nil
}

// FindMeasure looks up a measure by ID.
func FindMeasure(id string) *MeasureDefinition {
	for i := range PredefinedMeasures {
		if PredefinedMeasures[i].ID == id {
			return &PredefinedMeasures[i]
		}
	}
	return nil
}
