package monitoring

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/amr/amr/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

func conn(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return pool
}

// -- Assessments --

type assessmentRepoPG struct{ pool *pgxpool.Pool }

func NewAssessmentRepoPG(pool *pgxpool.Pool) AssessmentRepository {
	return &assessmentRepoPG{pool: pool}
}

const assessmentCols = `id, patient_id, prescription_id, assessment_type, assessment_date, conducted_by,
	symptom_improvement, side_effects_experienced, side_effects_details, medication_adherence,
	pain_level, energy_level, appetite_changes, sleep_quality, additional_symptoms,
	overall_satisfaction, doctor_notes, next_assessment_due`

func scanAssessment(row pgx.Row) (*Assessment, error) {
	var a Assessment
	err := row.Scan(&a.ID, &a.PatientID, &a.PrescriptionID, &a.AssessmentType, &a.AssessmentDate,
		&a.ConductedBy, &a.SymptomImprovement, &a.SideEffectsExperienced, &a.SideEffectsDetails,
		&a.MedicationAdherence, &a.PainLevel, &a.EnergyLevel, &a.AppetiteChanges, &a.SleepQuality,
		&a.AdditionalSymptoms, &a.OverallSatisfaction, &a.DoctorNotes, &a.NextAssessmentDue)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *assessmentRepoPG) Create(ctx context.Context, a *Assessment) error {
	a.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO patient_assessment (id, patient_id, prescription_id, assessment_type, conducted_by,
			symptom_improvement, side_effects_experienced, side_effects_details, medication_adherence,
			pain_level, energy_level, appetite_changes, sleep_quality, additional_symptoms,
			overall_satisfaction, doctor_notes, next_assessment_due)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		a.ID, a.PatientID, a.PrescriptionID, a.AssessmentType, a.ConductedBy,
		a.SymptomImprovement, a.SideEffectsExperienced, a.SideEffectsDetails, a.MedicationAdherence,
		a.PainLevel, a.EnergyLevel, a.AppetiteChanges, a.SleepQuality, a.AdditionalSymptoms,
		a.OverallSatisfaction, a.DoctorNotes, a.NextAssessmentDue)
	return err
}

func (r *assessmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Assessment, error) {
	return scanAssessment(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+assessmentCols+` FROM patient_assessment WHERE id = $1`, id))
}

func (r *assessmentRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Assessment, int, error) {
	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM patient_assessment WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT `+assessmentCols+` FROM patient_assessment WHERE patient_id = $1 ORDER BY assessment_date DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Assessment
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, nil
}

func (r *assessmentRepoPG) ListRecent(ctx context.Context, limit int) ([]*Assessment, error) {
	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT `+assessmentCols+` FROM patient_assessment ORDER BY assessment_date DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Assessment
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, nil
}

// -- Alerts --

type alertRepoPG struct{ pool *pgxpool.Pool }

func NewAlertRepoPG(pool *pgxpool.Pool) AlertRepository {
	return &alertRepoPG{pool: pool}
}

const alertCols = `id, patient_id, prescription_id, alert_type, priority, title, description, triggered_by,
	created_date, acknowledged_by, acknowledged_date, status, alternative_reasoning, doctor_actions, resolution_notes`

func scanAlert(row pgx.Row) (*Alert, error) {
	var a Alert
	err := row.Scan(&a.ID, &a.PatientID, &a.PrescriptionID, &a.AlertType, &a.Priority, &a.Title,
		&a.Description, &a.TriggeredBy, &a.CreatedDate, &a.AcknowledgedBy, &a.AcknowledgedDate,
		&a.Status, &a.AlternativeReasoning, &a.DoctorActions, &a.ResolutionNotes)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *alertRepoPG) Create(ctx context.Context, a *Alert) error {
	a.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO medicine_effectiveness_alert (id, patient_id, prescription_id, alert_type, priority,
			title, description, triggered_by, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		a.ID, a.PatientID, a.PrescriptionID, a.AlertType, a.Priority,
		a.Title, a.Description, a.TriggeredBy, a.Status)
	return err
}

func (r *alertRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Alert, error) {
	return scanAlert(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+alertCols+` FROM medicine_effectiveness_alert WHERE id = $1`, id))
}

func (r *alertRepoPG) Update(ctx context.Context, a *Alert) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE medicine_effectiveness_alert SET priority=$2, status=$3, acknowledged_by=$4,
			acknowledged_date=$5, alternative_reasoning=$6, doctor_actions=$7, resolution_notes=$8
		WHERE id = $1`,
		a.ID, a.Priority, a.Status, a.AcknowledgedBy, a.AcknowledgedDate,
		a.AlternativeReasoning, a.DoctorActions, a.ResolutionNotes)
	return err
}

func (r *alertRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Alert, int, error) {
	where := ""
	var args []interface{}

	addClause := func(clause string, value interface{}) {
		args = append(args, value)
		if where == "" {
			where = fmt.Sprintf(" WHERE %s = $%d", clause, len(args))
		} else {
			where += fmt.Sprintf(" AND %s = $%d", clause, len(args))
		}
	}
	if v := params["priority"]; v != "" {
		addClause("priority", v)
	}
	if v := params["status"]; v != "" {
		addClause("status", v)
	}
	if v := params["patient_id"]; v != "" {
		addClause("patient_id", v)
	}

	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM medicine_effectiveness_alert`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := conn(ctx, r.pool).Query(ctx,
		fmt.Sprintf(`SELECT %s FROM medicine_effectiveness_alert%s ORDER BY created_date DESC LIMIT $%d OFFSET $%d`,
			alertCols, where, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, nil
}

// -- Dashboards --

type dashboardRepoPG struct{ pool *pgxpool.Pool }

func NewDashboardRepoPG(pool *pgxpool.Pool) DashboardRepository {
	return &dashboardRepoPG{pool: pool}
}

const dashboardCols = `id, patient_id, prescription_id, treatment_start_date, expected_completion_date,
	last_assessment_date, next_assessment_due, treatment_status, effectiveness_score, adherence_score,
	side_effects_score, high_risk_factors, monitoring_notes, created_at, updated_at`

func scanDashboard(row pgx.Row) (*Dashboard, error) {
	var d Dashboard
	err := row.Scan(&d.ID, &d.PatientID, &d.PrescriptionID, &d.TreatmentStartDate, &d.ExpectedCompletionDate,
		&d.LastAssessmentDate, &d.NextAssessmentDue, &d.TreatmentStatus, &d.EffectivenessScore,
		&d.AdherenceScore, &d.SideEffectsScore, &d.HighRiskFactors, &d.MonitoringNotes,
		&d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *dashboardRepoPG) Create(ctx context.Context, d *Dashboard) error {
	d.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO patient_monitoring_dashboard (id, patient_id, prescription_id, treatment_start_date,
			expected_completion_date, last_assessment_date, next_assessment_due, treatment_status,
			effectiveness_score, adherence_score, side_effects_score, high_risk_factors, monitoring_notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		d.ID, d.PatientID, d.PrescriptionID, d.TreatmentStartDate, d.ExpectedCompletionDate,
		d.LastAssessmentDate, d.NextAssessmentDue, d.TreatmentStatus,
		d.EffectivenessScore, d.AdherenceScore, d.SideEffectsScore, d.HighRiskFactors, d.MonitoringNotes)
	if db.IsUniqueViolation(err) {
		return fmt.Errorf("%w: dashboard already exists for this prescription", ErrDuplicate)
	}
	return err
}

func (r *dashboardRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Dashboard, error) {
	return scanDashboard(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+dashboardCols+` FROM patient_monitoring_dashboard WHERE id = $1`, id))
}

func (r *dashboardRepoPG) GetByPatientAndPrescription(ctx context.Context, patientID, prescriptionID uuid.UUID) (*Dashboard, error) {
	return scanDashboard(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+dashboardCols+` FROM patient_monitoring_dashboard WHERE patient_id = $1 AND prescription_id = $2`,
		patientID, prescriptionID))
}

func (r *dashboardRepoPG) Update(ctx context.Context, d *Dashboard) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE patient_monitoring_dashboard SET last_assessment_date=$2, next_assessment_due=$3,
			treatment_status=$4, effectiveness_score=$5, adherence_score=$6, side_effects_score=$7,
			high_risk_factors=$8, monitoring_notes=$9, updated_at=NOW()
		WHERE id = $1`,
		d.ID, d.LastAssessmentDate, d.NextAssessmentDue, d.TreatmentStatus,
		d.EffectivenessScore, d.AdherenceScore, d.SideEffectsScore, d.HighRiskFactors, d.MonitoringNotes)
	return err
}

func (r *dashboardRepoPG) List(ctx context.Context, limit, offset int) ([]*Dashboard, int, error) {
	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM patient_monitoring_dashboard`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT `+dashboardCols+` FROM patient_monitoring_dashboard ORDER BY updated_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Dashboard
	for rows.Next() {
		d, err := scanDashboard(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, nil
}

func (r *dashboardRepoPG) Analytics(ctx context.Context) (*Analytics, error) {
	var a Analytics
	err := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE treatment_status IN ('concern', 'critical')),
			COUNT(*) FILTER (WHERE treatment_status = 'on_track'),
			COALESCE(AVG(effectiveness_score), 0),
			COALESCE(AVG(adherence_score), 0),
			COALESCE(AVG(side_effects_score), 0)
		FROM patient_monitoring_dashboard`).
		Scan(&a.TotalPatientsMonitored, &a.PatientsAtRisk, &a.PatientsOnTrack,
			&a.AverageEffectiveness, &a.AverageAdherence, &a.AverageSideEffects)
	return &a, err
}
