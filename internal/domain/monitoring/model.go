package monitoring

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Assessment is a structured questionnaire a clinician fills in during or
// after a course of treatment. Assessments are append-only.
type Assessment struct {
	ID             uuid.UUID `db:"id" json:"id"`
	PatientID      uuid.UUID `db:"patient_id" json:"patient_id"`
	PrescriptionID uuid.UUID `db:"prescription_id" json:"prescription_id"`
	AssessmentType string    `db:"assessment_type" json:"assessment_type"`
	AssessmentDate time.Time `db:"assessment_date" json:"assessment_date"`
	ConductedBy    string    `db:"conducted_by" json:"conducted_by"`

	SymptomImprovement     string  `db:"symptom_improvement" json:"symptom_improvement"`
	SideEffectsExperienced bool    `db:"side_effects_experienced" json:"side_effects_experienced"`
	SideEffectsDetails     *string `db:"side_effects_details" json:"side_effects_details,omitempty"`
	MedicationAdherence    string  `db:"medication_adherence" json:"medication_adherence"`
	PainLevel              *int    `db:"pain_level" json:"pain_level,omitempty"`
	EnergyLevel            *string `db:"energy_level" json:"energy_level,omitempty"`
	AppetiteChanges        *string `db:"appetite_changes" json:"appetite_changes,omitempty"`
	SleepQuality           *string `db:"sleep_quality" json:"sleep_quality,omitempty"`
	AdditionalSymptoms     *string `db:"additional_symptoms" json:"additional_symptoms,omitempty"`
	OverallSatisfaction    string  `db:"overall_satisfaction" json:"overall_satisfaction"`
	DoctorNotes            *string `db:"doctor_notes" json:"doctor_notes,omitempty"`

	NextAssessmentDue *time.Time `db:"next_assessment_due" json:"next_assessment_due,omitempty"`
}

// Alert flags a treatment that needs a clinician's attention. Alerts move
// forward only: active, acknowledged, then resolved or dismissed.
type Alert struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	PatientID        uuid.UUID  `db:"patient_id" json:"patient_id"`
	PrescriptionID   uuid.UUID  `db:"prescription_id" json:"prescription_id"`
	AlertType        string     `db:"alert_type" json:"alert_type"`
	Priority         string     `db:"priority" json:"priority"`
	Title            string     `db:"title" json:"title"`
	Description      string     `db:"description" json:"description"`
	TriggeredBy      string     `db:"triggered_by" json:"triggered_by"`
	CreatedDate      time.Time  `db:"created_date" json:"created_date"`
	AcknowledgedBy   *string    `db:"acknowledged_by" json:"acknowledged_by,omitempty"`
	AcknowledgedDate *time.Time `db:"acknowledged_date" json:"acknowledged_date,omitempty"`
	Status           string     `db:"status" json:"status"`

	AlternativeReasoning *string `db:"alternative_reasoning" json:"alternative_reasoning,omitempty"`
	DoctorActions        *string `db:"doctor_actions" json:"doctor_actions,omitempty"`
	ResolutionNotes      *string `db:"resolution_notes" json:"resolution_notes,omitempty"`
}

// Dashboard is the per-course monitoring state. One per (patient,
// prescription); scores carry the latest assessment's mapping.
type Dashboard struct {
	ID             uuid.UUID `db:"id" json:"id"`
	PatientID      uuid.UUID `db:"patient_id" json:"patient_id"`
	PrescriptionID uuid.UUID `db:"prescription_id" json:"prescription_id"`

	TreatmentStartDate     time.Time  `db:"treatment_start_date" json:"treatment_start_date"`
	ExpectedCompletionDate time.Time  `db:"expected_completion_date" json:"expected_completion_date"`
	LastAssessmentDate     *time.Time `db:"last_assessment_date" json:"last_assessment_date,omitempty"`
	NextAssessmentDue      *time.Time `db:"next_assessment_due" json:"next_assessment_due,omitempty"`

	TreatmentStatus    string  `db:"treatment_status" json:"treatment_status"`
	EffectivenessScore float64 `db:"effectiveness_score" json:"effectiveness_score"`
	AdherenceScore     float64 `db:"adherence_score" json:"adherence_score"`
	SideEffectsScore   float64 `db:"side_effects_score" json:"side_effects_score"`

	HighRiskFactors *string `db:"high_risk_factors" json:"high_risk_factors,omitempty"`
	MonitoringNotes *string `db:"monitoring_notes" json:"monitoring_notes,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// OverallRiskScore combines the three scores into a single risk number
// rounded to one decimal place. The result is not clamped to 0..10.
func (d *Dashboard) OverallRiskScore() float64 {
	score := (d.SideEffectsScore + (10 - d.EffectivenessScore) + (10 - d.AdherenceScore)) / 3
	return math.Round(score*10) / 10
}

// AssessmentResult is the create-assessment response: the stored
// assessment, the refreshed dashboard and any alerts raised.
type AssessmentResult struct {
	Assessment *Assessment `json:"assessment"`
	Dashboard  *Dashboard  `json:"dashboard"`
	Alerts     []*Alert    `json:"alerts"`
}

// Analytics summarises the monitored population.
type Analytics struct {
	TotalPatientsMonitored int     `json:"total_patients_monitored"`
	PatientsAtRisk         int     `json:"patients_at_risk"`
	PatientsOnTrack        int     `json:"patients_on_track"`
	AverageEffectiveness   float64 `json:"average_effectiveness"`
	AverageAdherence       float64 `json:"average_adherence"`
	AverageSideEffects     float64 `json:"average_side_effects"`
}
