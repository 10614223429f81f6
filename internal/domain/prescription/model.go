package prescription

import (
	"time"

	"github.com/google/uuid"

	"github.com/amr/amr/internal/domain/antibiotic"
)

// Prescription records one antibiotic course ordered for a patient.
// DoctorName is the resolved display name of the prescriber.
type Prescription struct {
	ID             uuid.UUID `db:"id" json:"id"`
	DoctorName     string    `db:"doctor_name" json:"doctor_name"`
	PatientID      uuid.UUID `db:"patient_id" json:"patient_id"`
	AntibioticID   uuid.UUID `db:"antibiotic_id" json:"antibiotic_id"`
	Diagnosis      string    `db:"diagnosis" json:"diagnosis"`
	Dosage         string    `db:"dosage" json:"dosage"`
	Frequency      string    `db:"frequency" json:"frequency"`
	Duration       string    `db:"duration" json:"duration"`
	DatePrescribed time.Time `db:"date_prescribed" json:"date_prescribed"`
	Status         string    `db:"status" json:"status"`
	Notes          *string   `db:"notes" json:"notes,omitempty"`
}

// Feedback is a patient's own report on how a course went. One per
// prescription; re-submission updates in place.
type Feedback struct {
	ID             uuid.UUID `db:"id" json:"id"`
	PatientID      uuid.UUID `db:"patient_id" json:"patient_id"`
	PrescriptionID uuid.UUID `db:"prescription_id" json:"prescription_id"`
	Feedback       string    `db:"feedback" json:"feedback"`
	FeedbackDate   time.Time `db:"feedback_date" json:"feedback_date"`
	Details        *string   `db:"details" json:"details,omitempty"`
	SeverityRating *int      `db:"severity_rating" json:"severity_rating,omitempty"`
}

// PrescribeResult is the create response. When the patient is resistant to
// the prescribed antibiotic the warning and alternatives are populated; the
// prescription is created either way.
type PrescribeResult struct {
	Prescription      *Prescription            `json:"prescription"`
	ResistanceWarning string                   `json:"resistance_warning,omitempty"`
	Alternatives      []*antibiotic.Antibiotic `json:"alternatives,omitempty"`
}
