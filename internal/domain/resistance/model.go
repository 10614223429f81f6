package resistance

import (
	"time"

	"github.com/google/uuid"
)

// Record is one lab susceptibility result for a patient and antibiotic.
// Each patient has at most one record per antibiotic.
type Record struct {
	ID           uuid.UUID `db:"id" json:"id"`
	PatientID    uuid.UUID `db:"patient_id" json:"patient_id"`
	AntibioticID uuid.UUID `db:"antibiotic_id" json:"antibiotic_id"`
	Result       string    `db:"result" json:"result"`
	TestDate     time.Time `db:"test_date" json:"test_date"`
	TestMethod   *string   `db:"test_method" json:"test_method,omitempty"`
	Notes        *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// CheckResult is the response body for a resistance check.
type CheckResult struct {
	PatientID    uuid.UUID `json:"patient_id"`
	AntibioticID uuid.UUID `json:"antibiotic_id"`
	IsResistant  bool      `json:"is_resistant"`
	TestDate     *string   `json:"test_date,omitempty"`
	TestMethod   *string   `json:"test_method,omitempty"`
}
