package antibiotic

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Antibiotic describes a drug and the bacteria it targets. BacteriaTargeted
// is stored as a comma-separated list to match the clinical import format.
type Antibiotic struct {
	ID                uuid.UUID `db:"id" json:"id"`
	Name              string    `db:"name" json:"name"`
	BacteriaTargeted  string    `db:"bacteria_targeted" json:"bacteria_targeted"`
	ClassType         string    `db:"class_type" json:"class_type"`
	Description       *string   `db:"description" json:"description,omitempty"`
	DosageInfo        *string   `db:"dosage_info" json:"dosage_info,omitempty"`
	Contraindications *string   `db:"contraindications" json:"contraindications,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// TargetedBacteria splits BacteriaTargeted on commas, trimming whitespace
// and dropping empty tokens.
func (a *Antibiotic) TargetedBacteria() []string {
	var out []string
	for _, b := range strings.Split(a.BacteriaTargeted, ",") {
		if t := strings.TrimSpace(b); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Detail is the single-antibiotic view with the computed effectiveness rate.
type Detail struct {
	*Antibiotic
	EffectivenessRate float64 `json:"effectiveness_rate"`
}

// Effectiveness tracks aggregate treatment outcomes for one antibiotic
// against one bacteria type.
type Effectiveness struct {
	ID                   uuid.UUID `db:"id" json:"id"`
	AntibioticID         uuid.UUID `db:"antibiotic_id" json:"antibiotic_id"`
	BacteriaType         string    `db:"bacteria_type" json:"bacteria_type"`
	TotalPrescriptions   int       `db:"total_prescriptions" json:"total_prescriptions"`
	SuccessfulTreatments int       `db:"successful_treatments" json:"successful_treatments"`
	FailedTreatments     int       `db:"failed_treatments" json:"failed_treatments"`
	SideEffectsReported  int       `db:"side_effects_reported" json:"side_effects_reported"`
	LastUpdated          time.Time `db:"last_updated" json:"last_updated"`
}

// SuccessRate is successful treatments over total prescriptions as a
// percentage, one decimal place, 0 when nothing has been recorded.
func (e *Effectiveness) SuccessRate() float64 {
	if e.TotalPrescriptions == 0 {
		return 0
	}
	rate := float64(e.SuccessfulTreatments) / float64(e.TotalPrescriptions) * 100
	return math.Round(rate*10) / 10
}
