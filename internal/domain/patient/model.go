package patient

import (
	"time"

	"github.com/google/uuid"
)

// Patient maps to the patient table.
type Patient struct {
	ID             uuid.UUID `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Age            int       `db:"age" json:"age"`
	Gender         string    `db:"gender" json:"gender"`
	Phone          *string   `db:"phone" json:"phone,omitempty"`
	Email          *string   `db:"email" json:"email,omitempty"`
	MedicalHistory *string   `db:"medical_history" json:"medical_history,omitempty"`
	Allergies      *string   `db:"allergies" json:"allergies,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Detail is a patient together with the number of antibiotics the patient
// has tested resistant to.
type Detail struct {
	*Patient
	ResistantCount int `json:"resistant_count"`
}
