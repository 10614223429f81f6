package doctor

import (
	"time"

	"github.com/google/uuid"
)

// Doctor is a prescriber profile, optionally linked to an auth user by
// username. Prescriptions reference doctors by display name, so stats are
// resolved through Name rather than the id.
type Doctor struct {
	ID             uuid.UUID `db:"id" json:"id"`
	Username       *string   `db:"username" json:"username,omitempty"`
	Name           string    `db:"name" json:"name"`
	LicenseNumber  string    `db:"license_number" json:"license_number"`
	Specialization *string   `db:"specialization" json:"specialization,omitempty"`
	Hospital       *string   `db:"hospital" json:"hospital,omitempty"`
	Phone          *string   `db:"phone" json:"phone,omitempty"`
	Email          *string   `db:"email" json:"email,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Stats summarises prescribing activity for one doctor.
type Stats struct {
	DoctorName             string `json:"doctor_name"`
	TotalPrescriptions     int    `json:"total_prescriptions"`
	ActivePrescriptions    int    `json:"active_prescriptions"`
	CompletedPrescriptions int    `json:"completed_prescriptions"`
	CancelledPrescriptions int    `json:"cancelled_prescriptions"`
}
