package resistance

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, rec *Record) error
	GetByID(ctx context.Context, id uuid.UUID) (*Record, error)
	GetByPatientAndAntibiotic(ctx context.Context, patientID, antibioticID uuid.UUID) (*Record, error)
	Update(ctx context.Context, rec *Record) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Record, int, error)
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Record, int, error)

	// ResistantAntibioticIDs returns the ids of every antibiotic the
	// patient has a resistant result against.
	ResistantAntibioticIDs(ctx context.Context, patientID uuid.UUID) ([]uuid.UUID, error)
}
