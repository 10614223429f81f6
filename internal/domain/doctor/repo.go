package doctor

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetByUsername(ctx context.Context, username string) (*Doctor, error)
	GetByLicense(ctx context.Context, licenseNumber string) (*Doctor, error)
	Update(ctx context.Context, d *Doctor) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Doctor, int, error)

	// PrescriptionStats counts prescriptions grouped by status for the
	// given doctor display name.
	PrescriptionStats(ctx context.Context, doctorName string) (*Stats, error)
}
