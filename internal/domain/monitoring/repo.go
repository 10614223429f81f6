package monitoring

import (
	"context"

	"github.com/google/uuid"
)

type AssessmentRepository interface {
	Create(ctx context.Context, a *Assessment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Assessment, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Assessment, int, error)
	ListRecent(ctx context.Context, limit int) ([]*Assessment, error)
}

type AlertRepository interface {
	Create(ctx context.Context, a *Alert) error
	GetByID(ctx context.Context, id uuid.UUID) (*Alert, error)
	Update(ctx context.Context, a *Alert) error
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Alert, int, error)
}

type DashboardRepository interface {
	Create(ctx context.Context, d *Dashboard) error
	GetByID(ctx context.Context, id uuid.UUID) (*Dashboard, error)
	GetByPatientAndPrescription(ctx context.Context, patientID, prescriptionID uuid.UUID) (*Dashboard, error)
	Update(ctx context.Context, d *Dashboard) error
	List(ctx context.Context, limit, offset int) ([]*Dashboard, int, error)
	Analytics(ctx context.Context) (*Analytics, error)
}
