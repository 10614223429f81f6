package antibiotic

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, a *Antibiotic) error
	GetByID(ctx context.Context, id uuid.UUID) (*Antibiotic, error)
	GetByName(ctx context.Context, name string) (*Antibiotic, error)
	Update(ctx context.Context, a *Antibiotic) error
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Antibiotic, int, error)
	ListAll(ctx context.Context) ([]*Antibiotic, error)

	// EffectivenessRate is the share of completed prescriptions for this
	// antibiotic whose feedback reported recovery, as a percentage.
	EffectivenessRate(ctx context.Context, id uuid.UUID) (float64, error)

	GetEffectiveness(ctx context.Context, antibioticID uuid.UUID, bacteriaType string) (*Effectiveness, error)
	ListEffectiveness(ctx context.Context, antibioticID uuid.UUID) ([]*Effectiveness, error)
	UpsertEffectiveness(ctx context.Context, e *Effectiveness) error
}
