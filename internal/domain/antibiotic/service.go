package antibiotic

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrDuplicate marks uniqueness violations so handlers can answer 409.
var ErrDuplicate = errors.New("duplicate")

// ErrNotFound marks a missing antibiotic. Callers use it to tell absence
// from a failed lookup.
var ErrNotFound = errors.New("antibiotic not found")

var validClassTypes = map[string]bool{
	"penicillin":      true,
	"cephalosporin":   true,
	"fluoroquinolone": true,
	"macrolide":       true,
	"tetracycline":    true,
	"aminoglycoside":  true,
	"sulfonamide":     true,
	"carbapenem":      true,
	"other":           true,
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) validate(a *Antibiotic) error {
	if a.Name == "" {
		return fmt.Errorf("antibiotic name is required")
	}
	if a.BacteriaTargeted == "" {
		return fmt.Errorf("bacteria_targeted is required")
	}
	if !validClassTypes[a.ClassType] {
		return fmt.Errorf("invalid class_type: %s", a.ClassType)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, a *Antibiotic) error {
	if err := s.validate(a); err != nil {
		return err
	}
	existing, err := s.repo.GetByName(ctx, a.Name)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%w: antibiotic %q already exists", ErrDuplicate, a.Name)
	}
	return s.repo.Create(ctx, a)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Detail, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	rate, err := s.repo.EffectivenessRate(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Detail{Antibiotic: a, EffectivenessRate: rate}, nil
}

func (s *Service) Update(ctx context.Context, a *Antibiotic) error {
	if err := s.validate(a); err != nil {
		return err
	}
	if _, err := s.repo.GetByID(ctx, a.ID); err != nil {
		return err
	}
	return s.repo.Update(ctx, a)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Antibiotic, int, error) {
	return s.repo.Search(ctx, params, limit, offset)
}

func (s *Service) ListEffectiveness(ctx context.Context, antibioticID uuid.UUID) ([]*Effectiveness, error) {
	if _, err := s.repo.GetByID(ctx, antibioticID); err != nil {
		return nil, err
	}
	return s.repo.ListEffectiveness(ctx, antibioticID)
}

// RecordOutcome folds one piece of treatment feedback into the per-bacteria
// effectiveness counters for an antibiotic.
func (s *Service) RecordOutcome(ctx context.Context, antibioticID uuid.UUID, bacteriaType, feedback string) error {
	eff, err := s.repo.GetEffectiveness(ctx, antibioticID, bacteriaType)
	if err != nil {
		eff = &Effectiveness{AntibioticID: antibioticID, BacteriaType: bacteriaType}
	}
	eff.TotalPrescriptions++
	switch feedback {
	case "recovered":
		eff.SuccessfulTreatments++
	case "no_improvement", "worsening":
		eff.FailedTreatments++
	case "side_effects":
		eff.SideEffectsReported++
	}
	return s.repo.UpsertEffectiveness(ctx, eff)
}
