package patient

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrNotFound marks a missing patient. Callers use it to tell absence
// from a failed lookup.
var ErrNotFound = errors.New("patient not found")

var validGenders = map[string]bool{
	"M": true,
	"F": true,
	"O": true,
}

// Service owns patient demographics and the resistance summary view.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, p *Patient) error {
	if p.Name == "" {
		return fmt.Errorf("patient name is required")
	}
	if p.Age < 0 || p.Age > 150 {
		return fmt.Errorf("patient age must be between 0 and 150")
	}
	if !validGenders[p.Gender] {
		return fmt.Errorf("invalid gender: %s", p.Gender)
	}
	return s.repo.Create(ctx, p)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Detail, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	count, err := s.repo.ResistantCount(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Detail{Patient: p, ResistantCount: count}, nil
}

func (s *Service) Update(ctx context.Context, p *Patient) error {
	if p.Name == "" {
		return fmt.Errorf("patient name is required")
	}
	if p.Age < 0 || p.Age > 150 {
		return fmt.Errorf("patient age must be between 0 and 150")
	}
	if !validGenders[p.Gender] {
		return fmt.Errorf("invalid gender: %s", p.Gender)
	}
	if _, err := s.repo.GetByID(ctx, p.ID); err != nil {
		return err
	}
	return s.repo.Update(ctx, p)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Patient, int, error) {
	return s.repo.Search(ctx, params, limit, offset)
}
