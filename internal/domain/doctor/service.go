package doctor

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrDuplicate marks uniqueness violations so handlers can answer 409.
var ErrDuplicate = errors.New("duplicate")

// ErrNotFound marks a missing doctor. Callers use it to tell absence
// from a failed lookup.
var ErrNotFound = errors.New("doctor not found")

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, d *Doctor) error {
	if d.Name == "" {
		return fmt.Errorf("doctor name is required")
	}
	if d.LicenseNumber == "" {
		return fmt.Errorf("license_number is required")
	}
	existing, err := s.repo.GetByLicense(ctx, d.LicenseNumber)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%w: license number %s is already registered", ErrDuplicate, d.LicenseNumber)
	}
	return s.repo.Create(ctx, d)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, d *Doctor) error {
	if d.Name == "" {
		return fmt.Errorf("doctor name is required")
	}
	if d.LicenseNumber == "" {
		return fmt.Errorf("license_number is required")
	}
	if _, err := s.repo.GetByID(ctx, d.ID); err != nil {
		return err
	}
	return s.repo.Update(ctx, d)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// ResolveName maps an authenticated username to the doctor's display name,
// falling back to the raw username when no profile exists.
func (s *Service) ResolveName(ctx context.Context, username string) string {
	d, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return username
	}
	return d.Name
}

func (s *Service) Stats(ctx context.Context, id uuid.UUID) (*Stats, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.repo.PrescriptionStats(ctx, d.Name)
}
