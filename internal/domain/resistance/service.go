package resistance

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/amr/amr/internal/domain/antibiotic"
)

// ErrDuplicate marks uniqueness violations so handlers can answer 409.
var ErrDuplicate = errors.New("duplicate")

// ErrNotFound marks a missing record. Callers use it to tell absence
// from a failed lookup; any other repository error is a real failure.
var ErrNotFound = errors.New("resistance record not found")

var validResults = map[string]bool{
	"resistant":    true,
	"sensitive":    true,
	"intermediate": true,
}

// Service owns susceptibility records and the resistance-aware
// alternative lookup used when prescribing.
type Service struct {
	records     Repository
	antibiotics antibiotic.Repository
}

func NewService(records Repository, antibiotics antibiotic.Repository) *Service {
	return &Service{records: records, antibiotics: antibiotics}
}

func (s *Service) Create(ctx context.Context, rec *Record) error {
	if !validResults[rec.Result] {
		return fmt.Errorf("invalid result: %s", rec.Result)
	}
	if rec.TestDate.IsZero() {
		return fmt.Errorf("test_date is required")
	}
	existing, err := s.records.GetByPatientAndAntibiotic(ctx, rec.PatientID, rec.AntibioticID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%w: resistance record already exists for this patient and antibiotic", ErrDuplicate)
	}
	return s.records.Create(ctx, rec)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	return s.records.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, rec *Record) error {
	if !validResults[rec.Result] {
		return fmt.Errorf("invalid result: %s", rec.Result)
	}
	if _, err := s.records.GetByID(ctx, rec.ID); err != nil {
		return err
	}
	return s.records.Update(ctx, rec)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.records.GetByID(ctx, id); err != nil {
		return err
	}
	return s.records.Delete(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Record, int, error) {
	return s.records.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Record, int, error) {
	return s.records.Search(ctx, params, limit, offset)
}

// IsResistant reports whether the patient has a recorded resistant result
// against the antibiotic. Sensitive and intermediate results do not count.
// A missing record means not resistant; any other lookup failure is an
// error, never a silent "not resistant".
func (s *Service) IsResistant(ctx context.Context, patientID, antibioticID uuid.UUID) (bool, error) {
	rec, err := s.records.GetByPatientAndAntibiotic(ctx, patientID, antibioticID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return rec.Result == "resistant", nil
}

// Check performs a resistance lookup and returns the full check result,
// including test details when a resistant record exists.
func (s *Service) Check(ctx context.Context, patientID, antibioticID uuid.UUID) (*CheckResult, error) {
	result := &CheckResult{PatientID: patientID, AntibioticID: antibioticID}
	rec, err := s.records.GetByPatientAndAntibiotic(ctx, patientID, antibioticID)
	if errors.Is(err, ErrNotFound) {
		return result, nil
	}
	if err != nil {
		return nil, err
	}
	if rec.Result != "resistant" {
		return result, nil
	}
	result.IsResistant = true
	d := rec.TestDate.Format("2006-01-02")
	result.TestDate = &d
	result.TestMethod = rec.TestMethod
	return result, nil
}

// Alternatives lists antibiotics that target the same bacteria as the
// given one and that the patient is not resistant to. Matching is on the
// first targeted bacterium only, as a case-insensitive substring.
func (s *Service) Alternatives(ctx context.Context, patientID, antibioticID uuid.UUID) ([]*antibiotic.Antibiotic, error) {
	ab, err := s.antibiotics.GetByID(ctx, antibioticID)
	if err != nil {
		return nil, err
	}

	bacteria := ab.TargetedBacteria()
	if len(bacteria) == 0 {
		return []*antibiotic.Antibiotic{}, nil
	}
	target := strings.ToLower(bacteria[0])

	resistantIDs, err := s.records.ResistantAntibioticIDs(ctx, patientID)
	if err != nil {
		return nil, err
	}
	resistant := make(map[uuid.UUID]bool, len(resistantIDs))
	for _, id := range resistantIDs {
		resistant[id] = true
	}

	all, err := s.antibiotics.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	alternatives := []*antibiotic.Antibiotic{}
	for _, candidate := range all {
		if candidate.ID == ab.ID || resistant[candidate.ID] {
			continue
		}
		if strings.Contains(strings.ToLower(candidate.BacteriaTargeted), target) {
			alternatives = append(alternatives, candidate)
		}
	}
	return alternatives, nil
}
