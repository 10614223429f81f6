package prescription

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/amr/amr/internal/domain/antibiotic"
	"github.com/amr/amr/internal/domain/patient"
	"github.com/amr/amr/internal/domain/resistance"
	"github.com/amr/amr/internal/platform/db"
)

// ErrDuplicate marks uniqueness violations so handlers can answer 409.
var ErrDuplicate = errors.New("duplicate")

// ErrNotFound marks a missing prescription or feedback row. Callers use
// it to tell absence from a failed lookup.
var ErrNotFound = errors.New("prescription not found")

var validStatuses = map[string]bool{
	"active":    true,
	"completed": true,
	"cancelled": true,
}

var validFeedback = map[string]bool{
	"recovered":        true,
	"no_improvement":   true,
	"side_effects":     true,
	"worsening":        true,
	"partial_recovery": true,
}

// OutcomeRecorder folds treatment feedback into per-bacteria effectiveness
// counters. Satisfied by the antibiotic service.
type OutcomeRecorder interface {
	RecordOutcome(ctx context.Context, antibioticID uuid.UUID, bacteriaType, feedback string) error
}

// Service owns the prescribing flow: resistance-checked creation, explicit
// status transitions, antibiotic substitution and patient feedback.
type Service struct {
	prescriptions Repository
	feedback      FeedbackRepository
	resistance    *resistance.Service
	antibiotics   antibiotic.Repository
	patients      patient.Repository
	outcomes      OutcomeRecorder
	tx            db.TxRunner
}

func NewService(
	prescriptions Repository,
	feedback FeedbackRepository,
	resistanceSvc *resistance.Service,
	antibiotics antibiotic.Repository,
	patients patient.Repository,
	outcomes OutcomeRecorder,
	tx db.TxRunner,
) *Service {
	return &Service{
		prescriptions: prescriptions,
		feedback:      feedback,
		resistance:    resistanceSvc,
		antibiotics:   antibiotics,
		patients:      patients,
		outcomes:      outcomes,
		tx:            tx,
	}
}

// Prescribe creates the prescription and then runs the resistance check.
// The prescription is persisted even when the patient is resistant; the
// result carries a warning and the alternatives set so the caller can
// substitute.
func (s *Service) Prescribe(ctx context.Context, p *Prescription) (*PrescribeResult, error) {
	if p.Diagnosis == "" {
		return nil, fmt.Errorf("diagnosis is required")
	}
	if p.Dosage == "" || p.Frequency == "" || p.Duration == "" {
		return nil, fmt.Errorf("dosage, frequency and duration are required")
	}
	if p.DoctorName == "" {
		return nil, fmt.Errorf("doctor_name is required")
	}
	if p.Status == "" {
		p.Status = "active"
	}
	if !validStatuses[p.Status] {
		return nil, fmt.Errorf("invalid status: %s", p.Status)
	}

	pat, err := s.patients.GetByID(ctx, p.PatientID)
	if errors.Is(err, patient.ErrNotFound) {
		return nil, fmt.Errorf("patient not found")
	}
	if err != nil {
		return nil, err
	}
	ab, err := s.antibiotics.GetByID(ctx, p.AntibioticID)
	if errors.Is(err, antibiotic.ErrNotFound) {
		return nil, fmt.Errorf("antibiotic not found")
	}
	if err != nil {
		return nil, err
	}

	if err := s.prescriptions.Create(ctx, p); err != nil {
		return nil, err
	}

	result := &PrescribeResult{Prescription: p}
	isResistant, err := s.resistance.IsResistant(ctx, p.PatientID, p.AntibioticID)
	if err != nil {
		return nil, err
	}
	if isResistant {
		result.ResistanceWarning = fmt.Sprintf("WARNING: %s has resistance to %s!", pat.Name, ab.Name)
		alternatives, err := s.resistance.Alternatives(ctx, p.PatientID, p.AntibioticID)
		if err != nil {
			return nil, err
		}
		result.Alternatives = alternatives
	}
	return result, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	return s.prescriptions.GetByID(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Prescription, int, error) {
	return s.prescriptions.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Prescription, int, error) {
	return s.prescriptions.Search(ctx, params, limit, offset)
}

// Complete moves an active prescription to completed.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	return s.transition(ctx, id, "completed")
}

// Cancel moves an active prescription to cancelled.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	return s.transition(ctx, id, "cancelled")
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, target string) (*Prescription, error) {
	p, err := s.prescriptions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != "active" {
		return nil, fmt.Errorf("prescription is %s, only active prescriptions can be %s", p.Status, target)
	}
	p.Status = target
	if err := s.prescriptions.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Substitute swaps the antibiotic on an active prescription, typically after
// a resistance warning surfaced alternatives.
func (s *Service) Substitute(ctx context.Context, id, alternativeID uuid.UUID) (*Prescription, error) {
	p, err := s.prescriptions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != "active" {
		return nil, fmt.Errorf("prescription is %s, only active prescriptions can be substituted", p.Status)
	}
	if _, err := s.antibiotics.GetByID(ctx, alternativeID); err != nil {
		if errors.Is(err, antibiotic.ErrNotFound) {
			return nil, fmt.Errorf("alternative antibiotic not found")
		}
		return nil, err
	}
	p.AntibioticID = alternativeID
	if err := s.prescriptions.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// SubmitFeedback records or updates the patient's feedback for a
// prescription. Outcomes that end the course (recovered, side_effects)
// complete the prescription through completeFromFeedback.
func (s *Service) SubmitFeedback(ctx context.Context, f *Feedback) (*Feedback, error) {
	if !validFeedback[f.Feedback] {
		return nil, fmt.Errorf("invalid feedback: %s", f.Feedback)
	}
	if f.SeverityRating != nil && (*f.SeverityRating < 1 || *f.SeverityRating > 10) {
		return nil, fmt.Errorf("severity_rating must be between 1 and 10")
	}

	p, err := s.prescriptions.GetByID(ctx, f.PrescriptionID)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("prescription not found")
	}
	if err != nil {
		return nil, err
	}
	if p.PatientID != f.PatientID {
		return nil, fmt.Errorf("prescription does not belong to this patient")
	}

	existing, err := s.feedback.GetByPatientAndPrescription(ctx, f.PatientID, f.PrescriptionID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	created := false
	err = s.tx(ctx, func(ctx context.Context) error {
		if existing != nil {
			existing.Feedback = f.Feedback
			existing.Details = f.Details
			existing.SeverityRating = f.SeverityRating
			if err := s.feedback.Update(ctx, existing); err != nil {
				return err
			}
			f = existing
		} else {
			if err := s.feedback.Create(ctx, f); err != nil {
				return err
			}
			created = true
		}

		if f.Feedback == "recovered" || f.Feedback == "side_effects" {
			return s.completeFromFeedback(ctx, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if created {
		s.recordOutcomes(ctx, p, f.Feedback)
	}
	return f, nil
}

// completeFromFeedback is the feedback-driven completion transition. Unlike
// Complete it applies whatever the current status, matching how a reported
// recovery closes out a course.
func (s *Service) completeFromFeedback(ctx context.Context, p *Prescription) error {
	if p.Status == "completed" {
		return nil
	}
	p.Status = "completed"
	return s.prescriptions.Update(ctx, p)
}

// recordOutcomes updates the effectiveness counters for every bacterium the
// prescribed antibiotic targets. Counter drift is tolerable, so failures
// here do not fail the feedback submission.
func (s *Service) recordOutcomes(ctx context.Context, p *Prescription, feedback string) {
	if s.outcomes == nil {
		return
	}
	ab, err := s.antibiotics.GetByID(ctx, p.AntibioticID)
	if err != nil {
		return
	}
	for _, bacterium := range ab.TargetedBacteria() {
		_ = s.outcomes.RecordOutcome(ctx, p.AntibioticID, bacterium, feedback)
	}
}

func (s *Service) GetFeedback(ctx context.Context, patientID, prescriptionID uuid.UUID) (*Feedback, error) {
	return s.feedback.GetByPatientAndPrescription(ctx, patientID, prescriptionID)
}

func (s *Service) ListFeedbackByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Feedback, int, error) {
	return s.feedback.ListByPatient(ctx, patientID, limit, offset)
}
