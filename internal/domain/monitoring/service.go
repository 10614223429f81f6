package monitoring

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/amr/amr/internal/domain/antibiotic"
	"github.com/amr/amr/internal/domain/patient"
	"github.com/amr/amr/internal/domain/prescription"
	"github.com/amr/amr/internal/platform/db"
)

// ErrDuplicate marks uniqueness violations so handlers can answer 409.
var ErrDuplicate = errors.New("duplicate")

// ErrNotFound marks a missing assessment, alert or dashboard row. Callers
// use it to tell absence from a failed lookup.
var ErrNotFound = errors.New("monitoring record not found")

var validAssessmentTypes = map[string]bool{
	"initial":       true,
	"follow_up":     true,
	"side_effects":  true,
	"effectiveness": true,
}

var validImprovements = map[string]bool{
	"significant": true,
	"moderate":    true,
	"minimal":     true,
	"no_change":   true,
	"worsening":   true,
}

var validAdherence = map[string]bool{
	"excellent": true,
	"good":      true,
	"fair":      true,
	"poor":      true,
}

var validSatisfaction = map[string]bool{
	"very_satisfied":    true,
	"satisfied":         true,
	"neutral":           true,
	"dissatisfied":      true,
	"very_dissatisfied": true,
}

// severeKeywords in side-effect details escalate to a critical alert.
var severeKeywords = []string{"severe", "serious", "allergic", "rash", "breathing"}

// Service runs the monitoring loop: assessments feed dashboard scores, a
// derived treatment status and effectiveness alerts.
type Service struct {
	assessments   AssessmentRepository
	alerts        AlertRepository
	dashboards    DashboardRepository
	prescriptions prescription.Repository
	patients      patient.Repository
	antibiotics   antibiotic.Repository
	tx            db.TxRunner
}

func NewService(
	assessments AssessmentRepository,
	alerts AlertRepository,
	dashboards DashboardRepository,
	prescriptions prescription.Repository,
	patients patient.Repository,
	antibiotics antibiotic.Repository,
	tx db.TxRunner,
) *Service {
	return &Service{
		assessments:   assessments,
		alerts:        alerts,
		dashboards:    dashboards,
		prescriptions: prescriptions,
		patients:      patients,
		antibiotics:   antibiotics,
		tx:            tx,
	}
}

// CreateAssessment persists the assessment, refreshes the monitoring
// dashboard (score mapping overwrites previous values) and runs the alert
// rules. Each rule fires independently; repeated assessments create
// repeated alerts. The writes share one transaction.
func (s *Service) CreateAssessment(ctx context.Context, a *Assessment) (*AssessmentResult, error) {
	if !validAssessmentTypes[a.AssessmentType] {
		return nil, fmt.Errorf("invalid assessment_type: %s", a.AssessmentType)
	}
	if !validImprovements[a.SymptomImprovement] {
		return nil, fmt.Errorf("invalid symptom_improvement: %s", a.SymptomImprovement)
	}
	if !validAdherence[a.MedicationAdherence] {
		return nil, fmt.Errorf("invalid medication_adherence: %s", a.MedicationAdherence)
	}
	if !validSatisfaction[a.OverallSatisfaction] {
		return nil, fmt.Errorf("invalid overall_satisfaction: %s", a.OverallSatisfaction)
	}
	if a.PainLevel != nil && (*a.PainLevel < 1 || *a.PainLevel > 10) {
		return nil, fmt.Errorf("pain_level must be between 1 and 10")
	}
	if a.ConductedBy == "" {
		return nil, fmt.Errorf("conducted_by is required")
	}

	pat, err := s.patients.GetByID(ctx, a.PatientID)
	if errors.Is(err, patient.ErrNotFound) {
		return nil, fmt.Errorf("patient not found")
	}
	if err != nil {
		return nil, err
	}

	presc, err := s.resolvePrescription(ctx, a)
	if err != nil {
		return nil, err
	}
	a.PrescriptionID = presc.ID

	// All lookups happen before the first write so a missing reference
	// never leaves a half-written assessment behind.
	ab, err := s.antibiotics.GetByID(ctx, presc.AntibioticID)
	if errors.Is(err, antibiotic.ErrNotFound) {
		return nil, fmt.Errorf("antibiotic not found")
	}
	if err != nil {
		return nil, err
	}

	if a.AssessmentDate.IsZero() {
		a.AssessmentDate = time.Now()
	}

	result := &AssessmentResult{Assessment: a}
	err = s.tx(ctx, func(ctx context.Context) error {
		if err := s.assessments.Create(ctx, a); err != nil {
			return err
		}
		dash, err := s.upsertDashboard(ctx, a, presc)
		if err != nil {
			return err
		}
		alerts, err := s.generateAlerts(ctx, a, pat, ab)
		if err != nil {
			return err
		}
		result.Dashboard = dash
		result.Alerts = alerts
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// resolvePrescription uses the given prescription or falls back to the
// patient's most recent active one.
func (s *Service) resolvePrescription(ctx context.Context, a *Assessment) (*prescription.Prescription, error) {
	if a.PrescriptionID != uuid.Nil {
		p, err := s.prescriptions.GetByID(ctx, a.PrescriptionID)
		if errors.Is(err, prescription.ErrNotFound) {
			return nil, fmt.Errorf("prescription not found")
		}
		if err != nil {
			return nil, err
		}
		if p.PatientID != a.PatientID {
			return nil, fmt.Errorf("prescription does not belong to this patient")
		}
		return p, nil
	}
	items, _, err := s.prescriptions.ListByPatient(ctx, a.PatientID, 100, 0)
	if err != nil {
		return nil, err
	}
	for _, p := range items {
		if p.Status == "active" {
			return p, nil
		}
	}
	return nil, fmt.Errorf("no active prescription for patient")
}

func (s *Service) upsertDashboard(ctx context.Context, a *Assessment, presc *prescription.Prescription) (*Dashboard, error) {
	dash, err := s.dashboards.GetByPatientAndPrescription(ctx, a.PatientID, presc.ID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if dash == nil {
		dash = &Dashboard{
			PatientID:              a.PatientID,
			PrescriptionID:         presc.ID,
			TreatmentStartDate:     presc.DatePrescribed,
			ExpectedCompletionDate: presc.DatePrescribed.AddDate(0, 0, 7),
			TreatmentStatus:        "on_track",
		}
		if err := s.dashboards.Create(ctx, dash); err != nil {
			return nil, err
		}
	}

	applyScores(dash, a)
	assessedAt := a.AssessmentDate
	dash.LastAssessmentDate = &assessedAt
	dash.NextAssessmentDue = a.NextAssessmentDue
	dash.TreatmentStatus = deriveStatus(dash)

	if err := s.dashboards.Update(ctx, dash); err != nil {
		return nil, err
	}
	return dash, nil
}

// applyScores overwrites the dashboard scores from the latest assessment.
func applyScores(dash *Dashboard, a *Assessment) {
	switch a.SymptomImprovement {
	case "significant":
		dash.EffectivenessScore = 9.0
	case "moderate":
		dash.EffectivenessScore = 7.0
	case "minimal":
		dash.EffectivenessScore = 5.0
	case "no_change":
		dash.EffectivenessScore = 3.0
	default:
		dash.EffectivenessScore = 1.0
	}

	switch a.MedicationAdherence {
	case "excellent":
		dash.AdherenceScore = 10.0
	case "good":
		dash.AdherenceScore = 8.0
	case "fair":
		dash.AdherenceScore = 5.0
	default:
		dash.AdherenceScore = 2.0
	}

	if a.SideEffectsExperienced {
		dash.SideEffectsScore = 7.0
	} else {
		dash.SideEffectsScore = 1.0
	}
}

// deriveStatus maps the three scores to a treatment status. Rules are
// evaluated in order; the first match wins.
func deriveStatus(d *Dashboard) string {
	eff, adh, se := d.EffectivenessScore, d.AdherenceScore, d.SideEffectsScore
	switch {
	case eff >= 8 && adh >= 8 && se <= 3:
		return "on_track"
	case eff >= 6 && adh >= 6 && se <= 5:
		return "monitoring"
	case eff < 5 || adh < 5 || se > 7:
		return "critical"
	default:
		return "concern"
	}
}

func (s *Service) generateAlerts(ctx context.Context, a *Assessment, pat *patient.Patient, ab *antibiotic.Antibiotic) ([]*Alert, error) {
	var created []*Alert
	noImprovement := a.SymptomImprovement == "no_change" || a.SymptomImprovement == "worsening"

	add := func(alertType, priority, title, description, triggeredBy string) error {
		alert := &Alert{
			PatientID:      a.PatientID,
			PrescriptionID: a.PrescriptionID,
			AlertType:      alertType,
			Priority:       priority,
			Title:          title,
			Description:    description,
			TriggeredBy:    triggeredBy,
			Status:         "active",
		}
		if err := s.alerts.Create(ctx, alert); err != nil {
			return err
		}
		created = append(created, alert)
		return nil
	}

	if noImprovement {
		if err := add("ineffective", "high",
			fmt.Sprintf("Medicine appears ineffective for %s", pat.Name),
			fmt.Sprintf("Patient reports %s after treatment with %s", a.SymptomImprovement, ab.Name),
			"Patient assessment - symptom improvement"); err != nil {
			return nil, err
		}
	}

	if a.SideEffectsExperienced && a.SideEffectsDetails != nil && *a.SideEffectsDetails != "" {
		details := strings.ToLower(*a.SideEffectsDetails)
		for _, keyword := range severeKeywords {
			if strings.Contains(details, keyword) {
				if err := add("side_effects", "critical",
					fmt.Sprintf("Severe side effects reported by %s", pat.Name),
					fmt.Sprintf("Side effects: %s", *a.SideEffectsDetails),
					"Patient assessment - side effects"); err != nil {
					return nil, err
				}
				break
			}
		}
	}

	if a.MedicationAdherence == "fair" || a.MedicationAdherence == "poor" {
		if err := add("adherence", "medium",
			fmt.Sprintf("Poor medication adherence for %s", pat.Name),
			fmt.Sprintf("Adherence level: %s", a.MedicationAdherence),
			"Patient assessment - medication adherence"); err != nil {
			return nil, err
		}
	}

	if noImprovement && a.MedicationAdherence == "excellent" {
		if err := add("resistance", "high",
			fmt.Sprintf("Possible antibiotic resistance for %s", pat.Name),
			fmt.Sprintf("Patient reports %s despite good adherence to %s", a.SymptomImprovement, ab.Name),
			"Patient assessment - no improvement with good adherence"); err != nil {
			return nil, err
		}
	}

	return created, nil
}

func (s *Service) GetAssessment(ctx context.Context, id uuid.UUID) (*Assessment, error) {
	return s.assessments.GetByID(ctx, id)
}

func (s *Service) ListAssessmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Assessment, int, error) {
	return s.assessments.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListRecentAssessments(ctx context.Context, limit int) ([]*Assessment, error) {
	return s.assessments.ListRecent(ctx, limit)
}

func (s *Service) GetAlert(ctx context.Context, id uuid.UUID) (*Alert, error) {
	return s.alerts.GetByID(ctx, id)
}

func (s *Service) SearchAlerts(ctx context.Context, params map[string]string, limit, offset int) ([]*Alert, int, error) {
	return s.alerts.Search(ctx, params, limit, offset)
}

// Acknowledge moves an active alert to acknowledged, recording who and when.
func (s *Service) Acknowledge(ctx context.Context, id uuid.UUID, username string) (*Alert, error) {
	alert, err := s.alerts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if alert.Status != "active" {
		return nil, fmt.Errorf("alert is %s, only active alerts can be acknowledged", alert.Status)
	}
	now := time.Now()
	alert.Status = "acknowledged"
	alert.AcknowledgedBy = &username
	alert.AcknowledgedDate = &now
	if err := s.alerts.Update(ctx, alert); err != nil {
		return nil, err
	}
	return alert, nil
}

// Resolve closes out an alert with notes. Resolved and dismissed alerts
// are terminal.
func (s *Service) Resolve(ctx context.Context, id uuid.UUID, notes string) (*Alert, error) {
	return s.close(ctx, id, "resolved", notes)
}

// Dismiss closes an alert without resolution notes.
func (s *Service) Dismiss(ctx context.Context, id uuid.UUID) (*Alert, error) {
	return s.close(ctx, id, "dismissed", "")
}

func (s *Service) close(ctx context.Context, id uuid.UUID, target, notes string) (*Alert, error) {
	alert, err := s.alerts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if alert.Status != "active" && alert.Status != "acknowledged" {
		return nil, fmt.Errorf("alert is %s, it cannot be %s", alert.Status, target)
	}
	alert.Status = target
	if notes != "" {
		alert.ResolutionNotes = &notes
	}
	if err := s.alerts.Update(ctx, alert); err != nil {
		return nil, err
	}
	return alert, nil
}

func (s *Service) GetDashboard(ctx context.Context, id uuid.UUID) (*Dashboard, error) {
	return s.dashboards.GetByID(ctx, id)
}

func (s *Service) ListDashboards(ctx context.Context, limit, offset int) ([]*Dashboard, int, error) {
	return s.dashboards.List(ctx, limit, offset)
}

func (s *Service) GetAnalytics(ctx context.Context) (*Analytics, error) {
	return s.dashboards.Analytics(ctx)
}
