package reporting

import (
	"testing"
)

func TestPredefinedMeasures(t *testing.T) {
	expectedIDs := []string{
		"antibiotic-effectiveness",
		"resistance-distribution",
		"prescription-volume-by-status",
		"feedback-outcomes",
		"alert-summary",
		"treatment-status-summary",
	}
	if len(PredefinedMeasures) != len(expectedIDs) {
		t.Fatalf("expected %d predefined measures, got %d", len(expectedIDs), len(PredefinedMeasures))
	}
	for i, expectedID := range expectedIDs {
		if PredefinedMeasures[i].ID != expectedID {
			t.Errorf("expected measure[%d].ID = %s, got %s", i, expectedID, PredefinedMeasures[i].ID)
		}
	}
}

func TestPredefinedMeasures_HaveSQL(t *testing.T) {
	for _, m := range PredefinedMeasures {
		if m.SQL == "" {
			t.Errorf("measure %s has empty SQL", m.ID)
		}
		if m.Name == "" {
			t.Errorf("measure %s has empty name", m.ID)
		}
		if m.Description == "" {
			t.Errorf("measure %s has empty description", m.ID)
		}
	}
}

func TestFindMeasure_Exists(t *testing.T) {
	m := FindMeasure("antibiotic-effectiveness")
	if m == nil {
		t.Fatal("expected to find antibiotic-effectiveness measure")
	}
	if m.Name != "Antibiotic Effectiveness" {
		t.Errorf("expected 'Antibiotic Effectiveness', got %s", m.Name)
	}
}

func TestFindMeasure_NotFound(t *testing.T) {
	if m := FindMeasure("nonexistent"); m != nil {
		t.Error("expected nil for nonexistent measure")
	}
}

func TestFindMeasure_AllPredefined(t *testing.T) {
	for _, def := range PredefinedMeasures {
		found := FindMeasure(def.ID)
		if found == nil {
			t.Errorf("expected to find measure %s", def.ID)
			continue
		}
		if found.ID != def.ID {
			t.Errorf("ID mismatch: expected %s, got %s", def.ID, found.ID)
		}
	}
}

func TestMeasureReport_Structure(t *testing.T) {
	report := MeasureReport{
		MeasureID:   "resistance-distribution",
		MeasureName: "Resistance Test Distribution",
		Results: []map[string]interface{}{
			{"result": "resistant", "total": 12},
		},
	}
	if len(report.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(report.Results))
	}
	if report.Results[0]["total"] != 12 {
		t.Errorf("unexpected total: %v", report.Results[0]["total"])
	}
}

func TestNewHandler(t *testing.T) {
	if h := NewHandler(nil); h == nil {
		t.Fatal("expected non-nil handler")
	}
}
