package patient

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

type mockRepo struct {
	patients  map[uuid.UUID]*Patient
	resistant map[uuid.UUID]int
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		patients:  make(map[uuid.UUID]*Patient),
		resistant: make(map[uuid.UUID]int),
	}
}

func (m *mockRepo) Create(_ context.Context, p *Patient) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	m.patients[p.ID] = p
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

func (m *mockRepo) Update(_ context.Context, p *Patient) error {
	if _, ok := m.patients[p.ID]; !ok {
		return fmt.Errorf("not found")
	}
	m.patients[p.ID] = p
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.patients, id)
	return nil
}

func (m *mockRepo) Search(_ context.Context, params map[string]string, limit, offset int) ([]*Patient, int, error) {
	var result []*Patient
	for _, p := range m.patients {
		if q := params["q"]; q != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(q)) {
			continue
		}
		if g := params["gender"]; g != "" && p.Gender != g {
			continue
		}
		result = append(result, p)
	}
	total := len(result)
	if offset >= len(result) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end], total, nil
}

func (m *mockRepo) ResistantCount(_ context.Context, id uuid.UUID) (int, error) {
	return m.resistant[id], nil
}

func newTestService() (*Service, *mockRepo) {
	repo := newMockRepo()
	return NewService(repo), repo
}

func TestCreatePatient(t *testing.T) {
	svc, _ := newTestService()

	p := &Patient{Name: "Amina Yusuf", Age: 34, Gender: "F"}
	if err := svc.Create(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID == uuid.Nil {
		t.Error("expected patient ID to be set")
	}
}

func TestCreatePatient_Validation(t *testing.T) {
	svc, _ := newTestService()

	cases := []struct {
		name    string
		patient *Patient
	}{
		{"missing name", &Patient{Age: 30, Gender: "M"}},
		{"negative age", &Patient{Name: "X", Age: -1, Gender: "M"}},
		{"age too high", &Patient{Name: "X", Age: 151, Gender: "M"}},
		{"bad gender", &Patient{Name: "X", Age: 30, Gender: "male"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := svc.Create(context.Background(), tc.patient); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestGetPatient_ResistantCount(t *testing.T) {
	svc, repo := newTestService()

	p := &Patient{Name: "John Okafor", Age: 52, Gender: "M"}
	if err := svc.Create(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	repo.resistant[p.ID] = 3

	detail, err := svc.Get(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if detail.ResistantCount != 3 {
		t.Errorf("expected resistant count 3, got %d", detail.ResistantCount)
	}
}

func TestUpdatePatient_NotFound(t *testing.T) {
	svc, _ := newTestService()

	p := &Patient{ID: uuid.New(), Name: "Ghost", Age: 40, Gender: "O"}
	if err := svc.Update(context.Background(), p); err == nil {
		t.Error("expected error for unknown patient")
	}
}

func TestSearchPatients(t *testing.T) {
	svc, _ := newTestService()

	for _, p := range []*Patient{
		{Name: "Amina Yusuf", Age: 34, Gender: "F"},
		{Name: "John Okafor", Age: 52, Gender: "M"},
		{Name: "Johanna Lee", Age: 29, Gender: "F"},
	} {
		if err := svc.Create(context.Background(), p); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	items, total, err := svc.Search(context.Background(), map[string]string{"q": "joh"}, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Errorf("expected 2 matches, got total=%d len=%d", total, len(items))
	}

	_, total, err = svc.Search(context.Background(), map[string]string{"gender": "F"}, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 {
		t.Errorf("expected 2 female patients, got %d", total)
	}
}

func TestDeletePatient(t *testing.T) {
	svc, _ := newTestService()

	p := &Patient{Name: "Temp", Age: 20, Gender: "M"}
	if err := svc.Create(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.Delete(context.Background(), p.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Get(context.Background(), p.ID); err == nil {
		t.Error("expected error after delete")
	}
}
