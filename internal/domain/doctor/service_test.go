package doctor

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
)

type mockRepo struct {
	doctors map[uuid.UUID]*Doctor
	stats   map[string]*Stats
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		doctors: make(map[uuid.UUID]*Doctor),
		stats:   make(map[string]*Stats),
	}
}

func (m *mockRepo) Create(_ context.Context, d *Doctor) error {
	d.ID = uuid.New()
	d.CreatedAt = time.Now()
	m.doctors[d.ID] = d
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Doctor, error) {
	d, ok := m.doctors[id]
	if !ok {
		return nil, ErrNotFound
	}
	return d, nil
}

func (m *mockRepo) GetByUsername(_ context.Context, username string) (*Doctor, error) {
	for _, d := range m.doctors {
		if d.Username != nil && *d.Username == username {
			return d, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) GetByLicense(_ context.Context, licenseNumber string) (*Doctor, error) {
	for _, d := range m.doctors {
		if d.LicenseNumber == licenseNumber {
			return d, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) Update(_ context.Context, d *Doctor) error {
	if _, ok := m.doctors[d.ID]; !ok {
		return fmt.Errorf("not found")
	}
	m.doctors[d.ID] = d
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.doctors, id)
	return nil
}

func (m *mockRepo) List(_ context.Context, limit, offset int) ([]*Doctor, int, error) {
	var result []*Doctor
	for _, d := range m.doctors {
		result = append(result, d)
	}
	return result, len(result), nil
}

func (m *mockRepo) PrescriptionStats(_ context.Context, doctorName string) (*Stats, error) {
	if s, ok := m.stats[doctorName]; ok {
		return s, nil
	}
	return &Stats{DoctorName: doctorName}, nil
}

func newTestService() (*Service, *mockRepo) {
	repo := newMockRepo()
	return NewService(repo), repo
}

func TestCreateDoctor(t *testing.T) {
	svc, _ := newTestService()

	d := &Doctor{Name: "Grace Mwangi", LicenseNumber: "KE-44821"}
	if err := svc.Create(context.Background(), d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.ID == uuid.Nil {
		t.Error("expected doctor ID to be set")
	}
}

func TestCreateDoctor_DuplicateLicense(t *testing.T) {
	svc, _ := newTestService()

	d := &Doctor{Name: "Grace Mwangi", LicenseNumber: "KE-44821"}
	if err := svc.Create(context.Background(), d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dup := &Doctor{Name: "Other Doctor", LicenseNumber: "KE-44821"}
	if err := svc.Create(context.Background(), dup); err == nil {
		t.Error("expected duplicate license error")
	}
}

func TestResolveName(t *testing.T) {
	svc, _ := newTestService()

	username := "gmwangi"
	d := &Doctor{Name: "Grace Mwangi", LicenseNumber: "KE-44821", Username: &username}
	if err := svc.Create(context.Background(), d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := svc.ResolveName(context.Background(), "gmwangi"); got != "Grace Mwangi" {
		t.Errorf("expected profile name, got %q", got)
	}
	if got := svc.ResolveName(context.Background(), "unknown-user"); got != "unknown-user" {
		t.Errorf("expected raw username fallback, got %q", got)
	}
}

func TestStats(t *testing.T) {
	svc, repo := newTestService()

	d := &Doctor{Name: "Grace Mwangi", LicenseNumber: "KE-44821"}
	if err := svc.Create(context.Background(), d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	repo.stats["Grace Mwangi"] = &Stats{
		DoctorName:             "Grace Mwangi",
		TotalPrescriptions:     10,
		ActivePrescriptions:    3,
		CompletedPrescriptions: 6,
		CancelledPrescriptions: 1,
	}

	stats, err := svc.Stats(context.Background(), d.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.TotalPrescriptions != 10 || stats.ActivePrescriptions != 3 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}
