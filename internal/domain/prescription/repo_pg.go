package prescription

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/amr/amr/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const prescriptionCols = `id, doctor_name, patient_id, antibiotic_id, diagnosis, dosage, frequency, duration, date_prescribed, status, notes`

func scanPrescription(row pgx.Row) (*Prescription, error) {
	var p Prescription
	err := row.Scan(&p.ID, &p.DoctorName, &p.PatientID, &p.AntibioticID, &p.Diagnosis,
		&p.Dosage, &p.Frequency, &p.Duration, &p.DatePrescribed, &p.Status, &p.Notes)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repoPG) Create(ctx context.Context, p *Prescription) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO prescription (id, doctor_name, patient_id, antibiotic_id, diagnosis, dosage, frequency, duration, status, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		p.ID, p.DoctorName, p.PatientID, p.AntibioticID, p.Diagnosis,
		p.Dosage, p.Frequency, p.Duration, p.Status, p.Notes)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	return scanPrescription(r.conn(ctx).QueryRow(ctx,
		`SELECT `+prescriptionCols+` FROM prescription WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, p *Prescription) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE prescription SET doctor_name=$2, antibiotic_id=$3, diagnosis=$4, dosage=$5,
			frequency=$6, duration=$7, status=$8, notes=$9
		WHERE id = $1`,
		p.ID, p.DoctorName, p.AntibioticID, p.Diagnosis, p.Dosage,
		p.Frequency, p.Duration, p.Status, p.Notes)
	return err
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Prescription, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM prescription WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+prescriptionCols+` FROM prescription WHERE patient_id = $1 ORDER BY date_prescribed DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	return collectPrescriptions(rows, total)
}

func (r *repoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Prescription, int, error) {
	where := ""
	var args []interface{}

	if st := params["status"]; st != "" {
		args = append(args, st)
		where = fmt.Sprintf(` WHERE status = $%d`, len(args))
	}
	if dn := params["doctor_name"]; dn != "" {
		args = append(args, "%"+dn+"%")
		if where == "" {
			where = fmt.Sprintf(` WHERE doctor_name ILIKE $%d`, len(args))
		} else {
			where += fmt.Sprintf(` AND doctor_name ILIKE $%d`, len(args))
		}
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM prescription`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx,
		fmt.Sprintf(`SELECT %s FROM prescription%s ORDER BY date_prescribed DESC LIMIT $%d OFFSET $%d`,
			prescriptionCols, where, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	return collectPrescriptions(rows, total)
}

func collectPrescriptions(rows pgx.Rows, total int) ([]*Prescription, int, error) {
	var items []*Prescription
	for rows.Next() {
		p, err := scanPrescription(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, nil
}

type feedbackRepoPG struct{ pool *pgxpool.Pool }

func NewFeedbackRepoPG(pool *pgxpool.Pool) FeedbackRepository {
	return &feedbackRepoPG{pool: pool}
}

func (r *feedbackRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const feedbackCols = `id, patient_id, prescription_id, feedback, feedback_date, details, severity_rating`

func scanFeedback(row pgx.Row) (*Feedback, error) {
	var f Feedback
	err := row.Scan(&f.ID, &f.PatientID, &f.PrescriptionID, &f.Feedback,
		&f.FeedbackDate, &f.Details, &f.SeverityRating)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *feedbackRepoPG) Create(ctx context.Context, f *Feedback) error {
	f.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO feedback (id, patient_id, prescription_id, feedback, details, severity_rating)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		f.ID, f.PatientID, f.PrescriptionID, f.Feedback, f.Details, f.SeverityRating)
	if db.IsUniqueViolation(err) {
		return fmt.Errorf("%w: feedback already exists for this prescription", ErrDuplicate)
	}
	return err
}

func (r *feedbackRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Feedback, error) {
	return scanFeedback(r.conn(ctx).QueryRow(ctx, `SELECT `+feedbackCols+` FROM feedback WHERE id = $1`, id))
}

func (r *feedbackRepoPG) GetByPatientAndPrescription(ctx context.Context, patientID, prescriptionID uuid.UUID) (*Feedback, error) {
	return scanFeedback(r.conn(ctx).QueryRow(ctx,
		`SELECT `+feedbackCols+` FROM feedback WHERE patient_id = $1 AND prescription_id = $2`,
		patientID, prescriptionID))
}

func (r *feedbackRepoPG) Update(ctx context.Context, f *Feedback) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE feedback SET feedback=$2, details=$3, severity_rating=$4, feedback_date=NOW()
		WHERE id = $1`,
		f.ID, f.Feedback, f.Details, f.SeverityRating)
	return err
}

func (r *feedbackRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Feedback, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM feedback WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+feedbackCols+` FROM feedback WHERE patient_id = $1 ORDER BY feedback_date DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Feedback
	for rows.Next() {
		f, err := scanFeedback(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, f)
	}
	return items, total, nil
}
