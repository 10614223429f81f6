package antibiotic

import (
	"context"
	"errors"
	"fmt"
	"math"

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

const antibioticCols = `id, name, bacteria_targeted, class_type, description, dosage_info, contraindications, created_at, updated_at`

func scanAntibiotic(row pgx.Row) (*Antibiotic, error) {
	var a Antibiotic
	err := row.Scan(&a.ID, &a.Name, &a.BacteriaTargeted, &a.ClassType, &a.Description,
		&a.DosageInfo, &a.Contraindications, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repoPG) Create(ctx context.Context, a *Antibiotic) error {
	a.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO antibiotic (id, name, bacteria_targeted, class_type, description, dosage_info, contraindications)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		a.ID, a.Name, a.BacteriaTargeted, a.ClassType, a.Description, a.DosageInfo, a.Contraindications)
	if db.IsUniqueViolation(err) {
		return fmt.Errorf("%w: antibiotic %q already exists", ErrDuplicate, a.Name)
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Antibiotic, error) {
	return scanAntibiotic(r.conn(ctx).QueryRow(ctx, `SELECT `+antibioticCols+` FROM antibiotic WHERE id = $1`, id))
}

func (r *repoPG) GetByName(ctx context.Context, name string) (*Antibiotic, error) {
	return scanAntibiotic(r.conn(ctx).QueryRow(ctx, `SELECT `+antibioticCols+` FROM antibiotic WHERE name = $1`, name))
}

func (r *repoPG) Update(ctx context.Context, a *Antibiotic) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE antibiotic SET name=$2, bacteria_targeted=$3, class_type=$4, description=$5,
			dosage_info=$6, contraindications=$7, updated_at=NOW()
		WHERE id = $1`,
		a.ID, a.Name, a.BacteriaTargeted, a.ClassType, a.Description, a.DosageInfo, a.Contraindications)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM antibiotic WHERE id = $1`, id)
	return err
}

func (r *repoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Antibiotic, int, error) {
	where := ""
	var args []interface{}

	if q := params["q"]; q != "" {
		args = append(args, "%"+q+"%")
		where = fmt.Sprintf(` WHERE (name ILIKE $%d OR bacteria_targeted ILIKE $%d)`, len(args), len(args))
	}
	if ct := params["class_type"]; ct != "" {
		args = append(args, ct)
		if where == "" {
			where = fmt.Sprintf(` WHERE class_type = $%d`, len(args))
		} else {
			where += fmt.Sprintf(` AND class_type = $%d`, len(args))
		}
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM antibiotic`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx,
		fmt.Sprintf(`SELECT %s FROM antibiotic%s ORDER BY name LIMIT $%d OFFSET $%d`,
			antibioticCols, where, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Antibiotic
	for rows.Next() {
		a, err := scanAntibiotic(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, nil
}

func (r *repoPG) ListAll(ctx context.Context) ([]*Antibiotic, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+antibioticCols+` FROM antibiotic ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Antibiotic
	for rows.Next() {
		a, err := scanAntibiotic(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, nil
}

func (r *repoPG) EffectivenessRate(ctx context.Context, id uuid.UUID) (float64, error) {
	var completed, recovered int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE p.status = 'completed'),
			COUNT(*) FILTER (WHERE p.status = 'completed' AND f.feedback = 'recovered')
		FROM prescription p
		LEFT JOIN feedback f ON f.prescription_id = p.id
		WHERE p.antibiotic_id = $1`, id).Scan(&completed, &recovered)
	if err != nil {
		return 0, err
	}
	if completed == 0 {
		return 0, nil
	}
	return math.Round(float64(recovered)/float64(completed)*1000) / 10, nil
}

const effectivenessCols = `id, antibiotic_id, bacteria_type, total_prescriptions, successful_treatments, failed_treatments, side_effects_reported, last_updated`

func scanEffectiveness(row pgx.Row) (*Effectiveness, error) {
	var e Effectiveness
	err := row.Scan(&e.ID, &e.AntibioticID, &e.BacteriaType, &e.TotalPrescriptions,
		&e.SuccessfulTreatments, &e.FailedTreatments, &e.SideEffectsReported, &e.LastUpdated)
	return &e, err
}

func (r *repoPG) GetEffectiveness(ctx context.Context, antibioticID uuid.UUID, bacteriaType string) (*Effectiveness, error) {
	return scanEffectiveness(r.conn(ctx).QueryRow(ctx,
		`SELECT `+effectivenessCols+` FROM antibiotic_effectiveness WHERE antibiotic_id = $1 AND bacteria_type = $2`,
		antibioticID, bacteriaType))
}

func (r *repoPG) ListEffectiveness(ctx context.Context, antibioticID uuid.UUID) ([]*Effectiveness, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+effectivenessCols+` FROM antibiotic_effectiveness WHERE antibiotic_id = $1 ORDER BY bacteria_type`,
		antibioticID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Effectiveness
	for rows.Next() {
		e, err := scanEffectiveness(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, nil
}

func (r *repoPG) UpsertEffectiveness(ctx context.Context, e *Effectiveness) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO antibiotic_effectiveness
			(id, antibiotic_id, bacteria_type, total_prescriptions, successful_treatments, failed_treatments, side_effects_reported)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (antibiotic_id, bacteria_type) DO UPDATE SET
			total_prescriptions = EXCLUDED.total_prescriptions,
			successful_treatments = EXCLUDED.successful_treatments,
			failed_treatments = EXCLUDED.failed_treatments,
			side_effects_reported = EXCLUDED.side_effects_reported,
			last_updated = NOW()`,
		e.ID, e.AntibioticID, e.BacteriaType, e.TotalPrescriptions,
		e.SuccessfulTreatments, e.FailedTreatments, e.SideEffectsReported)
	return err
}
