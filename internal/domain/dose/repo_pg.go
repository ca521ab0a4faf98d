package dose

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medtrack/medtrack/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const doseCols = `id, patient_id, medication_id, time, taken, scheduled_slot_id, note,
	created_at, updated_at`

func (r *repoPG) scanDose(row pgx.Row) (*Dose, error) {
	var d Dose
	err := row.Scan(&d.ID, &d.PatientID, &d.MedicationID, &d.Time, &d.Taken,
		&d.ScheduledSlotID, &d.Note, &d.CreatedAt, &d.UpdatedAt)
	return &d, err
}

func (r *repoPG) Create(ctx context.Context, d *Dose) error {
	d.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO dose (id, patient_id, medication_id, time, taken, scheduled_slot_id, note)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		d.ID, d.PatientID, d.MedicationID, d.Time, d.Taken, d.ScheduledSlotID, d.Note)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Dose, error) {
	return r.scanDose(r.conn(ctx).QueryRow(ctx, `SELECT `+doseCols+` FROM dose WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, d *Dose) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE dose SET time=$2, taken=$3, scheduled_slot_id=$4, note=$5, updated_at=NOW()
		WHERE id = $1`,
		d.ID, d.Time, d.Taken, d.ScheduledSlotID, d.Note)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM dose WHERE id = $1`, id)
	return err
}

func (r *repoPG) ListByMedication(ctx context.Context, medicationID uuid.UUID, limit, offset int) ([]*Dose, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM dose WHERE medication_id = $1`, medicationID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+doseCols+` FROM dose WHERE medication_id = $1 ORDER BY time DESC LIMIT $2 OFFSET $3`, medicationID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Dose
	for rows.Next() {
		d, err := r.scanDose(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, nil
}

func (r *repoPG) ListByPatientAndRange(ctx context.Context, patientID uuid.UUID, start, end time.Time) ([]*Dose, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+doseCols+` FROM dose WHERE patient_id = $1 AND time >= $2 AND time < $3 ORDER BY time`, patientID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Dose
	for rows.Next() {
		d, err := r.scanDose(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, nil
}
