package medication

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medtrack/medtrack/internal/domain/schedule"
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

const medCols = `id, patient_id, name, brand, rx_norm_code, strength, form, route,
	instructions, status, schedule, created_at, updated_at`

func (r *repoPG) scanMedication(row pgx.Row) (*Medication, error) {
	var m Medication
	err := row.Scan(&m.ID, &m.PatientID, &m.Name, &m.Brand, &m.RxNormCode, &m.Strength,
		&m.Form, &m.Route, &m.Instructions, &m.Status, &m.Schedule, &m.CreatedAt, &m.UpdatedAt)
	return &m, err
}

func (r *repoPG) Create(ctx context.Context, m *Medication) error {
	m.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO medication (id, patient_id, name, brand, rx_norm_code, strength, form,
			route, instructions, status, schedule)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		m.ID, m.PatientID, m.Name, m.Brand, m.RxNormCode, m.Strength, m.Form,
		m.Route, m.Instructions, m.Status, m.Schedule)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Medication, error) {
	return r.scanMedication(r.conn(ctx).QueryRow(ctx, `SELECT `+medCols+` FROM medication WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, m *Medication) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE medication SET name=$2, brand=$3, rx_norm_code=$4, strength=$5, form=$6,
			route=$7, instructions=$8, status=$9, schedule=$10, updated_at=NOW()
		WHERE id = $1`,
		m.ID, m.Name, m.Brand, m.RxNormCode, m.Strength, m.Form,
		m.Route, m.Instructions, m.Status, m.Schedule)
	return err
}

func (r *repoPG) UpdateSchedule(ctx context.Context, id uuid.UUID, history schedule.History) error {
	_, err := r.conn(ctx).Exec(ctx, `UPDATE medication SET schedule=$2, updated_at=NOW() WHERE id = $1`, id, history)
	return err
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.conn(ctx).Exec(ctx, `UPDATE medication SET status=$2, updated_at=NOW() WHERE id = $1`, id, status)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM medication WHERE id = $1`, id)
	return err
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Medication, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM medication WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+medCols+` FROM medication WHERE patient_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Medication
	for rows.Next() {
		m, err := r.scanMedication(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, m)
	}
	return items, total, nil
}

func (r *repoPG) ListActiveByPatient(ctx context.Context, patientID uuid.UUID) ([]*Medication, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+medCols+` FROM medication WHERE patient_id = $1 AND status = 'active' ORDER BY created_at`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Medication
	for rows.Next() {
		m, err := r.scanMedication(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, nil
}
