package patient

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

const patientCols = `id, user_id, first_name, last_name, birth_date, sex, phone, habits,
	created_at, updated_at`

func (r *repoPG) scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.UserID, &p.FirstName, &p.LastName, &p.BirthDate, &p.Sex,
		&p.Phone, &p.Habits, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient (id, user_id, first_name, last_name, birth_date, sex, phone, habits)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		p.ID, p.UserID, p.FirstName, p.LastName, p.BirthDate, p.Sex, p.Phone, p.Habits)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return r.scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE id = $1`, id))
}

func (r *repoPG) GetByUserID(ctx context.Context, userID string) (*Patient, error) {
	return r.scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE user_id = $1`, userID))
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient SET first_name=$2, last_name=$3, birth_date=$4, sex=$5, phone=$6,
			habits=$7, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.FirstName, p.LastName, p.BirthDate, p.Sex, p.Phone, p.Habits)
	return err
}

func (r *repoPG) UpdateHabits(ctx context.Context, id uuid.UUID, habits schedule.Habits) error {
	_, err := r.conn(ctx).Exec(ctx, `UPDATE patient SET habits=$2, updated_at=NOW() WHERE id = $1`, id, habits)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM patient WHERE id = $1`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+patientCols+` FROM patient ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Patient
	for rows.Next() {
		p, err := r.scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, nil
}
