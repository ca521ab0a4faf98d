package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LogPG persists sent reminders in the reminder_log table. The unique index
// on (medication_id, slot_id, due_date) makes MarkSent race-safe across
// multiple server instances.
type LogPG struct{ pool *pgxpool.Pool }

func NewLogPG(pool *pgxpool.Pool) *LogPG { return &LogPG{pool: pool} }

func (l *LogPG) MarkSent(ctx context.Context, medicationID uuid.UUID, slotID int, day string, at time.Time) (bool, error) {
	tag, err := l.pool.Exec(ctx, `
		INSERT INTO reminder_log (id, medication_id, slot_id, due_date, sent_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (medication_id, slot_id, due_date) DO NOTHING`,
		uuid.New(), medicationID, slotID, day, at)
	if err != nil {
		return false, fmt.Errorf("marking reminder sent: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (l *LogPG) Unmark(ctx context.Context, medicationID uuid.UUID, slotID int, day string) error {
	_, err := l.pool.Exec(ctx, `
		DELETE FROM reminder_log
		WHERE medication_id = $1 AND slot_id = $2 AND due_date = $3`,
		medicationID, slotID, day)
	if err != nil {
		return fmt.Errorf("unmarking reminder: %w", err)
	}
	return nil
}

func (l *LogPG) Prune(ctx context.Context, before time.Time) error {
	_, err := l.pool.Exec(ctx, `DELETE FROM reminder_log WHERE sent_at < $1`, before)
	if err != nil {
		return fmt.Errorf("pruning reminder log: %w", err)
	}
	return nil
}
