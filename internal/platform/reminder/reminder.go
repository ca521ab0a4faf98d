// Package reminder runs a periodic sweep over active medication schedules and
// pushes dose reminders whose notify instant has come due.
package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/medtrack/medtrack/internal/domain/medication"
	"github.com/medtrack/medtrack/internal/domain/patient"
	"github.com/medtrack/medtrack/internal/domain/schedule"
	"github.com/medtrack/medtrack/internal/platform/notification"
)

const (
	// sweepGrace bounds how far past its notify instant a reminder is still
	// worth sending. Anything older is considered stale.
	sweepGrace = 15 * time.Minute

	// dedupeTTL is how long sent-reminder records are retained.
	dedupeTTL = 48 * time.Hour

	patientPageSize = 100
)

// Sweeper periodically scans active medications and dispatches dose reminders
// through the notification manager. The sent log deduplicates per medication,
// slot and calendar day so overlapping sweeps and restarts never double-send.
type Sweeper struct {
	patients patient.Repository
	meds     medication.Repository
	notifier *notification.NotificationManager
	sentLog  SentLog
	log      zerolog.Logger

	cron *cron.Cron
}

// NewSweeper constructs a Sweeper. Call Start to begin periodic sweeps.
func NewSweeper(patients patient.Repository, meds medication.Repository, notifier *notification.NotificationManager, sentLog SentLog, log zerolog.Logger) *Sweeper {
	return &Sweeper{
		patients: patients,
		meds:     meds,
		notifier: notifier,
		sentLog:  sentLog,
		log:      log.With().Str("component", "reminder").Logger(),
	}
}

// Start schedules sweeps using the given cron expression (standard five-field
// format, e.g. "* * * * *" for every minute).
func (s *Sweeper) Start(spec string) error {
	s.cron = cron.New()
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 55*time.Second)
		defer cancel()

		n, err := s.Sweep(ctx, time.Now())
		if err != nil {
			s.log.Error().Err(err).Msg("reminder sweep failed")
			return
		}
		if n > 0 {
			s.log.Info().Int("sent", n).Msg("dose reminders dispatched")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid reminder schedule %q: %w", spec, err)
	}
	s.cron.Start()
	s.log.Info().Str("schedule", spec).Msg("reminder sweeper started")
	return nil
}

// Stop halts the cron scheduler and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

// Sweep walks every patient's active medications, generates today's
// occurrences in the patient's timezone, and sends reminders for slots whose
// notify instant falls within the grace window before now. It returns the
// number of reminders sent.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (int, error) {
	if err := s.sentLog.Prune(ctx, now.Add(-dedupeTTL)); err != nil {
		s.log.Warn().Err(err).Msg("reminder log prune failed")
	}

	sent := 0
	for offset := 0; ; offset += patientPageSize {
		page, total, err := s.patients.List(ctx, patientPageSize, offset)
		if err != nil {
			return sent, fmt.Errorf("listing patients: %w", err)
		}

		for _, p := range page {
			n, err := s.sweepPatient(ctx, p, now)
			if err != nil {
				s.log.Warn().Err(err).Str("patient_id", p.ID.String()).Msg("patient sweep failed")
				continue
			}
			sent += n
		}

		if offset+len(page) >= total || len(page) == 0 {
			break
		}
	}
	return sent, nil
}

func (s *Sweeper) sweepPatient(ctx context.Context, p *patient.Patient, now time.Time) (int, error) {
	habits := p.Habits.WithDefaults()
	day := now.In(habits.Location()).Format("2006-01-02")

	meds, err := s.meds.ListActiveByPatient(ctx, p.ID)
	if err != nil {
		return 0, fmt.Errorf("listing medications: %w", err)
	}

	sent := 0
	for _, m := range meds {
		occs, err := m.Schedule.Generate(day, day, habits, schedule.GenOptions{NotifyUserID: p.UserID})
		if err != nil {
			s.log.Warn().Err(err).Str("medication_id", m.ID.String()).Msg("occurrence generation failed")
			continue
		}

		for _, occ := range occs {
			if !s.due(occ, now) {
				continue
			}
			fresh, err := s.sentLog.MarkSent(ctx, m.ID, occ.SlotID, day, now)
			if err != nil {
				s.log.Warn().Err(err).Str("medication_id", m.ID.String()).Int("slot_id", occ.SlotID).Msg("reminder dedupe check failed")
				continue
			}
			if !fresh {
				continue
			}

			name := p.FirstName
			_, err = s.notifier.SendFromTemplate(ctx, "dose-reminder", map[string]string{
				"patient_name": name,
				"medication":   m.Name,
				"time":         occ.At.In(habits.Location()).Format("15:04"),
			}, p.UserID)
			if err != nil {
				if uerr := s.sentLog.Unmark(ctx, m.ID, occ.SlotID, day); uerr != nil {
					s.log.Warn().Err(uerr).Str("medication_id", m.ID.String()).Int("slot_id", occ.SlotID).Msg("reminder unmark failed")
				}
				s.log.Warn().Err(err).Str("medication_id", m.ID.String()).Int("slot_id", occ.SlotID).Msg("reminder send failed")
				continue
			}
			sent++
		}
	}
	return sent, nil
}

// due reports whether the occurrence's notify instant has arrived and is
// still within the grace window. Date-only occurrences carry no notify
// instant and are never due.
func (s *Sweeper) due(occ schedule.Occurrence, now time.Time) bool {
	if occ.NotifyAt.IsZero() {
		return false
	}
	if now.Before(occ.NotifyAt) {
		return false
	}
	return now.Sub(occ.NotifyAt) <= sweepGrace
}
