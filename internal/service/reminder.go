package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/iliyamo/lab-seat-reservation/internal/model"
	"github.com/iliyamo/lab-seat-reservation/internal/notify"
)

// Reminder lookahead windows.  Students hear about their session well in
// advance; teachers get a short heads-up right before start.
const (
	StudentReminderLead = 3 * time.Hour
	TeacherReminderLead = 15 * time.Minute
)

// ReminderSessions is the persistence port the reminder scan needs;
// *repository.SessionRepo satisfies it.
type ReminderSessions interface {
	ListStartingBetween(ctx context.Context, from, to time.Time, kind string) ([]*model.Session, error)
	MarkReminderSent(ctx context.Context, id uint64, kind string, at time.Time) (bool, error)
}

// ReminderService periodically scans for sessions entering a reminder
// window and publishes at most one reminder event per session per kind.
// Idempotency lives in the storage layer: the conditional mark only lands
// when the column is still unset, so concurrent scanner instances cannot
// double-send.
type ReminderService struct {
	sessions ReminderSessions
	notifier Notifier
	log      zerolog.Logger

	now func() time.Time
}

// NewReminderService constructs a ReminderService.
func NewReminderService(sessions ReminderSessions, notifier Notifier, log zerolog.Logger) *ReminderService {
	return &ReminderService{sessions: sessions, notifier: notifier, log: log, now: time.Now}
}

// Run scans on the given interval until ctx is cancelled.
func (s *ReminderService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Scan(ctx); err != nil {
				s.log.Error().Err(err).Msg("reminder scan failed")
			}
		}
	}
}

// Scan runs one reminder pass for both kinds.
func (s *ReminderService) Scan(ctx context.Context) error {
	now := s.now().UTC()
	if err := s.scanKind(ctx, now, "student", StudentReminderLead, notify.KindStudentReminder); err != nil {
		return err
	}
	return s.scanKind(ctx, now, "teacher", TeacherReminderLead, notify.KindTeacherReminder)
}

func (s *ReminderService) scanKind(ctx context.Context, now time.Time, kind string, lead time.Duration, eventKind string) error {
	due, err := s.sessions.ListStartingBetween(ctx, now, now.Add(lead), kind)
	if err != nil {
		return err
	}
	for _, sess := range due {
		// Mark first; publish only when this instance won the mark.  A lost
		// reminder after a won mark is accepted over a double-send.
		won, err := s.sessions.MarkReminderSent(ctx, sess.ID, kind, now)
		if err != nil {
			return err
		}
		if !won {
			continue
		}
		ev := notify.ReminderEvent{
			EventID:   uuid.NewString(),
			Kind:      eventKind,
			SessionID: sess.ID,
			LabID:     sess.LabID,
			StartsAt:  sess.StartsAt.UTC().Format(time.RFC3339),
			EndsAt:    sess.EndsAt.UTC().Format(time.RFC3339),
			TeacherID: sess.CreatedBy,
		}
		if err := s.notifier.PublishReminder(ctx, ev); err != nil {
			s.log.Warn().Err(err).Uint64("session_id", sess.ID).Str("kind", kind).Msg("reminder dropped")
		}
	}
	return nil
}
