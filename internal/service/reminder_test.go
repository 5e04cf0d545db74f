package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/lab-seat-reservation/internal/model"
	"github.com/iliyamo/lab-seat-reservation/internal/notify"
)

// memReminderSessions mimics the SQL scan: half-open [from, to) window on
// starts_at, filtered on the unset reminder column, and a conditional mark
// that reports whether this call set the column.
type memReminderSessions struct {
	mu       sync.Mutex
	sessions []*model.Session
}

func (m *memReminderSessions) add(startsAt time.Time) *model.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &model.Session{
		ID:        uint64(len(m.sessions) + 1),
		LabID:     1,
		StartsAt:  startsAt,
		EndsAt:    startsAt.Add(2 * time.Hour),
		Capacity:  7,
		CreatedBy: 20,
	}
	m.sessions = append(m.sessions, s)
	return s
}

func (m *memReminderSessions) ListStartingBetween(_ context.Context, from, to time.Time, kind string) ([]*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Session
	for _, s := range m.sessions {
		if s.StartsAt.Before(from) || !s.StartsAt.Before(to) {
			continue
		}
		sent := s.StudentReminderSentAt
		if kind == "teacher" {
			sent = s.TeacherReminderSentAt
		}
		if sent != nil {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memReminderSessions) MarkReminderSent(_ context.Context, id uint64, kind string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.ID != id {
			continue
		}
		col := &s.StudentReminderSentAt
		if kind == "teacher" {
			col = &s.TeacherReminderSentAt
		}
		if *col != nil {
			return false, nil
		}
		t := at
		*col = &t
		return true, nil
	}
	return false, nil
}

func newReminderEnv(t *testing.T) (*memReminderSessions, *memNotifier, *ReminderService) {
	t.Helper()
	sessions := &memReminderSessions{}
	notifier := &memNotifier{}
	svc := NewReminderService(sessions, notifier, zerolog.Nop())
	svc.now = func() time.Time { return testNow }
	return sessions, notifier, svc
}

func kinds(events []notify.ReminderEvent) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Kind)
	}
	return out
}

func TestReminderScanWindows(t *testing.T) {
	sessions, notifier, svc := newReminderEnv(t)

	// Two hours out: inside the student window, outside the teacher one.
	farSess := sessions.add(testNow.Add(2 * time.Hour))
	// Ten minutes out: inside both windows.
	nearSess := sessions.add(testNow.Add(10 * time.Minute))
	// Well beyond both windows.
	sessions.add(testNow.Add(6 * time.Hour))
	// Already started.
	sessions.add(testNow.Add(-time.Minute))

	require.NoError(t, svc.Scan(context.Background()))

	events := notifier.reminderEvents()
	require.Len(t, events, 3)
	assert.ElementsMatch(t,
		[]string{notify.KindStudentReminder, notify.KindStudentReminder, notify.KindTeacherReminder},
		kinds(events))
	var studentIDs []uint64
	for _, ev := range events {
		if ev.Kind == notify.KindTeacherReminder {
			assert.Equal(t, nearSess.ID, ev.SessionID)
			assert.Equal(t, nearSess.CreatedBy, ev.TeacherID)
			continue
		}
		studentIDs = append(studentIDs, ev.SessionID)
	}
	assert.ElementsMatch(t, []uint64{farSess.ID, nearSess.ID}, studentIDs)
}

func TestReminderScanIdempotent(t *testing.T) {
	sessions, notifier, svc := newReminderEnv(t)
	sessions.add(testNow.Add(10 * time.Minute))

	require.NoError(t, svc.Scan(context.Background()))
	require.Len(t, notifier.reminderEvents(), 2)

	// A second pass over the same window sends nothing new.
	require.NoError(t, svc.Scan(context.Background()))
	assert.Len(t, notifier.reminderEvents(), 2)
}

func TestReminderBoundary(t *testing.T) {
	sessions, notifier, svc := newReminderEnv(t)

	// Exactly at the lead edge: the window is half-open, so a session
	// starting exactly now+lead is not yet due.
	sessions.add(testNow.Add(StudentReminderLead))
	require.NoError(t, svc.Scan(context.Background()))
	assert.Empty(t, notifier.reminderEvents())

	// One second inside the edge is due.
	sessions.add(testNow.Add(StudentReminderLead - time.Second))
	require.NoError(t, svc.Scan(context.Background()))
	events := notifier.reminderEvents()
	require.Len(t, events, 1)
	assert.Equal(t, notify.KindStudentReminder, events[0].Kind)
}
