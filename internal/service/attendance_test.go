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
	"github.com/iliyamo/lab-seat-reservation/internal/repository"
)

type memMarks struct {
	mu    sync.Mutex
	marks map[[2]uint64]*model.Attendance
}

func (m *memMarks) Upsert(_ context.Context, a *model.Attendance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.marks == nil {
		m.marks = make(map[[2]uint64]*model.Attendance)
	}
	cp := *a
	m.marks[[2]uint64{a.UserID, a.SessionID}] = &cp
	return nil
}

func (m *memMarks) get(userID, sessionID uint64) *model.Attendance {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.marks[[2]uint64{userID, sessionID}]
}

func newAttendanceEnv(t *testing.T) (*memStore, *memMarks, *AttendanceService, *model.Lab) {
	t.Helper()
	store := newMemStore()
	store.clock = func() time.Time { return testNow }
	marks := &memMarks{}
	svc := NewAttendanceService(store, marks, zerolog.Nop())
	svc.now = store.clock
	lab := store.addLab(testLayout())
	return store, marks, svc, lab
}

func TestMarkAttendance(t *testing.T) {
	store, marks, svc, lab := newAttendanceEnv(t)
	teacher := model.Caller{UserID: 20, Role: model.RoleTeacher}

	// An ended session with a booking held by user 10.
	sess := store.addSession(lab.ID, testNow.Add(-4*time.Hour), testNow.Add(-2*time.Hour), 6)
	notifier := &memNotifier{}
	bookings := NewBookingService(store, notifier, zerolog.Nop())
	// Book while the session is still in the future, then move it to the past.
	bookings.now = func() time.Time { return testNow.Add(-5 * time.Hour) }
	_, err := bookings.BookSeat(context.Background(), student(10), sess.ID, lab.ID, "A1", nil, nil)
	require.NoError(t, err)

	a, err := svc.Mark(context.Background(), teacher, sess.ID, 10, model.AttendancePresent, nil)
	require.NoError(t, err)
	assert.Equal(t, teacher.UserID, a.MarkedBy)
	assert.Equal(t, model.AttendancePresent, marks.get(10, sess.ID).Status)

	// A second mark overwrites the first.
	_, err = svc.Mark(context.Background(), teacher, sess.ID, 10, model.AttendanceExcused, nil)
	require.NoError(t, err)
	assert.Equal(t, model.AttendanceExcused, marks.get(10, sess.ID).Status)
}

func TestMarkAttendanceGuards(t *testing.T) {
	store, _, svc, lab := newAttendanceEnv(t)
	teacher := model.Caller{UserID: 20, Role: model.RoleTeacher}
	ended := store.addSession(lab.ID, testNow.Add(-4*time.Hour), testNow.Add(-2*time.Hour), 6)
	running := store.addSession(lab.ID, testNow.Add(-time.Hour), testNow.Add(time.Hour), 6)

	_, err := svc.Mark(context.Background(), student(10), ended.ID, 10, model.AttendancePresent, nil)
	assert.ErrorIs(t, err, repository.ErrForbidden)

	_, err = svc.Mark(context.Background(), teacher, ended.ID, 10, "LATE", nil)
	assert.ErrorIs(t, err, ErrInvalidAttendance)

	_, err = svc.Mark(context.Background(), teacher, running.ID, 10, model.AttendancePresent, nil)
	assert.ErrorIs(t, err, ErrSessionNotEnded)

	// No booking in the session means nothing to mark.
	_, err = svc.Mark(context.Background(), teacher, ended.ID, 10, model.AttendancePresent, nil)
	assert.ErrorIs(t, err, repository.ErrBookingNotFound)
}
