package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/lab-seat-reservation/internal/layout"
	"github.com/iliyamo/lab-seat-reservation/internal/model"
	"github.com/iliyamo/lab-seat-reservation/internal/repository"
)

type memLabCreator struct {
	store *memStore
}

func (c *memLabCreator) Create(_ context.Context, lab *model.Lab) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	lab.ID = c.store.id()
	cp := *lab
	c.store.labs[lab.ID] = &cp
	return nil
}

func newLabEnv(t *testing.T) (*memStore, *LabService) {
	t.Helper()
	store := newMemStore()
	store.clock = func() time.Time { return testNow }
	svc := NewLabService(store, &memLabCreator{store: store}, zerolog.Nop())
	svc.now = store.clock
	return store, svc
}

func TestCreateLab(t *testing.T) {
	_, svc := newLabEnv(t)
	admin := model.Caller{UserID: 1, Role: model.RoleAdmin}

	lab, err := svc.Create(context.Background(), admin, "Chemistry 1", testLayout())
	require.NoError(t, err)
	assert.NotZero(t, lab.ID)

	_, err = svc.Create(context.Background(), model.Caller{UserID: 2, Role: model.RoleTeacher}, "X", testLayout())
	assert.ErrorIs(t, err, repository.ErrForbidden, "lab creation is admin only")

	_, err = svc.Create(context.Background(), admin, "Bad", layout.Layout{})
	assert.ErrorIs(t, err, layout.ErrInvalidConfig)
	_, err = svc.Create(context.Background(), admin, "  ", testLayout())
	assert.ErrorIs(t, err, layout.ErrInvalidConfig)
}

func TestSetLayoutBlockedByFutureBooking(t *testing.T) {
	store, svc := newLabEnv(t)
	admin := model.Caller{UserID: 1, Role: model.RoleAdmin}
	lab := store.addLab(testLayout())
	sess := store.addSession(lab.ID, testNow.Add(24*time.Hour), testNow.Add(26*time.Hour), 7)

	notifier := &memNotifier{}
	bookings := NewBookingService(store, notifier, zerolog.Nop())
	bookings.now = store.clock
	_, err := bookings.BookSeat(context.Background(), student(10), sess.ID, lab.ID, "B3", nil, nil)
	require.NoError(t, err)

	// Shrinking row B below seat 3 strands the booking.
	shrunk := layout.Layout{Rows: []layout.Row{{Name: "A", SeatCount: 3}, {Name: "B", SeatCount: 2}}, HasEdgeSeat: true}
	_, err = svc.SetLayout(context.Background(), admin, lab.ID, shrunk)
	var conflict *repository.LayoutConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "B3", conflict.SeatName)
	assert.Equal(t, uint64(10), conflict.UserID)
	assert.Equal(t, sess.ID, conflict.SessionID)

	// The stored layout is unchanged after the rejected shrink.
	assert.Equal(t, 3, store.lab(lab.ID).Layout.Rows[1].SeatCount)
}

func TestSetLayoutRecomputesFutureCapacity(t *testing.T) {
	store, svc := newLabEnv(t)
	admin := model.Caller{UserID: 1, Role: model.RoleAdmin}
	lab := store.addLab(testLayout())
	future := store.addSession(lab.ID, testNow.Add(24*time.Hour), testNow.Add(26*time.Hour), 7)
	past := store.addSession(lab.ID, testNow.Add(-4*time.Hour), testNow.Add(-2*time.Hour), 2)

	notifier := &memNotifier{}
	bookings := NewBookingService(store, notifier, zerolog.Nop())
	bookings.now = store.clock
	_, err := bookings.BookSeat(context.Background(), student(10), future.ID, lab.ID, "A1", nil, nil)
	require.NoError(t, err)
	_, err = bookings.BookSeat(context.Background(), student(11), future.ID, lab.ID, "A2", nil, nil)
	require.NoError(t, err)

	// Grow row B from 3 to 5 seats: total goes 7 -> 9.
	grown := layout.Layout{Rows: []layout.Row{{Name: "A", SeatCount: 3}, {Name: "B", SeatCount: 5}}, HasEdgeSeat: true}
	updated, err := svc.SetLayout(context.Background(), admin, lab.ID, grown)
	require.NoError(t, err)
	assert.Equal(t, 9, updated.Layout.TotalSeats())

	assert.Equal(t, 9-2, store.session(future.ID).Capacity, "future capacity is total minus current bookings")
	assert.Equal(t, 2, store.session(past.ID).Capacity, "past sessions keep their capacity")
}

func TestSetLayoutStudentForbidden(t *testing.T) {
	store, svc := newLabEnv(t)
	lab := store.addLab(testLayout())
	_, err := svc.SetLayout(context.Background(), student(10), lab.ID, testLayout())
	assert.ErrorIs(t, err, repository.ErrForbidden)
}
