package service

import (
	"context"
	"sync"
	"time"

	"github.com/iliyamo/lab-seat-reservation/internal/layout"
	"github.com/iliyamo/lab-seat-reservation/internal/model"
	"github.com/iliyamo/lab-seat-reservation/internal/notify"
	"github.com/iliyamo/lab-seat-reservation/internal/repository"
)

// memStore is an in-memory Store used by the service tests.  Each WithinTx
// call runs under one mutex and rolls the whole state back on error, which
// mirrors the transactional behaviour the real store provides.
type memStore struct {
	mu sync.Mutex

	clock func() time.Time

	labs       map[uint64]*model.Lab
	seats      map[uint64]*model.Seat
	sessions   map[uint64]*model.Session
	bookings   map[uint64]*model.SeatBooking
	equipment  map[uint64]*model.Equipment
	offers     map[[2]uint64]*model.SessionEquipment
	eqBookings map[uint64]*model.EquipmentBooking
	nextID     uint64
}

func newMemStore() *memStore {
	return &memStore{
		clock:      time.Now,
		labs:       make(map[uint64]*model.Lab),
		seats:      make(map[uint64]*model.Seat),
		sessions:   make(map[uint64]*model.Session),
		bookings:   make(map[uint64]*model.SeatBooking),
		equipment:  make(map[uint64]*model.Equipment),
		offers:     make(map[[2]uint64]*model.SessionEquipment),
		eqBookings: make(map[uint64]*model.EquipmentBooking),
	}
}

func (m *memStore) id() uint64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) WithinTx(_ context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.snapshot()
	if err := fn(&memTx{s: m}); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type memSnapshot struct {
	labs       map[uint64]model.Lab
	seats      map[uint64]model.Seat
	sessions   map[uint64]model.Session
	bookings   map[uint64]model.SeatBooking
	equipment  map[uint64]model.Equipment
	offers     map[[2]uint64]model.SessionEquipment
	eqBookings map[uint64]model.EquipmentBooking
	nextID     uint64
}

func (m *memStore) snapshot() memSnapshot {
	s := memSnapshot{
		labs:       make(map[uint64]model.Lab, len(m.labs)),
		seats:      make(map[uint64]model.Seat, len(m.seats)),
		sessions:   make(map[uint64]model.Session, len(m.sessions)),
		bookings:   make(map[uint64]model.SeatBooking, len(m.bookings)),
		equipment:  make(map[uint64]model.Equipment, len(m.equipment)),
		offers:     make(map[[2]uint64]model.SessionEquipment, len(m.offers)),
		eqBookings: make(map[uint64]model.EquipmentBooking, len(m.eqBookings)),
		nextID:     m.nextID,
	}
	for k, v := range m.labs {
		s.labs[k] = *v
	}
	for k, v := range m.seats {
		s.seats[k] = *v
	}
	for k, v := range m.sessions {
		s.sessions[k] = *v
	}
	for k, v := range m.bookings {
		s.bookings[k] = *v
	}
	for k, v := range m.equipment {
		s.equipment[k] = *v
	}
	for k, v := range m.offers {
		s.offers[k] = *v
	}
	for k, v := range m.eqBookings {
		s.eqBookings[k] = *v
	}
	return s
}

func (m *memStore) restore(s memSnapshot) {
	m.labs = make(map[uint64]*model.Lab, len(s.labs))
	for k := range s.labs {
		v := s.labs[k]
		m.labs[k] = &v
	}
	m.seats = make(map[uint64]*model.Seat, len(s.seats))
	for k := range s.seats {
		v := s.seats[k]
		m.seats[k] = &v
	}
	m.sessions = make(map[uint64]*model.Session, len(s.sessions))
	for k := range s.sessions {
		v := s.sessions[k]
		m.sessions[k] = &v
	}
	m.bookings = make(map[uint64]*model.SeatBooking, len(s.bookings))
	for k := range s.bookings {
		v := s.bookings[k]
		m.bookings[k] = &v
	}
	m.equipment = make(map[uint64]*model.Equipment, len(s.equipment))
	for k := range s.equipment {
		v := s.equipment[k]
		m.equipment[k] = &v
	}
	m.offers = make(map[[2]uint64]*model.SessionEquipment, len(s.offers))
	for k := range s.offers {
		v := s.offers[k]
		m.offers[k] = &v
	}
	m.eqBookings = make(map[uint64]*model.EquipmentBooking, len(s.eqBookings))
	for k := range s.eqBookings {
		v := s.eqBookings[k]
		m.eqBookings[k] = &v
	}
	m.nextID = s.nextID
}

// Test data helpers.  Callers hold no lock; these are for setup only.

func (m *memStore) addLab(l layout.Layout) *model.Lab {
	m.mu.Lock()
	defer m.mu.Unlock()
	lab := &model.Lab{ID: m.id(), Name: "Lab", Layout: l, CreatedBy: 1}
	m.labs[lab.ID] = lab
	return lab
}

func (m *memStore) addSession(labID uint64, startsAt, endsAt time.Time, capacity int) *model.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess := &model.Session{ID: m.id(), LabID: labID, StartsAt: startsAt, EndsAt: endsAt, Capacity: capacity, CreatedBy: 1}
	m.sessions[sess.ID] = sess
	return sess
}

func (m *memStore) addEquipment(labID uint64, name string, total int) *model.Equipment {
	m.mu.Lock()
	defer m.mu.Unlock()
	eq := &model.Equipment{ID: m.id(), LabID: labID, Name: name, Total: total, UnitType: model.UnitTypeUnit, CreatedBy: 1}
	m.equipment[eq.ID] = eq
	return eq
}

func (m *memStore) addOffer(sessionID, equipmentID uint64, available, reserved int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offers[[2]uint64{sessionID, equipmentID}] = &model.SessionEquipment{
		SessionID: sessionID, EquipmentID: equipmentID, Available: available, Reserved: reserved,
	}
}

func (m *memStore) lab(id uint64) model.Lab {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.labs[id]
}

func (m *memStore) session(id uint64) model.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.sessions[id]
}

func (m *memStore) bookingCount(sessionID uint64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.bookings {
		if b.SessionID == sessionID {
			n++
		}
	}
	return n
}

func (m *memStore) hasOffer(sessionID, equipmentID uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.offers[[2]uint64{sessionID, equipmentID}]
	return ok
}

func (m *memStore) offer(sessionID, equipmentID uint64) model.SessionEquipment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.offers[[2]uint64{sessionID, equipmentID}]
}

// memTx implements Tx against the locked store.

type memTx struct {
	s *memStore
}

func (t *memTx) Lab(_ context.Context, id uint64) (*model.Lab, error) {
	lab, ok := t.s.labs[id]
	if !ok {
		return nil, repository.ErrLabNotFound
	}
	cp := *lab
	return &cp, nil
}

func (t *memTx) LockLab(ctx context.Context, id uint64) (*model.Lab, error) {
	return t.Lab(ctx, id)
}

func (t *memTx) UpdateLabLayout(_ context.Context, labID uint64, l layout.Layout) error {
	lab, ok := t.s.labs[labID]
	if !ok {
		return repository.ErrLabNotFound
	}
	lab.Layout = l
	return nil
}

func (t *memTx) CreateMissingSeats(ctx context.Context, labID uint64, l layout.Layout) error {
	for _, name := range l.SeatNames() {
		ref, err := l.Resolve(name)
		if err != nil {
			return err
		}
		if _, err := t.GetOrCreateSeat(ctx, labID, ref); err != nil {
			return err
		}
	}
	return nil
}

func (t *memTx) GetOrCreateSeat(_ context.Context, labID uint64, ref layout.SeatRef) (*model.Seat, error) {
	for _, s := range t.s.seats {
		if s.LabID == labID && s.Name == ref.Name {
			cp := *s
			return &cp, nil
		}
	}
	seat := &model.Seat{ID: t.s.id(), LabID: labID, Name: ref.Name, IsActive: true}
	if !ref.Edge {
		row, col := ref.Row, ref.Col
		seat.Row = &row
		seat.Col = &col
	}
	t.s.seats[seat.ID] = seat
	cp := *seat
	return &cp, nil
}

func (t *memTx) SeatByName(_ context.Context, labID uint64, name string) (*model.Seat, error) {
	for _, s := range t.s.seats {
		if s.LabID == labID && s.Name == name {
			cp := *s
			return &cp, nil
		}
	}
	return nil, repository.ErrSeatNotFound
}

func (t *memTx) Session(_ context.Context, id uint64) (*model.Session, error) {
	sess, ok := t.s.sessions[id]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	cp := *sess
	return &cp, nil
}

func (t *memTx) LockSession(ctx context.Context, id uint64) (*model.Session, error) {
	return t.Session(ctx, id)
}

func (t *memTx) CreateSession(_ context.Context, s *model.Session) error {
	s.ID = t.s.id()
	cp := *s
	t.s.sessions[s.ID] = &cp
	return nil
}

func (t *memTx) UpdateSessionTimes(_ context.Context, id uint64, startsAt, endsAt time.Time) error {
	sess, ok := t.s.sessions[id]
	if !ok {
		return repository.ErrSessionNotFound
	}
	sess.StartsAt = startsAt
	sess.EndsAt = endsAt
	return nil
}

func (t *memTx) DeleteSessionCascade(_ context.Context, id uint64) error {
	if _, ok := t.s.sessions[id]; !ok {
		return repository.ErrSessionNotFound
	}
	for bid, b := range t.s.bookings {
		if b.SessionID == id {
			delete(t.s.bookings, bid)
		}
	}
	for eid, eb := range t.s.eqBookings {
		if eb.SessionID == id {
			delete(t.s.eqBookings, eid)
		}
	}
	for key := range t.s.offers {
		if key[0] == id {
			delete(t.s.offers, key)
		}
	}
	delete(t.s.sessions, id)
	return nil
}

func (t *memTx) HasOverlap(_ context.Context, labID uint64, startsAt, endsAt time.Time, excludeID uint64) (bool, error) {
	for _, sess := range t.s.sessions {
		if sess.LabID != labID || sess.ID == excludeID {
			continue
		}
		if model.Overlaps(startsAt, endsAt, sess.StartsAt, sess.EndsAt) {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) FutureSessions(_ context.Context, labID uint64, after time.Time) ([]*model.Session, error) {
	var out []*model.Session
	for _, sess := range t.s.sessions {
		if sess.LabID == labID && sess.StartsAt.After(after) {
			cp := *sess
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (t *memTx) SetSessionCapacity(_ context.Context, id uint64, capacity int) error {
	sess, ok := t.s.sessions[id]
	if !ok {
		return repository.ErrSessionNotFound
	}
	sess.Capacity = capacity
	return nil
}

func (t *memTx) DecrementCapacity(_ context.Context, id uint64) error {
	sess, ok := t.s.sessions[id]
	if !ok || sess.Capacity <= 0 {
		return repository.ErrSessionFull
	}
	sess.Capacity--
	return nil
}

func (t *memTx) IncrementCapacity(_ context.Context, id uint64, by int) error {
	if by <= 0 {
		return nil
	}
	sess, ok := t.s.sessions[id]
	if !ok {
		return repository.ErrSessionNotFound
	}
	sess.Capacity += by
	return nil
}

func (t *memTx) InsertBooking(_ context.Context, b *model.SeatBooking) error {
	for _, other := range t.s.bookings {
		if other.SessionID == b.SessionID && other.SeatID == b.SeatID {
			return repository.ErrSeatTaken
		}
		if other.SessionID == b.SessionID && other.UserID == b.UserID {
			return repository.ErrAlreadyBooked
		}
	}
	b.ID = t.s.id()
	b.CreatedAt = t.s.clock()
	cp := *b
	t.s.bookings[b.ID] = &cp
	return nil
}

func (t *memTx) BookingBySessionAndUser(_ context.Context, sessionID, userID uint64) (*model.SeatBooking, error) {
	for _, b := range t.s.bookings {
		if b.SessionID == sessionID && b.UserID == userID {
			cp := *b
			return &cp, nil
		}
	}
	return nil, repository.ErrBookingNotFound
}

func (t *memTx) BookingBySessionAndSeat(_ context.Context, sessionID, seatID uint64) (*model.SeatBooking, error) {
	for _, b := range t.s.bookings {
		if b.SessionID == sessionID && b.SeatID == seatID {
			cp := *b
			return &cp, nil
		}
	}
	return nil, repository.ErrBookingNotFound
}

func (t *memTx) BookingByID(_ context.Context, id uint64) (*model.SeatBooking, error) {
	b, ok := t.s.bookings[id]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

func (t *memTx) BookingsForUnbook(_ context.Context, sessionID, seatID, userID uint64, anyUser bool) ([]model.SeatBooking, error) {
	var out []model.SeatBooking
	for _, b := range t.s.bookings {
		if b.SessionID != sessionID || b.SeatID != seatID {
			continue
		}
		if !anyUser && b.UserID != userID {
			continue
		}
		out = append(out, *b)
	}
	return out, nil
}

func (t *memTx) DeleteBooking(_ context.Context, id uint64) error {
	if _, ok := t.s.bookings[id]; !ok {
		return repository.ErrBookingNotFound
	}
	delete(t.s.bookings, id)
	return nil
}

func (t *memTx) UpdateBookingSeat(_ context.Context, id, seatID uint64, name string) error {
	b, ok := t.s.bookings[id]
	if !ok {
		return repository.ErrBookingNotFound
	}
	for _, other := range t.s.bookings {
		if other.ID != id && other.SessionID == b.SessionID && other.SeatID == seatID {
			return repository.ErrSeatTaken
		}
	}
	b.SeatID = seatID
	b.Name = name
	return nil
}

func (t *memTx) UpdateBookingStatus(_ context.Context, id uint64, status string) error {
	b, ok := t.s.bookings[id]
	if !ok {
		return repository.ErrBookingNotFound
	}
	b.Status = status
	return nil
}

func (t *memTx) FutureBookedSeats(_ context.Context, labID uint64) ([]model.SeatBooking, error) {
	now := t.s.clock()
	var out []model.SeatBooking
	for _, b := range t.s.bookings {
		sess, ok := t.s.sessions[b.SessionID]
		if !ok || sess.LabID != labID || !sess.StartsAt.After(now) {
			continue
		}
		out = append(out, *b)
	}
	return out, nil
}

func (t *memTx) Equipment(_ context.Context, id uint64) (*model.Equipment, error) {
	eq, ok := t.s.equipment[id]
	if !ok {
		return nil, repository.ErrEquipmentNotFound
	}
	cp := *eq
	return &cp, nil
}

func (t *memTx) EquipmentOffer(_ context.Context, sessionID, equipmentID uint64) (*model.SessionEquipment, error) {
	se, ok := t.s.offers[[2]uint64{sessionID, equipmentID}]
	if !ok {
		return nil, repository.ErrSessionEquipmentNotFound
	}
	cp := *se
	return &cp, nil
}

func (t *memTx) EquipmentOffers(_ context.Context, sessionID uint64) ([]model.SessionEquipment, error) {
	var out []model.SessionEquipment
	for key, se := range t.s.offers {
		if key[0] == sessionID {
			out = append(out, *se)
		}
	}
	return out, nil
}

func (t *memTx) ReserveEquipment(_ context.Context, sessionID, equipmentID uint64, amount int) error {
	se, ok := t.s.offers[[2]uint64{sessionID, equipmentID}]
	if !ok {
		return repository.ErrSessionEquipmentNotFound
	}
	if se.Available-se.Reserved < amount {
		return repository.ErrInsufficientEquipment
	}
	se.Reserved += amount
	return nil
}

func (t *memTx) ReleaseEquipment(_ context.Context, sessionID, equipmentID uint64, amount int) error {
	se, ok := t.s.offers[[2]uint64{sessionID, equipmentID}]
	if !ok {
		return nil
	}
	se.Reserved -= amount
	if se.Reserved < 0 {
		se.Reserved = 0
	}
	return nil
}

func (t *memTx) UpsertEquipmentOffer(_ context.Context, sessionID, equipmentID uint64, available int) error {
	key := [2]uint64{sessionID, equipmentID}
	if se, ok := t.s.offers[key]; ok {
		se.Available = available
		return nil
	}
	t.s.offers[key] = &model.SessionEquipment{SessionID: sessionID, EquipmentID: equipmentID, Available: available}
	return nil
}

func (t *memTx) DeleteEquipmentOffer(_ context.Context, sessionID, equipmentID uint64) error {
	delete(t.s.offers, [2]uint64{sessionID, equipmentID})
	return nil
}

func (t *memTx) InsertEquipmentBooking(_ context.Context, eb *model.EquipmentBooking) error {
	eb.ID = t.s.id()
	cp := *eb
	t.s.eqBookings[eb.ID] = &cp
	return nil
}

func (t *memTx) EquipmentBookingsForSeatBooking(_ context.Context, seatBookingID uint64) ([]model.EquipmentBooking, error) {
	var out []model.EquipmentBooking
	for _, eb := range t.s.eqBookings {
		if eb.SeatBookingID == seatBookingID {
			out = append(out, *eb)
		}
	}
	return out, nil
}

func (t *memTx) DeleteEquipmentBookingsForSeatBooking(_ context.Context, seatBookingID uint64) error {
	for id, eb := range t.s.eqBookings {
		if eb.SeatBookingID == seatBookingID {
			delete(t.s.eqBookings, id)
		}
	}
	return nil
}

// memNotifier records published events.

type memNotifier struct {
	mu        sync.Mutex
	bookings  []notify.BookingEvent
	reminders []notify.ReminderEvent
}

func (n *memNotifier) PublishBooking(_ context.Context, ev notify.BookingEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.bookings = append(n.bookings, ev)
	return nil
}

func (n *memNotifier) PublishReminder(_ context.Context, ev notify.ReminderEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reminders = append(n.reminders, ev)
	return nil
}

func (n *memNotifier) bookingEvents() []notify.BookingEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notify.BookingEvent, len(n.bookings))
	copy(out, n.bookings)
	return out
}

func (n *memNotifier) reminderEvents() []notify.ReminderEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notify.ReminderEvent, len(n.reminders))
	copy(out, n.reminders)
	return out
}
