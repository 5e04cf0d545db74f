package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/lab-seat-reservation/internal/layout"
	"github.com/iliyamo/lab-seat-reservation/internal/model"
	"github.com/iliyamo/lab-seat-reservation/internal/repository"
)

// LabCreator is the insert port for new labs; *repository.LabRepo
// satisfies it.
type LabCreator interface {
	Create(ctx context.Context, lab *model.Lab) error
}

// LabService manages lab creation and layout changes.
type LabService struct {
	store Store
	labs  LabCreator
	log   zerolog.Logger

	now func() time.Time
}

// NewLabService constructs a LabService.
func NewLabService(store Store, labs LabCreator, log zerolog.Logger) *LabService {
	return &LabService{store: store, labs: labs, log: log, now: time.Now}
}

// Create registers a new lab with its initial layout.  Admin only.
func (s *LabService) Create(ctx context.Context, caller model.Caller, name string, l layout.Layout) (*model.Lab, error) {
	if caller.Role != model.RoleAdmin {
		return nil, repository.ErrForbidden
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		return nil, layout.ErrInvalidConfig
	}
	lab := &model.Lab{Name: name, Layout: l, CreatedBy: caller.UserID}
	if err := s.labs.Create(ctx, lab); err != nil {
		return nil, err
	}
	return lab, nil
}

// SetLayout replaces a lab's layout.  Staff only.
//
// A shrink is refused while any future booking sits on a seat the new
// layout cannot represent; the first such booking is reported in a
// LayoutConflictError.  On success every future session's remaining
// capacity is recomputed as the new total minus its current booking count,
// so a grow frees seats immediately and a shrink never drives the counter
// negative.
func (s *LabService) SetLayout(ctx context.Context, caller model.Caller, labID uint64, l layout.Layout) (*model.Lab, error) {
	if !caller.IsStaff() {
		return nil, repository.ErrForbidden
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}

	var lab *model.Lab
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		var err error
		lab, err = tx.LockLab(ctx, labID)
		if err != nil {
			return err
		}
		booked, err := tx.FutureBookedSeats(ctx, labID)
		if err != nil {
			return err
		}
		for _, b := range booked {
			if !l.Allows(b.Name) {
				return &repository.LayoutConflictError{SeatName: b.Name, UserID: b.UserID, SessionID: b.SessionID}
			}
		}
		if err := tx.UpdateLabLayout(ctx, labID, l); err != nil {
			return err
		}
		if err := tx.CreateMissingSeats(ctx, labID, l); err != nil {
			return err
		}

		perSession := make(map[uint64]int)
		for _, b := range booked {
			perSession[b.SessionID]++
		}
		future, err := tx.FutureSessions(ctx, labID, s.now().UTC())
		if err != nil {
			return err
		}
		total := l.TotalSeats()
		for _, sess := range future {
			capacity := total - perSession[sess.ID]
			if capacity < 0 {
				capacity = 0
			}
			if err := tx.SetSessionCapacity(ctx, sess.ID, capacity); err != nil {
				return err
			}
		}
		lab.Layout = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lab, nil
}
