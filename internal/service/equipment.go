package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/lab-seat-reservation/internal/model"
	"github.com/iliyamo/lab-seat-reservation/internal/repository"
)

// ErrInvalidEquipment is returned for malformed inventory input: a
// non-positive total, an unknown unit type or a blank name.
var ErrInvalidEquipment = errors.New("invalid equipment")

// EquipmentInventory is the non-transactional persistence port for the
// inventory; *repository.EquipmentRepo satisfies it.
type EquipmentInventory interface {
	Create(ctx context.Context, e *model.Equipment) error
	GetBooking(ctx context.Context, id uint64) (*model.EquipmentBooking, error)
	SetActualUsed(ctx context.Context, id uint64, amount int) error
}

// Offer is one desired session equipment offer in a SetOffers call.
type Offer struct {
	EquipmentID uint64 `json:"equipment_id" validate:"required"`
	Available   int    `json:"available" validate:"required,gt=0"`
}

// EquipmentService manages the lab inventory, per-session offers and the
// post-session usage reports.
type EquipmentService struct {
	store     Store
	inventory EquipmentInventory
	log       zerolog.Logger
}

// NewEquipmentService constructs an EquipmentService.
func NewEquipmentService(store Store, inventory EquipmentInventory, log zerolog.Logger) *EquipmentService {
	return &EquipmentService{store: store, inventory: inventory, log: log}
}

// CreateEquipment registers a lab-wide inventory item.  Staff only.
func (s *EquipmentService) CreateEquipment(ctx context.Context, caller model.Caller, labID uint64, name string, total int, unitType string, expiration *time.Time) (*model.Equipment, error) {
	if !caller.IsStaff() {
		return nil, repository.ErrForbidden
	}
	if name == "" || total <= 0 {
		return nil, ErrInvalidEquipment
	}
	if unitType != model.UnitTypeUnit && unitType != model.UnitTypeML {
		return nil, ErrInvalidEquipment
	}
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		_, err := tx.Lab(ctx, labID)
		return err
	})
	if err != nil {
		return nil, err
	}
	eq := &model.Equipment{
		LabID:          labID,
		Name:           name,
		Total:          total,
		UnitType:       unitType,
		ExpirationDate: expiration,
		CreatedBy:      caller.UserID,
	}
	if err := s.inventory.Create(ctx, eq); err != nil {
		return nil, err
	}
	return eq, nil
}

// SetOffers replaces the session's equipment offer set.  Staff only.
//
// Offers absent from the desired set are removed, which fails with
// ErrReservationsExist while any amount is still reserved.  Each desired
// offer must stay within the item's lab-wide total (ErrExceedsInventory)
// and cannot drop below what is already reserved (ErrBelowReserved).
func (s *EquipmentService) SetOffers(ctx context.Context, caller model.Caller, sessionID uint64, offers []Offer) ([]model.SessionEquipment, error) {
	if !caller.IsStaff() {
		return nil, repository.ErrForbidden
	}

	var result []model.SessionEquipment
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		sess, err := tx.LockSession(ctx, sessionID)
		if err != nil {
			return err
		}
		existing, err := tx.EquipmentOffers(ctx, sessionID)
		if err != nil {
			return err
		}
		desired := make(map[uint64]int, len(offers))
		for _, o := range offers {
			if o.Available <= 0 {
				return ErrInvalidEquipment
			}
			desired[o.EquipmentID] = o.Available
		}
		reserved := make(map[uint64]int, len(existing))
		for _, se := range existing {
			reserved[se.EquipmentID] = se.Reserved
			if _, keep := desired[se.EquipmentID]; keep {
				continue
			}
			if se.Reserved > 0 {
				return repository.ErrReservationsExist
			}
			if err := tx.DeleteEquipmentOffer(ctx, sessionID, se.EquipmentID); err != nil {
				return err
			}
		}
		for _, o := range offers {
			eq, err := tx.Equipment(ctx, o.EquipmentID)
			if err != nil {
				return err
			}
			if eq.LabID != sess.LabID {
				return repository.ErrEquipmentNotFound
			}
			if o.Available > eq.Total {
				return repository.ErrExceedsInventory
			}
			if o.Available < reserved[o.EquipmentID] {
				return repository.ErrBelowReserved
			}
			if err := tx.UpsertEquipmentOffer(ctx, sessionID, o.EquipmentID, o.Available); err != nil {
				return err
			}
			result = append(result, model.SessionEquipment{
				SessionID:   sessionID,
				EquipmentID: o.EquipmentID,
				Available:   o.Available,
				Reserved:    reserved[o.EquipmentID],
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ReportActualUse records how much of a reserved equipment line was really
// consumed.  Only the owner of the line or staff may report.
func (s *EquipmentService) ReportActualUse(ctx context.Context, caller model.Caller, equipmentBookingID uint64, amount int) error {
	if amount < 0 {
		return ErrInvalidEquipment
	}
	eb, err := s.inventory.GetBooking(ctx, equipmentBookingID)
	if err != nil {
		return err
	}
	if eb.UserID != caller.UserID && !caller.IsStaff() {
		return repository.ErrForbidden
	}
	return s.inventory.SetActualUsed(ctx, equipmentBookingID, amount)
}
