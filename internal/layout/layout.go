// Package layout models the declarative seating plan of a lab.  A layout is
// an ordered list of named rows, each with a fixed number of seats, plus an
// optional single extra seat ("Edge") that sits outside the row grid.  The
// layout is persisted on the lab record as a JSON blob; this package owns the
// explicit parse step so that the rest of the core never touches the raw
// string form.
package layout

import (
	"encoding/json"
	"errors"
	"fmt"
)

// EdgeSeatName is the literal seat name used for the optional extra seat.
const EdgeSeatName = "Edge"

// Row bounds enforced when a layout is parsed or saved.
const (
	minSeatsPerRow = 1
	maxSeatsPerRow = 12
)

// ErrInvalidConfig is returned when a layout blob cannot be decoded or
// violates the structural invariants (no rows, row out of bounds, duplicate
// row names).  Handlers should translate this into a 400 response.
var ErrInvalidConfig = errors.New("invalid lab configuration")

// ErrInvalidSeat is returned when a seat name does not parse or does not
// exist under the active layout.
var ErrInvalidSeat = errors.New("invalid seat")

// Row describes one seating row: a short alphabetic name (e.g. "A", "AB")
// and how many seats the row holds.
type Row struct {
	Name      string `json:"row"`
	SeatCount int    `json:"seats"`
}

// Layout is the full seating plan of a lab.
type Layout struct {
	Rows        []Row `json:"rows"`
	HasEdgeSeat bool  `json:"has_edge_seat,omitempty"`
}

// Parse decodes a JSON layout blob and validates it.  All structural
// failures are wrapped in ErrInvalidConfig so callers can match with
// errors.Is regardless of the underlying cause.
func Parse(raw []byte) (Layout, error) {
	var l Layout
	if err := json.Unmarshal(raw, &l); err != nil {
		return Layout{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := l.Validate(); err != nil {
		return Layout{}, err
	}
	return l, nil
}

// Encode serializes the layout back into its canonical JSON form.
func (l Layout) Encode() ([]byte, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(l)
}

// Validate checks the structural invariants: at least one row, seat counts
// within [1,12], alphabetic row names with no duplicates, and no row named
// after the edge seat.
func (l Layout) Validate() error {
	if len(l.Rows) == 0 {
		return fmt.Errorf("%w: at least one row is required", ErrInvalidConfig)
	}
	seen := make(map[string]bool, len(l.Rows))
	for _, r := range l.Rows {
		name := normalizeRowName(r.Name)
		if name == "" {
			return fmt.Errorf("%w: row name must be letters only", ErrInvalidConfig)
		}
		if r.SeatCount < minSeatsPerRow || r.SeatCount > maxSeatsPerRow {
			return fmt.Errorf("%w: row %s seat count %d outside [%d,%d]", ErrInvalidConfig, name, r.SeatCount, minSeatsPerRow, maxSeatsPerRow)
		}
		if seen[name] {
			return fmt.Errorf("%w: duplicate row %s", ErrInvalidConfig, name)
		}
		seen[name] = true
	}
	return nil
}

// TotalSeats returns the number of bookable seats: the sum of all row seat
// counts plus one when the edge seat is enabled.
func (l Layout) TotalSeats() int {
	total := 0
	for _, r := range l.Rows {
		total += r.SeatCount
	}
	if l.HasEdgeSeat {
		total++
	}
	return total
}

// rowIndex returns the zero-based position of the named row, or -1.
func (l Layout) rowIndex(name string) int {
	for i, r := range l.Rows {
		if normalizeRowName(r.Name) == name {
			return i
		}
	}
	return -1
}

// Allows reports whether the given seat name is representable under this
// layout.  It is used when a layout change is validated against existing
// future bookings.
func (l Layout) Allows(name string) bool {
	_, err := l.Resolve(name)
	return err == nil
}

// SeatNames enumerates every seat name the layout defines, in row order.
// Used to materialize seat records eagerly when a layout is saved.
func (l Layout) SeatNames() []string {
	names := make([]string, 0, l.TotalSeats())
	for _, r := range l.Rows {
		row := normalizeRowName(r.Name)
		for i := 1; i <= r.SeatCount; i++ {
			names = append(names, fmt.Sprintf("%s%d", row, i))
		}
	}
	if l.HasEdgeSeat {
		names = append(names, EdgeSeatName)
	}
	return names
}
