package layout

import (
	"fmt"
	"strconv"
	"strings"
)

// SeatRef is the parsed identity of a seat name.  For grid seats Row is the
// 1-based row position within the layout and Col the 1-based seat number in
// that row.  For the edge seat both are zero and Edge is true.
type SeatRef struct {
	Name string
	Row  int
	Col  int
	Edge bool
}

// ParseSeatName splits a raw seat name into its row letters and seat number,
// or recognizes the literal edge seat.  The returned name is canonical
// (upper-case row, no surrounding whitespace).  Validation against a concrete
// layout happens in Resolve; this function only checks the shape.
func ParseSeatName(raw string) (string, int, bool, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", 0, false, fmt.Errorf("%w: empty seat name", ErrInvalidSeat)
	}
	if strings.EqualFold(s, EdgeSeatName) {
		return "", 0, true, nil
	}
	i := 0
	for i < len(s) && isLetter(s[i]) {
		i++
	}
	if i == 0 || i == len(s) {
		return "", 0, false, fmt.Errorf("%w: %q", ErrInvalidSeat, raw)
	}
	num, err := strconv.Atoi(s[i:])
	if err != nil || num <= 0 {
		return "", 0, false, fmt.Errorf("%w: %q", ErrInvalidSeat, raw)
	}
	return normalizeRowName(s[:i]), num, false, nil
}

// Resolve validates a seat name against this layout and returns its parsed
// reference.  A name resolves only when it is the edge seat and the layout
// enables one, or when its row exists and its number does not exceed the
// row's configured seat count.
func (l Layout) Resolve(raw string) (SeatRef, error) {
	row, num, edge, err := ParseSeatName(raw)
	if err != nil {
		return SeatRef{}, err
	}
	if edge {
		if !l.HasEdgeSeat {
			return SeatRef{}, fmt.Errorf("%w: layout has no edge seat", ErrInvalidSeat)
		}
		return SeatRef{Name: EdgeSeatName, Edge: true}, nil
	}
	idx := l.rowIndex(row)
	if idx < 0 {
		return SeatRef{}, fmt.Errorf("%w: unknown row %s", ErrInvalidSeat, row)
	}
	if num > l.Rows[idx].SeatCount {
		return SeatRef{}, fmt.Errorf("%w: row %s has only %d seats", ErrInvalidSeat, row, l.Rows[idx].SeatCount)
	}
	return SeatRef{Name: fmt.Sprintf("%s%d", row, num), Row: idx + 1, Col: num}, nil
}

func isLetter(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}

// normalizeRowName strips non ASCII letters and converts to upper case.
func normalizeRowName(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= 'a' && r <= 'z' {
			b.WriteRune(r - 32)
		} else if r >= 'A' && r <= 'Z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
