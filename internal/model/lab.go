package model

import (
	"time"

	"github.com/iliyamo/lab-seat-reservation/internal/layout"
)

// Lab represents a physical lab room whose bookable seats are described by a
// declarative layout.  The layout is stored as JSON in the `labs.row_config`
// column and decoded by the repository on read.
//
// Fields:
//  ID        – primary key identifier.
//  Name      – human readable lab name.
//  Layout    – parsed seating plan (rows + optional edge seat).
//  CreatedBy – user ID of the administrator who created the lab.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Lab struct {
	ID        uint64        `json:"id"`
	Name      string        `json:"name"`
	Layout    layout.Layout `json:"layout"`
	CreatedBy uint64        `json:"created_by"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Seat is an individually bookable position within a lab.  Seats are created
// lazily the first time their name is booked, or eagerly when a layout is
// saved.  (LabID, Name) is unique at the storage layer.
//
// Row and Col are the 1-based grid position; both are nil for the edge seat.
type Seat struct {
	ID        uint64    `json:"id"`
	LabID     uint64    `json:"lab_id"`
	Name      string    `json:"name"`
	Row       *int      `json:"row,omitempty"`
	Col       *int      `json:"col,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}
