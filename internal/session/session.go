// Package session holds the per-user mutable record the dialog operates on.
//
// Sessions live in memory for the lifetime of the process. A Store guarantees
// that mutations for the same user never interleave; different users never
// share mutable state.
package session

import (
	"fmt"

	"cloud.google.com/go/civil"
)

// DialogState is the pending-input slot of a session.
type DialogState uint8

const (
	// StateIdle means no input is pending.
	StateIdle DialogState = iota
	StateAwaitingPlantingDate
	StateAwaitingArea
)

func (s DialogState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingPlantingDate:
		return "awaiting_planting_date"
	case StateAwaitingArea:
		return "awaiting_area"
	default:
		return fmt.Sprintf("DialogState(%d)", uint8(s))
	}
}

// Valid reports whether s is one of the declared states.
func (s DialogState) Valid() bool { return s <= StateAwaitingArea }

// Session is one user's record. The zero PlantingDate and zero AreaM2 mean unset.
type Session struct {
	UserID       int64       `json:"user_id"`
	CropID       string      `json:"crop_id"`
	PlantingDate civil.Date  `json:"planting_date,omitempty"`
	AreaM2       float64     `json:"area_m2,omitempty"`
	Soil         string      `json:"soil,omitempty"`
	State        DialogState `json:"dialog_state"`
}

// HasPlantingDate reports whether the anchor date is set.
func (s Session) HasPlantingDate() bool { return s.PlantingDate.IsValid() }

// HasArea reports whether a plot area is set.
func (s Session) HasArea() bool { return s.AreaM2 > 0 }

// Mutator changes a session in place. Returning an error discards the change.
type Mutator func(s *Session) error

// Store is the key-addressed session store.
type Store interface {
	// GetOrCreate returns a snapshot of the user's session, creating a default one on first use.
	GetOrCreate(userID int64) Session
	// Update applies fn atomically with respect to other updates of the same user
	// and returns the resulting snapshot.
	Update(userID int64, fn Mutator) (Session, error)
	// Reset removes the session. It succeeds when the session does not exist.
	Reset(userID int64)
	// Len returns the number of live sessions.
	Len() int
}
