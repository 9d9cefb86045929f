package domain

import (
	"encoding/json"
	"time"
)

type DraftState string

const (
	DraftInProgress DraftState = "IN_PROGRESS"
	DraftSuspended  DraftState = "SUSPENDED"
	DraftCompleted  DraftState = "COMPLETED"
)

func IsDraftState(s string) bool {
	switch DraftState(s) {
	case DraftInProgress, DraftSuspended, DraftCompleted:
		return true
	}
	return false
}

// SectionNames is the fixed set of payload slots a draft can carry. The
// content of each slot is opaque to this subsystem; only presence matters
// for completion tracking.
var SectionNames = []string{"participants", "venue", "client", "schedule", "economics"}

func IsSectionName(name string) bool {
	for _, n := range SectionNames {
		if n == name {
			return true
		}
	}
	return false
}

// Sections maps a section name to its opaque JSON payload.
type Sections map[string]json.RawMessage

// CompletionPercent is the share of named slots holding a non-null payload.
func CompletionPercent(s Sections) int {
	present := 0
	for _, name := range SectionNames {
		raw, ok := s[name]
		if ok && len(raw) > 0 && string(raw) != "null" {
			present++
		}
	}
	return present * 100 / len(SectionNames)
}

// Draft is a partially-filled, multi-section record being prepared before it
// becomes a committed engagement. The four lease fields are nullable together:
// either all set (someone holds the edit lease) or all cleared.
type Draft struct {
	ID                string
	ReservationID     *int64
	Sections          Sections
	CompletionPercent int
	State             DraftState

	LeaseHolderID    *int64
	LeaseHolderLabel *string
	LeaseAcquiredAt  *time.Time
	LeaseExpiresAt   *time.Time

	CreatedBy int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LockExpired reports whether the lease, if any, is past its TTL. A draft
// with no lease at all counts as expired for acquisition purposes.
func (d *Draft) LockExpired(now time.Time) bool {
	return d.LeaseExpiresAt == nil || now.After(*d.LeaseExpiresAt)
}

// Locked reports whether a non-expired lease is currently held.
func (d *Draft) Locked(now time.Time) bool {
	return d.LeaseHolderID != nil && !d.LockExpired(now)
}

// HeldBy reports whether userID holds a currently valid lease on the draft.
func (d *Draft) HeldBy(userID int64, now time.Time) bool {
	return d.Locked(now) && *d.LeaseHolderID == userID
}
