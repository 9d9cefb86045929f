package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CodePrefix is the fixed prefix of every business code handed out by the
// allocator, e.g. AG-2025-00007.
const CodePrefix = "AG"

// Reservation is a short-lived hold on a unique, year-scoped sequential code
// before it is attached to a committed engagement. Code and progressive are
// immutable once created; only the confirmation link changes afterwards.
type Reservation struct {
	ID           int64
	Year         int
	Progressive  int
	Code         string
	Confirmed    bool
	EngagementID *int64
	OwnerHint    string
	ExpiresAt    time.Time
	CreatedAt    time.Time
}

func FormatCode(year, progressive int) string {
	return fmt.Sprintf("%s-%04d-%05d", CodePrefix, year, progressive)
}

// ParseCode extracts year and progressive from a formatted code. Returns
// ok=false for anything that does not look like an allocator-issued code.
func ParseCode(code string) (year, progressive int, ok bool) {
	parts := strings.Split(code, "-")
	if len(parts) != 3 || parts[0] != CodePrefix {
		return 0, 0, false
	}
	year, err := strconv.Atoi(parts[1])
	if err != nil || year < 1000 {
		return 0, 0, false
	}
	progressive, err = strconv.Atoi(parts[2])
	if err != nil || progressive < 1 {
		return 0, 0, false
	}
	return year, progressive, true
}

func (r *Reservation) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// MinutesRemaining reports how many whole minutes are left on the hold,
// zero once expired.
func (r *Reservation) MinutesRemaining(now time.Time) int {
	if r.Expired(now) {
		return 0
	}
	return int(r.ExpiresAt.Sub(now).Minutes())
}
