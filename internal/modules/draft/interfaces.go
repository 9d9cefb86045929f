package draft

import (
	"context"
	"time"

	"agoffice/internal/domain"
)

// DraftRepository is the durable store of drafts. All lease mutations are
// conditional single-row updates whose predicate is re-evaluated against the
// persisted row at write time; the bool result reports whether the write won.
type DraftRepository interface {
	Create(ctx context.Context, d *domain.Draft) error
	GetByID(ctx context.Context, id string) (*domain.Draft, error)
	List(ctx context.Context, userID int64, state domain.DraftState) ([]domain.Draft, error)
	AcquireLease(ctx context.Context, id string, userID int64, label string, now, expiresAt time.Time) (bool, error)
	RenewLease(ctx context.Context, id string, userID int64, expiresAt time.Time) (bool, error)
	ReleaseLease(ctx context.Context, id string, holder *int64) (bool, error)
	UpdateDraft(ctx context.Context, d *domain.Draft, userID int64, label string, now, expiresAt time.Time) (bool, error)
	ListStale(ctx context.Context, cutoff, now time.Time) ([]domain.Draft, error)
	Delete(ctx context.Context, id string) error
	DeleteIfUnheld(ctx context.Context, id string, userID int64, now time.Time) (bool, error)
}

// ReservationReleaser frees a code reservation a draft was holding on to.
// Implemented by the reservation service.
type ReservationReleaser interface {
	Release(ctx context.Context, id int64, requireUnconfirmed bool) error
}

// EventSink receives lease lifecycle events for live back-office views.
type EventSink interface {
	Publish(draftID string, ev LockEvent)
}
