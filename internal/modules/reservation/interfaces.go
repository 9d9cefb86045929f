package reservation

import (
	"context"
	"time"

	"agoffice/internal/domain"
)

// ReservationRepository is the durable store of code reservations.
type ReservationRepository interface {
	CreateNext(ctx context.Context, year int, ownerHint string, expiresAt time.Time) (*domain.Reservation, error)
	GetByID(ctx context.Context, id int64) (*domain.Reservation, error)
	Confirm(ctx context.Context, id, engagementID int64) (int64, error)
	Delete(ctx context.Context, id int64, requireUnconfirmed bool) (int64, error)
	ListPending(ctx context.Context, year int, now time.Time) ([]domain.Reservation, error)
	Cleanup(ctx context.Context, now, staleBefore time.Time) (int64, error)
}

// EngagementRepository reads the committed records table (external
// collaborator, read-only from this subsystem).
type EngagementRepository interface {
	Exists(ctx context.Context, id int64) (bool, error)
}
