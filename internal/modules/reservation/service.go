package reservation

import (
	"context"
	"errors"
	"log"
	"time"

	"agoffice/internal/domain"
	"agoffice/internal/pkg/retry"
	"agoffice/internal/repository"
)

// Config carries the allocator tunables; see internal/config for the
// environment defaults.
type Config struct {
	TTL          time.Duration
	SafetyWindow time.Duration
	Backoff      retry.Backoff
}

type Service struct {
	reservations ReservationRepository
	engagements  EngagementRepository
	cfg          Config
	now          func() time.Time
}

func NewService(reservations ReservationRepository, engagements EngagementRepository, cfg Config) *Service {
	return &Service{
		reservations: reservations,
		engagements:  engagements,
		cfg:          cfg,
		now:          time.Now,
	}
}

// ReservationStatus is a reservation with its derived hold state.
type ReservationStatus struct {
	Reservation      domain.Reservation
	Expired          bool
	MinutesRemaining int
}

// Allocate reserves the next free code for the year. Expired holds are swept
// first so they do not linger; uniqueness races against concurrent callers
// are retried with backoff and only surface as ErrBusy once the attempt
// budget is spent. year == 0 means the current year.
func (s *Service) Allocate(ctx context.Context, year int, ownerHint string) (*domain.Reservation, error) {
	now := s.now()
	if year == 0 {
		year = now.Year()
	}
	if year < 2000 || year > 2999 {
		return nil, ErrValidation
	}

	// Best-effort sweep; a failed cleanup never blocks allocation.
	if _, err := s.reservations.Cleanup(ctx, now, now.Add(-s.cfg.SafetyWindow)); err != nil {
		log.Printf("reservation cleanup before allocate failed: %v", err)
	}

	attempts := s.cfg.Backoff.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		r, err := s.reservations.CreateNext(ctx, year, ownerHint, s.now().Add(s.cfg.TTL))
		if err == nil {
			return r, nil
		}
		if !errors.Is(err, repository.ErrDuplicateKey) {
			return nil, err
		}
		if attempt < attempts {
			s.cfg.Backoff.Wait(attempt)
		}
	}
	return nil, ErrBusy
}

// Release deletes a reservation. With requireUnconfirmed set (the normal,
// caller-facing path) a confirmed reservation is refused. The confirmed check
// rides on the delete itself rather than a prior read, so a confirmation
// racing this call can never lose its reservation.
func (s *Service) Release(ctx context.Context, id int64, requireUnconfirmed bool) error {
	affected, err := s.reservations.Delete(ctx, id, requireUnconfirmed)
	if err != nil {
		return err
	}
	if affected == 0 {
		r, err := s.reservations.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrNotFound
			}
			return err
		}
		if r.Confirmed {
			return ErrAlreadyConfirmed
		}
		return ErrNotFound
	}
	return nil
}

// Confirm links a pending reservation to a committed engagement.
func (s *Service) Confirm(ctx context.Context, id, engagementID int64) (*domain.Reservation, error) {
	ok, err := s.engagements.Exists(ctx, engagementID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrValidation
	}

	affected, err := s.reservations.Confirm(ctx, id, engagementID)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		r, err := s.reservations.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrNotFound
			}
			return nil, err
		}
		if r.Confirmed {
			return nil, ErrAlreadyConfirmed
		}
		return nil, ErrNotFound
	}
	return s.reservations.GetByID(ctx, id)
}

// Inspect returns the reservation with its derived expiry state.
func (s *Service) Inspect(ctx context.Context, id int64) (*ReservationStatus, error) {
	r, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	now := s.now()
	return &ReservationStatus{
		Reservation:      *r,
		Expired:          r.Expired(now),
		MinutesRemaining: r.MinutesRemaining(now),
	}, nil
}

// ListPending returns active, unconfirmed holds; year == 0 means all years.
func (s *Service) ListPending(ctx context.Context, year int) ([]domain.Reservation, error) {
	return s.reservations.ListPending(ctx, year, s.now())
}

// Cleanup sweeps reclaimable reservations and reports how many went away.
func (s *Service) Cleanup(ctx context.Context) (int64, error) {
	now := s.now()
	return s.reservations.Cleanup(ctx, now, now.Add(-s.cfg.SafetyWindow))
}
