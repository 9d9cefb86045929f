package draft

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"agoffice/internal/domain"
	"agoffice/internal/pkg/validator"
	"agoffice/internal/repository"
)

type Config struct {
	LeaseTTL  time.Duration
	Retention time.Duration
}

type Service struct {
	drafts       DraftRepository
	reservations ReservationReleaser
	events       EventSink
	cfg          Config
	now          func() time.Time
}

func NewService(drafts DraftRepository, reservations ReservationReleaser, events EventSink, cfg Config) *Service {
	return &Service{
		drafts:       drafts,
		reservations: reservations,
		events:       events,
		cfg:          cfg,
		now:          time.Now,
	}
}

func (s *Service) ttlMinutes() int {
	return int(s.cfg.LeaseTTL.Minutes())
}

// Create stores a new draft and grants its edit lease to the creator.
func (s *Service) Create(ctx context.Context, userID int64, userLabel string, reservationID *int64, sections map[string]json.RawMessage) (*domain.Draft, error) {
	if userID == 0 {
		return nil, ErrValidation
	}
	if unknown := validator.SectionNames(sectionKeys(sections)); len(unknown) > 0 {
		return nil, ErrValidation
	}

	now := s.now()
	expires := now.Add(s.cfg.LeaseTTL)
	d := &domain.Draft{
		ID:               uuid.NewString(),
		ReservationID:    reservationID,
		Sections:         domain.Sections{},
		State:            domain.DraftInProgress,
		LeaseHolderID:    &userID,
		LeaseHolderLabel: &userLabel,
		LeaseAcquiredAt:  &now,
		LeaseExpiresAt:   &expires,
		CreatedBy:        userID,
	}
	for name, raw := range sections {
		if len(raw) > 0 && string(raw) != "null" {
			d.Sections[name] = raw
		}
	}
	d.CompletionPercent = domain.CompletionPercent(d.Sections)

	if err := s.drafts.Create(ctx, d); err != nil {
		return nil, err
	}
	s.publish(d.ID, "lease_acquired", userID, userLabel, &expires)
	return d, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Draft, error) {
	d, err := s.drafts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return d, nil
}

func (s *Service) List(ctx context.Context, userID int64, state string) ([]domain.Draft, error) {
	if state != "" && !domain.IsDraftState(state) {
		return nil, ErrValidation
	}
	return s.drafts.List(ctx, userID, domain.DraftState(state))
}

// Acquire grants the edit lease when the draft is unlocked, expired, or
// already held by the same user. A losing caller gets a LockedError carrying
// the current holder. The write side re-checks the predicate against the
// persisted row, so two racing acquirers can never both win.
func (s *Service) Acquire(ctx context.Context, id string, userID int64, userLabel string) (*domain.Draft, error) {
	if userID == 0 {
		return nil, ErrValidation
	}

	// Two attempts: the second one covers a release happening between a
	// lost conditional write and the reload below.
	for i := 0; i < 2; i++ {
		now := s.now()
		expires := now.Add(s.cfg.LeaseTTL)
		ok, err := s.drafts.AcquireLease(ctx, id, userID, userLabel, now, expires)
		if err != nil {
			return nil, err
		}
		if ok {
			d, err := s.Get(ctx, id)
			if err != nil {
				return nil, err
			}
			s.publish(id, "lease_acquired", userID, userLabel, &expires)
			return d, nil
		}

		d, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if d.Locked(now) && *d.LeaseHolderID != userID {
			return nil, lockedError(d)
		}
	}
	return nil, &LockedError{}
}

// Renew extends the lease for its recorded holder. Expiry does not matter:
// as long as nobody else took over, the holder keeps its claim.
func (s *Service) Renew(ctx context.Context, id string, userID int64) (time.Time, error) {
	if userID == 0 {
		return time.Time{}, ErrValidation
	}
	expires := s.now().Add(s.cfg.LeaseTTL)
	ok, err := s.drafts.RenewLease(ctx, id, userID, expires)
	if err != nil {
		return time.Time{}, err
	}
	if !ok {
		if _, err := s.Get(ctx, id); err != nil {
			return time.Time{}, err
		}
		return time.Time{}, ErrNotHolder
	}
	s.publish(id, "lease_renewed", userID, "", &expires)
	return expires, nil
}

// Release clears the lease. force overrides the ownership check
// (administrative takeover).
func (s *Service) Release(ctx context.Context, id string, userID int64, force bool) error {
	holder := &userID
	if force {
		holder = nil
	}
	ok, err := s.drafts.ReleaseLease(ctx, id, holder)
	if err != nil {
		return err
	}
	if !ok {
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
		return ErrNotHolder
	}
	s.publish(id, "lease_released", userID, "", nil)
	return nil
}

// UpdateContent merges a section patch into the draft under the same
// acquisition rules as Acquire, recomputes completion and re-extends the
// lease. A present key replaces the slot; an explicit null clears it.
func (s *Service) UpdateContent(ctx context.Context, id string, userID int64, userLabel string, patch map[string]json.RawMessage, state string) (*domain.Draft, error) {
	if userID == 0 {
		return nil, ErrValidation
	}
	if unknown := validator.SectionNames(sectionKeys(patch)); len(unknown) > 0 {
		return nil, ErrValidation
	}
	if state != "" && !domain.IsDraftState(state) {
		return nil, ErrValidation
	}

	now := s.now()
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Locked(now) && *d.LeaseHolderID != userID {
		return nil, lockedError(d)
	}

	if d.Sections == nil {
		d.Sections = domain.Sections{}
	}
	for name, raw := range patch {
		if len(raw) == 0 || string(raw) == "null" {
			delete(d.Sections, name)
		} else {
			d.Sections[name] = raw
		}
	}
	d.CompletionPercent = domain.CompletionPercent(d.Sections)
	if state != "" {
		d.State = domain.DraftState(state)
	}

	expires := now.Add(s.cfg.LeaseTTL)
	ok, err := s.drafts.UpdateDraft(ctx, d, userID, userLabel, now, expires)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost the write-time check; report whoever holds it now.
		cur, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, lockedError(cur)
	}

	s.publish(id, "draft_updated", userID, userLabel, &expires)
	return s.Get(ctx, id)
}

// Delete removes the draft after the same ownership check as Release. The
// check is enforced by the delete predicate itself, so a lease grabbed by
// someone else after this call's read still protects the row. An unconfirmed
// linked reservation is released best-effort: a failure there is logged and
// never blocks the deletion.
func (s *Service) Delete(ctx context.Context, id string, userID int64, force bool) error {
	d, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if force {
		if err := s.drafts.Delete(ctx, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrNotFound
			}
			return err
		}
	} else {
		ok, err := s.drafts.DeleteIfUnheld(ctx, id, userID, s.now())
		if err != nil {
			return err
		}
		if !ok {
			cur, err := s.Get(ctx, id)
			if err != nil {
				return err
			}
			return lockedError(cur)
		}
	}

	s.releaseLinkedReservation(ctx, d)
	s.publish(id, "draft_deleted", userID, "", nil)
	return nil
}

// PurgeStale removes drafts with no active lease and no activity within the
// retention window. Run by the maintenance binary.
func (s *Service) PurgeStale(ctx context.Context) (int64, error) {
	now := s.now()
	stale, err := s.drafts.ListStale(ctx, now.Add(-s.cfg.Retention), now)
	if err != nil {
		return 0, err
	}

	var purged int64
	for i := range stale {
		d := &stale[i]
		s.releaseLinkedReservation(ctx, d)
		if err := s.drafts.Delete(ctx, d.ID); err != nil {
			log.Printf("stale draft %s delete failed: %v", d.ID, err)
			continue
		}
		purged++
	}
	return purged, nil
}

func (s *Service) releaseLinkedReservation(ctx context.Context, d *domain.Draft) {
	if d.ReservationID == nil || s.reservations == nil {
		return
	}
	if err := s.reservations.Release(ctx, *d.ReservationID, true); err != nil {
		log.Printf("draft %s: release of reservation %d failed: %v", d.ID, *d.ReservationID, err)
	}
}

func (s *Service) publish(draftID, eventType string, userID int64, userLabel string, expiresAt *time.Time) {
	if s.events == nil {
		return
	}
	s.events.Publish(draftID, LockEvent{
		DraftID:        draftID,
		Type:           eventType,
		UserID:         userID,
		UserLabel:      userLabel,
		LeaseExpiresAt: expiresAt,
		At:             s.now(),
	})
}

func lockedError(d *domain.Draft) *LockedError {
	e := &LockedError{}
	if d.LeaseHolderID != nil {
		e.HolderID = *d.LeaseHolderID
	}
	if d.LeaseHolderLabel != nil {
		e.HolderLabel = *d.LeaseHolderLabel
	}
	if d.LeaseExpiresAt != nil {
		e.ExpiresAt = *d.LeaseExpiresAt
	}
	return e
}

func sectionKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
