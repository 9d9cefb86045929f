package repository

import (
	"context"
	"encoding/json"
	"time"

	"agoffice/internal/domain"

	"gorm.io/gorm"
)

type DraftRepository struct {
	db *gorm.DB
}

func NewDraftRepository(db *gorm.DB) *DraftRepository {
	return &DraftRepository{db: db}
}

type draftModel struct {
	ID                string     `gorm:"column:id;primaryKey"`
	ReservationID     *int64     `gorm:"column:reservation_id"`
	Sections          []byte     `gorm:"column:sections"`
	CompletionPercent int        `gorm:"column:completion_percent"`
	State             string     `gorm:"column:state"`
	LeaseHolderID     *int64     `gorm:"column:lease_holder_id"`
	LeaseHolderLabel  *string    `gorm:"column:lease_holder_label"`
	LeaseAcquiredAt   *time.Time `gorm:"column:lease_acquired_at"`
	LeaseExpiresAt    *time.Time `gorm:"column:lease_expires_at"`
	CreatedBy         int64      `gorm:"column:created_by"`
	CreatedAt         time.Time  `gorm:"column:created_at"`
	UpdatedAt         time.Time  `gorm:"column:updated_at"`
}

func (draftModel) TableName() string { return "drafts" }

func toDomainDraft(m draftModel) (*domain.Draft, error) {
	sections := domain.Sections{}
	if len(m.Sections) > 0 {
		if err := json.Unmarshal(m.Sections, &sections); err != nil {
			return nil, err
		}
	}
	return &domain.Draft{
		ID:                m.ID,
		ReservationID:     m.ReservationID,
		Sections:          sections,
		CompletionPercent: m.CompletionPercent,
		State:             domain.DraftState(m.State),
		LeaseHolderID:     m.LeaseHolderID,
		LeaseHolderLabel:  m.LeaseHolderLabel,
		LeaseAcquiredAt:   m.LeaseAcquiredAt,
		LeaseExpiresAt:    m.LeaseExpiresAt,
		CreatedBy:         m.CreatedBy,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}, nil
}

func toDraftModel(d *domain.Draft) (draftModel, error) {
	raw, err := json.Marshal(d.Sections)
	if err != nil {
		return draftModel{}, err
	}
	return draftModel{
		ID:                d.ID,
		ReservationID:     d.ReservationID,
		Sections:          raw,
		CompletionPercent: d.CompletionPercent,
		State:             string(d.State),
		LeaseHolderID:     d.LeaseHolderID,
		LeaseHolderLabel:  d.LeaseHolderLabel,
		LeaseAcquiredAt:   d.LeaseAcquiredAt,
		LeaseExpiresAt:    d.LeaseExpiresAt,
		CreatedBy:         d.CreatedBy,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}, nil
}

// leasePredicate is the single-writer guard: the row only matches when it is
// unlocked, expired, or already held by the same user. Every lease mutation
// re-evaluates it against the persisted value, never a client-held copy.
const leasePredicate = `id = ? AND (lease_holder_id IS NULL OR lease_holder_id = ? OR lease_expires_at < ?)`

func (r *DraftRepository) Create(ctx context.Context, d *domain.Draft) error {
	m, err := toDraftModel(d)
	if err != nil {
		return err
	}
	tx := r.db.WithContext(ctx).Create(&m)
	if tx.Error != nil {
		return translateError(tx.Error)
	}
	d.CreatedAt = m.CreatedAt
	d.UpdatedAt = m.UpdatedAt
	return nil
}

func (r *DraftRepository) GetByID(ctx context.Context, id string) (*domain.Draft, error) {
	var m draftModel
	tx := r.db.WithContext(ctx).Where("id = ?", id).First(&m)
	if tx.Error != nil {
		return nil, translateError(tx.Error)
	}
	return toDomainDraft(m)
}

// List returns drafts newest-activity first, optionally filtered by creator
// and state. userID == 0 / state == "" mean no filter.
func (r *DraftRepository) List(ctx context.Context, userID int64, state domain.DraftState) ([]domain.Draft, error) {
	q := r.db.WithContext(ctx).Model(&draftModel{})
	if userID != 0 {
		q = q.Where("created_by = ?", userID)
	}
	if state != "" {
		q = q.Where("state = ?", string(state))
	}

	var models []draftModel
	if err := q.Order("updated_at DESC").Find(&models).Error; err != nil {
		return nil, translateError(err)
	}
	out := make([]domain.Draft, 0, len(models))
	for _, m := range models {
		d, err := toDomainDraft(m)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, nil
}

// AcquireLease grants the lease if the persisted row is unlocked, expired or
// already held by userID. Returns false when another valid holder won.
func (r *DraftRepository) AcquireLease(ctx context.Context, id string, userID int64, label string, now, expiresAt time.Time) (bool, error) {
	tx := r.db.WithContext(ctx).
		Model(&draftModel{}).
		Where(leasePredicate, id, userID, now).
		Updates(map[string]any{
			"lease_holder_id":    userID,
			"lease_holder_label": label,
			"lease_acquired_at":  now,
			"lease_expires_at":   expiresAt,
		})
	if tx.Error != nil {
		return false, translateError(tx.Error)
	}
	return tx.RowsAffected == 1, nil
}

// RenewLease extends the lease for its recorded holder, expired or not.
func (r *DraftRepository) RenewLease(ctx context.Context, id string, userID int64, expiresAt time.Time) (bool, error) {
	tx := r.db.WithContext(ctx).
		Model(&draftModel{}).
		Where("id = ? AND lease_holder_id = ?", id, userID).
		Update("lease_expires_at", expiresAt)
	if tx.Error != nil {
		return false, translateError(tx.Error)
	}
	return tx.RowsAffected == 1, nil
}

// ReleaseLease clears the lease fields. holder == nil forces the release;
// otherwise the row must be unheld or held by *holder.
func (r *DraftRepository) ReleaseLease(ctx context.Context, id string, holder *int64) (bool, error) {
	q := r.db.WithContext(ctx).Model(&draftModel{})
	if holder != nil {
		q = q.Where("id = ? AND (lease_holder_id IS NULL OR lease_holder_id = ?)", id, *holder)
	} else {
		q = q.Where("id = ?", id)
	}
	tx := q.Updates(map[string]any{
		"lease_holder_id":    nil,
		"lease_holder_label": nil,
		"lease_acquired_at":  nil,
		"lease_expires_at":   nil,
	})
	if tx.Error != nil {
		return false, translateError(tx.Error)
	}
	return tx.RowsAffected == 1, nil
}

// UpdateDraft persists new sections, completion and state under the lease
// predicate, re-granting the lease to userID in the same write. Returns false
// when another valid holder owns the row at write time.
func (r *DraftRepository) UpdateDraft(ctx context.Context, d *domain.Draft, userID int64, label string, now, expiresAt time.Time) (bool, error) {
	raw, err := json.Marshal(d.Sections)
	if err != nil {
		return false, err
	}
	tx := r.db.WithContext(ctx).
		Model(&draftModel{}).
		Where(leasePredicate, d.ID, userID, now).
		Updates(map[string]any{
			"sections":           raw,
			"completion_percent": d.CompletionPercent,
			"state":              string(d.State),
			"lease_holder_id":    userID,
			"lease_holder_label": label,
			"lease_acquired_at":  now,
			"lease_expires_at":   expiresAt,
		})
	if tx.Error != nil {
		return false, translateError(tx.Error)
	}
	return tx.RowsAffected == 1, nil
}

// ListStale returns drafts with no active lease and no activity since the
// cutoff; candidates for the maintenance purge.
func (r *DraftRepository) ListStale(ctx context.Context, cutoff, now time.Time) ([]domain.Draft, error) {
	var models []draftModel
	err := r.db.WithContext(ctx).
		Where("(lease_expires_at IS NULL OR lease_expires_at < ?) AND updated_at < ?", now, cutoff).
		Find(&models).Error
	if err != nil {
		return nil, translateError(err)
	}
	out := make([]domain.Draft, 0, len(models))
	for _, m := range models {
		d, err := toDomainDraft(m)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, nil
}

func (r *DraftRepository) Delete(ctx context.Context, id string) error {
	tx := r.db.WithContext(ctx).Where("id = ?", id).Delete(&draftModel{})
	if tx.Error != nil {
		return translateError(tx.Error)
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteIfUnheld removes the draft under the lease predicate, so a lease
// freshly acquired by someone else between the caller's read and the delete
// keeps the row alive. Returns false when the predicate did not match (held
// by another valid holder, or the row is gone).
func (r *DraftRepository) DeleteIfUnheld(ctx context.Context, id string, userID int64, now time.Time) (bool, error) {
	tx := r.db.WithContext(ctx).
		Where(leasePredicate, id, userID, now).
		Delete(&draftModel{})
	if tx.Error != nil {
		return false, translateError(tx.Error)
	}
	return tx.RowsAffected == 1, nil
}
