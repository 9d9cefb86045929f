package repository

import (
	"context"
	"fmt"
	"time"

	"agoffice/internal/domain"

	"gorm.io/gorm"
)

type ReservationRepository struct {
	db *gorm.DB
}

func NewReservationRepository(db *gorm.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// reservationModel keeps a soft-delete column: released and garbage-collected
// holds stay in the table so a progressive is never handed out twice for a
// year, even after its reservation is gone from every live view.
type reservationModel struct {
	ID           int64          `gorm:"column:id;primaryKey"`
	Year         int            `gorm:"column:year;uniqueIndex:idx_code_reservations_year_progressive"`
	Progressive  int            `gorm:"column:progressive;uniqueIndex:idx_code_reservations_year_progressive"`
	Code         string         `gorm:"column:code;uniqueIndex:idx_code_reservations_code"`
	Confirmed    bool           `gorm:"column:confirmed"`
	EngagementID *int64         `gorm:"column:engagement_id"`
	OwnerHint    string         `gorm:"column:owner_hint"`
	ExpiresAt    time.Time      `gorm:"column:expires_at"`
	CreatedAt    time.Time      `gorm:"column:created_at"`
	DeletedAt    gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

func (reservationModel) TableName() string { return "code_reservations" }

func toDomainReservation(m reservationModel) *domain.Reservation {
	return &domain.Reservation{
		ID:           m.ID,
		Year:         m.Year,
		Progressive:  m.Progressive,
		Code:         m.Code,
		Confirmed:    m.Confirmed,
		EngagementID: m.EngagementID,
		OwnerHint:    m.OwnerHint,
		ExpiresAt:    m.ExpiresAt,
		CreatedAt:    m.CreatedAt,
	}
}

// CreateNext computes the next free progressive for the year and inserts the
// reservation row in one transaction. The maximum is taken across every
// reservation ever created for the year (soft-deleted rows included) and the
// committed engagements table, so the sequence never regresses. A concurrent
// winner for the same progressive surfaces as ErrDuplicateKey via the unique
// index; callers are expected to retry.
func (r *ReservationRepository) CreateNext(ctx context.Context, year int, ownerHint string, expiresAt time.Time) (*domain.Reservation, error) {
	var out *domain.Reservation
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxReserved int
		q := `SELECT COALESCE(MAX(progressive), 0) FROM code_reservations WHERE year = ?`
		if err := tx.Raw(q, year).Scan(&maxReserved).Error; err != nil {
			return err
		}

		var codes []string
		q = `SELECT code FROM engagements WHERE code LIKE ?`
		if err := tx.Raw(q, fmt.Sprintf("%s-%04d-%%", domain.CodePrefix, year)).Scan(&codes).Error; err != nil {
			return err
		}
		next := maxReserved
		for _, c := range codes {
			if y, p, ok := domain.ParseCode(c); ok && y == year && p > next {
				next = p
			}
		}
		next++

		m := reservationModel{
			Year:        year,
			Progressive: next,
			Code:        domain.FormatCode(year, next),
			OwnerHint:   ownerHint,
			ExpiresAt:   expiresAt,
		}
		if err := tx.Create(&m).Error; err != nil {
			return err
		}
		out = toDomainReservation(m)
		return nil
	})
	if err != nil {
		return nil, translateError(err)
	}
	return out, nil
}

func (r *ReservationRepository) GetByID(ctx context.Context, id int64) (*domain.Reservation, error) {
	var m reservationModel
	tx := r.db.WithContext(ctx).First(&m, id)
	if tx.Error != nil {
		return nil, translateError(tx.Error)
	}
	return toDomainReservation(m), nil
}

// Confirm links a pending reservation to a committed engagement. Returns the
// number of rows updated; zero means the reservation is missing or already
// confirmed, which the caller disambiguates with GetByID.
func (r *ReservationRepository) Confirm(ctx context.Context, id, engagementID int64) (int64, error) {
	tx := r.db.WithContext(ctx).
		Model(&reservationModel{}).
		Where("id = ? AND confirmed = ?", id, false).
		Updates(map[string]any{"confirmed": true, "engagement_id": engagementID})
	if tx.Error != nil {
		return 0, translateError(tx.Error)
	}
	return tx.RowsAffected, nil
}

// Delete soft-deletes the reservation. The row stays behind as a tombstone
// for the progressive sequence. With requireUnconfirmed set the delete is
// conditional on the persisted confirmed flag, so a confirmation landing
// between the caller's read and this write keeps the row; zero rows affected
// tells the caller to re-read and disambiguate.
func (r *ReservationRepository) Delete(ctx context.Context, id int64, requireUnconfirmed bool) (int64, error) {
	q := r.db.WithContext(ctx).Where("id = ?", id)
	if requireUnconfirmed {
		q = q.Where("confirmed = ?", false)
	}
	tx := q.Delete(&reservationModel{})
	if tx.Error != nil {
		return 0, translateError(tx.Error)
	}
	return tx.RowsAffected, nil
}

// ListPending returns unconfirmed, unexpired reservations, newest first.
// year == 0 means all years.
func (r *ReservationRepository) ListPending(ctx context.Context, year int, now time.Time) ([]domain.Reservation, error) {
	q := r.db.WithContext(ctx).
		Where("confirmed = ? AND expires_at > ?", false, now)
	if year != 0 {
		q = q.Where("year = ?", year)
	}

	var models []reservationModel
	if err := q.Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, translateError(err)
	}
	out := make([]domain.Reservation, 0, len(models))
	for _, m := range models {
		out = append(out, *toDomainReservation(m))
	}
	return out, nil
}

// Cleanup soft-deletes reclaimable reservations: expired unconfirmed holds,
// confirmed rows that lost their engagement link (should never happen, swept
// defensively), and unconfirmed rows older than the safety window regardless
// of expiry. Pure predicate deletes, safe to run concurrently with CreateNext
// and with itself.
func (r *ReservationRepository) Cleanup(ctx context.Context, now, staleBefore time.Time) (int64, error) {
	var total int64

	tx := r.db.WithContext(ctx).
		Where("confirmed = ? AND expires_at < ?", false, now).
		Delete(&reservationModel{})
	if tx.Error != nil {
		return total, translateError(tx.Error)
	}
	total += tx.RowsAffected

	tx = r.db.WithContext(ctx).
		Where("confirmed = ? AND engagement_id IS NULL", true).
		Delete(&reservationModel{})
	if tx.Error != nil {
		return total, translateError(tx.Error)
	}
	total += tx.RowsAffected

	tx = r.db.WithContext(ctx).
		Where("confirmed = ? AND created_at < ?", false, staleBefore).
		Delete(&reservationModel{})
	if tx.Error != nil {
		return total, translateError(tx.Error)
	}
	total += tx.RowsAffected

	return total, nil
}
