package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// EngagementRepository reads the committed engagements table owned by the
// surrounding back office. This subsystem never writes to it; it only needs
// existence checks when confirming a reservation (the code scan for the
// progressive maximum happens inside ReservationRepository.CreateNext).
type EngagementRepository struct {
	db *gorm.DB
}

func NewEngagementRepository(db *gorm.DB) *EngagementRepository {
	return &EngagementRepository{db: db}
}

type engagementModel struct {
	ID        int64     `gorm:"column:id;primaryKey"`
	Code      string    `gorm:"column:code;uniqueIndex:idx_engagements_code"`
	Title     string    `gorm:"column:title"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (engagementModel) TableName() string { return "engagements" }

func (r *EngagementRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var m engagementModel
	tx := r.db.WithContext(ctx).Select("id").First(&m, id)
	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, translateError(tx.Error)
	}
	return true, nil
}
