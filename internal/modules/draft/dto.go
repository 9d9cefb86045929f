package draft

import (
	"encoding/json"
	"time"

	"agoffice/internal/domain"
)

type CreateDraftRequest struct {
	UserID        int64                      `json:"userId" validate:"omitempty,gt=0"`
	UserLabel     string                     `json:"userLabel" validate:"omitempty,max=120"`
	ReservationID *int64                     `json:"reservationId"`
	Sections      map[string]json.RawMessage `json:"sections"`
}

type UpdateDraftRequest struct {
	UserID    int64                      `json:"userId" validate:"omitempty,gt=0"`
	UserLabel string                     `json:"userLabel" validate:"omitempty,max=120"`
	State     string                     `json:"state" validate:"omitempty,oneof=IN_PROGRESS SUSPENDED COMPLETED"`
	Sections  map[string]json.RawMessage `json:"sections"`
}

type LockRequest struct {
	UserID    int64  `json:"userId"`
	UserLabel string `json:"userLabel"`
}

type DraftResponse struct {
	ID                string                     `json:"id"`
	ReservationID     *int64                     `json:"reservationId,omitempty"`
	Sections          map[string]json.RawMessage `json:"sections"`
	CompletionPercent int                        `json:"completionPercent"`
	State             string                     `json:"state"`
	LeaseHolderID     *int64                     `json:"leaseHolderId,omitempty"`
	LeaseHolderLabel  *string                    `json:"leaseHolderLabel,omitempty"`
	LeaseAcquiredAt   *time.Time                 `json:"leaseAcquiredAt,omitempty"`
	LeaseExpiresAt    *time.Time                 `json:"leaseExpiresAt,omitempty"`
	CreatedBy         int64                      `json:"createdBy"`
	CreatedAt         time.Time                  `json:"createdAt"`
	UpdatedAt         time.Time                  `json:"updatedAt"`
	IsLocked          bool                       `json:"isLocked"`
	LockExpired       bool                       `json:"lockExpired"`
}

func toDraftResponse(d *domain.Draft, now time.Time) DraftResponse {
	return DraftResponse{
		ID:                d.ID,
		ReservationID:     d.ReservationID,
		Sections:          d.Sections,
		CompletionPercent: d.CompletionPercent,
		State:             string(d.State),
		LeaseHolderID:     d.LeaseHolderID,
		LeaseHolderLabel:  d.LeaseHolderLabel,
		LeaseAcquiredAt:   d.LeaseAcquiredAt,
		LeaseExpiresAt:    d.LeaseExpiresAt,
		CreatedBy:         d.CreatedBy,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
		IsLocked:          d.Locked(now),
		LockExpired:       d.LockExpired(now),
	}
}
