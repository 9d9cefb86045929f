package reservation

import (
	"time"

	"agoffice/internal/domain"
)

type CreateReservationRequest struct {
	Year      int    `json:"year" validate:"omitempty,gte=2000,lte=2999"`
	OwnerHint string `json:"ownerHint" validate:"omitempty,max=120"`
}

type ConfirmReservationRequest struct {
	ID           int64 `json:"id" binding:"required" validate:"required,gt=0"`
	EngagementID int64 `json:"engagementId" binding:"required" validate:"required,gt=0"`
}

type ReservationResponse struct {
	ID           int64     `json:"id"`
	Year         int       `json:"year"`
	Progressive  int       `json:"progressive"`
	Code         string    `json:"code"`
	Confirmed    bool      `json:"confirmed"`
	EngagementID *int64    `json:"engagementId,omitempty"`
	OwnerHint    string    `json:"ownerHint,omitempty"`
	ExpiresAt    time.Time `json:"expiresAt"`
	CreatedAt    time.Time `json:"createdAt"`
}

type ReservationStatusResponse struct {
	ReservationResponse
	Expired          bool `json:"expired"`
	MinutesRemaining int  `json:"minutesRemaining"`
}

func toReservationResponse(r *domain.Reservation) ReservationResponse {
	return ReservationResponse{
		ID:           r.ID,
		Year:         r.Year,
		Progressive:  r.Progressive,
		Code:         r.Code,
		Confirmed:    r.Confirmed,
		EngagementID: r.EngagementID,
		OwnerHint:    r.OwnerHint,
		ExpiresAt:    r.ExpiresAt,
		CreatedAt:    r.CreatedAt,
	}
}
