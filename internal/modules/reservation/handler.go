package reservation

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"agoffice/internal/pkg/response"
	"agoffice/internal/pkg/validator"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/reservations", h.Create)
	rg.GET("/reservations", h.Get)
	rg.DELETE("/reservations", h.Delete)
	rg.POST("/reservations/confirm", h.Confirm)
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", errs)
		return
	}
	if req.OwnerHint == "" {
		req.OwnerHint = c.GetString("user_label")
	}

	r, err := h.service.Allocate(c.Request.Context(), req.Year, req.OwnerHint)
	if err != nil {
		switch err {
		case ErrValidation:
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid year")
		case ErrBusy:
			response.Error(c, http.StatusConflict, "ALLOCATOR_BUSY", "System busy, please retry later")
		default:
			response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to reserve a code")
		}
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"reservation": toReservationResponse(r),
	})
}

// Get handles three query shapes on one route: ?id= inspects a single
// reservation, ?cleanup=true runs the sweeper, no id lists active holds.
func (h *Handler) Get(c *gin.Context) {
	if c.Query("cleanup") == "true" {
		deleted, err := h.service.Cleanup(c.Request.Context())
		if err != nil {
			response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Cleanup failed")
			return
		}
		response.Success(c, http.StatusOK, gin.H{"deleted": deleted})
		return
	}

	if idStr := c.Query("id"); idStr != "" {
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid reservation id")
			return
		}
		st, err := h.service.Inspect(c.Request.Context(), id)
		if err != nil {
			switch err {
			case ErrNotFound:
				response.Error(c, http.StatusNotFound, "NOT_FOUND", "Reservation not found")
			default:
				response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load reservation")
			}
			return
		}
		response.Success(c, http.StatusOK, gin.H{
			"reservation": ReservationStatusResponse{
				ReservationResponse: toReservationResponse(&st.Reservation),
				Expired:             st.Expired,
				MinutesRemaining:    st.MinutesRemaining,
			},
		})
		return
	}

	year := 0
	if yearStr := c.Query("year"); yearStr != "" {
		y, err := strconv.Atoi(yearStr)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid year")
			return
		}
		year = y
	}
	list, err := h.service.ListPending(c.Request.Context(), year)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list reservations")
		return
	}
	out := make([]ReservationResponse, 0, len(list))
	for i := range list {
		out = append(out, toReservationResponse(&list[i]))
	}
	response.Success(c, http.StatusOK, gin.H{"reservations": out})
}

func (h *Handler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Query("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid reservation id")
		return
	}

	if err := h.service.Release(c.Request.Context(), id, true); err != nil {
		switch err {
		case ErrNotFound:
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "Reservation not found")
		case ErrAlreadyConfirmed:
			response.Error(c, http.StatusBadRequest, "ALREADY_CONFIRMED", "Reservation is already confirmed")
		default:
			response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to release reservation")
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"released": true})
}

func (h *Handler) Confirm(c *gin.Context) {
	var req ConfirmReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", errs)
		return
	}

	r, err := h.service.Confirm(c.Request.Context(), req.ID, req.EngagementID)
	if err != nil {
		switch err {
		case ErrValidation:
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Unknown engagement")
		case ErrNotFound:
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "Reservation not found")
		case ErrAlreadyConfirmed:
			response.Error(c, http.StatusBadRequest, "ALREADY_CONFIRMED", "Reservation is already confirmed")
		default:
			response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to confirm reservation")
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"reservation": toReservationResponse(r)})
}
