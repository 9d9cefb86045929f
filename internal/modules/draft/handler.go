package draft

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"agoffice/internal/pkg/response"
	"agoffice/internal/pkg/validator"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true }, // Allow all origins (configure in prod)
}

type Handler struct {
	service *Service
	hub     *Hub
}

func NewHandler(service *Service, hub *Hub) *Handler {
	return &Handler{service: service, hub: hub}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/drafts", h.Create)
	rg.GET("/drafts", h.List)
	rg.GET("/drafts/:id", h.GetOne)
	rg.PUT("/drafts/:id", h.Update)
	rg.DELETE("/drafts/:id", h.Delete)
	rg.POST("/drafts/:id/lock", h.Lock)
	rg.PUT("/drafts/:id/lock", h.RenewLock)
	rg.DELETE("/drafts/:id/lock", h.Unlock)
	rg.GET("/drafts/:id/events", h.Events)
}

// identity falls back to the authenticated operator when the request body
// does not name one explicitly.
func (h *Handler) identity(c *gin.Context, userID int64, userLabel string) (int64, string) {
	if userID == 0 {
		userID = c.GetInt64("user_id")
	}
	if userLabel == "" {
		userLabel = c.GetString("user_label")
	}
	return userID, userLabel
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", errs)
		return
	}
	userID, userLabel := h.identity(c, req.UserID, req.UserLabel)

	d, err := h.service.Create(c.Request.Context(), userID, userLabel, req.ReservationID, req.Sections)
	if err != nil {
		h.renderError(c, err, "Failed to create draft")
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"draft": toDraftResponse(d, time.Now())})
}

func (h *Handler) GetOne(c *gin.Context) {
	d, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.renderError(c, err, "Failed to load draft")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"draft": toDraftResponse(d, time.Now())})
}

func (h *Handler) List(c *gin.Context) {
	var userID int64
	if v := c.Query("userId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid userId")
			return
		}
		userID = id
	}

	list, err := h.service.List(c.Request.Context(), userID, c.Query("state"))
	if err != nil {
		h.renderError(c, err, "Failed to list drafts")
		return
	}

	now := time.Now()
	out := make([]DraftResponse, 0, len(list))
	for i := range list {
		out = append(out, toDraftResponse(&list[i], now))
	}
	response.Success(c, http.StatusOK, gin.H{"drafts": out})
}

func (h *Handler) Update(c *gin.Context) {
	var req UpdateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", errs)
		return
	}
	userID, userLabel := h.identity(c, req.UserID, req.UserLabel)

	d, err := h.service.UpdateContent(c.Request.Context(), c.Param("id"), userID, userLabel, req.Sections, req.State)
	if err != nil {
		h.renderError(c, err, "Failed to update draft")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"draft": toDraftResponse(d, time.Now())})
}

func (h *Handler) Delete(c *gin.Context) {
	userID, _ := h.identity(c, parseInt64(c.Query("userId")), "")
	force := c.Query("force") == "true"

	if err := h.service.Delete(c.Request.Context(), c.Param("id"), userID, force); err != nil {
		h.renderError(c, err, "Failed to delete draft")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

func (h *Handler) Lock(c *gin.Context) {
	var req LockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	userID, userLabel := h.identity(c, req.UserID, req.UserLabel)

	d, err := h.service.Acquire(c.Request.Context(), c.Param("id"), userID, userLabel)
	if err != nil {
		h.renderError(c, err, "Failed to acquire draft lease")
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"leaseExpiresAt": d.LeaseExpiresAt,
		"ttlMinutes":     h.service.ttlMinutes(),
	})
}

func (h *Handler) RenewLock(c *gin.Context) {
	var req LockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	userID, _ := h.identity(c, req.UserID, req.UserLabel)

	expires, err := h.service.Renew(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.renderError(c, err, "Failed to renew draft lease")
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"leaseExpiresAt": expires,
		"ttlMinutes":     h.service.ttlMinutes(),
	})
}

func (h *Handler) Unlock(c *gin.Context) {
	userID, _ := h.identity(c, parseInt64(c.Query("userId")), "")
	force := c.Query("force") == "true"

	if err := h.service.Release(c.Request.Context(), c.Param("id"), userID, force); err != nil {
		h.renderError(c, err, "Failed to release draft lease")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"released": true})
}

// Events upgrades the connection and streams lease events for the draft
// until the client goes away.
func (h *Handler) Events(c *gin.Context) {
	draftID := c.Param("id")
	if _, err := h.service.Get(c.Request.Context(), draftID); err != nil {
		h.renderError(c, err, "Failed to load draft")
		return
	}

	// Upgrade writes its own HTTP error on failure.
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade for draft %s failed: %v", draftID, err)
		return
	}

	h.hub.Subscribe(draftID, conn)
	defer h.hub.Unsubscribe(draftID, conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Handler) renderError(c *gin.Context, err error, internalMsg string) {
	var locked *LockedError
	if errors.As(err, &locked) {
		response.Locked(c, "DRAFT_LOCKED", "Draft is being edited by another user", locked.HolderID, locked.HolderLabel, locked.ExpiresAt)
		return
	}
	switch err {
	case ErrValidation:
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input")
	case ErrNotFound:
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Draft not found")
	case ErrNotHolder:
		response.Error(c, http.StatusForbidden, "NOT_LEASE_HOLDER", "Caller does not hold the draft lease")
	default:
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", internalMsg)
	}
}

func parseInt64(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}
