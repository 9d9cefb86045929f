package reservation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"agoffice/internal/database"
	"agoffice/internal/domain"
	"agoffice/internal/pkg/retry"
	"agoffice/internal/repository"
)

func setupTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:reservation_handler_%s?mode=memory&cache=shared", t.Name())
	db, err := database.Connect(dsn)
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(db))

	svc := NewService(
		repository.NewReservationRepository(db),
		repository.NewEngagementRepository(db),
		Config{
			TTL:          15 * time.Minute,
			SafetyWindow: 24 * time.Hour,
			Backoff: retry.Backoff{
				MaxAttempts: 3,
				Base:        time.Millisecond,
				Cap:         time.Millisecond,
				Sleep:       func(time.Duration) {},
			},
		},
	)
	h := NewHandler(svc)

	r := gin.New()
	v1 := r.Group("/api/v1")
	h.RegisterRoutes(v1)
	return r, db
}

func doJSONRequest(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	return env
}

func allocate(t *testing.T, r http.Handler, year int) ReservationResponse {
	t.Helper()
	rr := doJSONRequest(r, http.MethodPost, "/api/v1/reservations", map[string]any{"year": year})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	env := decodeEnvelope(t, rr)
	var data struct {
		Reservation ReservationResponse `json:"reservation"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data.Reservation
}

func TestReservationEndpoints_AllocateSequence(t *testing.T) {
	r, _ := setupTestRouter(t)

	first := allocate(t, r, 2025)
	assert.Equal(t, 1, first.Progressive)
	assert.Equal(t, "AG-2025-00001", first.Code)

	second := allocate(t, r, 2025)
	assert.Equal(t, 2, second.Progressive)
	assert.Equal(t, "AG-2025-00002", second.Code)

	// Another year starts its own sequence.
	other := allocate(t, r, 2026)
	assert.Equal(t, 1, other.Progressive)
	assert.Equal(t, "AG-2026-00001", other.Code)
}

func TestReservationEndpoints_ReleaseDoesNotReissueProgressive(t *testing.T) {
	r, _ := setupTestRouter(t)

	first := allocate(t, r, 2025)
	second := allocate(t, r, 2025)
	assert.Equal(t, 2, second.Progressive)

	rr := doJSONRequest(r, http.MethodDelete, fmt.Sprintf("/api/v1/reservations?id=%d", second.ID), nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	third := allocate(t, r, 2025)
	assert.Equal(t, 3, third.Progressive)
	assert.NotEqual(t, first.Code, third.Code)
	assert.NotEqual(t, second.Code, third.Code)
}

func TestReservationEndpoints_AllocateRejectsOutOfRangeYear(t *testing.T) {
	r, _ := setupTestRouter(t)

	rr := doJSONRequest(r, http.MethodPost, "/api/v1/reservations", map[string]any{"year": 1850})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	env := decodeEnvelope(t, rr)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Contains(t, string(env.Error.Details), "Year")
}

func TestReservationEndpoints_ConfirmRejectsMissingIDs(t *testing.T) {
	r, _ := setupTestRouter(t)

	rr := doJSONRequest(r, http.MethodPost, "/api/v1/reservations/confirm", map[string]any{"id": 1})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeEnvelope(t, rr).Error.Code)
}

func TestReservationEndpoints_DeleteMissing(t *testing.T) {
	r, _ := setupTestRouter(t)

	rr := doJSONRequest(r, http.MethodDelete, "/api/v1/reservations?id=12345", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "NOT_FOUND", decodeEnvelope(t, rr).Error.Code)
}

func TestReservationEndpoints_Inspect(t *testing.T) {
	r, _ := setupTestRouter(t)

	created := allocate(t, r, 2025)

	rr := doJSONRequest(r, http.MethodGet, fmt.Sprintf("/api/v1/reservations?id=%d", created.ID), nil)
	require.Equal(t, http.StatusOK, rr.Code)

	env := decodeEnvelope(t, rr)
	var data struct {
		Reservation ReservationStatusResponse `json:"reservation"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.False(t, data.Reservation.Expired)
	assert.Greater(t, data.Reservation.MinutesRemaining, 0)
}

func TestReservationEndpoints_ListPending(t *testing.T) {
	r, _ := setupTestRouter(t)

	allocate(t, r, 2025)
	allocate(t, r, 2025)
	allocate(t, r, 2026)

	rr := doJSONRequest(r, http.MethodGet, "/api/v1/reservations?year=2025", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	env := decodeEnvelope(t, rr)
	var data struct {
		Reservations []ReservationResponse `json:"reservations"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Len(t, data.Reservations, 2)
}

func TestReservationEndpoints_CleanupSweepsExpiredHolds(t *testing.T) {
	r, db := setupTestRouter(t)

	created := allocate(t, r, 2025)
	require.NoError(t, db.Exec(
		`UPDATE code_reservations SET expires_at = ? WHERE id = ?`,
		time.Now().Add(-time.Minute), created.ID,
	).Error)

	rr := doJSONRequest(r, http.MethodGet, "/api/v1/reservations?cleanup=true", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	env := decodeEnvelope(t, rr)
	var data struct {
		Deleted int64 `json:"deleted"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, int64(1), data.Deleted)

	// Idempotent: nothing left to sweep.
	rr = doJSONRequest(r, http.MethodGet, "/api/v1/reservations?cleanup=true", nil)
	env = decodeEnvelope(t, rr)
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, int64(0), data.Deleted)

	// The swept progressive is still burned.
	next := allocate(t, r, 2025)
	assert.Equal(t, 2, next.Progressive)
}

func TestReservationEndpoints_ConfirmThenReleaseRefused(t *testing.T) {
	r, db := setupTestRouter(t)

	created := allocate(t, r, 2025)
	require.NoError(t, db.Exec(
		`INSERT INTO engagements (id, code, title, created_at) VALUES (?, ?, ?, ?)`,
		int64(500), created.Code, "Tour opener", time.Now(),
	).Error)

	rr := doJSONRequest(r, http.MethodPost, "/api/v1/reservations/confirm", map[string]any{
		"id":           created.ID,
		"engagementId": 500,
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = doJSONRequest(r, http.MethodDelete, fmt.Sprintf("/api/v1/reservations?id=%d", created.ID), nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "ALREADY_CONFIRMED", decodeEnvelope(t, rr).Error.Code)
}

func TestReservationEndpoints_AllocateConsidersCommittedRecords(t *testing.T) {
	r, db := setupTestRouter(t)

	require.NoError(t, db.Exec(
		`INSERT INTO engagements (id, code, title, created_at) VALUES (?, ?, ?, ?)`,
		int64(1), domain.FormatCode(2025, 41), "Festival", time.Now(),
	).Error)

	created := allocate(t, r, 2025)
	assert.Equal(t, 42, created.Progressive)
	assert.Equal(t, "AG-2025-00042", created.Code)
}
