package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutoring-api/internal/dto"
	"github.com/noah-isme/tutoring-api/internal/middleware"
	"github.com/noah-isme/tutoring-api/internal/models"
	appErrors "github.com/noah-isme/tutoring-api/pkg/errors"
)

type availabilityServiceMock struct {
	setReq    dto.SetAvailabilityRequest
	setActor  *models.JWTClaims
	day       *models.AvailabilityDay
	timetable *models.Timetable
	hit       bool
	err       error
}

func (m *availabilityServiceMock) Set(ctx context.Context, actor *models.JWTClaims, req dto.SetAvailabilityRequest) (*models.AvailabilityDay, error) {
	m.setActor, m.setReq = actor, req
	return m.day, m.err
}

func (m *availabilityServiceMock) Get(ctx context.Context, teacherID, date string) (*models.AvailabilityDay, error) {
	return m.day, m.err
}

func (m *availabilityServiceMock) Timetable(ctx context.Context, teacherID, date string) (*models.Timetable, bool, error) {
	return m.timetable, m.hit, m.err
}

func (m *availabilityServiceMock) ListRange(ctx context.Context, teacherID, from, to string) ([]models.AvailabilityDay, error) {
	if m.day == nil {
		return nil, m.err
	}
	return []models.AvailabilityDay{*m.day}, m.err
}

func newTestContext(method, target string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) *appErrors.Error {
	t.Helper()
	var envelope struct {
		Error *appErrors.Error `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	return envelope.Error
}

func TestAvailabilityHandlerSet(t *testing.T) {
	mockSvc := &availabilityServiceMock{day: &models.AvailabilityDay{TeacherID: "teacher-1", Date: "2025-10-06", Slots: pq.Int64Array{18, 19, 20}}}
	handler := NewAvailabilityHandler(mockSvc)
	c, w := newTestContext(http.MethodPut, "/teachers/availability", []byte(`{"date":"2025-10-06","timeSlots":[18,19,20]}`))
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "teacher-1", Role: models.RoleTeacher})

	handler.Set(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []int{18, 19, 20}, mockSvc.setReq.TimeSlots)
	assert.Equal(t, "teacher-1", mockSvc.setActor.UserID)
	assert.Contains(t, w.Body.String(), `"slots":[18,19,20]`)
}

func TestAvailabilityHandlerSetInvalidJSON(t *testing.T) {
	handler := NewAvailabilityHandler(&availabilityServiceMock{})
	c, w := newTestContext(http.MethodPut, "/teachers/availability", []byte(`{"timeSlots":"x"}`))

	handler.Set(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAvailabilityHandlerSetBookedSlotRemoved(t *testing.T) {
	mockSvc := &availabilityServiceMock{err: appErrors.WithDetails(appErrors.ErrBookedSlotRemoved, "", map[string]interface{}{"slots": []int{19}})}
	handler := NewAvailabilityHandler(mockSvc)
	c, w := newTestContext(http.MethodPut, "/teachers/availability", []byte(`{"date":"2025-10-06","timeSlots":[18,20]}`))

	handler.Set(c)

	require.Equal(t, http.StatusConflict, w.Code)
	appErr := decodeError(t, w)
	assert.Equal(t, "BOOKED_SLOT_REMOVED", appErr.Code)
	assert.Equal(t, []interface{}{float64(19)}, appErr.Details["slots"])
}

func TestAvailabilityHandlerGetRequiresDate(t *testing.T) {
	handler := NewAvailabilityHandler(&availabilityServiceMock{})
	c, w := newTestContext(http.MethodGet, "/teachers/teacher-1/availability", nil)
	c.Params = gin.Params{{Key: "id", Value: "teacher-1"}}

	handler.Get(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAvailabilityHandlerRange(t *testing.T) {
	handler := NewAvailabilityHandler(&availabilityServiceMock{day: &models.AvailabilityDay{TeacherID: "teacher-1", Date: "2025-10-06"}})
	c, w := newTestContext(http.MethodGet, "/teachers/teacher-1/availability/range?from=2025-10-01&to=2025-10-07", nil)
	c.Params = gin.Params{{Key: "id", Value: "teacher-1"}}

	handler.Range(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"from":"2025-10-01"`)
}

func TestAvailabilityHandlerTimetableReportsCacheHit(t *testing.T) {
	timetable := &models.Timetable{TeacherID: "teacher-1", Date: "2025-10-06", Slots: make([]models.TimetableEntry, models.SlotsPerDay)}
	handler := NewAvailabilityHandler(&availabilityServiceMock{timetable: timetable, hit: true})
	c, w := newTestContext(http.MethodGet, "/teachers/teacher-1/timetable?date=2025-10-06", nil)
	c.Params = gin.Params{{Key: "id", Value: "teacher-1"}}

	handler.Timetable(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"cache_hit":true`)
	assert.Contains(t, w.Body.String(), `"cache":"timetable"`)
}
