package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutoring-api/internal/dto"
	"github.com/noah-isme/tutoring-api/internal/handler"
	"github.com/noah-isme/tutoring-api/internal/models"
	"github.com/noah-isme/tutoring-api/internal/service"
)

type availabilityStub struct{}

func (availabilityStub) Set(ctx context.Context, actor *models.JWTClaims, req dto.SetAvailabilityRequest) (*models.AvailabilityDay, error) {
	return &models.AvailabilityDay{TeacherID: actor.UserID, Date: req.Date}, nil
}

func (availabilityStub) Get(ctx context.Context, teacherID, date string) (*models.AvailabilityDay, error) {
	return &models.AvailabilityDay{TeacherID: teacherID, Date: date}, nil
}

func (availabilityStub) Timetable(ctx context.Context, teacherID, date string) (*models.Timetable, bool, error) {
	return &models.Timetable{TeacherID: teacherID, Date: date}, false, nil
}

func (availabilityStub) ListRange(ctx context.Context, teacherID, from, to string) ([]models.AvailabilityDay, error) {
	return nil, nil
}

type settlementStub struct {
	lastCall string
}

func (s *settlementStub) Open(ctx context.Context, req dto.OpenSettlementRequest) (*models.Settlement, bool, error) {
	s.lastCall = "open"
	return &models.Settlement{BookingID: req.BookingID}, true, nil
}

func (s *settlementStub) Get(ctx context.Context, bookingID string) (*models.Settlement, error) {
	s.lastCall = "get:" + bookingID
	return &models.Settlement{BookingID: bookingID, TeacherID: "teacher-1"}, nil
}

func (s *settlementStub) Apply(ctx context.Context, bookingID string, req dto.SettlementEventRequest) (*models.Settlement, error) {
	s.lastCall = "apply:" + bookingID
	return &models.Settlement{BookingID: bookingID}, nil
}

func (s *settlementStub) SetPrice(ctx context.Context, bookingID string, req dto.SetPriceRequest) (*models.Settlement, error) {
	s.lastCall = "price:" + bookingID
	return &models.Settlement{BookingID: bookingID}, nil
}

func (s *settlementStub) RunPayouts(ctx context.Context) (*models.PayoutRunResult, error) {
	s.lastCall = "payouts"
	return &models.PayoutRunResult{}, nil
}

func (s *settlementStub) Statement(ctx context.Context, query dto.StatementQuery) (*service.StatementFile, error) {
	s.lastCall = "statement"
	return &service.StatementFile{Filename: "s.csv", ContentType: "text/csv", Payload: []byte("x")}, nil
}

func buildRouter(t *testing.T) (*gin.Engine, *service.AuthService, *settlementStub) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	auth := service.NewAuthService(nil, service.AuthConfig{AccessTokenSecret: "secret", AccessTokenExpiry: time.Hour})
	metrics := service.NewMetricsService()
	settlements := &settlementStub{}
	engine := New(Options{
		APIPrefix:     "/api/v1",
		Metrics:       metrics,
		Auth:          auth,
		Availability:  handler.NewAvailabilityHandler(availabilityStub{}),
		Settlement:    handler.NewSettlementHandler(settlements),
		Observability: handler.NewMetricsHandler(metrics, nil),
	})
	return engine, auth, settlements
}

func perform(t *testing.T, engine *gin.Engine, auth *service.AuthService, role models.UserRole, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		token, _, err := auth.IssueToken("teacher-1", role, "")
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestPublicProbes(t *testing.T) {
	engine, auth, _ := buildRouter(t)

	w := perform(t, engine, auth, "", http.MethodGet, "/api/v1/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = perform(t, engine, auth, "", http.MethodGet, "/api/v1/ready", "")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestSecuredRoutesRequireToken(t *testing.T) {
	engine, auth, _ := buildRouter(t)

	w := perform(t, engine, auth, "", http.MethodGet, "/api/v1/teachers/teacher-1/timetable?date=2025-10-06", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = perform(t, engine, auth, models.RoleStudent, http.MethodGet, "/api/v1/teachers/teacher-1/timetable?date=2025-10-06", "")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestAvailabilityWriteRestrictedToStaff(t *testing.T) {
	engine, auth, _ := buildRouter(t)
	body := `{"date":"2025-10-06","timeSlots":[18]}`

	w := perform(t, engine, auth, models.RoleStudent, http.MethodPut, "/api/v1/teachers/availability", body)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = perform(t, engine, auth, models.RoleTeacher, http.MethodPut, "/api/v1/teachers/availability", body)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestSettlementRoutes(t *testing.T) {
	engine, auth, settlements := buildRouter(t)

	w := perform(t, engine, auth, models.RoleTeacher, http.MethodPost, "/api/v1/settlements/payout-runs", "")
	require.Equal(t, http.StatusForbidden, w.Code)

	w = perform(t, engine, auth, models.RoleAdmin, http.MethodPost, "/api/v1/settlements/payout-runs", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "payouts", settlements.lastCall)

	w = perform(t, engine, auth, models.RoleAdmin, http.MethodGet, "/api/v1/settlements/statement?from=2025-10-01&to=2025-10-31", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "statement", settlements.lastCall)

	w = perform(t, engine, auth, models.RoleTeacher, http.MethodGet, "/api/v1/settlements/booking-9", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "get:booking-9", settlements.lastCall)

	w = perform(t, engine, auth, models.RoleAdmin, http.MethodPost, "/api/v1/settlements/booking-9/events", `{"event":"classCompleted"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "apply:booking-9", settlements.lastCall)
}
