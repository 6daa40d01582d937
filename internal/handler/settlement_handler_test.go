package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutoring-api/internal/dto"
	"github.com/noah-isme/tutoring-api/internal/middleware"
	"github.com/noah-isme/tutoring-api/internal/models"
	"github.com/noah-isme/tutoring-api/internal/service"
	appErrors "github.com/noah-isme/tutoring-api/pkg/errors"
)

type settlementServiceMock struct {
	settlement *models.Settlement
	created    bool
	eventReq   dto.SettlementEventRequest
	priceReq   dto.SetPriceRequest
	result     *models.PayoutRunResult
	file       *service.StatementFile
	err        error
}

func (m *settlementServiceMock) Open(ctx context.Context, req dto.OpenSettlementRequest) (*models.Settlement, bool, error) {
	return m.settlement, m.created, m.err
}

func (m *settlementServiceMock) Get(ctx context.Context, bookingID string) (*models.Settlement, error) {
	return m.settlement, m.err
}

func (m *settlementServiceMock) Apply(ctx context.Context, bookingID string, req dto.SettlementEventRequest) (*models.Settlement, error) {
	m.eventReq = req
	return m.settlement, m.err
}

func (m *settlementServiceMock) SetPrice(ctx context.Context, bookingID string, req dto.SetPriceRequest) (*models.Settlement, error) {
	m.priceReq = req
	return m.settlement, m.err
}

func (m *settlementServiceMock) RunPayouts(ctx context.Context) (*models.PayoutRunResult, error) {
	return m.result, m.err
}

func (m *settlementServiceMock) Statement(ctx context.Context, query dto.StatementQuery) (*service.StatementFile, error) {
	return m.file, m.err
}

func TestSettlementHandlerOpen(t *testing.T) {
	mockSvc := &settlementServiceMock{settlement: &models.Settlement{BookingID: "b-1", Status: models.SettlementPending}, created: true}
	handler := NewSettlementHandler(mockSvc)

	c, w := newTestContext(http.MethodPost, "/settlements", []byte(`{"bookingId":"b-1"}`))
	handler.Open(c)
	require.Equal(t, http.StatusCreated, w.Code)

	mockSvc.created = false
	c, w = newTestContext(http.MethodPost, "/settlements", []byte(`{"bookingId":"b-1"}`))
	handler.Open(c)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestSettlementHandlerGetOwnership(t *testing.T) {
	mockSvc := &settlementServiceMock{settlement: &models.Settlement{BookingID: "b-1", TeacherID: "teacher-1"}}
	handler := NewSettlementHandler(mockSvc)

	c, w := newTestContext(http.MethodGet, "/settlements/b-1", nil)
	c.Params = gin.Params{{Key: "bookingId", Value: "b-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "teacher-2", Role: models.RoleTeacher})
	handler.Get(c)
	require.Equal(t, http.StatusForbidden, w.Code)

	c, w = newTestContext(http.MethodGet, "/settlements/b-1", nil)
	c.Params = gin.Params{{Key: "bookingId", Value: "b-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "teacher-1", Role: models.RoleTeacher})
	handler.Get(c)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestSettlementHandlerApplyEventErrors(t *testing.T) {
	mockSvc := &settlementServiceMock{err: appErrors.Clone(appErrors.ErrMissingPrice, "")}
	handler := NewSettlementHandler(mockSvc)

	c, w := newTestContext(http.MethodPost, "/settlements/b-1/events", []byte(`{"event":"payoutRunExecuted"}`))
	c.Params = gin.Params{{Key: "bookingId", Value: "b-1"}}
	handler.ApplyEvent(c)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, models.EventPayoutRunExecuted, mockSvc.eventReq.Event)
	assert.Equal(t, "MISSING_PRICE", decodeError(t, w).Code)

	mockSvc.err = appErrors.Clone(appErrors.ErrInvalidTransition, "")
	c, w = newTestContext(http.MethodPost, "/settlements/b-1/events", []byte(`{"event":"classCompleted"}`))
	handler.ApplyEvent(c)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestSettlementHandlerSetPrice(t *testing.T) {
	mockSvc := &settlementServiceMock{settlement: &models.Settlement{BookingID: "b-1"}}
	handler := NewSettlementHandler(mockSvc)

	c, w := newTestContext(http.MethodPut, "/settlements/b-1/price", []byte(`{"teacherUnitUsd":"25.00"}`))
	c.Params = gin.Params{{Key: "bookingId", Value: "b-1"}}
	handler.SetPrice(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decimal.RequireFromString("25").Equal(mockSvc.priceReq.TeacherUnitUSD))
}

func TestSettlementHandlerRunPayouts(t *testing.T) {
	handler := NewSettlementHandler(&settlementServiceMock{result: &models.PayoutRunResult{Settled: 2, TotalUSD: decimal.RequireFromString("55.50")}})
	c, w := newTestContext(http.MethodPost, "/settlements/payout-runs", nil)

	handler.RunPayouts(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"settled":2`)
}

func TestSettlementHandlerStatement(t *testing.T) {
	file := &service.StatementFile{Filename: "settlements.csv", ContentType: "text/csv", Payload: []byte("booking_id\n")}
	handler := NewSettlementHandler(&settlementServiceMock{file: file})
	c, w := newTestContext(http.MethodGet, "/settlements/statement?from=2025-10-01&to=2025-10-31", nil)

	handler.Statement(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "settlements.csv")
}
