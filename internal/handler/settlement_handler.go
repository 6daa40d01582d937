package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutoring-api/internal/dto"
	"github.com/noah-isme/tutoring-api/internal/models"
	"github.com/noah-isme/tutoring-api/internal/service"
	appErrors "github.com/noah-isme/tutoring-api/pkg/errors"
	"github.com/noah-isme/tutoring-api/pkg/response"
)

type settlementService interface {
	Open(ctx context.Context, req dto.OpenSettlementRequest) (*models.Settlement, bool, error)
	Get(ctx context.Context, bookingID string) (*models.Settlement, error)
	Apply(ctx context.Context, bookingID string, req dto.SettlementEventRequest) (*models.Settlement, error)
	SetPrice(ctx context.Context, bookingID string, req dto.SetPriceRequest) (*models.Settlement, error)
	RunPayouts(ctx context.Context) (*models.PayoutRunResult, error)
	Statement(ctx context.Context, query dto.StatementQuery) (*service.StatementFile, error)
}

// SettlementHandler exposes settlement ledger endpoints.
type SettlementHandler struct {
	service settlementService
}

// NewSettlementHandler constructs the handler.
func NewSettlementHandler(service settlementService) *SettlementHandler {
	return &SettlementHandler{service: service}
}

// Open godoc
// @Summary Open the settlement of a confirmed booking
// @Tags Settlements
// @Accept json
// @Produce json
// @Param payload body dto.OpenSettlementRequest true "Booking reference"
// @Success 201 {object} response.Envelope
// @Success 200 {object} response.Envelope
// @Router /settlements [post]
func (h *SettlementHandler) Open(c *gin.Context) {
	var req dto.OpenSettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid settlement payload"))
		return
	}
	settlement, created, err := h.service.Open(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if created {
		response.Created(c, settlement)
		return
	}
	response.JSON(c, http.StatusOK, settlement, nil)
}

// Get godoc
// @Summary Get the settlement of a booking
// @Tags Settlements
// @Produce json
// @Param bookingId path string true "Booking ID"
// @Success 200 {object} response.Envelope
// @Router /settlements/{bookingId} [get]
func (h *SettlementHandler) Get(c *gin.Context) {
	settlement, err := h.service.Get(c.Request.Context(), c.Param("bookingId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if claims := claimsFromContext(c); claims != nil && !claims.IsAdmin() && claims.UserID != settlement.TeacherID {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "settlement belongs to another teacher"))
		return
	}
	response.JSON(c, http.StatusOK, settlement, nil)
}

// ApplyEvent godoc
// @Summary Apply a ledger event
// @Tags Settlements
// @Accept json
// @Produce json
// @Param bookingId path string true "Booking ID"
// @Param payload body dto.SettlementEventRequest true "Event"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /settlements/{bookingId}/events [post]
func (h *SettlementHandler) ApplyEvent(c *gin.Context) {
	var req dto.SettlementEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid settlement event"))
		return
	}
	settlement, err := h.service.Apply(c.Request.Context(), c.Param("bookingId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settlement, nil)
}

// SetPrice godoc
// @Summary Override the teacher unit price
// @Tags Settlements
// @Accept json
// @Produce json
// @Param bookingId path string true "Booking ID"
// @Param payload body dto.SetPriceRequest true "Price"
// @Success 200 {object} response.Envelope
// @Router /settlements/{bookingId}/price [put]
func (h *SettlementHandler) SetPrice(c *gin.Context) {
	var req dto.SetPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid price payload"))
		return
	}
	settlement, err := h.service.SetPrice(c.Request.Context(), c.Param("bookingId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settlement, nil)
}

// RunPayouts godoc
// @Summary Execute a payout run now
// @Tags Settlements
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /settlements/payout-runs [post]
func (h *SettlementHandler) RunPayouts(c *gin.Context) {
	result, err := h.service.RunPayouts(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Statement godoc
// @Summary Download settled payouts
// @Tags Settlements
// @Produce text/csv
// @Produce application/pdf
// @Param from query string true "First settlement date (YYYY-MM-DD)"
// @Param to query string true "Last settlement date (YYYY-MM-DD)"
// @Param teacherId query string false "Teacher ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /settlements/statement [get]
func (h *SettlementHandler) Statement(c *gin.Context) {
	var query dto.StatementQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid statement query"))
		return
	}
	file, err := h.service.Statement(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Payload)
}
