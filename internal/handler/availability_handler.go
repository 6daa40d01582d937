package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutoring-api/internal/dto"
	"github.com/noah-isme/tutoring-api/internal/middleware"
	"github.com/noah-isme/tutoring-api/internal/models"
	appErrors "github.com/noah-isme/tutoring-api/pkg/errors"
	"github.com/noah-isme/tutoring-api/pkg/response"
)

type availabilityService interface {
	Set(ctx context.Context, actor *models.JWTClaims, req dto.SetAvailabilityRequest) (*models.AvailabilityDay, error)
	Get(ctx context.Context, teacherID, date string) (*models.AvailabilityDay, error)
	Timetable(ctx context.Context, teacherID, date string) (*models.Timetable, bool, error)
	ListRange(ctx context.Context, teacherID, from, to string) ([]models.AvailabilityDay, error)
}

// AvailabilityHandler exposes teacher availability endpoints.
type AvailabilityHandler struct {
	service availabilityService
}

// NewAvailabilityHandler constructs the handler.
func NewAvailabilityHandler(service availabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{service: service}
}

// Set godoc
// @Summary Replace availability for a date
// @Description Full overwrite of the bookable half-hour slots (0-47). Booked slots cannot be removed.
// @Tags Availability
// @Accept json
// @Produce json
// @Param payload body dto.SetAvailabilityRequest true "Availability payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /teachers/availability [put]
func (h *AvailabilityHandler) Set(c *gin.Context) {
	var req dto.SetAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid availability payload"))
		return
	}
	day, err := h.service.Set(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, day, nil)
}

// Get godoc
// @Summary Get stored availability for a date
// @Tags Availability
// @Produce json
// @Param id path string true "Teacher ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/availability [get]
func (h *AvailabilityHandler) Get(c *gin.Context) {
	date := requireQuery(c, "date")
	if date == "" {
		return
	}
	day, err := h.service.Get(c.Request.Context(), c.Param("id"), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, day, nil)
}

// Range godoc
// @Summary List stored availability between two dates
// @Tags Availability
// @Produce json
// @Param id path string true "Teacher ID"
// @Param from query string true "First date (YYYY-MM-DD)"
// @Param to query string true "Last date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/availability/range [get]
func (h *AvailabilityHandler) Range(c *gin.Context) {
	from := requireQuery(c, "from")
	if from == "" {
		return
	}
	to := requireQuery(c, "to")
	if to == "" {
		return
	}
	teacherID := c.Param("id")
	days, err := h.service.ListRange(c.Request.Context(), teacherID, from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.AvailabilityRangeResponse{TeacherID: teacherID, From: from, To: to, Days: days}, nil)
}

// Timetable godoc
// @Summary Project the 48-slot timetable of a date
// @Tags Availability
// @Produce json
// @Param id path string true "Teacher ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/timetable [get]
func (h *AvailabilityHandler) Timetable(c *gin.Context) {
	date := requireQuery(c, "date")
	if date == "" {
		return
	}
	timetable, hit, err := h.service.Timetable(c.Request.Context(), c.Param("id"), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, middleware.CacheTimetable, hit)
	response.JSON(c, http.StatusOK, timetable, nil, middleware.ExtractMeta(c))
}

func requireQuery(c *gin.Context, name string) string {
	value := strings.TrimSpace(c.Query(name))
	if value == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, name+" is required"))
	}
	return value
}
