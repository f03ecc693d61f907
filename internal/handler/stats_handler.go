package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mawebyasmu/jurnal-aliyah-sub000/internal/middleware"
	"github.com/mawebyasmu/jurnal-aliyah-sub000/internal/service"
	appErrors "github.com/mawebyasmu/jurnal-aliyah-sub000/pkg/errors"
	"github.com/mawebyasmu/jurnal-aliyah-sub000/pkg/response"
)

// StatsHandler exposes attendance and journal statistics.
type StatsHandler struct {
	service *service.StatsService
}

// NewStatsHandler creates a new statistics handler.
func NewStatsHandler(svc *service.StatsService) *StatsHandler {
	return &StatsHandler{service: svc}
}

// parseDateQuery reads a YYYY-MM-DD query parameter, falling back to the
// provided default when the parameter is absent.
func parseDateQuery(c *gin.Context, name string, fallback time.Time) (time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid "+name+" date, expected YYYY-MM-DD")
	}
	return parsed, nil
}

// Daily godoc
// @Summary Daily statistics
// @Description Attendance and journal counts for one day
// @Tags Statistics
// @Produce json
// @Param date query string false "Date YYYY-MM-DD, defaults to today"
// @Success 200 {object} response.Envelope
// @Router /stats/daily [get]
func (h *StatsHandler) Daily(c *gin.Context) {
	date, err := parseDateQuery(c, "date", time.Now())
	if err != nil {
		response.Error(c, err)
		return
	}

	stat, err := h.service.Daily(c.Request.Context(), date)
	if err != nil {
		response.Error(c, err)
		return
	}

	middleware.SetMeta(c, "date", date.Format("2006-01-02"))
	response.JSON(c, http.StatusOK, stat, nil, middleware.ExtractMeta(c))
}

// Departments godoc
// @Summary Department statistics
// @Description Attendance rollups grouped by department over a date range
// @Tags Statistics
// @Produce json
// @Param date_from query string false "Start date YYYY-MM-DD, defaults to 30 days ago"
// @Param date_to query string false "End date YYYY-MM-DD, defaults to today"
// @Success 200 {object} response.Envelope
// @Router /stats/departments [get]
func (h *StatsHandler) Departments(c *gin.Context) {
	now := time.Now()
	from, err := parseDateQuery(c, "date_from", now.AddDate(0, 0, -30))
	if err != nil {
		response.Error(c, err)
		return
	}
	to, err := parseDateQuery(c, "date_to", now)
	if err != nil {
		response.Error(c, err)
		return
	}

	stats, err := h.service.Departments(c.Request.Context(), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}

	middleware.SetMeta(c, "date_from", from.Format("2006-01-02"))
	middleware.SetMeta(c, "date_to", to.Format("2006-01-02"))
	response.JSON(c, http.StatusOK, stats, nil, middleware.ExtractMeta(c))
}

// TeacherPerformance godoc
// @Summary Teacher performance
// @Description Per-teacher attendance and journal rollups over a date range
// @Tags Statistics
// @Produce json
// @Param date_from query string false "Start date YYYY-MM-DD, defaults to 30 days ago"
// @Param date_to query string false "End date YYYY-MM-DD, defaults to today"
// @Param user_id query string false "Restrict to one teacher"
// @Success 200 {object} response.Envelope
// @Router /stats/teacher-performance [get]
func (h *StatsHandler) TeacherPerformance(c *gin.Context) {
	now := time.Now()
	from, err := parseDateQuery(c, "date_from", now.AddDate(0, 0, -30))
	if err != nil {
		response.Error(c, err)
		return
	}
	to, err := parseDateQuery(c, "date_to", now)
	if err != nil {
		response.Error(c, err)
		return
	}

	var userID *string
	if raw := c.Query("user_id"); raw != "" {
		userID = &raw
	}

	stats, err := h.service.TeacherPerformance(c.Request.Context(), from, to, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	middleware.SetMeta(c, "date_from", from.Format("2006-01-02"))
	middleware.SetMeta(c, "date_to", to.Format("2006-01-02"))
	response.JSON(c, http.StatusOK, stats, nil, middleware.ExtractMeta(c))
}
