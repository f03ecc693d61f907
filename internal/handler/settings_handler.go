package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mawebyasmu/jurnal-aliyah-sub000/internal/models"
	"github.com/mawebyasmu/jurnal-aliyah-sub000/internal/service"
	appErrors "github.com/mawebyasmu/jurnal-aliyah-sub000/pkg/errors"
	"github.com/mawebyasmu/jurnal-aliyah-sub000/pkg/response"
)

// SettingsHandler exposes the attendance rule configuration.
type SettingsHandler struct {
	service *service.SettingsService
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(svc *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{service: svc}
}

// GetAttendance godoc
// @Summary Get attendance settings
// @Description Returns the active geofence and time-window configuration
// @Tags Settings
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /settings/attendance [get]
func (h *SettingsHandler) GetAttendance(c *gin.Context) {
	settings, err := h.service.Attendance(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, settings, nil)
}

// UpdateAttendance godoc
// @Summary Update attendance settings
// @Description Replaces the geofence and time-window configuration
// @Tags Settings
// @Accept json
// @Produce json
// @Param payload body models.AttendanceSettings true "Settings payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /settings/attendance [put]
func (h *SettingsHandler) UpdateAttendance(c *gin.Context) {
	var settings models.AttendanceSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid settings payload"))
		return
	}

	updated, err := h.service.UpdateAttendance(c.Request.Context(), settings)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, updated, nil)
}
