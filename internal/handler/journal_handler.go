package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mawebyasmu/jurnal-aliyah-sub000/internal/models"
	"github.com/mawebyasmu/jurnal-aliyah-sub000/internal/service"
	appErrors "github.com/mawebyasmu/jurnal-aliyah-sub000/pkg/errors"
	"github.com/mawebyasmu/jurnal-aliyah-sub000/pkg/response"
)

// JournalHandler exposes teaching-journal endpoints.
type JournalHandler struct {
	service *service.JournalService
}

// NewJournalHandler creates a new journal handler.
func NewJournalHandler(svc *service.JournalService) *JournalHandler {
	return &JournalHandler{service: svc}
}

// Create godoc
// @Summary Record a teaching session
// @Description Creates a journal entry with its student attendance roster
// @Tags Journal
// @Accept json
// @Produce json
// @Param payload body service.CreateJournalRequest true "Journal payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /journal [post]
func (h *JournalHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateJournalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid journal payload"))
		return
	}

	entry, err := h.service.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, entry)
}

// List godoc
// @Summary List journal entries
// @Description List teaching-journal entries. Teachers only see their own.
// @Tags Journal
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param user_id query string false "Teacher filter (admin only)"
// @Param class_id query string false "Class filter"
// @Param subject_id query string false "Subject filter"
// @Param date_from query string false "Start date YYYY-MM-DD"
// @Param date_to query string false "End date YYYY-MM-DD"
// @Success 200 {object} response.Envelope
// @Router /journal [get]
func (h *JournalHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.JournalListRequest
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		req.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil {
		req.PageSize = size
	}
	req.ClassID = c.Query("class_id")
	req.SubjectID = c.Query("subject_id")
	if from, err := time.Parse("2006-01-02", c.Query("date_from")); err == nil {
		req.DateFrom = &from
	}
	if to, err := time.Parse("2006-01-02", c.Query("date_to")); err == nil {
		req.DateTo = &to
	}
	req.SortBy = c.Query("sort_by")
	req.SortOrder = c.Query("sort_order")

	if claims.Role == models.RoleTeacher {
		req.UserID = claims.UserID
	} else {
		req.UserID = c.Query("user_id")
	}

	entries, pagination, err := h.service.List(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, entries, pagination)
}

// Get godoc
// @Summary Get a journal entry
// @Description Returns one journal entry with its roster and summary
// @Tags Journal
// @Produce json
// @Param id path string true "Entry ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /journal/{id} [get]
func (h *JournalHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	entry, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	// Teachers may only read their own entries.
	if claims.Role == models.RoleTeacher && entry.UserID != claims.UserID {
		response.Error(c, appErrors.ErrForbidden)
		return
	}

	response.JSON(c, http.StatusOK, entry, nil)
}
