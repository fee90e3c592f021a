package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nk-tutoring/ledger-api/internal/models"
	"github.com/nk-tutoring/ledger-api/internal/service"
	appErrors "github.com/nk-tutoring/ledger-api/pkg/errors"
	"github.com/nk-tutoring/ledger-api/pkg/response"
)

// SessionHandler exposes ledger session endpoints.
type SessionHandler struct {
	sessions *service.SessionService
}

// NewSessionHandler constructs SessionHandler.
func NewSessionHandler(sessions *service.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Create godoc
// @Summary Append a tutoring session to the ledger
// @Tags Sessions
// @Accept json
// @Produce json
// @Param payload body service.CreateSessionRequest true "Session fields"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /sessions [post]
func (h *SessionHandler) Create(c *gin.Context) {
	var req service.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	res, err := h.sessions.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// List godoc
// @Summary List sessions
// @Tags Sessions
// @Produce json
// @Param student query string false "Filter by student"
// @Param tutor query string false "Filter by tutor"
// @Param paidStatus query string false "Filter by paid status"
// @Param dateFrom query string false "Start date YYYY-MM-DD"
// @Param dateTo query string false "End date YYYY-MM-DD"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /sessions [get]
func (h *SessionHandler) List(c *gin.Context) {
	var filter models.SessionFilter
	filter.Student = strings.TrimSpace(c.Query("student"))
	filter.Tutor = strings.TrimSpace(c.Query("tutor"))
	filter.PaidStatus = strings.TrimSpace(c.Query("paidStatus"))
	if raw := c.Query("dateFrom"); raw != "" {
		if d, err := time.Parse("2006-01-02", raw); err == nil {
			filter.DateFrom = &d
		}
	}
	if raw := c.Query("dateTo"); raw != "" {
		if d, err := time.Parse("2006-01-02", raw); err == nil {
			filter.DateTo = &d
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		filter.PageSize = size
	}

	sessions, pagination, err := h.sessions.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, pagination)
}

// Unpaid godoc
// @Summary List sessions the client still owes for
// @Tags Sessions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /sessions/unpaid [get]
func (h *SessionHandler) Unpaid(c *gin.Context) {
	entries, err := h.sessions.ListUnpaid(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Recent godoc
// @Summary List the most recent sessions
// @Tags Sessions
// @Produce json
// @Param limit query int false "Max sessions, default 10"
// @Success 200 {object} response.Envelope
// @Router /sessions/recent [get]
func (h *SessionHandler) Recent(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	sessions, err := h.sessions.ListRecent(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, nil)
}

// Search godoc
// @Summary Find a student's sessions within one month
// @Tags Sessions
// @Produce json
// @Param student query string true "Student name"
// @Param month query string true "Month YYYY-MM"
// @Success 200 {object} response.Envelope
// @Router /sessions/search [get]
func (h *SessionHandler) Search(c *gin.Context) {
	sessions, err := h.sessions.Search(c.Request.Context(), c.Query("student"), c.Query("month"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, nil)
}

// MarkPaid godoc
// @Summary Mark one session paid
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/mark-paid [post]
func (h *SessionHandler) MarkPaid(c *gin.Context) {
	count, err := h.sessions.MarkSessionPaid(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"updated": count}, nil)
}

// MarkClientPaid godoc
// @Summary Mark every unpaid session for a student on a date paid
// @Tags Sessions
// @Accept json
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /sessions/mark-client-paid [post]
func (h *SessionHandler) MarkClientPaid(c *gin.Context) {
	var payload struct {
		Student string `json:"student" binding:"required"`
		Date    string `json:"date" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "student and date required"))
		return
	}
	count, err := h.sessions.MarkClientPaid(c.Request.Context(), payload.Student, payload.Date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"updated": count}, nil)
}
