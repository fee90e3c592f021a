package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nk-tutoring/ledger-api/internal/service"
	appErrors "github.com/nk-tutoring/ledger-api/pkg/errors"
	"github.com/nk-tutoring/ledger-api/pkg/response"
)

// PayrollHandler exposes weekly payroll endpoints.
type PayrollHandler struct {
	payroll *service.PayrollService
}

// NewPayrollHandler constructs PayrollHandler.
func NewPayrollHandler(payroll *service.PayrollService) *PayrollHandler {
	return &PayrollHandler{payroll: payroll}
}

// Weekly godoc
// @Summary Per-tutor payout totals for the week ending on the given Sunday
// @Tags Payroll
// @Produce json
// @Param weekEnding query string true "Week-ending date YYYY-MM-DD"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /payroll/weekly [get]
func (h *PayrollHandler) Weekly(c *gin.Context) {
	weekEnding := c.Query("weekEnding")
	if weekEnding == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "weekEnding is required"))
		return
	}
	payroll, err := h.payroll.WeeklyTotals(c.Request.Context(), weekEnding)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payroll, nil)
}

// Settle godoc
// @Summary Settle every outstanding payout in the week
// @Tags Payroll
// @Accept json
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /payroll/settle [post]
func (h *PayrollHandler) Settle(c *gin.Context) {
	var payload struct {
		WeekEnding string `json:"weekEnding" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "weekEnding required"))
		return
	}
	run, err := h.payroll.SettleWeek(c.Request.Context(), payload.WeekEnding)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, run, nil)
}

// Runs godoc
// @Summary List recent settlement runs
// @Tags Payroll
// @Produce json
// @Param limit query int false "Max runs, default 20"
// @Success 200 {object} response.Envelope
// @Router /payroll/runs [get]
func (h *PayrollHandler) Runs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	runs, err := h.payroll.ListRuns(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, runs, nil)
}
