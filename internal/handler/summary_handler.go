package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nk-tutoring/ledger-api/internal/service"
	"github.com/nk-tutoring/ledger-api/pkg/response"
)

// SummaryHandler exposes the monthly tutor summary endpoints.
type SummaryHandler struct {
	summary *service.SummaryService
}

// NewSummaryHandler constructs SummaryHandler.
func NewSummaryHandler(summary *service.SummaryService) *SummaryHandler {
	return &SummaryHandler{summary: summary}
}

// Rebuild godoc
// @Summary Recompute the monthly summary from the full ledger
// @Tags Summary
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /summary/rebuild [post]
func (h *SummaryHandler) Rebuild(c *gin.Context) {
	rows, err := h.summary.Rebuild(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// Get godoc
// @Summary Stored monthly summary rows in render order
// @Tags Summary
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /summary [get]
func (h *SummaryHandler) Get(c *gin.Context) {
	rows, err := h.summary.Get(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// Export godoc
// @Summary Download the monthly summary as CSV or PDF
// @Tags Summary
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /summary/export [get]
func (h *SummaryHandler) Export(c *gin.Context) {
	payload, contentType, filename, err := h.summary.Export(c.Request.Context(), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, payload)
}
