package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/student-dashboard/internal/dto"
	appErrors "github.com/noah-isme/student-dashboard/pkg/errors"
	"github.com/noah-isme/student-dashboard/pkg/response"
)

type reportService interface {
	Generate(ctx context.Context, req dto.ReportRequest) (*dto.ReportResponse, error)
}

// ReportHandler serves the analytics page.
type ReportHandler struct {
	reports reportService
}

// NewReportHandler constructs ReportHandler.
func NewReportHandler(reports reportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Get godoc
// @Summary Analytics report
// @Tags Reports
// @Produce json
// @Param type query string false "enrollment, performance, attendance or progress" default(enrollment)
// @Param range query string false "week, month, quarter or year" default(month)
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /reports [get]
func (h *ReportHandler) Get(c *gin.Context) {
	var req dto.ReportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}
	report, err := h.reports.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report)
}
