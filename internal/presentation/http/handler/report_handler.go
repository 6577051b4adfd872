package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/sangkips/khata-api/internal/application/service"
	"github.com/sangkips/khata-api/internal/presentation/http/dto/response"
)

// ReportHandler serves the daily and period totals
type ReportHandler struct {
	reportService *service.ReportService
}

// NewReportHandler creates a new report handler
func NewReportHandler(reportService *service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// Daily handles /transactions/daily/:type?date=YYYY-MM-DD
func (h *ReportHandler) Daily(c *gin.Context) {
	reportType, err := service.ParseReportType(c.Param("type"))
	if err != nil {
		response.Error(c, err)
		return
	}

	report, err := h.reportService.Daily(c.Request.Context(), reportType, c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Report generated successfully", report)
}

// Period handles /transactions/period/:type?start_date=&end_date=
func (h *ReportHandler) Period(c *gin.Context) {
	reportType, err := service.ParseReportType(c.Param("type"))
	if err != nil {
		response.Error(c, err)
		return
	}

	report, err := h.reportService.Period(c.Request.Context(), reportType,
		firstQuery(c, "start_date", "startDate"),
		firstQuery(c, "end_date", "endDate"),
	)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Report generated successfully", report)
}
