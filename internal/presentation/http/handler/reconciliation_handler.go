package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sangkips/khata-api/internal/application/service"
	"github.com/sangkips/khata-api/internal/presentation/http/dto/response"
)

// XLSXContentType is the media type of statement downloads
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReconciliationHandler serves balance audits and statement exports
type ReconciliationHandler struct {
	audit *service.ReconciliationService
}

// NewReconciliationHandler creates a new reconciliation handler
func NewReconciliationHandler(audit *service.ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{audit: audit}
}

// Reconcile compares the stored due with the replayed history
func (h *ReconciliationHandler) Reconcile(c *gin.Context) {
	id, ok := pathID(c, "id", "customer")
	if !ok {
		return
	}

	result, err := h.audit.Reconcile(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Customer balance checked", result)
}

// Repair rewrites the stored due from the replayed history
func (h *ReconciliationHandler) Repair(c *gin.Context) {
	id, ok := pathID(c, "id", "customer")
	if !ok {
		return
	}

	result, err := h.audit.Repair(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Customer balance repaired", result)
}

// Statement streams the customer's statement workbook
func (h *ReconciliationHandler) Statement(c *gin.Context) {
	id, ok := pathID(c, "id", "customer")
	if !ok {
		return
	}

	// buffered so a failure can still be reported as JSON
	var buf bytes.Buffer
	if err := h.audit.WriteStatement(c.Request.Context(), id, &buf); err != nil {
		response.Error(c, err)
		return
	}

	filename := fmt.Sprintf("statement-%s-%s.xlsx", id.String()[:8], time.Now().Format("20060102"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, XLSXContentType, buf.Bytes())
}
