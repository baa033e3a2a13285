package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"geosafe/internal/domain/entities"
	"geosafe/internal/trigger"
)

// TriggerHandler lets an external change-data-capture source drive the alert
// pipeline. The cycle runs synchronously; a non-2xx response tells the
// caller to redeliver.
type TriggerHandler struct {
	pipeline trigger.Handler
}

func NewTriggerHandler(pipeline trigger.Handler) *TriggerHandler {
	return &TriggerHandler{pipeline: pipeline}
}

// ReportWritten handles POST /internal/triggers/report-written
func (h *TriggerHandler) ReportWritten(c *gin.Context) {
	var w entities.ReportWrite
	if err := c.ShouldBindJSON(&w); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if w.Before == nil && w.After == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "before or after is required"})
		return
	}

	result, err := h.pipeline.HandleReportWrite(c.Request.Context(), w)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}
