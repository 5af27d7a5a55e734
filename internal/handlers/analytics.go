package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/craftparty/craftparty-backend/internal/services"
)

type AnalyticsHandler struct {
	analyticsService services.AnalyticsService
}

func NewAnalyticsHandler(analyticsService services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

func (h *AnalyticsHandler) Bottlenecks(c *gin.Context) {
	projectID, ok := projectIDParam(c)
	if !ok {
		return
	}
	bottlenecks, err := h.analyticsService.FindBottlenecks(c.Request.Context(), projectID)
	if err != nil {
		RespondFromError(c, err)
		return
	}
	RespondOK(c, gin.H{"bottlenecks": bottlenecks})
}

func (h *AnalyticsHandler) Progress(c *gin.Context) {
	projectID, ok := projectIDParam(c)
	if !ok {
		return
	}
	progress, err := h.analyticsService.GetProgress(c.Request.Context(), projectID)
	if err != nil {
		RespondFromError(c, err)
		return
	}
	RespondOK(c, gin.H{"progress": progress})
}

func (h *AnalyticsHandler) Resources(c *gin.Context) {
	projectID, ok := projectIDParam(c)
	if !ok {
		return
	}
	totals, err := h.analyticsService.ResourceTotals(c.Request.Context(), projectID)
	if err != nil {
		RespondFromError(c, err)
		return
	}
	RespondOK(c, gin.H{"resources": totals})
}
