package handlers

import (
	"net/http"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/craftparty/craftparty-backend/internal/apierr"
	"github.com/craftparty/craftparty-backend/internal/services"
)

type ContributionHandler struct {
	contributionService services.ContributionService
}

func NewContributionHandler(contributionService services.ContributionService) *ContributionHandler {
	return &ContributionHandler{contributionService: contributionService}
}

type contributeRequest struct {
	NodeID    uuid.UUID   `json:"node_id" binding:"required"`
	Quantity  int         `json:"quantity" binding:"required"`
	Action    string      `json:"action" binding:"required"`
}

func (h *ContributionHandler) Contribute(c *gin.Context) {
	projectID, ok := projectIDParam(c)
	if !ok {
		return
	}
	actor, ok := actorID(c)
	if !ok {
		return
	}
	var req contributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, apierr.CodeInvalidArgument, err)
		return
	}
	node, contribution, err := h.contributionService.Contribute(c.Request.Context(), projectID, req.NodeID, actor, req.Quantity, req.Action)
	if err != nil {
		RespondFromError(c, err)
		return
	}
	RespondOK(c, gin.H{"node": node, "contribution": contribution})
}

func (h *ContributionHandler) List(c *gin.Context) {
	projectID, ok := projectIDParam(c)
	if !ok {
		return
	}
	contributions, err := h.contributionService.ListByProject(c.Request.Context(), projectID)
	if err != nil {
		RespondFromError(c, err)
		return
	}
	RespondOK(c, gin.H{"contributions": contributions})
}
