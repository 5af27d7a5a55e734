package handlers

import (
	"net/http"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/craftparty/craftparty-backend/internal/apierr"
	"github.com/craftparty/craftparty-backend/internal/requestdata"
	"github.com/craftparty/craftparty-backend/internal/services"
	"github.com/craftparty/craftparty-backend/internal/types"
)

type ProjectHandler struct {
	projectService services.ProjectService
}

func NewProjectHandler(projectService services.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService}
}

type createProjectRequest struct {
	Name          string              `json:"name"`
	TargetItem    string              `json:"target_item" binding:"required"`
	Quantity      int                 `json:"quantity" binding:"required"`
	Enchantments  []types.Enchantment `json:"enchantments"`
}

type addGoalRequest struct {
	TargetItem    string              `json:"target_item" binding:"required"`
	Quantity      int                 `json:"quantity" binding:"required"`
	Enchantments  []types.Enchantment `json:"enchantments"`
}

type updateStatusRequest struct {
	Status        string              `json:"status" binding:"required"`
}

type updateEnchantmentsRequest struct {
	RootNodeID    uuid.UUID           `json:"root_node_id" binding:"required"`
	Enchantments  []types.Enchantment `json:"enchantments"`
}

func actorID(c *gin.Context) (uuid.UUID, bool) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusForbidden, "", apierr.InvalidArgument("missing identity"))
		return uuid.Nil, false
	}
	return rd.UserID, true
}

func projectIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, apierr.CodeInvalidArgument, err)
		return uuid.Nil, false
	}
	return id, true
}

func (h *ProjectHandler) Create(c *gin.Context) {
	ownerID, ok := actorID(c)
	if !ok {
		return
	}
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, apierr.CodeInvalidArgument, err)
		return
	}
	project, nodes, err := h.projectService.CreateProject(c.Request.Context(), ownerID, req.Name, req.TargetItem, req.Quantity, req.Enchantments)
	if err != nil {
		RespondFromError(c, err)
		return
	}
	RespondCreated(c, gin.H{"project": project, "nodes": nodes})
}

func (h *ProjectHandler) List(c *gin.Context) {
	ownerID, ok := actorID(c)
	if !ok {
		return
	}
	projects, err := h.projectService.ListProjects(c.Request.Context(), ownerID)
	if err != nil {
		RespondFromError(c, err)
		return
	}
	RespondOK(c, gin.H{"projects": projects})
}

func (h *ProjectHandler) Get(c *gin.Context) {
	projectID, ok := projectIDParam(c)
	if !ok {
		return
	}
	project, nodes, err := h.projectService.GetProject(c.Request.Context(), projectID)
	if err != nil {
		RespondFromError(c, err)
		return
	}
	RespondOK(c, gin.H{"project": project, "nodes": nodes})
}

func (h *ProjectHandler) AddGoal(c *gin.Context) {
	projectID, ok := projectIDParam(c)
	if !ok {
		return
	}
	var req addGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, apierr.CodeInvalidArgument, err)
		return
	}
	nodes, err := h.projectService.AddGoal(c.Request.Context(), projectID, req.TargetItem, req.Quantity, req.Enchantments)
	if err != nil {
		RespondFromError(c, err)
		return
	}
	RespondCreated(c, gin.H{"nodes": nodes})
}

func (h *ProjectHandler) UpdateStatus(c *gin.Context) {
	projectID, ok := projectIDParam(c)
	if !ok {
		return
	}
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, apierr.CodeInvalidArgument, err)
		return
	}
	project, err := h.projectService.UpdateStatus(c.Request.Context(), projectID, req.Status)
	if err != nil {
		RespondFromError(c, err)
		return
	}
	RespondOK(c, gin.H{"project": project})
}

func (h *ProjectHandler) UpdateEnchantments(c *gin.Context) {
	projectID, ok := projectIDParam(c)
	if !ok {
		return
	}
	var req updateEnchantmentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, apierr.CodeInvalidArgument, err)
		return
	}
	node, err := h.projectService.UpdateEnchantments(c.Request.Context(), projectID, req.RootNodeID, req.Enchantments)
	if err != nil {
		RespondFromError(c, err)
		return
	}
	RespondOK(c, gin.H{"node": node})
}

func (h *ProjectHandler) Delete(c *gin.Context) {
	projectID, ok := projectIDParam(c)
	if !ok {
		return
	}
	if err := h.projectService.DeleteProject(c.Request.Context(), projectID); err != nil {
		RespondFromError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": projectID})
}
