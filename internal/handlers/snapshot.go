package handlers

import (
	"net/http"
	"strconv"
	"github.com/gin-gonic/gin"
	"github.com/craftparty/craftparty-backend/internal/apierr"
	"github.com/craftparty/craftparty-backend/internal/services"
)

type SnapshotHandler struct {
	snapshotService services.SnapshotService
}

func NewSnapshotHandler(snapshotService services.SnapshotService) *SnapshotHandler {
	return &SnapshotHandler{snapshotService: snapshotService}
}

type createSnapshotRequest struct {
	Label     string      `json:"label"`
}

func (h *SnapshotHandler) Create(c *gin.Context) {
	projectID, ok := projectIDParam(c)
	if !ok {
		return
	}
	// Label is optional; an empty body is fine.
	var req createSnapshotRequest
	_ = c.ShouldBindJSON(&req)
	snapshot, err := h.snapshotService.CreateSnapshot(c.Request.Context(), projectID, req.Label)
	if err != nil {
		RespondFromError(c, err)
		return
	}
	RespondCreated(c, gin.H{"snapshot": snapshot})
}

func (h *SnapshotHandler) List(c *gin.Context) {
	projectID, ok := projectIDParam(c)
	if !ok {
		return
	}
	snapshots, err := h.snapshotService.ListSnapshots(c.Request.Context(), projectID)
	if err != nil {
		RespondFromError(c, err)
		return
	}
	RespondOK(c, gin.H{"snapshots": snapshots})
}

func (h *SnapshotHandler) Restore(c *gin.Context) {
	projectID, ok := projectIDParam(c)
	if !ok {
		return
	}
	actor, ok := actorID(c)
	if !ok {
		return
	}
	version, err := strconv.Atoi(c.Param("version"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, apierr.CodeInvalidArgument, err)
		return
	}
	nodes, err := h.snapshotService.Restore(c.Request.Context(), projectID, version, actor)
	if err != nil {
		RespondFromError(c, err)
		return
	}
	RespondOK(c, gin.H{"nodes": nodes})
}
