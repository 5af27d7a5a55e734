package handlers

import (
	"net/http"
	"github.com/gin-gonic/gin"
	"github.com/craftparty/craftparty-backend/internal/apierr"
	"github.com/craftparty/craftparty-backend/internal/services"
	"github.com/craftparty/craftparty-backend/internal/types"
)

// TreeHandler exposes dry-run expansion: preview the full production tree
// and its flattened totals without creating a project.
type TreeHandler struct {
	treeService services.TreeService
}

func NewTreeHandler(treeService services.TreeService) *TreeHandler {
	return &TreeHandler{treeService: treeService}
}

type expandRequest struct {
	TargetItem    string              `json:"target_item" binding:"required"`
	Quantity      int                 `json:"quantity" binding:"required"`
	Enchantments  []types.Enchantment `json:"enchantments"`
}

func (h *TreeHandler) Expand(c *gin.Context) {
	var req expandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, apierr.CodeInvalidArgument, err)
		return
	}
	root, nodes, err := h.treeService.Expand(c.Request.Context(), req.TargetItem, req.Quantity, req.Enchantments)
	if err != nil {
		RespondFromError(c, err)
		return
	}
	RespondOK(c, gin.H{
		"root":      root,
		"nodes":     nodes,
		"resources": services.FlattenResources(nodes),
	})
}
