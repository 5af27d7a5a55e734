package handlers

import (
	"net/http"
	"strconv"
	"github.com/gin-gonic/gin"
	"github.com/craftparty/craftparty-backend/internal/apierr"
	"github.com/craftparty/craftparty-backend/internal/services"
)

type EnchantHandler struct {
	enchantService services.EnchantService
}

func NewEnchantHandler(enchantService services.EnchantService) *EnchantHandler {
	return &EnchantHandler{enchantService: enchantService}
}

func (h *EnchantHandler) Plan(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		RespondError(c, http.StatusBadRequest, apierr.CodeInvalidArgument, apierr.InvalidArgument("name is required"))
		return
	}
	level, err := strconv.Atoi(c.DefaultQuery("level", "1"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, apierr.CodeInvalidArgument, err)
		return
	}
	plan, err := h.enchantService.Plan(c.Request.Context(), name, level)
	if err != nil {
		RespondFromError(c, err)
		return
	}
	RespondOK(c, gin.H{"plan": plan})
}
