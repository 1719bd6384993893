package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/user/knowledger/internal/service"
	"github.com/user/knowledger/internal/utils"
)

// ==================== 分类管理 ====================

// AdminCategoryCreate 添加分类
func (h *Handler) AdminCategoryCreate(c *gin.Context) {
	var in service.CategoryInput
	if !bindJSON(c, &in) {
		return
	}
	category, err := h.Content.CreateCategory(c.Request.Context(), in)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	h.Search.Invalidate()
	utils.Created(c, category)
}
