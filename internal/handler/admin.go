package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/user/knowledger/internal/model"
	"github.com/user/knowledger/internal/utils"
)

// ==================== 管理后台 ====================

type roleRequest struct {
	Role model.Role `json:"role"`
}

// AdminSearch 后台全局搜索
func (h *Handler) AdminSearch(c *gin.Context) {
	res, err := h.Search.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, res)
}

// AdminStats 后台统计
func (h *Handler) AdminStats(c *gin.Context) {
	stats, err := h.Admin.Stats(c.Request.Context())
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, stats)
}

// AdminUsers 用户列表
func (h *Handler) AdminUsers(c *gin.Context) {
	list, err := h.Admin.Users(c.Request.Context(), page(c))
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, list)
}

// AdminUserRole 修改用户角色
func (h *Handler) AdminUserRole(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req roleRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.Admin.SetRole(c.Request.Context(), actor(c), id, req.Role)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	h.Search.Invalidate()
	utils.Success(c, user)
}

// AdminMediaCleanup 立即处理媒体清理队列
func (h *Handler) AdminMediaCleanup(c *gin.Context) {
	report, err := h.Admin.DrainMedia(c.Request.Context())
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.SuccessWithMessage(c, "清理完成", report)
}
