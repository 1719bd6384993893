package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/user/knowledger/internal/middleware"
	"github.com/user/knowledger/internal/model"
	"github.com/user/knowledger/internal/utils"
)

type historyRequest struct {
	Type      model.ContentType `json:"type"`
	ItemID    int               `json:"itemId"`
	Timestamp *float64          `json:"timestamp"`
}

// GetHistory 带 itemId 时返回单条记录，否则分页列表
func (h *Handler) GetHistory(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserID(c)
	t := model.ContentType(c.Query("type"))

	if raw := c.Query("itemId"); raw != "" {
		itemID, err := strconv.Atoi(raw)
		if err != nil {
			utils.HandleError(c, utils.InvalidField("itemId", "无效的 itemId"))
			return
		}
		record, err := h.History.Get(ctx, userID, itemID, t)
		if err != nil {
			utils.HandleError(c, err)
			return
		}
		utils.Success(c, record)
		return
	}

	list, err := h.History.List(ctx, userID, t, page(c))
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, list)
}

// SaveHistory 记录播放位置
func (h *Handler) SaveHistory(c *gin.Context) {
	var req historyRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Timestamp == nil {
		utils.HandleError(c, utils.InvalidField("timestamp", "播放位置不能为空"))
		return
	}
	record, err := h.History.RecordProgress(c.Request.Context(), middleware.GetUserID(c), req.ItemID, req.Type, *req.Timestamp)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, record)
}

// DeleteHistory 带 id 删除单条，否则按类型清空
func (h *Handler) DeleteHistory(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserID(c)

	if raw := c.Query("id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			utils.HandleError(c, utils.InvalidField("id", "无效的 id"))
			return
		}
		if err := h.History.Delete(ctx, userID, id); err != nil {
			utils.HandleError(c, err)
			return
		}
		utils.Success(c, gin.H{"deleted": 1})
		return
	}

	n, err := h.History.Clear(ctx, userID, model.ContentType(c.Query("type")))
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, gin.H{"deleted": n})
}

// ==================== 进度 ====================

// VideoProgress 视频进度
func (h *Handler) VideoProgress(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	p, err := h.Progress.Video(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, p)
}

// FormationProgress 课程进度
func (h *Handler) FormationProgress(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	p, err := h.Progress.Formation(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, p)
}

// ParcoursProgress 学习路径进度
func (h *Handler) ParcoursProgress(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	p, err := h.Progress.Parcours(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, p)
}
