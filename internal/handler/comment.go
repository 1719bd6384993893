package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/user/knowledger/internal/middleware"
	"github.com/user/knowledger/internal/model"
	"github.com/user/knowledger/internal/utils"
)

type commentRequest struct {
	Content string `json:"content"`
}

// itemQuery 解析 ?type=&itemId=
func itemQuery(c *gin.Context) (model.ContentType, int, bool) {
	itemID, err := strconv.Atoi(c.Query("itemId"))
	if err != nil || itemID <= 0 {
		utils.HandleError(c, utils.InvalidField("itemId", "无效的 itemId"))
		return "", 0, false
	}
	return model.ContentType(c.Query("type")), itemID, true
}

// ListComments 内容评论
func (h *Handler) ListComments(c *gin.Context) {
	t, itemID, ok := itemQuery(c)
	if !ok {
		return
	}
	comments, err := h.Comments.List(c.Request.Context(), t, itemID, page(c))
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, comments)
}

// CreateComment 发表评论
func (h *Handler) CreateComment(c *gin.Context) {
	t, itemID, ok := itemQuery(c)
	if !ok {
		return
	}
	var req commentRequest
	if !bindJSON(c, &req) {
		return
	}
	comment, err := h.Comments.Create(c.Request.Context(), actor(c), t, itemID, req.Content)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Created(c, comment)
}

// DeleteComment 删除评论（本人或管理员）
func (h *Handler) DeleteComment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Comments.Delete(c.Request.Context(), actor(c), id); err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.SuccessWithMessage(c, "评论已删除", nil)
}

// Notifications 我的通知
func (h *Handler) Notifications(c *gin.Context) {
	list, err := h.Comments.Notifications(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, list)
}

// MarkNotificationRead 标记通知已读
func (h *Handler) MarkNotificationRead(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Comments.MarkRead(c.Request.Context(), middleware.GetUserID(c), id); err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, nil)
}
