package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/user/knowledger/internal/middleware"
	"github.com/user/knowledger/internal/model"
	"github.com/user/knowledger/internal/service"
	"github.com/user/knowledger/internal/utils"
)

type rateRequest struct {
	Rating *int `json:"rating"`
}

// ==================== 课程 ====================

// ListFormations 课程列表
func (h *Handler) ListFormations(c *gin.Context) {
	list, err := h.Content.ListFormations(c.Request.Context(), middleware.GetUserID(c), page(c))
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, list)
}

// GetFormation 课程详情
func (h *Handler) GetFormation(c *gin.Context) {
	detail, err := h.Content.GetFormation(c.Request.Context(), middleware.GetUserID(c), c.Param("slug"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, detail)
}

// CreateFormation 创建课程
func (h *Handler) CreateFormation(c *gin.Context) {
	var in service.ContentInput
	if !bindJSON(c, &in) {
		return
	}
	f, err := h.Content.CreateFormation(c.Request.Context(), actor(c), in)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	h.Search.Invalidate()
	utils.Created(c, f)
}

// RateFormation 为课程打分
func (h *Handler) RateFormation(c *gin.Context) {
	var req rateRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Rating == nil {
		utils.HandleError(c, utils.InvalidField("rating", "评分不能为空"))
		return
	}
	ctx := c.Request.Context()
	f, err := h.Content.FormationBySlug(ctx, c.Param("slug"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	res, err := h.Ratings.Rate(ctx, middleware.GetUserID(c), f.ID, *req.Rating)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, res)
}

// AttachVideo 课程中加入视频
func (h *Handler) AttachVideo(c *gin.Context) {
	var in service.AttachVideoInput
	if !bindJSON(c, &in) {
		return
	}
	link, err := h.Content.AttachVideo(c.Request.Context(), actor(c), c.Param("slug"), in)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Created(c, link)
}

// ==================== 视频 ====================

// ListVideos 视频列表
func (h *Handler) ListVideos(c *gin.Context) {
	list, err := h.Content.ListVideos(c.Request.Context(), middleware.GetUserID(c), page(c))
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, list)
}

// GetVideo 视频详情
func (h *Handler) GetVideo(c *gin.Context) {
	v, err := h.Content.GetVideo(c.Request.Context(), middleware.GetUserID(c), c.Param("slug"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, v)
}

// CreateVideo 创建视频
func (h *Handler) CreateVideo(c *gin.Context) {
	var in service.VideoInput
	if !bindJSON(c, &in) {
		return
	}
	v, err := h.Content.CreateVideo(c.Request.Context(), actor(c), in)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	h.Search.Invalidate()
	utils.Created(c, v)
}

// ==================== 文章 ====================

// ListArticles 文章列表
func (h *Handler) ListArticles(c *gin.Context) {
	list, err := h.Content.ListArticles(c.Request.Context(), middleware.GetUserID(c), page(c))
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, list)
}

// GetArticle 文章详情
func (h *Handler) GetArticle(c *gin.Context) {
	a, err := h.Content.GetArticle(c.Request.Context(), middleware.GetUserID(c), c.Param("slug"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, a)
}

// CreateArticle 创建文章
func (h *Handler) CreateArticle(c *gin.Context) {
	var in service.ContentInput
	if !bindJSON(c, &in) {
		return
	}
	a, err := h.Content.CreateArticle(c.Request.Context(), actor(c), in)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	h.Search.Invalidate()
	utils.Created(c, a)
}

// ==================== 学习路径 ====================

// ListParcours 学习路径列表
func (h *Handler) ListParcours(c *gin.Context) {
	list, err := h.Content.ListParcours(c.Request.Context(), page(c))
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, list)
}

// GetParcours 学习路径详情
func (h *Handler) GetParcours(c *gin.Context) {
	p, err := h.Content.GetParcours(c.Request.Context(), middleware.GetUserID(c), c.Param("slug"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, p)
}

// CreateParcours 创建学习路径
func (h *Handler) CreateParcours(c *gin.Context) {
	var in service.ParcoursInput
	if !bindJSON(c, &in) {
		return
	}
	p, err := h.Content.CreateParcours(c.Request.Context(), actor(c), in)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Created(c, p)
}

// AttachFormation 学习路径中加入课程
func (h *Handler) AttachFormation(c *gin.Context) {
	var in service.AttachFormationInput
	if !bindJSON(c, &in) {
		return
	}
	link, err := h.Content.AttachFormation(c.Request.Context(), actor(c), c.Param("slug"), in)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Created(c, link)
}

// ==================== 分类 ====================

// ListCategories 分类列表
func (h *Handler) ListCategories(c *gin.Context) {
	categories, err := h.Content.ListCategories(c.Request.Context())
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, categories)
}

// ==================== 删除 ====================

// DeleteContent 级联删除内容（作者或管理员）
func (h *Handler) DeleteContent(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	res, err := h.Content.Delete(c.Request.Context(), actor(c), model.ContentType(c.Param("type")), id)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	h.Search.Invalidate()
	utils.Success(c, res)
}
