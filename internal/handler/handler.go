package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/user/knowledger/internal/config"
	"github.com/user/knowledger/internal/middleware"
	"github.com/user/knowledger/internal/service"
	"github.com/user/knowledger/internal/utils"
)

// Handler HTTP 处理器
type Handler struct {
	Config *config.Config
	*service.Services
}

// NewHandler 创建处理器
func NewHandler(cfg *config.Config, svcs *service.Services) *Handler {
	return &Handler{Config: cfg, Services: svcs}
}

// actor 当前登录用户
func actor(c *gin.Context) service.Actor {
	return service.Actor{ID: middleware.GetUserID(c), Role: middleware.GetRole(c)}
}

// paramID 解析路径中的整数 ID，失败时直接返回 400
func paramID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		utils.BadRequest(c, "无效的 ID")
		return 0, false
	}
	return id, true
}

// bindJSON 解析请求体，失败时直接返回 400
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		utils.HandleError(c, utils.ValidationErrors(err))
		return false
	}
	return true
}

func page(c *gin.Context) int {
	return utils.ParsePage(c.Query("page"))
}
