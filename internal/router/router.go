package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/user/knowledger/internal/handler"
	"github.com/user/knowledger/internal/middleware"
	"github.com/user/knowledger/internal/model"
	"github.com/user/knowledger/internal/utils"
)

// RegisterRoutes 注册所有路由
func RegisterRoutes(r *gin.Engine, h *handler.Handler) {
	secret := h.Config.AppSecret
	requireAuth := middleware.RequireAuth(secret, h.Entitlement)
	publishers := middleware.RequireRoles(model.RoleAdmin, model.RoleFormator)

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.NoRoute(func(c *gin.Context) {
		utils.NotFound(c, "接口不存在")
	})

	api := r.Group("/api")

	// ==================== 支付回调（无需登录）====================
	api.POST("/webhooks/stripe", h.StripeWebhook)

	// ==================== 认证 ====================
	auth := api.Group("/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.POST("/logout", h.Logout)
		auth.POST("/2fa/verify", h.VerifyTwoFactor)
		auth.GET("/me", requireAuth, h.Me)
		auth.POST("/2fa/toggle", requireAuth, h.ToggleTwoFactor)
	}

	// ==================== 内容目录（可选登录）====================
	public := api.Group("")
	public.Use(middleware.OptionalAuth(secret, h.Entitlement))
	{
		public.GET("/formations", h.ListFormations)
		public.GET("/formations/:slug", h.GetFormation)
		public.GET("/videos", h.ListVideos)
		public.GET("/videos/:slug", h.GetVideo)
		public.GET("/articles", h.ListArticles)
		public.GET("/articles/:slug", h.GetArticle)
		public.GET("/parcours", h.ListParcours)
		public.GET("/parcours/:slug", h.GetParcours)
		public.GET("/categories", h.ListCategories)
		public.GET("/comments", h.ListComments)
	}

	// ==================== 需要登录 ====================
	user := api.Group("")
	user.Use(requireAuth)
	{
		user.POST("/formations/:slug", h.RateFormation)

		user.GET("/history", h.GetHistory)
		user.POST("/history", h.SaveHistory)
		user.DELETE("/history", h.DeleteHistory)

		user.GET("/progress/videos/:id", h.VideoProgress)
		user.GET("/progress/formations/:id", h.FormationProgress)
		user.GET("/progress/parcours/:id", h.ParcoursProgress)

		user.POST("/comments", h.CreateComment)
		user.DELETE("/comments/:id", h.DeleteComment)
		user.GET("/notifications", h.Notifications)
		user.POST("/notifications/:id/read", h.MarkNotificationRead)

		user.POST("/checkout/purchase", h.CheckoutPurchase)
		user.POST("/checkout/subscription", h.CheckoutSubscription)
		user.GET("/purchases", h.Purchases)
		user.GET("/subscription", h.SubscriptionStatus)
		user.POST("/subscription/cancel", h.CancelSubscription)

		// 作者或管理员，权限在服务层判断
		user.DELETE("/users/content/:type/:id", h.DeleteContent)
	}

	// ==================== 发布内容（讲师/管理员）====================
	publish := api.Group("")
	publish.Use(requireAuth, publishers)
	{
		publish.POST("/formations", h.CreateFormation)
		publish.POST("/formations/:slug/videos", h.AttachVideo)
		publish.POST("/videos", h.CreateVideo)
		publish.POST("/articles", h.CreateArticle)
		publish.POST("/parcours", h.CreateParcours)
		publish.POST("/parcours/:slug/formations", h.AttachFormation)
	}

	// ==================== 管理后台 ====================
	admin := api.Group("/admin")
	admin.Use(requireAuth)
	{
		admin.GET("/search", publishers, h.AdminSearch)

		adminOnly := admin.Group("")
		adminOnly.Use(middleware.RequireRoles(model.RoleAdmin))
		adminOnly.GET("/stats", h.AdminStats)
		adminOnly.GET("/users", h.AdminUsers)
		adminOnly.PUT("/users/:id/role", h.AdminUserRole)
		adminOnly.DELETE("/comments/:id", h.DeleteComment)
		adminOnly.POST("/categories", h.AdminCategoryCreate)
		adminOnly.POST("/media/cleanup", h.AdminMediaCleanup)
	}
}
