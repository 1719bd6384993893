package main

import (
	"context"
	"encoding/gob"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // 确保在精简镜像中也能识别时区

	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/user/knowledger/internal/config"
	"github.com/user/knowledger/internal/handler"
	"github.com/user/knowledger/internal/mail"
	"github.com/user/knowledger/internal/middleware"
	"github.com/user/knowledger/internal/model"
	"github.com/user/knowledger/internal/repository"
	"github.com/user/knowledger/internal/router"
	"github.com/user/knowledger/internal/service"
	"github.com/user/knowledger/internal/storage"
	"github.com/user/knowledger/internal/utils"
)

func main() {
	// 注册 Session 模型
	gob.Register(model.SessionUser{})

	// 加载环境变量
	if err := godotenv.Load(); err != nil {
		log.Println("未找到 .env 文件，使用系统环境变量")
	}

	cfg := config.Load()

	// 初始化数据库
	db, err := repository.InitDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}
	sqlDB, _ := db.DB()
	defer sqlDB.Close()

	if err := repository.Migrate(db); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}

	repos := repository.NewRepositories(db)
	utils.InitCache()

	// 外部依赖
	store, err := storage.New(cfg.Storage)
	if err != nil {
		log.Fatalf("媒体存储初始化失败: %v", err)
	}
	mailer := mail.New(cfg.SendGrid, cfg.SiteName)

	var gateway service.PaymentGateway
	if cfg.Stripe.SecretKey != "" {
		gateway = service.NewStripeGateway(cfg.Stripe.SecretKey)
	} else {
		log.Println("未配置 STRIPE_SECRET_KEY，支付功能不可用")
	}

	svcs := service.NewServices(repos, cfg, store, mailer, gateway)

	seedCtx, cancelSeed := context.WithTimeout(context.Background(), 10*time.Second)
	if err := svcs.Auth.SeedAdmin(seedCtx, cfg.FirstAdminEmail, cfg.FirstAdminPassword); err != nil {
		log.Printf("创建管理员失败: %v", err)
	}
	cancelSeed()

	// 定时任务
	rs, rdb := service.NewRedsync(cfg.Redis)
	if rdb != nil {
		defer rdb.Close()
	}
	jobs := service.NewJobs(svcs.Subscriptions, svcs.Cleanup, rs)
	if err := jobs.Start(); err != nil {
		log.Fatalf("定时任务启动失败: %v", err)
	}

	// 初始化 Gin
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	// 启用 gzip，默认压缩级别
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// Session 只保存登录信息和待验证的双因素登录
	sessionStore := cookie.NewStore([]byte(cfg.AppSecret))
	sessionStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions("kl_session", sessionStore))

	r.Use(middleware.Logger())
	r.Use(middleware.Security())
	r.Use(middleware.CORS(cfg.AppURL))

	h := handler.NewHandler(cfg, svcs)
	router.RegisterRoutes(r, h)

	srv := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.Printf("服务器启动于 http://localhost:%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("服务器启动失败: %v", err)
		}
	}()

	// 等待中断信号以优雅地关闭服务器
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("服务器强制关闭: %v", err)
	}

	select {
	case <-jobs.Stop().Done():
	case <-ctx.Done():
		log.Println("定时任务未在超时内结束")
	}

	log.Println("服务器已退出")
}
