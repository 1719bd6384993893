package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/user/knowledger/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDB 初始化数据库连接
func InitDB(databaseURL string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("无法连接数据库: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取连接池失败: %w", err)
	}

	// 测试连接
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("数据库 ping 失败: %w", err)
	}

	// 设置连接池
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

// Models 需要迁移的全部模型
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.TwoFactorCode{},
		&model.Category{},
		&model.Article{},
		&model.Video{},
		&model.Formation{},
		&model.VideoFormation{},
		&model.Parcours{},
		&model.FormationParcours{},
		&model.Subscription{},
		&model.Purchase{},
		&model.WebhookEvent{},
		&model.History{},
		&model.Rating{},
		&model.Comment{},
		&model.Notification{},
		&model.MediaCleanupTask{},
	}
}

// Migrate 自动迁移表结构（包括组合唯一索引）
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

type txKey struct{}

// conn 优先使用上下文中的事务
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return db.WithContext(ctx)
}

// Pagination 分页信息
type Pagination struct {
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

// NewPagination 根据总数计算页数
func NewPagination(total int64, page, limit int) Pagination {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Pagination{Total: total, Pages: pages, Page: page, Limit: limit}
}

// Offset 当前页的偏移量
func (p Pagination) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// Repositories 仓库集合
type Repositories struct {
	DB             *gorm.DB
	User           *UserRepository
	TwoFactor      *TwoFactorRepository
	Category       *CategoryRepository
	Article        *ArticleRepository
	Video          *VideoRepository
	Formation      *FormationRepository
	Parcours       *ParcoursRepository
	Subscription   *SubscriptionRepository
	Purchase       *PurchaseRepository
	WebhookEvent   *WebhookEventRepository
	History        *HistoryRepository
	Rating         *RatingRepository
	Comment        *CommentRepository
	Notification   *NotificationRepository
	MediaTask      *MediaTaskRepository
	ContentCascade *CascadeRepository
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		DB:             db,
		User:           NewUserRepository(db),
		TwoFactor:      NewTwoFactorRepository(db),
		Category:       NewCategoryRepository(db),
		Article:        NewArticleRepository(db),
		Video:          NewVideoRepository(db),
		Formation:      NewFormationRepository(db),
		Parcours:       NewParcoursRepository(db),
		Subscription:   NewSubscriptionRepository(db),
		Purchase:       NewPurchaseRepository(db),
		WebhookEvent:   NewWebhookEventRepository(db),
		History:        NewHistoryRepository(db),
		Rating:         NewRatingRepository(db),
		Comment:        NewCommentRepository(db),
		Notification:   NewNotificationRepository(db),
		MediaTask:      NewMediaTaskRepository(db),
		ContentCascade: NewCascadeRepository(db),
	}
}

// Transaction 在同一个事务中执行 fn，fn 内的仓库调用需传入回调的 ctx
func (r *Repositories) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}
