package repository

import (
	"context"
	"time"

	"github.com/user/knowledger/internal/model"
	"gorm.io/gorm"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create 创建通知
func (r *NotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	return conn(ctx, r.db).Create(n).Error
}

// ListByUser 用户通知（最新在前）
func (r *NotificationRepository) ListByUser(ctx context.Context, userID, limit int) ([]*model.Notification, error) {
	var list []*model.Notification
	err := conn(ctx, r.db).Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&list).Error
	return list, err
}

// MarkRead 标记已读，返回是否命中
func (r *NotificationRepository) MarkRead(ctx context.Context, userID, id int) (bool, error) {
	res := conn(ctx, r.db).Model(&model.Notification{}).
		Where("user_id = ? AND id = ?", userID, id).
		Update("read", true)
	return res.RowsAffected > 0, res.Error
}
