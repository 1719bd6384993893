package repository

import (
	"context"
	"time"

	"github.com/user/knowledger/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WebhookEventRepository struct {
	db *gorm.DB
}

func NewWebhookEventRepository(db *gorm.DB) *WebhookEventRepository {
	return &WebhookEventRepository{db: db}
}

// Claim 登记事件，已存在返回 false（重复投递）
func (r *WebhookEventRepository) Claim(ctx context.Context, id, eventType string) (bool, error) {
	res := conn(ctx, r.db).Clauses(clause.OnConflict{DoNothing: true}).Create(&model.WebhookEvent{
		ID:         id,
		Type:       eventType,
		ReceivedAt: time.Now(),
	})
	return res.RowsAffected > 0, res.Error
}
