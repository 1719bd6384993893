package repository

import (
	"context"
	"errors"
	"time"

	"github.com/user/knowledger/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

var subscriptionColumns = []string{
	"plan", "stripe_subscription_id", "is_active", "end_date", "cancelled_at", "updated_at",
}

// Upsert 按 user_id 创建或覆盖订阅（每个用户一条）；已有 ID 时按主键更新
func (r *SubscriptionRepository) Upsert(ctx context.Context, s *model.Subscription) error {
	now := time.Now()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	if s.ID != 0 {
		return conn(ctx, r.db).Model(s).Select(subscriptionColumns).Updates(s).Error
	}
	return conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns(subscriptionColumns),
	}).Create(s).Error
}

// FindByUser 获取用户订阅
func (r *SubscriptionRepository) FindByUser(ctx context.Context, userID int) (*model.Subscription, error) {
	var s model.Subscription
	err := conn(ctx, r.db).Where("user_id = ?", userID).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// FindByStripeID 根据 Stripe 订阅 ID 获取
func (r *SubscriptionRepository) FindByStripeID(ctx context.Context, stripeID string) (*model.Subscription, error) {
	var s model.Subscription
	err := conn(ctx, r.db).Where("stripe_subscription_id = ?", stripeID).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListExpired 仍标记为有效但已过期的订阅
func (r *SubscriptionRepository) ListExpired(ctx context.Context, now time.Time) ([]*model.Subscription, error) {
	var subs []*model.Subscription
	err := conn(ctx, r.db).
		Where("is_active = ? AND end_date IS NOT NULL AND end_date <= ?", true, now).
		Find(&subs).Error
	return subs, err
}

// Deactivate 标记订阅失效
func (r *SubscriptionRepository) Deactivate(ctx context.Context, id int) error {
	return conn(ctx, r.db).Model(&model.Subscription{}).Where("id = ?", id).
		Updates(map[string]interface{}{"is_active": false, "updated_at": time.Now()}).Error
}

// CountActive 当前有效订阅数
func (r *SubscriptionRepository) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Model(&model.Subscription{}).Where("is_active = ?", true).Count(&count).Error
	return count, err
}
