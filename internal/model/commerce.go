package model

import (
	"time"
)

// Plan 订阅套餐
type Plan string

const (
	PlanMonthly Plan = "MONTHLY"
	PlanYearly  Plan = "YEARLY"
	PlanDaily   Plan = "DAILY"
)

// Valid 判断套餐是否合法
func (p Plan) Valid() bool {
	return p == PlanMonthly || p == PlanYearly || p == PlanDaily
}

// Extend 按套餐周期顺延到期时间
func (p Plan) Extend(from time.Time) time.Time {
	switch p {
	case PlanYearly:
		return from.AddDate(1, 0, 0)
	case PlanDaily:
		return from.AddDate(0, 0, 1)
	default:
		return from.AddDate(0, 1, 0)
	}
}

// Subscription 高级订阅，每个用户最多一条
type Subscription struct {
	ID                   int        `json:"id" gorm:"primaryKey"`
	UserID               int        `json:"userId" gorm:"uniqueIndex;not null"`
	Plan                 Plan       `json:"plan" gorm:"type:varchar(16);not null"`
	StripeSubscriptionID string     `json:"-" gorm:"index"`
	IsActive             bool       `json:"isActive"`
	EndDate              *time.Time `json:"endDate"`
	CancelledAt          *time.Time `json:"cancelledAt"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

// CoversAt 订阅在指定时间是否有效
func (s *Subscription) CoversAt(t time.Time) bool {
	if s == nil || !s.IsActive {
		return false
	}
	return s.EndDate == nil || s.EndDate.After(t)
}

// Purchase 单次购买记录，创建后不再修改
type Purchase struct {
	ID              int         `json:"id" gorm:"primaryKey"`
	UserID          int         `json:"userId" gorm:"uniqueIndex:idx_purchase_user_item;not null"`
	ItemID          int         `json:"itemId" gorm:"uniqueIndex:idx_purchase_user_item;not null;index"`
	Type            ContentType `json:"type" gorm:"uniqueIndex:idx_purchase_user_item;type:varchar(16);not null"`
	Price           float64     `json:"price"`
	StripeSessionID string      `json:"-" gorm:"index:idx_purchase_stripe_session,unique,where:stripe_session_id <> ''"` // 同一支付会话只入账一次
	CreatedAt       time.Time   `json:"createdAt"`
}

// WebhookEvent 已处理的支付回调事件（去重表）
type WebhookEvent struct {
	ID         string    `json:"id" gorm:"primaryKey;type:varchar(255)"`
	Type       string    `json:"type"`
	ReceivedAt time.Time `json:"receivedAt"`
}
