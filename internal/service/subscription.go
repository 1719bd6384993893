package service

import (
	"context"
	"log"
	"time"

	"github.com/user/knowledger/internal/model"
	"github.com/user/knowledger/internal/repository"
	"github.com/user/knowledger/internal/utils"
)

// SubscriptionStatus 当前用户的订阅状态
type SubscriptionStatus struct {
	Subscription *model.Subscription `json:"subscription"`
	Active       bool                `json:"active"`
	Role         model.Role          `json:"role"`
}

// SubscriptionService 订阅查询、取消与过期处理
type SubscriptionService struct {
	repos       *repository.Repositories
	gateway     PaymentGateway
	entitlement *EntitlementService
	now         func() time.Time
}

func NewSubscriptionService(repos *repository.Repositories, gateway PaymentGateway, entitlement *EntitlementService) *SubscriptionService {
	return &SubscriptionService{repos: repos, gateway: gateway, entitlement: entitlement, now: time.Now}
}

// promote 普通用户升级为 PREMIUM，讲师和管理员保持原角色
func promote(ctx context.Context, repos *repository.Repositories, userID int) error {
	user, err := repos.User.FindByID(ctx, userID)
	if err != nil || user == nil {
		return err
	}
	if user.Role != model.RoleNormal {
		return nil
	}
	return repos.User.UpdateRole(ctx, userID, model.RolePremium)
}

// demote PREMIUM 用户降级为 NORMAL
func demote(ctx context.Context, repos *repository.Repositories, userID int) error {
	user, err := repos.User.FindByID(ctx, userID)
	if err != nil || user == nil {
		return err
	}
	if user.Role != model.RolePremium {
		return nil
	}
	return repos.User.UpdateRole(ctx, userID, model.RoleNormal)
}

// Status 获取订阅状态
func (s *SubscriptionService) Status(ctx context.Context, userID int) (*SubscriptionStatus, error) {
	user, err := s.repos.User.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, utils.Unauthenticated("用户不存在")
	}
	sub, err := s.repos.Subscription.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &SubscriptionStatus{Subscription: sub, Active: sub.CoversAt(s.now()), Role: user.Role}, nil
}

// Cancel 到期后取消订阅，当前周期内仍可访问
func (s *SubscriptionService) Cancel(ctx context.Context, userID int) (*model.Subscription, error) {
	sub, err := s.repos.Subscription.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub == nil || !sub.IsActive {
		return nil, utils.NotFoundErr("没有有效的订阅")
	}
	if sub.CancelledAt != nil {
		return nil, utils.Invalid("订阅已取消")
	}

	if sub.StripeSubscriptionID != "" {
		if s.gateway == nil {
			return nil, utils.Upstream("支付服务未配置", nil)
		}
		periodEnd, err := s.gateway.CancelAtPeriodEnd(ctx, sub.StripeSubscriptionID)
		if err != nil {
			return nil, utils.Upstream("取消订阅失败", err)
		}
		if !periodEnd.IsZero() && periodEnd.Unix() > 0 {
			sub.EndDate = &periodEnd
		}
	}

	now := s.now()
	sub.CancelledAt = &now
	if err := s.repos.Subscription.Upsert(ctx, sub); err != nil {
		return nil, err
	}
	s.entitlement.Invalidate(userID)
	log.Printf("[SubscriptionService] 用户 %d 已取消订阅，到期时间 %v", userID, sub.EndDate)
	return sub, nil
}

// ExpireStale 处理已过期但仍标记为有效的订阅，用于补偿丢失的支付回调
func (s *SubscriptionService) ExpireStale(ctx context.Context) (int, error) {
	subs, err := s.repos.Subscription.ListExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, sub := range subs {
		err := s.repos.Transaction(ctx, func(ctx context.Context) error {
			if err := s.repos.Subscription.Deactivate(ctx, sub.ID); err != nil {
				return err
			}
			return demote(ctx, s.repos, sub.UserID)
		})
		if err != nil {
			log.Printf("[SubscriptionService] 订阅 %d 过期处理失败: %v", sub.ID, err)
			continue
		}
		s.entitlement.Invalidate(sub.UserID)
		expired++
	}
	if expired > 0 {
		log.Printf("[SubscriptionService] 已处理 %d 个过期订阅", expired)
	}
	return expired, nil
}
