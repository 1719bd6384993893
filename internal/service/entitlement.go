package service

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/user/knowledger/internal/model"
	"github.com/user/knowledger/internal/repository"
)

// Access 内容访问结果
type Access string

const (
	FullAccess Access = "FULL_ACCESS"
	Locked     Access = "LOCKED"
)

// Viewer 访问者信息，UserID 为 0 表示匿名
type Viewer struct {
	UserID       int
	Role         model.Role
	Subscription *model.Subscription
	Purchased    bool
}

// Evaluate 判断访问者能否查看内容
// 规则：免费内容、讲师/管理员、作者本人、订阅有效或已购买即可访问。
// PREMIUM 角色本身只在没有订阅记录时放行；有记录时以订阅有效期为准，过期即锁定。
func Evaluate(v *Viewer, item model.ContentRef, now time.Time) Access {
	if !item.IsPremium {
		return FullAccess
	}
	if v == nil || v.UserID == 0 {
		return Locked
	}
	if v.Role.CanPublish() || v.UserID == item.AuthorID {
		return FullAccess
	}
	if v.Subscription.CoversAt(now) {
		return FullAccess
	}
	if v.Role == model.RolePremium && v.Subscription == nil {
		return FullAccess
	}
	if v.Purchased {
		return FullAccess
	}
	return Locked
}

type cachedSubscription struct {
	sub *model.Subscription
}

// EntitlementService 加载访问者信息并调用 Evaluate
type EntitlementService struct {
	repos *repository.Repositories
	subs  *cache.Cache
	now   func() time.Time
}

// NewEntitlementService 订阅记录缓存 1 分钟，支付回调时主动失效
func NewEntitlementService(repos *repository.Repositories) *EntitlementService {
	return &EntitlementService{
		repos: repos,
		subs:  cache.New(time.Minute, 5*time.Minute),
		now:   time.Now,
	}
}

func subKey(userID int) string {
	return fmt.Sprintf("sub:%d", userID)
}

func roleKey(userID int) string {
	return fmt.Sprintf("role:%d", userID)
}

// roleCacheTTL 多实例部署时其他实例的角色变更最迟在此时间后生效
const roleCacheTTL = 30 * time.Second

// Invalidate 清除用户的订阅和角色缓存
func (s *EntitlementService) Invalidate(userID int) {
	s.subs.Delete(subKey(userID))
	s.subs.Delete(roleKey(userID))
}

// CurrentRole 读取用户当前角色，供鉴权中间件使用
func (s *EntitlementService) CurrentRole(ctx context.Context, userID int) (model.Role, bool, error) {
	if v, ok := s.subs.Get(roleKey(userID)); ok {
		role := v.(model.Role)
		return role, role != "", nil
	}
	user, err := s.repos.User.FindByID(ctx, userID)
	if err != nil {
		return "", false, fmt.Errorf("加载用户失败: %w", err)
	}
	var role model.Role
	if user != nil {
		role = user.Role
	}
	s.subs.Set(roleKey(userID), role, roleCacheTTL)
	return role, role != "", nil
}

func (s *EntitlementService) subscription(ctx context.Context, userID int) (*model.Subscription, error) {
	if v, ok := s.subs.Get(subKey(userID)); ok {
		return v.(cachedSubscription).sub, nil
	}
	sub, err := s.repos.Subscription.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.subs.Set(subKey(userID), cachedSubscription{sub: sub}, cache.DefaultExpiration)
	return sub, nil
}

// Viewer 加载访问者（不含购买信息），用户不存在时视为匿名
func (s *EntitlementService) Viewer(ctx context.Context, userID int) (*Viewer, error) {
	if userID == 0 {
		return &Viewer{}, nil
	}
	user, err := s.repos.User.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("加载用户失败: %w", err)
	}
	if user == nil {
		return &Viewer{}, nil
	}
	sub, err := s.subscription(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("加载订阅失败: %w", err)
	}
	return &Viewer{UserID: user.ID, Role: user.Role, Subscription: sub}, nil
}

// CanAccess 判断用户能否访问单个内容
func (s *EntitlementService) CanAccess(ctx context.Context, userID int, item model.ContentRef) (bool, error) {
	if !item.IsPremium {
		return true, nil
	}
	viewer, err := s.Viewer(ctx, userID)
	if err != nil {
		return false, err
	}
	if Evaluate(viewer, item, s.now()) == FullAccess {
		return true, nil
	}
	if viewer.UserID == 0 {
		return false, nil
	}
	purchased, err := s.repos.Purchase.Exists(ctx, viewer.UserID, item.ID, item.Type)
	if err != nil {
		return false, fmt.Errorf("查询购买记录失败: %w", err)
	}
	viewer.Purchased = purchased
	return Evaluate(viewer, item, s.now()) == FullAccess, nil
}

// AccessMap 批量判断同类内容的访问权限，同时返回已购买集合
func (s *EntitlementService) AccessMap(ctx context.Context, userID int, t model.ContentType, items []model.ContentRef) (access map[int]bool, purchased map[int]bool, err error) {
	ids := make([]int, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	viewer, err := s.Viewer(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	purchased, err = s.repos.Purchase.ItemIDs(ctx, viewer.UserID, t, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("查询购买记录失败: %w", err)
	}

	now := s.now()
	access = make(map[int]bool, len(items))
	for _, item := range items {
		v := *viewer
		v.Purchased = purchased[item.ID]
		access[item.ID] = Evaluate(&v, item, now) == FullAccess
	}
	return access, purchased, nil
}
